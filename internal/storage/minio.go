package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements ObjectStore using a MinIO (or any S3-compatible)
// backend. The bucket carries no anonymous-read policy: objects stay private
// and are served exclusively through presigned GET URLs.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// NewMinioStore creates a MinIO client, ensures the bucket exists, and
// returns a ready-to-use MinioStore. No public bucket policy is applied.
func NewMinioStore(endpoint, accessKey, secretKey, bucket, region string, useSSL bool) (*MinioStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ctx := context.Background()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
		}
		log.Printf("storage: created private bucket %q", bucket)
	}

	return &MinioStore{client: client, bucket: bucket}, nil
}

// Upload streams reader to the bucket under key. size must be the exact byte
// count (pass -1 only if the size is genuinely unknown — MinIO will buffer it).
func (s *MinioStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classify(key, err)
	}
	return nil
}

// Delete removes the object at key. MinIO treats removal of a missing key as
// success, which gives this method its idempotency.
func (s *MinioStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		cerr := classify(key, err)
		if IsNotFound(cerr) {
			return nil
		}
		return cerr
	}
	return nil
}

// Exists checks object presence with a HEAD request.
func (s *MinioStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		cerr := classify(key, err)
		if IsNotFound(cerr) {
			return false, nil
		}
		return false, cerr
	}
	return true, nil
}

// PresignGet returns a presigned GET URL valid for expiry from now.
func (s *MinioStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, expiry, nil)
	if err != nil {
		return "", classify(key, err)
	}
	return u.String(), nil
}

// classify maps a minio error onto the StoreError taxonomy.
func classify(key string, err error) *StoreError {
	resp := minio.ToErrorResponse(err)
	kind := KindUnknown
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		kind = KindNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		kind = KindAccessDenied
	case "SlowDown", "RequestTimeout", "InternalError", "ServiceUnavailable":
		kind = KindTransient
	default:
		switch resp.StatusCode {
		case http.StatusNotFound:
			kind = KindNotFound
		case http.StatusForbidden, http.StatusUnauthorized:
			kind = KindAccessDenied
		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			kind = KindTransient
		}
	}
	return &StoreError{Kind: kind, Key: key, Err: err}
}
