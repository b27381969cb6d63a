// Package storage defines the interface for object storage operations.
// Swap implementations by changing the concrete type injected at startup —
// the MinIO implementation works with any S3-compatible provider (MinIO, AWS S3).
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ObjectStore is the interface for a private bucket of media objects.
// Objects are never publicly readable; reads go through presigned URLs.
type ObjectStore interface {
	// Upload streams data to the store under the given key with private access.
	// Keys are always freshly derived, so an upload never overwrites an
	// existing object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	// Delete removes an object identified by key. Deleting a key that does
	// not exist is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether an object is present under key. Used for
	// reconciliation and diagnostics, never on the upload path.
	Exists(ctx context.Context, key string) (bool, error)
	// PresignGet returns a time-limited URL granting read access to the
	// object at key. The result must not be cached: every call reflects a
	// fresh expiry window.
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// ErrorKind classifies object-store failures for callers that need to
// distinguish missing objects from auth problems from retryable ones.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAccessDenied
	KindTransient
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAccessDenied:
		return "access_denied"
	case KindTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// StoreError wraps an underlying object-store failure with a classification.
// The store performs no retries itself; retrying transient failures is the
// caller's decision.
type StoreError struct {
	Kind ErrorKind
	Key  string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("object store: %s: key %q: %v", e.Kind, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a StoreError for a missing object.
func IsNotFound(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindNotFound
}

// IsTransient reports whether err is a StoreError worth retrying.
func IsTransient(err error) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == KindTransient
}
