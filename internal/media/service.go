package media

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/inmuebles/service/internal/storage"
)

const sweepBatchSize = 100

// Service orchestrates the attach/list/promote/detach lifecycle and signed
// delivery. It owns MediaAsset records exclusively; the object bytes are
// owned jointly with the store, so every record deletion either deletes the
// object or leaves a reconciliation trail.
type Service struct {
	repo       Repository
	store      storage.ObjectStore
	keys       *KeyDeriver
	signTTL    time.Duration
	signTTLMax time.Duration
}

// NewService creates a media Service. signTTL is the default validity for
// presigned URLs; signTTLMax caps per-request overrides.
func NewService(repo Repository, store storage.ObjectStore, keys *KeyDeriver, signTTL, signTTLMax time.Duration) *Service {
	return &Service{
		repo:       repo,
		store:      store,
		keys:       keys,
		signTTL:    signTTL,
		signTTLMax: signTTLMax,
	}
}

// Attach uploads the file and persists an asset record for ref. The upload
// happens before any record is written: an upload failure leaves no partial
// record, and a record failure rolls the uploaded object back (or records it
// for reconciliation when the rollback itself fails).
func (s *Service) Attach(ctx context.Context, ref OwnerRef, file io.Reader, up Upload) (*Asset, error) {
	if ref.Kind == "" || ref.ID <= 0 {
		return nil, &ValidationError{Msg: "missing owner reference"}
	}
	if up.Order < 0 {
		return nil, &ValidationError{Msg: "order must be non-negative"}
	}

	key, err := s.keys.Derive(ref, up.Filename)
	if err != nil {
		return nil, err
	}

	if err := s.store.Upload(ctx, key, file, up.Size, up.ContentType); err != nil {
		return nil, fmt.Errorf("upload %q: %w", key, err)
	}

	asset := &Asset{
		OwnerKind:  ref.Kind,
		OwnerID:    ref.ID,
		StorageKey: key,
		Caption:    up.Caption,
		Order:      up.Order,
	}
	if err := s.repo.Insert(ctx, asset, up.MarkPrimary); err != nil {
		s.rollbackUpload(ctx, key)
		return nil, fmt.Errorf("persist asset for %s: %w", ref, err)
	}

	return asset, nil
}

// rollbackUpload removes an object whose record was never written. If the
// delete fails too, the key is registered as an orphan so the sweeper can
// reclaim it.
func (s *Service) rollbackUpload(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		log.Printf("media: rollback delete %q failed: %v", key, err)
		if err := s.repo.RecordOrphan(ctx, key); err != nil {
			log.Printf("media: recording orphan %q failed: %v", key, err)
		}
	}
}

// List returns the owner's assets ordered by display order, creation-time
// tie-break. The result is fully materialized; pagination is a caller concern.
func (s *Service) List(ctx context.Context, ref OwnerRef) ([]Asset, error) {
	return s.repo.ListByOwner(ctx, ref)
}

// SetPrimary makes assetID the single primary image for ref. ErrNotFound
// (with no mutation) when the asset belongs to a different owner.
func (s *Service) SetPrimary(ctx context.Context, ref OwnerRef, assetID int64) error {
	return s.repo.Promote(ctx, ref, assetID)
}

// Detach deletes the asset's bytes and record. The object delete runs first
// and is retried once; when it still fails, the record is removed together
// with an orphan entry so the bytes are never silently lost track of.
func (s *Service) Detach(ctx context.Context, ref OwnerRef, assetID int64) error {
	a, err := s.repo.GetByOwner(ctx, ref, assetID)
	if err != nil {
		return err
	}

	if err := s.deleteObject(ctx, a.StorageKey); err != nil {
		log.Printf("media: object delete %q failed twice, recording orphan: %v", a.StorageKey, err)
		return s.repo.DeleteRecordingOrphan(ctx, ref, assetID, a.StorageKey)
	}

	return s.repo.Delete(ctx, ref, assetID)
}

// DetachAll removes every asset of an owner. Callers deleting an owning
// record use this for the cascade.
func (s *Service) DetachAll(ctx context.Context, ref OwnerRef) error {
	assets, err := s.repo.ListByOwner(ctx, ref)
	if err != nil {
		return err
	}
	for i := range assets {
		if err := s.Detach(ctx, ref, assets[i].ID); err != nil {
			return fmt.Errorf("detach asset %d: %w", assets[i].ID, err)
		}
	}
	return nil
}

func (s *Service) deleteObject(ctx context.Context, key string) error {
	err := s.store.Delete(ctx, key)
	if err == nil {
		return nil
	}
	// one retry, then give up and let reconciliation handle it
	if err2 := s.store.Delete(ctx, key); err2 == nil {
		return nil
	}
	return err
}

// SecureURL produces a fresh presigned URL for the asset. An asset without a
// storage key yields an empty URL and no error ("no image bytes" is not a
// signing failure). URLs are never cached: each call reflects the current
// expiry window.
func (s *Service) SecureURL(ctx context.Context, a *Asset, ttl time.Duration) (string, error) {
	if a.StorageKey == "" {
		return "", nil
	}
	return s.store.PresignGet(ctx, a.StorageKey, s.clampTTL(ttl))
}

func (s *Service) clampTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.signTTL
	}
	if ttl > s.signTTLMax {
		return s.signTTLMax
	}
	return ttl
}

// SweepOrphans reconciles recorded orphans against the store: objects still
// present are deleted, and resolved entries are dropped. Returns the number
// of entries cleared.
func (s *Service) SweepOrphans(ctx context.Context) (int, error) {
	keys, err := s.repo.ListOrphans(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, key := range keys {
		exists, err := s.store.Exists(ctx, key)
		if err != nil {
			log.Printf("media: sweep stat %q failed: %v", key, err)
			continue
		}
		if exists {
			if err := s.store.Delete(ctx, key); err != nil {
				log.Printf("media: sweep delete %q failed: %v", key, err)
				continue
			}
		}
		if err := s.repo.RemoveOrphan(ctx, key); err != nil {
			return cleared, err
		}
		cleared++
	}
	return cleared, nil
}
