package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists media assets. The promote path is the only place that
// writes is_primary = true; every other statement may only clear it.
type Repository interface {
	// Insert persists a new asset and fills its ID and timestamps. When
	// markPrimary is set, any existing primary for the same owner is
	// demoted in the same transaction, so readers never observe two
	// primaries.
	Insert(ctx context.Context, a *Asset, markPrimary bool) error
	// ListByOwner returns all assets for an owner ordered by display order,
	// ties broken by creation time.
	ListByOwner(ctx context.Context, ref OwnerRef) ([]Asset, error)
	// GetByOwner fetches one asset scoped to its owner; ErrNotFound when the
	// asset does not exist or belongs to someone else.
	GetByOwner(ctx context.Context, ref OwnerRef, assetID int64) (*Asset, error)
	// Promote atomically makes assetID the single primary for ref.
	// ErrNotFound (and no mutation) when assetID is not owned by ref.
	Promote(ctx context.Context, ref OwnerRef, assetID int64) error
	// Delete removes the asset row. ErrNotFound when no row matches.
	Delete(ctx context.Context, ref OwnerRef, assetID int64) error
	// DeleteRecordingOrphan removes the asset row and records its storage
	// key as an orphan in the same transaction, for later reconciliation.
	DeleteRecordingOrphan(ctx context.Context, ref OwnerRef, assetID int64, storageKey string) error
	// RecordOrphan registers a storage key whose bytes may be unreferenced.
	RecordOrphan(ctx context.Context, storageKey string) error
	// ListOrphans returns up to limit orphaned storage keys.
	ListOrphans(ctx context.Context, limit int) ([]string, error)
	// RemoveOrphan drops a reconciled orphan entry.
	RemoveOrphan(ctx context.Context, storageKey string) error
}

type pgRepository struct {
	db *pgxpool.Pool
}

// NewRepository creates a Postgres-backed Repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &pgRepository{db: db}
}

const assetColumns = `id, owner_kind, owner_id, storage_key, caption, is_primary, display_order, created_at, updated_at`

func scanAsset(row pgx.Row) (*Asset, error) {
	a := &Asset{}
	err := row.Scan(&a.ID, &a.OwnerKind, &a.OwnerID, &a.StorageKey, &a.Caption,
		&a.IsPrimary, &a.Order, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan media asset: %w", err)
	}
	return a, nil
}

// lockOwner serializes writers touching the same owner for the duration of
// the transaction. The advisory lock key is derived from the owner reference,
// so promotes and primary-inserts for different owners never contend.
func lockOwner(ctx context.Context, tx pgx.Tx, ref OwnerRef) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, ref.String())
	if err != nil {
		return fmt.Errorf("lock owner %s: %w", ref, err)
	}
	return nil
}

func (r *pgRepository) Insert(ctx context.Context, a *Asset, markPrimary bool) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin insert asset: %w", err)
	}
	defer tx.Rollback(ctx)

	if markPrimary {
		if err := lockOwner(ctx, tx, a.Owner()); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`UPDATE media_assets SET is_primary = false, updated_at = now()
			 WHERE owner_kind = $1 AND owner_id = $2 AND is_primary`,
			a.OwnerKind, a.OwnerID,
		)
		if err != nil {
			return fmt.Errorf("demote existing primary: %w", err)
		}
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO media_assets (owner_kind, owner_id, storage_key, caption, is_primary, display_order)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, is_primary, created_at, updated_at`,
		a.OwnerKind, a.OwnerID, a.StorageKey, a.Caption, markPrimary, a.Order,
	).Scan(&a.ID, &a.IsPrimary, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert media asset: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgRepository) ListByOwner(ctx context.Context, ref OwnerRef) ([]Asset, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+assetColumns+`
		 FROM media_assets
		 WHERE owner_kind = $1 AND owner_id = $2
		 ORDER BY display_order ASC, created_at ASC, id ASC`,
		ref.Kind, ref.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list media assets: %w", err)
	}
	return assets, nil
}

func (r *pgRepository) GetByOwner(ctx context.Context, ref OwnerRef, assetID int64) (*Asset, error) {
	return scanAsset(r.db.QueryRow(ctx,
		`SELECT `+assetColumns+`
		 FROM media_assets
		 WHERE id = $1 AND owner_kind = $2 AND owner_id = $3`,
		assetID, ref.Kind, ref.ID,
	))
}

func (r *pgRepository) Promote(ctx context.Context, ref OwnerRef, assetID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin promote: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockOwner(ctx, tx, ref); err != nil {
		return err
	}

	// Ownership check first: a foreign asset id must fail without touching
	// the current primary.
	var id int64
	err = tx.QueryRow(ctx,
		`SELECT id FROM media_assets WHERE id = $1 AND owner_kind = $2 AND owner_id = $3`,
		assetID, ref.Kind, ref.ID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("check asset ownership: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE media_assets SET is_primary = false, updated_at = now()
		 WHERE owner_kind = $1 AND owner_id = $2 AND is_primary`,
		ref.Kind, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("clear primary: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE media_assets SET is_primary = true, updated_at = now() WHERE id = $1`,
		assetID,
	)
	if err != nil {
		return fmt.Errorf("set primary: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgRepository) Delete(ctx context.Context, ref OwnerRef, assetID int64) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM media_assets WHERE id = $1 AND owner_kind = $2 AND owner_id = $3`,
		assetID, ref.Kind, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("delete media asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *pgRepository) DeleteRecordingOrphan(ctx context.Context, ref OwnerRef, assetID int64, storageKey string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete with orphan: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`DELETE FROM media_assets WHERE id = $1 AND owner_kind = $2 AND owner_id = $3`,
		assetID, ref.Kind, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("delete media asset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO orphaned_objects (storage_key) VALUES ($1)
		 ON CONFLICT (storage_key) DO NOTHING`,
		storageKey,
	)
	if err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *pgRepository) RecordOrphan(ctx context.Context, storageKey string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO orphaned_objects (storage_key) VALUES ($1)
		 ON CONFLICT (storage_key) DO NOTHING`,
		storageKey,
	)
	if err != nil {
		return fmt.Errorf("record orphan: %w", err)
	}
	return nil
}

func (r *pgRepository) ListOrphans(ctx context.Context, limit int) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT storage_key FROM orphaned_objects ORDER BY recorded_at ASC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan orphan: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list orphans: %w", err)
	}
	return keys, nil
}

func (r *pgRepository) RemoveOrphan(ctx context.Context, storageKey string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM orphaned_objects WHERE storage_key = $1`, storageKey)
	if err != nil {
		return fmt.Errorf("remove orphan: %w", err)
	}
	return nil
}
