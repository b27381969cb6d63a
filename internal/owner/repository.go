// Package owner manages property owners and their persistence.
package owner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Owner represents the person a listing belongs to.
type Owner struct {
	ID        int64     `json:"id"`
	Name      *string   `json:"name,omitempty"`
	LastName  *string   `json:"lastName,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ErrNotFound is returned when an owner does not exist.
var ErrNotFound = errors.New("owner not found")

// Repository handles all owner database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const ownerColumns = `id, name, last_name, phone, created_at, updated_at`

func scanOwner(row pgx.Row) (*Owner, error) {
	o := &Owner{}
	err := row.Scan(&o.ID, &o.Name, &o.LastName, &o.Phone, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	return o, nil
}

// Create inserts a new owner and returns the created record.
func (r *Repository) Create(ctx context.Context, o *Owner) (*Owner, error) {
	return scanOwner(r.db.QueryRow(ctx,
		`INSERT INTO owners (name, last_name, phone)
		 VALUES ($1, $2, $3)
		 RETURNING `+ownerColumns,
		o.Name, o.LastName, o.Phone,
	))
}

// GetByID fetches an owner by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Owner, error) {
	return scanOwner(r.db.QueryRow(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id))
}

// List returns all owners, newest first.
func (r *Repository) List(ctx context.Context) ([]Owner, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+ownerColumns+` FROM owners ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}
	defer rows.Close()

	var out []Owner
	for rows.Next() {
		o, err := scanOwner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// Update replaces an owner's fields.
func (r *Repository) Update(ctx context.Context, id int64, o *Owner) (*Owner, error) {
	return scanOwner(r.db.QueryRow(ctx,
		`UPDATE owners SET name = $2, last_name = $3, phone = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+ownerColumns,
		id, o.Name, o.LastName, o.Phone,
	))
}

// Delete removes an owner row. The service layer cascades listings (and
// their images) before calling this.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM owners WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
