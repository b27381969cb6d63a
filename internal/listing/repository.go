package listing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a listing does not exist.
var ErrNotFound = errors.New("listing not found")

// HouseForSale is a property listed for sale.
type HouseForSale struct {
	ID            int64     `json:"id"`
	Title         *string   `json:"title,omitempty"`
	Street        *string   `json:"street,omitempty"`
	Number        *int      `json:"number,omitempty"`
	Neighborhood  *string   `json:"neighborhood,omitempty"`
	PostalCode    *int      `json:"postalCode,omitempty"`
	City          *string   `json:"city,omitempty"`
	SellingCost   *int64    `json:"sellingCost,omitempty"`
	Infonavit     *bool     `json:"infonavit,omitempty"`
	Beds          *int      `json:"beds,omitempty"`
	Baths         *float64  `json:"baths,omitempty"`
	Garage        *int      `json:"garage,omitempty"`
	Patio         *bool     `json:"patio,omitempty"`
	Construction  *float64  `json:"construction,omitempty"`
	LotSurface    *float64  `json:"lotSurface,omitempty"`
	Services      *string   `json:"services,omitempty"`
	PaymentMethod *string   `json:"paymentMethod,omitempty"`
	Negotiable    *bool     `json:"negotiable,omitempty"`
	Status        *string   `json:"status,omitempty"`
	Comments      *string   `json:"comments,omitempty"`
	OwnerID       int64     `json:"ownerId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HouseForRent is a property listed for rent.
type HouseForRent struct {
	ID               int64     `json:"id"`
	Title            *string   `json:"title,omitempty"`
	Street           *string   `json:"street,omitempty"`
	Number           *int      `json:"number,omitempty"`
	Neighborhood     *string   `json:"neighborhood,omitempty"`
	PostalCode       *int      `json:"postalCode,omitempty"`
	City             *string   `json:"city,omitempty"`
	RentCost         *int64    `json:"rentCost,omitempty"`
	Garage           *bool     `json:"garage,omitempty"`
	Bedrooms         *int      `json:"bedrooms,omitempty"`
	Bathrooms        *float64  `json:"bathrooms,omitempty"`
	IncludedServices *string   `json:"includedServices,omitempty"`
	PetFriendly      *bool     `json:"petFriendly,omitempty"`
	Patio            *bool     `json:"patio,omitempty"`
	Comments         *string   `json:"comments,omitempty"`
	OwnerID          int64     `json:"ownerId"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// Filter narrows listing queries. Zero values mean "no constraint".
type Filter struct {
	City    string
	MinCost int64
	MaxCost int64
}

// Repository handles listing persistence for both kinds.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new listing Repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const saleColumns = `id, title, street, number, nghood, postal_code, city, selling_cost,
	infonavit, beds, baths, garage, patio, construction, lot_surface, services,
	payment_method, negotiable, status, comments, owner_id, created_at, updated_at`

func scanSale(row pgx.Row) (*HouseForSale, error) {
	h := &HouseForSale{}
	err := row.Scan(&h.ID, &h.Title, &h.Street, &h.Number, &h.Neighborhood, &h.PostalCode,
		&h.City, &h.SellingCost, &h.Infonavit, &h.Beds, &h.Baths, &h.Garage, &h.Patio,
		&h.Construction, &h.LotSurface, &h.Services, &h.PaymentMethod, &h.Negotiable,
		&h.Status, &h.Comments, &h.OwnerID, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan house for sale: %w", err)
	}
	return h, nil
}

// CreateSale inserts a new for-sale listing.
func (r *Repository) CreateSale(ctx context.Context, h *HouseForSale) (*HouseForSale, error) {
	return scanSale(r.db.QueryRow(ctx,
		`INSERT INTO houses_for_sale (title, street, number, nghood, postal_code, city,
			selling_cost, infonavit, beds, baths, garage, patio, construction, lot_surface,
			services, payment_method, negotiable, status, comments, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		 RETURNING `+saleColumns,
		h.Title, h.Street, h.Number, h.Neighborhood, h.PostalCode, h.City, h.SellingCost,
		h.Infonavit, h.Beds, h.Baths, h.Garage, h.Patio, h.Construction, h.LotSurface,
		h.Services, h.PaymentMethod, h.Negotiable, h.Status, h.Comments, h.OwnerID,
	))
}

// GetSale fetches a for-sale listing by id.
func (r *Repository) GetSale(ctx context.Context, id int64) (*HouseForSale, error) {
	return scanSale(r.db.QueryRow(ctx,
		`SELECT `+saleColumns+` FROM houses_for_sale WHERE id = $1`, id))
}

// ListSales returns for-sale listings matching the filter, newest first.
func (r *Repository) ListSales(ctx context.Context, f Filter) ([]HouseForSale, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+saleColumns+`
		 FROM houses_for_sale
		 WHERE ($1 = '' OR city = $1)
		   AND ($2 = 0 OR selling_cost >= $2)
		   AND ($3 = 0 OR selling_cost <= $3)
		 ORDER BY created_at DESC`,
		f.City, f.MinCost, f.MaxCost,
	)
	if err != nil {
		return nil, fmt.Errorf("list houses for sale: %w", err)
	}
	defer rows.Close()

	var out []HouseForSale
	for rows.Next() {
		h, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpdateSale replaces the mutable fields of a for-sale listing.
func (r *Repository) UpdateSale(ctx context.Context, id int64, h *HouseForSale) (*HouseForSale, error) {
	return scanSale(r.db.QueryRow(ctx,
		`UPDATE houses_for_sale SET title=$2, street=$3, number=$4, nghood=$5,
			postal_code=$6, city=$7, selling_cost=$8, infonavit=$9, beds=$10, baths=$11,
			garage=$12, patio=$13, construction=$14, lot_surface=$15, services=$16,
			payment_method=$17, negotiable=$18, status=$19, comments=$20, owner_id=$21,
			updated_at=now()
		 WHERE id = $1
		 RETURNING `+saleColumns,
		id, h.Title, h.Street, h.Number, h.Neighborhood, h.PostalCode, h.City,
		h.SellingCost, h.Infonavit, h.Beds, h.Baths, h.Garage, h.Patio, h.Construction,
		h.LotSurface, h.Services, h.PaymentMethod, h.Negotiable, h.Status, h.Comments,
		h.OwnerID,
	))
}

// DeleteSale removes a for-sale listing row.
func (r *Repository) DeleteSale(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM houses_for_sale WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete house for sale: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const rentColumns = `id, title, street, number, nghood, postal_code, city, rent_cost,
	garage, bedrooms, bathrooms, included_services, petfriendly, patio, comments,
	owner_id, created_at, updated_at`

func scanRent(row pgx.Row) (*HouseForRent, error) {
	h := &HouseForRent{}
	err := row.Scan(&h.ID, &h.Title, &h.Street, &h.Number, &h.Neighborhood, &h.PostalCode,
		&h.City, &h.RentCost, &h.Garage, &h.Bedrooms, &h.Bathrooms, &h.IncludedServices,
		&h.PetFriendly, &h.Patio, &h.Comments, &h.OwnerID, &h.CreatedAt, &h.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan house for rent: %w", err)
	}
	return h, nil
}

// CreateRent inserts a new for-rent listing.
func (r *Repository) CreateRent(ctx context.Context, h *HouseForRent) (*HouseForRent, error) {
	return scanRent(r.db.QueryRow(ctx,
		`INSERT INTO houses_for_rent (title, street, number, nghood, postal_code, city,
			rent_cost, garage, bedrooms, bathrooms, included_services, petfriendly, patio,
			comments, owner_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		 RETURNING `+rentColumns,
		h.Title, h.Street, h.Number, h.Neighborhood, h.PostalCode, h.City, h.RentCost,
		h.Garage, h.Bedrooms, h.Bathrooms, h.IncludedServices, h.PetFriendly, h.Patio,
		h.Comments, h.OwnerID,
	))
}

// GetRent fetches a for-rent listing by id.
func (r *Repository) GetRent(ctx context.Context, id int64) (*HouseForRent, error) {
	return scanRent(r.db.QueryRow(ctx,
		`SELECT `+rentColumns+` FROM houses_for_rent WHERE id = $1`, id))
}

// ListRents returns for-rent listings matching the filter, newest first.
func (r *Repository) ListRents(ctx context.Context, f Filter) ([]HouseForRent, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+rentColumns+`
		 FROM houses_for_rent
		 WHERE ($1 = '' OR city = $1)
		   AND ($2 = 0 OR rent_cost >= $2)
		   AND ($3 = 0 OR rent_cost <= $3)
		 ORDER BY created_at DESC`,
		f.City, f.MinCost, f.MaxCost,
	)
	if err != nil {
		return nil, fmt.Errorf("list houses for rent: %w", err)
	}
	defer rows.Close()

	var out []HouseForRent
	for rows.Next() {
		h, err := scanRent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *h)
	}
	return out, rows.Err()
}

// UpdateRent replaces the mutable fields of a for-rent listing.
func (r *Repository) UpdateRent(ctx context.Context, id int64, h *HouseForRent) (*HouseForRent, error) {
	return scanRent(r.db.QueryRow(ctx,
		`UPDATE houses_for_rent SET title=$2, street=$3, number=$4, nghood=$5,
			postal_code=$6, city=$7, rent_cost=$8, garage=$9, bedrooms=$10, bathrooms=$11,
			included_services=$12, petfriendly=$13, patio=$14, comments=$15, owner_id=$16,
			updated_at=now()
		 WHERE id = $1
		 RETURNING `+rentColumns,
		id, h.Title, h.Street, h.Number, h.Neighborhood, h.PostalCode, h.City, h.RentCost,
		h.Garage, h.Bedrooms, h.Bathrooms, h.IncludedServices, h.PetFriendly, h.Patio,
		h.Comments, h.OwnerID,
	))
}

// DeleteRent removes a for-rent listing row.
func (r *Repository) DeleteRent(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM houses_for_rent WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete house for rent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IDsByOwner returns the ids of all listings of one kind belonging to an
// owner. Used for the owner-deletion cascade.
func (r *Repository) IDsByOwner(ctx context.Context, kind Kind, ownerID int64) ([]int64, error) {
	var table string
	switch kind {
	case KindHouseForSale:
		table = "houses_for_sale"
	case KindHouseForRent:
		table = "houses_for_rent"
	default:
		return nil, fmt.Errorf("unknown listing kind %q", kind)
	}

	rows, err := r.db.Query(ctx, `SELECT id FROM `+table+` WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list %s ids by owner: %w", kind, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan listing id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists reports whether a listing of the given kind exists. Exhaustive over
// the closed kind set; an unknown kind is a programming error.
func (r *Repository) Exists(ctx context.Context, kind Kind, id int64) (bool, error) {
	var table string
	switch kind {
	case KindHouseForSale:
		table = "houses_for_sale"
	case KindHouseForRent:
		table = "houses_for_rent"
	default:
		return false, fmt.Errorf("unknown listing kind %q", kind)
	}

	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check %s existence: %w", kind, err)
	}
	return exists, nil
}
