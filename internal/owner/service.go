package owner

import (
	"context"
	"errors"
	"fmt"
)

// ListingCascade removes everything an owner's listings hold on to (the
// listings themselves and their attached images). Implemented by the listing
// service; the indirection keeps this package from importing it.
type ListingCascade interface {
	DeleteByOwner(ctx context.Context, ownerID int64) error
}

// Service contains business logic for owner management.
type Service struct {
	repo     *Repository
	listings ListingCascade
}

// NewService creates a new owner Service.
func NewService(repo *Repository, listings ListingCascade) *Service {
	return &Service{repo: repo, listings: listings}
}

// Create registers a new owner.
func (s *Service) Create(ctx context.Context, o *Owner) (*Owner, error) {
	return s.repo.Create(ctx, o)
}

// GetByID returns an owner by id.
func (s *Service) GetByID(ctx context.Context, id int64) (*Owner, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns all owners.
func (s *Service) List(ctx context.Context) ([]Owner, error) {
	return s.repo.List(ctx)
}

// Update replaces an owner's fields.
func (s *Service) Update(ctx context.Context, id int64, o *Owner) (*Owner, error) {
	return s.repo.Update(ctx, id, o)
}

// Delete removes an owner after cascading through their listings, so no
// media asset ends up referencing a listing that no longer exists.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.listings.DeleteByOwner(ctx, id); err != nil {
		return fmt.Errorf("cascade owner %d listings: %w", id, err)
	}
	return s.repo.Delete(ctx, id)
}

// IsNotFound returns true when the error indicates a missing owner.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
