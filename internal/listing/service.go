package listing

import (
	"context"
	"errors"
	"fmt"

	"github.com/inmuebles/service/internal/media"
)

// Service contains business logic for listings. Deleting a listing cascades
// into the media core so its images do not outlive it.
type Service struct {
	repo     *Repository
	mediaSvc *media.Service
}

// NewService creates a new listing Service.
func NewService(repo *Repository, mediaSvc *media.Service) *Service {
	return &Service{repo: repo, mediaSvc: mediaSvc}
}

// CreateSale registers a new for-sale listing.
func (s *Service) CreateSale(ctx context.Context, h *HouseForSale) (*HouseForSale, error) {
	return s.repo.CreateSale(ctx, h)
}

// GetSale returns a for-sale listing by id.
func (s *Service) GetSale(ctx context.Context, id int64) (*HouseForSale, error) {
	return s.repo.GetSale(ctx, id)
}

// ListSales returns for-sale listings matching the filter.
func (s *Service) ListSales(ctx context.Context, f Filter) ([]HouseForSale, error) {
	return s.repo.ListSales(ctx, f)
}

// UpdateSale replaces a for-sale listing's fields.
func (s *Service) UpdateSale(ctx context.Context, id int64, h *HouseForSale) (*HouseForSale, error) {
	return s.repo.UpdateSale(ctx, id, h)
}

// DeleteSale removes a for-sale listing and detaches its images first, so no
// asset record ends up pointing at a vanished owner.
func (s *Service) DeleteSale(ctx context.Context, id int64) error {
	ref := media.OwnerRef{Kind: string(KindHouseForSale), ID: id}
	if err := s.mediaSvc.DetachAll(ctx, ref); err != nil {
		return fmt.Errorf("detach images of %s: %w", ref, err)
	}
	return s.repo.DeleteSale(ctx, id)
}

// CreateRent registers a new for-rent listing.
func (s *Service) CreateRent(ctx context.Context, h *HouseForRent) (*HouseForRent, error) {
	return s.repo.CreateRent(ctx, h)
}

// GetRent returns a for-rent listing by id.
func (s *Service) GetRent(ctx context.Context, id int64) (*HouseForRent, error) {
	return s.repo.GetRent(ctx, id)
}

// ListRents returns for-rent listings matching the filter.
func (s *Service) ListRents(ctx context.Context, f Filter) ([]HouseForRent, error) {
	return s.repo.ListRents(ctx, f)
}

// UpdateRent replaces a for-rent listing's fields.
func (s *Service) UpdateRent(ctx context.Context, id int64, h *HouseForRent) (*HouseForRent, error) {
	return s.repo.UpdateRent(ctx, id, h)
}

// DeleteRent removes a for-rent listing and detaches its images first.
func (s *Service) DeleteRent(ctx context.Context, id int64) error {
	ref := media.OwnerRef{Kind: string(KindHouseForRent), ID: id}
	if err := s.mediaSvc.DetachAll(ctx, ref); err != nil {
		return fmt.Errorf("detach images of %s: %w", ref, err)
	}
	return s.repo.DeleteRent(ctx, id)
}

// DeleteByOwner removes every listing belonging to an owner, detaching each
// listing's images along the way.
func (s *Service) DeleteByOwner(ctx context.Context, ownerID int64) error {
	for _, kind := range Kinds() {
		ids, err := s.repo.IDsByOwner(ctx, kind, ownerID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			var derr error
			switch kind {
			case KindHouseForSale:
				derr = s.DeleteSale(ctx, id)
			case KindHouseForRent:
				derr = s.DeleteRent(ctx, id)
			}
			if derr != nil && !errors.Is(derr, ErrNotFound) {
				return fmt.Errorf("delete %s %d: %w", kind, id, derr)
			}
		}
	}
	return nil
}

// ExistsChecker returns a media.OwnerChecker bound to one listing kind, used
// when mounting image routes.
func (s *Service) ExistsChecker(kind Kind) media.OwnerChecker {
	return func(ctx context.Context, id int64) (bool, error) {
		return s.repo.Exists(ctx, kind, id)
	}
}

// IsNotFound returns true when the error indicates a missing listing.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
