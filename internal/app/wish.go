package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// WishService matches saved searches against listings and auto-enqueues
// matching tenants. It runs on listing publication and as a periodic
// sweep; both paths are idempotent because the queue's duplicate guard
// turns a re-match into a no-op.
type WishService struct {
	wishes   domain.WishRepository
	listings domain.ListingRepository
	tenants  domain.TenantRepository
	queue    *AdmissionService
	notifier domain.Notifier
	logger   *slog.Logger
}

// NewWishService creates the matcher with the given adapters.
func NewWishService(
	wishes domain.WishRepository,
	listings domain.ListingRepository,
	tenants domain.TenantRepository,
	queue *AdmissionService,
	notifier domain.Notifier,
	logger *slog.Logger,
) *WishService {
	return &WishService{
		wishes:   wishes,
		listings: listings,
		tenants:  tenants,
		queue:    queue,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateWish saves a new search for the tenant.
func (s *WishService) CreateWish(ctx context.Context, tenantID, city, neighborhood string, priceMin, priceMax int, roomTypes []string, minSizeSqm int, features []string) (domain.Wish, error) {
	id, err := generateID()
	if err != nil {
		return domain.Wish{}, fmt.Errorf("generating wish id: %w", err)
	}

	wish := domain.NewWish(id, tenantID, city, neighborhood, priceMin, priceMax, roomTypes, minSizeSqm, features)
	if err := s.wishes.Create(ctx, wish); err != nil {
		return domain.Wish{}, fmt.Errorf("creating wish: %w", err)
	}
	return wish, nil
}

// ListWishes returns the tenant's saved searches.
func (s *WishService) ListWishes(ctx context.Context, tenantID string) ([]domain.Wish, error) {
	return s.wishes.ListByTenant(ctx, tenantID)
}

// DeactivateWish turns a wish off. The caller must own it.
func (s *WishService) DeactivateWish(ctx context.Context, wishID, tenantID string) error {
	wish, err := s.wishes.GetByID(ctx, wishID)
	if err != nil {
		return err
	}
	if wish.TenantID != tenantID {
		return domain.ErrWishNotFound
	}
	wish.Active = false
	if err := s.wishes.Update(ctx, wish); err != nil {
		return fmt.Errorf("deactivating wish: %w", err)
	}
	return nil
}

// MatchListing evaluates every active wish against one listing,
// auto-applying on behalf of matching tenants. Returns the number of
// interests created. Per-wish failures are logged and skipped.
func (s *WishService) MatchListing(ctx context.Context, listingID string) (int, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return 0, err
	}
	if !listing.Accepting() {
		return 0, nil
	}

	wishes, err := s.wishes.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active wishes: %w", err)
	}

	created := 0
	for _, wish := range wishes {
		if wish.TenantID == listing.OwnerID || !wish.Matches(listing) {
			continue
		}
		ok, err := s.autoApply(ctx, wish, listing)
		if err != nil {
			s.logger.ErrorContext(ctx, "wish auto-apply failed",
				"wish_id", wish.ID,
				"listing_id", listing.ID,
				"error", err,
			)
			continue
		}
		if ok {
			created++
		}
	}
	return created, nil
}

// BatchMatch re-evaluates all active wishes against every accepting
// listing. One bad listing never aborts the sweep. Returns the number
// of interests created.
func (s *WishService) BatchMatch(ctx context.Context) (int, error) {
	accepting, err := s.listings.ListAccepting(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing accepting listings: %w", err)
	}

	total := 0
	for _, listing := range accepting {
		n, err := s.MatchListing(ctx, listing.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "wish sweep failed for listing",
				"listing_id", listing.ID, "error", err)
			continue
		}
		total += n
	}
	return total, nil
}

// autoApply expresses interest on the tenant's behalf and notifies
// them. A duplicate is a silent no-op; a tenant at the open-interest
// cap gets the match notification but no interest.
func (s *WishService) autoApply(ctx context.Context, wish domain.Wish, listing domain.Listing) (bool, error) {
	in, err := s.queue.ExpressInterest(ctx, listing.ID, wish.TenantID)
	if err != nil {
		var already *domain.AlreadyAppliedError
		if errors.As(err, &already) {
			return false, nil
		}
		var notEligible *domain.NotEligibleError
		if errors.As(err, &notEligible) && notEligible.Reason == domain.ReasonInterestLimit {
			s.notifyMatch(ctx, wish, listing, "")
			return false, nil
		}
		return false, err
	}

	s.notifyMatch(ctx, wish, listing, in.ID)
	return true, nil
}

func (s *WishService) notifyMatch(ctx context.Context, wish domain.Wish, listing domain.Listing, interestID string) {
	profile, err := s.tenants.GetByID(ctx, wish.TenantID)
	if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
		s.logger.WarnContext(ctx, "loading tenant for wish notification failed",
			"tenant_id", wish.TenantID, "error", err)
		return
	}
	if !profile.WishAlerts {
		return
	}

	data := map[string]string{
		"wish_id":    wish.ID,
		"listing_id": listing.ID,
	}
	if interestID != "" {
		data["interest_id"] = interestID
	}
	n := domain.Notification{
		UserID: wish.TenantID,
		Type:   domain.NotifyWishMatch,
		Data:   data,
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"user_id", n.UserID,
			"type", string(n.Type),
			"error", err,
		)
	}
}
