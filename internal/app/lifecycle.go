package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// LifecycleService keeps Listing.status consistent with queue occupancy
// and time-based expiry, and owns publication and renewal.
type LifecycleService struct {
	listings  domain.ListingRepository
	interests domain.InterestRepository
	tx        domain.TxRunner
	listingV  domain.ListingTransitionValidator
	interestV domain.InterestTransitionValidator
	matcher   domain.MatchScheduler
	notifier  domain.Notifier
	logger    *slog.Logger
}

// NewLifecycleService creates the lifecycle gate with the given adapters.
func NewLifecycleService(
	listings domain.ListingRepository,
	interests domain.InterestRepository,
	tx domain.TxRunner,
	listingV domain.ListingTransitionValidator,
	interestV domain.InterestTransitionValidator,
	matcher domain.MatchScheduler,
	notifier domain.Notifier,
	logger *slog.Logger,
) *LifecycleService {
	return &LifecycleService{
		listings:  listings,
		interests: interests,
		tx:        tx,
		listingV:  listingV,
		interestV: interestV,
		matcher:   matcher,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateListing persists a new draft listing.
func (s *LifecycleService) CreateListing(ctx context.Context, ownerID, title, city, neighborhood, roomType string, priceEUR, roomSizeSqm int, features []string) (domain.Listing, error) {
	id, err := generateID()
	if err != nil {
		return domain.Listing{}, fmt.Errorf("generating listing id: %w", err)
	}

	listing := domain.NewListing(id, ownerID, title, city, neighborhood, roomType, priceEUR, roomSizeSqm, features)
	if err := s.listings.Create(ctx, listing); err != nil {
		return domain.Listing{}, fmt.Errorf("creating listing: %w", err)
	}
	return listing, nil
}

// Publish moves a draft listing live, stamps its expiry, and schedules
// wish matching against it.
func (s *LifecycleService) Publish(ctx context.Context, listingID, actorID string, now time.Time) (domain.Listing, error) {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return domain.Listing{}, err
	}
	if listing.OwnerID != actorID {
		return domain.Listing{}, &domain.NotEligibleError{Reason: domain.ReasonNotOwner}
	}

	next, err := s.listingV.Apply(ctx, listing.Status, domain.ListingEventPublish)
	if err != nil {
		return domain.Listing{}, err
	}
	listing.Status = next
	expires := now.Add(domain.ListingTTL)
	listing.ExpiresAt = &expires

	if err := s.listings.Update(ctx, listing); err != nil {
		return domain.Listing{}, fmt.Errorf("publishing listing: %w", err)
	}

	if err := s.matcher.ScheduleListingMatch(ctx, listing.ID); err != nil {
		// The periodic sweep will pick the listing up anyway.
		s.logger.WarnContext(ctx, "scheduling wish match failed",
			"listing_id", listing.ID, "error", err)
	}
	return listing, nil
}

// Transition applies an owner-driven lifecycle event (pause, resume,
// rent, archive). Queue-driven and time-driven events go through their
// dedicated paths. Renting closes the listing's open interests so the
// holders' open-interest budget is freed.
func (s *LifecycleService) Transition(ctx context.Context, listingID, actorID string, event domain.ListingEvent) (domain.Listing, error) {
	var updated domain.Listing

	err := s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.OwnerID != actorID {
			return &domain.NotEligibleError{Reason: domain.ReasonNotOwner}
		}

		switch event {
		case domain.ListingEventPause, domain.ListingEventResume,
			domain.ListingEventRent, domain.ListingEventArchive:
		default:
			return &domain.ListingTransitionError{Event: event, Current: listing.Status}
		}

		next, err := s.listingV.Apply(ctx, listing.Status, event)
		if err != nil {
			return err
		}
		listing.Status = next
		if err := s.listings.Update(ctx, listing); err != nil {
			return fmt.Errorf("updating listing status: %w", err)
		}

		if event == domain.ListingEventRent {
			if err := s.closeOpenInterests(ctx, listing.ID); err != nil {
				return err
			}
		}

		updated = listing
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return updated, nil
}

func (s *LifecycleService) closeOpenInterests(ctx context.Context, listingID string) error {
	open, err := s.interests.ListOpenByListing(ctx, listingID)
	if err != nil {
		return fmt.Errorf("listing open interests: %w", err)
	}
	for _, in := range open {
		status, err := s.interestV.Apply(ctx, in.Status, domain.InterestEventExpire)
		if err != nil {
			return err
		}
		in.Status = status
		if err := s.interests.Update(ctx, in); err != nil {
			return fmt.Errorf("closing interest %s: %w", in.ID, err)
		}
	}
	return nil
}

// OnActiveCountChanged flips the listing between active and queue_full
// based on live occupancy. Any other status is left alone.
func (s *LifecycleService) OnActiveCountChanged(ctx context.Context, listingID string, activeCount int) error {
	listing, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}

	var event domain.ListingEvent
	switch {
	case activeCount >= domain.MaxActiveInterests && listing.Status == domain.ListingActive:
		event = domain.ListingEventFill
	case activeCount < domain.MaxActiveInterests && listing.Status == domain.ListingQueueFull:
		event = domain.ListingEventReopen
	default:
		return nil
	}

	next, err := s.listingV.Apply(ctx, listing.Status, event)
	if err != nil {
		return err
	}
	listing.Status = next
	if err := s.listings.Update(ctx, listing); err != nil {
		return fmt.Errorf("updating listing status: %w", err)
	}
	return nil
}

// ExpireDueListings expires every visible listing whose expiry time has
// passed, along with all of its open interests. No promotion happens;
// the listing itself is gone. Failures are isolated per listing so one
// bad row does not abort the sweep. Returns the number expired.
func (s *LifecycleService) ExpireDueListings(ctx context.Context, now time.Time) (int, error) {
	due, err := s.listings.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("listing due listings: %w", err)
	}

	expired := 0
	for _, listing := range due {
		if err := s.expireListing(ctx, listing); err != nil {
			s.logger.ErrorContext(ctx, "expiring listing failed",
				"listing_id", listing.ID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *LifecycleService) expireListing(ctx context.Context, listing domain.Listing) error {
	return s.tx.InListing(ctx, listing.ID, func(ctx context.Context) error {
		next, err := s.listingV.Apply(ctx, listing.Status, domain.ListingEventExpire)
		if err != nil {
			return err
		}
		listing.Status = next
		if err := s.listings.Update(ctx, listing); err != nil {
			return fmt.Errorf("expiring listing: %w", err)
		}

		open, err := s.interests.ListOpenByListing(ctx, listing.ID)
		if err != nil {
			return fmt.Errorf("listing open interests: %w", err)
		}
		for _, in := range open {
			status, err := s.interestV.Apply(ctx, in.Status, domain.InterestEventExpire)
			if err != nil {
				return err
			}
			in.Status = status
			if err := s.interests.Update(ctx, in); err != nil {
				return fmt.Errorf("expiring interest %s: %w", in.ID, err)
			}
			s.notify(ctx, domain.Notification{
				UserID: in.TenantID,
				Type:   domain.NotifyListingExpired,
				Data:   map[string]string{"listing_id": listing.ID},
			})
		}

		s.notify(ctx, domain.Notification{
			UserID: listing.OwnerID,
			Type:   domain.NotifyListingExpired,
			Data:   map[string]string{"listing_id": listing.ID},
		})
		return nil
	})
}

// Renew extends an active listing or revives an expired one for another
// term. Reviving moves the listing's expired interests back to waiting,
// never straight to active: former slot holders rejoin through the
// normal promotion path as slots free up.
func (s *LifecycleService) Renew(ctx context.Context, listingID, actorID string, now time.Time) (domain.Listing, error) {
	var renewed domain.Listing

	err := s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if listing.OwnerID != actorID {
			return &domain.NotEligibleError{Reason: domain.ReasonNotOwner}
		}
		if listing.Status != domain.ListingActive && listing.Status != domain.ListingExpired {
			return &domain.NotEligibleError{Reason: domain.ReasonNotRenewable}
		}

		wasExpired := listing.Status == domain.ListingExpired
		if wasExpired {
			next, err := s.listingV.Apply(ctx, listing.Status, domain.ListingEventRenew)
			if err != nil {
				return err
			}
			listing.Status = next
		}
		expires := now.Add(domain.ListingTTL)
		listing.ExpiresAt = &expires

		if err := s.listings.Update(ctx, listing); err != nil {
			return fmt.Errorf("renewing listing: %w", err)
		}

		if wasExpired {
			if err := s.requeueExpired(ctx, listing.ID); err != nil {
				return err
			}
		}

		renewed = listing
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return renewed, nil
}

func (s *LifecycleService) requeueExpired(ctx context.Context, listingID string) error {
	stale, err := s.interests.ListByListingStatus(ctx, listingID, domain.InterestExpired)
	if err != nil {
		return fmt.Errorf("listing expired interests: %w", err)
	}
	for _, in := range stale {
		status, err := s.interestV.Apply(ctx, in.Status, domain.InterestEventRequeue)
		if err != nil {
			return err
		}
		in.Status = status
		if err := s.interests.Update(ctx, in); err != nil {
			return fmt.Errorf("requeueing interest %s: %w", in.ID, err)
		}
	}
	return nil
}

func (s *LifecycleService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"user_id", n.UserID,
			"type", string(n.Type),
			"error", err,
		)
	}
}
