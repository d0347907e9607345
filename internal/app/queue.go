package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// AdmissionService is the authoritative state machine for who holds one
// of the listing's active slots and who is waiting behind them.
type AdmissionService struct {
	interests domain.InterestRepository
	listings  domain.ListingRepository
	tenants   domain.TenantRepository
	groups    domain.GroupRepository
	tx        domain.TxRunner
	validator domain.InterestTransitionValidator
	gate      *LifecycleService
	notifier  domain.Notifier
	logger    *slog.Logger
}

// NewAdmissionService creates the queue service with the given adapters.
func NewAdmissionService(
	interests domain.InterestRepository,
	listings domain.ListingRepository,
	tenants domain.TenantRepository,
	groups domain.GroupRepository,
	tx domain.TxRunner,
	validator domain.InterestTransitionValidator,
	gate *LifecycleService,
	notifier domain.Notifier,
	logger *slog.Logger,
) *AdmissionService {
	return &AdmissionService{
		interests: interests,
		listings:  listings,
		tenants:   tenants,
		groups:    groups,
		tx:        tx,
		validator: validator,
		gate:      gate,
		notifier:  notifier,
		logger:    logger,
	}
}

// QueueStatus is the read model consumed by the routing/UI layer.
type QueueStatus struct {
	CanExpress     bool
	QueueFull      bool
	ActiveCount    int
	WaitingCount   int
	CallerInterest *domain.Interest
}

// ExpressInterest enqueues a solo application for the tenant. Group
// applications go through GroupService.Apply, which validates the group
// preconditions before delegating here.
func (s *AdmissionService) ExpressInterest(ctx context.Context, listingID, tenantID string) (domain.Interest, error) {
	return s.expressInterest(ctx, listingID, tenantID, "")
}

// expressInterest runs the count-then-admit sequence inside the
// per-listing transaction. groupID is empty for solo applications.
func (s *AdmissionService) expressInterest(ctx context.Context, listingID, tenantID, groupID string) (domain.Interest, error) {
	var created domain.Interest

	err := s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}
		if !listing.Accepting() {
			return &domain.NotEligibleError{Reason: domain.ReasonNotAccepting}
		}
		if listing.OwnerID == tenantID {
			return &domain.NotEligibleError{Reason: domain.ReasonOwnListing}
		}

		profile, err := s.tenants.GetByID(ctx, tenantID)
		if err != nil && !errors.Is(err, domain.ErrTenantNotFound) {
			return fmt.Errorf("loading tenant profile: %w", err)
		}
		if profile.Blocked {
			return &domain.NotEligibleError{Reason: domain.ReasonBlocked}
		}

		open, err := s.interests.CountOpenByTenant(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("counting tenant interests: %w", err)
		}
		if open >= domain.MaxOpenInterestsPerTenant {
			return &domain.NotEligibleError{Reason: domain.ReasonInterestLimit}
		}

		if err := s.checkDuplicate(ctx, listingID, tenantID, groupID); err != nil {
			return err
		}

		active, err := s.interests.CountByStatus(ctx, listingID, domain.InterestActive)
		if err != nil {
			return fmt.Errorf("counting active interests: %w", err)
		}
		if active > domain.MaxActiveInterests {
			return &domain.CapacityError{ListingID: listingID, ActiveCount: active}
		}

		maxPos, err := s.interests.MaxPosition(ctx, listingID)
		if err != nil {
			return fmt.Errorf("reading max position: %w", err)
		}

		status := domain.InterestActive
		if active >= domain.MaxActiveInterests {
			status = domain.InterestWaiting
		}

		id, err := generateID()
		if err != nil {
			return fmt.Errorf("generating interest id: %w", err)
		}

		created = domain.NewInterest(id, listingID, tenantID, groupID, status, maxPos+1, domain.EngagementScore(profile))
		if err := s.interests.Create(ctx, created); err != nil {
			return fmt.Errorf("creating interest: %w", err)
		}

		if status == domain.InterestActive {
			if err := s.gate.OnActiveCountChanged(ctx, listingID, active+1); err != nil {
				return fmt.Errorf("updating listing occupancy: %w", err)
			}
		}

		s.notify(ctx, domain.Notification{
			UserID: listing.OwnerID,
			Type:   domain.NotifyNewInterest,
			Data: map[string]string{
				"listing_id":  listingID,
				"interest_id": created.ID,
				"status":      string(created.Status),
			},
		})
		return nil
	})
	if err != nil {
		return domain.Interest{}, err
	}
	return created, nil
}

func (s *AdmissionService) checkDuplicate(ctx context.Context, listingID, tenantID, groupID string) error {
	var err error
	applicant := tenantID
	if groupID != "" {
		applicant = groupID
		_, err = s.interests.FindOpenGroup(ctx, listingID, groupID)
	} else {
		_, err = s.interests.FindOpenSolo(ctx, listingID, tenantID)
	}
	if err == nil {
		return &domain.AlreadyAppliedError{ListingID: listingID, ApplicantID: applicant}
	}
	if errors.Is(err, domain.ErrInterestNotFound) {
		return nil
	}
	return fmt.Errorf("checking for open interest: %w", err)
}

// Withdraw removes the tenant's solo interest from the listing's queue,
// promoting the best waiting interest if an active slot was freed.
func (s *AdmissionService) Withdraw(ctx context.Context, listingID, tenantID string) error {
	return s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		in, err := s.interests.FindOpenSolo(ctx, listingID, tenantID)
		if err != nil {
			return err
		}
		return s.withdraw(ctx, in)
	})
}

// WithdrawGroup removes a group's interest from the listing's queue.
// Used both for explicit group withdrawal and the membership cascade.
func (s *AdmissionService) WithdrawGroup(ctx context.Context, listingID, groupID string) error {
	return s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		in, err := s.interests.FindOpenGroup(ctx, listingID, groupID)
		if err != nil {
			return err
		}
		return s.withdraw(ctx, in)
	})
}

// withdraw marks the interest withdrawn and, when it held an active
// slot, promotes the best waiting interest into the vacated position.
// Must run inside the listing's transaction.
func (s *AdmissionService) withdraw(ctx context.Context, in domain.Interest) error {
	wasActive := in.Status == domain.InterestActive
	freedPos := in.Position

	next, err := s.validator.Apply(ctx, in.Status, domain.InterestEventWithdraw)
	if err != nil {
		return err
	}
	in.Status = next
	if err := s.interests.Update(ctx, in); err != nil {
		return fmt.Errorf("withdrawing interest: %w", err)
	}

	if wasActive {
		if err := s.promoteInto(ctx, in.ListingID, freedPos); err != nil {
			return err
		}
	}

	active, err := s.interests.CountByStatus(ctx, in.ListingID, domain.InterestActive)
	if err != nil {
		return fmt.Errorf("counting active interests: %w", err)
	}
	return s.gate.OnActiveCountChanged(ctx, in.ListingID, active)
}

// promoteInto moves the best waiting interest into an active slot,
// inheriting the vacated position so the displayed ordinal sequence
// stays stable. Higher score wins, ties broken by first-come.
func (s *AdmissionService) promoteInto(ctx context.Context, listingID string, position int) error {
	candidate, err := s.interests.NextWaiting(ctx, listingID)
	if errors.Is(err, domain.ErrInterestNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("selecting promotion candidate: %w", err)
	}

	next, err := s.validator.Apply(ctx, candidate.Status, domain.InterestEventPromote)
	if err != nil {
		return err
	}
	candidate.Status = next
	candidate.Position = position
	if err := s.interests.Update(ctx, candidate); err != nil {
		return fmt.Errorf("promoting interest: %w", err)
	}

	s.notify(ctx, domain.Notification{
		UserID: candidate.TenantID,
		Type:   domain.NotifyPromoted,
		Data: map[string]string{
			"listing_id":  listingID,
			"interest_id": candidate.ID,
			"position":    fmt.Sprintf("%d", candidate.Position),
		},
	})
	return nil
}

// Status returns the queue read model for a listing. callerID may be
// empty for anonymous reads.
func (s *AdmissionService) Status(ctx context.Context, listingID, callerID string) (QueueStatus, error) {
	var status QueueStatus

	// Reads go through the same per-listing scope so a half-applied
	// withdraw/promote pair is never observable.
	err := s.tx.InListing(ctx, listingID, func(ctx context.Context) error {
		listing, err := s.listings.GetByID(ctx, listingID)
		if err != nil {
			return err
		}

		active, err := s.interests.CountByStatus(ctx, listingID, domain.InterestActive)
		if err != nil {
			return fmt.Errorf("counting active interests: %w", err)
		}
		waiting, err := s.interests.CountByStatus(ctx, listingID, domain.InterestWaiting)
		if err != nil {
			return fmt.Errorf("counting waiting interests: %w", err)
		}

		status.ActiveCount = active
		status.WaitingCount = waiting
		status.QueueFull = listing.Status == domain.ListingQueueFull
		status.CanExpress = listing.Accepting() && listing.OwnerID != callerID

		if callerID != "" {
			in, err := s.interests.FindOpenSolo(ctx, listingID, callerID)
			switch {
			case err == nil:
				status.CallerInterest = &in
				status.CanExpress = false
			case !errors.Is(err, domain.ErrInterestNotFound):
				return fmt.Errorf("loading caller interest: %w", err)
			default:
				// No solo interest; the caller's group may hold one.
				groupIn, err := s.callerGroupInterest(ctx, listingID, callerID)
				if err != nil {
					return err
				}
				if groupIn != nil {
					status.CallerInterest = groupIn
					status.CanExpress = false
				}
			}
		}
		return nil
	})
	if err != nil {
		return QueueStatus{}, err
	}
	return status, nil
}

// callerGroupInterest finds an open group interest on the listing
// whose group counts the caller as an accepted member.
func (s *AdmissionService) callerGroupInterest(ctx context.Context, listingID, callerID string) (*domain.Interest, error) {
	open, err := s.interests.ListOpenByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("listing open interests: %w", err)
	}
	for _, in := range open {
		if !in.IsGroup() {
			continue
		}
		member, err := s.groups.GetMember(ctx, in.GroupID, callerID)
		if errors.Is(err, domain.ErrMemberNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("loading group membership: %w", err)
		}
		if member.Status != domain.MembershipAccepted {
			continue
		}
		found := in
		return &found, nil
	}
	return nil, nil
}

// notify dispatches fire-and-forget; delivery failures are logged, not
// propagated, so a queue mutation never fails on notification plumbing.
func (s *AdmissionService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"user_id", n.UserID,
			"type", string(n.Type),
			"error", err,
		)
	}
}
