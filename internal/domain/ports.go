package domain

import (
	"context"
	"time"
)

// InterestRepository defines the persistence contract for interests.
type InterestRepository interface {
	Create(ctx context.Context, interest Interest) error
	Update(ctx context.Context, interest Interest) error
	// FindOpenSolo returns the tenant's non-terminal solo interest on
	// the listing, or ErrInterestNotFound.
	FindOpenSolo(ctx context.Context, listingID, tenantID string) (Interest, error)
	// FindOpenGroup returns the group's non-terminal interest on the
	// listing, or ErrInterestNotFound.
	FindOpenGroup(ctx context.Context, listingID, groupID string) (Interest, error)
	CountByStatus(ctx context.Context, listingID string, status InterestStatus) (int, error)
	CountOpenByTenant(ctx context.Context, tenantID string) (int, error)
	// MaxPosition returns the highest position among the listing's
	// non-terminal interests, 0 when there are none.
	MaxPosition(ctx context.Context, listingID string) (int, error)
	// NextWaiting returns the best waiting interest for promotion,
	// ordered by score descending then created_at ascending, or
	// ErrInterestNotFound when nobody is waiting.
	NextWaiting(ctx context.Context, listingID string) (Interest, error)
	ListOpenByListing(ctx context.Context, listingID string) ([]Interest, error)
	ListOpenByGroup(ctx context.Context, groupID string) ([]Interest, error)
	ListByListingStatus(ctx context.Context, listingID string, status InterestStatus) ([]Interest, error)
}

// ListingRepository defines the persistence contract for listings.
type ListingRepository interface {
	Create(ctx context.Context, listing Listing) error
	GetByID(ctx context.Context, id string) (Listing, error)
	Update(ctx context.Context, listing Listing) error
	// ListDue returns visible listings whose expiry time has passed.
	ListDue(ctx context.Context, now time.Time) ([]Listing, error)
	// ListAccepting returns listings in the active or queue_full state.
	ListAccepting(ctx context.Context) ([]Listing, error)
}

// GroupRepository defines the persistence contract for housemate
// groups and their memberships.
type GroupRepository interface {
	Create(ctx context.Context, group HousemateGroup) error
	GetByID(ctx context.Context, id string) (HousemateGroup, error)
	Update(ctx context.Context, group HousemateGroup) error
	Delete(ctx context.Context, id string) error
	AddMember(ctx context.Context, membership GroupMembership) error
	UpdateMember(ctx context.Context, membership GroupMembership) error
	RemoveMember(ctx context.Context, groupID, tenantID string) error
	// GetMember returns the membership record, or ErrMemberNotFound.
	GetMember(ctx context.Context, groupID, tenantID string) (GroupMembership, error)
	// ListMembers returns memberships ordered by joined_at ascending.
	ListMembers(ctx context.Context, groupID string) ([]GroupMembership, error)
	CountAccepted(ctx context.Context, groupID string) (int, error)
}

// WishRepository defines the persistence contract for saved searches.
type WishRepository interface {
	Create(ctx context.Context, wish Wish) error
	GetByID(ctx context.Context, id string) (Wish, error)
	Update(ctx context.Context, wish Wish) error
	ListActive(ctx context.Context) ([]Wish, error)
	ListByTenant(ctx context.Context, tenantID string) ([]Wish, error)
}

// TenantRepository provides read access to applicant profiles.
type TenantRepository interface {
	GetByID(ctx context.Context, id string) (TenantProfile, error)
}

// Notification carries everything the dispatcher needs to reach a user.
type Notification struct {
	UserID string
	Type   NotificationType
	Data   map[string]string
}

// NotificationType identifies what happened, for routing and copy.
type NotificationType string

const (
	NotifyNewInterest    NotificationType = "queue.new_interest"
	NotifyPromoted       NotificationType = "queue.promoted"
	NotifyListingExpired NotificationType = "listing.expired"
	NotifyGroupInvite    NotificationType = "group.invite"
	NotifyInviteAnswered NotificationType = "group.invite_answered"
	NotifyGroupApplied   NotificationType = "group.applied"
	NotifyWishMatch      NotificationType = "wish.match"
)

// Notifier defines the contract for dispatching user notifications.
// Delivery is fire-and-forget: callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// MatchScheduler requests asynchronous wish matching for a listing,
// typically right after publication.
type MatchScheduler interface {
	ScheduleListingMatch(ctx context.Context, listingID string) error
}

// InterestTransitionValidator checks interest status transitions.
type InterestTransitionValidator interface {
	Apply(ctx context.Context, current InterestStatus, event InterestEvent) (InterestStatus, error)
}

// ListingTransitionValidator checks listing status transitions.
type ListingTransitionValidator interface {
	Apply(ctx context.Context, current ListingStatus, event ListingEvent) (ListingStatus, error)
}

// TxRunner scopes a function to one listing's queue as a single atomic
// unit. Concurrent mutations of the same listing serialize here, which
// is what keeps the count-then-admit and withdraw-then-promote
// sequences free of lost updates.
type TxRunner interface {
	InListing(ctx context.Context, listingID string, fn func(ctx context.Context) error) error
}
