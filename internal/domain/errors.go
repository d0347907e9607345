package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for simple conditions without extra context.
var (
	ErrListingNotFound  = errors.New("listing not found")
	ErrInterestNotFound = errors.New("interest not found")
	ErrGroupNotFound    = errors.New("group not found")
	ErrMemberNotFound   = errors.New("group member not found")
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrWishNotFound     = errors.New("wish not found")
)

// Eligibility failure reasons surfaced through NotEligibleError.
const (
	ReasonNotAccepting    = "listing is not accepting applications"
	ReasonOwnListing      = "caller owns this listing"
	ReasonBlocked         = "caller is blocked"
	ReasonInterestLimit   = "open interest limit reached"
	ReasonGroupTooSmall   = "group needs at least 2 accepted members"
	ReasonNotInGroup      = "caller is not an accepted member of the group"
	ReasonNotGroupOwner   = "only the group owner may do this"
	ReasonAlreadyMember   = "tenant is already a member or invited"
	ReasonNoPendingInvite = "no pending invite to respond to"
	ReasonNotOwner        = "only the listing owner may do this"
	ReasonNotRenewable    = "only active or expired listings can be renewed"
)

// NotEligibleError is returned when a caller may not perform the
// requested queue operation.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible: %s", e.Reason)
}

// AlreadyAppliedError is returned when the applicant already holds a
// non-terminal interest on the listing.
type AlreadyAppliedError struct {
	ListingID   string
	ApplicantID string
}

func (e *AlreadyAppliedError) Error() string {
	return fmt.Sprintf("applicant %q already has an open interest on listing %q", e.ApplicantID, e.ListingID)
}

// CapacityError reports an active-slot count above the limit. It should
// never surface while queue mutations stay inside per-listing
// transactions; observing one means a lost update, not a user mistake.
type CapacityError struct {
	ListingID   string
	ActiveCount int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("listing %q holds %d active interests, limit is %d", e.ListingID, e.ActiveCount, MaxActiveInterests)
}

// InterestTransitionError is returned when an interest event is not
// valid from the current status.
type InterestTransitionError struct {
	Event   InterestEvent
	Current InterestStatus
}

func (e *InterestTransitionError) Error() string {
	return fmt.Sprintf("interest event %q is not valid from state %q", e.Event, e.Current)
}

// ListingTransitionError is returned when a listing event is not valid
// from the current status.
type ListingTransitionError struct {
	Event   ListingEvent
	Current ListingStatus
}

func (e *ListingTransitionError) Error() string {
	return fmt.Sprintf("listing event %q is not valid from state %q", e.Event, e.Current)
}
