package domain

import "time"

// ListingTTL is how long a published or renewed listing stays live.
const ListingTTL = 30 * 24 * time.Hour

// ListingStatus represents the lifecycle state of a listing.
type ListingStatus string

const (
	ListingDraft     ListingStatus = "draft"
	ListingActive    ListingStatus = "active"
	ListingQueueFull ListingStatus = "queue_full"
	ListingPaused    ListingStatus = "paused"
	ListingExpired   ListingStatus = "expired"
	ListingRented    ListingStatus = "rented"
	ListingArchived  ListingStatus = "archived"
)

// ListingEvent represents an action that triggers a listing transition.
type ListingEvent string

const (
	ListingEventPublish ListingEvent = "publish"
	ListingEventFill    ListingEvent = "fill"
	ListingEventReopen  ListingEvent = "reopen"
	ListingEventPause   ListingEvent = "pause"
	ListingEventResume  ListingEvent = "resume"
	ListingEventExpire  ListingEvent = "expire"
	ListingEventRenew   ListingEvent = "renew"
	ListingEventRent    ListingEvent = "rent"
	ListingEventArchive ListingEvent = "archive"
)

// ListingTransition defines a valid listing state change.
type ListingTransition struct {
	Event ListingEvent
	Src   ListingStatus
	Dst   ListingStatus
}

// ListingTransitions defines all valid listing state changes.
// "active" and "queue_full" are the two visible states; "fill" and
// "reopen" are driven exclusively by queue occupancy.
var ListingTransitions = []ListingTransition{
	{Event: ListingEventPublish, Src: ListingDraft, Dst: ListingActive},
	{Event: ListingEventFill, Src: ListingActive, Dst: ListingQueueFull},
	{Event: ListingEventReopen, Src: ListingQueueFull, Dst: ListingActive},
	{Event: ListingEventPause, Src: ListingActive, Dst: ListingPaused},
	{Event: ListingEventResume, Src: ListingPaused, Dst: ListingActive},
	{Event: ListingEventExpire, Src: ListingActive, Dst: ListingExpired},
	{Event: ListingEventExpire, Src: ListingQueueFull, Dst: ListingExpired},
	{Event: ListingEventRenew, Src: ListingExpired, Dst: ListingActive},
	{Event: ListingEventRent, Src: ListingActive, Dst: ListingRented},
	{Event: ListingEventRent, Src: ListingQueueFull, Dst: ListingRented},
	{Event: ListingEventArchive, Src: ListingRented, Dst: ListingArchived},
	{Event: ListingEventArchive, Src: ListingExpired, Dst: ListingArchived},
}

// Listing is the lifecycle-relevant subset of a room listing.
type Listing struct {
	ID           string
	OwnerID      string
	Title        string
	City         string
	Neighborhood string
	PriceEUR     int
	RoomType     string
	RoomSizeSqm  int
	Features     []string
	Status       ListingStatus
	ExpiresAt    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewListing creates a listing in the initial "draft" state.
func NewListing(id, ownerID, title, city, neighborhood, roomType string, priceEUR, roomSizeSqm int, features []string) Listing {
	now := time.Now().UTC()
	return Listing{
		ID:           id,
		OwnerID:      ownerID,
		Title:        title,
		City:         city,
		Neighborhood: neighborhood,
		PriceEUR:     priceEUR,
		RoomType:     roomType,
		RoomSizeSqm:  roomSizeSqm,
		Features:     features,
		Status:       ListingDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Accepting reports whether new interest can be expressed on the listing.
// A queue-full listing still accepts waitlist entries.
func (l Listing) Accepting() bool {
	return l.Status == ListingActive || l.Status == ListingQueueFull
}

// Due reports whether the listing's expiry time has passed.
func (l Listing) Due(now time.Time) bool {
	return l.ExpiresAt != nil && !l.ExpiresAt.After(now)
}
