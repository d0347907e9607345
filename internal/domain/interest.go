package domain

import "time"

// MaxActiveInterests is the number of concurrent active slots per listing.
const MaxActiveInterests = 3

// MaxOpenInterestsPerTenant caps non-terminal interests a tenant may hold
// across manual applications and wish auto-applications combined.
const MaxOpenInterestsPerTenant = 8

// InterestStatus represents the lifecycle state of an interest.
type InterestStatus string

const (
	InterestActive    InterestStatus = "active"
	InterestWaiting   InterestStatus = "waiting"
	InterestWithdrawn InterestStatus = "withdrawn"
	InterestExpired   InterestStatus = "expired"
)

// InterestEvent represents an action that triggers an interest transition.
type InterestEvent string

const (
	InterestEventPromote  InterestEvent = "promote"
	InterestEventWithdraw InterestEvent = "withdraw"
	InterestEventExpire   InterestEvent = "expire"
	InterestEventRequeue  InterestEvent = "requeue"
)

// InterestTransition defines a valid interest state change.
type InterestTransition struct {
	Event InterestEvent
	Src   InterestStatus
	Dst   InterestStatus
}

// InterestTransitions defines all valid interest state changes.
// Interests are created directly in "active" or "waiting" depending on
// slot availability; "withdrawn" is final, and "expired" can only be
// left through "requeue" when the listing is renewed.
var InterestTransitions = []InterestTransition{
	{Event: InterestEventPromote, Src: InterestWaiting, Dst: InterestActive},
	{Event: InterestEventWithdraw, Src: InterestActive, Dst: InterestWithdrawn},
	{Event: InterestEventWithdraw, Src: InterestWaiting, Dst: InterestWithdrawn},
	{Event: InterestEventExpire, Src: InterestActive, Dst: InterestExpired},
	{Event: InterestEventExpire, Src: InterestWaiting, Dst: InterestExpired},
	{Event: InterestEventRequeue, Src: InterestExpired, Dst: InterestWaiting},
}

// Interest is one applicant's claim on a listing. A solo application has
// an empty GroupID; a group application carries the group's id and the
// representative applicant's tenant id.
type Interest struct {
	ID        string
	ListingID string
	TenantID  string
	GroupID   string
	Status    InterestStatus
	Position  int
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewInterest creates an interest with its queue-assigned status, position,
// and the engagement score frozen at enqueue time.
func NewInterest(id, listingID, tenantID, groupID string, status InterestStatus, position, score int) Interest {
	now := time.Now().UTC()
	return Interest{
		ID:        id,
		ListingID: listingID,
		TenantID:  tenantID,
		GroupID:   groupID,
		Status:    status,
		Position:  position,
		Score:     score,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsGroup reports whether the interest was filed on behalf of a group.
func (i Interest) IsGroup() bool { return i.GroupID != "" }

// Open reports whether the interest still occupies or contends for a slot.
func (i Interest) Open() bool {
	return i.Status == InterestActive || i.Status == InterestWaiting
}
