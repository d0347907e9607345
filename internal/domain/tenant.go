package domain

import "time"

// TenantProfile is the snapshot of an applicant the engine needs:
// scorer inputs, the moderation block flag, and notification
// preferences. The full tenant record lives with the account service.
type TenantProfile struct {
	ID                string
	Name              string
	Bio               string
	BudgetMinEUR      int
	BudgetMaxEUR      int
	ContractType      string
	Languages         []string
	HasGuarantor      bool
	Verified          bool
	CompletedBookings int
	RecentMessages    int
	Blocked           bool
	WishAlerts        bool
	CreatedAt         time.Time
}
