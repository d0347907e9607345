package domain

// Engagement score contributions. The score orders waitlist promotion
// only; it is computed once when an interest is created and never
// recalculated, so the queue reflects the applicant's standing at the
// moment they joined.
const (
	scoreBudgetSet      = 10
	scoreContractSet    = 10
	scoreLanguagesSet   = 5
	scoreGuarantor      = 15
	scoreIdentity       = 10
	scoreVerified       = 20
	scorePerBooking     = 5
	scoreBookingsCap    = 25
	scorePerMessage     = 1
	scoreMessagesCap    = 10
)

// EngagementScore computes a tenant's engagement score from profile
// completeness and activity signals. Deterministic, no side effects.
func EngagementScore(p TenantProfile) int {
	score := 0
	if p.BudgetMinEUR > 0 || p.BudgetMaxEUR > 0 {
		score += scoreBudgetSet
	}
	if p.ContractType != "" {
		score += scoreContractSet
	}
	if len(p.Languages) > 0 {
		score += scoreLanguagesSet
	}
	if p.HasGuarantor {
		score += scoreGuarantor
	}
	if p.Name != "" && p.Bio != "" {
		score += scoreIdentity
	}
	if p.Verified {
		score += scoreVerified
	}
	score += capped(p.CompletedBookings*scorePerBooking, scoreBookingsCap)
	score += capped(p.RecentMessages*scorePerMessage, scoreMessagesCap)
	return score
}

func capped(v, limit int) int {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
