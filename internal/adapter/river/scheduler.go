package river

import (
	"context"
	"fmt"

	"github.com/neomorfeo/stanzaq/internal/adapter/sqlite"
	"github.com/neomorfeo/stanzaq/internal/domain"
)

// Compile-time check: Scheduler implements domain.MatchScheduler.
var _ domain.MatchScheduler = (*Scheduler)(nil)

// ListingMatchArgs requests wish matching for one freshly published
// listing.
type ListingMatchArgs struct {
	ListingID string `json:"listing_id"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ListingMatchArgs) Kind() string { return "wish.match_listing" }

// ExpireSweepArgs triggers the periodic listing expiry sweep.
type ExpireSweepArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (ExpireSweepArgs) Kind() string { return "listing.expire_sweep" }

// WishSweepArgs triggers the periodic batch wish-match sweep.
type WishSweepArgs struct{}

// Kind returns the unique job type identifier used by River's job routing.
func (WishSweepArgs) Kind() string { return "wish.match_sweep" }

// Scheduler implements the match-scheduling port by enqueuing River jobs.
type Scheduler struct {
	client *Client
}

// NewScheduler creates a scheduler backed by the given River client.
func NewScheduler(client *Client) *Scheduler {
	return &Scheduler{client: client}
}

// ScheduleListingMatch enqueues a wish-match job for the listing,
// joining an open listing transaction the same way the notifier does.
func (s *Scheduler) ScheduleListingMatch(ctx context.Context, listingID string) error {
	args := ListingMatchArgs{ListingID: listingID}

	var err error
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		_, err = s.client.InsertTx(ctx, tx, args, nil)
	} else {
		_, err = s.client.Insert(ctx, args, nil)
	}
	if err != nil {
		return fmt.Errorf("enqueuing listing match job: %w", err)
	}
	return nil
}
