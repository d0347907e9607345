package river

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/stanzaq/internal/app"
)

// Services carries the app services the sweep workers call. Its fields
// are assigned after the River client is built: the services depend on
// the client (through the notifier and scheduler), so the workers get
// a pointer that main fills in before Start.
type Services struct {
	Lifecycle *app.LifecycleService
	Wishes    *app.WishService
}

var errNotBound = errors.New("river services not bound before start")

// NotificationWorker processes notification dispatch jobs. It logs the
// delivery; hooking in the push/email gateway is the concrete followup
// once the platform's dispatcher endpoint is available.
// TODO: call the notification gateway instead of logging.
type NotificationWorker struct {
	river.WorkerDefaults[NotificationJobArgs]
}

// Work processes a single notification job.
func (w *NotificationWorker) Work(ctx context.Context, job *river.Job[NotificationJobArgs]) error {
	slog.InfoContext(ctx, "dispatching notification",
		"user_id", job.Args.UserID,
		"type", job.Args.Type,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return nil
}

// ExpireSweepWorker runs the listing expiry sweep.
type ExpireSweepWorker struct {
	river.WorkerDefaults[ExpireSweepArgs]

	services *Services
}

// Work expires every due listing and its open interests.
func (w *ExpireSweepWorker) Work(ctx context.Context, job *river.Job[ExpireSweepArgs]) error {
	if w.services.Lifecycle == nil {
		return errNotBound
	}
	expired, err := w.services.Lifecycle.ExpireDueListings(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "expiry sweep finished",
		"expired", expired,
		"job_id", job.ID,
	)
	return nil
}

// WishSweepWorker runs the batch wish-match sweep.
type WishSweepWorker struct {
	river.WorkerDefaults[WishSweepArgs]

	services *Services
}

// Work re-evaluates all active wishes against accepting listings.
func (w *WishSweepWorker) Work(ctx context.Context, job *river.Job[WishSweepArgs]) error {
	if w.services.Wishes == nil {
		return errNotBound
	}
	created, err := w.services.Wishes.BatchMatch(ctx)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "wish sweep finished",
		"interests_created", created,
		"job_id", job.ID,
	)
	return nil
}

// ListingMatchWorker matches wishes against one listing, enqueued on
// publication.
type ListingMatchWorker struct {
	river.WorkerDefaults[ListingMatchArgs]

	services *Services
}

// Work evaluates active wishes against the published listing.
func (w *ListingMatchWorker) Work(ctx context.Context, job *river.Job[ListingMatchArgs]) error {
	if w.services.Wishes == nil {
		return errNotBound
	}
	created, err := w.services.Wishes.MatchListing(ctx, job.Args.ListingID)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "listing matched against wishes",
		"listing_id", job.Args.ListingID,
		"interests_created", created,
		"job_id", job.ID,
	)
	return nil
}
