package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riversqlite"
	"github.com/riverqueue/river/rivermigrate"
)

// Sweep cadence. Expiry is cheap and time-sensitive; the batch wish
// sweep is a safety net behind the publish-time match jobs.
const (
	expireSweepInterval = 10 * time.Minute
	wishSweepInterval   = time.Hour
)

// Setup creates a River client with all workers registered and runs
// River's internal migrations. The returned Services must have its
// fields assigned before client.Start(); the caller also owns
// client.Stop() for graceful shutdown.
func Setup(ctx context.Context, db *sql.DB) (*Client, *Services, error) {
	driver := riversqlite.New(db)

	// Run River's own migrations (creates river_job, river_leader, etc.).
	// These are separate from the app's goose migrations.
	migrator, err := rivermigrate.New(driver, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("creating river migrator: %w", err)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		return nil, nil, fmt.Errorf("running river migrations: %w", err)
	}

	services := &Services{}

	workers := river.NewWorkers()
	river.AddWorker(workers, &NotificationWorker{})
	river.AddWorker(workers, &ExpireSweepWorker{services: services})
	river.AddWorker(workers, &WishSweepWorker{services: services})
	river.AddWorker(workers, &ListingMatchWorker{services: services})

	client, err := river.NewClient(driver, &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 2},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(expireSweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return ExpireSweepArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
			river.NewPeriodicJob(
				river.PeriodicInterval(wishSweepInterval),
				func() (river.JobArgs, *river.InsertOpts) {
					return WishSweepArgs{}, nil
				},
				nil,
			),
		},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("creating river client: %w", err)
	}

	return client, services, nil
}
