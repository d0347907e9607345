package river

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/stanzaq/internal/adapter/sqlite"
	"github.com/neomorfeo/stanzaq/internal/domain"
)

// Compile-time check: Notifier implements domain.Notifier.
var _ domain.Notifier = (*Notifier)(nil)

// NotificationJobArgs carries one user notification into the queue.
// River serializes this as JSON into its job table; the worker owns
// delivery (and its retries), so callers never block on it.
type NotificationJobArgs struct {
	UserID string            `json:"user_id"`
	Type   string            `json:"type"`
	Data   map[string]string `json:"data,omitempty"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (NotificationJobArgs) Kind() string { return "notification.dispatch" }

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Notifier implements the notification port by enqueuing River jobs.
type Notifier struct {
	client *Client
}

// NewNotifier creates a notifier backed by the given River client.
func NewNotifier(client *Client) *Notifier {
	return &Notifier{client: client}
}

// Notify enqueues the notification for asynchronous delivery. Inside
// a listing transaction the job is inserted through that transaction:
// the database allows one connection, so a plain Insert would wait on
// the connection the caller holds, and joining the transaction also
// means a rolled-back mutation enqueues nothing.
func (n *Notifier) Notify(ctx context.Context, notification domain.Notification) error {
	args := NotificationJobArgs{
		UserID: notification.UserID,
		Type:   string(notification.Type),
		Data:   notification.Data,
	}

	var err error
	if tx, ok := sqlite.TxFromContext(ctx); ok {
		_, err = n.client.InsertTx(ctx, tx, args, nil)
	} else {
		_, err = n.client.Insert(ctx, args, nil)
	}
	if err != nil {
		return fmt.Errorf("enqueuing notification job: %w", err)
	}
	return nil
}
