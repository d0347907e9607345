package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// InterestRepo implements domain.InterestRepository.
type InterestRepo struct {
	s *Store
}

// Compile-time check: InterestRepo implements domain.InterestRepository.
var _ domain.InterestRepository = (*InterestRepo)(nil)

const interestColumns = `id, listing_id, tenant_id, group_id, status, position, score, created_at, updated_at`

func (r *InterestRepo) Create(ctx context.Context, in domain.Interest) error {
	_, err := r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO interests (`+interestColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.ListingID, in.TenantID, in.GroupID, string(in.Status),
		in.Position, in.Score, formatTime(in.CreatedAt), formatTime(in.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting interest: %w", err)
	}
	return nil
}

func (r *InterestRepo) Update(ctx context.Context, in domain.Interest) error {
	result, err := r.s.q(ctx).ExecContext(ctx,
		`UPDATE interests SET status = ?, position = ?, updated_at = ? WHERE id = ?`,
		string(in.Status), in.Position, formatTime(time.Now()), in.ID,
	)
	if err != nil {
		return fmt.Errorf("updating interest: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrInterestNotFound
	}
	return nil
}

func (r *InterestRepo) FindOpenSolo(ctx context.Context, listingID, tenantID string) (domain.Interest, error) {
	return scanInterest(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE listing_id = ? AND tenant_id = ? AND group_id = ''
		   AND status IN ('active', 'waiting')`,
		listingID, tenantID,
	))
}

func (r *InterestRepo) FindOpenGroup(ctx context.Context, listingID, groupID string) (domain.Interest, error) {
	return scanInterest(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE listing_id = ? AND group_id = ?
		   AND status IN ('active', 'waiting')`,
		listingID, groupID,
	))
}

func (r *InterestRepo) CountByStatus(ctx context.Context, listingID string, status domain.InterestStatus) (int, error) {
	var n int
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interests WHERE listing_id = ? AND status = ?`,
		listingID, string(status),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting interests: %w", err)
	}
	return n, nil
}

func (r *InterestRepo) CountOpenByTenant(ctx context.Context, tenantID string) (int, error) {
	var n int
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM interests
		 WHERE tenant_id = ? AND status IN ('active', 'waiting')`,
		tenantID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting tenant interests: %w", err)
	}
	return n, nil
}

func (r *InterestRepo) MaxPosition(ctx context.Context, listingID string) (int, error) {
	var n int
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) FROM interests
		 WHERE listing_id = ? AND status IN ('active', 'waiting')`,
		listingID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reading max position: %w", err)
	}
	return n, nil
}

// NextWaiting picks the promotion candidate: highest engagement score
// first, earliest submission breaking ties.
func (r *InterestRepo) NextWaiting(ctx context.Context, listingID string) (domain.Interest, error) {
	return scanInterest(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE listing_id = ? AND status = 'waiting'
		 ORDER BY score DESC, created_at ASC, position ASC
		 LIMIT 1`,
		listingID,
	))
}

func (r *InterestRepo) ListOpenByListing(ctx context.Context, listingID string) ([]domain.Interest, error) {
	return r.list(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE listing_id = ? AND status IN ('active', 'waiting')
		 ORDER BY position ASC`,
		listingID,
	)
}

func (r *InterestRepo) ListOpenByGroup(ctx context.Context, groupID string) ([]domain.Interest, error) {
	return r.list(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE group_id = ? AND status IN ('active', 'waiting')
		 ORDER BY created_at ASC`,
		groupID,
	)
}

func (r *InterestRepo) ListByListingStatus(ctx context.Context, listingID string, status domain.InterestStatus) ([]domain.Interest, error) {
	return r.list(ctx,
		`SELECT `+interestColumns+` FROM interests
		 WHERE listing_id = ? AND status = ?
		 ORDER BY position ASC`,
		listingID, string(status),
	)
}

func (r *InterestRepo) list(ctx context.Context, query string, args ...any) ([]domain.Interest, error) {
	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing interests: %w", err)
	}
	defer rows.Close()

	var out []domain.Interest
	for rows.Next() {
		in, err := scanInterestRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func scanInterest(row *sql.Row) (domain.Interest, error) {
	in, err := scanInterestRow(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Interest{}, domain.ErrInterestNotFound
	}
	return in, err
}

func scanInterestRow(scan func(dest ...any) error) (domain.Interest, error) {
	var in domain.Interest
	var status, createdAt, updatedAt string

	if err := scan(&in.ID, &in.ListingID, &in.TenantID, &in.GroupID, &status,
		&in.Position, &in.Score, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Interest{}, err
		}
		return domain.Interest{}, fmt.Errorf("scanning interest: %w", err)
	}

	in.Status = domain.InterestStatus(status)
	in.CreatedAt = parseTime(createdAt)
	in.UpdatedAt = parseTime(updatedAt)
	return in, nil
}
