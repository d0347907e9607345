package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// ListingRepo implements domain.ListingRepository.
type ListingRepo struct {
	s *Store
}

// Compile-time check: ListingRepo implements domain.ListingRepository.
var _ domain.ListingRepository = (*ListingRepo)(nil)

const listingColumns = `id, owner_id, title, city, neighborhood, price_eur, room_type, room_size_sqm, features, status, expires_at, created_at, updated_at`

func (r *ListingRepo) Create(ctx context.Context, l domain.Listing) error {
	features, err := marshalStrings(l.Features)
	if err != nil {
		return err
	}
	_, err = r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OwnerID, l.Title, l.City, l.Neighborhood, l.PriceEUR,
		l.RoomType, l.RoomSizeSqm, features, string(l.Status),
		nullableTime(l.ExpiresAt), formatTime(l.CreatedAt), formatTime(l.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting listing: %w", err)
	}
	return nil
}

func (r *ListingRepo) GetByID(ctx context.Context, id string) (domain.Listing, error) {
	l, err := scanListingRow(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM listings WHERE id = ?`, id,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, err
}

func (r *ListingRepo) Update(ctx context.Context, l domain.Listing) error {
	features, err := marshalStrings(l.Features)
	if err != nil {
		return err
	}
	result, err := r.s.q(ctx).ExecContext(ctx,
		`UPDATE listings
		 SET title = ?, city = ?, neighborhood = ?, price_eur = ?,
		     room_type = ?, room_size_sqm = ?, features = ?, status = ?,
		     expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		l.Title, l.City, l.Neighborhood, l.PriceEUR,
		l.RoomType, l.RoomSizeSqm, features, string(l.Status),
		nullableTime(l.ExpiresAt), formatTime(time.Now()), l.ID,
	)
	if err != nil {
		return fmt.Errorf("updating listing: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrListingNotFound
	}
	return nil
}

func (r *ListingRepo) ListDue(ctx context.Context, now time.Time) ([]domain.Listing, error) {
	return r.list(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE status IN ('active', 'queue_full')
		   AND expires_at IS NOT NULL AND expires_at <= ?
		 ORDER BY expires_at ASC`,
		formatTime(now),
	)
}

func (r *ListingRepo) ListAccepting(ctx context.Context) ([]domain.Listing, error) {
	return r.list(ctx,
		`SELECT `+listingColumns+` FROM listings
		 WHERE status IN ('active', 'queue_full')
		 ORDER BY created_at DESC`,
	)
}

func (r *ListingRepo) list(ctx context.Context, query string, args ...any) ([]domain.Listing, error) {
	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing listings: %w", err)
	}
	defer rows.Close()

	var out []domain.Listing
	for rows.Next() {
		l, err := scanListingRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func scanListingRow(scan func(dest ...any) error) (domain.Listing, error) {
	var l domain.Listing
	var features, status, createdAt, updatedAt string
	var expiresAt sql.NullString

	if err := scan(&l.ID, &l.OwnerID, &l.Title, &l.City, &l.Neighborhood,
		&l.PriceEUR, &l.RoomType, &l.RoomSizeSqm, &features, &status,
		&expiresAt, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Listing{}, err
		}
		return domain.Listing{}, fmt.Errorf("scanning listing: %w", err)
	}

	parsed, err := unmarshalStrings(features)
	if err != nil {
		return domain.Listing{}, err
	}
	l.Features = parsed
	l.Status = domain.ListingStatus(status)
	if expiresAt.Valid {
		t := parseTime(expiresAt.String)
		l.ExpiresAt = &t
	}
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return l, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}
