package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// WishRepo implements domain.WishRepository.
type WishRepo struct {
	s *Store
}

// Compile-time check: WishRepo implements domain.WishRepository.
var _ domain.WishRepository = (*WishRepo)(nil)

const wishColumns = `id, tenant_id, city, neighborhood, price_min, price_max, room_types, min_size_sqm, features, active, created_at`

func (r *WishRepo) Create(ctx context.Context, w domain.Wish) error {
	roomTypes, err := marshalStrings(w.RoomTypes)
	if err != nil {
		return err
	}
	features, err := marshalStrings(w.Features)
	if err != nil {
		return err
	}
	_, err = r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO wishes (`+wishColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.TenantID, w.City, w.Neighborhood, w.PriceMin, w.PriceMax,
		roomTypes, w.MinSizeSqm, features, boolToInt(w.Active), formatTime(w.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting wish: %w", err)
	}
	return nil
}

func (r *WishRepo) GetByID(ctx context.Context, id string) (domain.Wish, error) {
	w, err := scanWishRow(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+wishColumns+` FROM wishes WHERE id = ?`, id,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Wish{}, domain.ErrWishNotFound
	}
	return w, err
}

func (r *WishRepo) Update(ctx context.Context, w domain.Wish) error {
	roomTypes, err := marshalStrings(w.RoomTypes)
	if err != nil {
		return err
	}
	features, err := marshalStrings(w.Features)
	if err != nil {
		return err
	}
	result, err := r.s.q(ctx).ExecContext(ctx,
		`UPDATE wishes
		 SET city = ?, neighborhood = ?, price_min = ?, price_max = ?,
		     room_types = ?, min_size_sqm = ?, features = ?, active = ?
		 WHERE id = ?`,
		w.City, w.Neighborhood, w.PriceMin, w.PriceMax,
		roomTypes, w.MinSizeSqm, features, boolToInt(w.Active), w.ID,
	)
	if err != nil {
		return fmt.Errorf("updating wish: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrWishNotFound
	}
	return nil
}

func (r *WishRepo) ListActive(ctx context.Context) ([]domain.Wish, error) {
	return r.list(ctx,
		`SELECT `+wishColumns+` FROM wishes WHERE active = 1 ORDER BY created_at ASC`,
	)
}

func (r *WishRepo) ListByTenant(ctx context.Context, tenantID string) ([]domain.Wish, error) {
	return r.list(ctx,
		`SELECT `+wishColumns+` FROM wishes WHERE tenant_id = ? ORDER BY created_at ASC`,
		tenantID,
	)
}

func (r *WishRepo) list(ctx context.Context, query string, args ...any) ([]domain.Wish, error) {
	rows, err := r.s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing wishes: %w", err)
	}
	defer rows.Close()

	var out []domain.Wish
	for rows.Next() {
		w, err := scanWishRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func scanWishRow(scan func(dest ...any) error) (domain.Wish, error) {
	var w domain.Wish
	var roomTypes, features, createdAt string
	var active int

	if err := scan(&w.ID, &w.TenantID, &w.City, &w.Neighborhood, &w.PriceMin,
		&w.PriceMax, &roomTypes, &w.MinSizeSqm, &features, &active, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Wish{}, err
		}
		return domain.Wish{}, fmt.Errorf("scanning wish: %w", err)
	}

	rt, err := unmarshalStrings(roomTypes)
	if err != nil {
		return domain.Wish{}, err
	}
	fs, err := unmarshalStrings(features)
	if err != nil {
		return domain.Wish{}, err
	}
	w.RoomTypes = rt
	w.Features = fs
	w.Active = active != 0
	w.CreatedAt = parseTime(createdAt)
	return w, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
