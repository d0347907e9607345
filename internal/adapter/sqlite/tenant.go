package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// TenantRepo implements domain.TenantRepository. Profiles are synced in
// from the account service; the engine itself only reads them, plus a
// seed helper used by tests and local setups.
type TenantRepo struct {
	s *Store
}

// Compile-time check: TenantRepo implements domain.TenantRepository.
var _ domain.TenantRepository = (*TenantRepo)(nil)

const tenantColumns = `id, name, bio, budget_min_eur, budget_max_eur, contract_type, languages, has_guarantor, verified, completed_bookings, recent_messages, blocked, wish_alerts, created_at`

func (r *TenantRepo) GetByID(ctx context.Context, id string) (domain.TenantProfile, error) {
	var p domain.TenantProfile
	var languages, createdAt string
	var hasGuarantor, verified, blocked, wishAlerts int

	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Bio, &p.BudgetMinEUR, &p.BudgetMaxEUR,
		&p.ContractType, &languages, &hasGuarantor, &verified,
		&p.CompletedBookings, &p.RecentMessages, &blocked, &wishAlerts, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.TenantProfile{}, domain.ErrTenantNotFound
	}
	if err != nil {
		return domain.TenantProfile{}, fmt.Errorf("scanning tenant: %w", err)
	}

	langs, err := unmarshalStrings(languages)
	if err != nil {
		return domain.TenantProfile{}, err
	}
	p.Languages = langs
	p.HasGuarantor = hasGuarantor != 0
	p.Verified = verified != 0
	p.Blocked = blocked != 0
	p.WishAlerts = wishAlerts != 0
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

// Upsert writes a profile snapshot, replacing any previous one.
func (r *TenantRepo) Upsert(ctx context.Context, p domain.TenantProfile) error {
	languages, err := marshalStrings(p.Languages)
	if err != nil {
		return err
	}
	_, err = r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO tenants (`+tenantColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		     name = excluded.name, bio = excluded.bio,
		     budget_min_eur = excluded.budget_min_eur,
		     budget_max_eur = excluded.budget_max_eur,
		     contract_type = excluded.contract_type,
		     languages = excluded.languages,
		     has_guarantor = excluded.has_guarantor,
		     verified = excluded.verified,
		     completed_bookings = excluded.completed_bookings,
		     recent_messages = excluded.recent_messages,
		     blocked = excluded.blocked,
		     wish_alerts = excluded.wish_alerts`,
		p.ID, p.Name, p.Bio, p.BudgetMinEUR, p.BudgetMaxEUR, p.ContractType,
		languages, boolToInt(p.HasGuarantor), boolToInt(p.Verified),
		p.CompletedBookings, p.RecentMessages, boolToInt(p.Blocked),
		boolToInt(p.WishAlerts), formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting tenant: %w", err)
	}
	return nil
}
