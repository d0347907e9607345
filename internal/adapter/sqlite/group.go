package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// GroupRepo implements domain.GroupRepository.
type GroupRepo struct {
	s *Store
}

// Compile-time check: GroupRepo implements domain.GroupRepository.
var _ domain.GroupRepository = (*GroupRepo)(nil)

func (r *GroupRepo) Create(ctx context.Context, g domain.HousemateGroup) error {
	_, err := r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO housemate_groups (id, name, owner_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Name, g.OwnerID, formatTime(g.CreatedAt), formatTime(g.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting group: %w", err)
	}
	return nil
}

func (r *GroupRepo) GetByID(ctx context.Context, id string) (domain.HousemateGroup, error) {
	var g domain.HousemateGroup
	var createdAt, updatedAt string

	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at, updated_at
		 FROM housemate_groups WHERE id = ?`, id,
	).Scan(&g.ID, &g.Name, &g.OwnerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.HousemateGroup{}, domain.ErrGroupNotFound
	}
	if err != nil {
		return domain.HousemateGroup{}, fmt.Errorf("scanning group: %w", err)
	}

	g.CreatedAt = parseTime(createdAt)
	g.UpdatedAt = parseTime(updatedAt)
	return g, nil
}

func (r *GroupRepo) Update(ctx context.Context, g domain.HousemateGroup) error {
	result, err := r.s.q(ctx).ExecContext(ctx,
		`UPDATE housemate_groups SET name = ?, owner_id = ?, updated_at = ? WHERE id = ?`,
		g.Name, g.OwnerID, formatTime(time.Now()), g.ID,
	)
	if err != nil {
		return fmt.Errorf("updating group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepo) Delete(ctx context.Context, id string) error {
	// Memberships go with the group via ON DELETE CASCADE.
	result, err := r.s.q(ctx).ExecContext(ctx,
		`DELETE FROM housemate_groups WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrGroupNotFound
	}
	return nil
}

func (r *GroupRepo) AddMember(ctx context.Context, m domain.GroupMembership) error {
	_, err := r.s.q(ctx).ExecContext(ctx,
		`INSERT INTO group_memberships (id, group_id, tenant_id, role, status, joined_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.GroupID, m.TenantID, string(m.Role), string(m.Status), formatTime(m.JoinedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("tenant %s already in group %s: %w", m.TenantID, m.GroupID, err)
		}
		return fmt.Errorf("inserting membership: %w", err)
	}
	return nil
}

func (r *GroupRepo) UpdateMember(ctx context.Context, m domain.GroupMembership) error {
	result, err := r.s.q(ctx).ExecContext(ctx,
		`UPDATE group_memberships SET role = ?, status = ? WHERE group_id = ? AND tenant_id = ?`,
		string(m.Role), string(m.Status), m.GroupID, m.TenantID,
	)
	if err != nil {
		return fmt.Errorf("updating membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, tenantID string) error {
	result, err := r.s.q(ctx).ExecContext(ctx,
		`DELETE FROM group_memberships WHERE group_id = ? AND tenant_id = ?`,
		groupID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("deleting membership: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrMemberNotFound
	}
	return nil
}

func (r *GroupRepo) GetMember(ctx context.Context, groupID, tenantID string) (domain.GroupMembership, error) {
	m, err := scanMembershipRow(r.s.q(ctx).QueryRowContext(ctx,
		`SELECT id, group_id, tenant_id, role, status, joined_at
		 FROM group_memberships WHERE group_id = ? AND tenant_id = ?`,
		groupID, tenantID,
	).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.GroupMembership{}, domain.ErrMemberNotFound
	}
	return m, err
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]domain.GroupMembership, error) {
	rows, err := r.s.q(ctx).QueryContext(ctx,
		`SELECT id, group_id, tenant_id, role, status, joined_at
		 FROM group_memberships WHERE group_id = ?
		 ORDER BY joined_at ASC, id ASC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing memberships: %w", err)
	}
	defer rows.Close()

	var out []domain.GroupMembership
	for rows.Next() {
		m, err := scanMembershipRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *GroupRepo) CountAccepted(ctx context.Context, groupID string) (int, error) {
	var n int
	err := r.s.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM group_memberships WHERE group_id = ? AND status = 'accepted'`,
		groupID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting accepted members: %w", err)
	}
	return n, nil
}

func scanMembershipRow(scan func(dest ...any) error) (domain.GroupMembership, error) {
	var m domain.GroupMembership
	var role, status, joinedAt string

	if err := scan(&m.ID, &m.GroupID, &m.TenantID, &role, &status, &joinedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.GroupMembership{}, err
		}
		return domain.GroupMembership{}, fmt.Errorf("scanning membership: %w", err)
	}

	m.Role = domain.MemberRole(role)
	m.Status = domain.MembershipStatus(status)
	m.JoinedAt = parseTime(joinedAt)
	return m, nil
}
