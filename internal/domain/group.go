package domain

import "time"

// MinGroupSize is the smallest accepted-member count a group needs to
// apply (and keep applying) to listings as a unit.
const MinGroupSize = 2

// MemberRole distinguishes the group owner from regular members.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)

// MembershipStatus tracks each tenant's state inside a group.
type MembershipStatus string

const (
	MembershipPending  MembershipStatus = "pending"
	MembershipAccepted MembershipStatus = "accepted"
	MembershipDeclined MembershipStatus = "declined"
)

// HousemateGroup is a named set of tenants applying to listings together.
type HousemateGroup struct {
	ID        string
	Name      string
	OwnerID   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GroupMembership links one tenant to one group.
type GroupMembership struct {
	ID       string
	GroupID  string
	TenantID string
	Role     MemberRole
	Status   MembershipStatus
	JoinedAt time.Time
}

// NewHousemateGroup creates a group owned by the given tenant.
func NewHousemateGroup(id, name, ownerID string) HousemateGroup {
	now := time.Now().UTC()
	return HousemateGroup{
		ID:        id,
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewGroupMembership creates a membership record. The owner joins as
// accepted; invitees start pending.
func NewGroupMembership(id, groupID, tenantID string, role MemberRole, status MembershipStatus) GroupMembership {
	return GroupMembership{
		ID:       id,
		GroupID:  groupID,
		TenantID: tenantID,
		Role:     role,
		Status:   status,
		JoinedAt: time.Now().UTC(),
	}
}
