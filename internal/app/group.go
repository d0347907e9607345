package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/neomorfeo/stanzaq/internal/domain"
)

// GroupService adapts the admission queue to group applicants and owns
// the group membership lifecycle that drives the withdrawal cascade.
type GroupService struct {
	groups    domain.GroupRepository
	interests domain.InterestRepository
	queue     *AdmissionService
	notifier  domain.Notifier
	logger    *slog.Logger
}

// NewGroupService creates the group adapter with the given adapters.
func NewGroupService(
	groups domain.GroupRepository,
	interests domain.InterestRepository,
	queue *AdmissionService,
	notifier domain.Notifier,
	logger *slog.Logger,
) *GroupService {
	return &GroupService{
		groups:    groups,
		interests: interests,
		queue:     queue,
		notifier:  notifier,
		logger:    logger,
	}
}

// CreateGroup creates a group with the caller as its accepted owner.
func (s *GroupService) CreateGroup(ctx context.Context, name, ownerID string) (domain.HousemateGroup, error) {
	groupID, err := generateID()
	if err != nil {
		return domain.HousemateGroup{}, fmt.Errorf("generating group id: %w", err)
	}

	group := domain.NewHousemateGroup(groupID, name, ownerID)
	if err := s.groups.Create(ctx, group); err != nil {
		return domain.HousemateGroup{}, fmt.Errorf("creating group: %w", err)
	}

	memberID, err := generateID()
	if err != nil {
		return domain.HousemateGroup{}, fmt.Errorf("generating membership id: %w", err)
	}
	owner := domain.NewGroupMembership(memberID, groupID, ownerID, domain.RoleOwner, domain.MembershipAccepted)
	if err := s.groups.AddMember(ctx, owner); err != nil {
		return domain.HousemateGroup{}, fmt.Errorf("adding owner membership: %w", err)
	}

	return group, nil
}

// Invite adds a pending membership for the invitee. Only the group
// owner can invite; a previously declined invitee can be re-invited.
func (s *GroupService) Invite(ctx context.Context, groupID, actorID, inviteeID string) (domain.GroupMembership, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return domain.GroupMembership{}, err
	}
	if group.OwnerID != actorID {
		return domain.GroupMembership{}, &domain.NotEligibleError{Reason: domain.ReasonNotGroupOwner}
	}

	existing, err := s.groups.GetMember(ctx, groupID, inviteeID)
	switch {
	case err == nil:
		if existing.Status != domain.MembershipDeclined {
			return domain.GroupMembership{}, &domain.NotEligibleError{Reason: domain.ReasonAlreadyMember}
		}
		existing.Status = domain.MembershipPending
		if err := s.groups.UpdateMember(ctx, existing); err != nil {
			return domain.GroupMembership{}, fmt.Errorf("re-inviting member: %w", err)
		}
		s.notifyInvite(ctx, group, inviteeID)
		return existing, nil
	case !errors.Is(err, domain.ErrMemberNotFound):
		return domain.GroupMembership{}, fmt.Errorf("checking membership: %w", err)
	}

	id, err := generateID()
	if err != nil {
		return domain.GroupMembership{}, fmt.Errorf("generating membership id: %w", err)
	}
	member := domain.NewGroupMembership(id, groupID, inviteeID, domain.RoleMember, domain.MembershipPending)
	if err := s.groups.AddMember(ctx, member); err != nil {
		return domain.GroupMembership{}, fmt.Errorf("adding membership: %w", err)
	}

	s.notifyInvite(ctx, group, inviteeID)
	return member, nil
}

// Respond answers the caller's own pending invite.
func (s *GroupService) Respond(ctx context.Context, groupID, tenantID string, accept bool) (domain.GroupMembership, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return domain.GroupMembership{}, err
	}

	member, err := s.groups.GetMember(ctx, groupID, tenantID)
	if err != nil {
		return domain.GroupMembership{}, err
	}
	if member.Status != domain.MembershipPending {
		return domain.GroupMembership{}, &domain.NotEligibleError{Reason: domain.ReasonNoPendingInvite}
	}

	member.Status = domain.MembershipDeclined
	if accept {
		member.Status = domain.MembershipAccepted
	}
	if err := s.groups.UpdateMember(ctx, member); err != nil {
		return domain.GroupMembership{}, fmt.Errorf("updating membership: %w", err)
	}

	s.notify(ctx, domain.Notification{
		UserID: group.OwnerID,
		Type:   domain.NotifyInviteAnswered,
		Data: map[string]string{
			"group_id":  groupID,
			"tenant_id": tenantID,
			"status":    string(member.Status),
		},
	})

	if err := s.afterMembershipChange(ctx, group); err != nil {
		return domain.GroupMembership{}, err
	}
	return member, nil
}

// Leave removes the caller's own membership. If the departing member
// owned the group and accepted members remain, the earliest-joined one
// becomes owner; groups are never left ownerless while members exist.
func (s *GroupService) Leave(ctx context.Context, groupID, tenantID string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if _, err := s.groups.GetMember(ctx, groupID, tenantID); err != nil {
		return err
	}

	if err := s.groups.RemoveMember(ctx, groupID, tenantID); err != nil {
		return fmt.Errorf("removing membership: %w", err)
	}

	if group.OwnerID == tenantID {
		group, err = s.succeedOwner(ctx, group)
		if err != nil {
			return err
		}
	}

	return s.afterMembershipChange(ctx, group)
}

// RemoveMember lets the group owner remove another member.
func (s *GroupService) RemoveMember(ctx context.Context, groupID, actorID, memberID string) error {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		return err
	}
	if group.OwnerID != actorID {
		return &domain.NotEligibleError{Reason: domain.ReasonNotGroupOwner}
	}
	if actorID == memberID {
		return s.Leave(ctx, groupID, actorID)
	}
	if _, err := s.groups.GetMember(ctx, groupID, memberID); err != nil {
		return err
	}

	if err := s.groups.RemoveMember(ctx, groupID, memberID); err != nil {
		return fmt.Errorf("removing membership: %w", err)
	}
	return s.afterMembershipChange(ctx, group)
}

// Apply files the group's interest on a listing, with the caller as the
// representative applicant.
func (s *GroupService) Apply(ctx context.Context, listingID, groupID, callerID string) (domain.Interest, error) {
	if err := s.requireAcceptedMember(ctx, groupID, callerID); err != nil {
		return domain.Interest{}, err
	}

	accepted, err := s.groups.CountAccepted(ctx, groupID)
	if err != nil {
		return domain.Interest{}, fmt.Errorf("counting accepted members: %w", err)
	}
	if accepted < domain.MinGroupSize {
		return domain.Interest{}, &domain.NotEligibleError{Reason: domain.ReasonGroupTooSmall}
	}

	in, err := s.queue.expressInterest(ctx, listingID, callerID, groupID)
	if err != nil {
		return domain.Interest{}, err
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		s.logger.WarnContext(ctx, "listing members for notification failed",
			"group_id", groupID, "error", err)
		return in, nil
	}
	for _, m := range members {
		if m.Status != domain.MembershipAccepted || m.TenantID == callerID {
			continue
		}
		s.notify(ctx, domain.Notification{
			UserID: m.TenantID,
			Type:   domain.NotifyGroupApplied,
			Data: map[string]string{
				"group_id":   groupID,
				"listing_id": listingID,
			},
		})
	}
	return in, nil
}

// WithdrawApplication withdraws the group's interest on the listing.
func (s *GroupService) WithdrawApplication(ctx context.Context, listingID, groupID, callerID string) error {
	if err := s.requireAcceptedMember(ctx, groupID, callerID); err != nil {
		return err
	}
	return s.queue.WithdrawGroup(ctx, listingID, groupID)
}

func (s *GroupService) requireAcceptedMember(ctx context.Context, groupID, tenantID string) error {
	member, err := s.groups.GetMember(ctx, groupID, tenantID)
	if errors.Is(err, domain.ErrMemberNotFound) {
		return &domain.NotEligibleError{Reason: domain.ReasonNotInGroup}
	}
	if err != nil {
		return err
	}
	if member.Status != domain.MembershipAccepted {
		return &domain.NotEligibleError{Reason: domain.ReasonNotInGroup}
	}
	return nil
}

// succeedOwner hands the group to the earliest-joined remaining
// accepted member, or leaves OwnerID untouched when nobody qualifies
// (the group is about to dissolve).
func (s *GroupService) succeedOwner(ctx context.Context, group domain.HousemateGroup) (domain.HousemateGroup, error) {
	members, err := s.groups.ListMembers(ctx, group.ID)
	if err != nil {
		return group, fmt.Errorf("listing members: %w", err)
	}
	for _, m := range members {
		if m.Status != domain.MembershipAccepted {
			continue
		}
		m.Role = domain.RoleOwner
		if err := s.groups.UpdateMember(ctx, m); err != nil {
			return group, fmt.Errorf("promoting successor: %w", err)
		}
		group.OwnerID = m.TenantID
		if err := s.groups.Update(ctx, group); err != nil {
			return group, fmt.Errorf("updating group owner: %w", err)
		}
		return group, nil
	}
	return group, nil
}

// afterMembershipChange enforces the cascade: a group that drops below
// the minimum accepted size loses its open interests (with the usual
// promotion on freed slots), and a group with no accepted members left
// is deleted once its interests are withdrawn.
func (s *GroupService) afterMembershipChange(ctx context.Context, group domain.HousemateGroup) error {
	accepted, err := s.groups.CountAccepted(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("counting accepted members: %w", err)
	}
	if accepted >= domain.MinGroupSize {
		return nil
	}

	open, err := s.interests.ListOpenByGroup(ctx, group.ID)
	if err != nil {
		return fmt.Errorf("listing group interests: %w", err)
	}
	for _, in := range open {
		if err := s.queue.WithdrawGroup(ctx, in.ListingID, group.ID); err != nil &&
			!errors.Is(err, domain.ErrInterestNotFound) {
			return fmt.Errorf("withdrawing group interest on %s: %w", in.ListingID, err)
		}
	}

	if accepted == 0 {
		if err := s.groups.Delete(ctx, group.ID); err != nil {
			return fmt.Errorf("deleting dissolved group: %w", err)
		}
	}
	return nil
}

func (s *GroupService) notifyInvite(ctx context.Context, group domain.HousemateGroup, inviteeID string) {
	s.notify(ctx, domain.Notification{
		UserID: inviteeID,
		Type:   domain.NotifyGroupInvite,
		Data: map[string]string{
			"group_id":   group.ID,
			"group_name": group.Name,
		},
	})
}

func (s *GroupService) notify(ctx context.Context, n domain.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"user_id", n.UserID,
			"type", string(n.Type),
			"error", err,
		)
	}
}
