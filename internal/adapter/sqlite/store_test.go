package sqlite_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neomorfeo/stanzaq/internal/adapter/sqlite"
	"github.com/neomorfeo/stanzaq/internal/domain"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedListing(t *testing.T, store *sqlite.Store, id string, status domain.ListingStatus, expiresAt *time.Time) domain.Listing {
	t.Helper()
	l := domain.NewListing(id, "owner-"+id, "Room", "Milano", "Navigli", "single", 650, 14, []string{"balcony"})
	l.Status = status
	l.ExpiresAt = expiresAt
	if err := store.Listings.Create(context.Background(), l); err != nil {
		t.Fatalf("seeding listing: %v", err)
	}
	return l
}

// --- Interests ---

func TestInterestRepo_CreateAndFindOpen(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	in := domain.NewInterest("i1", "l1", "t1", "", domain.InterestActive, 1, 20)
	if err := store.Interests.Create(ctx, in); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Interests.FindOpenSolo(ctx, "l1", "t1")
	if err != nil {
		t.Fatalf("FindOpenSolo failed: %v", err)
	}
	if got.ID != "i1" || got.Score != 20 || got.Position != 1 {
		t.Errorf("got %+v, want id=i1 score=20 position=1", got)
	}

	if _, err := store.Interests.FindOpenSolo(ctx, "l1", "t2"); !errors.Is(err, domain.ErrInterestNotFound) {
		t.Errorf("expected ErrInterestNotFound, got %v", err)
	}
}

func TestInterestRepo_FindOpenGroupIgnoresSolo(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	solo := domain.NewInterest("i1", "l1", "t1", "", domain.InterestActive, 1, 0)
	grouped := domain.NewInterest("i2", "l1", "t2", "g1", domain.InterestWaiting, 2, 0)
	for _, in := range []domain.Interest{solo, grouped} {
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.Interests.FindOpenGroup(ctx, "l1", "g1")
	if err != nil {
		t.Fatalf("FindOpenGroup failed: %v", err)
	}
	if got.ID != "i2" {
		t.Errorf("ID = %q, want i2", got.ID)
	}

	// The group member's solo lookup must not surface the group interest.
	if _, err := store.Interests.FindOpenSolo(ctx, "l1", "t2"); !errors.Is(err, domain.ErrInterestNotFound) {
		t.Errorf("expected ErrInterestNotFound for solo lookup, got %v", err)
	}
}

func TestInterestRepo_CountsExcludeTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	states := []domain.InterestStatus{
		domain.InterestActive, domain.InterestActive,
		domain.InterestWaiting,
		domain.InterestWithdrawn, domain.InterestExpired,
	}
	for i, status := range states {
		in := domain.NewInterest(string(rune('a'+i)), "l1", "t1", "", status, i+1, 0)
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	active, err := store.Interests.CountByStatus(ctx, "l1", domain.InterestActive)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if active != 2 {
		t.Errorf("active = %d, want 2", active)
	}

	open, err := store.Interests.CountOpenByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("CountOpenByTenant failed: %v", err)
	}
	if open != 3 {
		t.Errorf("open = %d, want 3", open)
	}
}

func TestInterestRepo_MaxPositionIgnoresTerminal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	open := domain.NewInterest("i1", "l1", "t1", "", domain.InterestWaiting, 4, 0)
	withdrawn := domain.NewInterest("i2", "l1", "t2", "", domain.InterestWithdrawn, 9, 0)
	for _, in := range []domain.Interest{open, withdrawn} {
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	pos, err := store.Interests.MaxPosition(ctx, "l1")
	if err != nil {
		t.Fatalf("MaxPosition failed: %v", err)
	}
	if pos != 4 {
		t.Errorf("MaxPosition = %d, want 4", pos)
	}

	empty, err := store.Interests.MaxPosition(ctx, "l-empty")
	if err != nil {
		t.Fatalf("MaxPosition failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("MaxPosition on empty listing = %d, want 0", empty)
	}
}

func TestInterestRepo_NextWaitingOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	lowScore := domain.NewInterest("i1", "l1", "t1", "", domain.InterestWaiting, 4, 5)
	lowScore.CreatedAt = base
	highLate := domain.NewInterest("i2", "l1", "t2", "", domain.InterestWaiting, 5, 10)
	highLate.CreatedAt = base.Add(time.Hour)
	highEarly := domain.NewInterest("i3", "l1", "t3", "", domain.InterestWaiting, 6, 10)
	highEarly.CreatedAt = base.Add(time.Minute)
	for _, in := range []domain.Interest{lowScore, highLate, highEarly} {
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.Interests.NextWaiting(ctx, "l1")
	if err != nil {
		t.Fatalf("NextWaiting failed: %v", err)
	}
	if got.ID != "i3" {
		t.Errorf("NextWaiting = %q, want i3 (highest score, earliest arrival)", got.ID)
	}

	if _, err := store.Interests.NextWaiting(ctx, "l-empty"); !errors.Is(err, domain.ErrInterestNotFound) {
		t.Errorf("expected ErrInterestNotFound, got %v", err)
	}
}

func TestInterestRepo_NextWaitingTieBreaksOnPosition(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	// Same score, same second: the lower ordinal arrived first.
	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	first := domain.NewInterest("i1", "l1", "t1", "", domain.InterestWaiting, 4, 10)
	first.CreatedAt = at
	second := domain.NewInterest("i2", "l1", "t2", "", domain.InterestWaiting, 5, 10)
	second.CreatedAt = at
	for _, in := range []domain.Interest{second, first} {
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.Interests.NextWaiting(ctx, "l1")
	if err != nil {
		t.Fatalf("NextWaiting failed: %v", err)
	}
	if got.ID != "i1" {
		t.Errorf("NextWaiting = %q, want i1", got.ID)
	}
}

func TestInterestRepo_UpdateMissing(t *testing.T) {
	store := newTestStore(t)

	in := domain.NewInterest("ghost", "l1", "t1", "", domain.InterestActive, 1, 0)
	if err := store.Interests.Update(context.Background(), in); !errors.Is(err, domain.ErrInterestNotFound) {
		t.Errorf("expected ErrInterestNotFound, got %v", err)
	}
}

func TestInterestRepo_ListByListingStatus(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingExpired, nil)

	for i, status := range []domain.InterestStatus{domain.InterestExpired, domain.InterestExpired, domain.InterestWithdrawn} {
		in := domain.NewInterest(string(rune('a'+i)), "l1", "t1", "", status, i+1, 0)
		if err := store.Interests.Create(ctx, in); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	expired, err := store.Interests.ListByListingStatus(ctx, "l1", domain.InterestExpired)
	if err != nil {
		t.Fatalf("ListByListingStatus failed: %v", err)
	}
	if len(expired) != 2 {
		t.Errorf("len = %d, want 2", len(expired))
	}
}

// --- Listings ---

func TestListingRepo_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exp := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	seedListing(t, store, "l1", domain.ListingActive, &exp)

	got, err := store.Listings.GetByID(ctx, "l1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.City != "Milano" || got.PriceEUR != 650 {
		t.Errorf("got %+v, want Milano at 650", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, exp)
	}
	if len(got.Features) != 1 || got.Features[0] != "balcony" {
		t.Errorf("Features = %v, want [balcony]", got.Features)
	}

	if _, err := store.Listings.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrListingNotFound) {
		t.Errorf("expected ErrListingNotFound, got %v", err)
	}
}

func TestListingRepo_DraftHasNoExpiry(t *testing.T) {
	store := newTestStore(t)
	seedListing(t, store, "l1", domain.ListingDraft, nil)

	got, err := store.Listings.GetByID(context.Background(), "l1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", got.ExpiresAt)
	}
}

func TestListingRepo_ListDue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	seedListing(t, store, "due-active", domain.ListingActive, &past)
	seedListing(t, store, "due-full", domain.ListingQueueFull, &past)
	seedListing(t, store, "fresh", domain.ListingActive, &future)
	seedListing(t, store, "already-expired", domain.ListingExpired, &past)

	due, err := store.Listings.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("ListDue failed: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("len = %d, want 2", len(due))
	}
	ids := map[string]bool{}
	for _, l := range due {
		ids[l.ID] = true
	}
	if !ids["due-active"] || !ids["due-full"] {
		t.Errorf("due = %v, want due-active and due-full", ids)
	}
}

func TestListingRepo_ListAccepting(t *testing.T) {
	store := newTestStore(t)

	seedListing(t, store, "a", domain.ListingActive, nil)
	seedListing(t, store, "b", domain.ListingQueueFull, nil)
	seedListing(t, store, "c", domain.ListingPaused, nil)
	seedListing(t, store, "d", domain.ListingDraft, nil)

	accepting, err := store.Listings.ListAccepting(context.Background())
	if err != nil {
		t.Fatalf("ListAccepting failed: %v", err)
	}
	if len(accepting) != 2 {
		t.Errorf("len = %d, want 2", len(accepting))
	}
}

// --- Groups ---

func TestGroupRepo_MembershipLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := domain.NewHousemateGroup("g1", "I Coinquilini", "t1")
	if err := store.Groups.Create(ctx, group); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	owner := domain.NewGroupMembership("m1", "g1", "t1", domain.RoleOwner, domain.MembershipAccepted)
	invitee := domain.NewGroupMembership("m2", "g1", "t2", domain.RoleMember, domain.MembershipPending)
	for _, m := range []domain.GroupMembership{owner, invitee} {
		if err := store.Groups.AddMember(ctx, m); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	}

	n, err := store.Groups.CountAccepted(ctx, "g1")
	if err != nil {
		t.Fatalf("CountAccepted failed: %v", err)
	}
	if n != 1 {
		t.Errorf("accepted = %d, want 1", n)
	}

	invitee.Status = domain.MembershipAccepted
	if err := store.Groups.UpdateMember(ctx, invitee); err != nil {
		t.Fatalf("UpdateMember failed: %v", err)
	}
	if n, _ = store.Groups.CountAccepted(ctx, "g1"); n != 2 {
		t.Errorf("accepted after update = %d, want 2", n)
	}

	if err := store.Groups.RemoveMember(ctx, "g1", "t2"); err != nil {
		t.Fatalf("RemoveMember failed: %v", err)
	}
	if _, err := store.Groups.GetMember(ctx, "g1", "t2"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestGroupRepo_ListMembersOrderedByJoin(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	group := domain.NewHousemateGroup("g1", "I Coinquilini", "t1")
	if err := store.Groups.Create(ctx, group); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	base := time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC)
	third := domain.NewGroupMembership("m3", "g1", "t3", domain.RoleMember, domain.MembershipAccepted)
	third.JoinedAt = base.Add(2 * time.Hour)
	first := domain.NewGroupMembership("m1", "g1", "t1", domain.RoleOwner, domain.MembershipAccepted)
	first.JoinedAt = base
	second := domain.NewGroupMembership("m2", "g1", "t2", domain.RoleMember, domain.MembershipAccepted)
	second.JoinedAt = base.Add(time.Hour)
	for _, m := range []domain.GroupMembership{third, first, second} {
		if err := store.Groups.AddMember(ctx, m); err != nil {
			t.Fatalf("AddMember failed: %v", err)
		}
	}

	members, err := store.Groups.ListMembers(ctx, "g1")
	if err != nil {
		t.Fatalf("ListMembers failed: %v", err)
	}
	want := []string{"t1", "t2", "t3"}
	for i, m := range members {
		if m.TenantID != want[i] {
			t.Errorf("members[%d] = %q, want %q", i, m.TenantID, want[i])
		}
	}
}

func TestGroupRepo_DuplicateMembership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Groups.Create(ctx, domain.NewHousemateGroup("g1", "G", "t1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m := domain.NewGroupMembership("m1", "g1", "t1", domain.RoleOwner, domain.MembershipAccepted)
	if err := store.Groups.AddMember(ctx, m); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	dup := domain.NewGroupMembership("m2", "g1", "t1", domain.RoleMember, domain.MembershipPending)
	if err := store.Groups.AddMember(ctx, dup); err == nil {
		t.Error("expected unique violation for duplicate membership")
	}
}

func TestGroupRepo_DeleteCascadesMembers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Groups.Create(ctx, domain.NewHousemateGroup("g1", "G", "t1")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	m := domain.NewGroupMembership("m1", "g1", "t1", domain.RoleOwner, domain.MembershipAccepted)
	if err := store.Groups.AddMember(ctx, m); err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	if err := store.Groups.Delete(ctx, "g1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Groups.GetByID(ctx, "g1"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("expected ErrGroupNotFound, got %v", err)
	}
	if _, err := store.Groups.GetMember(ctx, "g1", "t1"); !errors.Is(err, domain.ErrMemberNotFound) {
		t.Errorf("expected cascade-deleted membership, got %v", err)
	}
}

// --- Wishes ---

func TestWishRepo_RoundTripAndListActive(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	active := domain.NewWish("w1", "t1", "Milano", "Navigli", 400, 800, []string{"single"}, 12, []string{"balcony"})
	inactive := domain.NewWish("w2", "t1", "Torino", "", 0, 0, nil, 0, nil)
	inactive.Active = false
	for _, w := range []domain.Wish{active, inactive} {
		if err := store.Wishes.Create(ctx, w); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	got, err := store.Wishes.GetByID(ctx, "w1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.PriceMax != 800 || len(got.RoomTypes) != 1 || got.RoomTypes[0] != "single" {
		t.Errorf("got %+v, want max 800 and room types [single]", got)
	}

	activeWishes, err := store.Wishes.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive failed: %v", err)
	}
	if len(activeWishes) != 1 || activeWishes[0].ID != "w1" {
		t.Errorf("ListActive = %v, want [w1]", activeWishes)
	}

	byTenant, err := store.Wishes.ListByTenant(ctx, "t1")
	if err != nil {
		t.Fatalf("ListByTenant failed: %v", err)
	}
	if len(byTenant) != 2 {
		t.Errorf("ListByTenant len = %d, want 2", len(byTenant))
	}
}

// --- Tenants ---

func TestTenantRepo_UpsertAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	p := domain.TenantProfile{
		ID:           "t1",
		Name:         "Ada",
		Bio:          "quiet, tidy",
		BudgetMinEUR: 400,
		BudgetMaxEUR: 700,
		Languages:    []string{"it", "en"},
		Verified:     true,
		WishAlerts:   true,
	}
	if err := store.Tenants.Upsert(ctx, p); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	got, err := store.Tenants.GetByID(ctx, "t1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if !got.Verified || !got.WishAlerts || len(got.Languages) != 2 {
		t.Errorf("got %+v, want verified with alerts and two languages", got)
	}

	p.Blocked = true
	if err := store.Tenants.Upsert(ctx, p); err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	got, _ = store.Tenants.GetByID(ctx, "t1")
	if !got.Blocked {
		t.Error("Blocked = false after upsert, want true")
	}

	if _, err := store.Tenants.GetByID(ctx, "nope"); !errors.Is(err, domain.ErrTenantNotFound) {
		t.Errorf("expected ErrTenantNotFound, got %v", err)
	}
}

// --- Transactions ---

func TestInListing_RollsBackOnError(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	boom := errors.New("boom")
	err := store.InListing(ctx, "l1", func(ctx context.Context) error {
		in := domain.NewInterest("i1", "l1", "t1", "", domain.InterestActive, 1, 0)
		if err := store.Interests.Create(ctx, in); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := store.Interests.FindOpenSolo(ctx, "l1", "t1"); !errors.Is(err, domain.ErrInterestNotFound) {
		t.Errorf("expected rolled-back insert, got %v", err)
	}
}

func TestInListing_CommitsOnSuccess(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	err := store.InListing(ctx, "l1", func(ctx context.Context) error {
		in := domain.NewInterest("i1", "l1", "t1", "", domain.InterestActive, 1, 0)
		return store.Interests.Create(ctx, in)
	})
	if err != nil {
		t.Fatalf("InListing failed: %v", err)
	}

	if _, err := store.Interests.FindOpenSolo(ctx, "l1", "t1"); err != nil {
		t.Errorf("committed insert not found: %v", err)
	}
}

func TestInListing_NestedReusesTransaction(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seedListing(t, store, "l1", domain.ListingActive, nil)

	boom := errors.New("boom")
	err := store.InListing(ctx, "l1", func(ctx context.Context) error {
		in := domain.NewInterest("i1", "l1", "t1", "", domain.InterestActive, 1, 0)
		if err := store.Interests.Create(ctx, in); err != nil {
			return err
		}
		// The inner scope joins the outer transaction, so the outer
		// failure takes its write down too.
		return store.InListing(ctx, "l1", func(ctx context.Context) error {
			other := domain.NewInterest("i2", "l1", "t2", "", domain.InterestWaiting, 2, 0)
			if err := store.Interests.Create(ctx, other); err != nil {
				return err
			}
			return boom
		})
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	for _, tenant := range []string{"t1", "t2"} {
		if _, err := store.Interests.FindOpenSolo(ctx, "l1", tenant); !errors.Is(err, domain.ErrInterestNotFound) {
			t.Errorf("expected no interest for %s after rollback, got %v", tenant, err)
		}
	}
}
