package app_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/neomorfeo/stanzaq/internal/adapter/fsm"
	"github.com/neomorfeo/stanzaq/internal/app"
	"github.com/neomorfeo/stanzaq/internal/domain"
)

// --- Mocks ---

type mockInterests struct {
	interests map[string]domain.Interest
}

func newMockInterests() *mockInterests {
	return &mockInterests{interests: make(map[string]domain.Interest)}
}

func (m *mockInterests) Create(_ context.Context, in domain.Interest) error {
	m.interests[in.ID] = in
	return nil
}

func (m *mockInterests) Update(_ context.Context, in domain.Interest) error {
	m.interests[in.ID] = in
	return nil
}

func (m *mockInterests) FindOpenSolo(_ context.Context, listingID, tenantID string) (domain.Interest, error) {
	for _, in := range m.interests {
		if in.ListingID == listingID && in.TenantID == tenantID && in.GroupID == "" && in.Open() {
			return in, nil
		}
	}
	return domain.Interest{}, domain.ErrInterestNotFound
}

func (m *mockInterests) FindOpenGroup(_ context.Context, listingID, groupID string) (domain.Interest, error) {
	for _, in := range m.interests {
		if in.ListingID == listingID && in.GroupID == groupID && in.Open() {
			return in, nil
		}
	}
	return domain.Interest{}, domain.ErrInterestNotFound
}

func (m *mockInterests) CountByStatus(_ context.Context, listingID string, status domain.InterestStatus) (int, error) {
	n := 0
	for _, in := range m.interests {
		if in.ListingID == listingID && in.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *mockInterests) CountOpenByTenant(_ context.Context, tenantID string) (int, error) {
	n := 0
	for _, in := range m.interests {
		if in.TenantID == tenantID && in.Open() {
			n++
		}
	}
	return n, nil
}

func (m *mockInterests) MaxPosition(_ context.Context, listingID string) (int, error) {
	max := 0
	for _, in := range m.interests {
		if in.ListingID == listingID && in.Open() && in.Position > max {
			max = in.Position
		}
	}
	return max, nil
}

func (m *mockInterests) NextWaiting(_ context.Context, listingID string) (domain.Interest, error) {
	var candidates []domain.Interest
	for _, in := range m.interests {
		if in.ListingID == listingID && in.Status == domain.InterestWaiting {
			candidates = append(candidates, in)
		}
	}
	if len(candidates) == 0 {
		return domain.Interest{}, domain.ErrInterestNotFound
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Position < b.Position
	})
	return candidates[0], nil
}

func (m *mockInterests) ListOpenByListing(_ context.Context, listingID string) ([]domain.Interest, error) {
	var out []domain.Interest
	for _, in := range m.interests {
		if in.ListingID == listingID && in.Open() {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *mockInterests) ListOpenByGroup(_ context.Context, groupID string) ([]domain.Interest, error) {
	var out []domain.Interest
	for _, in := range m.interests {
		if in.GroupID == groupID && in.Open() {
			out = append(out, in)
		}
	}
	return out, nil
}

func (m *mockInterests) ListByListingStatus(_ context.Context, listingID string, status domain.InterestStatus) ([]domain.Interest, error) {
	var out []domain.Interest
	for _, in := range m.interests {
		if in.ListingID == listingID && in.Status == status {
			out = append(out, in)
		}
	}
	return out, nil
}

type mockListings struct {
	listings map[string]domain.Listing
}

func newMockListings() *mockListings {
	return &mockListings{listings: make(map[string]domain.Listing)}
}

func (m *mockListings) Create(_ context.Context, l domain.Listing) error {
	m.listings[l.ID] = l
	return nil
}

func (m *mockListings) GetByID(_ context.Context, id string) (domain.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (m *mockListings) Update(_ context.Context, l domain.Listing) error {
	m.listings[l.ID] = l
	return nil
}

func (m *mockListings) ListDue(_ context.Context, now time.Time) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range m.listings {
		if l.Accepting() && l.Due(now) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockListings) ListAccepting(_ context.Context) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, l := range m.listings {
		if l.Accepting() {
			out = append(out, l)
		}
	}
	return out, nil
}

type mockGroups struct {
	groups  map[string]domain.HousemateGroup
	members map[string]map[string]domain.GroupMembership
}

func newMockGroups() *mockGroups {
	return &mockGroups{
		groups:  make(map[string]domain.HousemateGroup),
		members: make(map[string]map[string]domain.GroupMembership),
	}
}

func (m *mockGroups) Create(_ context.Context, g domain.HousemateGroup) error {
	m.groups[g.ID] = g
	m.members[g.ID] = make(map[string]domain.GroupMembership)
	return nil
}

func (m *mockGroups) GetByID(_ context.Context, id string) (domain.HousemateGroup, error) {
	g, ok := m.groups[id]
	if !ok {
		return domain.HousemateGroup{}, domain.ErrGroupNotFound
	}
	return g, nil
}

func (m *mockGroups) Update(_ context.Context, g domain.HousemateGroup) error {
	m.groups[g.ID] = g
	return nil
}

func (m *mockGroups) Delete(_ context.Context, id string) error {
	delete(m.groups, id)
	delete(m.members, id)
	return nil
}

func (m *mockGroups) AddMember(_ context.Context, mem domain.GroupMembership) error {
	if m.members[mem.GroupID] == nil {
		m.members[mem.GroupID] = make(map[string]domain.GroupMembership)
	}
	m.members[mem.GroupID][mem.TenantID] = mem
	return nil
}

func (m *mockGroups) UpdateMember(_ context.Context, mem domain.GroupMembership) error {
	m.members[mem.GroupID][mem.TenantID] = mem
	return nil
}

func (m *mockGroups) RemoveMember(_ context.Context, groupID, tenantID string) error {
	delete(m.members[groupID], tenantID)
	return nil
}

func (m *mockGroups) GetMember(_ context.Context, groupID, tenantID string) (domain.GroupMembership, error) {
	mem, ok := m.members[groupID][tenantID]
	if !ok {
		return domain.GroupMembership{}, domain.ErrMemberNotFound
	}
	return mem, nil
}

func (m *mockGroups) ListMembers(_ context.Context, groupID string) ([]domain.GroupMembership, error) {
	var out []domain.GroupMembership
	for _, mem := range m.members[groupID] {
		out = append(out, mem)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].JoinedAt.Before(out[j].JoinedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockGroups) CountAccepted(_ context.Context, groupID string) (int, error) {
	n := 0
	for _, mem := range m.members[groupID] {
		if mem.Status == domain.MembershipAccepted {
			n++
		}
	}
	return n, nil
}

type mockWishes struct {
	wishes map[string]domain.Wish
}

func newMockWishes() *mockWishes {
	return &mockWishes{wishes: make(map[string]domain.Wish)}
}

func (m *mockWishes) Create(_ context.Context, w domain.Wish) error {
	m.wishes[w.ID] = w
	return nil
}

func (m *mockWishes) GetByID(_ context.Context, id string) (domain.Wish, error) {
	w, ok := m.wishes[id]
	if !ok {
		return domain.Wish{}, domain.ErrWishNotFound
	}
	return w, nil
}

func (m *mockWishes) Update(_ context.Context, w domain.Wish) error {
	m.wishes[w.ID] = w
	return nil
}

func (m *mockWishes) ListActive(_ context.Context) ([]domain.Wish, error) {
	var out []domain.Wish
	for _, w := range m.wishes {
		if w.Active {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockWishes) ListByTenant(_ context.Context, tenantID string) ([]domain.Wish, error) {
	var out []domain.Wish
	for _, w := range m.wishes {
		if w.TenantID == tenantID {
			out = append(out, w)
		}
	}
	return out, nil
}

type mockTenants struct {
	profiles map[string]domain.TenantProfile
}

func newMockTenants() *mockTenants {
	return &mockTenants{profiles: make(map[string]domain.TenantProfile)}
}

func (m *mockTenants) GetByID(_ context.Context, id string) (domain.TenantProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return domain.TenantProfile{}, domain.ErrTenantNotFound
	}
	return p, nil
}

// mockTx runs the function directly; the fakes have no transactions.
type mockTx struct{}

func (mockTx) InListing(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mockNotifier struct {
	sent []domain.Notification
}

func (m *mockNotifier) Notify(_ context.Context, n domain.Notification) error {
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) byType(t domain.NotificationType) []domain.Notification {
	var out []domain.Notification
	for _, n := range m.sent {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

type mockScheduler struct {
	scheduled []string
}

func (m *mockScheduler) ScheduleListingMatch(_ context.Context, listingID string) error {
	m.scheduled = append(m.scheduled, listingID)
	return nil
}

// --- Harness ---

type env struct {
	interests *mockInterests
	listings  *mockListings
	groups    *mockGroups
	wishes    *mockWishes
	tenants   *mockTenants
	notifier  *mockNotifier
	scheduler *mockScheduler

	lifecycle *app.LifecycleService
	queue     *app.AdmissionService
	groupSvc  *app.GroupService
	wishSvc   *app.WishService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		interests: newMockInterests(),
		listings:  newMockListings(),
		groups:    newMockGroups(),
		wishes:    newMockWishes(),
		tenants:   newMockTenants(),
		notifier:  &mockNotifier{},
		scheduler: &mockScheduler{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tx := mockTx{}

	e.lifecycle = app.NewLifecycleService(e.listings, e.interests, tx,
		fsm.NewListingValidator(), fsm.NewInterestValidator(),
		e.scheduler, e.notifier, logger)
	e.queue = app.NewAdmissionService(e.interests, e.listings, e.tenants, e.groups, tx,
		fsm.NewInterestValidator(), e.lifecycle, e.notifier, logger)
	e.groupSvc = app.NewGroupService(e.groups, e.interests, e.queue, e.notifier, logger)
	e.wishSvc = app.NewWishService(e.wishes, e.listings, e.tenants, e.queue, e.notifier, logger)
	return e
}

// seedListing stores a listing directly, bypassing the draft/publish flow.
func (e *env) seedListing(t *testing.T, id, ownerID string, status domain.ListingStatus) domain.Listing {
	t.Helper()
	l := domain.NewListing(id, ownerID, "Room in Navigli", "Milano", "Navigli", "single", 650, 14, []string{"balcony"})
	l.Status = status
	if status != domain.ListingDraft {
		exp := time.Now().UTC().Add(domain.ListingTTL)
		l.ExpiresAt = &exp
	}
	e.listings.listings[l.ID] = l
	return l
}

// seedProfile stores a tenant profile for the scorer and preferences.
func (e *env) seedProfile(p domain.TenantProfile) {
	e.tenants.profiles[p.ID] = p
}

func (e *env) mustExpress(t *testing.T, listingID, tenantID string) domain.Interest {
	t.Helper()
	in, err := e.queue.ExpressInterest(context.Background(), listingID, tenantID)
	if err != nil {
		t.Fatalf("ExpressInterest(%s, %s) failed: %v", listingID, tenantID, err)
	}
	return in
}
