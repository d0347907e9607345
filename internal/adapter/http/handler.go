package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/neomorfeo/stanzaq/internal/app"
	"github.com/neomorfeo/stanzaq/internal/domain"
)

const timeFormat = "2006-01-02T15:04:05Z"

// ListingResponse is the API representation of a listing.
type ListingResponse struct {
	ID           string   `json:"id" doc:"Unique identifier"`
	OwnerID      string   `json:"owner_id" doc:"Owning tenant"`
	Title        string   `json:"title" doc:"Listing title"`
	City         string   `json:"city" doc:"City"`
	Neighborhood string   `json:"neighborhood,omitempty" doc:"Neighborhood"`
	PriceEUR     int      `json:"price_eur" doc:"Monthly price in euro"`
	RoomType     string   `json:"room_type" doc:"Room type"`
	RoomSizeSqm  int      `json:"room_size_sqm,omitempty" doc:"Room size in square meters"`
	Features     []string `json:"features,omitempty" doc:"Feature tags"`
	Status       string   `json:"status" doc:"Lifecycle state"`
	ExpiresAt    string   `json:"expires_at,omitempty" doc:"Expiry timestamp (ISO 8601)"`
	CreatedAt    string   `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toListingResponse(l domain.Listing) ListingResponse {
	resp := ListingResponse{
		ID:           l.ID,
		OwnerID:      l.OwnerID,
		Title:        l.Title,
		City:         l.City,
		Neighborhood: l.Neighborhood,
		PriceEUR:     l.PriceEUR,
		RoomType:     l.RoomType,
		RoomSizeSqm:  l.RoomSizeSqm,
		Features:     l.Features,
		Status:       string(l.Status),
		CreatedAt:    l.CreatedAt.Format(timeFormat),
	}
	if l.ExpiresAt != nil {
		resp.ExpiresAt = l.ExpiresAt.Format(timeFormat)
	}
	return resp
}

// InterestResponse is the API representation of an interest.
type InterestResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	ListingID string `json:"listing_id" doc:"Listing applied to"`
	TenantID  string `json:"tenant_id" doc:"Applicant (representative for groups)"`
	GroupID   string `json:"group_id,omitempty" doc:"Group, when applying as one"`
	Status    string `json:"status" doc:"Queue state"`
	Position  int    `json:"position" doc:"Queue ordinal"`
	Score     int    `json:"score" doc:"Engagement score frozen at enqueue"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toInterestResponse(in domain.Interest) InterestResponse {
	return InterestResponse{
		ID:        in.ID,
		ListingID: in.ListingID,
		TenantID:  in.TenantID,
		GroupID:   in.GroupID,
		Status:    string(in.Status),
		Position:  in.Position,
		Score:     in.Score,
		CreatedAt: in.CreatedAt.Format(timeFormat),
	}
}

// GroupResponse is the API representation of a housemate group.
type GroupResponse struct {
	ID        string `json:"id" doc:"Unique identifier"`
	Name      string `json:"name" doc:"Group name"`
	OwnerID   string `json:"owner_id" doc:"Owning tenant"`
	CreatedAt string `json:"created_at" doc:"Creation timestamp (ISO 8601)"`
}

func toGroupResponse(g domain.HousemateGroup) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt.Format(timeFormat),
	}
}

// MembershipResponse is the API representation of a group membership.
type MembershipResponse struct {
	GroupID  string `json:"group_id" doc:"Group"`
	TenantID string `json:"tenant_id" doc:"Member"`
	Role     string `json:"role" doc:"owner or member"`
	Status   string `json:"status" doc:"pending, accepted or declined"`
	JoinedAt string `json:"joined_at" doc:"Join timestamp (ISO 8601)"`
}

func toMembershipResponse(m domain.GroupMembership) MembershipResponse {
	return MembershipResponse{
		GroupID:  m.GroupID,
		TenantID: m.TenantID,
		Role:     string(m.Role),
		Status:   string(m.Status),
		JoinedAt: m.JoinedAt.Format(timeFormat),
	}
}

// WishResponse is the API representation of a saved search.
type WishResponse struct {
	ID           string   `json:"id" doc:"Unique identifier"`
	City         string   `json:"city,omitempty" doc:"City filter"`
	Neighborhood string   `json:"neighborhood,omitempty" doc:"Neighborhood filter"`
	PriceMin     int      `json:"price_min,omitempty" doc:"Minimum price in euro"`
	PriceMax     int      `json:"price_max,omitempty" doc:"Maximum price in euro (0 = no cap)"`
	RoomTypes    []string `json:"room_types,omitempty" doc:"Accepted room types"`
	MinSizeSqm   int      `json:"min_size_sqm,omitempty" doc:"Minimum room size"`
	Features     []string `json:"features,omitempty" doc:"Required feature tags"`
	Active       bool     `json:"active" doc:"Whether the wish is matched"`
}

func toWishResponse(w domain.Wish) WishResponse {
	return WishResponse{
		ID:           w.ID,
		City:         w.City,
		Neighborhood: w.Neighborhood,
		PriceMin:     w.PriceMin,
		PriceMax:     w.PriceMax,
		RoomTypes:    w.RoomTypes,
		MinSizeSqm:   w.MinSizeSqm,
		Features:     w.Features,
		Active:       w.Active,
	}
}

// QueueStatusResponse is the queue read model for one listing.
type QueueStatusResponse struct {
	CanExpress     bool              `json:"can_express" doc:"Whether the caller may express interest"`
	QueueFull      bool              `json:"queue_full" doc:"Whether all active slots are taken"`
	ActiveCount    int               `json:"active_count" doc:"Interests holding an active slot"`
	WaitingCount   int               `json:"waiting_count" doc:"Interests on the waitlist"`
	CallerInterest *InterestResponse `json:"caller_interest,omitempty" doc:"The caller's own open interest, if any"`
}

// --- Listings ---

type CreateListingInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	Body     struct {
		Title        string   `json:"title" minLength:"1" maxLength:"255" doc:"Listing title"`
		City         string   `json:"city" minLength:"1" maxLength:"100" doc:"City"`
		Neighborhood string   `json:"neighborhood,omitempty" maxLength:"100" doc:"Neighborhood"`
		PriceEUR     int      `json:"price_eur" minimum:"1" doc:"Monthly price in euro"`
		RoomType     string   `json:"room_type" minLength:"1" maxLength:"50" doc:"Room type"`
		RoomSizeSqm  int      `json:"room_size_sqm,omitempty" minimum:"0" doc:"Room size in square meters"`
		Features     []string `json:"features,omitempty" doc:"Feature tags"`
	}
}

type CreateListingOutput struct {
	Body ListingResponse
}

type ListingActionInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Listing ID"`
}

type ListingOutput struct {
	Body ListingResponse
}

type ListingEventInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Listing ID"`
	Body     struct {
		Event string `json:"event" doc:"Lifecycle event to trigger" enum:"pause,resume,rent,archive"`
	}
}

// --- Queue ---

type QueueStatusInput struct {
	TenantID string `header:"X-Tenant-ID" required:"false" doc:"Caller identity, optional for anonymous reads"`
	ID       string `path:"id" doc:"Listing ID"`
}

type QueueStatusOutput struct {
	Body QueueStatusResponse
}

type ExpressInterestInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Listing ID"`
	Body     struct {
		GroupID string `json:"group_id,omitempty" doc:"Apply on behalf of this group"`
	}
}

type ExpressInterestOutput struct {
	Body InterestResponse
}

type WithdrawInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Listing ID"`
	GroupID  string `query:"group_id" required:"false" doc:"Withdraw this group's application instead of the caller's own"`
}

type WithdrawOutput struct {
	Status int
}

// --- Groups ---

type CreateGroupInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	Body     struct {
		Name string `json:"name" minLength:"1" maxLength:"255" doc:"Group name"`
	}
}

type CreateGroupOutput struct {
	Body GroupResponse
}

type InviteInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Group ID"`
	Body     struct {
		TenantID string `json:"tenant_id" minLength:"1" doc:"Tenant to invite"`
	}
}

type InviteOutput struct {
	Body MembershipResponse
}

type RespondInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Group ID"`
	Body     struct {
		Accept bool `json:"accept" doc:"Accept or decline the invite"`
	}
}

type RespondOutput struct {
	Body MembershipResponse
}

type RemoveMemberInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Group ID"`
	MemberID string `path:"memberId" doc:"Member to remove; removing yourself leaves the group"`
}

type RemoveMemberOutput struct {
	Status int
}

// --- Wishes ---

type CreateWishInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	Body     struct {
		City         string   `json:"city,omitempty" maxLength:"100" doc:"City filter"`
		Neighborhood string   `json:"neighborhood,omitempty" maxLength:"100" doc:"Neighborhood filter"`
		PriceMin     int      `json:"price_min,omitempty" minimum:"0" doc:"Minimum price in euro"`
		PriceMax     int      `json:"price_max,omitempty" minimum:"0" doc:"Maximum price in euro (0 = no cap)"`
		RoomTypes    []string `json:"room_types,omitempty" doc:"Accepted room types"`
		MinSizeSqm   int      `json:"min_size_sqm,omitempty" minimum:"0" doc:"Minimum room size"`
		Features     []string `json:"features,omitempty" doc:"Required feature tags"`
	}
}

type CreateWishOutput struct {
	Body WishResponse
}

type ListWishesInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
}

type ListWishesOutput struct {
	Body []WishResponse
}

type DeactivateWishInput struct {
	TenantID string `header:"X-Tenant-ID" required:"true" doc:"Caller identity"`
	ID       string `path:"id" doc:"Wish ID"`
}

type DeactivateWishOutput struct {
	Status int
}

// --- Sweeps ---

type SweepOutput struct {
	Body struct {
		Processed int `json:"processed" doc:"Items processed by the sweep"`
	}
}

// Services bundles the application services the API exposes.
type Services struct {
	Lifecycle *app.LifecycleService
	Queue     *app.AdmissionService
	Groups    *app.GroupService
	Wishes    *app.WishService
}

// Register adds all queue engine routes to the Huma API.
func Register(api huma.API, svc Services) {
	registerListings(api, svc)
	registerQueue(api, svc)
	registerGroups(api, svc)
	registerWishes(api, svc)
	registerSweeps(api, svc)
}

func registerListings(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-listing",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings",
		Summary:     "Create a draft listing",
		Tags:        []string{"Listings"},
	}, func(ctx context.Context, input *CreateListingInput) (*CreateListingOutput, error) {
		listing, err := svc.Lifecycle.CreateListing(ctx, input.TenantID,
			input.Body.Title, input.Body.City, input.Body.Neighborhood,
			input.Body.RoomType, input.Body.PriceEUR, input.Body.RoomSizeSqm,
			input.Body.Features)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateListingOutput{Body: toListingResponse(listing)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "publish-listing",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/publish",
		Summary:     "Publish a draft listing",
		Tags:        []string{"Listings"},
	}, func(ctx context.Context, input *ListingActionInput) (*ListingOutput, error) {
		listing, err := svc.Lifecycle.Publish(ctx, input.ID, input.TenantID, time.Now().UTC())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListingOutput{Body: toListingResponse(listing)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "renew-listing",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/renew",
		Summary:     "Extend or revive a listing for another term",
		Tags:        []string{"Listings"},
	}, func(ctx context.Context, input *ListingActionInput) (*ListingOutput, error) {
		listing, err := svc.Lifecycle.Renew(ctx, input.ID, input.TenantID, time.Now().UTC())
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListingOutput{Body: toListingResponse(listing)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "transition-listing",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/events",
		Summary:     "Trigger an owner-driven lifecycle event",
		Tags:        []string{"Listings"},
	}, func(ctx context.Context, input *ListingEventInput) (*ListingOutput, error) {
		listing, err := svc.Lifecycle.Transition(ctx, input.ID, input.TenantID,
			domain.ListingEvent(input.Body.Event))
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ListingOutput{Body: toListingResponse(listing)}, nil
	})
}

func registerQueue(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "queue-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/listings/{id}/queue",
		Summary:     "Read the listing's queue state",
		Tags:        []string{"Queue"},
	}, func(ctx context.Context, input *QueueStatusInput) (*QueueStatusOutput, error) {
		status, err := svc.Queue.Status(ctx, input.ID, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := QueueStatusResponse{
			CanExpress:   status.CanExpress,
			QueueFull:    status.QueueFull,
			ActiveCount:  status.ActiveCount,
			WaitingCount: status.WaitingCount,
		}
		if status.CallerInterest != nil {
			in := toInterestResponse(*status.CallerInterest)
			resp.CallerInterest = &in
		}
		return &QueueStatusOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "express-interest",
		Method:      http.MethodPost,
		Path:        "/api/v1/listings/{id}/interest",
		Summary:     "Express interest in a listing, solo or as a group",
		Tags:        []string{"Queue"},
	}, func(ctx context.Context, input *ExpressInterestInput) (*ExpressInterestOutput, error) {
		var (
			in  domain.Interest
			err error
		)
		if input.Body.GroupID != "" {
			in, err = svc.Groups.Apply(ctx, input.ID, input.Body.GroupID, input.TenantID)
		} else {
			in, err = svc.Queue.ExpressInterest(ctx, input.ID, input.TenantID)
		}
		if err != nil {
			return nil, toHumaError(err)
		}
		return &ExpressInterestOutput{Body: toInterestResponse(in)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "withdraw-interest",
		Method:      http.MethodDelete,
		Path:        "/api/v1/listings/{id}/interest",
		Summary:     "Withdraw from a listing's queue",
		Tags:        []string{"Queue"},
	}, func(ctx context.Context, input *WithdrawInput) (*WithdrawOutput, error) {
		var err error
		if input.GroupID != "" {
			err = svc.Groups.WithdrawApplication(ctx, input.ID, input.GroupID, input.TenantID)
		} else {
			err = svc.Queue.Withdraw(ctx, input.ID, input.TenantID)
		}
		if err != nil {
			return nil, toHumaError(err)
		}
		return &WithdrawOutput{Status: http.StatusNoContent}, nil
	})
}

func registerGroups(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-group",
		Method:      http.MethodPost,
		Path:        "/api/v1/groups",
		Summary:     "Create a housemate group",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *CreateGroupInput) (*CreateGroupOutput, error) {
		group, err := svc.Groups.CreateGroup(ctx, input.Body.Name, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateGroupOutput{Body: toGroupResponse(group)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "invite-member",
		Method:      http.MethodPost,
		Path:        "/api/v1/groups/{id}/invites",
		Summary:     "Invite a tenant to the group",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *InviteInput) (*InviteOutput, error) {
		member, err := svc.Groups.Invite(ctx, input.ID, input.TenantID, input.Body.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &InviteOutput{Body: toMembershipResponse(member)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "respond-invite",
		Method:      http.MethodPost,
		Path:        "/api/v1/groups/{id}/invites/response",
		Summary:     "Accept or decline your pending invite",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *RespondInput) (*RespondOutput, error) {
		member, err := svc.Groups.Respond(ctx, input.ID, input.TenantID, input.Body.Accept)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RespondOutput{Body: toMembershipResponse(member)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "remove-member",
		Method:      http.MethodDelete,
		Path:        "/api/v1/groups/{id}/members/{memberId}",
		Summary:     "Remove a member, or leave the group yourself",
		Tags:        []string{"Groups"},
	}, func(ctx context.Context, input *RemoveMemberInput) (*RemoveMemberOutput, error) {
		var err error
		if input.MemberID == input.TenantID {
			err = svc.Groups.Leave(ctx, input.ID, input.TenantID)
		} else {
			err = svc.Groups.RemoveMember(ctx, input.ID, input.TenantID, input.MemberID)
		}
		if err != nil {
			return nil, toHumaError(err)
		}
		return &RemoveMemberOutput{Status: http.StatusNoContent}, nil
	})
}

func registerWishes(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "create-wish",
		Method:      http.MethodPost,
		Path:        "/api/v1/wishes",
		Summary:     "Save a search to match against new listings",
		Tags:        []string{"Wishes"},
	}, func(ctx context.Context, input *CreateWishInput) (*CreateWishOutput, error) {
		wish, err := svc.Wishes.CreateWish(ctx, input.TenantID,
			input.Body.City, input.Body.Neighborhood,
			input.Body.PriceMin, input.Body.PriceMax,
			input.Body.RoomTypes, input.Body.MinSizeSqm, input.Body.Features)
		if err != nil {
			return nil, toHumaError(err)
		}
		return &CreateWishOutput{Body: toWishResponse(wish)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-wishes",
		Method:      http.MethodGet,
		Path:        "/api/v1/wishes",
		Summary:     "List your saved searches",
		Tags:        []string{"Wishes"},
	}, func(ctx context.Context, input *ListWishesInput) (*ListWishesOutput, error) {
		wishes, err := svc.Wishes.ListWishes(ctx, input.TenantID)
		if err != nil {
			return nil, toHumaError(err)
		}
		resp := make([]WishResponse, len(wishes))
		for i, w := range wishes {
			resp[i] = toWishResponse(w)
		}
		return &ListWishesOutput{Body: resp}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "deactivate-wish",
		Method:      http.MethodDelete,
		Path:        "/api/v1/wishes/{id}",
		Summary:     "Deactivate a saved search",
		Tags:        []string{"Wishes"},
	}, func(ctx context.Context, input *DeactivateWishInput) (*DeactivateWishOutput, error) {
		if err := svc.Wishes.DeactivateWish(ctx, input.ID, input.TenantID); err != nil {
			return nil, toHumaError(err)
		}
		return &DeactivateWishOutput{Status: http.StatusNoContent}, nil
	})
}

func registerSweeps(api huma.API, svc Services) {
	huma.Register(api, huma.Operation{
		OperationID: "trigger-expire-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweeps/expire",
		Summary:     "Expire listings past their expiry time now",
		Tags:        []string{"Sweeps"},
	}, func(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
		n, err := svc.Lifecycle.ExpireDueListings(ctx, time.Now().UTC())
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &SweepOutput{}
		out.Body.Processed = n
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "trigger-wish-sweep",
		Method:      http.MethodPost,
		Path:        "/api/v1/sweeps/wishes",
		Summary:     "Match all active wishes against accepting listings now",
		Tags:        []string{"Sweeps"},
	}, func(ctx context.Context, _ *struct{}) (*SweepOutput, error) {
		n, err := svc.Wishes.BatchMatch(ctx)
		if err != nil {
			return nil, toHumaError(err)
		}
		out := &SweepOutput{}
		out.Body.Processed = n
		return out, nil
	})
}

// toHumaError translates domain errors to Huma HTTP errors.
func toHumaError(err error) error {
	switch {
	case errors.Is(err, domain.ErrListingNotFound):
		return huma.Error404NotFound("listing not found")
	case errors.Is(err, domain.ErrInterestNotFound):
		return huma.Error404NotFound("interest not found")
	case errors.Is(err, domain.ErrGroupNotFound):
		return huma.Error404NotFound("group not found")
	case errors.Is(err, domain.ErrMemberNotFound):
		return huma.Error404NotFound("group member not found")
	case errors.Is(err, domain.ErrWishNotFound):
		return huma.Error404NotFound("wish not found")
	}

	var applied *domain.AlreadyAppliedError
	if errors.As(err, &applied) {
		return huma.Error409Conflict(applied.Error())
	}

	var notEligible *domain.NotEligibleError
	if errors.As(err, &notEligible) {
		return huma.Error422UnprocessableEntity(notEligible.Error())
	}

	var inTrErr *domain.InterestTransitionError
	if errors.As(err, &inTrErr) {
		return huma.Error422UnprocessableEntity(inTrErr.Error())
	}

	var liTrErr *domain.ListingTransitionError
	if errors.As(err, &liTrErr) {
		return huma.Error422UnprocessableEntity(liTrErr.Error())
	}

	return huma.Error500InternalServerError("internal server error")
}
