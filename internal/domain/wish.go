package domain

import (
	"strings"
	"time"
)

// Wish is a tenant's saved search, matched against newly published
// listings to auto-enqueue the tenant.
type Wish struct {
	ID           string
	TenantID     string
	City         string
	Neighborhood string
	PriceMin     int
	PriceMax     int
	RoomTypes    []string
	MinSizeSqm   int
	Features     []string
	Active       bool
	CreatedAt    time.Time
}

// NewWish creates an active wish.
func NewWish(id, tenantID, city, neighborhood string, priceMin, priceMax int, roomTypes []string, minSizeSqm int, features []string) Wish {
	return Wish{
		ID:           id,
		TenantID:     tenantID,
		City:         city,
		Neighborhood: neighborhood,
		PriceMin:     priceMin,
		PriceMax:     priceMax,
		RoomTypes:    roomTypes,
		MinSizeSqm:   minSizeSqm,
		Features:     features,
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}
}

// Matches reports whether the listing satisfies every criterion set on
// the wish. Zero values mean "no constraint": empty city matches any
// city, PriceMax 0 means no price cap, an empty RoomTypes slice matches
// any room type.
func (w Wish) Matches(l Listing) bool {
	if w.City != "" && !strings.EqualFold(w.City, l.City) {
		return false
	}
	if w.Neighborhood != "" && !neighborhoodMatch(w.Neighborhood, l.Neighborhood) {
		return false
	}
	if l.PriceEUR < w.PriceMin {
		return false
	}
	if w.PriceMax > 0 && l.PriceEUR > w.PriceMax {
		return false
	}
	if len(w.RoomTypes) > 0 && !containsFold(w.RoomTypes, l.RoomType) {
		return false
	}
	if w.MinSizeSqm > 0 && l.RoomSizeSqm < w.MinSizeSqm {
		return false
	}
	for _, f := range w.Features {
		if !containsFold(l.Features, f) {
			return false
		}
	}
	return true
}

// neighborhoodMatch accepts a substring relation in either direction,
// so "Navigli" matches "Navigli Sud" and vice versa.
func neighborhoodMatch(want, have string) bool {
	if have == "" {
		return false
	}
	a := strings.ToLower(want)
	b := strings.ToLower(have)
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func containsFold(haystack []string, needle string) bool {
	for _, s := range haystack {
		if strings.EqualFold(s, needle) {
			return true
		}
	}
	return false
}
