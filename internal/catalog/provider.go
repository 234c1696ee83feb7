package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// ErrUnavailable indicates the catalog could not be reached at all.
var ErrUnavailable = errors.New("catalog unavailable")

// AddOn is the catalog's live record for an optional excursion or extra.
// Inactive add-ons are still returned so callers can warn instead of fail.
type AddOn struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	UnitPrice      pricing.Money    `json:"unitPrice"`
	Currency       pricing.Currency `json:"currency"`
	PerUnitDefault bool             `json:"perUnitDefault"`
	IsActive       bool             `json:"isActive"`
}

// PackagePriceReq describes a base-package price lookup.
type PackagePriceReq struct {
	PackageID      string
	PackageVersion int
	Tier           string
	Period         string
	Nights         int
	GroupSize      int
}

// PackagePrice is the result of a base-package lookup. OnRequest marks
// packages whose price must be negotiated manually; such results never carry
// an amount.
type PackagePrice struct {
	Amount    pricing.Money    `json:"amount"`
	Currency  pricing.Currency `json:"currency"`
	OnRequest bool             `json:"onRequest"`
}

// Provider models the read-only catalog collaborator. Lookups return only the
// add-ons that exist; ids with no record are simply absent from the result.
type Provider interface {
	LookupAddOns(ctx context.Context, ids []uuid.UUID) ([]AddOn, error)
	PackagePrice(ctx context.Context, req PackagePriceReq) (PackagePrice, error)
}
