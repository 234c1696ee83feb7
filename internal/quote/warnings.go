package quote

import (
	"fmt"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// WarningCode classifies non-blocking advisories surfaced to the operator.
type WarningCode string

const (
	// WarnCurrencyExcluded flags an add-on left out of the total because its
	// snapshot currency differs from the quote currency.
	WarnCurrencyExcluded WarningCode = "CURRENCY_EXCLUDED"
	// WarnAddOnInactive flags a selection whose catalog record is disabled.
	WarnAddOnInactive WarningCode = "ADDON_INACTIVE"
	// WarnAddOnMissing flags a selection whose catalog record was deleted.
	// The snapshot keeps contributing.
	WarnAddOnMissing WarningCode = "ADDON_MISSING"
	// WarnPriceDrift flags a snapshot whose unit price no longer matches the
	// live catalog price.
	WarnPriceDrift WarningCode = "PRICE_DRIFT"
	// WarnPriceOnRequest flags a package priced on request; no numeric base
	// is available and the operator must enter one manually.
	WarnPriceOnRequest WarningCode = "PRICE_ON_REQUEST"
	// WarnCatalogError flags a failed base-price lookup.
	WarnCatalogError WarningCode = "CATALOG_ERROR"
)

// Warning is a non-blocking advisory attached to a mutation result.
type Warning struct {
	Code    WarningCode `json:"code"`
	AddOnID string      `json:"addOnId,omitempty"`
	Message string      `json:"message"`
}

func exclusionWarnings(bd pricing.Breakdown) []Warning {
	if len(bd.Excluded) == 0 {
		return nil
	}
	out := make([]Warning, 0, len(bd.Excluded))
	for _, ex := range bd.Excluded {
		out = append(out, Warning{
			Code:    WarnCurrencyExcluded,
			AddOnID: ex.AddOnID,
			Message: fmt.Sprintf("%s is priced in %s and is excluded from the %s total", ex.Name, ex.Currency, bd.Currency),
		})
	}
	return out
}
