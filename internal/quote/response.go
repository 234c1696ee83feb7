package quote

import (
	"fmt"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

type draftPayload struct {
	Quote        Draft         `json:"quote"`
	Breakdown    breakdownView `json:"breakdown"`
	TotalDisplay string        `json:"totalDisplay"`
	Warnings     []Warning     `json:"warnings"`
}

type breakdownView struct {
	Base                 pricing.Money      `json:"base"`
	ExpectedTotal        pricing.Money      `json:"expectedTotal"`
	ExpectedTotalDisplay string             `json:"expectedTotalDisplay"`
	Included             []contributionView `json:"included"`
	Excluded             []exclusionView    `json:"excluded"`
}

type contributionView struct {
	AddOnID   string        `json:"addOnId"`
	Name      string        `json:"name"`
	UnitPrice pricing.Money `json:"unitPrice"`
	Units     int           `json:"units"`
	Amount    pricing.Money `json:"amount"`
	Display   string        `json:"display"`
}

type exclusionView struct {
	AddOnID  string           `json:"addOnId"`
	Name     string           `json:"name"`
	Currency pricing.Currency `json:"currency"`
}

// draftResponse shapes the API payload: the draft itself, the live breakdown
// with the arithmetic spelled out, and any advisories.
func draftResponse(d Draft, warnings []Warning) draftPayload {
	bd := d.Breakdown()
	view := breakdownView{
		Base:                 bd.Base,
		ExpectedTotal:        bd.ExpectedTotal,
		ExpectedTotalDisplay: pricing.FormatAmount(bd.ExpectedTotal, d.Currency),
		Included:             make([]contributionView, 0, len(bd.Included)),
		Excluded:             make([]exclusionView, 0, len(bd.Excluded)),
	}
	for _, c := range bd.Included {
		display := pricing.FormatAmount(c.Amount, d.Currency)
		if c.Units > 1 {
			display = fmt.Sprintf("%s x %d = %s",
				pricing.FormatAmount(c.UnitPrice, d.Currency), c.Units, display)
		}
		view.Included = append(view.Included, contributionView{
			AddOnID:   c.AddOnID,
			Name:      c.Name,
			UnitPrice: c.UnitPrice,
			Units:     c.Units,
			Amount:    c.Amount,
			Display:   display,
		})
	}
	for _, ex := range bd.Excluded {
		view.Excluded = append(view.Excluded, exclusionView{
			AddOnID:  ex.AddOnID,
			Name:     ex.Name,
			Currency: ex.Currency,
		})
	}
	if warnings == nil {
		warnings = []Warning{}
	}
	return draftPayload{
		Quote:        d,
		Breakdown:    view,
		TotalDisplay: pricing.FormatAmount(d.TotalPrice, d.Currency),
		Warnings:     warnings,
	}
}
