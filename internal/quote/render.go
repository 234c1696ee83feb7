package quote

import (
	"fmt"
	"strings"
	"time"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// Summary renders a human-readable snapshot of the draft with the price
// breakdown arithmetic spelled out, suitable for export to a customer-facing
// email or document.
func Summary(d Draft) string {
	bd := d.Breakdown()
	cur := d.Currency
	var b strings.Builder

	fmt.Fprintf(&b, "Quote %s\n", d.ID)
	fmt.Fprintf(&b, "Group size: %d\n", d.GroupSize)
	fmt.Fprintf(&b, "Currency: %s\n", cur)
	b.WriteString(baseLine(d))

	if len(bd.Included) > 0 {
		b.WriteString("Add-ons:\n")
		for _, c := range bd.Included {
			if c.Units > 1 {
				fmt.Fprintf(&b, "  - %s: %s x %d = %s\n",
					c.Name,
					pricing.FormatAmount(c.UnitPrice, cur),
					c.Units,
					pricing.FormatAmount(c.Amount, cur))
			} else {
				fmt.Fprintf(&b, "  - %s: %s\n", c.Name, pricing.FormatAmount(c.Amount, cur))
			}
		}
	}
	if len(bd.Excluded) > 0 {
		b.WriteString("Excluded (currency mismatch):\n")
		for _, ex := range bd.Excluded {
			fmt.Fprintf(&b, "  - %s (%s)\n", ex.Name, ex.Currency)
		}
	}

	fmt.Fprintf(&b, "Computed total: %s\n", pricing.FormatAmount(bd.ExpectedTotal, cur))
	fmt.Fprintf(&b, "Quoted total: %s (%s)\n", pricing.FormatAmount(d.TotalPrice, cur), d.SyncStatus)

	if len(d.History) > 0 {
		b.WriteString("Price history:\n")
		for _, h := range d.History {
			fmt.Fprintf(&b, "  - %s %s %s by %s\n",
				h.RecordedAt.Format(time.RFC3339),
				h.Reason,
				pricing.FormatAmount(h.Price, cur),
				h.ActorID)
		}
	}
	return b.String()
}

func baseLine(d Draft) string {
	switch d.BaseSource.Kind {
	case BaseSourcePackage:
		detail := d.BaseSource.PackageID
		if d.BaseSource.TierLabel != "" {
			detail += ", tier " + d.BaseSource.TierLabel
		}
		if d.BaseSource.Period != "" {
			detail += ", " + d.BaseSource.Period
		}
		if d.BaseSource.Nights > 0 {
			detail += fmt.Sprintf(", %d nights", d.BaseSource.Nights)
		}
		return fmt.Sprintf("Base: %s (package %s)\n", pricing.FormatAmount(d.BasePrice, d.Currency), detail)
	case BaseSourceManual:
		return fmt.Sprintf("Base: %s (manual)\n", pricing.FormatAmount(d.BasePrice, d.Currency))
	default:
		return "Base: none\n"
	}
}
