package pricing

// LineItem describes one selected add-on used for aggregation. The values are
// the snapshot taken when the add-on was selected, never a live catalog read.
type LineItem struct {
	AddOnID   string
	Name      string
	UnitPrice Money
	Currency  Currency
	PerUnit   bool
}

// Contribution is one add-on's share of the expected total.
type Contribution struct {
	AddOnID   string
	Name      string
	UnitPrice Money
	Units     int
	Amount    Money
}

// Exclusion records an add-on left out of the total because its currency does
// not match the quote currency. Excluded amounts are never converted.
type Exclusion struct {
	AddOnID  string
	Name     string
	Currency Currency
}

// Breakdown aggregates computed pricing components for a quote.
type Breakdown struct {
	Base          Money
	Currency      Currency
	ExpectedTotal Money
	Included      []Contribution
	Excluded      []Exclusion
}

// Tolerance is the maximum difference, in minor units, between a stored total
// and the computed expected total for the quote to still count as synced.
const Tolerance Money = 1

// Cost calculates a single add-on's contribution to the total. Currency
// mismatches contribute zero; per-unit items are multiplied by group size.
func Cost(item LineItem, target Currency, groupSize int) Money {
	if item.Currency != target {
		return 0
	}
	if item.PerUnit {
		return item.UnitPrice * Money(groupSize)
	}
	return item.UnitPrice
}

// Aggregate computes the expected total for a base price plus the selected
// add-ons. It is a pure function: identical inputs produce identical output.
func Aggregate(base Money, items []LineItem, target Currency, groupSize int) Breakdown {
	bd := Breakdown{
		Base:          base,
		Currency:      target,
		ExpectedTotal: base,
		Included:      make([]Contribution, 0, len(items)),
	}
	for _, item := range items {
		if item.Currency != target {
			bd.Excluded = append(bd.Excluded, Exclusion{
				AddOnID:  item.AddOnID,
				Name:     item.Name,
				Currency: item.Currency,
			})
			continue
		}
		units := 1
		if item.PerUnit {
			units = groupSize
		}
		amount := Cost(item, target, groupSize)
		bd.Included = append(bd.Included, Contribution{
			AddOnID:   item.AddOnID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Units:     units,
			Amount:    amount,
		})
		bd.ExpectedTotal += amount
	}
	return bd
}

// InTolerance reports whether a stored total matches the expected total within
// the one-cent tolerance.
func InTolerance(total, expected Money) bool {
	diff := total - expected
	if diff < 0 {
		diff = -diff
	}
	return diff <= Tolerance
}
