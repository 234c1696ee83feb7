package catalog

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
)

// MockProvider serves catalog data from memory and is useful for development
// and tests.
type MockProvider struct {
	mu       sync.RWMutex
	addOns   map[uuid.UUID]AddOn
	packages map[string]PackagePrice
}

// NewMockProvider seeds a provider with a small EUR-denominated catalog.
func NewMockProvider() *MockProvider {
	m := &MockProvider{
		addOns:   map[uuid.UUID]AddOn{},
		packages: map[string]PackagePrice{},
	}
	seed := []AddOn{
		{ID: uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d001"), Name: "Guided city tour", UnitPrice: 5_000, Currency: pricing.CurrencyEUR, PerUnitDefault: true, IsActive: true},
		{ID: uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d002"), Name: "Gala dinner", UnitPrice: 7_500, Currency: pricing.CurrencyEUR, PerUnitDefault: true, IsActive: true},
		{ID: uuid.MustParse("6f1f06ab-3a68-4a39-9a41-47f4a2a6d003"), Name: "Airport transfer", UnitPrice: 30_000, Currency: pricing.CurrencyEUR, PerUnitDefault: false, IsActive: true},
	}
	for _, a := range seed {
		m.addOns[a.ID] = a
	}
	m.packages["CLASSIC-ALPS"] = PackagePrice{Amount: 50_000, Currency: pricing.CurrencyEUR}
	m.packages["EXPEDITION"] = PackagePrice{OnRequest: true}
	return m
}

// SetAddOn inserts or replaces an add-on record.
func (m *MockProvider) SetAddOn(a AddOn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addOns[a.ID] = a
}

// RemoveAddOn hard-deletes an add-on, simulating a purged catalog entry.
func (m *MockProvider) RemoveAddOn(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.addOns, id)
}

// SetPackage registers a package price keyed by package id.
func (m *MockProvider) SetPackage(packageID string, price PackagePrice) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[strings.ToUpper(packageID)] = price
}

// LookupAddOns implements Provider. Unknown ids are omitted from the result.
func (m *MockProvider) LookupAddOns(_ context.Context, ids []uuid.UUID) ([]AddOn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]AddOn, 0, len(ids))
	for _, id := range ids {
		if a, ok := m.addOns[id]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// PackagePrice implements Provider.
func (m *MockProvider) PackagePrice(_ context.Context, req PackagePriceReq) (PackagePrice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.packages[strings.ToUpper(req.PackageID)]; ok {
		return p, nil
	}
	return PackagePrice{}, ErrUnavailable
}
