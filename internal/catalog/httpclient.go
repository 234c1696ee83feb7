package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/pricing"
	"github.com/mira-stack/backend-quotes/internal/resilience"
)

// HTTPClient talks to the catalog service over HTTP. Requests go through a
// circuit breaker so a flapping catalog degrades quotes to their last known
// totals instead of hammering the dependency.
type HTTPClient struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Breaker *resilience.Breaker
	Timeout time.Duration
}

type addOnLookupRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type addOnLookupResponse struct {
	AddOns []addOnPayload `json:"addOns"`
}

type addOnPayload struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	UnitPrice      string    `json:"unitPrice"`
	Currency       string    `json:"currency"`
	PerUnitDefault bool      `json:"perUnitDefault"`
	IsActive       bool      `json:"isActive"`
}

type packagePriceResponse struct {
	Price    string `json:"price"`
	Currency string `json:"currency"`
}

// LookupAddOns batches a set of add-on ids into one catalog call.
func (c *HTTPClient) LookupAddOns(ctx context.Context, ids []uuid.UUID) ([]AddOn, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(addOnLookupRequest{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("catalog: encode lookup request: %w", err)
	}
	var decoded addOnLookupResponse
	if err := c.call(ctx, http.MethodPost, "/v1/addons/lookup", body, &decoded); err != nil {
		return nil, err
	}
	addOns := make([]AddOn, 0, len(decoded.AddOns))
	for _, p := range decoded.AddOns {
		amount, err := pricing.ParseAmount(p.UnitPrice)
		if err != nil {
			return nil, fmt.Errorf("catalog: add-on %s price: %w", p.ID, err)
		}
		currency, err := pricing.ParseCurrency(p.Currency)
		if err != nil {
			return nil, fmt.Errorf("catalog: add-on %s: %w", p.ID, err)
		}
		addOns = append(addOns, AddOn{
			ID:             p.ID,
			Name:           p.Name,
			UnitPrice:      amount,
			Currency:       currency,
			PerUnitDefault: p.PerUnitDefault,
			IsActive:       p.IsActive,
		})
	}
	return addOns, nil
}

// PackagePrice fetches the base price for a package tier and period. A price
// of "ON_REQUEST" marks the package as manually negotiated.
func (c *HTTPClient) PackagePrice(ctx context.Context, req PackagePriceReq) (PackagePrice, error) {
	if strings.TrimSpace(req.PackageID) == "" {
		return PackagePrice{}, errors.New("catalog: package id is required")
	}
	path := fmt.Sprintf("/v1/packages/%s/price?tier=%s&period=%s&nights=%d&groupSize=%d",
		req.PackageID, req.Tier, req.Period, req.Nights, req.GroupSize)
	var decoded packagePriceResponse
	if err := c.call(ctx, http.MethodGet, path, nil, &decoded); err != nil {
		return PackagePrice{}, err
	}
	if strings.EqualFold(strings.TrimSpace(decoded.Price), "ON_REQUEST") {
		return PackagePrice{OnRequest: true}, nil
	}
	amount, err := pricing.ParseAmount(decoded.Price)
	if err != nil {
		return PackagePrice{}, fmt.Errorf("catalog: package %s price: %w", req.PackageID, err)
	}
	currency, err := pricing.ParseCurrency(decoded.Currency)
	if err != nil {
		return PackagePrice{}, fmt.Errorf("catalog: package %s: %w", req.PackageID, err)
	}
	return PackagePrice{Amount: amount, Currency: currency}, nil
}

func (c *HTTPClient) call(ctx context.Context, method, path string, body []byte, dst any) error {
	if c == nil || strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("catalog: client not configured")
	}
	if c.Breaker != nil && !c.Breaker.Allow() {
		return fmt.Errorf("%w: %s", ErrUnavailable, resilience.ErrOpenCircuit)
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(callCtx, method, strings.TrimRight(c.BaseURL, "/")+path, reader)
	if err != nil {
		c.report(false)
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		c.report(false)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 500 {
		c.report(false)
		return fmt.Errorf("%w: catalog returned %s", ErrUnavailable, resp.Status)
	}
	if resp.StatusCode != http.StatusOK {
		c.report(true)
		return fmt.Errorf("catalog: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		c.report(false)
		return fmt.Errorf("catalog: decode response: %w", err)
	}
	c.report(true)
	return nil
}

func (c *HTTPClient) report(success bool) {
	if c.Breaker != nil {
		c.Breaker.Report(success)
	}
}
