package quote

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/mira-stack/backend-quotes/internal/catalog"
)

// Resolver batches catalog lookups for the controller. Duplicate ids are
// collapsed into a single request.
type Resolver struct {
	Provider catalog.Provider
}

// Resolve fetches the catalog records for the given add-on ids. Ids without a
// record are simply absent from the result map; classifying that as blocking
// or advisory is the caller's concern.
func (r *Resolver) Resolve(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]catalog.AddOn, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]catalog.AddOn{}, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	found, err := r.Provider.LookupAddOns(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("resolve add-ons: %w", err)
	}
	out := make(map[uuid.UUID]catalog.AddOn, len(found))
	for _, a := range found {
		out[a.ID] = a
	}
	return out, nil
}
