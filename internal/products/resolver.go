// internal/products/resolver.go
package products

import (
	"context"
	"fmt"

	"github.com/javajoker/paywallkit/internal/models"
)

// Fetcher retrieves store product descriptors by identifier. Implementations
// must be safe to call concurrently.
type Fetcher interface {
	Products(ctx context.Context, ids []string) ([]*models.StoreProduct, error)
}

// FetchError wraps an underlying catalog fetch failure. Resolution is
// all-or-nothing: when the fetch fails no partial mapping is returned.
type FetchError struct {
	IDs []string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch products %v: %v", e.IDs, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Resolver maps requested product ids and an optional substitution bundle to
// concrete store products.
type Resolver struct {
	fetcher Fetcher
}

func NewResolver(fetcher Fetcher) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve applies substitutions, fetches whatever is still needed and returns
// the merged product map plus the ordered resolved-product sequence.
func (r *Resolver) Resolve(
	ctx context.Context,
	requested []string,
	subs *models.Substitutions,
	prior []models.ResolvedProduct,
) (map[string]*models.StoreProduct, []models.ResolvedProduct, error) {
	need, byID, resolved := substitute(requested, subs, prior)

	fetched, err := r.fetcher.Products(ctx, need)
	if err != nil {
		return nil, nil, &FetchError{IDs: need, Err: err}
	}
	// Fetched products merge under their own identifier, never a slot.
	for _, p := range fetched {
		byID[p.ID] = p
	}

	return byID, resolved, nil
}

// substitute removes the request id at each substitute's slot index and places
// the substitute into the resolved sequence at that index. Removal is strictly
// positional and operates on the already-shrunk list; both the removal and the
// sequence placement are bounds-checked no-ops when the index does not exist.
// The substitute is recorded in the product map either way.
func substitute(
	requested []string,
	subs *models.Substitutions,
	prior []models.ResolvedProduct,
) ([]string, map[string]*models.StoreProduct, []models.ResolvedProduct) {
	need := append([]string(nil), requested...)
	resolved := append([]models.ResolvedProduct(nil), prior...)
	byID := make(map[string]*models.StoreProduct)

	for slot := models.SlotPrimary; slot <= models.SlotTertiary; slot++ {
		sub := subs.At(slot)
		if sub == nil {
			continue
		}

		byID[sub.ID] = sub

		idx := int(slot)
		if idx < len(need) {
			need = append(need[:idx], need[idx+1:]...)
		}

		entry := models.ResolvedProduct{Slot: slot, ProductID: sub.ID}
		switch {
		case idx < len(resolved):
			resolved[idx] = entry
		case idx == len(resolved):
			resolved = append(resolved, entry)
		}
		// An index beyond the next free position stays out of the sequence;
		// the product is still available through the map.
	}

	return need, byID, resolved
}
