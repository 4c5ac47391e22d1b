// internal/products/manager.go
package products

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/storage"
)

// Receipts exposes the platform receipt: a refresh that may prompt the user
// to re-authenticate, and the set of product ids the receipt proves purchased.
type Receipts interface {
	Refresh(ctx context.Context) error
	PurchasedProductIDs(ctx context.Context) (map[string]bool, error)
}

// Manager owns the last-known product catalog and the purchased-product set.
// All mutable state is confined behind its mutex; resolution, purchase
// classification and restoration bookkeeping all linearize through it.
type Manager struct {
	mu           sync.Mutex
	productsByID map[string]*models.StoreProduct
	purchased    map[string]bool

	resolver *Resolver
	receipts Receipts
	store    storage.Store
	log      *logrus.Logger

	// externalPurchaseController means the host app owns purchase state and
	// the manager must not re-derive it from the receipt.
	externalPurchaseController bool
}

func NewManager(
	resolver *Resolver,
	receipts Receipts,
	store storage.Store,
	externalPurchaseController bool,
	log *logrus.Logger,
) *Manager {
	m := &Manager{
		productsByID:               make(map[string]*models.StoreProduct),
		resolver:                   resolver,
		receipts:                   receipts,
		store:                      store,
		externalPurchaseController: externalPurchaseController,
		log:                        log,
	}

	var cached []string
	if store != nil && store.GetJSON(storage.KeyPurchasedProductIDs, &cached) {
		m.purchased = make(map[string]bool, len(cached))
		for _, id := range cached {
			m.purchased[id] = true
		}
	}

	return m
}

// GetProducts resolves the requested ids against the optional substitution
// bundle and caches every product seen. The whole call fails when the
// underlying fetch fails.
func (m *Manager) GetProducts(
	ctx context.Context,
	ids []string,
	subs *models.Substitutions,
	prior []models.ResolvedProduct,
) (map[string]*models.StoreProduct, []models.ResolvedProduct, error) {
	byID, resolved, err := m.resolver.Resolve(ctx, ids, subs, prior)
	if err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	for id, p := range byID {
		m.productsByID[id] = p
	}
	m.mu.Unlock()

	return byID, resolved, nil
}

// Product returns the cached descriptor for an identifier, if any.
func (m *Manager) Product(id string) (*models.StoreProduct, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	return p, ok
}

// RefreshReceipt triggers a platform receipt refresh and reports whether it
// succeeded. On success the local purchased-product cache is invalidated; a
// failed refresh leaves the last-known cache untouched.
func (m *Manager) RefreshReceipt(ctx context.Context) bool {
	if err := m.receipts.Refresh(ctx); err != nil {
		m.log.WithError(err).Warn("receipt refresh failed")
		return false
	}

	m.mu.Lock()
	m.purchased = nil
	m.mu.Unlock()

	return true
}

// LoadPurchasedProducts re-derives the purchased-product set from the current
// receipt. It is a no-op when an external purchase controller owns purchase
// state. Triggered automatically after any observed purchase or restore.
func (m *Manager) LoadPurchasedProducts() {
	if m.externalPurchaseController {
		return
	}

	ids, err := m.receipts.PurchasedProductIDs(context.Background())
	if err != nil {
		m.log.WithError(err).Warn("failed to load purchased products from receipt")
		return
	}

	m.mu.Lock()
	m.purchased = ids
	m.mu.Unlock()

	if m.store != nil {
		sorted := make([]string, 0, len(ids))
		for id := range ids {
			sorted = append(sorted, id)
		}
		sort.Strings(sorted)
		m.store.SetJSON(storage.KeyPurchasedProductIDs, sorted)
	}
}

// IsFreeTrialAvailable reports whether the user is still eligible for the
// product's introductory trial. Eligibility is evaluated per subscription
// group when the group is known; otherwise it falls back to whether this
// exact product was already purchased.
func (m *Manager) IsFreeTrialAvailable(p *models.StoreProduct) bool {
	if p == nil || !p.HasFreeTrial() {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if p.SubscriptionGroupID != "" {
		known := true
		for id := range m.purchased {
			cached, ok := m.productsByID[id]
			if !ok {
				known = false
				continue
			}
			if cached.SubscriptionGroupID == p.SubscriptionGroupID {
				return false
			}
		}
		if known {
			return true
		}
		// Group membership of some purchase is unknown; fall through to the
		// exact-id check rather than assume eligibility.
	}

	return !m.purchased[p.ID]
}

// PurchasedProductIDs returns a snapshot of the purchased-product set.
func (m *Manager) PurchasedProductIDs() map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]bool, len(m.purchased))
	for id := range m.purchased {
		out[id] = true
	}
	return out
}
