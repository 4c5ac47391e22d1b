// internal/models/product.go
package models

// Slot is the positional role a product occupies in a paywall's product list.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotSecondary
	SlotTertiary
)

func (s Slot) String() string {
	switch s {
	case SlotPrimary:
		return "primary"
	case SlotSecondary:
		return "secondary"
	case SlotTertiary:
		return "tertiary"
	}
	return "unknown"
}

// PlatformProduct is the purchasable handle the payment queue accepts.
// A StoreProduct without one cannot be bought.
type PlatformProduct interface {
	ProductID() string
}

// StoreProduct is an immutable store catalog entry, cached by identifier.
type StoreProduct struct {
	ID                  string
	Price               float64
	Currency            string
	SubscriptionPeriod  string
	SubscriptionGroupID string
	TrialDays           int
	Attributes          map[string]string
	Platform            PlatformProduct
}

func (p *StoreProduct) HasFreeTrial() bool {
	return p.TrialDays > 0
}

// Substitutions carries caller-supplied override products keyed by slot.
type Substitutions struct {
	Primary   *StoreProduct
	Secondary *StoreProduct
	Tertiary  *StoreProduct
}

func (s *Substitutions) At(slot Slot) *StoreProduct {
	if s == nil {
		return nil
	}
	switch slot {
	case SlotPrimary:
		return s.Primary
	case SlotSecondary:
		return s.Secondary
	case SlotTertiary:
		return s.Tertiary
	}
	return nil
}

// ResolvedProduct is the slot placeholder used to drive template rendering
// without re-fetching the full StoreProduct.
type ResolvedProduct struct {
	Slot      Slot   `json:"slot"`
	ProductID string `json:"product_id"`
}
