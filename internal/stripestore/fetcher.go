// internal/stripestore/fetcher.go
package stripestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/product"

	"github.com/javajoker/paywallkit/internal/models"
)

// subscriptionGroupKey is the product metadata key carrying the subscription
// group a product belongs to.
const subscriptionGroupKey = "subscription_group"

// Fetcher resolves store products from the Stripe catalog: one Stripe product
// per identifier, priced by its default price.
type Fetcher struct {
	log *logrus.Logger
}

func New(secretKey string, log *logrus.Logger) *Fetcher {
	// Initialize Stripe
	stripe.Key = secretKey

	return &Fetcher{log: log}
}

func (f *Fetcher) Products(ctx context.Context, ids []string) ([]*models.StoreProduct, error) {
	out := make([]*models.StoreProduct, 0, len(ids))

	for _, id := range ids {
		params := &stripe.ProductParams{}
		params.Context = ctx
		params.AddExpand("default_price")

		p, err := product.Get(id, params)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch product %s: %w", id, err)
		}
		if p.DefaultPrice == nil {
			return nil, fmt.Errorf("product %s has no default price", id)
		}

		out = append(out, toStoreProduct(p, p.DefaultPrice))
	}

	return out, nil
}

func toStoreProduct(p *stripe.Product, pr *stripe.Price) *models.StoreProduct {
	sp := &models.StoreProduct{
		ID:                  p.ID,
		Price:               float64(pr.UnitAmount) / 100,
		Currency:            strings.ToUpper(string(pr.Currency)),
		SubscriptionGroupID: p.Metadata[subscriptionGroupKey],
		Attributes: map[string]string{
			"name":        p.Name,
			"description": p.Description,
		},
		Platform: paymentRef{productID: p.ID, priceID: pr.ID},
	}

	if pr.Recurring != nil {
		sp.SubscriptionPeriod = string(pr.Recurring.Interval)
		sp.TrialDays = int(pr.Recurring.TrialPeriodDays)
	}

	return sp
}

// paymentRef is the purchasable handle handed to the payment queue.
type paymentRef struct {
	productID string
	priceID   string
}

func (r paymentRef) ProductID() string {
	return r.productID
}

// PriceID exposes the concrete price the payment should be created against.
func (r paymentRef) PriceID() string {
	return r.priceID
}
