// cmd/paywall-sim/main.go
//
// paywall-sim wires the SDK against an in-process payment queue and replays a
// full session: identify, resolve with a substitution, purchase, restore.
package main

import (
	"context"
	"log"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/paywallkit"
	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/purchasing"
	"github.com/javajoker/paywallkit/internal/recording"
	"github.com/javajoker/paywallkit/internal/storage"
)

type cannedFetcher struct{}

func (cannedFetcher) Products(_ context.Context, ids []string) ([]*models.StoreProduct, error) {
	out := make([]*models.StoreProduct, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.StoreProduct{
			ID:        id,
			Price:     9.99,
			Currency:  "USD",
			TrialDays: 7,
			Platform:  purchasing.PaymentHandle(id),
		})
	}
	return out, nil
}

type cannedReceipts struct{}

func (cannedReceipts) Refresh(context.Context) error {
	return nil
}

func (cannedReceipts) PurchasedProductIDs(context.Context) (map[string]bool, error) {
	return map[string]bool{"pro_monthly": true}, nil
}

func main() {
	cfg, err := paywallkit.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load configuration:", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	queue := purchasing.NewFakeQueue()
	recorder := recording.NewMemory()

	sdk, err := paywallkit.New(cfg, paywallkit.Dependencies{
		Queue:    queue,
		Receipts: cannedReceipts{},
		Fetcher:  cannedFetcher{},
		Store:    storage.NewMemory(),
		Recorder: recorder,
		Logger:   logger,
	})
	if err != nil {
		log.Fatal("Failed to initialize SDK:", err)
	}
	defer sdk.Shutdown()

	ctx := context.Background()

	sdk.Identity.Identify(ctx, "sim-user", &paywallkit.IdentifyOptions{RestorePaywallAssignments: true})
	if err := sdk.Identity.WaitUntilReady(ctx); err != nil {
		log.Fatal("Identity never became ready:", err)
	}
	logger.WithField("user_id", sdk.Identity.UserID()).Info("identified")

	substitute := &models.StoreProduct{
		ID:       "pro_yearly_promo",
		Price:    59.99,
		Currency: "USD",
		Platform: purchasing.PaymentHandle("pro_yearly_promo"),
	}
	byID, resolved, err := sdk.Catalog.GetProducts(
		ctx,
		[]string{"pro_monthly", "pro_yearly"},
		&paywallkit.Substitutions{Primary: substitute},
		nil,
	)
	if err != nil {
		log.Fatal("Product resolution failed:", err)
	}
	logger.WithFields(logrus.Fields{
		"products": len(byID),
		"resolved": resolved,
	}).Info("resolved paywall products")

	// The platform would answer the payment asynchronously; the sim script
	// plays that part.
	go func() {
		time.Sleep(50 * time.Millisecond)
		queue.Deliver(&models.Transaction{
			ID:        "txn-1",
			ProductID: substitute.ID,
			State:     models.TransactionStatePurchased,
			Date:      time.Now(),
		})
	}()

	result, err := sdk.Purchases.Purchase(ctx, substitute)
	logger.WithFields(logrus.Fields{
		"result": result,
		"err":    err,
	}).Info("purchase finished")

	go func() {
		time.Sleep(50 * time.Millisecond)
		queue.Deliver(&models.Transaction{
			ID:        "txn-0",
			ProductID: "pro_monthly",
			State:     models.TransactionStateRestored,
			Date:      time.Now().Add(-24 * time.Hour),
		})
		queue.CompleteRestore(true, nil)
	}()

	restored := sdk.Purchases.RestorePurchases(ctx)
	logger.WithField("restored", restored).Info("restore finished")

	logger.WithFields(logrus.Fields{
		"events":    len(recorder.Events()),
		"finished":  len(queue.Finished()),
		"purchased": sdk.Catalog.PurchasedProductIDs(),
	}).Info("session summary")
}
