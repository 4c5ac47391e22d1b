package paywallkit

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/purchasing"
	"github.com/javajoker/paywallkit/internal/recording"
	"github.com/javajoker/paywallkit/internal/storage"
)

type staticFetcher struct{}

func (staticFetcher) Products(_ context.Context, ids []string) ([]*StoreProduct, error) {
	out := make([]*StoreProduct, 0, len(ids))
	for _, id := range ids {
		out = append(out, &StoreProduct{ID: id, Platform: purchasing.PaymentHandle(id)})
	}
	return out, nil
}

type staticReceipts struct{}

func (staticReceipts) Refresh(context.Context) error {
	return nil
}

func (staticReceipts) PurchasedProductIDs(context.Context) (map[string]bool, error) {
	return map[string]bool{}, nil
}

func testConfig() *Config {
	return &Config{
		Environment: "test",
		LogLevel:    "panic",
		Events:      EventsConfig{PerSecond: 10, Burst: 20},
		Storage:     StorageConfig{Path: "ignored"},
	}
}

func newTestSDK(t *testing.T) (*SDK, *purchasing.FakeQueue) {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	queue := purchasing.NewFakeQueue()
	sdk, err := New(testConfig(), Dependencies{
		Queue:    queue,
		Receipts: staticReceipts{},
		Fetcher:  staticFetcher{},
		Store:    storage.NewMemory(),
		Recorder: recording.NewMemory(),
		Logger:   log,
	})
	require.NoError(t, err)
	t.Cleanup(sdk.Shutdown)

	return sdk, queue
}

func TestNewRequiresQueueAndReceipts(t *testing.T) {
	_, err := New(testConfig(), Dependencies{Receipts: staticReceipts{}})
	assert.Error(t, err)

	_, err = New(testConfig(), Dependencies{Queue: purchasing.NewFakeQueue()})
	assert.Error(t, err)
}

func TestNewRequiresFetcherOrStripeKey(t *testing.T) {
	_, err := New(testConfig(), Dependencies{
		Queue:    purchasing.NewFakeQueue(),
		Receipts: staticReceipts{},
		Store:    storage.NewMemory(),
	})
	assert.Error(t, err)
}

func TestEndToEndPurchaseFlow(t *testing.T) {
	sdk, queue := newTestSDK(t)
	ctx := context.Background()

	sdk.Identity.Identify(ctx, "user-1", &IdentifyOptions{RestorePaywallAssignments: true})
	require.NoError(t, sdk.Identity.WaitUntilReady(ctx))

	byID, resolved, err := sdk.Catalog.GetProducts(ctx, []string{"pro_monthly"}, nil, nil)
	require.NoError(t, err)
	require.Contains(t, byID, "pro_monthly")
	assert.Empty(t, resolved)

	go func() {
		for len(queue.Payments()) == 0 {
			time.Sleep(time.Millisecond)
		}
		queue.Deliver(&Transaction{
			ID:        "t1",
			ProductID: "pro_monthly",
			State:     models.TransactionStatePurchased,
			Date:      time.Now(),
		})
	}()

	result, err := sdk.Purchases.Purchase(ctx, byID["pro_monthly"])
	require.NoError(t, err)
	assert.Equal(t, PurchaseResultPurchased, result)
}
