// Package paywallkit is the purchase and identity core of a remotely
// configured paywall SDK: slot-based product resolution, payment-queue
// observation with transaction reconciliation, and identity/session state.
package paywallkit

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/paywallkit/internal/config"
	"github.com/javajoker/paywallkit/internal/identity"
	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/products"
	"github.com/javajoker/paywallkit/internal/purchasing"
	"github.com/javajoker/paywallkit/internal/recording"
	"github.com/javajoker/paywallkit/internal/storage"
	"github.com/javajoker/paywallkit/internal/stripestore"
)

// Public surface of the internal packages.
type (
	Config           = config.Config
	EventsConfig     = config.EventsConfig
	StorageConfig    = config.StorageConfig
	StripeConfig     = config.StripeConfig
	PurchasingConfig = config.PurchasingConfig

	StoreProduct    = models.StoreProduct
	Substitutions   = models.Substitutions
	ResolvedProduct = models.ResolvedProduct
	Transaction     = models.Transaction
	PurchaseResult  = models.PurchaseResult
	Slot            = models.Slot
	Identity        = models.Identity
	IdentifyOptions = identity.Options

	ProductFetcher      = products.Fetcher
	Receipts            = products.Receipts
	PaymentQueue        = purchasing.PaymentQueue
	TransactionObserver = purchasing.TransactionObserver
	AssignmentFetcher   = identity.AssignmentFetcher
	Recorder            = recording.Recorder
	Store               = storage.Store
)

const (
	SlotPrimary   = models.SlotPrimary
	SlotSecondary = models.SlotSecondary
	SlotTertiary  = models.SlotTertiary

	PurchaseResultPurchased = models.PurchaseResultPurchased
	PurchaseResultCancelled = models.PurchaseResultCancelled
	PurchaseResultPending   = models.PurchaseResultPending
	PurchaseResultFailed    = models.PurchaseResultFailed
	PurchaseResultRestored  = models.PurchaseResultRestored
)

var (
	ErrProductUnavailable    = purchasing.ErrProductUnavailable
	ErrPurchaseInProgress    = purchasing.ErrPurchaseInProgress
	ErrPurchaseFailed        = purchasing.ErrPurchaseFailed
	ErrNoTransactionDetected = purchasing.ErrNoTransactionDetected
)

// LoadConfig reads configuration from the environment (and .env, if present).
func LoadConfig() (*Config, error) {
	return config.Load()
}

// Dependencies are the platform collaborators the core consumes. Queue and
// Receipts are mandatory; the rest default from configuration.
type Dependencies struct {
	Queue       PaymentQueue
	Receipts    Receipts
	Fetcher     ProductFetcher
	Assignments AssignmentFetcher
	Store       Store
	Recorder    Recorder
	Logger      *logrus.Logger
}

// SDK owns one composed paywall core. One instance lives for the app session;
// the payment-queue observer registers at construction and deregisters in
// Shutdown.
type SDK struct {
	Identity  *identity.Manager
	Catalog   *products.Manager
	Purchases *purchasing.Coordinator

	recorder Recorder
	log      *logrus.Logger
}

func New(cfg *Config, deps Dependencies) (*SDK, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Queue == nil {
		return nil, errors.New("a payment queue is required")
	}
	if deps.Receipts == nil {
		return nil, errors.New("a receipt source is required")
	}

	log := deps.Logger
	if log == nil {
		log = logrus.New()
		if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
			log.SetLevel(level)
		}
	}

	store := deps.Store
	if store == nil {
		db, err := storage.Open(cfg.Storage.Path, log)
		if err != nil {
			return nil, err
		}
		store = db
	}

	recorder := deps.Recorder
	if recorder == nil {
		if cfg.Events.Endpoint != "" {
			recorder = recording.NewClient(
				cfg.Events.Endpoint, cfg.Events.APIKey,
				cfg.Events.PerSecond, cfg.Events.Burst, log,
			)
		} else {
			recorder = recording.Noop{}
		}
	}

	fetcher := deps.Fetcher
	if fetcher == nil {
		if cfg.Stripe.SecretKey == "" {
			return nil, errors.New("a product fetcher or a stripe secret key is required")
		}
		fetcher = stripestore.New(cfg.Stripe.SecretKey, log)
	}

	catalog := products.NewManager(
		products.NewResolver(fetcher),
		deps.Receipts,
		store,
		cfg.Purchasing.ExternalPurchaseController,
		log,
	)

	coordinator := purchasing.NewCoordinator(
		deps.Queue,
		catalog,
		recorder,
		cfg.Purchasing.ExternalPurchaseController,
		cfg.Purchasing.OverlayTimeoutCapable,
		log,
	)

	ident := identity.NewManager(store, deps.Assignments, recorder, log)
	go ident.Start(context.Background())

	return &SDK{
		Identity:  ident,
		Catalog:   catalog,
		Purchases: coordinator,
		recorder:  recorder,
		log:       log,
	}, nil
}

// Shutdown deregisters the payment-queue observer and stops event delivery.
func (s *SDK) Shutdown() {
	s.Purchases.Close()
	if closer, ok := s.recorder.(interface{ Close() }); ok {
		closer.Close()
	}
}
