// internal/purchasing/coordinator.go
package purchasing

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/javajoker/paywallkit/internal/models"
	"github.com/javajoker/paywallkit/internal/products"
	"github.com/javajoker/paywallkit/internal/recording"
)

type outcome struct {
	result models.PurchaseResult
	err    error
}

// attempt is the single in-flight purchase, correlated with queue callbacks
// by product id.
type attempt struct {
	productID string
	result    chan outcome
}

// restoreAttempt tracks a queued restore. The barrier is entered once per
// transaction batch delivered while the restore is in flight and left when
// that batch's processing completes; the waiting caller resolves only after
// the barrier drains.
type restoreAttempt struct {
	outcome chan bool
	barrier sync.WaitGroup
}

// Coordinator drives the payment queue as its sole observer. It correlates
// transaction callbacks with the in-flight purchase attempt, classifies and
// finalizes every transaction, and forwards each one to session recording.
type Coordinator struct {
	queue    PaymentQueue
	catalog  *products.Manager
	recorder recording.Recorder
	log      *logrus.Logger

	externalPurchaseController bool
	overlayTimeoutCapable      bool

	mu       sync.Mutex
	awaiting *attempt
	restore  *restoreAttempt
	latest   map[string]*models.Transaction

	closeOnce sync.Once
}

func NewCoordinator(
	queue PaymentQueue,
	catalog *products.Manager,
	recorder recording.Recorder,
	externalPurchaseController bool,
	overlayTimeoutCapable bool,
	log *logrus.Logger,
) *Coordinator {
	c := &Coordinator{
		queue:                      queue,
		catalog:                    catalog,
		recorder:                   recorder,
		externalPurchaseController: externalPurchaseController,
		overlayTimeoutCapable:      overlayTimeoutCapable,
		log:                        log,
		latest:                     make(map[string]*models.Transaction),
	}
	// The coordinator is the queue's sole observer for the app lifetime;
	// registration happens here exactly once.
	queue.AddObserver(c)
	return c
}

// Close deregisters the coordinator from the payment queue. Safe to call more
// than once; only the first call takes effect.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		c.queue.RemoveObserver(c)
	})
}

// Purchase submits a payment for the product and suspends the caller until a
// transaction callback for the same product id resolves it. Exactly one
// attempt may be in flight at a time.
func (c *Coordinator) Purchase(ctx context.Context, p *models.StoreProduct) (models.PurchaseResult, error) {
	if p == nil || p.Platform == nil {
		return models.PurchaseResultFailed, ErrProductUnavailable
	}

	att := &attempt{productID: p.ID, result: make(chan outcome, 1)}

	c.mu.Lock()
	if c.awaiting != nil {
		c.mu.Unlock()
		return models.PurchaseResultFailed, ErrPurchaseInProgress
	}
	c.awaiting = att
	c.mu.Unlock()

	c.log.WithField("product_id", p.ID).Debug("submitting payment")
	c.queue.AddPayment(p.Platform)

	select {
	case out := <-att.result:
		return out.result, out.err
	case <-ctx.Done():
		c.mu.Lock()
		if c.awaiting == att {
			c.awaiting = nil
		}
		c.mu.Unlock()
		return models.PurchaseResultFailed, ctx.Err()
	}
}

// RestorePurchases issues a restore-all request and reports whether the
// platform finished it successfully. The caller resumes only after every
// transaction batch belonging to the restore has been fully processed.
func (c *Coordinator) RestorePurchases(ctx context.Context) bool {
	r := &restoreAttempt{outcome: make(chan bool, 1)}

	c.mu.Lock()
	if c.restore != nil {
		c.mu.Unlock()
		c.log.Warn("restore already in progress")
		return false
	}
	c.restore = r
	c.mu.Unlock()

	c.queue.RestoreCompletedTransactions()

	ok := false
	select {
	case ok = <-r.outcome:
	case <-ctx.Done():
	}

	r.barrier.Wait()

	c.mu.Lock()
	c.restore = nil
	c.mu.Unlock()

	return ok
}

// ValidateTransaction confirms that an observed transaction is proof of the
// attempted purchase: same product id, and not older than the attempt when a
// "since" timestamp is supplied.
func ValidateTransaction(txn *models.Transaction, productID string, since time.Time) error {
	if txn == nil {
		return ErrNoTransactionDetected
	}
	if txn.ProductID != productID {
		return ErrTransactionMismatch
	}
	if !since.IsZero() && txn.Date.Before(since) {
		return ErrStaleTransaction
	}
	return nil
}

// LatestTransaction validates the most recently observed transaction for a
// product id against the attempt that expects it.
func (c *Coordinator) LatestTransaction(productID string, since time.Time) (*models.Transaction, error) {
	c.mu.Lock()
	txn := c.latest[productID]
	c.mu.Unlock()

	if err := ValidateTransaction(txn, productID, since); err != nil {
		return nil, err
	}
	return txn, nil
}

// TransactionsUpdated processes one queue batch in delivery order. Every
// transaction is classified, finalized when applicable and forwarded to
// recording even when no caller is awaiting it; the purchased-products reload
// fires once per batch, after all of that.
func (c *Coordinator) TransactionsUpdated(batch []*models.Transaction) {
	c.mu.Lock()
	restore := c.restore
	c.mu.Unlock()

	if restore != nil {
		restore.barrier.Add(1)
		defer restore.barrier.Done()
	}

	reload := false
	for _, txn := range batch {
		c.track(txn)

		if result, terminal := c.classify(txn); terminal {
			c.resolveAwaiting(txn.ProductID, result)
		}

		if txn.State == models.TransactionStatePurchased || txn.State == models.TransactionStateRestored {
			reload = true
		}

		c.finish(txn)

		// Recording is decoupled so a slow or failing recorder never blocks
		// queue processing.
		go c.record(txn)
	}

	if reload {
		c.catalog.LoadPurchasedProducts()
	}
}

func (c *Coordinator) RestoreCompleted() {
	c.resolveRestore(true)
}

func (c *Coordinator) RestoreFailed(err error) {
	c.log.WithError(err).Warn("restore failed")
	c.resolveRestore(false)
}

func (c *Coordinator) resolveRestore(ok bool) {
	c.mu.Lock()
	r := c.restore
	c.mu.Unlock()

	if r == nil {
		c.log.Warn("restore completion with no restore in flight")
		return
	}

	select {
	case r.outcome <- ok:
	default:
	}
}

// classify maps a transaction state onto the closed purchase-result set. The
// second return is false for states that never complete an attempt.
func (c *Coordinator) classify(txn *models.Transaction) (outcome, bool) {
	switch txn.State {
	case models.TransactionStatePurchased:
		return outcome{result: models.PurchaseResultPurchased}, true

	case models.TransactionStateDeferred:
		return outcome{result: models.PurchaseResultPending}, true

	case models.TransactionStateFailed:
		switch txn.ErrorCode() {
		case models.PaymentErrorCancelled, models.PaymentErrorOverlayCancelled:
			return outcome{result: models.PurchaseResultCancelled}, true
		case models.PaymentErrorOverlayTimeout:
			if c.overlayTimeoutCapable {
				c.recorder.TrackEvent(recording.EventPaymentTimeout, map[string]interface{}{
					"product_id": txn.ProductID,
				})
				return outcome{result: models.PurchaseResultCancelled}, true
			}
			return outcome{result: models.PurchaseResultFailed, err: txn.Err}, true
		default:
			// A failed result always carries an error the caller can act on.
			var err error = ErrPurchaseFailed
			if txn.Err != nil {
				err = txn.Err
			}
			return outcome{result: models.PurchaseResultFailed, err: err}, true
		}

	default:
		// purchasing, restored: processed for side effects only.
		return outcome{}, false
	}
}

// resolveAwaiting completes the in-flight attempt when the transaction's
// product id matches it. Callbacks for other product ids are ignored here but
// keep all their side effects.
func (c *Coordinator) resolveAwaiting(productID string, out outcome) {
	c.mu.Lock()
	att := c.awaiting
	if att == nil || att.productID != productID {
		c.mu.Unlock()
		return
	}
	c.awaiting = nil
	c.mu.Unlock()

	att.result <- out
}

// finish acknowledges a terminal transaction back to the queue, unless an
// external purchase controller owns transaction lifecycles.
func (c *Coordinator) finish(txn *models.Transaction) {
	if c.externalPurchaseController {
		return
	}
	switch txn.State {
	case models.TransactionStatePurchased, models.TransactionStateFailed, models.TransactionStateRestored:
		c.queue.FinishTransaction(txn)
	}
}

func (c *Coordinator) record(txn *models.Transaction) {
	c.recorder.EnqueueTransaction(txn)
	if txn.State == models.TransactionStateRestored {
		c.recorder.TrackRestoration(txn.ID, txn.ProductID)
	}
}

func (c *Coordinator) track(txn *models.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prev := c.latest[txn.ProductID]
	if prev == nil || !txn.Date.Before(prev.Date) {
		c.latest[txn.ProductID] = txn
	}
}
