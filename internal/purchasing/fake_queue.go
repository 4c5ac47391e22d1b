// internal/purchasing/fake_queue.go
package purchasing

import (
	"sync"

	"github.com/javajoker/paywallkit/internal/models"
)

// FakeQueue is an in-process payment queue for tests and the simulator. The
// test script drives it by delivering transaction batches and restore
// completions to the registered observer.
type FakeQueue struct {
	mu       sync.Mutex
	observer TransactionObserver

	payments         []models.PlatformProduct
	finished         []*models.Transaction
	restoreRequested int
}

func NewFakeQueue() *FakeQueue {
	return &FakeQueue{}
}

func (q *FakeQueue) AddObserver(o TransactionObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.observer = o
}

func (q *FakeQueue) RemoveObserver(o TransactionObserver) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.observer == o {
		q.observer = nil
	}
}

func (q *FakeQueue) AddPayment(p models.PlatformProduct) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.payments = append(q.payments, p)
}

func (q *FakeQueue) RestoreCompletedTransactions() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.restoreRequested++
}

func (q *FakeQueue) FinishTransaction(txn *models.Transaction) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.finished = append(q.finished, txn)
}

// Deliver pushes one transaction batch to the observer, the way the platform
// queue would.
func (q *FakeQueue) Deliver(batch ...*models.Transaction) {
	q.mu.Lock()
	o := q.observer
	q.mu.Unlock()
	if o != nil {
		o.TransactionsUpdated(batch)
	}
}

// CompleteRestore reports the restore outcome to the observer.
func (q *FakeQueue) CompleteRestore(ok bool, err error) {
	q.mu.Lock()
	o := q.observer
	q.mu.Unlock()
	if o == nil {
		return
	}
	if ok {
		o.RestoreCompleted()
	} else {
		o.RestoreFailed(err)
	}
}

// Payments returns every payment submitted so far.
func (q *FakeQueue) Payments() []models.PlatformProduct {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]models.PlatformProduct, len(q.payments))
	copy(out, q.payments)
	return out
}

// Finished returns every transaction finalized so far.
func (q *FakeQueue) Finished() []*models.Transaction {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*models.Transaction, len(q.finished))
	copy(out, q.finished)
	return out
}

// RestoreRequests returns how many restore-all requests were issued.
func (q *FakeQueue) RestoreRequests() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.restoreRequested
}
