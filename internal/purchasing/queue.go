// internal/purchasing/queue.go
package purchasing

import "github.com/javajoker/paywallkit/internal/models"

// PaymentQueue is the platform payment queue. One observer is registered for
// the process lifetime; every terminal transaction must be finished exactly
// once by whoever owns purchase state.
type PaymentQueue interface {
	AddObserver(o TransactionObserver)
	RemoveObserver(o TransactionObserver)
	AddPayment(p models.PlatformProduct)
	RestoreCompletedTransactions()
	FinishTransaction(txn *models.Transaction)
}

// TransactionObserver receives transaction-state batches from the queue.
// Batches arrive serially in delivery order.
type TransactionObserver interface {
	TransactionsUpdated(batch []*models.Transaction)
	RestoreCompleted()
	RestoreFailed(err error)
}

// PaymentHandle is a minimal PlatformProduct for queues that only need the
// product identifier to build a payment.
type PaymentHandle string

func (h PaymentHandle) ProductID() string {
	return string(h)
}
