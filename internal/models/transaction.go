// internal/models/transaction.go
package models

import "time"

// Transaction is a single platform-reported purchase/restore event. It is
// transient until finalized back to the payment queue.
type Transaction struct {
	ID         string
	OriginalID string
	ProductID  string
	State      TransactionState
	Date       time.Time
	Err        *PaymentError
}

// ErrorCode returns the attached payment error kind, or PaymentErrorUnknown
// when a failed transaction carries no structured error.
func (t *Transaction) ErrorCode() PaymentErrorCode {
	if t.Err == nil {
		return PaymentErrorUnknown
	}
	return t.Err.Code
}
