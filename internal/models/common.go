// internal/models/common.go
package models

// Enums
type TransactionState string

const (
	TransactionStatePurchasing TransactionState = "purchasing"
	TransactionStatePurchased  TransactionState = "purchased"
	TransactionStateFailed     TransactionState = "failed"
	TransactionStateRestored   TransactionState = "restored"
	TransactionStateDeferred   TransactionState = "deferred"
)

type PurchaseResult string

const (
	PurchaseResultPurchased PurchaseResult = "purchased"
	PurchaseResultCancelled PurchaseResult = "cancelled"
	PurchaseResultPending   PurchaseResult = "pending"
	PurchaseResultFailed    PurchaseResult = "failed"
	PurchaseResultRestored  PurchaseResult = "restored"
)

type PaymentErrorCode string

const (
	PaymentErrorCancelled        PaymentErrorCode = "cancelled"
	PaymentErrorOverlayCancelled PaymentErrorCode = "overlay_cancelled"
	PaymentErrorOverlayTimeout   PaymentErrorCode = "overlay_timeout"
	PaymentErrorUnknown          PaymentErrorCode = "unknown"
)

// PaymentError is the platform-reported reason a transaction failed.
type PaymentError struct {
	Code    PaymentErrorCode
	Message string
}

func (e *PaymentError) Error() string {
	if e.Message != "" {
		return string(e.Code) + ": " + e.Message
	}
	return string(e.Code)
}
