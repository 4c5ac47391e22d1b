// internal/purchasing/errors.go
package purchasing

import "errors"

var (
	// ErrProductUnavailable means the product has no underlying platform
	// reference and cannot be bought.
	ErrProductUnavailable = errors.New("product is not available for purchase")

	// ErrPurchaseInProgress means another purchase attempt is already
	// awaiting its transaction.
	ErrPurchaseInProgress = errors.New("a purchase is already in progress")

	// ErrPurchaseFailed means the platform reported a failed transaction
	// without a structured error attached.
	ErrPurchaseFailed = errors.New("purchase failed")

	// ErrNoTransactionDetected means no transaction exists to confirm a
	// purchase against.
	ErrNoTransactionDetected = errors.New("no transaction detected")

	// ErrTransactionMismatch means the observed transaction belongs to a
	// different product than the attempted purchase.
	ErrTransactionMismatch = errors.New("transaction does not match the purchased product")

	// ErrStaleTransaction means the observed transaction predates the
	// purchase attempt.
	ErrStaleTransaction = errors.New("transaction is older than the purchase attempt")
)
