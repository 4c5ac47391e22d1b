// internal/recording/recorder.go
package recording

import (
	"time"

	"github.com/javajoker/paywallkit/internal/models"
)

// Event names the recorder emits.
const (
	EventTransaction        = "transaction"
	EventTransactionRestore = "transaction_restore"
	EventPaymentTimeout     = "payment_sheet_timeout"
	EventAttributesChanged  = "user_attributes_changed"
)

// Recorder receives session events. Implementations are best-effort and must
// never block or fail the caller.
type Recorder interface {
	EnqueueTransaction(txn *models.Transaction)
	TrackRestoration(transactionID, productID string)
	TrackEvent(name string, params map[string]interface{})
}

// Event is the serialized form delivered to the collector.
type Event struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Params    map[string]interface{} `json:"params,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

func transactionParams(txn *models.Transaction) map[string]interface{} {
	params := map[string]interface{}{
		"transaction_id": txn.ID,
		"product_id":     txn.ProductID,
		"state":          string(txn.State),
		"date":           txn.Date,
	}
	if txn.OriginalID != "" {
		params["original_transaction_id"] = txn.OriginalID
	}
	if txn.Err != nil {
		params["error_code"] = string(txn.Err.Code)
		params["error_message"] = txn.Err.Message
	}
	return params
}
