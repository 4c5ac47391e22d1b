// internal/storage/storage.go
package storage

// Key names one durable value the SDK persists between launches.
type Key string

const (
	KeyAppUserID           Key = "app_user_id"
	KeyAliasID             Key = "alias_id"
	KeyUserAttributes      Key = "user_attributes"
	KeyPurchasedProductIDs Key = "purchased_product_ids"
)

// Store is the typed key-value persistence contract. Reads return a found
// flag; writes are fire-and-forget, implementations log their own failures.
type Store interface {
	GetString(key Key) (string, bool)
	SetString(key Key, value string)
	GetJSON(key Key, out interface{}) bool
	SetJSON(key Key, value interface{})
	Delete(key Key)
}
