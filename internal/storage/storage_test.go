// internal/storage/storage_test.go
package storage

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	db, err := Open(filepath.Join(t.TempDir(), "paywallkit.db"), log)
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": db,
	}
}

func TestStoreContract(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, ok := store.GetString(KeyAppUserID)
			assert.False(t, ok)

			store.SetString(KeyAppUserID, "user-1")
			v, ok := store.GetString(KeyAppUserID)
			require.True(t, ok)
			assert.Equal(t, "user-1", v)

			// Overwrite
			store.SetString(KeyAppUserID, "user-2")
			v, _ = store.GetString(KeyAppUserID)
			assert.Equal(t, "user-2", v)

			store.Delete(KeyAppUserID)
			_, ok = store.GetString(KeyAppUserID)
			assert.False(t, ok)

			attrs := map[string]interface{}{"plan": "pro"}
			store.SetJSON(KeyUserAttributes, attrs)
			var out map[string]interface{}
			require.True(t, store.GetJSON(KeyUserAttributes, &out))
			assert.Equal(t, "pro", out["plan"])

			var missing []string
			assert.False(t, store.GetJSON(KeyPurchasedProductIDs, &missing))
		})
	}
}
