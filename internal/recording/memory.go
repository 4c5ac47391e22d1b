// internal/recording/memory.go
package recording

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/javajoker/paywallkit/internal/models"
)

// Memory is an in-process Recorder used by tests and the simulator.
type Memory struct {
	mu     sync.Mutex
	events []Event
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) EnqueueTransaction(txn *models.Transaction) {
	m.TrackEvent(EventTransaction, transactionParams(txn))
}

func (m *Memory) TrackRestoration(transactionID, productID string) {
	m.TrackEvent(EventTransactionRestore, map[string]interface{}{
		"transaction_id": transactionID,
		"product_id":     productID,
	})
}

func (m *Memory) TrackEvent(name string, params map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, Event{
		ID:        uuid.NewString(),
		Name:      name,
		Params:    params,
		CreatedAt: time.Now(),
	})
}

// Events returns a snapshot of everything recorded so far.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// CountByName returns how many events with the given name were recorded.
func (m *Memory) CountByName(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.events {
		if e.Name == name {
			n++
		}
	}
	return n
}
