// internal/storage/memory.go
package storage

import (
	"encoding/json"
	"sync"
)

// Memory is an in-process Store used by tests and the simulator.
type Memory struct {
	mu     sync.Mutex
	values map[Key]string
}

func NewMemory() *Memory {
	return &Memory{values: make(map[Key]string)}
}

func (m *Memory) GetString(key Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *Memory) SetString(key Key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *Memory) GetJSON(key Key, out interface{}) bool {
	raw, ok := m.GetString(key)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(raw), out) == nil
}

func (m *Memory) SetJSON(key Key, value interface{}) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	m.SetString(key, string(raw))
}

func (m *Memory) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
