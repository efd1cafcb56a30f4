package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/mat-tom-creator/fileledger/internal/model"
)

// Memory is an in-process KV implementation. It backs tests and the
// default zero-dependency deployment.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.data[key]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", key, model.ErrKeyNotFound)
	}

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.data[key] = stored
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]Entry, 0, 16)
	for key, value := range m.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out := make([]byte, len(value))
		copy(out, value)
		entries = append(entries, Entry{Key: key, Value: out})
	}

	sort.Slice(entries, func(i int, j int) bool {
		return entries[i].Key < entries[j].Key
	})
	return entries, nil
}
