// SPDX-License-Identifier: MIT

package vectorstore

import (
	"context"
	"maps"
	"sync"
)

// Memory is an in-process Store.
type Memory struct {
	name    string
	mu      sync.RWMutex
	vectors map[string]Vector
}

// NewMemory creates an empty in-memory store.
func NewMemory(name string) *Memory {
	if name == "" {
		name = "memory"
	}
	return &Memory{name: name, vectors: make(map[string]Vector)}
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Upsert(_ context.Context, vectors []Vector) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range vectors {
		v.Values = append([]float32(nil), v.Values...)
		v.Metadata = maps.Clone(v.Metadata)
		m.vectors[v.ID] = v
	}
	return nil
}

func (m *Memory) Query(_ context.Context, req QueryRequest) ([]Match, error) {
	m.mu.RLock()
	all := make([]Vector, 0, len(m.vectors))
	for _, v := range m.vectors {
		all = append(all, v)
	}
	m.mu.RUnlock()
	return scoreAll(all, req), nil
}

func (m *Memory) Fetch(_ context.Context, ids []string) ([]Vector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Vector, 0, len(ids))
	for _, id := range ids {
		if v, ok := m.vectors[id]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func (m *Memory) Describe(_ context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := Stats{VectorCount: int64(len(m.vectors))}
	for _, v := range m.vectors {
		st.Dimension = len(v.Values)
		break
	}
	return st, nil
}
