package memory

import (
	"context"
	"sync"

	"WorldShift/internal/dimension/marker"
)

// MarkerStore 是测试和 inline 模式用的内存实现。
type MarkerStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMarkerStore() *MarkerStore {
	return &MarkerStore{data: make(map[string][]byte)}
}

func (s *MarkerStore) Load(ctx context.Context, worldUID string) ([]byte, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[worldUID]
	if !ok {
		return nil, marker.ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MarkerStore) Save(ctx context.Context, worldUID string, data []byte) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[worldUID] = append([]byte(nil), data...)
	return nil
}
