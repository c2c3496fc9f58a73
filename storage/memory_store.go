// storage/memory_store.go
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/chhz0/dispatchr/types"
	"github.com/google/uuid"
)

type MemoryStorage struct {
	orders map[string]*types.OrderRecord
	mu     sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		orders: make(map[string]*types.OrderRecord),
	}
}

func (s *MemoryStorage) SaveOrder(ctx context.Context, rec *types.OrderRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	cp := *rec
	s.orders[rec.ID] = &cp
	return nil
}

func (s *MemoryStorage) GetOrder(ctx context.Context, id string) (*types.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *rec
	return &cp, nil
}

// ListOrders 按创建时间升序
func (s *MemoryStorage) ListOrders(ctx context.Context, limit int) ([]*types.OrderRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*types.OrderRecord, 0, len(s.orders))
	for _, rec := range s.orders {
		cp := *rec
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *MemoryStorage) Close() error {
	return nil // 无需关闭操作
}

func generateID() string {
	return uuid.New().String()
}
