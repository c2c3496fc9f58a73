// storage/boltdb_store.go
package storage

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/chhz0/dispatchr/types"
	bolt "go.etcd.io/bbolt"
)

var (
	orderBucket = []byte("orders")
)

type BoltStorage struct {
	db *bolt.DB
}

func NewBoltStorage(path string) (*BoltStorage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	// 初始化Bucket
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(orderBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) SaveOrder(ctx context.Context, rec *types.OrderRecord) error {
	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(orderBucket)
		data, err := rec.Serialize()
		if err != nil {
			return err
		}
		return b.Put([]byte(rec.ID), data)
	})
}

func (s *BoltStorage) GetOrder(ctx context.Context, id string) (*types.OrderRecord, error) {
	var rec *types.OrderRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(orderBucket).Get([]byte(id))
		if data == nil {
			return ErrOrderNotFound
		}
		var err error
		rec, err = types.DeserializeOrder(data)
		return err
	})
	return rec, err
}

func (s *BoltStorage) ListOrders(ctx context.Context, limit int) ([]*types.OrderRecord, error) {
	var orders []*types.OrderRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(orderBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec types.OrderRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				continue // 跳过无效数据
			}
			orders = append(orders, &rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}
