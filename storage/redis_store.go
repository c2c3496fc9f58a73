// storage/redis_store.go
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/chhz0/dispatchr/types"
	"github.com/go-redis/redis/v8"
)

type RedisStorage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStorage(addr, password string, db int) *RedisStorage {
	return NewRedisStorageWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewRedisStorageWithClient(client *redis.Client) *RedisStorage {
	return &RedisStorage{
		client: client,
		prefix: "dispatchr:order:",
		ttl:    24 * time.Hour,
	}
}

func (s *RedisStorage) key(id string) string {
	return s.prefix + id
}

// 按创建时间排序的索引
func (s *RedisStorage) indexKey() string {
	return s.prefix + "index"
}

func (s *RedisStorage) SaveOrder(ctx context.Context, rec *types.OrderRecord) error {
	if rec.ID == "" {
		rec.ID = generateID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	data, err := rec.Serialize()
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(rec.ID), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), &redis.Z{
		Score:  score(rec.CreatedAt),
		Member: rec.ID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// score 索引分值取微秒；纳秒超出 float64 的 53 位尾数，相近订单会同分
func score(t time.Time) float64 {
	return float64(t.UnixMicro())
}

func (s *RedisStorage) GetOrder(ctx context.Context, id string) (*types.OrderRecord, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return types.DeserializeOrder(data)
}

func (s *RedisStorage) ListOrders(ctx context.Context, limit int) ([]*types.OrderRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	var orders []*types.OrderRecord
	for _, id := range ids {
		rec, err := s.GetOrder(ctx, id)
		if errors.Is(err, ErrOrderNotFound) {
			// 记录已过期，清理索引
			s.client.ZRem(ctx, s.indexKey(), id)
			continue
		}
		if err != nil {
			return nil, err
		}
		orders = append(orders, rec)
	}
	return orders, nil
}

func (s *RedisStorage) Close() error {
	return s.client.Close()
}
