package storage

import (
	"context"
	"errors"

	"github.com/chhz0/dispatchr/types"
)

var (
	ErrOrderNotFound = errors.New("order not found")
)

// OrderStore 订单持久化，由组合根注入到订单处理流程
type OrderStore interface {
	SaveOrder(ctx context.Context, rec *types.OrderRecord) error
	GetOrder(ctx context.Context, id string) (*types.OrderRecord, error)
	ListOrders(ctx context.Context, limit int) ([]*types.OrderRecord, error)
	Close() error
}
