package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// OrderBook is the off-chain service holding order intents until they are
// matched and settled.
type OrderBook interface {
	// Submit posts the intent as a presign order and returns the id assigned
	// by the order book. Every call creates a new order.
	Submit(ctx context.Context, intent domain.OrderIntent) (string, error)
	// GetOrder returns a *domain.NotFoundError if the order is unknown.
	GetOrder(ctx context.Context, orderID string) (*domain.SwapOrder, error)
	GetTrades(ctx context.Context, orderID string) ([]domain.Trade, error)
	// GetOrders returns a page of the orders of the given owner, most recent
	// first.
	GetOrders(
		ctx context.Context, owner common.Address, limit, offset int,
	) ([]domain.SwapOrder, error)
}
