package inmemoryorderbook

import (
	"context"
	"encoding/binary"
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// OrderBook is an in-process order book for the orders of a single owner.
// Orders are priced 1:1 and settle only through Fill.
type OrderBook struct {
	owner  common.Address
	orders map[string]*domain.SwapOrder
	trades map[string][]domain.Trade
	block  uint64
	Now    func() time.Time

	locker *sync.RWMutex
}

func NewOrderBook(owner common.Address) *OrderBook {
	return &OrderBook{
		owner:  owner,
		orders: make(map[string]*domain.SwapOrder),
		trades: make(map[string][]domain.Trade),
		Now:    time.Now,
		locker: &sync.RWMutex{},
	}
}

// Submit stores an open order for the intent. Every call creates a new
// order, identical intents included.
func (o *OrderBook) Submit(
	_ context.Context, intent domain.OrderIntent,
) (string, error) {
	amount := intent.Amount()
	if amount == nil || amount.Sign() <= 0 {
		return "", domain.NewValidationError("amount", "must be a positive integer")
	}
	if intent.SellToken == intent.BuyToken {
		return "", domain.NewValidationError(
			"buyToken", "must differ from sell token",
		)
	}

	o.locker.Lock()
	defer o.locker.Unlock()

	uid := o.orderUID(intent)
	order := &domain.SwapOrder{
		ID:                 uid,
		Owner:              o.owner,
		SellToken:          intent.SellToken,
		BuyToken:           intent.BuyToken,
		SellAmount:         new(big.Int).Set(amount),
		BuyAmount:          new(big.Int).Set(amount),
		Kind:               intent.Kind,
		ValidTo:            intent.ValidTo,
		Receiver:           intent.Receiver,
		Status:             domain.OrderStatusOpen,
		ExecutedSellAmount: big.NewInt(0),
		ExecutedBuyAmount:  big.NewInt(0),
		CreationDate:       o.Now(),
	}
	o.orders[uid] = order

	log.Debugf("order %s added to inmemory order book", uid)
	return uid, nil
}

func (o *OrderBook) GetOrder(
	_ context.Context, id string,
) (*domain.SwapOrder, error) {
	o.locker.RLock()
	defer o.locker.RUnlock()

	order, ok := o.orders[id]
	if !ok {
		return nil, domain.NewNotFoundError("order", id)
	}
	return o.view(order), nil
}

func (o *OrderBook) GetTrades(
	_ context.Context, id string,
) ([]domain.Trade, error) {
	o.locker.RLock()
	defer o.locker.RUnlock()

	if _, ok := o.orders[id]; !ok {
		return nil, domain.NewNotFoundError("order", id)
	}
	trades := make([]domain.Trade, 0, len(o.trades[id]))
	for _, t := range o.trades[id] {
		trades = append(trades, copyTrade(t))
	}
	return trades, nil
}

// GetOrders returns the orders of the owner, most recent first.
func (o *OrderBook) GetOrders(
	_ context.Context, owner common.Address, limit, offset int,
) ([]domain.SwapOrder, error) {
	if limit < 0 || offset < 0 {
		return nil, domain.NewValidationError(
			"limit", "limit and offset must not be negative",
		)
	}

	o.locker.RLock()
	defer o.locker.RUnlock()

	orders := make([]domain.SwapOrder, 0)
	for _, order := range o.orders {
		if order.Owner == owner {
			orders = append(orders, *o.view(order))
		}
	}
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreationDate.Equal(orders[j].CreationDate) {
			return orders[i].CreationDate.After(orders[j].CreationDate)
		}
		return orders[i].ID < orders[j].ID
	})

	if offset >= len(orders) {
		return []domain.SwapOrder{}, nil
	}
	orders = orders[offset:]
	if limit > 0 && limit < len(orders) {
		orders = orders[:limit]
	}
	return orders, nil
}

// Fill settles the given amounts of an open order and records the trade.
func (o *OrderBook) Fill(
	id string, sellAmount, buyAmount *big.Int,
) (*domain.Trade, error) {
	o.locker.Lock()
	defer o.locker.Unlock()

	order, ok := o.orders[id]
	if !ok {
		return nil, domain.NewNotFoundError("order", id)
	}
	if status := o.view(order).Status; status != domain.OrderStatusOpen {
		return nil, domain.NewValidationError(
			"order", "cannot fill order in status "+string(status),
		)
	}

	order.ExecutedSellAmount.Add(order.ExecutedSellAmount, sellAmount)
	order.ExecutedBuyAmount.Add(order.ExecutedBuyAmount, buyAmount)
	if order.IsFilled() {
		order.Status = domain.OrderStatusFulfilled
	}

	o.block++
	trade := domain.Trade{
		OrderUID:    id,
		BlockNumber: o.block,
		LogIndex:    uint64(len(o.trades[id])),
		SellAmount:  new(big.Int).Set(sellAmount),
		BuyAmount:   new(big.Int).Set(buyAmount),
		TxHash:      crypto.Keccak256Hash([]byte(id), new(big.Int).SetUint64(o.block).Bytes()),
	}
	o.trades[id] = append(o.trades[id], trade)

	log.Debugf("order %s filled by trade in block %d", id, o.block)
	return &trade, nil
}

// Cancel marks an order cancelled. Settled amounts are kept.
func (o *OrderBook) Cancel(id string) error {
	o.locker.Lock()
	defer o.locker.Unlock()

	order, ok := o.orders[id]
	if !ok {
		return domain.NewNotFoundError("order", id)
	}
	if order.Status == domain.OrderStatusOpen {
		order.Status = domain.OrderStatusCancelled
	}
	return nil
}

// view returns a copy of the order with the expired status reported once
// its validity passed.
func (o *OrderBook) view(order *domain.SwapOrder) *domain.SwapOrder {
	cp := *order
	cp.SellAmount = new(big.Int).Set(order.SellAmount)
	cp.BuyAmount = new(big.Int).Set(order.BuyAmount)
	cp.ExecutedSellAmount = new(big.Int).Set(order.ExecutedSellAmount)
	cp.ExecutedBuyAmount = new(big.Int).Set(order.ExecutedBuyAmount)
	if cp.Status == domain.OrderStatusOpen && cp.IsExpiredAt(o.Now()) {
		cp.Status = domain.OrderStatusExpired
	}
	return &cp
}

// orderUID mimics the layout of settlement order uids: a 32 bytes digest,
// the owner and the validTo timestamp.
func (o *OrderBook) orderUID(intent domain.OrderIntent) string {
	salt := uuid.New()
	digest := crypto.Keccak256(
		intent.SellToken.Bytes(),
		intent.BuyToken.Bytes(),
		intent.Amount().Bytes(),
		[]byte(intent.Kind),
		intent.Receiver.Bytes(),
		salt[:],
	)

	validTo := make([]byte, 4)
	binary.BigEndian.PutUint32(validTo, uint32(intent.ValidTo))

	uid := make([]byte, 0, 56)
	uid = append(uid, digest...)
	uid = append(uid, o.owner.Bytes()...)
	uid = append(uid, validTo...)
	return hexutil.Encode(uid)
}

func copyTrade(t domain.Trade) domain.Trade {
	t.SellAmount = new(big.Int).Set(t.SellAmount)
	t.BuyAmount = new(big.Int).Set(t.BuyAmount)
	return t
}
