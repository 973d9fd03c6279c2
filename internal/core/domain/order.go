package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OrderKind tells which leg of an order is fixed.
type OrderKind string

const (
	OrderKindSell OrderKind = "sell"
	OrderKindBuy  OrderKind = "buy"
)

// OrderStatus is the lifecycle status of an order as reported by the order
// book.
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
)

// SwapOrder is the order book's record of an order. The order book owns it,
// the coordinator only reads it.
type SwapOrder struct {
	ID                 string
	Owner              common.Address
	SellToken          common.Address
	BuyToken           common.Address
	SellAmount         *big.Int
	BuyAmount          *big.Int
	Kind               OrderKind
	ValidTo            int64
	Receiver           common.Address
	Status             OrderStatus
	ExecutedSellAmount *big.Int
	ExecutedBuyAmount  *big.Int
	CreationDate       time.Time
}

// IsExpiredAt returns whether the order validity has passed at the given
// time. The order book may report expiry on its own, with a delay.
func (o SwapOrder) IsExpiredAt(now time.Time) bool {
	if o.Status == OrderStatusExpired {
		return true
	}
	return o.ValidTo > 0 && now.Unix() > o.ValidTo
}

// HasExecution returns whether any amount of the order was settled.
func (o SwapOrder) HasExecution() bool {
	return isPositive(o.ExecutedSellAmount) || isPositive(o.ExecutedBuyAmount)
}

// IsFilled returns whether the fixed leg of the order was entirely settled.
func (o SwapOrder) IsFilled() bool {
	if o.Status == OrderStatusFulfilled {
		return true
	}
	executed, target := o.fixedLeg()
	if !isPositive(target) || executed == nil {
		return false
	}
	return executed.Cmp(target) >= 0
}

// FillRatio returns executed/target of the fixed leg as a pair, the caller
// decides the precision.
func (o SwapOrder) FillRatio() (*big.Int, *big.Int) {
	executed, target := o.fixedLeg()
	if executed == nil {
		executed = big.NewInt(0)
	}
	if target == nil {
		target = big.NewInt(0)
	}
	return executed, target
}

func (o SwapOrder) fixedLeg() (*big.Int, *big.Int) {
	if o.Kind == OrderKindBuy {
		return o.ExecutedBuyAmount, o.BuyAmount
	}
	return o.ExecutedSellAmount, o.SellAmount
}

// Trade is a settlement event of an order, append only.
type Trade struct {
	OrderUID    string
	BlockNumber uint64
	LogIndex    uint64
	SellAmount  *big.Int
	BuyAmount   *big.Int
	TxHash      common.Hash
}

func isPositive(v *big.Int) bool {
	return v != nil && v.Sign() > 0
}
