package swap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

type OrderResult struct {
	OrderID    string
	SafeTxHash common.Hash
	Signature  []byte
	Status     domain.SafeTxStatus
}

type OrderWithTrades struct {
	Order  domain.SwapOrder
	Trades []domain.Trade
}
