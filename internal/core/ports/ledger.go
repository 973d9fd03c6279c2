package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger gives read access to the chain state.
type Ledger interface {
	NativeBalance(ctx context.Context, account common.Address) (*big.Int, error)
	TokenBalance(
		ctx context.Context, token, account common.Address,
	) (*big.Int, error)
	Close()
}
