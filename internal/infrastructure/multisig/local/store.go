package localmultisig

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// Store persists the Safe and the queue of its transactions. Getters return
// nil and no error for missing records.
type Store interface {
	GetSafe(ctx context.Context, addr common.Address) (*domain.Safe, error)
	SaveSafe(ctx context.Context, safe domain.Safe) error
	GetTransaction(
		ctx context.Context, hash common.Hash,
	) (*domain.SafeTransaction, error)
	GetTransactionsBySafe(
		ctx context.Context, safe common.Address,
	) ([]domain.SafeTransaction, error)
	SaveTransaction(ctx context.Context, tx domain.SafeTransaction) error
	Close()
}
