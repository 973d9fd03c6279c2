package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// MultisigService is the service keeping the queue of the transactions
// proposed for a Safe and the signatures collected for them. It is the
// authority on per-signer uniqueness of signatures.
type MultisigService interface {
	// GetSafe returns owners, threshold and current nonce of the Safe.
	GetSafe(ctx context.Context, safe common.Address) (*domain.Safe, error)
	// GetPendingTransactions returns the not yet executed transactions.
	GetPendingTransactions(
		ctx context.Context, safe common.Address,
	) ([]domain.SafeTransaction, error)
	// GetTransaction returns a *domain.NotFoundError if the hash is unknown.
	GetTransaction(
		ctx context.Context, safeTxHash common.Hash,
	) (*domain.SafeTransaction, error)
	// ProposeTransaction adds the transaction to the queue along with the
	// signature of its proposer.
	ProposeTransaction(
		ctx context.Context, tx domain.SafeTransaction,
		sender common.Address, signature []byte,
	) error
	ConfirmTransaction(
		ctx context.Context, safeTxHash common.Hash,
		signer common.Address, signature []byte,
	) error
	MarkExecuted(ctx context.Context, safeTxHash common.Hash) error
	RejectTransaction(
		ctx context.Context, safeTxHash common.Hash, reason string,
	) error
}
