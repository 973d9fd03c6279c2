package localmultisig

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// service is a multisig service that keeps the transaction queue of a
// single Safe on a local Store. Signatures are verified against the owners
// of the Safe like the remote service does.
type service struct {
	store   Store
	chainID *big.Int
	safe    common.Address

	locker *sync.Mutex
}

// NewService returns a local multisig service for the given Safe. The Safe
// is added to the store if not already there, otherwise the stored one wins
// so that the nonce survives restarts.
func NewService(
	store Store, chainID *big.Int, safe domain.Safe,
) (ports.MultisigService, error) {
	if store == nil {
		return nil, fmt.Errorf("missing store")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}
	if err := safe.Validate(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	stored, err := store.GetSafe(ctx, safe.Address)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		if err := store.SaveSafe(ctx, safe); err != nil {
			return nil, err
		}
	} else {
		log.Debugf(
			"loaded safe %s with nonce %d from store",
			stored.Address.Hex(), stored.Nonce,
		)
	}

	return &service{
		store:   store,
		chainID: new(big.Int).Set(chainID),
		safe:    safe.Address,
		locker:  &sync.Mutex{},
	}, nil
}

func (s *service) GetSafe(
	ctx context.Context, addr common.Address,
) (*domain.Safe, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	return s.getSafe(ctx, addr)
}

// GetPendingTransactions returns the transactions neither executed nor
// rejected with a nonce not yet consumed, ordered by nonce.
func (s *service) GetPendingTransactions(
	ctx context.Context, addr common.Address,
) ([]domain.SafeTransaction, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	safe, err := s.getSafe(ctx, addr)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.GetTransactionsBySafe(ctx, addr)
	if err != nil {
		return nil, err
	}

	nonce := new(big.Int).SetUint64(safe.Nonce)
	pending := make([]domain.SafeTransaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Executed || tx.Rejected || tx.Nonce.Cmp(nonce) < 0 {
			continue
		}
		pending = append(pending, tx)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if c := pending[i].Nonce.Cmp(pending[j].Nonce); c != 0 {
			return c < 0
		}
		return pending[i].SafeTxHash.Hex() < pending[j].SafeTxHash.Hex()
	})
	return pending, nil
}

func (s *service) GetTransaction(
	ctx context.Context, hash common.Hash,
) (*domain.SafeTransaction, error) {
	s.locker.Lock()
	defer s.locker.Unlock()

	return s.getTransaction(ctx, hash)
}

// ProposeTransaction adds the transaction to the queue with the sender's
// signature. Proposing an already queued transaction only adds the signature.
func (s *service) ProposeTransaction(
	ctx context.Context, tx domain.SafeTransaction,
	sender common.Address, signature []byte,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	safe, err := s.getSafe(ctx, tx.Safe)
	if err != nil {
		return err
	}

	hash, err := domain.SafeTxHash(s.chainID, tx.Safe, tx.SafeTxData)
	if err != nil {
		return err
	}
	if hash != tx.SafeTxHash {
		return domain.NewValidationError(
			"safeTxHash", fmt.Sprintf("expected %s", hash.Hex()),
		)
	}
	if err := s.verifySignature(*safe, hash, sender, signature); err != nil {
		return err
	}

	stored, err := s.store.GetTransaction(ctx, hash)
	if err != nil {
		return err
	}
	if stored == nil {
		stored = &domain.SafeTransaction{
			SafeTxData: tx.SafeTxData,
			SafeTxHash: hash,
			Safe:       tx.Safe,
			Proposer:   sender,
		}
	}
	if status := stored.Status(*safe); status.IsTerminal() {
		return domain.NewStateConflictError(hash.Hex(), status, "propose")
	}
	stored.AddSignature(sender, signature)

	return s.store.SaveTransaction(ctx, *stored)
}

func (s *service) ConfirmTransaction(
	ctx context.Context, hash common.Hash,
	signer common.Address, signature []byte,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	tx, err := s.getTransaction(ctx, hash)
	if err != nil {
		return err
	}
	safe, err := s.getSafe(ctx, tx.Safe)
	if err != nil {
		return err
	}

	if err := s.verifySignature(*safe, hash, signer, signature); err != nil {
		return err
	}
	if status := tx.Status(*safe); status.IsTerminal() {
		return domain.NewStateConflictError(hash.Hex(), status, "confirm")
	}
	tx.AddSignature(signer, signature)

	return s.store.SaveTransaction(ctx, *tx)
}

// MarkExecuted executes the transaction and consumes its nonce. Like the
// Safe contract, only the transaction at the current nonce can be executed.
func (s *service) MarkExecuted(ctx context.Context, hash common.Hash) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	tx, err := s.getTransaction(ctx, hash)
	if err != nil {
		return err
	}
	safe, err := s.getSafe(ctx, tx.Safe)
	if err != nil {
		return err
	}

	if tx.Nonce == nil || !tx.Nonce.IsUint64() || tx.Nonce.Uint64() != safe.Nonce {
		err := domain.NewStateConflictError(hash.Hex(), tx.Status(*safe), "execute")
		err.Reason = fmt.Sprintf(
			"transaction nonce %s is not the safe nonce %d", tx.Nonce, safe.Nonce,
		)
		return err
	}
	if _, err := tx.Execute(*safe); err != nil {
		return err
	}
	if err := s.store.SaveTransaction(ctx, *tx); err != nil {
		return err
	}

	safe.Nonce++
	return s.store.SaveSafe(ctx, *safe)
}

func (s *service) RejectTransaction(
	ctx context.Context, hash common.Hash, reason string,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	tx, err := s.getTransaction(ctx, hash)
	if err != nil {
		return err
	}
	if tx.Rejected {
		return nil
	}
	if !tx.Reject(reason) {
		return domain.NewStateConflictError(
			hash.Hex(), domain.SafeTxStatusExecuted, "reject",
		)
	}
	return s.store.SaveTransaction(ctx, *tx)
}

func (s *service) getSafe(
	ctx context.Context, addr common.Address,
) (*domain.Safe, error) {
	if addr != s.safe {
		return nil, domain.NewNotFoundError("safe", addr.Hex())
	}
	safe, err := s.store.GetSafe(ctx, addr)
	if err != nil {
		return nil, err
	}
	if safe == nil {
		return nil, domain.NewNotFoundError("safe", addr.Hex())
	}
	return safe, nil
}

func (s *service) getTransaction(
	ctx context.Context, hash common.Hash,
) (*domain.SafeTransaction, error) {
	tx, err := s.store.GetTransaction(ctx, hash)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, domain.NewNotFoundError("safe tx", hash.Hex())
	}
	return tx, nil
}

func (s *service) verifySignature(
	safe domain.Safe, hash common.Hash, signer common.Address, sig []byte,
) error {
	if !safe.IsOwner(signer) {
		return domain.NewUnauthorizedError(signer.Hex(), safe.Address.Hex())
	}
	recovered, err := domain.RecoverSigner(hash, sig)
	if err != nil {
		return err
	}
	if recovered != signer {
		err := domain.NewUnauthorizedError(signer.Hex(), safe.Address.Hex())
		err.Reason = fmt.Sprintf("signature recovers to %s", recovered.Hex())
		return err
	}
	return nil
}
