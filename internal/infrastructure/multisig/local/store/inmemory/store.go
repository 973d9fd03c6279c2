package inmemorystore

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	localmultisig "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local"
)

type store struct {
	safes map[common.Address]domain.Safe
	txs   map[common.Hash]domain.SafeTransaction

	locker *sync.RWMutex
}

// NewStore returns a new inmemory Store implementation. Records are copied
// in and out so that callers never share state with the store.
func NewStore() localmultisig.Store {
	return &store{
		safes:  make(map[common.Address]domain.Safe),
		txs:    make(map[common.Hash]domain.SafeTransaction),
		locker: &sync.RWMutex{},
	}
}

func (s *store) GetSafe(
	_ context.Context, addr common.Address,
) (*domain.Safe, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()

	safe, ok := s.safes[addr]
	if !ok {
		return nil, nil
	}
	safe = copySafe(safe)
	return &safe, nil
}

func (s *store) SaveSafe(_ context.Context, safe domain.Safe) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	s.safes[safe.Address] = copySafe(safe)
	return nil
}

func (s *store) GetTransaction(
	_ context.Context, hash common.Hash,
) (*domain.SafeTransaction, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()

	tx, ok := s.txs[hash]
	if !ok {
		return nil, nil
	}
	tx = copyTx(tx)
	return &tx, nil
}

func (s *store) GetTransactionsBySafe(
	_ context.Context, safe common.Address,
) ([]domain.SafeTransaction, error) {
	s.locker.RLock()
	defer s.locker.RUnlock()

	txs := make([]domain.SafeTransaction, 0)
	for _, tx := range s.txs {
		if tx.Safe == safe {
			txs = append(txs, copyTx(tx))
		}
	}
	return txs, nil
}

func (s *store) SaveTransaction(
	_ context.Context, tx domain.SafeTransaction,
) error {
	s.locker.Lock()
	defer s.locker.Unlock()

	s.txs[tx.SafeTxHash] = copyTx(tx)
	return nil
}

func (s *store) Close() {}

func copySafe(safe domain.Safe) domain.Safe {
	safe.Owners = append([]common.Address(nil), safe.Owners...)
	return safe
}

func copyTx(tx domain.SafeTransaction) domain.SafeTransaction {
	if tx.Value != nil {
		tx.Value = new(big.Int).Set(tx.Value)
	}
	if tx.Nonce != nil {
		tx.Nonce = new(big.Int).Set(tx.Nonce)
	}
	tx.Data = append([]byte(nil), tx.Data...)

	sigs := make(map[common.Address][]byte, len(tx.Signatures))
	for signer, sig := range tx.Signatures {
		sigs[signer] = append([]byte(nil), sig...)
	}
	tx.Signatures = sigs
	return tx
}
