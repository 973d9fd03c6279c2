package badgerstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/timshannon/badgerhold/v4"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	localmultisig "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local"
)

type multisigStore struct {
	store *badgerhold.Store
	quit  chan struct{}

	closeOnce *sync.Once
}

// NewStore returns a badgerhold backed Store. An empty baseDbDir opens an
// in-memory database.
func NewStore(
	baseDbDir string, logger badger.Logger,
) (localmultisig.Store, error) {
	var multisigDir string
	if len(baseDbDir) > 0 {
		multisigDir = filepath.Join(baseDbDir, "multisig")
	}

	quit := make(chan struct{})
	store, err := createDb(multisigDir, logger, quit)
	if err != nil {
		return nil, fmt.Errorf("opening multisig db: %w", err)
	}
	return &multisigStore{store, quit, &sync.Once{}}, nil
}

func (m *multisigStore) GetSafe(
	_ context.Context, addr common.Address,
) (*domain.Safe, error) {
	var safe safeRecord
	if err := m.store.Get(addr.Hex(), &safe); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return safe.toDomain(), nil
}

func (m *multisigStore) SaveSafe(_ context.Context, safe domain.Safe) error {
	return m.store.Upsert(safe.Address.Hex(), newSafeRecord(safe))
}

func (m *multisigStore) GetTransaction(
	_ context.Context, hash common.Hash,
) (*domain.SafeTransaction, error) {
	var tx safeTxRecord
	if err := m.store.Get(hash.Hex(), &tx); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return tx.toDomain()
}

func (m *multisigStore) GetTransactionsBySafe(
	_ context.Context, safe common.Address,
) ([]domain.SafeTransaction, error) {
	var records []safeTxRecord
	query := badgerhold.Where("Safe").Eq(safe.Hex())
	if err := m.store.Find(&records, query); err != nil {
		return nil, err
	}

	txs := make([]domain.SafeTransaction, 0, len(records))
	for _, r := range records {
		tx, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, nil
}

func (m *multisigStore) SaveTransaction(
	_ context.Context, tx domain.SafeTransaction,
) error {
	return m.store.Upsert(tx.SafeTxHash.Hex(), newSafeTxRecord(tx))
}

func (m *multisigStore) Close() {
	m.closeOnce.Do(func() {
		close(m.quit)
		m.store.Close()
	})
}

// createDb opens the database. On disk, the value log is garbage collected
// periodically until quit is closed.
func createDb(
	dbDir string, logger badger.Logger, quit <-chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-quit:
					return
				case <-ticker.C:
					if err := db.Badger().RunValueLogGC(0.5); err != nil &&
						err != badger.ErrNoRewrite {
						log.Error(err)
					}
				}
			}
		}()
	}

	return db, nil
}
