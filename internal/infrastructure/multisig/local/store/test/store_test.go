package store_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	localmultisig "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local"
	badgerstore "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local/store/badger"
	inmemorystore "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local/store/inmemory"
)

var (
	chainID   = big.NewInt(11155111)
	safeAddr  = common.HexToAddress("0x5afe5afe5afe5afe5afe5afe5afe5afe5afe5afe")
	otherSafe = common.HexToAddress("0x0000000000000000000000000000000000000bad")
	owner1    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	owner2    = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newStores(t *testing.T) map[string]localmultisig.Store {
	inMemoryBadger, err := badgerstore.NewStore("", log.New())
	require.NoError(t, err)
	onDiskBadger, err := badgerstore.NewStore(t.TempDir(), log.New())
	require.NoError(t, err)

	stores := map[string]localmultisig.Store{
		"inmemory":         inmemorystore.NewStore(),
		"badger_in_memory": inMemoryBadger,
		"badger_on_disk":   onDiskBadger,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			s.Close()
		}
	})
	return stores
}

func newTx(t *testing.T, safe common.Address, nonce int64) domain.SafeTransaction {
	tx, err := domain.NewSafeTransaction(chainID, safe, domain.SafeTxData{
		To:        common.HexToAddress("0x9008D19f58AAbD9eD0D60971565AA8510560ab41"),
		Value:     big.NewInt(0),
		Data:      []byte{0xec, 0x6c, 0xb1, 0x3f},
		Operation: domain.OperationCall,
		Nonce:     big.NewInt(nonce),
	})
	require.NoError(t, err)
	tx.Proposer = owner1
	return *tx
}

func TestSafe(t *testing.T) {
	for name, store := range newStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			safe, err := store.GetSafe(ctx, safeAddr)
			require.NoError(t, err)
			require.Nil(t, safe)

			err = store.SaveSafe(ctx, domain.Safe{
				Address:   safeAddr,
				Owners:    []common.Address{owner1, owner2},
				Threshold: 2,
			})
			require.NoError(t, err)

			safe, err = store.GetSafe(ctx, safeAddr)
			require.NoError(t, err)
			require.NotNil(t, safe)
			require.Equal(t, []common.Address{owner1, owner2}, safe.Owners)
			require.Equal(t, 2, safe.Threshold)
			require.Zero(t, safe.Nonce)

			safe.Nonce = 3
			require.NoError(t, store.SaveSafe(ctx, *safe))

			safe, err = store.GetSafe(ctx, safeAddr)
			require.NoError(t, err)
			require.Equal(t, uint64(3), safe.Nonce)
		})
	}
}

func TestTransactions(t *testing.T) {
	for name, store := range newStores(t) {
		store := store
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tx := newTx(t, safeAddr, 0)

			got, err := store.GetTransaction(ctx, tx.SafeTxHash)
			require.NoError(t, err)
			require.Nil(t, got)

			require.NoError(t, store.SaveTransaction(ctx, tx))
			require.NoError(t, store.SaveTransaction(ctx, newTx(t, safeAddr, 1)))
			require.NoError(t, store.SaveTransaction(ctx, newTx(t, otherSafe, 0)))

			got, err = store.GetTransaction(ctx, tx.SafeTxHash)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Equal(t, tx.SafeTxHash, got.SafeTxHash)
			require.Equal(t, tx.Safe, got.Safe)
			require.Equal(t, tx.To, got.To)
			require.Equal(t, tx.Data, got.Data)
			require.Equal(t, tx.Proposer, got.Proposer)
			require.Zero(t, tx.Value.Cmp(got.Value))
			require.Zero(t, tx.Nonce.Cmp(got.Nonce))
			require.Empty(t, got.Signatures)

			got.AddSignature(owner1, []byte{1, 2, 3})
			got.Reject("unauthorized owner")
			require.NoError(t, store.SaveTransaction(ctx, *got))

			got, err = store.GetTransaction(ctx, tx.SafeTxHash)
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, got.Signatures[owner1])
			require.True(t, got.Rejected)
			require.Equal(t, "unauthorized owner", got.RejectReason)

			txs, err := store.GetTransactionsBySafe(ctx, safeAddr)
			require.NoError(t, err)
			require.Len(t, txs, 2)
			for _, tx := range txs {
				require.Equal(t, safeAddr, tx.Safe)
			}

			txs, err = store.GetTransactionsBySafe(ctx, owner2)
			require.NoError(t, err)
			require.Empty(t, txs)
		})
	}
}
