package domain_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

var (
	chainID  = big.NewInt(11155111)
	ownerA   = common.HexToAddress("0x000000000000000000000000000000000000000A")
	ownerB   = common.HexToAddress("0x000000000000000000000000000000000000000B")
	ownerC   = common.HexToAddress("0x000000000000000000000000000000000000000C")
	outsider = common.HexToAddress("0x000000000000000000000000000000000000000D")

	testSafe = domain.Safe{
		Address:   safeAddr,
		Owners:    []common.Address{ownerA, ownerB, ownerC},
		Threshold: 2,
	}
)

func newTxData(nonce int64) domain.SafeTxData {
	return domain.SafeTxData{
		To:        domain.DefaultSettlementContract,
		Value:     big.NewInt(0),
		Data:      []byte{0xec, 0x6c, 0xb1, 0x3f, 0x01},
		Operation: domain.OperationCall,
		Nonce:     big.NewInt(nonce),
	}
}

func TestSafeTxHashIsDeterministic(t *testing.T) {
	data := newTxData(7)

	h1, err := domain.SafeTxHash(chainID, safeAddr, data)
	require.NoError(t, err)
	h2, err := domain.SafeTxHash(new(big.Int).Set(chainID), safeAddr, newTxData(7))
	require.NoError(t, err)
	require.Equal(t, h1, h2)
	require.NotEqual(t, common.Hash{}, h1)

	// Nil and empty value/data encode the same way.
	withNils := newTxData(7)
	withNils.Value = nil
	withEmpty := newTxData(7)
	withNils.Data, withEmpty.Data = nil, []byte{}
	h3, err := domain.SafeTxHash(chainID, safeAddr, withNils)
	require.NoError(t, err)
	h4, err := domain.SafeTxHash(chainID, safeAddr, withEmpty)
	require.NoError(t, err)
	require.Equal(t, h3, h4)
}

func TestSafeTxHashCommitsToEveryInput(t *testing.T) {
	base, err := domain.SafeTxHash(chainID, safeAddr, newTxData(7))
	require.NoError(t, err)

	variants := map[string]func() (common.Hash, error){
		"nonce": func() (common.Hash, error) {
			return domain.SafeTxHash(chainID, safeAddr, newTxData(8))
		},
		"chain id": func() (common.Hash, error) {
			return domain.SafeTxHash(big.NewInt(1), safeAddr, newTxData(7))
		},
		"safe": func() (common.Hash, error) {
			return domain.SafeTxHash(chainID, ownerA, newTxData(7))
		},
		"to": func() (common.Hash, error) {
			d := newTxData(7)
			d.To = ownerB
			return domain.SafeTxHash(chainID, safeAddr, d)
		},
		"value": func() (common.Hash, error) {
			d := newTxData(7)
			d.Value = big.NewInt(1)
			return domain.SafeTxHash(chainID, safeAddr, d)
		},
		"data": func() (common.Hash, error) {
			d := newTxData(7)
			d.Data = append(d.Data, 0x00)
			return domain.SafeTxHash(chainID, safeAddr, d)
		},
		"operation": func() (common.Hash, error) {
			d := newTxData(7)
			d.Operation = domain.OperationDelegateCall
			return domain.SafeTxHash(chainID, safeAddr, d)
		},
	}

	for name, hashFn := range variants {
		h, err := hashFn()
		require.NoError(t, err, name)
		require.NotEqual(t, base, h, name)
	}
}

func TestFailingSafeTxHash(t *testing.T) {
	_, err := domain.SafeTxHash(nil, safeAddr, newTxData(0))
	require.ErrorIs(t, err, domain.ErrValidation)

	d := newTxData(0)
	d.Nonce = nil
	_, err = domain.SafeTxHash(chainID, safeAddr, d)
	require.ErrorIs(t, err, domain.ErrValidation)

	d = newTxData(0)
	d.Operation = 2
	_, err = domain.SafeTxHash(chainID, safeAddr, d)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSafeTransactionSignatures(t *testing.T) {
	tx, err := domain.NewSafeTransaction(chainID, safeAddr, newTxData(1))
	require.NoError(t, err)
	require.Equal(t, domain.SafeTxStatusDraft, tx.Status(testSafe))

	require.True(t, tx.AddSignature(ownerA, []byte{1}))
	require.Equal(t, 1, tx.Confirmations(testSafe))
	require.False(t, tx.IsExecutable(testSafe))
	require.Equal(t, domain.SafeTxStatusAwaitingConfirmations, tx.Status(testSafe))

	// Same signer overwrites, never double counts.
	require.False(t, tx.AddSignature(ownerA, []byte{2}))
	require.Equal(t, 1, tx.Confirmations(testSafe))
	require.Equal(t, []byte{2}, tx.Signatures[ownerA])

	// Non owners do not count.
	tx.AddSignature(outsider, []byte{3})
	require.Equal(t, 1, tx.Confirmations(testSafe))
	require.False(t, tx.IsExecutable(testSafe))

	require.True(t, tx.AddSignature(ownerB, []byte{4}))
	require.Equal(t, 2, tx.Confirmations(testSafe))
	require.True(t, tx.IsExecutable(testSafe))
	require.Equal(t, domain.SafeTxStatusExecutable, tx.Status(testSafe))
}

func TestSafeTransactionStatus(t *testing.T) {
	tests := []struct {
		name     string
		proposer common.Address
		signers  []common.Address
		executed bool
		rejected bool
		expected domain.SafeTxStatus
	}{
		{"draft", ownerA, nil, false, false, domain.SafeTxStatusDraft},
		{"agent signed", ownerA, []common.Address{ownerA}, false, false, domain.SafeTxStatusAgentSigned},
		{"signed by non proposer", ownerA, []common.Address{ownerB}, false, false, domain.SafeTxStatusAwaitingConfirmations},
		{"unknown proposer", common.Address{}, []common.Address{ownerA}, false, false, domain.SafeTxStatusAwaitingConfirmations},
		{"threshold met", ownerA, []common.Address{ownerA, ownerC}, false, false, domain.SafeTxStatusExecutable},
		{"executed", ownerA, []common.Address{ownerA, ownerB}, true, false, domain.SafeTxStatusExecuted},
		{"rejected", ownerA, []common.Address{ownerA}, false, true, domain.SafeTxStatusRejected},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			tx, err := domain.NewSafeTransaction(chainID, safeAddr, newTxData(1))
			require.NoError(t, err)
			tx.Proposer = tt.proposer
			for _, s := range tt.signers {
				tx.AddSignature(s, []byte{0x01})
			}
			tx.Executed = tt.executed
			tx.Rejected = tt.rejected

			require.Equal(t, tt.expected, tx.Status(testSafe))
		})
	}
}

func TestSafeTransactionExecute(t *testing.T) {
	tx, err := domain.NewSafeTransaction(chainID, safeAddr, newTxData(1))
	require.NoError(t, err)

	ok, err := tx.Execute(testSafe)
	require.False(t, ok)
	require.ErrorIs(t, err, domain.ErrStateConflict)

	tx.AddSignature(ownerA, []byte{1})
	tx.AddSignature(ownerB, []byte{1})
	ok, err = tx.Execute(testSafe)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, domain.SafeTxStatusExecuted, tx.Status(testSafe))

	ok, err = tx.Execute(testSafe)
	require.False(t, ok)
	require.ErrorIs(t, err, domain.ErrStateConflict)

	require.False(t, tx.Reject("too late"))
}

func TestSafeTransactionReject(t *testing.T) {
	tx, err := domain.NewSafeTransaction(chainID, safeAddr, newTxData(1))
	require.NoError(t, err)

	require.True(t, tx.Reject("owner removed"))
	require.False(t, tx.Reject("again"))
	require.Equal(t, "owner removed", tx.RejectReason)
	require.True(t, tx.Status(testSafe).IsTerminal())

	_, err = tx.Execute(testSafe)
	require.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestRecoverSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hash, err := domain.SafeTxHash(chainID, safeAddr, newTxData(3))
	require.NoError(t, err)

	sig, err := crypto.Sign(hash.Bytes(), key)
	require.NoError(t, err)
	sig[64] += 27

	signer, err := domain.RecoverSigner(hash, sig)
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)

	_, err = domain.RecoverSigner(hash, sig[:64])
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestSafeValidate(t *testing.T) {
	require.NoError(t, testSafe.Validate())

	invalid := []domain.Safe{
		{Address: safeAddr, Threshold: 1},
		{Address: safeAddr, Owners: []common.Address{ownerA}, Threshold: 0},
		{Address: safeAddr, Owners: []common.Address{ownerA}, Threshold: 2},
		{Address: safeAddr, Owners: []common.Address{ownerA, ownerA}, Threshold: 1},
	}
	for _, s := range invalid {
		require.ErrorIs(t, s.Validate(), domain.ErrValidation)
	}
}
