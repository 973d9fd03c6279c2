package domain_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/stretchr/testify/require"
)

// 32 bytes digest, 20 bytes owner, 4 bytes validTo.
var orderUID = "0x" + strings.Repeat("ab", 32) + strings.Repeat("11", 20) + "6553f100"

func TestBuildPresignTx(t *testing.T) {
	builder := domain.NewPresignTransactionBuilder(domain.DefaultSettlementContract)

	tx, err := builder.BuildPresignTx(orderUID, safeAddr.Hex())
	require.NoError(t, err)
	require.Equal(t, domain.DefaultSettlementContract, tx.To)
	require.Zero(t, tx.Value.Sign())
	require.Equal(t, safeAddr, tx.Account)

	selector := crypto.Keccak256([]byte("setPreSignature(bytes,bool)"))[:4]
	require.True(t, bytes.HasPrefix(tx.Data, selector))

	bytesTy, _ := abi.NewType("bytes", "", nil)
	boolTy, _ := abi.NewType("bool", "", nil)
	args := abi.Arguments{{Type: bytesTy}, {Type: boolTy}}
	values, err := args.Unpack(tx.Data[4:])
	require.NoError(t, err)
	require.Equal(t, hexutil.MustDecode(orderUID), values[0])
	require.Equal(t, true, values[1])

	again, err := builder.BuildPresignTx(orderUID, safeAddr.Hex())
	require.NoError(t, err)
	require.Equal(t, tx.Data, again.Data)
}

func TestFailingBuildPresignTx(t *testing.T) {
	builder := domain.NewPresignTransactionBuilder(domain.DefaultSettlementContract)

	tests := []struct {
		name    string
		orderID string
		account string
	}{
		{"empty order id", "", safeAddr.Hex()},
		{"empty hex order id", "0x", safeAddr.Hex()},
		{"order id without prefix", orderUID[2:], safeAddr.Hex()},
		{"non hex order id", "0xzz", safeAddr.Hex()},
		{"malformed account", orderUID, "0xabc"},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			tx, err := builder.BuildPresignTx(tt.orderID, tt.account)
			require.Nil(t, tx)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}
