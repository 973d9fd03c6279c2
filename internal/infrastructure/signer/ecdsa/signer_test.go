package ecdsasigner_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	ecdsasigner "github.com/safeswap/safeswap-daemon/internal/infrastructure/signer/ecdsa"
)

func TestSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	hexKey := hexutil.Encode(crypto.FromECDSA(key))

	for _, k := range []string{hexKey, hexKey[2:]} {
		signer, err := ecdsasigner.NewSigner(k)
		require.NoError(t, err)
		require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

		hash := common.HexToHash("0x1234")
		sig, err := signer.SignHash(context.Background(), hash)
		require.NoError(t, err)
		require.Len(t, sig, 65)
		require.Contains(t, []byte{27, 28}, sig[64])

		recovered, err := domain.RecoverSigner(hash, sig)
		require.NoError(t, err)
		require.Equal(t, signer.Address(), recovered)
	}
}

func TestFailingSigner(t *testing.T) {
	for _, k := range []string{"", "0x", "0xzz", "0x1234"} {
		_, err := ecdsasigner.NewSigner(k)
		require.Error(t, err, k)
	}
}
