package main

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/safeswap/safeswap-daemon/internal/config"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	ecdsasigner "github.com/safeswap/safeswap-daemon/internal/infrastructure/signer/ecdsa"
)

const (
	agentKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	ownerKey = "0x8da4ef21b864d2cc526dbdb2a120bd2874c36c9d0a1fb7f8c63d7f7a8b41de8f"
	safeHex  = "0x5afe5afe5afe5afe5afe5afe5afe5afe5afe5afe"
	cowToken = "0x0625aFB445C3B6B7B929342a04A22599fd5dBB59"
)

func setLocalEnv(t *testing.T) {
	agent, err := ecdsasigner.NewSigner(agentKey)
	require.NoError(t, err)
	owner, err := ecdsasigner.NewSigner(ownerKey)
	require.NoError(t, err)
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	third := crypto.PubkeyToAddress(key.PublicKey)

	t.Setenv("SAFESWAP_DATADIR", t.TempDir())
	t.Setenv("SAFESWAP_SAFE_ADDRESS", safeHex)
	t.Setenv("SAFESWAP_AGENT_PRIVATE_KEY", agentKey)
	t.Setenv("SAFESWAP_ORDERBOOK_TYPE", config.OrderBookInMemory)
	t.Setenv("SAFESWAP_MULTISIG_TYPE", config.MultisigBadger)
	t.Setenv(
		"SAFESWAP_SAFE_OWNERS",
		agent.Address().Hex()+","+owner.Address().Hex()+","+third.Hex(),
	)
	t.Setenv("SAFESWAP_SAFE_THRESHOLD", "2")
	t.Setenv("SAFESWAP_OWNER_PRIVATE_KEY", ownerKey)
}

func newTestApp() *cli.App {
	app := cli.NewApp()
	app.Commands = []*cli.Command{&order, &safe, &status, &balance}
	return app
}

func TestServices(t *testing.T) {
	setLocalEnv(t)
	require.NoError(t, config.InitConfig())

	var err error
	svc, err = newServices()
	require.NoError(t, err)
	t.Cleanup(func() {
		svc.close()
		svc = nil
	})

	ctx := context.Background()
	res, err := svc.swapSvc.CreateAndSignOrder(ctx, big.NewInt(1000), cowToken, "sell")
	require.NoError(t, err)
	require.Equal(t, domain.SafeTxStatusAgentSigned, res.Status)

	app := newTestApp()
	hash := res.SafeTxHash.Hex()

	err = app.Run([]string{"safeswap", "safe", "confirm", "--safe_tx_hash", hash})
	require.NoError(t, err)

	txStatus, err := svc.signingSvc.GetStatus(ctx, res.SafeTxHash)
	require.NoError(t, err)
	require.Equal(t, domain.SafeTxStatusExecutable, txStatus.Status)

	err = app.Run([]string{"safeswap", "safe", "execute", "--safe_tx_hash", hash})
	require.NoError(t, err)

	err = app.Run([]string{
		"safeswap", "status", "--safe_tx_hash", hash, "--order_id", res.OrderID,
	})
	require.NoError(t, err)

	err = app.Run([]string{"safeswap", "order", "sign", "--order_id", "0x01"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = app.Run([]string{"safeswap", "order", "list", "--limit", "5"})
	require.NoError(t, err)

	// No rpc url configured.
	err = app.Run([]string{"safeswap", "balance"})
	require.Error(t, err)
}

func TestParseSafeTxHash(t *testing.T) {
	hash := common.HexToHash("0xabcd")

	parsed, err := parseSafeTxHash(hash.Hex())
	require.NoError(t, err)
	require.Equal(t, hash, parsed)

	for _, v := range []string{"", "0x", "abcd", "0xabcd", hash.Hex() + "00"} {
		_, err := parseSafeTxHash(v)
		require.ErrorIs(t, err, domain.ErrValidation)
	}
}
