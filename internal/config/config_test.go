package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/safeswap/safeswap-daemon/internal/config"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

const (
	testSafe     = "0x5afe5afe5afe5afe5afe5afe5afe5afe5afe5afe"
	testOwnerA   = "0x1111111111111111111111111111111111111111"
	testOwnerB   = "0x2222222222222222222222222222222222222222"
	testAgentKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func setBaseEnv(t *testing.T) string {
	datadir := t.TempDir()
	t.Setenv("SAFESWAP_DATADIR", datadir)
	t.Setenv("SAFESWAP_SAFE_ADDRESS", testSafe)
	t.Setenv("SAFESWAP_AGENT_PRIVATE_KEY", testAgentKey)
	return datadir
}

func TestInitConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		setBaseEnv(t)

		require.NoError(t, config.InitConfig())
		require.Equal(t, int64(11155111), config.GetInt64(config.ChainIDKey))
		require.Equal(t, 4, config.GetInt(config.LogLevelKey))
		require.Equal(t, 30*time.Minute, config.GetDuration(config.OrderValidityKey))
		require.Equal(t, config.OrderBookCowSwap, config.GetString(config.OrderBookTypeKey))
		require.Equal(
			t, config.MultisigSafeTxService, config.GetString(config.MultisigTypeKey),
		)
		require.Equal(
			t, domain.DefaultSettlementContract,
			config.GetAddress(config.SettlementContractKey),
		)
		require.Equal(t, common.HexToAddress(testSafe), config.GetAddress(config.SafeAddressKey))
		require.Empty(t, config.GetList(config.WebhookEndpointsKey))
	})

	t.Run("local multisig", func(t *testing.T) {
		datadir := setBaseEnv(t)
		t.Setenv("SAFESWAP_MULTISIG_TYPE", config.MultisigBadger)
		t.Setenv("SAFESWAP_SAFE_OWNERS", testOwnerA+", "+testOwnerB)
		t.Setenv("SAFESWAP_SAFE_THRESHOLD", "2")
		t.Setenv("SAFESWAP_ORDER_VALIDITY", "1h")
		t.Setenv("SAFESWAP_WEBHOOK_ENDPOINTS", "http://localhost:8080/hook,https://example.com/hook")

		require.NoError(t, config.InitConfig())
		require.Equal(t, time.Hour, config.GetDuration(config.OrderValidityKey))
		require.Equal(
			t,
			[]common.Address{common.HexToAddress(testOwnerA), common.HexToAddress(testOwnerB)},
			config.GetSafeOwners(),
		)
		require.Len(t, config.GetList(config.WebhookEndpointsKey), 2)

		_, err := os.Stat(filepath.Join(datadir, config.DbLocation))
		require.NoError(t, err)
	})
}

func TestFailingInitConfig(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "invalid safe address",
			env:  map[string]string{"SAFESWAP_SAFE_ADDRESS": "0x123"},
		},
		{
			name: "missing agent key",
			env:  map[string]string{"SAFESWAP_AGENT_PRIVATE_KEY": ""},
		},
		{
			name: "invalid chain id",
			env:  map[string]string{"SAFESWAP_CHAIN_ID": "0"},
		},
		{
			name: "invalid log level",
			env:  map[string]string{"SAFESWAP_LOG_LEVEL": "7"},
		},
		{
			name: "invalid slippage",
			env:  map[string]string{"SAFESWAP_SLIPPAGE_PERCENTAGE": "100"},
		},
		{
			name: "unsupported order book",
			env:  map[string]string{"SAFESWAP_ORDERBOOK_TYPE": "uniswap"},
		},
		{
			name: "invalid order book url",
			env:  map[string]string{"SAFESWAP_ORDERBOOK_URL": "api.cow.fi"},
		},
		{
			name: "unsupported multisig",
			env:  map[string]string{"SAFESWAP_MULTISIG_TYPE": "postgres"},
		},
		{
			name: "local multisig without owners",
			env:  map[string]string{"SAFESWAP_MULTISIG_TYPE": config.MultisigInMemory},
		},
		{
			name: "threshold out of range",
			env: map[string]string{
				"SAFESWAP_MULTISIG_TYPE":  config.MultisigInMemory,
				"SAFESWAP_SAFE_OWNERS":    testOwnerA,
				"SAFESWAP_SAFE_THRESHOLD": "2",
			},
		},
		{
			name: "invalid webhook endpoint",
			env:  map[string]string{"SAFESWAP_WEBHOOK_ENDPOINTS": "not a url"},
		},
	}

	for i := range tests {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			require.Error(t, config.InitConfig())
		})
	}
}
