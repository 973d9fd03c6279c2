package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

const (
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// DatadirKey is the local data directory to store the internal state of the daemon
	DatadirKey = "DATADIR"
	// ChainIDKey is the id of the chain the Safe lives on
	ChainIDKey = "CHAIN_ID"
	// RPCURLKey is the url of the json-rpc endpoint used to read balances
	RPCURLKey = "RPC_URL"
	// SafeAddressKey is the address of the Safe owning the orders
	SafeAddressKey = "SAFE_ADDRESS"
	// AgentPrivateKeyKey is the hex encoded key of the agent, one of the
	// owners of the Safe
	AgentPrivateKeyKey = "AGENT_PRIVATE_KEY"
	// SettlementContractKey is the contract presigning orders
	SettlementContractKey = "SETTLEMENT_CONTRACT"
	// ReferenceTokenKey is the token every order is paired with
	ReferenceTokenKey = "REFERENCE_TOKEN"
	// OrderValidityKey is how long an order stays valid after creation
	OrderValidityKey = "ORDER_VALIDITY"
	// SlippagePercentageKey is applied to the quoted amount of new orders
	SlippagePercentageKey = "SLIPPAGE_PERCENTAGE"
	// AppDataKey is the app data hash attached to new orders
	AppDataKey = "APP_DATA"
	// OrderBookTypeKey is used to switch order book between those supported
	OrderBookTypeKey = "ORDERBOOK_TYPE"
	// OrderBookURLKey is the base url of the CoW Protocol api, ie. https://api.cow.fi/sepolia
	OrderBookURLKey = "ORDERBOOK_URL"
	// MultisigTypeKey is used to switch multisig service between those supported
	MultisigTypeKey = "MULTISIG_TYPE"
	// SafeTxServiceURLKey is the base url of the Safe Transaction Service
	SafeTxServiceURLKey = "SAFE_TX_SERVICE_URL"
	// SafeTxServiceAPIKeyKey is the optional api key of the Safe Transaction Service
	SafeTxServiceAPIKeyKey = "SAFE_TX_SERVICE_API_KEY"
	// SafeOwnersKey is the comma separated list of owners of the Safe, only
	// for local multisig queues
	SafeOwnersKey = "SAFE_OWNERS"
	// SafeThresholdKey is the threshold of the Safe, only for local multisig
	// queues
	SafeThresholdKey = "SAFE_THRESHOLD"
	// HTTPTimeoutKey is the timeout of the calls to the upstream services
	HTTPTimeoutKey = "HTTP_TIMEOUT"
	// RequestsPerSecondKey limits the rate of the calls to every upstream
	// service, 0 disables the limit
	RequestsPerSecondKey = "REQUESTS_PER_SECOND"
	// WebhookEndpointsKey is the comma separated list of urls notified of
	// the signing events
	WebhookEndpointsKey = "WEBHOOK_ENDPOINTS"
	// WebhookSecretKey is used to sign the webhook requests
	WebhookSecretKey = "WEBHOOK_SECRET"

	OrderBookCowSwap  = "cowswap"
	OrderBookInMemory = "inmemory"

	MultisigSafeTxService = "safe-tx-service"
	MultisigBadger        = "badger"
	MultisigInMemory      = "inmemory"

	DbLocation = "db"
)

var (
	vip            *viper.Viper
	defaultDatadir = btcutil.AppDataDir("safeswap-daemon", false)

	supportedOrderBooks = map[string]struct{}{
		OrderBookCowSwap:  {},
		OrderBookInMemory: {},
	}
	supportedMultisigs = map[string]struct{}{
		MultisigSafeTxService: {},
		MultisigBadger:        {},
		MultisigInMemory:      {},
	}
)

// InitConfig loads the optional .env file of the working directory, then
// reads the SAFESWAP_ prefixed environment.
func InitConfig() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error while loading .env file: %s", err)
	}

	vip = viper.New()
	vip.SetEnvPrefix("SAFESWAP")
	vip.AutomaticEnv()

	vip.SetDefault(LogLevelKey, int(log.InfoLevel))
	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(ChainIDKey, 11155111)
	vip.SetDefault(SettlementContractKey, domain.DefaultSettlementContract.Hex())
	// WETH on Sepolia.
	vip.SetDefault(ReferenceTokenKey, "0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14")
	vip.SetDefault(OrderValidityKey, 30*time.Minute)
	vip.SetDefault(SlippagePercentageKey, 0.5)
	vip.SetDefault(OrderBookTypeKey, OrderBookCowSwap)
	vip.SetDefault(OrderBookURLKey, "https://api.cow.fi/sepolia")
	vip.SetDefault(MultisigTypeKey, MultisigSafeTxService)
	vip.SetDefault(SafeTxServiceURLKey, "https://safe-transaction-sepolia.safe.global")
	vip.SetDefault(HTTPTimeoutKey, 30*time.Second)
	vip.SetDefault(RequestsPerSecondKey, 5)

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetInt64(key string) int64 {
	return vip.GetInt64(key)
}

func GetFloat(key string) float64 {
	return vip.GetFloat64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

func GetAddress(key string) common.Address {
	return common.HexToAddress(GetString(key))
}

// GetList returns the comma separated values of the given key.
func GetList(key string) []string {
	list := make([]string, 0)
	for _, v := range strings.Split(GetString(key), ",") {
		if v = strings.TrimSpace(v); len(v) > 0 {
			list = append(list, v)
		}
	}
	return list
}

func GetSafeOwners() []common.Address {
	owners := make([]common.Address, 0)
	for _, o := range GetList(SafeOwnersKey) {
		owners = append(owners, common.HexToAddress(o))
	}
	return owners
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	logLevel := GetInt(LogLevelKey)
	if logLevel < int(log.PanicLevel) || logLevel > int(log.TraceLevel) {
		return fmt.Errorf("%s must be in range [0, 6]", LogLevelKey)
	}

	if GetInt64(ChainIDKey) <= 0 {
		return fmt.Errorf("%s must be positive", ChainIDKey)
	}

	for _, key := range []string{
		SafeAddressKey, SettlementContractKey, ReferenceTokenKey,
	} {
		if !common.IsHexAddress(GetString(key)) {
			return fmt.Errorf("%s must be a valid address", key)
		}
	}

	if len(GetString(AgentPrivateKeyKey)) <= 0 {
		return fmt.Errorf("missing agent private key")
	}

	if GetDuration(OrderValidityKey) <= 0 {
		return fmt.Errorf("%s must be positive", OrderValidityKey)
	}

	slippage := GetFloat(SlippagePercentageKey)
	if slippage < 0 || slippage >= 100 {
		return fmt.Errorf("%s must be in range [0, 100)", SlippagePercentageKey)
	}

	if GetFloat(RequestsPerSecondKey) < 0 {
		return fmt.Errorf("%s must not be negative", RequestsPerSecondKey)
	}

	obType := GetString(OrderBookTypeKey)
	if _, ok := supportedOrderBooks[obType]; !ok {
		return fmt.Errorf("unsupported order book type %s", obType)
	}
	if obType == OrderBookCowSwap {
		if err := validateURL(OrderBookURLKey); err != nil {
			return err
		}
	}

	msType := GetString(MultisigTypeKey)
	if _, ok := supportedMultisigs[msType]; !ok {
		return fmt.Errorf("unsupported multisig type %s", msType)
	}
	if msType == MultisigSafeTxService {
		if err := validateURL(SafeTxServiceURLKey); err != nil {
			return err
		}
	} else {
		if err := validateSafeOwners(); err != nil {
			return err
		}
	}

	for _, endpoint := range GetList(WebhookEndpointsKey) {
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			return fmt.Errorf("invalid webhook endpoint %s", endpoint)
		}
	}

	return nil
}

func validateURL(key string) error {
	u, err := url.ParseRequestURI(GetString(key))
	if err != nil || len(u.Host) <= 0 {
		return fmt.Errorf("%s must be a valid url", key)
	}
	return nil
}

func validateSafeOwners() error {
	owners := GetList(SafeOwnersKey)
	if len(owners) <= 0 {
		return fmt.Errorf("%s is required for local multisig queues", SafeOwnersKey)
	}
	for _, o := range owners {
		if !common.IsHexAddress(o) {
			return fmt.Errorf("invalid safe owner %s", o)
		}
	}
	threshold := GetInt(SafeThresholdKey)
	if threshold < 1 || threshold > len(owners) {
		return fmt.Errorf(
			"%s must be in range [1, %d]", SafeThresholdKey, len(owners),
		)
	}
	return nil
}

func initDatadir() error {
	if GetString(MultisigTypeKey) != MultisigBadger {
		return nil
	}
	return makeDirectoryIfNotExists(filepath.Join(GetDatadir(), DbLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
