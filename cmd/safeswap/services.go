package main

import (
	"context"
	"fmt"
	"math/big"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/config"
	"github.com/safeswap/safeswap-daemon/internal/core/application/multisig"
	"github.com/safeswap/safeswap-daemon/internal/core/application/swap"
	"github.com/safeswap/safeswap-daemon/internal/core/application/tracker"
	"github.com/safeswap/safeswap-daemon/internal/core/application/wallet"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
	ethledger "github.com/safeswap/safeswap-daemon/internal/infrastructure/ledger/ethclient"
	localmultisig "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local"
	badgerstore "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local/store/badger"
	inmemorystore "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local/store/inmemory"
	"github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/safetxservice"
	"github.com/safeswap/safeswap-daemon/internal/infrastructure/orderbook/cowswap"
	inmemoryorderbook "github.com/safeswap/safeswap-daemon/internal/infrastructure/orderbook/inmemory"
	"github.com/safeswap/safeswap-daemon/internal/infrastructure/pubsub"
	ecdsasigner "github.com/safeswap/safeswap-daemon/internal/infrastructure/signer/ecdsa"
	"github.com/safeswap/safeswap-daemon/pkg/httputil"
)

// services holds the application services, built once from the config at
// startup.
type services struct {
	swapSvc    *swap.Service
	signingSvc *multisig.Service
	trackerSvc *tracker.Service
	rpcURL     string
	safe       common.Address

	closers []func()
}

func newServices() (*services, error) {
	svc := &services{
		rpcURL: config.GetString(config.RPCURLKey),
		safe:   config.GetAddress(config.SafeAddressKey),
	}
	chainID := big.NewInt(config.GetInt64(config.ChainIDKey))

	agent, err := ecdsasigner.NewSigner(config.GetString(config.AgentPrivateKeyKey))
	if err != nil {
		return nil, fmt.Errorf("invalid agent key: %w", err)
	}

	orderBook, err := svc.newOrderBook()
	if err != nil {
		svc.close()
		return nil, err
	}
	multisigSvc, err := svc.newMultisigService(chainID)
	if err != nil {
		svc.close()
		return nil, err
	}
	notifier, err := svc.newNotifier()
	if err != nil {
		svc.close()
		return nil, err
	}

	signingSvc, err := multisig.NewService(
		multisigSvc, agent, notifier, svc.safe, chainID,
	)
	if err != nil {
		svc.close()
		return nil, err
	}
	swapSvc, err := swap.NewService(
		orderBook,
		domain.NewOrderIntentBuilder(
			config.GetAddress(config.ReferenceTokenKey), svc.safe,
			config.GetDuration(config.OrderValidityKey),
		),
		domain.NewPresignTransactionBuilder(
			config.GetAddress(config.SettlementContractKey),
		),
		signingSvc,
	)
	if err != nil {
		svc.close()
		return nil, err
	}
	trackerSvc, err := tracker.NewService(orderBook, signingSvc)
	if err != nil {
		svc.close()
		return nil, err
	}

	svc.swapSvc = swapSvc
	svc.signingSvc = signingSvc
	svc.trackerSvc = trackerSvc
	return svc, nil
}

// walletService dials the node only for the commands that need it.
func (s *services) walletService(ctx context.Context) (*wallet.Service, error) {
	if len(s.rpcURL) <= 0 {
		return nil, fmt.Errorf("missing rpc url, set SAFESWAP_%s", config.RPCURLKey)
	}
	ledger, err := ethledger.NewLedger(ctx, s.rpcURL)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, ledger.Close)
	return wallet.NewService(ledger, s.safe)
}

func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

func (s *services) newOrderBook() (ports.OrderBook, error) {
	if config.GetString(config.OrderBookTypeKey) == config.OrderBookInMemory {
		log.Warn("using in-memory order book, orders are lost on exit")
		return inmemoryorderbook.NewOrderBook(s.safe), nil
	}

	return cowswap.NewOrderBook(cowswap.Opts{
		APIURL:  config.GetString(config.OrderBookURLKey),
		Owner:   s.safe,
		AppData: config.GetString(config.AppDataKey),
		SlippagePercentage: decimal.NewFromFloat(
			config.GetFloat(config.SlippagePercentageKey),
		),
		HTTPClient: newHTTPClient("orderbook"),
	})
}

func (s *services) newMultisigService(
	chainID *big.Int,
) (ports.MultisigService, error) {
	var store localmultisig.Store

	switch config.GetString(config.MultisigTypeKey) {
	case config.MultisigSafeTxService:
		return safetxservice.NewService(safetxservice.Opts{
			APIURL:     config.GetString(config.SafeTxServiceURLKey),
			ChainID:    chainID,
			APIKey:     config.GetString(config.SafeTxServiceAPIKeyKey),
			HTTPClient: newHTTPClient("safe-tx-service"),
		})
	case config.MultisigBadger:
		dbDir := filepath.Join(config.GetDatadir(), config.DbLocation)
		badgerStore, err := badgerstore.NewStore(dbDir, log.New())
		if err != nil {
			return nil, err
		}
		store = badgerStore
	default:
		log.Warn("using in-memory multisig queue, transactions are lost on exit")
		store = inmemorystore.NewStore()
	}
	s.closers = append(s.closers, store.Close)

	return localmultisig.NewService(store, chainID, domain.Safe{
		Address:   s.safe,
		Owners:    config.GetSafeOwners(),
		Threshold: config.GetInt(config.SafeThresholdKey),
	})
}

// newNotifier returns nil if no webhook is configured. Subscriptions live
// in memory, they are rebuilt from the config at every start.
func (s *services) newNotifier() (ports.Notifier, error) {
	endpoints := config.GetList(config.WebhookEndpointsKey)
	if len(endpoints) <= 0 {
		return nil, nil
	}

	store, err := pubsub.NewSubscriptionStore("", log.New())
	if err != nil {
		return nil, err
	}
	pubsubSvc, err := pubsub.NewService(store, newHTTPClient("webhook"))
	if err != nil {
		store.Close()
		return nil, err
	}
	s.closers = append(s.closers, pubsubSvc.Close)

	secret := config.GetString(config.WebhookSecretKey)
	for _, endpoint := range endpoints {
		id, err := pubsubSvc.Subscribe(ports.AnyTopic, endpoint, secret)
		if err != nil {
			return nil, err
		}
		log.Debugf("added webhook %s for endpoint %s", id, endpoint)
	}
	return pubsubSvc, nil
}

func newHTTPClient(name string) *httputil.Client {
	return httputil.NewClient(
		name,
		config.GetDuration(config.HTTPTimeoutKey),
		config.GetFloat(config.RequestsPerSecondKey),
	)
}
