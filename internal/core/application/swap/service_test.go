package swap_test

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/safeswap/safeswap-daemon/internal/core/application/multisig"
	"github.com/safeswap/safeswap-daemon/internal/core/application/swap"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
	localmultisig "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local"
	inmemorystore "github.com/safeswap/safeswap-daemon/internal/infrastructure/multisig/local/store/inmemory"
	inmemoryorderbook "github.com/safeswap/safeswap-daemon/internal/infrastructure/orderbook/inmemory"
	ecdsasigner "github.com/safeswap/safeswap-daemon/internal/infrastructure/signer/ecdsa"
)

var (
	ctx      = context.Background()
	chainID  = big.NewInt(11155111)
	safeAddr = common.HexToAddress("0x5afe5afe5afe5afe5afe5afe5afe5afe5afe5afe")
	weth     = common.HexToAddress("0xfFf9976782d46CC05630D1f6eBAb18b2324d6B14")
	cow      = "0x0625aFB445C3B6B7B929342a04A22599fd5dBB59"
	oneEther = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

type mockOrderBook struct {
	mock.Mock
	ports.OrderBook
}

func (m *mockOrderBook) Submit(
	ctx context.Context, intent domain.OrderIntent,
) (string, error) {
	args := m.Called(intent.Kind)
	return args.String(0), args.Error(1)
}

type testEnv struct {
	orderBook   *inmemoryorderbook.OrderBook
	multisigSvc ports.MultisigService
	agent       ports.Signer
	signingSvc  *multisig.Service
}

func newTestSigner(t *testing.T) ports.Signer {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return ecdsasigner.NewSignerFromKey(key)
}

func newTestEnv(t *testing.T, agentIsOwner bool) testEnv {
	agent, b, c := newTestSigner(t), newTestSigner(t), newTestSigner(t)
	first := agent.Address()
	if !agentIsOwner {
		first = newTestSigner(t).Address()
	}

	multisigSvc, err := localmultisig.NewService(
		inmemorystore.NewStore(), chainID, domain.Safe{
			Address:   safeAddr,
			Owners:    []common.Address{first, b.Address(), c.Address()},
			Threshold: 2,
		},
	)
	require.NoError(t, err)

	signingSvc, err := multisig.NewService(
		multisigSvc, agent, nil, safeAddr, chainID,
	)
	require.NoError(t, err)

	return testEnv{
		orderBook:   inmemoryorderbook.NewOrderBook(safeAddr),
		multisigSvc: multisigSvc,
		agent:       agent,
		signingSvc:  signingSvc,
	}
}

func newTestService(
	t *testing.T, env testEnv, orderBook ports.OrderBook,
) *swap.Service {
	if orderBook == nil {
		orderBook = env.orderBook
	}
	svc, err := swap.NewService(
		orderBook,
		domain.NewOrderIntentBuilder(weth, safeAddr, 30*time.Minute),
		domain.NewPresignTransactionBuilder(domain.DefaultSettlementContract),
		env.signingSvc,
	)
	require.NoError(t, err)
	return svc
}

func TestCreateAndSignOrder(t *testing.T) {
	env := newTestEnv(t, true)
	svc := newTestService(t, env, nil)

	res, err := svc.CreateAndSignOrder(ctx, oneEther, cow, "sell")
	require.NoError(t, err)
	require.NotEmpty(t, res.OrderID)
	require.NotEqual(t, common.Hash{}, res.SafeTxHash)
	require.Equal(t, domain.SafeTxStatusAgentSigned, res.Status)

	signer, err := domain.RecoverSigner(res.SafeTxHash, res.Signature)
	require.NoError(t, err)
	require.Equal(t, env.agent.Address(), signer)

	status, err := env.signingSvc.GetStatus(ctx, res.SafeTxHash)
	require.NoError(t, err)
	require.Equal(t, domain.SafeTxStatusAgentSigned, status.Status)
	require.Equal(t, 1, status.Confirmations)
	require.GreaterOrEqual(t, status.Threshold, 2)

	order, err := env.orderBook.GetOrder(ctx, res.OrderID)
	require.NoError(t, err)
	require.Equal(t, domain.OrderKindSell, order.Kind)
	require.Equal(t, common.HexToAddress(cow), order.SellToken)
	require.Equal(t, weth, order.BuyToken)
	require.Equal(t, 0, oneEther.Cmp(order.SellAmount))

	// The proposed transaction presigns the submitted order.
	tx, err := env.multisigSvc.GetTransaction(ctx, res.SafeTxHash)
	require.NoError(t, err)
	presign, err := domain.NewPresignTransactionBuilder(domain.DefaultSettlementContract).
		BuildPresignTx(res.OrderID, safeAddr.Hex())
	require.NoError(t, err)
	require.Equal(t, presign.Data, tx.Data)
	require.Equal(t, domain.DefaultSettlementContract, tx.To)
}

func TestConcurrentIdenticalRequests(t *testing.T) {
	env := newTestEnv(t, true)
	svc := newTestService(t, env, nil)

	const numOfRequests = 4
	results := make([]*swap.OrderResult, numOfRequests)
	errs := make([]error, numOfRequests)

	wg := &sync.WaitGroup{}
	for i := 0; i < numOfRequests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.CreateAndSignOrder(ctx, oneEther, cow, "buy")
		}(i)
	}
	wg.Wait()

	orderIDs := make(map[string]struct{})
	hashes := make(map[common.Hash]struct{})
	nonces := make(map[int64]struct{})
	for i := range results {
		require.NoError(t, errs[i])
		orderIDs[results[i].OrderID] = struct{}{}
		hashes[results[i].SafeTxHash] = struct{}{}

		tx, err := env.multisigSvc.GetTransaction(ctx, results[i].SafeTxHash)
		require.NoError(t, err)
		nonces[tx.Nonce.Int64()] = struct{}{}
	}
	require.Len(t, orderIDs, numOfRequests)
	require.Len(t, hashes, numOfRequests)
	require.Len(t, nonces, numOfRequests)
}

func TestFailingCreateAndSignOrder(t *testing.T) {
	t.Run("invalid request", func(t *testing.T) {
		env := newTestEnv(t, true)
		svc := newTestService(t, env, nil)

		_, err := svc.CreateAndSignOrder(ctx, big.NewInt(0), cow, "sell")
		require.ErrorIs(t, err, domain.ErrValidation)

		var submissionErr *swap.OrderSubmissionError
		require.False(t, errors.As(err, &submissionErr))

		_, err = svc.CreateAndSignOrder(ctx, oneEther, cow, "hold")
		require.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("submission", func(t *testing.T) {
		env := newTestEnv(t, true)
		orderBook := &mockOrderBook{}
		orderBook.On("Submit", domain.OrderKindSell).
			Return("", domain.NewUpstreamError("orderbook", 500, "boom"))
		svc := newTestService(t, env, orderBook)

		_, err := svc.CreateAndSignOrder(ctx, oneEther, cow, "sell")
		var submissionErr *swap.OrderSubmissionError
		require.ErrorAs(t, err, &submissionErr)
		require.ErrorIs(t, err, domain.ErrUpstream)

		pending, err := env.multisigSvc.GetPendingTransactions(ctx, safeAddr)
		require.NoError(t, err)
		require.Empty(t, pending)
	})

	t.Run("signing", func(t *testing.T) {
		env := newTestEnv(t, false)
		svc := newTestService(t, env, nil)

		_, err := svc.CreateAndSignOrder(ctx, oneEther, cow, "sell")
		var signingErr *swap.SigningError
		require.ErrorAs(t, err, &signingErr)
		require.ErrorIs(t, err, domain.ErrUnauthorized)

		// The order is kept.
		order, err := env.orderBook.GetOrder(ctx, signingErr.OrderID)
		require.NoError(t, err)
		require.Equal(t, domain.OrderStatusOpen, order.Status)
	})

	t.Run("malformed order id", func(t *testing.T) {
		env := newTestEnv(t, true)
		orderBook := &mockOrderBook{}
		orderBook.On("Submit", domain.OrderKindBuy).Return("not-hex", nil)
		svc := newTestService(t, env, orderBook)

		_, err := svc.CreateAndSignOrder(ctx, oneEther, cow, "buy")
		var signingErr *swap.SigningError
		require.ErrorAs(t, err, &signingErr)
		require.Equal(t, "not-hex", signingErr.OrderID)
		require.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestResumeSigning(t *testing.T) {
	env := newTestEnv(t, true)
	svc := newTestService(t, env, nil)

	intent, err := domain.NewOrderIntentBuilder(weth, safeAddr, time.Hour).
		Build(oneEther, cow, "sell")
	require.NoError(t, err)
	orderID, err := env.orderBook.Submit(ctx, *intent)
	require.NoError(t, err)

	res, err := svc.ResumeSigning(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, orderID, res.OrderID)
	require.Equal(t, domain.SafeTxStatusAgentSigned, res.Status)

	again, err := svc.ResumeSigning(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, res.SafeTxHash, again.SafeTxHash)
	require.Equal(t, res.Signature, again.Signature)

	pending, err := env.multisigSvc.GetPendingTransactions(ctx, safeAddr)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = svc.ResumeSigning(ctx, "0x01")
	require.ErrorIs(t, err, domain.ErrNotFound)

	foreign := inmemoryorderbook.NewOrderBook(common.HexToAddress("0x01"))
	foreignID, err := foreign.Submit(ctx, *intent)
	require.NoError(t, err)
	_, err = newTestService(t, env, foreign).ResumeSigning(ctx, foreignID)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestListOrders(t *testing.T) {
	env := newTestEnv(t, true)
	svc := newTestService(t, env, nil)

	res, err := svc.CreateAndSignOrder(ctx, oneEther, cow, "sell")
	require.NoError(t, err)
	_, err = svc.CreateAndSignOrder(ctx, oneEther, cow, "buy")
	require.NoError(t, err)

	half := new(big.Int).Div(oneEther, big.NewInt(2))
	_, err = env.orderBook.Fill(res.OrderID, half, half)
	require.NoError(t, err)

	orders, err := svc.ListOrders(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)

	trades := 0
	for _, o := range orders {
		if o.Order.ID == res.OrderID {
			require.Len(t, o.Trades, 1)
		}
		trades += len(o.Trades)
	}
	require.Equal(t, 1, trades)

	orders, err = svc.ListOrders(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, orders, 1)

	_, err = svc.ListOrders(ctx, 1, -1)
	require.ErrorIs(t, err, domain.ErrValidation)
}
