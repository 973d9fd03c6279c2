package ethledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

const (
	serviceName = "ledger"

	erc20ABI = `[{
		"name": "balanceOf",
		"type": "function",
		"stateMutability": "view",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}]
	}]`
)

type ledger struct {
	client *ethclient.Client
	erc20  abi.ABI
}

// NewLedger connects to the given EVM node RPC endpoint.
func NewLedger(ctx context.Context, rpcURL string) (ports.Ledger, error) {
	if len(rpcURL) <= 0 {
		return nil, fmt.Errorf("missing rpc url")
	}
	erc20, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rpc: %w", err)
	}
	return &ledger{client, erc20}, nil
}

func (l *ledger) NativeBalance(
	ctx context.Context, account common.Address,
) (*big.Int, error) {
	balance, err := l.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, domain.NewUpstreamError(serviceName, 0, err.Error())
	}
	return balance, nil
}

func (l *ledger) TokenBalance(
	ctx context.Context, token, account common.Address,
) (*big.Int, error) {
	data, err := l.erc20.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}

	out, err := l.client.CallContract(ctx, ethereum.CallMsg{
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return nil, domain.NewUpstreamError(serviceName, 0, err.Error())
	}

	res, err := l.erc20.Unpack("balanceOf", out)
	if err != nil || len(res) != 1 {
		return nil, domain.NewUpstreamError(
			serviceName, 0,
			fmt.Sprintf("malformed balanceOf response from token %s", token.Hex()),
		)
	}
	balance, ok := res[0].(*big.Int)
	if !ok {
		return nil, domain.NewUpstreamError(
			serviceName, 0,
			fmt.Sprintf("malformed balanceOf response from token %s", token.Hex()),
		)
	}
	return balance, nil
}

func (l *ledger) Close() {
	l.client.Close()
}
