package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

const maxConcurrentReads = 4

// Service reads the balances of the Safe from the ledger.
type Service struct {
	ledger  ports.Ledger
	account common.Address
}

func NewService(ledger ports.Ledger, account common.Address) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if account == (common.Address{}) {
		return nil, fmt.Errorf("missing account")
	}
	return &Service{ledger, account}, nil
}

// GetBalances returns the native balance of the account and its balance of
// every given token. Duplicated tokens are queried once.
func (s *Service) GetBalances(
	ctx context.Context, tokens []common.Address,
) (*Balances, error) {
	balances := &Balances{
		Account: s.account,
		Tokens:  make(map[common.Address]*big.Int, len(tokens)),
	}
	locker := &sync.Mutex{}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentReads)
	eg.Go(func() error {
		balance, err := s.ledger.NativeBalance(ctx, s.account)
		if err != nil {
			return err
		}
		locker.Lock()
		balances.Native = balance
		locker.Unlock()
		return nil
	})

	seen := make(map[common.Address]struct{}, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}

		token := token
		eg.Go(func() error {
			balance, err := s.ledger.TokenBalance(ctx, token, s.account)
			if err != nil {
				return fmt.Errorf("token %s: %w", token.Hex(), err)
			}
			locker.Lock()
			balances.Tokens[token] = balance
			locker.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	log.Debugf(
		"fetched balances of %s for %d tokens", s.account.Hex(), len(balances.Tokens),
	)
	return balances, nil
}
