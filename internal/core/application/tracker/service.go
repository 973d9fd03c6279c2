package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safeswap/safeswap-daemon/internal/core/application/multisig"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// LifecycleView is a snapshot of a swap, as seen by both the order book and
// the multisig service.
type LifecycleView struct {
	Status  domain.LifecycleStatus
	Signing multisig.TxStatus
	Order   domain.SwapOrder
	Trades  []domain.Trade
	// FillRatio is the settled fraction of the fixed leg, in range [0, 1].
	FillRatio decimal.Decimal
	CheckedAt time.Time
}

// Service merges the signing state of presign transactions with the state
// of their orders. It never changes either of them.
type Service struct {
	orderBook  ports.OrderBook
	signingSvc *multisig.Service
	Now        func() time.Time
}

func NewService(
	orderBook ports.OrderBook, signingSvc *multisig.Service,
) (*Service, error) {
	if orderBook == nil {
		return nil, fmt.Errorf("missing order book")
	}
	if signingSvc == nil {
		return nil, fmt.Errorf("missing signing service")
	}
	return &Service{orderBook, signingSvc, time.Now}, nil
}

// Refresh fetches order, trades and signing status concurrently and
// reconciles them into a single lifecycle status.
func (s *Service) Refresh(
	ctx context.Context, safeTxHash common.Hash, orderID string,
) (*LifecycleView, error) {
	var (
		order   *domain.SwapOrder
		trades  []domain.Trade
		signing *multisig.TxStatus
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		order, err = s.orderBook.GetOrder(egCtx, orderID)
		return
	})
	eg.Go(func() (err error) {
		trades, err = s.orderBook.GetTrades(egCtx, orderID)
		return
	})
	eg.Go(func() (err error) {
		signing, err = s.signingSvc.GetStatus(egCtx, safeTxHash)
		return
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	status := domain.Reconcile(*order, signing.Status, now)
	log.WithFields(log.Fields{
		"order_id":     orderID,
		"safe_tx_hash": safeTxHash.Hex(),
		"signing":      signing.Status,
		"order":        order.Status,
	}).Debugf("swap is %s", status)

	return &LifecycleView{
		Status:    status,
		Signing:   *signing,
		Order:     *order,
		Trades:    trades,
		FillRatio: fillRatio(*order),
		CheckedAt: now,
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func fillRatio(order domain.SwapOrder) decimal.Decimal {
	executed, target := order.FillRatio()
	if target.Sign() <= 0 {
		return decimal.Zero
	}
	ratio := decimal.NewFromBigInt(executed, 0).
		DivRound(decimal.NewFromBigInt(target, 0), 8)
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return ratio
}
