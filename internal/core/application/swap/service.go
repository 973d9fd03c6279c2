package swap

import (
	"context"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/safeswap/safeswap-daemon/internal/core/application/multisig"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

const (
	DefaultPageSize    = 20
	maxConcurrentReads = 4
)

// Service turns swap requests into orders presigned by the Safe: it submits
// the order and proposes the presign transaction with the agent's signature.
// Owners' confirmations happen out of band.
type Service struct {
	orderBook      ports.OrderBook
	intentBuilder  *domain.OrderIntentBuilder
	presignBuilder *domain.PresignTransactionBuilder
	signingSvc     *multisig.Service
}

func NewService(
	orderBook ports.OrderBook,
	intentBuilder *domain.OrderIntentBuilder,
	presignBuilder *domain.PresignTransactionBuilder,
	signingSvc *multisig.Service,
) (*Service, error) {
	if orderBook == nil {
		return nil, fmt.Errorf("missing order book")
	}
	if intentBuilder == nil {
		return nil, fmt.Errorf("missing order intent builder")
	}
	if presignBuilder == nil {
		return nil, fmt.Errorf("missing presign tx builder")
	}
	if signingSvc == nil {
		return nil, fmt.Errorf("missing signing service")
	}

	return &Service{orderBook, intentBuilder, presignBuilder, signingSvc}, nil
}

// CreateAndSignOrder submits an order for amount of tokenAddress and makes
// the agent sign its presign transaction. Identical requests are not
// deduplicated: each one creates a new order.
// If signing fails, the returned *SigningError carries the id of the order
// already submitted, nothing is rolled back.
func (s *Service) CreateAndSignOrder(
	ctx context.Context, amount *big.Int, tokenAddress, operation string,
) (*OrderResult, error) {
	logger := log.WithField("correlation_id", uuid.New().String())

	intent, err := s.intentBuilder.Build(amount, tokenAddress, operation)
	if err != nil {
		return nil, err
	}

	orderID, err := s.orderBook.Submit(ctx, *intent)
	if err != nil {
		logger.WithError(err).Warn("order submission failed")
		return nil, &OrderSubmissionError{err}
	}
	logger.Debugf(
		"submitted %s order %s for %s of token %s",
		intent.Kind, orderID, amount, tokenAddress,
	)

	return s.presignOrder(ctx, logger, orderID)
}

// ResumeSigning proposes and signs the presign transaction of an existing
// order. Calling it for an order already signed by the agent returns the
// existing signature.
func (s *Service) ResumeSigning(
	ctx context.Context, orderID string,
) (*OrderResult, error) {
	logger := log.WithField("correlation_id", uuid.New().String())

	order, err := s.orderBook.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	safe := s.signingSvc.SafeAddress()
	if order.Owner != safe {
		return nil, domain.NewValidationError(
			"orderId", fmt.Sprintf("order is not owned by safe %s", safe.Hex()),
		)
	}

	return s.presignOrder(ctx, logger, orderID)
}

// ListOrders returns a page of the orders of the Safe, most recent first,
// each with its trades.
func (s *Service) ListOrders(
	ctx context.Context, limit, offset int,
) ([]OrderWithTrades, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		return nil, domain.NewValidationError("offset", "must not be negative")
	}

	orders, err := s.orderBook.GetOrders(
		ctx, s.signingSvc.SafeAddress(), limit, offset,
	)
	if err != nil {
		return nil, err
	}

	result := make([]OrderWithTrades, len(orders))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(maxConcurrentReads)
	for i := range orders {
		i := i
		eg.Go(func() error {
			trades, err := s.orderBook.GetTrades(ctx, orders[i].ID)
			if err != nil {
				return err
			}
			result[i] = OrderWithTrades{orders[i], trades}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) presignOrder(
	ctx context.Context, logger *log.Entry, orderID string,
) (*OrderResult, error) {
	safe := s.signingSvc.SafeAddress()

	presignTx, err := s.presignBuilder.BuildPresignTx(orderID, safe.Hex())
	if err != nil {
		return nil, &SigningError{orderID, err}
	}

	res, err := s.signingSvc.ProposeAndAgentSign(ctx, multisig.SafeTxRequest{
		To:        presignTx.To,
		Value:     presignTx.Value,
		Data:      presignTx.Data,
		Operation: domain.OperationCall,
		OrderID:   orderID,
	})
	if err != nil {
		logger.WithError(err).Warnf("signing of order %s failed", orderID)
		return nil, &SigningError{orderID, err}
	}
	logger.Debugf(
		"presign tx %s of order %s is %s", res.SafeTxHash.Hex(), orderID, res.Status,
	)

	return &OrderResult{
		OrderID:    orderID,
		SafeTxHash: res.SafeTxHash,
		Signature:  res.Signature,
		Status:     res.Status,
	}, nil
}
