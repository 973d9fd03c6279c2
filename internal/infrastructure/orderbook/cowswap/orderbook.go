package cowswap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
	"github.com/safeswap/safeswap-daemon/pkg/httputil"
)

const (
	serviceName = "orderbook"

	// DefaultAppData is the hash of the empty app data document.
	DefaultAppData = "0x0000000000000000000000000000000000000000000000000000000000000000"

	erc20Balance  = "erc20"
	presignScheme = "presign"
	emptySig      = "0x"
)

type Opts struct {
	// APIURL is the base url of the order book api of the network, ie.
	// https://api.cow.fi/sepolia.
	APIURL string
	// Owner is the account placing and presigning the orders.
	Owner   common.Address
	AppData string
	// SlippagePercentage is applied to the quoted amount of the leg that is
	// not fixed by the order kind.
	SlippagePercentage decimal.Decimal
	HTTPClient         *httputil.Client
}

func (o Opts) validate() error {
	if _, err := url.ParseRequestURI(o.APIURL); err != nil {
		return fmt.Errorf("invalid order book api url: %w", err)
	}
	if o.Owner == (common.Address{}) {
		return fmt.Errorf("missing order owner")
	}
	if o.SlippagePercentage.IsNegative() ||
		o.SlippagePercentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		return fmt.Errorf("slippage percentage must be in range [0, 100)")
	}
	if o.HTTPClient == nil {
		return fmt.Errorf("missing http client")
	}
	return nil
}

type orderBook struct {
	apiURL   string
	owner    common.Address
	appData  string
	slippage decimal.Decimal
	client   *httputil.Client
}

// NewOrderBook returns an OrderBook backed by the CoW Protocol order book
// api. Orders are placed with the presign scheme, they become valid once the
// owner executes the setPreSignature call.
func NewOrderBook(opts Opts) (ports.OrderBook, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	appData := opts.AppData
	if len(appData) <= 0 {
		appData = DefaultAppData
	}

	return &orderBook{
		apiURL:   strings.TrimSuffix(opts.APIURL, "/") + "/api/v1",
		owner:    opts.Owner,
		appData:  appData,
		slippage: opts.SlippagePercentage,
		client:   opts.HTTPClient,
	}, nil
}

// Submit quotes the intent and posts the order with the quoted amounts,
// slippage applied.
func (o *orderBook) Submit(
	ctx context.Context, intent domain.OrderIntent,
) (string, error) {
	q, quoteID, err := o.getQuote(ctx, intent)
	if err != nil {
		return "", err
	}

	sellAmount, buyAmount, err := o.limitAmounts(intent, *q)
	if err != nil {
		return "", err
	}

	body := orderCreation{
		SellToken:         intent.SellToken.Hex(),
		BuyToken:          intent.BuyToken.Hex(),
		Receiver:          intent.Receiver.Hex(),
		SellAmount:        sellAmount.String(),
		BuyAmount:         buyAmount.String(),
		ValidTo:           intent.ValidTo,
		AppData:           o.appData,
		FeeAmount:         "0",
		Kind:              string(intent.Kind),
		PartiallyFillable: false,
		SellTokenBalance:  erc20Balance,
		BuyTokenBalance:   erc20Balance,
		SigningScheme:     presignScheme,
		Signature:         emptySig,
		From:              o.owner.Hex(),
		QuoteID:           quoteID,
	}

	var orderID string
	if err := o.post(ctx, "/orders", body, &orderID); err != nil {
		return "", err
	}
	if !strings.HasPrefix(orderID, "0x") {
		return "", malformedResponse(fmt.Errorf("invalid order uid %q", orderID))
	}

	log.Debugf(
		"posted %s order %s: sell %s of %s for %s of %s",
		intent.Kind, orderID, sellAmount, intent.SellToken.Hex(),
		buyAmount, intent.BuyToken.Hex(),
	)
	return orderID, nil
}

func (o *orderBook) GetOrder(
	ctx context.Context, orderID string,
) (*domain.SwapOrder, error) {
	var resp order
	path := fmt.Sprintf("/orders/%s", url.PathEscape(orderID))
	if err := o.get(ctx, path, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("order", orderID)
		}
		return nil, err
	}
	return resp.toDomain()
}

func (o *orderBook) GetTrades(
	ctx context.Context, orderID string,
) ([]domain.Trade, error) {
	var resp []trade
	path := fmt.Sprintf("/trades?orderUid=%s", url.QueryEscape(orderID))
	if err := o.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	trades := make([]domain.Trade, 0, len(resp))
	for _, t := range resp {
		tt, err := t.toDomain()
		if err != nil {
			return nil, err
		}
		trades = append(trades, *tt)
	}
	return trades, nil
}

func (o *orderBook) GetOrders(
	ctx context.Context, owner common.Address, limit, offset int,
) ([]domain.SwapOrder, error) {
	if limit < 0 || offset < 0 {
		return nil, domain.NewValidationError(
			"limit", "limit and offset must not be negative",
		)
	}

	var resp []order
	path := fmt.Sprintf(
		"/account/%s/orders?offset=%d&limit=%d", owner.Hex(), offset, limit,
	)
	if err := o.get(ctx, path, &resp); err != nil {
		return nil, err
	}

	orders := make([]domain.SwapOrder, 0, len(resp))
	for _, r := range resp {
		order, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, nil
}

func (o *orderBook) getQuote(
	ctx context.Context, intent domain.OrderIntent,
) (*quote, *int64, error) {
	req := quoteRequest{
		SellToken:         intent.SellToken.Hex(),
		BuyToken:          intent.BuyToken.Hex(),
		Receiver:          intent.Receiver.Hex(),
		From:              o.owner.Hex(),
		AppData:           o.appData,
		ValidTo:           intent.ValidTo,
		Kind:              string(intent.Kind),
		SellTokenBalance:  erc20Balance,
		BuyTokenBalance:   erc20Balance,
		SigningScheme:     presignScheme,
		PriceQuality:      "optimal",
		PartiallyFillable: false,
	}
	if intent.Kind == domain.OrderKindBuy {
		req.BuyAmountAfterFee = intent.BuyAmount.String()
	} else {
		req.SellAmountBeforeFee = intent.SellAmount.String()
	}

	var resp quoteResponse
	if err := o.post(ctx, "/quote", req, &resp); err != nil {
		return nil, nil, err
	}
	if err := validate.Struct(resp); err != nil {
		return nil, nil, malformedResponse(err)
	}
	return &resp.Quote, resp.ID, nil
}

// limitAmounts returns the amounts of the order: the fixed leg as requested,
// the other one as quoted (fee included) with slippage applied against the
// owner.
func (o *orderBook) limitAmounts(
	intent domain.OrderIntent, q quote,
) (*big.Int, *big.Int, error) {
	fee := decimal.NewFromBigInt(parseAmount(q.FeeAmount), 0)
	slippage := o.slippage.Div(decimal.NewFromInt(100))
	one := decimal.NewFromInt(1)

	if intent.Kind == domain.OrderKindBuy {
		quoted := decimal.NewFromBigInt(parseAmount(q.SellAmount), 0).Add(fee)
		sellAmount := quoted.Mul(one.Add(slippage)).Ceil().BigInt()
		return sellAmount, new(big.Int).Set(intent.BuyAmount), nil
	}

	quoted := decimal.NewFromBigInt(parseAmount(q.BuyAmount), 0)
	buyAmount := quoted.Mul(one.Sub(slippage)).Floor().BigInt()
	if buyAmount.Sign() <= 0 {
		return nil, nil, domain.NewValidationError(
			"amount", "sell amount too small to cover the quoted fee",
		)
	}
	return new(big.Int).Set(intent.SellAmount), buyAmount, nil
}

func (o *orderBook) get(ctx context.Context, path string, out interface{}) error {
	status, resp, err := o.client.NewHTTPRequest(
		ctx, http.MethodGet, o.apiURL+path, "", nil,
	)
	if err != nil {
		return domain.NewUpstreamError(serviceName, 0, err.Error())
	}
	return parseResponse(status, resp, out)
}

func (o *orderBook) post(
	ctx context.Context, path string, body, out interface{},
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	headers := map[string]string{
		"Content-Type": "application/json",
	}

	status, resp, err := o.client.NewHTTPRequest(
		ctx, http.MethodPost, o.apiURL+path, string(payload), headers,
	)
	if err != nil {
		return domain.NewUpstreamError(serviceName, 0, err.Error())
	}
	return parseResponse(status, resp, out)
}

func parseResponse(status int, resp string, out interface{}) error {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return responseError(status, resp)
	}
	if err := json.Unmarshal([]byte(resp), out); err != nil {
		return malformedResponse(err)
	}
	return nil
}

func responseError(status int, resp string) error {
	msg := resp
	var apiErr apiError
	if err := json.Unmarshal([]byte(resp), &apiErr); err == nil &&
		(len(apiErr.ErrorType) > 0 || len(apiErr.Description) > 0) {
		msg = apiErr.String()
	}

	switch status {
	case http.StatusNotFound:
		return domain.NewNotFoundError("resource", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.UnauthorizedError{Reason: msg}
	default:
		return domain.NewUpstreamError(serviceName, status, msg)
	}
}
