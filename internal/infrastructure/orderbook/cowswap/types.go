package cowswap

import (
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

var validate = validator.New()

type quoteRequest struct {
	SellToken           string `json:"sellToken"`
	BuyToken            string `json:"buyToken"`
	Receiver            string `json:"receiver"`
	From                string `json:"from"`
	AppData             string `json:"appData"`
	ValidTo             int64  `json:"validTo"`
	Kind                string `json:"kind"`
	SellAmountBeforeFee string `json:"sellAmountBeforeFee,omitempty"`
	BuyAmountAfterFee   string `json:"buyAmountAfterFee,omitempty"`
	PartiallyFillable   bool   `json:"partiallyFillable"`
	SellTokenBalance    string `json:"sellTokenBalance"`
	BuyTokenBalance     string `json:"buyTokenBalance"`
	SigningScheme       string `json:"signingScheme"`
	OnchainOrder        bool   `json:"onchainOrder"`
	PriceQuality        string `json:"priceQuality"`
}

type quoteResponse struct {
	Quote quote  `json:"quote" validate:"required"`
	From  string `json:"from"`
	ID    *int64 `json:"id"`
}

type quote struct {
	SellToken  string `json:"sellToken" validate:"required,eth_addr"`
	BuyToken   string `json:"buyToken" validate:"required,eth_addr"`
	SellAmount string `json:"sellAmount" validate:"required,number"`
	BuyAmount  string `json:"buyAmount" validate:"required,number"`
	FeeAmount  string `json:"feeAmount" validate:"required,number"`
	ValidTo    int64  `json:"validTo"`
	Kind       string `json:"kind" validate:"required,oneof=sell buy"`
}

type orderCreation struct {
	SellToken         string `json:"sellToken"`
	BuyToken          string `json:"buyToken"`
	Receiver          string `json:"receiver"`
	SellAmount        string `json:"sellAmount"`
	BuyAmount         string `json:"buyAmount"`
	ValidTo           int64  `json:"validTo"`
	AppData           string `json:"appData"`
	FeeAmount         string `json:"feeAmount"`
	Kind              string `json:"kind"`
	PartiallyFillable bool   `json:"partiallyFillable"`
	SellTokenBalance  string `json:"sellTokenBalance"`
	BuyTokenBalance   string `json:"buyTokenBalance"`
	SigningScheme     string `json:"signingScheme"`
	Signature         string `json:"signature"`
	From              string `json:"from"`
	QuoteID           *int64 `json:"quoteId,omitempty"`
}

type order struct {
	UID                string `json:"uid" validate:"required,startswith=0x,hexadecimal"`
	Owner              string `json:"owner" validate:"required,eth_addr"`
	SellToken          string `json:"sellToken" validate:"required,eth_addr"`
	BuyToken           string `json:"buyToken" validate:"required,eth_addr"`
	Receiver           string `json:"receiver" validate:"omitempty,eth_addr"`
	SellAmount         string `json:"sellAmount" validate:"required,number"`
	BuyAmount          string `json:"buyAmount" validate:"required,number"`
	ValidTo            int64  `json:"validTo"`
	Kind               string `json:"kind" validate:"required,oneof=sell buy"`
	Status             string `json:"status" validate:"required,oneof=presignaturePending open fulfilled cancelled expired"`
	CreationDate       string `json:"creationDate"`
	ExecutedSellAmount string `json:"executedSellAmount" validate:"omitempty,number"`
	ExecutedBuyAmount  string `json:"executedBuyAmount" validate:"omitempty,number"`
}

func (o order) toDomain() (*domain.SwapOrder, error) {
	if err := validate.Struct(o); err != nil {
		return nil, malformedResponse(err)
	}

	var creationDate time.Time
	if len(o.CreationDate) > 0 {
		t, err := time.Parse(time.RFC3339, o.CreationDate)
		if err != nil {
			return nil, malformedResponse(err)
		}
		creationDate = t
	}

	status := domain.OrderStatus(o.Status)
	// Presign orders wait for the settlement contract call, they are
	// open for the order book.
	if o.Status == "presignaturePending" {
		status = domain.OrderStatusOpen
	}

	return &domain.SwapOrder{
		ID:                 o.UID,
		Owner:              common.HexToAddress(o.Owner),
		SellToken:          common.HexToAddress(o.SellToken),
		BuyToken:           common.HexToAddress(o.BuyToken),
		SellAmount:         parseAmount(o.SellAmount),
		BuyAmount:          parseAmount(o.BuyAmount),
		Kind:               domain.OrderKind(o.Kind),
		ValidTo:            o.ValidTo,
		Receiver:           common.HexToAddress(o.Receiver),
		Status:             status,
		ExecutedSellAmount: parseAmount(o.ExecutedSellAmount),
		ExecutedBuyAmount:  parseAmount(o.ExecutedBuyAmount),
		CreationDate:       creationDate,
	}, nil
}

type trade struct {
	OrderUID    string `json:"orderUid" validate:"required"`
	BlockNumber uint64 `json:"blockNumber"`
	LogIndex    uint64 `json:"logIndex"`
	SellAmount  string `json:"sellAmount" validate:"required,number"`
	BuyAmount   string `json:"buyAmount" validate:"required,number"`
	TxHash      string `json:"txHash" validate:"omitempty,startswith=0x"`
}

func (t trade) toDomain() (*domain.Trade, error) {
	if err := validate.Struct(t); err != nil {
		return nil, malformedResponse(err)
	}
	return &domain.Trade{
		OrderUID:    t.OrderUID,
		BlockNumber: t.BlockNumber,
		LogIndex:    t.LogIndex,
		SellAmount:  parseAmount(t.SellAmount),
		BuyAmount:   parseAmount(t.BuyAmount),
		TxHash:      common.HexToHash(t.TxHash),
	}, nil
}

type apiError struct {
	ErrorType   string `json:"errorType"`
	Description string `json:"description"`
}

func (e apiError) String() string {
	if len(e.ErrorType) <= 0 {
		return e.Description
	}
	return fmt.Sprintf("%s: %s", e.ErrorType, e.Description)
}

// parseAmount returns zero for empty amounts. Amounts are validated as
// numeric beforehand.
func parseAmount(amount string) *big.Int {
	value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return big.NewInt(0)
	}
	return value
}

func malformedResponse(err error) error {
	return domain.NewUpstreamError(
		serviceName, http.StatusOK, fmt.Sprintf("malformed response: %s", err),
	)
}
