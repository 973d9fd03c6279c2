package domain

import (
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Operation is the swap direction requested for a token.
type Operation string

const (
	OperationBuy  Operation = "buy"
	OperationSell Operation = "sell"
)

// OrderIntent holds the normalized parameters of an order before it is
// submitted to the order book. Exactly one of SellAmount and BuyAmount is set,
// the one of the leg fixed by Kind.
type OrderIntent struct {
	SellToken  common.Address
	BuyToken   common.Address
	SellAmount *big.Int
	BuyAmount  *big.Int
	Kind       OrderKind
	Receiver   common.Address
	ValidTo    int64
}

// Amount returns the amount of the fixed leg.
func (i OrderIntent) Amount() *big.Int {
	if i.Kind == OrderKindBuy {
		return i.BuyAmount
	}
	return i.SellAmount
}

// OrderIntentBuilder turns a swap request into order parameters. The opposite
// leg of every order is the reference token.
type OrderIntentBuilder struct {
	ReferenceToken common.Address
	Receiver       common.Address
	Validity       time.Duration
	Now            func() time.Time
}

func NewOrderIntentBuilder(
	referenceToken, receiver common.Address, validity time.Duration,
) *OrderIntentBuilder {
	return &OrderIntentBuilder{
		ReferenceToken: referenceToken,
		Receiver:       receiver,
		Validity:       validity,
		Now:            time.Now,
	}
}

// Build validates the request and maps the operation to a pair of tokens:
// selling a token buys the reference token and vice versa.
func (b *OrderIntentBuilder) Build(
	amount *big.Int, tokenAddress string, operation string,
) (*OrderIntent, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, NewValidationError("amount", "must be a positive integer")
	}
	if !IsHexAddress(tokenAddress) {
		return nil, NewValidationError(
			"tokenAddress", "must be a 20 bytes hex address",
		)
	}
	token := common.HexToAddress(tokenAddress)
	if token == b.ReferenceToken {
		return nil, NewValidationError(
			"tokenAddress", "must differ from the reference token",
		)
	}

	intent := &OrderIntent{
		Receiver: b.Receiver,
		ValidTo:  b.now().Add(b.Validity).Unix(),
	}
	value := new(big.Int).Set(amount)

	switch Operation(operation) {
	case OperationSell:
		intent.Kind = OrderKindSell
		intent.SellToken = token
		intent.BuyToken = b.ReferenceToken
		intent.SellAmount = value
	case OperationBuy:
		intent.Kind = OrderKindBuy
		intent.SellToken = b.ReferenceToken
		intent.BuyToken = token
		intent.BuyAmount = value
	default:
		return nil, NewValidationError("operation", "must be either buy or sell")
	}

	return intent, nil
}

func (b *OrderIntentBuilder) now() time.Time {
	if b.Now == nil {
		return time.Now()
	}
	return b.Now()
}

// ParseAmount parses an amount of base units given as a decimal string.
func ParseAmount(amount string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
	if !ok {
		return nil, NewValidationError("amount", "must be a base 10 integer")
	}
	if value.Sign() <= 0 {
		return nil, NewValidationError("amount", "must be a positive integer")
	}
	return value, nil
}

// IsHexAddress is stricter than common.IsHexAddress: the 0x prefix is
// mandatory.
func IsHexAddress(s string) bool {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return common.IsHexAddress(s)
}
