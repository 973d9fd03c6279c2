package domain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const settlementABI = `[{
	"name": "setPreSignature",
	"type": "function",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "orderUid", "type": "bytes"},
		{"name": "signed", "type": "bool"}
	],
	"outputs": []
}]`

// DefaultSettlementContract is the address the settlement contract is
// deployed at on every supported chain.
var DefaultSettlementContract = common.HexToAddress(
	"0x9008D19f58AAbD9eD0D60971565AA8510560ab41",
)

var parsedSettlementABI = mustParseABI(settlementABI)

// PresignTransaction is the call marking an order as pre-authorized by its
// owner, to be executed by the owner (the Safe).
type PresignTransaction struct {
	To      common.Address
	Value   *big.Int
	Data    []byte
	Account common.Address
}

// PresignTransactionBuilder encodes presign calls for a settlement contract.
type PresignTransactionBuilder struct {
	SettlementContract common.Address
}

func NewPresignTransactionBuilder(
	settlementContract common.Address,
) *PresignTransactionBuilder {
	return &PresignTransactionBuilder{settlementContract}
}

// BuildPresignTx returns the setPreSignature(orderUid, true) call for the
// given order. It does not check that the order exists.
func (b *PresignTransactionBuilder) BuildPresignTx(
	orderID, account string,
) (*PresignTransaction, error) {
	if !strings.HasPrefix(orderID, "0x") {
		return nil, NewValidationError("orderId", "must be 0x prefixed hex")
	}
	orderUID, err := hexutil.Decode(orderID)
	if err != nil || len(orderUID) == 0 {
		return nil, NewValidationError("orderId", "must be 0x prefixed hex")
	}
	if !IsHexAddress(account) {
		return nil, NewValidationError("account", "must be a 20 bytes hex address")
	}

	data, err := parsedSettlementABI.Pack("setPreSignature", orderUID, true)
	if err != nil {
		return nil, NewValidationError("orderId", err.Error())
	}

	return &PresignTransaction{
		To:      b.SettlementContract,
		Value:   big.NewInt(0),
		Data:    data,
		Account: common.HexToAddress(account),
	}, nil
}

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
