package safetxservice

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

var validate = validator.New()

type safeInfo struct {
	Address   string      `json:"address" validate:"required,eth_addr"`
	Nonce     json.Number `json:"nonce" validate:"required"`
	Threshold int         `json:"threshold" validate:"gte=1"`
	Owners    []string    `json:"owners" validate:"required,min=1,dive,eth_addr"`
}

func (s safeInfo) toDomain() (*domain.Safe, error) {
	if err := validate.Struct(s); err != nil {
		return nil, malformedResponse(err)
	}
	nonce, err := parseNonce(s.Nonce)
	if err != nil {
		return nil, malformedResponse(err)
	}

	owners := make([]common.Address, 0, len(s.Owners))
	for _, o := range s.Owners {
		owners = append(owners, common.HexToAddress(o))
	}
	safe := &domain.Safe{
		Address:   common.HexToAddress(s.Address),
		Owners:    owners,
		Threshold: s.Threshold,
		Nonce:     nonce.Uint64(),
	}
	if err := safe.Validate(); err != nil {
		return nil, malformedResponse(err)
	}
	return safe, nil
}

type confirmation struct {
	Owner     string `json:"owner" validate:"required,eth_addr"`
	Signature string `json:"signature" validate:"required,startswith=0x"`
}

type multisigTx struct {
	Safe          string         `json:"safe" validate:"required,eth_addr"`
	To            string         `json:"to" validate:"required,eth_addr"`
	Value         string         `json:"value" validate:"required,number"`
	Data          *string        `json:"data"`
	Operation     uint8          `json:"operation" validate:"lte=1"`
	Nonce         json.Number    `json:"nonce" validate:"required"`
	SafeTxHash    string         `json:"safeTxHash" validate:"required,startswith=0x,len=66"`
	Proposer      string         `json:"proposer" validate:"omitempty,eth_addr"`
	IsExecuted    bool           `json:"isExecuted"`
	Confirmations []confirmation `json:"confirmations" validate:"dive"`
}

// toDomain converts the record and checks that its hash commits to its
// data under the given chain.
func (t multisigTx) toDomain(chainID *big.Int) (*domain.SafeTransaction, error) {
	if err := validate.Struct(t); err != nil {
		return nil, malformedResponse(err)
	}

	nonce, err := parseNonce(t.Nonce)
	if err != nil {
		return nil, malformedResponse(err)
	}
	value, _ := new(big.Int).SetString(t.Value, 10)
	var data []byte
	if t.Data != nil && len(*t.Data) > 0 {
		if data, err = hexutil.Decode(*t.Data); err != nil {
			return nil, malformedResponse(fmt.Errorf("invalid data: %w", err))
		}
	}

	tx, err := domain.NewSafeTransaction(
		chainID, common.HexToAddress(t.Safe), domain.SafeTxData{
			To:        common.HexToAddress(t.To),
			Value:     value,
			Data:      data,
			Operation: domain.SafeOperation(t.Operation),
			Nonce:     nonce,
		},
	)
	if err != nil {
		return nil, malformedResponse(err)
	}
	if tx.SafeTxHash != common.HexToHash(t.SafeTxHash) {
		return nil, malformedResponse(fmt.Errorf(
			"safe tx hash %s does not match its data, expected %s",
			t.SafeTxHash, tx.SafeTxHash.Hex(),
		))
	}

	if len(t.Proposer) > 0 {
		tx.Proposer = common.HexToAddress(t.Proposer)
	}
	tx.Executed = t.IsExecuted
	for _, c := range t.Confirmations {
		sig, err := hexutil.Decode(c.Signature)
		if err != nil {
			return nil, malformedResponse(fmt.Errorf("invalid signature: %w", err))
		}
		tx.AddSignature(common.HexToAddress(c.Owner), sig)
	}
	return tx, nil
}

type multisigTxPage struct {
	Count   int          `json:"count"`
	Next    *string      `json:"next"`
	Results []multisigTx `json:"results"`
}

type proposal struct {
	Safe                    string  `json:"safe"`
	To                      string  `json:"to"`
	Value                   string  `json:"value"`
	Data                    *string `json:"data"`
	Operation               uint8   `json:"operation"`
	SafeTxGas               string  `json:"safeTxGas"`
	BaseGas                 string  `json:"baseGas"`
	GasPrice                string  `json:"gasPrice"`
	GasToken                string  `json:"gasToken"`
	RefundReceiver          string  `json:"refundReceiver"`
	Nonce                   string  `json:"nonce"`
	ContractTransactionHash string  `json:"contractTransactionHash"`
	Sender                  string  `json:"sender"`
	Signature               string  `json:"signature"`
	Origin                  string  `json:"origin"`
}

func newProposal(
	tx domain.SafeTransaction, sender common.Address, sig []byte, origin string,
) proposal {
	var data *string
	if len(tx.Data) > 0 {
		d := hexutil.Encode(tx.Data)
		data = &d
	}
	value := "0"
	if tx.Value != nil {
		value = tx.Value.String()
	}
	zeroAddr := common.Address{}.Hex()

	return proposal{
		Safe:                    tx.Safe.Hex(),
		To:                      tx.To.Hex(),
		Value:                   value,
		Data:                    data,
		Operation:               uint8(tx.Operation),
		SafeTxGas:               "0",
		BaseGas:                 "0",
		GasPrice:                "0",
		GasToken:                zeroAddr,
		RefundReceiver:          zeroAddr,
		Nonce:                   tx.Nonce.String(),
		ContractTransactionHash: tx.SafeTxHash.Hex(),
		Sender:                  sender.Hex(),
		Signature:               hexutil.Encode(sig),
		Origin:                  origin,
	}
}

type confirmationRequest struct {
	Signature string `json:"signature"`
}

// parseNonce accepts both the numeric and the string encoding the service
// uses across versions.
func parseNonce(n json.Number) (*big.Int, error) {
	nonce, ok := new(big.Int).SetString(strings.TrimSpace(n.String()), 10)
	if !ok || nonce.Sign() < 0 {
		return nil, fmt.Errorf("invalid nonce %q", n)
	}
	return nonce, nil
}

// apiErrorMessage flattens the error bodies of the service, either a detail
// message or a map of field errors.
func apiErrorMessage(resp string) string {
	var detail struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal([]byte(resp), &detail); err == nil &&
		len(detail.Detail) > 0 {
		return detail.Detail
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(resp), &fields); err == nil && len(fields) > 0 {
		msgs := make([]string, 0, len(fields))
		for k, v := range fields {
			msgs = append(msgs, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(msgs)
		return strings.Join(msgs, "; ")
	}
	return resp
}

func malformedResponse(err error) error {
	return domain.NewUpstreamError(
		serviceName, http.StatusOK, fmt.Sprintf("malformed response: %s", err),
	)
}
