package multisig

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// SafeTxRequest is a transaction to be proposed to the Safe. If Nonce is nil
// the service picks one.
type SafeTxRequest struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation domain.SafeOperation
	Nonce     *big.Int
	// OrderID is only used to enrich notifications.
	OrderID string
}

func (r SafeTxRequest) txData(nonce *big.Int) domain.SafeTxData {
	value := r.Value
	if value == nil {
		value = big.NewInt(0)
	}
	return domain.SafeTxData{
		To:        r.To,
		Value:     value,
		Data:      r.Data,
		Operation: r.Operation,
		Nonce:     nonce,
	}
}

type SignResult struct {
	SafeTxHash common.Hash
	Signature  []byte
	Nonce      *big.Int
	Status     domain.SafeTxStatus
}

type ConfirmResult struct {
	SafeTxHash    common.Hash
	Signer        common.Address
	Status        domain.SafeTxStatus
	Confirmations int
	Threshold     int
	Executable    bool
	// Added is false when the signer had already confirmed.
	Added bool
}

type TxStatus struct {
	SafeTxHash    common.Hash
	Status        domain.SafeTxStatus
	Confirmations int
	Threshold     int
	Executable    bool
}
