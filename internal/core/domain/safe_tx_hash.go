package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

var safeTxTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"SafeTx": {
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "data", Type: "bytes"},
		{Name: "operation", Type: "uint8"},
		{Name: "safeTxGas", Type: "uint256"},
		{Name: "baseGas", Type: "uint256"},
		{Name: "gasPrice", Type: "uint256"},
		{Name: "gasToken", Type: "address"},
		{Name: "refundReceiver", Type: "address"},
		{Name: "nonce", Type: "uint256"},
	},
}

// SafeTxHash returns the EIP-712 hash of the SafeTx typed data, which is what
// owners sign and what identifies a transaction in the multisig service.
func SafeTxHash(
	chainID *big.Int, safe common.Address, data SafeTxData,
) (common.Hash, error) {
	if chainID == nil || chainID.Sign() <= 0 {
		return common.Hash{}, NewValidationError("chainId", "must be positive")
	}
	if data.Nonce == nil || data.Nonce.Sign() < 0 {
		return common.Hash{}, NewValidationError("nonce", "must be non negative")
	}
	if data.Operation > OperationDelegateCall {
		return common.Hash{}, NewValidationError(
			"operation", fmt.Sprintf("unknown operation %d", data.Operation),
		)
	}
	value := data.Value
	if value == nil {
		value = big.NewInt(0)
	}
	if value.Sign() < 0 {
		return common.Hash{}, NewValidationError("value", "must be non negative")
	}
	txData := data.Data
	if txData == nil {
		txData = []byte{}
	}

	zero := big.NewInt(0)
	typedData := apitypes.TypedData{
		Types:       safeTxTypes,
		PrimaryType: "SafeTx",
		Domain: apitypes.TypedDataDomain{
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: safe.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"to":             data.To.Hex(),
			"value":          new(big.Int).Set(value),
			"data":           txData,
			"operation":      big.NewInt(int64(data.Operation)),
			"safeTxGas":      zero,
			"baseGas":        zero,
			"gasPrice":       zero,
			"gasToken":       common.Address{}.Hex(),
			"refundReceiver": common.Address{}.Hex(),
			"nonce":          new(big.Int).Set(data.Nonce),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash safe tx: %w", err)
	}
	return common.BytesToHash(hash), nil
}

// RecoverSigner returns the address that produced the given 65 bytes ECDSA
// signature of hash. Both 0/1 and 27/28 recovery ids are accepted.
func RecoverSigner(hash common.Hash, signature []byte) (common.Address, error) {
	if len(signature) != crypto.SignatureLength {
		return common.Address{}, NewValidationError(
			"signature", fmt.Sprintf("must be %d bytes", crypto.SignatureLength),
		)
	}
	sig := append([]byte(nil), signature...)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pubkey, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return common.Address{}, NewValidationError("signature", err.Error())
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
