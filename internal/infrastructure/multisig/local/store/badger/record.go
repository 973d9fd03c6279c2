package badgerstore

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

// Records are stored with plain types so that the encoding does not depend
// on the internals of go-ethereum types.

type safeRecord struct {
	Address   string
	Owners    []string
	Threshold int
	Nonce     uint64
}

func newSafeRecord(safe domain.Safe) safeRecord {
	owners := make([]string, 0, len(safe.Owners))
	for _, o := range safe.Owners {
		owners = append(owners, o.Hex())
	}
	return safeRecord{
		Address:   safe.Address.Hex(),
		Owners:    owners,
		Threshold: safe.Threshold,
		Nonce:     safe.Nonce,
	}
}

func (r safeRecord) toDomain() *domain.Safe {
	owners := make([]common.Address, 0, len(r.Owners))
	for _, o := range r.Owners {
		owners = append(owners, common.HexToAddress(o))
	}
	return &domain.Safe{
		Address:   common.HexToAddress(r.Address),
		Owners:    owners,
		Threshold: r.Threshold,
		Nonce:     r.Nonce,
	}
}

type safeTxRecord struct {
	SafeTxHash   string
	Safe         string
	To           string
	Value        string
	Data         string
	Operation    uint8
	Nonce        string
	Proposer     string
	Signatures   map[string]string
	Executed     bool
	Rejected     bool
	RejectReason string
}

func newSafeTxRecord(tx domain.SafeTransaction) safeTxRecord {
	sigs := make(map[string]string, len(tx.Signatures))
	for signer, sig := range tx.Signatures {
		sigs[signer.Hex()] = hexutil.Encode(sig)
	}
	value := "0"
	if tx.Value != nil {
		value = tx.Value.String()
	}
	nonce := "0"
	if tx.Nonce != nil {
		nonce = tx.Nonce.String()
	}
	return safeTxRecord{
		SafeTxHash:   tx.SafeTxHash.Hex(),
		Safe:         tx.Safe.Hex(),
		To:           tx.To.Hex(),
		Value:        value,
		Data:         hexutil.Encode(tx.Data),
		Operation:    uint8(tx.Operation),
		Nonce:        nonce,
		Proposer:     tx.Proposer.Hex(),
		Signatures:   sigs,
		Executed:     tx.Executed,
		Rejected:     tx.Rejected,
		RejectReason: tx.RejectReason,
	}
}

func (r safeTxRecord) toDomain() (*domain.SafeTransaction, error) {
	value, ok := new(big.Int).SetString(r.Value, 10)
	if !ok {
		return nil, fmt.Errorf("malformed value for safe tx %s", r.SafeTxHash)
	}
	nonce, ok := new(big.Int).SetString(r.Nonce, 10)
	if !ok {
		return nil, fmt.Errorf("malformed nonce for safe tx %s", r.SafeTxHash)
	}
	data, err := hexutil.Decode(r.Data)
	if err != nil {
		return nil, fmt.Errorf("malformed data for safe tx %s: %w", r.SafeTxHash, err)
	}

	sigs := make(map[common.Address][]byte, len(r.Signatures))
	for signer, sig := range r.Signatures {
		buf, err := hexutil.Decode(sig)
		if err != nil {
			return nil, fmt.Errorf(
				"malformed signature for safe tx %s: %w", r.SafeTxHash, err,
			)
		}
		sigs[common.HexToAddress(signer)] = buf
	}

	return &domain.SafeTransaction{
		SafeTxData: domain.SafeTxData{
			To:        common.HexToAddress(r.To),
			Value:     value,
			Data:      data,
			Operation: domain.SafeOperation(r.Operation),
			Nonce:     nonce,
		},
		SafeTxHash:   common.HexToHash(r.SafeTxHash),
		Safe:         common.HexToAddress(r.Safe),
		Proposer:     common.HexToAddress(r.Proposer),
		Signatures:   sigs,
		Executed:     r.Executed,
		Rejected:     r.Rejected,
		RejectReason: r.RejectReason,
	}, nil
}
