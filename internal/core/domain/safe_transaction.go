package domain

import (
	"bytes"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SafeOperation is the kind of call a Safe performs.
type SafeOperation uint8

const (
	OperationCall         SafeOperation = 0
	OperationDelegateCall SafeOperation = 1
)

// SafeTxStatus represents the different statuses a safe transaction can
// assume.
type SafeTxStatus string

const (
	SafeTxStatusUnknown               SafeTxStatus = "unknown"
	SafeTxStatusDraft                 SafeTxStatus = "draft"
	SafeTxStatusAgentSigned           SafeTxStatus = "agent_signed"
	SafeTxStatusAwaitingConfirmations SafeTxStatus = "awaiting_confirmations"
	SafeTxStatusExecutable            SafeTxStatus = "executable"
	SafeTxStatusExecuted              SafeTxStatus = "executed"
	SafeTxStatusRejected              SafeTxStatus = "rejected"
)

// IsTerminal returns whether no transition can leave the status.
func (s SafeTxStatus) IsTerminal() bool {
	return s == SafeTxStatusExecuted || s == SafeTxStatusRejected
}

// SafeTxData are the fields of a Safe transaction that the hash commits to,
// gas refund parameters are always zero.
type SafeTxData struct {
	To        common.Address
	Value     *big.Int
	Data      []byte
	Operation SafeOperation
	Nonce     *big.Int
}

// SameCall returns whether the two transactions perform the same call,
// regardless of their nonce.
func (d SafeTxData) SameCall(other SafeTxData) bool {
	return d.To == other.To &&
		bigEqual(d.Value, other.Value) &&
		bytes.Equal(d.Data, other.Data) &&
		d.Operation == other.Operation
}

// SafeTransaction is the multisig service's record of a transaction and of
// the signatures collected for it.
type SafeTransaction struct {
	SafeTxData
	SafeTxHash common.Hash
	Safe       common.Address
	// Proposer is the address that submitted the transaction, zero if
	// unknown.
	Proposer     common.Address
	Signatures   map[common.Address][]byte
	Executed     bool
	Rejected     bool
	RejectReason string
}

// NewSafeTransaction returns a Draft transaction with the hash derived from
// its data.
func NewSafeTransaction(
	chainID *big.Int, safe common.Address, data SafeTxData,
) (*SafeTransaction, error) {
	hash, err := SafeTxHash(chainID, safe, data)
	if err != nil {
		return nil, err
	}
	return &SafeTransaction{
		SafeTxData: data,
		SafeTxHash: hash,
		Safe:       safe,
		Signatures: make(map[common.Address][]byte),
	}, nil
}

// AddSignature records the signature of the given signer. A previous
// signature of the same signer is replaced and the method returns false.
func (t *SafeTransaction) AddSignature(signer common.Address, sig []byte) bool {
	if t.Signatures == nil {
		t.Signatures = make(map[common.Address][]byte)
	}
	_, exists := t.Signatures[signer]
	t.Signatures[signer] = append([]byte(nil), sig...)
	return !exists
}

// HasSignature returns whether the given signer signed the transaction.
func (t *SafeTransaction) HasSignature(signer common.Address) bool {
	_, ok := t.Signatures[signer]
	return ok
}

// Confirmations counts the signatures made by owners of the given Safe.
func (t *SafeTransaction) Confirmations(safe Safe) int {
	count := 0
	for signer := range t.Signatures {
		if safe.IsOwner(signer) {
			count++
		}
	}
	return count
}

// IsExecutable returns whether the threshold of the Safe is met and the
// transaction was not executed yet.
func (t *SafeTransaction) IsExecutable(safe Safe) bool {
	return !t.Executed && !t.Rejected && t.Confirmations(safe) >= safe.Threshold
}

// Status derives the status of the transaction from its record and the
// current owners and threshold of the Safe.
func (t *SafeTransaction) Status(safe Safe) SafeTxStatus {
	if t.Executed {
		return SafeTxStatusExecuted
	}
	if t.Rejected {
		return SafeTxStatusRejected
	}

	confirmations := t.Confirmations(safe)
	if confirmations >= safe.Threshold {
		return SafeTxStatusExecutable
	}
	if confirmations == 0 {
		return SafeTxStatusDraft
	}
	if confirmations == 1 && t.Proposer != (common.Address{}) &&
		t.HasSignature(t.Proposer) {
		return SafeTxStatusAgentSigned
	}
	return SafeTxStatusAwaitingConfirmations
}

// Execute brings an Executable transaction to the Executed status.
func (t *SafeTransaction) Execute(safe Safe) (bool, error) {
	status := t.Status(safe)
	if status != SafeTxStatusExecutable {
		return false, NewStateConflictError(t.SafeTxHash.Hex(), status, "execute")
	}
	t.Executed = true
	return true, nil
}

// Reject brings a non terminal transaction to the Rejected status.
func (t *SafeTransaction) Reject(reason string) bool {
	if t.Executed || t.Rejected {
		return false
	}
	t.Rejected = true
	t.RejectReason = reason
	return true
}

func bigEqual(a, b *big.Int) bool {
	if a == nil || b == nil {
		return (a == nil || a.Sign() == 0) && (b == nil || b.Sign() == 0)
	}
	return a.Cmp(b) == 0
}
