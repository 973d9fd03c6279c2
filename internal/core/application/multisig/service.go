package multisig

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

// Service coordinates the signing workflow of the transactions of a Safe:
// proposal with the agent's signature, owners' confirmations, execution.
// Every record lives in the multisig service, the Service keeps no state
// between calls.
type Service struct {
	multisig ports.MultisigService
	agent    ports.Signer
	notifier ports.Notifier
	safe     common.Address
	chainID  *big.Int

	// proposeLock serializes nonce selection and proposal.
	proposeLock *sync.Mutex
}

// NewService returns a new signing coordinator for the given Safe. notifier
// is optional.
func NewService(
	multisigSvc ports.MultisigService,
	agent ports.Signer,
	notifier ports.Notifier,
	safe common.Address,
	chainID *big.Int,
) (*Service, error) {
	if multisigSvc == nil {
		return nil, fmt.Errorf("missing multisig service")
	}
	if agent == nil {
		return nil, fmt.Errorf("missing agent signer")
	}
	if safe == (common.Address{}) {
		return nil, fmt.Errorf("missing safe address")
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}

	return &Service{
		multisig: multisigSvc,
		agent:    agent,
		notifier: notifier,
		safe:     safe,
		chainID:  new(big.Int).Set(chainID),

		proposeLock: &sync.Mutex{},
	}, nil
}

func (s *Service) SafeAddress() common.Address {
	return s.safe
}

// ProposeAndAgentSign makes sure the multisig service holds the transaction
// with the agent's signature. The safeTxHash is the idempotency key: if the
// agent already signed the record with the same hash, its signature is
// returned and nothing is posted.
func (s *Service) ProposeAndAgentSign(
	ctx context.Context, req SafeTxRequest,
) (*SignResult, error) {
	s.proposeLock.Lock()
	defer s.proposeLock.Unlock()

	safe, err := s.multisig.GetSafe(ctx, s.safe)
	if err != nil {
		return nil, err
	}

	agent := s.agent.Address()
	if !safe.IsOwner(agent) {
		return nil, domain.NewUnauthorizedError(agent.Hex(), s.safe.Hex())
	}

	nonce := req.Nonce
	if nonce == nil {
		if nonce, err = s.selectNonce(ctx, *safe, req); err != nil {
			return nil, err
		}
	}

	tx, err := domain.NewSafeTransaction(s.chainID, s.safe, req.txData(nonce))
	if err != nil {
		return nil, err
	}
	hash := tx.SafeTxHash

	existing, err := s.multisig.GetTransaction(ctx, hash)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	if existing != nil && existing.HasSignature(agent) {
		log.Debugf("safe tx %s already signed by agent", hash.Hex())
		return &SignResult{
			SafeTxHash: hash,
			Signature:  existing.Signatures[agent],
			Nonce:      existing.Nonce,
			Status:     existing.Status(*safe),
		}, nil
	}
	if existing != nil {
		if status := existing.Status(*safe); status.IsTerminal() {
			return nil, domain.NewStateConflictError(hash.Hex(), status, "sign")
		}
	}

	sig, err := s.sign(ctx, s.agent, hash)
	if err != nil {
		return nil, err
	}

	wasExecutable := false
	if existing == nil {
		tx.Proposer = agent
		if err := s.multisig.ProposeTransaction(ctx, *tx, agent, sig); err != nil {
			return nil, err
		}
		log.Debugf("proposed safe tx %s with nonce %s", hash.Hex(), nonce)
	} else {
		tx = existing
		wasExecutable = tx.IsExecutable(*safe)
		if err := s.multisig.ConfirmTransaction(ctx, hash, agent, sig); err != nil {
			return nil, err
		}
		log.Debugf("agent signed already proposed safe tx %s", hash.Hex())
	}
	tx = s.reloadTransaction(ctx, tx, agent, sig)

	status := tx.Status(*safe)
	s.publish(ctx, ports.TopicAwaitingConfirmations, tx, *safe, req.OrderID)
	if tx.IsExecutable(*safe) && !wasExecutable {
		s.publish(ctx, ports.TopicExecutable, tx, *safe, req.OrderID)
	}

	return &SignResult{
		SafeTxHash: hash,
		Signature:  sig,
		Nonce:      nonce,
		Status:     status,
	}, nil
}

// Confirm adds the signature of an owner to a pending transaction.
// Confirming twice with the same owner is a no-op.
func (s *Service) Confirm(
	ctx context.Context, signer ports.Signer, safeTxHash common.Hash,
) (*ConfirmResult, error) {
	if signer == nil {
		return nil, domain.NewValidationError("signer", "missing signer")
	}

	safe, err := s.multisig.GetSafe(ctx, s.safe)
	if err != nil {
		return nil, err
	}

	tx, err := s.findPendingTransaction(ctx, safeTxHash)
	if err != nil {
		return nil, err
	}

	signerAddr := signer.Address()
	if !safe.IsOwner(signerAddr) {
		return nil, domain.NewUnauthorizedError(signerAddr.Hex(), s.safe.Hex())
	}

	if tx.HasSignature(signerAddr) {
		log.Debugf(
			"safe tx %s already confirmed by %s", safeTxHash.Hex(), signerAddr.Hex(),
		)
		return newConfirmResult(tx, *safe, signerAddr, false), nil
	}

	sig, err := s.sign(ctx, signer, safeTxHash)
	if err != nil {
		return nil, err
	}

	wasExecutable := tx.IsExecutable(*safe)
	if err := s.multisig.ConfirmTransaction(
		ctx, safeTxHash, signerAddr, sig,
	); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			s.reject(ctx, safeTxHash, err)
		}
		return nil, err
	}
	tx = s.reloadTransaction(ctx, tx, signerAddr, sig)

	result := newConfirmResult(tx, *safe, signerAddr, true)
	log.Debugf(
		"safe tx %s confirmed by %s (%d/%d)", safeTxHash.Hex(), signerAddr.Hex(),
		result.Confirmations, result.Threshold,
	)

	s.publish(ctx, ports.TopicConfirmed, tx, *safe, "")
	if result.Executable && !wasExecutable {
		s.publish(ctx, ports.TopicExecutable, tx, *safe, "")
	}
	return result, nil
}

// GetStatus returns the status of the transaction with the given hash, or
// the unknown status if the multisig service has no record of it.
func (s *Service) GetStatus(
	ctx context.Context, safeTxHash common.Hash,
) (*TxStatus, error) {
	tx, err := s.multisig.GetTransaction(ctx, safeTxHash)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &TxStatus{
				SafeTxHash: safeTxHash,
				Status:     domain.SafeTxStatusUnknown,
			}, nil
		}
		return nil, err
	}

	safe, err := s.multisig.GetSafe(ctx, tx.Safe)
	if err != nil {
		return nil, err
	}

	return &TxStatus{
		SafeTxHash:    safeTxHash,
		Status:        tx.Status(*safe),
		Confirmations: tx.Confirmations(*safe),
		Threshold:     safe.Threshold,
		Executable:    tx.IsExecutable(*safe),
	}, nil
}

// MarkExecuted brings an Executable transaction to the Executed status.
func (s *Service) MarkExecuted(
	ctx context.Context, safeTxHash common.Hash,
) error {
	tx, err := s.multisig.GetTransaction(ctx, safeTxHash)
	if err != nil {
		return err
	}

	safe, err := s.multisig.GetSafe(ctx, tx.Safe)
	if err != nil {
		return err
	}

	if _, err := tx.Execute(*safe); err != nil {
		return err
	}

	if err := s.multisig.MarkExecuted(ctx, safeTxHash); err != nil {
		return err
	}
	log.Debugf("safe tx %s executed", safeTxHash.Hex())
	return nil
}

// selectNonce reuses the nonce of a pending transaction performing the same
// call, so that retrying a request does not queue a second transaction.
// Otherwise it returns the first nonce not yet used by the queue.
func (s *Service) selectNonce(
	ctx context.Context, safe domain.Safe, req SafeTxRequest,
) (*big.Int, error) {
	pending, err := s.multisig.GetPendingTransactions(ctx, s.safe)
	if err != nil {
		return nil, err
	}

	call := req.txData(nil)
	nonce := new(big.Int).SetUint64(safe.Nonce)
	for _, tx := range pending {
		if tx.Nonce == nil {
			continue
		}
		if tx.SafeTxData.SameCall(call) && tx.Nonce.Cmp(nonce) >= 0 {
			return new(big.Int).Set(tx.Nonce), nil
		}
	}
	for _, tx := range pending {
		if tx.Nonce == nil {
			continue
		}
		if next := new(big.Int).Add(tx.Nonce, big.NewInt(1)); next.Cmp(nonce) > 0 {
			nonce = next
		}
	}
	return nonce, nil
}

// findPendingTransaction looks the hash up in the pending queue. Hashes are
// expected to be unique per Safe: if the service returns more than one
// record, the first one wins.
func (s *Service) findPendingTransaction(
	ctx context.Context, safeTxHash common.Hash,
) (*domain.SafeTransaction, error) {
	pending, err := s.multisig.GetPendingTransactions(ctx, s.safe)
	if err != nil {
		return nil, err
	}

	var found *domain.SafeTransaction
	matches := 0
	for i := range pending {
		if pending[i].SafeTxHash != safeTxHash {
			continue
		}
		matches++
		if found == nil {
			found = &pending[i]
		}
	}
	if matches > 1 {
		log.Warnf(
			"multisig service returned %d pending records for safe tx %s",
			matches, safeTxHash.Hex(),
		)
	}
	if found != nil {
		return found, nil
	}

	// Tell apart transactions that are no longer pending from unknown ones.
	tx, err := s.multisig.GetTransaction(ctx, safeTxHash)
	if err != nil {
		return nil, err
	}
	if tx.Executed {
		return nil, domain.NewStateConflictError(
			safeTxHash.Hex(), domain.SafeTxStatusExecuted, "confirm",
		)
	}
	if tx.Rejected {
		return nil, domain.NewStateConflictError(
			safeTxHash.Hex(), domain.SafeTxStatusRejected, "confirm",
		)
	}
	return nil, domain.NewNotFoundError("pending safe tx", safeTxHash.Hex())
}

// reloadTransaction reads the record back from the multisig service after
// a signature was posted, so that confirmations added concurrently by other
// owners are counted. If the read fails the local copy is used.
func (s *Service) reloadTransaction(
	ctx context.Context, tx *domain.SafeTransaction,
	signer common.Address, sig []byte,
) *domain.SafeTransaction {
	fresh, err := s.multisig.GetTransaction(ctx, tx.SafeTxHash)
	if err != nil {
		log.WithError(err).Warnf(
			"failed to read back safe tx %s", tx.SafeTxHash.Hex(),
		)
		fresh = tx
	}
	if !fresh.HasSignature(signer) {
		fresh.AddSignature(signer, sig)
	}
	return fresh
}

func (s *Service) sign(
	ctx context.Context, signer ports.Signer, hash common.Hash,
) ([]byte, error) {
	sig, err := signer.SignHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	recovered, err := domain.RecoverSigner(hash, sig)
	if err != nil {
		return nil, err
	}
	if recovered != signer.Address() {
		err := domain.NewUnauthorizedError(recovered.Hex(), s.safe.Hex())
		err.Reason = fmt.Sprintf(
			"signature does not belong to %s", signer.Address().Hex(),
		)
		return nil, err
	}
	return sig, nil
}

func (s *Service) reject(
	ctx context.Context, safeTxHash common.Hash, cause error,
) {
	if err := s.multisig.RejectTransaction(
		ctx, safeTxHash, cause.Error(),
	); err != nil {
		log.WithError(err).Warnf("failed to reject safe tx %s", safeTxHash.Hex())
		return
	}
	log.Debugf("safe tx %s rejected: %s", safeTxHash.Hex(), cause)
}

func (s *Service) publish(
	ctx context.Context, topic string,
	tx *domain.SafeTransaction, safe domain.Safe, orderID string,
) {
	if s.notifier == nil {
		return
	}

	event := ports.Event{
		ID:            uuid.New().String(),
		Topic:         topic,
		Safe:          safe.Address.Hex(),
		SafeTxHash:    tx.SafeTxHash.Hex(),
		OrderID:       orderID,
		Status:        string(tx.Status(safe)),
		Confirmations: tx.Confirmations(safe),
		Threshold:     safe.Threshold,
		Timestamp:     time.Now().Unix(),
	}
	if err := s.notifier.Publish(ctx, event); err != nil {
		log.WithError(err).Warnf(
			"failed to publish %s event for safe tx %s", topic, tx.SafeTxHash.Hex(),
		)
	}
}

func newConfirmResult(
	tx *domain.SafeTransaction, safe domain.Safe,
	signer common.Address, added bool,
) *ConfirmResult {
	return &ConfirmResult{
		SafeTxHash:    tx.SafeTxHash,
		Signer:        signer,
		Status:        tx.Status(safe),
		Confirmations: tx.Confirmations(safe),
		Threshold:     safe.Threshold,
		Executable:    tx.IsExecutable(safe),
		Added:         added,
	}
}
