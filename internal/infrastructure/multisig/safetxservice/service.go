package safetxservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	log "github.com/sirupsen/logrus"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	"github.com/safeswap/safeswap-daemon/internal/core/ports"
	"github.com/safeswap/safeswap-daemon/pkg/httputil"
)

const (
	serviceName = "safe-tx-service"

	DefaultOrigin = "safeswap"
	// maxPages bounds the pages followed when listing the queue.
	maxPages = 10
	pageSize = 100
)

type Opts struct {
	// APIURL is the base url of the transaction service of the network, ie.
	// https://safe-transaction-sepolia.safe.global.
	APIURL  string
	ChainID *big.Int
	// APIKey is sent as bearer token when set.
	APIKey     string
	Origin     string
	HTTPClient *httputil.Client
}

func (o Opts) validate() error {
	if _, err := url.ParseRequestURI(o.APIURL); err != nil {
		return fmt.Errorf("invalid safe tx service url: %w", err)
	}
	if o.ChainID == nil || o.ChainID.Sign() <= 0 {
		return fmt.Errorf("chain id must be positive")
	}
	if o.HTTPClient == nil {
		return fmt.Errorf("missing http client")
	}
	return nil
}

type service struct {
	apiURL  string
	chainID *big.Int
	apiKey  string
	origin  string
	client  *httputil.Client
}

// NewService returns a MultisigService backed by the Safe Transaction
// Service. The remote service verifies signatures and ownership, this adapter
// only checks that the records it receives are consistent with their hash.
func NewService(opts Opts) (ports.MultisigService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	origin := opts.Origin
	if len(origin) <= 0 {
		origin = DefaultOrigin
	}
	return &service{
		apiURL:  strings.TrimSuffix(opts.APIURL, "/") + "/api/v1",
		chainID: new(big.Int).Set(opts.ChainID),
		apiKey:  opts.APIKey,
		origin:  origin,
		client:  opts.HTTPClient,
	}, nil
}

func (s *service) GetSafe(
	ctx context.Context, safe common.Address,
) (*domain.Safe, error) {
	var resp safeInfo
	path := fmt.Sprintf("/safes/%s/", safe.Hex())
	if err := s.get(ctx, s.apiURL+path, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("safe", safe.Hex())
		}
		return nil, err
	}
	return resp.toDomain()
}

// GetPendingTransactions returns the not executed transactions with a nonce
// not yet consumed, ordered by nonce.
func (s *service) GetPendingTransactions(
	ctx context.Context, safe common.Address,
) ([]domain.SafeTransaction, error) {
	info, err := s.GetSafe(ctx, safe)
	if err != nil {
		return nil, err
	}

	next := fmt.Sprintf(
		"%s/safes/%s/multisig-transactions/?executed=false&nonce__gte=%d&limit=%d",
		s.apiURL, safe.Hex(), info.Nonce, pageSize,
	)
	txs := make([]domain.SafeTransaction, 0)
	for page := 0; len(next) > 0; page++ {
		if page >= maxPages {
			log.Warnf(
				"pending queue of safe %s exceeds %d pages, truncated",
				safe.Hex(), maxPages,
			)
			break
		}

		var resp multisigTxPage
		if err := s.get(ctx, next, &resp); err != nil {
			return nil, err
		}
		for _, r := range resp.Results {
			tx, err := r.toDomain(s.chainID)
			if err != nil {
				return nil, err
			}
			if tx.Executed {
				continue
			}
			txs = append(txs, *tx)
		}

		next = ""
		if resp.Next != nil {
			next = *resp.Next
		}
	}

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Nonce.Cmp(txs[j].Nonce) < 0
	})
	return txs, nil
}

func (s *service) GetTransaction(
	ctx context.Context, hash common.Hash,
) (*domain.SafeTransaction, error) {
	var resp multisigTx
	path := fmt.Sprintf("/multisig-transactions/%s/", hash.Hex())
	if err := s.get(ctx, s.apiURL+path, &resp); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewNotFoundError("safe tx", hash.Hex())
		}
		return nil, err
	}
	tx, err := resp.toDomain(s.chainID)
	if err != nil {
		return nil, err
	}
	if tx.SafeTxHash != hash {
		return nil, malformedResponse(
			fmt.Errorf("requested safe tx %s, got %s", hash.Hex(), tx.SafeTxHash.Hex()),
		)
	}
	return tx, nil
}

func (s *service) ProposeTransaction(
	ctx context.Context, tx domain.SafeTransaction,
	sender common.Address, signature []byte,
) error {
	hash, err := domain.SafeTxHash(s.chainID, tx.Safe, tx.SafeTxData)
	if err != nil {
		return err
	}
	if hash != tx.SafeTxHash {
		return domain.NewValidationError(
			"safeTxHash", fmt.Sprintf("expected %s", hash.Hex()),
		)
	}

	path := fmt.Sprintf("/safes/%s/multisig-transactions/", tx.Safe.Hex())
	body := newProposal(tx, sender, signature, s.origin)
	if err := s.post(ctx, path, body); err != nil {
		return err
	}

	log.Debugf(
		"proposed safe tx %s with nonce %s to %s",
		hash.Hex(), tx.Nonce, serviceName,
	)
	return nil
}

func (s *service) ConfirmTransaction(
	ctx context.Context, hash common.Hash,
	signer common.Address, signature []byte,
) error {
	path := fmt.Sprintf("/multisig-transactions/%s/confirmations/", hash.Hex())
	body := confirmationRequest{hexutil.Encode(signature)}
	if err := s.post(ctx, path, body); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewNotFoundError("safe tx", hash.Hex())
		}
		return err
	}

	log.Debugf("added confirmation of %s to safe tx %s", signer.Hex(), hash.Hex())
	return nil
}

// MarkExecuted succeeds only if the service already indexed the execution
// of the transaction, the execution itself happens on chain.
func (s *service) MarkExecuted(ctx context.Context, hash common.Hash) error {
	tx, err := s.GetTransaction(ctx, hash)
	if err != nil {
		return err
	}
	if tx.Executed {
		return nil
	}

	status := domain.SafeTxStatusUnknown
	if safe, err := s.GetSafe(ctx, tx.Safe); err == nil {
		status = tx.Status(*safe)
	}
	return domain.NewStateConflictError(hash.Hex(), status, "mark executed")
}

// RejectTransaction is a no-op, the service has no notion of rejected
// transactions. A rejection is expressed on chain by executing another
// transaction with the same nonce.
func (s *service) RejectTransaction(
	_ context.Context, hash common.Hash, reason string,
) error {
	log.Debugf(
		"rejection of safe tx %s not forwarded to %s: %s",
		hash.Hex(), serviceName, reason,
	)
	return nil
}

func (s *service) get(
	ctx context.Context, endpoint string, out interface{},
) error {
	status, resp, err := s.client.NewHTTPRequest(
		ctx, http.MethodGet, endpoint, "", s.headers(),
	)
	if err != nil {
		return domain.NewUpstreamError(serviceName, 0, err.Error())
	}
	if err := checkStatus(status, resp); err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(resp), out); err != nil {
		return malformedResponse(err)
	}
	return nil
}

func (s *service) post(
	ctx context.Context, path string, body interface{},
) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	headers := s.headers()
	headers["Content-Type"] = "application/json"

	status, resp, err := s.client.NewHTTPRequest(
		ctx, http.MethodPost, s.apiURL+path, string(payload), headers,
	)
	if err != nil {
		return domain.NewUpstreamError(serviceName, 0, err.Error())
	}
	return checkStatus(status, resp)
}

func (s *service) headers() map[string]string {
	headers := map[string]string{"Accept": "application/json"}
	if len(s.apiKey) > 0 {
		headers["Authorization"] = fmt.Sprintf("Bearer %s", s.apiKey)
	}
	return headers
}

// checkStatus maps non-2xx responses to domain errors. The service answers
// 422 when a signature does not belong to an owner of the Safe.
func checkStatus(status int, resp string) error {
	if status >= http.StatusOK && status < http.StatusMultipleChoices {
		return nil
	}

	msg := apiErrorMessage(resp)
	switch status {
	case http.StatusNotFound:
		return domain.NewNotFoundError("resource", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return &domain.UnauthorizedError{Reason: msg}
	case http.StatusUnprocessableEntity:
		if isSignerRejection(msg) {
			return &domain.UnauthorizedError{Reason: msg}
		}
		return domain.NewUpstreamError(serviceName, status, msg)
	default:
		return domain.NewUpstreamError(serviceName, status, msg)
	}
}

// isSignerRejection tells whether a 422 refuses the signer rather than the
// payload (bad nonce, bad data, hash mismatch).
func isSignerRejection(msg string) bool {
	msg = strings.ToLower(msg)
	for _, hint := range []string{"owner", "signer", "signature", "delegate"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
