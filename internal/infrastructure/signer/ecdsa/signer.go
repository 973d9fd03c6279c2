package ecdsasigner

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/safeswap/safeswap-daemon/internal/core/ports"
)

type signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner returns a Signer for the given hex encoded secp256k1 private
// key, with or without 0x prefix.
func NewSigner(privateKey string) (ports.Signer, error) {
	privateKey = strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	if len(privateKey) <= 0 {
		return nil, fmt.Errorf("missing private key")
	}
	key, err := crypto.HexToECDSA(privateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewSignerFromKey(key), nil
}

func NewSignerFromKey(key *ecdsa.PrivateKey) ports.Signer {
	return &signer{key, crypto.PubkeyToAddress(key.PublicKey)}
}

func (s *signer) Address() common.Address {
	return s.address
}

// SignHash signs the raw 32 bytes hash, without any message prefix, and
// returns the signature in the r||s||v form expected by Safe contracts.
func (s *signer) SignHash(_ context.Context, hash common.Hash) ([]byte, error) {
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}
