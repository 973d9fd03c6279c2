package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Signer holds a key and produces 65 bytes [R || S || V] signatures of
// hashes, with V in {27, 28}.
type Signer interface {
	Address() common.Address
	SignHash(ctx context.Context, hash common.Hash) ([]byte, error)
}
