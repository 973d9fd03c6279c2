package domain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Safe is a multisig wallet: a transaction is executable once it collects
// Threshold signatures of distinct Owners.
type Safe struct {
	Address   common.Address
	Owners    []common.Address
	Threshold int
	// Nonce is the nonce the next executed transaction must have.
	Nonce uint64
}

// Validate checks that threshold is in range [1, len(owners)] and owners are
// unique.
func (s Safe) Validate() error {
	if len(s.Owners) <= 0 {
		return NewValidationError("owners", "safe must have at least one owner")
	}
	seen := make(map[common.Address]struct{}, len(s.Owners))
	for _, o := range s.Owners {
		if _, ok := seen[o]; ok {
			return NewValidationError(
				"owners", fmt.Sprintf("duplicated owner %s", o.Hex()),
			)
		}
		seen[o] = struct{}{}
	}
	if s.Threshold < 1 || s.Threshold > len(s.Owners) {
		return NewValidationError(
			"threshold",
			fmt.Sprintf("must be in range [1, %d], got %d", len(s.Owners), s.Threshold),
		)
	}
	return nil
}

// IsOwner returns whether the given address is one of the owners.
func (s Safe) IsOwner(addr common.Address) bool {
	for _, o := range s.Owners {
		if o == addr {
			return true
		}
	}
	return false
}
