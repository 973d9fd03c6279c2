package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Balances of an account, in base units.
type Balances struct {
	Account common.Address
	Native  *big.Int
	Tokens  map[common.Address]*big.Int
}
