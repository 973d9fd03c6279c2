package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

const etherDecimals = 18

var balance = cli.Command{
	Name:  "balance",
	Usage: "get the native and token balances of the Safe",
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "token",
			Usage: "the address of a token to get the balance of, repeatable",
		},
	},
	Action: balanceAction,
}

func balanceAction(ctx *cli.Context) error {
	tokens := make([]common.Address, 0)
	for _, t := range ctx.StringSlice("token") {
		if !domain.IsHexAddress(t) {
			return domain.NewValidationError("token", "must be a 0x prefixed address")
		}
		tokens = append(tokens, common.HexToAddress(t))
	}

	walletSvc, err := svc.walletService(ctx.Context)
	if err != nil {
		return err
	}
	balances, err := walletSvc.GetBalances(ctx.Context, tokens)
	if err != nil {
		return err
	}

	tokenBalances := make(map[string]string, len(balances.Tokens))
	for token, amount := range balances.Tokens {
		tokenBalances[token.Hex()] = amountString(amount)
	}
	printRespJSON(map[string]interface{}{
		"account": balances.Account.Hex(),
		"native":  amountString(balances.Native),
		"native_ether": decimal.NewFromBigInt(
			balances.Native, -etherDecimals,
		).String(),
		"tokens": tokenBalances,
	})
	return nil
}
