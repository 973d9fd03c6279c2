package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/safeswap/safeswap-daemon/internal/core/application/multisig"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
	ecdsasigner "github.com/safeswap/safeswap-daemon/internal/infrastructure/signer/ecdsa"
)

var (
	safe = cli.Command{
		Name:  "safe",
		Usage: "confirm, inspect and execute the transactions of the Safe",
		Subcommands: []*cli.Command{
			safeConfirmCmd, safeStatusCmd, safeExecuteCmd,
		},
	}

	safeTxHashFlag = &cli.StringFlag{
		Name:     "safe_tx_hash",
		Usage:    "the hash of the safe transaction",
		Required: true,
	}

	safeConfirmCmd = &cli.Command{
		Name:  "confirm",
		Usage: "add the confirmation of an owner to a pending safe transaction",
		Flags: []cli.Flag{
			safeTxHashFlag,
			&cli.StringFlag{
				Name:     "private_key",
				Usage:    "the hex encoded private key of the confirming owner",
				EnvVars:  []string{"SAFESWAP_OWNER_PRIVATE_KEY"},
				Required: true,
			},
		},
		Action: confirmAction,
	}

	safeStatusCmd = &cli.Command{
		Name:   "status",
		Usage:  "get the signing status of a safe transaction",
		Flags:  []cli.Flag{safeTxHashFlag},
		Action: safeStatusAction,
	}

	safeExecuteCmd = &cli.Command{
		Name: "execute",
		Usage: "mark an executable safe transaction as executed, the multisig " +
			"service must agree",
		Flags:  []cli.Flag{safeTxHashFlag},
		Action: executeAction,
	}
)

func confirmAction(ctx *cli.Context) error {
	hash, err := parseSafeTxHash(ctx.String("safe_tx_hash"))
	if err != nil {
		return err
	}
	owner, err := ecdsasigner.NewSigner(ctx.String("private_key"))
	if err != nil {
		return err
	}

	res, err := svc.signingSvc.Confirm(ctx.Context, owner, hash)
	if err != nil {
		return err
	}

	printRespJSON(map[string]interface{}{
		"safe_tx_hash":  res.SafeTxHash.Hex(),
		"signer":        res.Signer.Hex(),
		"added":         res.Added,
		"status":        res.Status,
		"confirmations": res.Confirmations,
		"threshold":     res.Threshold,
		"executable":    res.Executable,
	})
	return nil
}

func safeStatusAction(ctx *cli.Context) error {
	hash, err := parseSafeTxHash(ctx.String("safe_tx_hash"))
	if err != nil {
		return err
	}

	res, err := svc.signingSvc.GetStatus(ctx.Context, hash)
	if err != nil {
		return err
	}

	printRespJSON(newTxStatusView(*res))
	return nil
}

func executeAction(ctx *cli.Context) error {
	hash, err := parseSafeTxHash(ctx.String("safe_tx_hash"))
	if err != nil {
		return err
	}

	if err := svc.signingSvc.MarkExecuted(ctx.Context, hash); err != nil {
		return err
	}

	res, err := svc.signingSvc.GetStatus(ctx.Context, hash)
	if err != nil {
		return err
	}
	printRespJSON(newTxStatusView(*res))
	return nil
}

func parseSafeTxHash(value string) (common.Hash, error) {
	hash, err := hexutil.Decode(value)
	if err != nil || len(hash) != common.HashLength {
		return common.Hash{}, domain.NewValidationError(
			"safe_tx_hash", "must be a 0x prefixed 32 bytes hex string",
		)
	}
	return common.BytesToHash(hash), nil
}

type txStatusView struct {
	SafeTxHash    string `json:"safe_tx_hash"`
	Status        string `json:"status"`
	Confirmations int    `json:"confirmations"`
	Threshold     int    `json:"threshold"`
	Executable    bool   `json:"executable"`
}

func newTxStatusView(s multisig.TxStatus) txStatusView {
	return txStatusView{
		SafeTxHash:    s.SafeTxHash.Hex(),
		Status:        string(s.Status),
		Confirmations: s.Confirmations,
		Threshold:     s.Threshold,
		Executable:    s.Executable,
	}
}
