package main

import (
	"time"

	"github.com/urfave/cli/v2"
)

var status = cli.Command{
	Name:  "status",
	Usage: "get the lifecycle status of an order and of its presign transaction",
	Flags: []cli.Flag{
		safeTxHashFlag,
		&cli.StringFlag{
			Name:     "order_id",
			Usage:    "the uid of the order",
			Required: true,
		},
	},
	Action: statusAction,
}

func statusAction(ctx *cli.Context) error {
	hash, err := parseSafeTxHash(ctx.String("safe_tx_hash"))
	if err != nil {
		return err
	}

	view, err := svc.trackerSvc.Refresh(ctx.Context, hash, ctx.String("order_id"))
	if err != nil {
		return err
	}

	printRespJSON(map[string]interface{}{
		"status":     view.Status,
		"signing":    newTxStatusView(view.Signing),
		"order":      newOrderView(view.Order, view.Trades),
		"fill_ratio": view.FillRatio.String(),
		"checked_at": view.CheckedAt.UTC().Format(time.RFC3339),
	})
	return nil
}
