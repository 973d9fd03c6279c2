package main

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/safeswap/safeswap-daemon/internal/core/application/swap"
	"github.com/safeswap/safeswap-daemon/internal/core/domain"
)

var (
	order = cli.Command{
		Name:  "order",
		Usage: "create, sign and list the orders of the Safe",
		Subcommands: []*cli.Command{
			orderCreateCmd, orderSignCmd, orderListCmd,
		},
	}

	orderCreateCmd = &cli.Command{
		Name: "create",
		Usage: "place an order trading the given token against the reference " +
			"token and sign its presign transaction with the agent key",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "amount",
				Usage:    "the amount of the fixed leg in base units",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "token",
				Usage:    "the address of the token to buy or sell",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "operation",
				Usage:    "either buy or sell",
				Required: true,
			},
		},
		Action: createOrderAction,
	}

	orderSignCmd = &cli.Command{
		Name:  "sign",
		Usage: "propose and sign the presign transaction of an existing order",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "order_id",
				Usage:    "the uid of the order",
				Required: true,
			},
		},
		Action: signOrderAction,
	}

	orderListCmd = &cli.Command{
		Name:  "list",
		Usage: "list the orders of the Safe, newest first, with their trades",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "the max number of orders to return",
				Value: swap.DefaultPageSize,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "the number of orders to skip",
			},
		},
		Action: listOrdersAction,
	}
)

func createOrderAction(ctx *cli.Context) error {
	amount, err := domain.ParseAmount(ctx.String("amount"))
	if err != nil {
		return err
	}

	res, err := svc.swapSvc.CreateAndSignOrder(
		ctx.Context, amount, ctx.String("token"), ctx.String("operation"),
	)
	if err != nil {
		return err
	}

	printRespJSON(newOrderResultView(res))
	return nil
}

func signOrderAction(ctx *cli.Context) error {
	res, err := svc.swapSvc.ResumeSigning(ctx.Context, ctx.String("order_id"))
	if err != nil {
		return err
	}

	printRespJSON(newOrderResultView(res))
	return nil
}

func listOrdersAction(ctx *cli.Context) error {
	orders, err := svc.swapSvc.ListOrders(
		ctx.Context, ctx.Int("limit"), ctx.Int("offset"),
	)
	if err != nil {
		return err
	}

	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, newOrderView(o.Order, o.Trades))
	}
	printRespJSON(map[string]interface{}{"orders": views})
	return nil
}

type orderResultView struct {
	OrderID    string `json:"order_id"`
	SafeTxHash string `json:"safe_tx_hash"`
	Signature  string `json:"signature"`
	Status     string `json:"status"`
}

func newOrderResultView(res *swap.OrderResult) orderResultView {
	return orderResultView{
		OrderID:    res.OrderID,
		SafeTxHash: res.SafeTxHash.Hex(),
		Signature:  hexutil.Encode(res.Signature),
		Status:     string(res.Status),
	}
}

type tradeView struct {
	BlockNumber uint64 `json:"block_number"`
	LogIndex    uint64 `json:"log_index"`
	SellAmount  string `json:"sell_amount"`
	BuyAmount   string `json:"buy_amount"`
	TxHash      string `json:"tx_hash"`
}

type orderView struct {
	ID                 string      `json:"id"`
	Kind               string      `json:"kind"`
	Status             string      `json:"status"`
	SellToken          string      `json:"sell_token"`
	BuyToken           string      `json:"buy_token"`
	SellAmount         string      `json:"sell_amount"`
	BuyAmount          string      `json:"buy_amount"`
	ExecutedSellAmount string      `json:"executed_sell_amount"`
	ExecutedBuyAmount  string      `json:"executed_buy_amount"`
	ValidTo            int64       `json:"valid_to"`
	Trades             []tradeView `json:"trades"`
}

func newOrderView(o domain.SwapOrder, trades []domain.Trade) orderView {
	tradeViews := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		tradeViews = append(tradeViews, tradeView{
			BlockNumber: t.BlockNumber,
			LogIndex:    t.LogIndex,
			SellAmount:  amountString(t.SellAmount),
			BuyAmount:   amountString(t.BuyAmount),
			TxHash:      t.TxHash.Hex(),
		})
	}
	return orderView{
		ID:                 o.ID,
		Kind:               string(o.Kind),
		Status:             string(o.Status),
		SellToken:          o.SellToken.Hex(),
		BuyToken:           o.BuyToken.Hex(),
		SellAmount:         amountString(o.SellAmount),
		BuyAmount:          amountString(o.BuyAmount),
		ExecutedSellAmount: amountString(o.ExecutedSellAmount),
		ExecutedBuyAmount:  amountString(o.ExecutedBuyAmount),
		ValidTo:            o.ValidTo,
		Trades:             tradeViews,
	}
}

func amountString(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}
