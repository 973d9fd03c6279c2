package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/safeswap/safeswap-daemon/internal/config"
)

var svc *services

func main() {
	app := cli.NewApp()

	app.Version = "0.1.0"
	app.Name = "safeswap"
	app.Usage = "Place swap orders on behalf of a Safe and coordinate their signing"
	app.Commands = append(
		app.Commands,
		&order,
		&safe,
		&status,
		&balance,
	)
	app.Before = func(*cli.Context) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

		var err error
		svc, err = newServices()
		return err
	}
	app.After = func(*cli.Context) error {
		if svc != nil {
			svc.close()
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		fatal(err)
	}
}

func printRespJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}

	fmt.Println(string(jsonBytes))
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[safeswap] %v\n", err)
	}
	if svc != nil {
		svc.close()
	}
	os.Exit(1)
}
