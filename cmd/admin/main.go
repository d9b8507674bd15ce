// Command admin runs the Admin Service: broadcast lifecycle, targeting,
// the lease-elected schedulers, the outbox relay, and DLT administration.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"github.com/webitel/broadcast-delivery-service/internal/app"
	"github.com/webitel/broadcast-delivery-service/internal/config"
)

const serviceName = "broadcast-admin-service"

var (
	version    = "0.0.0"
	commit     = "hash"
	commitDate = time.Now().String()
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cliApp := &cli.App{
		Name:    serviceName,
		Usage:   "Broadcast messaging admin service",
		Version: version,
		Commands: []*cli.Command{
			serverCmd(),
		},
	}
	return cliApp.Run(os.Args)
}

func serverCmd() *cli.Command {
	return &cli.Command{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Run the admin service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config_file", Usage: "Path to the configuration file"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}

			fxApp := app.NewAdminApp(cfg)
			if err := fxApp.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("admin: shutting down")
			return fxApp.Stop(context.Background())
		},
	}
}
