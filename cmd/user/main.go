// Command user runs the User Service: the connection registry, the SSE and
// gRPC delivery surfaces, the orchestrator consumer, and the stale-reap
// scheduler.
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

const serviceName = "broadcast-user-service"

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
		Usage:   "Broadcast messaging user delivery service",
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
		Usage:   "Run the user delivery service",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config_file", Usage: "Path to the configuration file"},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config_file"))
			if err != nil {
				return err
			}

			fxApp := app.NewUserApp(cfg)
			if err := fxApp.Start(c.Context); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop

			slog.Info("user: shutting down")
			return fxApp.Stop(context.Background())
		},
	}
}
