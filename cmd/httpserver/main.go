package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/ruteri/confidential-trials/cmd/flags"
	"github.com/ruteri/confidential-trials/httpserver"
)

func main() {
	app := &cli.App{
		Name:  "trials-server",
		Usage: "Serve the confidential trials orchestrator API",
		Flags: append(append(append([]cli.Flag{}, flags.ChainFlags...), flags.ServerFlags...), flags.LogFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			stack, err := flags.BuildStack(cCtx, logger, nil, nil)
			if err != nil {
				logger.Error("Failed to set up orchestrator", "err", err)
				return err
			}
			defer stack.Close()

			// Initialization failures stay visible on the banner; the API still starts.
			initCtx, cancel := context.WithTimeout(cCtx.Context, 2*time.Minute)
			if err := stack.Orchestrator.Initialize(initCtx); err != nil {
				logger.Warn("Orchestrator initialization failed", "err", err)
			}
			cancel()

			cfg := flags.ConfigureServer(cCtx, logger)
			handler := httpserver.NewHandler(stack.Orchestrator, logger)
			server, err := httpserver.New(cfg, handler, stack.Metrics)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
