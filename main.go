package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fenilmodi00/twipo-dedup/config"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var cfg *config.Config

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "twipo",
		Short:         "Taiwan IPO list deduplication and publishing tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.LoadConfig()
			if logLevel != "" {
				cfg.Unified.Logging.Level = logLevel
			}
			shared.ConfigureLogging(cfg.Unified.Logging)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")

	root.AddCommand(
		dedupCmd(),
		normalizeCmd(),
		filterCmd(),
		markdownCmd(),
		badgeCmd(),
		readCmd(),
		downloadCmd(),
		fetchAuctionsCmd(),
		runCmd(),
		serveCmd(),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		var serviceErr *shared.ServiceError
		if errors.As(err, &serviceErr) {
			serviceErr.LogError()
		} else {
			logrus.WithError(err).Error("twipo failed")
		}
		stop()
		os.Exit(1)
	}
}
