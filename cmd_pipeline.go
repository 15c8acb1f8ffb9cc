package main

import (
	"context"
	"fmt"
	"time"

	"github.com/fenilmodi00/twipo-dedup/database"
	"github.com/fenilmodi00/twipo-dedup/handlers"
	"github.com/fenilmodi00/twipo-dedup/jobs"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func downloadCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the TPEx applying-company CSV with headless Chrome",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			downloadConfig := cfg.Unified.Download
			if dir != "" {
				downloadConfig.DownloadDir = dir
			}
			path, err := services.NewTPExDownloader(downloadConfig).Download(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "download directory (default: DOWNLOAD_DIR)")
	return cmd
}

func fetchAuctionsCmd() *cobra.Command {
	var (
		url    string
		output string
	)
	cmd := &cobra.Command{
		Use:   "fetch-auctions",
		Short: "Fetch the TWSE auction announcements as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fetched, err := services.NewAuctionFetcher(cfg.Unified.Fetch).Load(cmd.Context(), url)
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"origin": fetched.Origin,
				"source": fetched.Source,
				"rows":   fetched.Rows,
			}).Info("Auction dataset loaded")

			if output == "" {
				return services.WriteTable(cmd.OutOrStdout(), fetched.Table, false)
			}
			return services.WriteTableFile(output, fetched.Table, false)
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "auction URL (default: AUCTION_URL)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path (default: stdout)")
	return cmd
}

func runCmd() *cobra.Command {
	var skipDownload bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the daily pipeline: download, filter, deduplicate and publish",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			job, cleanup, err := newDailyJob(skipDownload)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := job.Run(cmd.Context())
			job.Engine.GetMetrics().LogSummary()
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().BoolVar(&skipDownload, "skip-download", false, "use the existing IPO_INPUT_PATH instead of downloading")
	return cmd
}

func serveCmd() *cobra.Command {
	var schedule time.Duration
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the deduplication REST API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openRunStore()
			if err != nil {
				return err
			}
			defer database.Close()

			engine := services.NewDeduplicationEngine(cfg.Unified.Dedup, services.NewLogSink())
			fetcher := services.NewAuctionFetcher(cfg.Unified.Fetch)
			auctions := services.NewAuctionCache(fetcher, cfg.Unified.Fetch.MemoryTTL)

			dedupHandler := handlers.NewDedupHandler(engine, auctions, nil)
			runsHandler := handlers.NewRunsHandler(nil)
			if store != nil {
				dedupHandler.Recorder = store
				runsHandler.History = store
			}
			metricsHandler := handlers.NewMetricsHandler(database.DB, engine.GetMetrics(), fetcher.GetMetrics())

			if schedule > 0 {
				job := jobs.NewDailyDedupJob(*cfg.Unified, services.NewTPExDownloader(cfg.Unified.Download), fetcher, engine, nil)
				if store != nil {
					job.Recorder = store
				}
				go runScheduled(ctx, job, schedule)
			}

			app := fiber.New(fiber.Config{DisableStartupMessage: true})
			app.Use(logger.New())
			app.Use(cors.New())
			handlers.RegisterRoutes(app, dedupHandler, runsHandler, metricsHandler)
			handlers.RegisterCacheRoutes(app, handlers.NewCacheHandler(auctions))

			go func() {
				<-ctx.Done()
				if err := app.Shutdown(); err != nil {
					logrus.WithError(err).Warn("Server shutdown failed")
				}
			}()

			logrus.Infof("Server starting on port %s", cfg.ServerPort)
			return app.Listen(":" + cfg.ServerPort)
		},
	}
	cmd.Flags().DurationVar(&schedule, "schedule", 0, "also run the daily pipeline at this interval (0 disables)")
	return cmd
}

func runScheduled(ctx context.Context, job *jobs.DailyDedupJob, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := job.Run(ctx); err != nil {
			logrus.WithError(err).Error("Scheduled pipeline run failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func newDailyJob(skipDownload bool) (*jobs.DailyDedupJob, func(), error) {
	store, err := openRunStore()
	if err != nil {
		return nil, nil, err
	}

	engine := services.NewDeduplicationEngine(cfg.Unified.Dedup, services.NewLogSink())
	job := jobs.NewDailyDedupJob(*cfg.Unified, nil, services.NewAuctionFetcher(cfg.Unified.Fetch), engine, nil)
	if !skipDownload {
		job.Downloader = services.NewTPExDownloader(cfg.Unified.Download)
	}
	if store != nil {
		job.Recorder = store
	}
	return job, database.Close, nil
}

// openRunStore connects and migrates when DATABASE_URL is set. It returns a
// nil store otherwise.
func openRunStore() (*services.RunStore, error) {
	if cfg.DatabaseURL == "" {
		logrus.Info("DATABASE_URL not set, run history disabled")
		return nil, nil
	}
	if err := database.ConnectWithConfig(cfg.DatabaseURL, &cfg.Unified.Database); err != nil {
		return nil, err
	}
	if err := database.Migrate(database.DB); err != nil {
		database.Close()
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Unified.Database.PingTimeout)
	defer cancel()
	if _, err := database.ValidateSchema(ctx, database.DB); err != nil {
		database.Close()
		return nil, err
	}
	return services.NewRunStore(database.DB), nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	data, err := jsonIndent(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
