package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func dedupCmd() *cobra.Command {
	var (
		auction      string
		tieBreak     string
		windowMonths int
		quoteAll     bool
		encoding     string
		reportPath   string
	)
	cmd := &cobra.Command{
		Use:   "dedup <ipo.csv> <output.csv>",
		Short: "Remove duplicate applications using auction evidence",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dedupConfig := cfg.Unified.Dedup
			if cmd.Flags().Changed("tie-break") {
				dedupConfig.TieBreak = models.TieBreakPolicy(tieBreak)
			}
			if cmd.Flags().Changed("window-months") {
				if windowMonths <= 0 {
					return fmt.Errorf("window-months must be positive, got %d", windowMonths)
				}
				dedupConfig.WindowMonths = windowMonths
			}

			ipo, err := services.ReadTableFile(args[0], encoding)
			if err != nil {
				return err
			}

			fetched, err := services.NewAuctionFetcher(cfg.Unified.Fetch).Load(cmd.Context(), auction)
			if err != nil {
				return err
			}

			engine := services.NewDeduplicationEngine(dedupConfig, services.NewLogSink())
			result, err := engine.Resolve(&ipo, &fetched.Table)
			if err != nil {
				return err
			}

			if err := services.WriteTableFile(args[1], result.Output, quoteAll); err != nil {
				return err
			}

			if reportPath != "" {
				if err := writeJSONFile(reportPath, result); err != nil {
					return err
				}
			}

			summary := result.Summary(fetched.Origin)
			logrus.WithFields(logrus.Fields{
				"output":  args[1],
				"rows":    summary.OutputRows,
				"removed": summary.Removed,
				"origin":  summary.AuctionOrigin,
			}).Info("Deduplication written")
			return nil
		},
	}
	cmd.Flags().StringVar(&auction, "auction", "", "auction CSV file or URL (default: configured auction URL)")
	cmd.Flags().StringVar(&tieBreak, "tie-break", "", "closest-auction, newest-application or keep-all")
	cmd.Flags().IntVar(&windowMonths, "window-months", 0, "auction window in months")
	cmd.Flags().BoolVar(&quoteAll, "quote-all", false, "quote every output cell")
	cmd.Flags().StringVar(&encoding, "encoding", services.EncodingAuto, "input encoding (auto, utf-8, big5, ...)")
	cmd.Flags().StringVar(&reportPath, "report", "", "write the per-group decisions as JSON to this path")
	return cmd
}

func jsonIndent(v interface{}) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

func writeJSONFile(path string, v interface{}) error {
	data, err := jsonIndent(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
