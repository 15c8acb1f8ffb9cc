package main

import (
	"fmt"
	"os"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const (
	normalizeApplyListing = "apply-listing"
	normalizeCompactDates = "compact-dates"
)

func normalizeCmd() *cobra.Command {
	var (
		mode     string
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "normalize <input.csv> <output.csv>",
		Short: "Convert the TWSE apply-listing export or reformat compact dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			records, err := services.ReadRecords(file, encoding)
			file.Close()
			if err != nil {
				return err
			}

			var (
				table models.Table
				stats services.ConversionStats
			)
			switch mode {
			case normalizeApplyListing:
				table, stats = services.ConvertApplyListing(records)
			case normalizeCompactDates:
				source := services.TableFromRecords(records)
				table, stats = services.ReformatCompactDates(&source)
			default:
				return fmt.Errorf("unknown normalize mode %q", mode)
			}

			if err := services.WriteTableFile(args[1], table, true); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"mode":          mode,
				"rows_read":     stats.RowsRead,
				"rows_written":  stats.RowsWritten,
				"rows_skipped":  stats.RowsSkipped,
				"date_failures": stats.DateFailures,
			}).Info("Normalization written")
			return nil
		},
	}
	cmd.Flags().StringVar(&mode, "mode", normalizeCompactDates, "apply-listing or compact-dates")
	cmd.Flags().StringVar(&encoding, "encoding", services.EncodingAuto, "input encoding")
	return cmd
}

func filterCmd() *cobra.Command {
	var (
		keywords []string
		year     int
		encoding string
	)
	cmd := &cobra.Command{
		Use:   "filter <input.csv> <output.csv>",
		Short: "Drop withdrawn or rejected applications by remark keyword",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keyword") {
				keywords = cfg.Unified.Output.RemarkKeywords
			}
			table, err := services.ReadTableFile(args[0], encoding)
			if err != nil {
				return err
			}
			filtered, removed := services.NewRowFilter(keywords, year).Apply(&table)
			if err := services.WriteTableFile(args[1], filtered, true); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"kept": filtered.Len(), "removed": removed}).Info("Filter written")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "remark keyword to drop (repeatable, default: configured keywords)")
	cmd.Flags().IntVar(&year, "year", 0, "keep only applications from this year")
	cmd.Flags().StringVar(&encoding, "encoding", services.EncodingAuto, "input encoding")
	return cmd
}

func markdownCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "markdown <input.csv> [output.md]",
		Short: "Render a CSV as a Markdown table",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cfg.Unified.Output.MarkdownOutput
			if len(args) == 2 {
				output = args[1]
			}
			table, err := services.ReadTableFile(args[0], encoding)
			if err != nil {
				return err
			}
			if err := services.NewReportService().WriteMarkdownFile(output, table); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"output": output, "rows": table.Len()}).Info("Markdown written")
			return nil
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", services.EncodingAuto, "input encoding")
	return cmd
}

func badgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "badge <input.csv> [badge.json]",
		Short: "Write a shields.io endpoint badge with the CSV record count",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := cfg.Unified.Output.BadgeOutput
			if len(args) == 2 {
				output = args[1]
			}
			badge, err := services.NewReportService().WriteBadgeFile(output, args[0])
			if err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{"output": output, "lines": badge.Message}).Info("Badge written")
			return nil
		},
	}
}

func readCmd() *cobra.Command {
	var encoding string
	cmd := &cobra.Command{
		Use:   "read <file>",
		Short: "Print a file decoded to UTF-8",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			decoded, used, err := services.DecodeBytes(data, encoding)
			if err != nil {
				logrus.WithError(err).Warnf("Decoding as %s failed, detecting encoding", encoding)
				decoded, used, err = services.DecodeBytes(data, services.EncodingAuto)
				if err != nil {
					return err
				}
			}
			logrus.WithField("encoding", used).Debug("Decoded file")
			_, err = cmd.OutOrStdout().Write(decoded)
			return err
		},
	}
	cmd.Flags().StringVar(&encoding, "encoding", "big5", "source encoding")
	return cmd
}
