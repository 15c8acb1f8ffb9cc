package jobs

import (
	"context"
	"time"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/fenilmodi00/twipo-dedup/services"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/sirupsen/logrus"
)

// Downloader fetches the IPO CSV and returns its local path.
type Downloader interface {
	Download(ctx context.Context) (string, error)
}

// AuctionSource supplies the auction table.
type AuctionSource interface {
	Fetch(ctx context.Context) (*services.AuctionFetchResult, error)
}

// RunRecorder persists completed runs.
type RunRecorder interface {
	SaveRun(ctx context.Context, result *models.DedupResult, auctionOrigin string) error
}

// JobReport summarizes one pipeline execution.
type JobReport struct {
	InputPath     string              `json:"input_path"`
	OutputPath    string              `json:"output_path"`
	FilteredRows  int                 `json:"filtered_rows"`
	ReformatCells int                 `json:"reformat_cells"`
	AuctionOrigin string              `json:"auction_origin"`
	Summary       models.RunSummary   `json:"summary"`
	Badge         *services.LineBadge `json:"badge,omitempty"`
	Duration      time.Duration       `json:"duration"`
	Result        *models.DedupResult `json:"-"`
}

type DailyDedupJob struct {
	Config     shared.UnifiedConfiguration
	Downloader Downloader
	Auctions   AuctionSource
	Engine     *services.DeduplicationEngine
	Reports    *services.ReportService
	Recorder   RunRecorder
}

func NewDailyDedupJob(config shared.UnifiedConfiguration, downloader Downloader, auctions AuctionSource, engine *services.DeduplicationEngine, recorder RunRecorder) *DailyDedupJob {
	return &DailyDedupJob{
		Config:     config,
		Downloader: downloader,
		Auctions:   auctions,
		Engine:     engine,
		Reports:    services.NewReportService(),
		Recorder:   recorder,
	}
}

// Run downloads (when a downloader is set) and deduplicates the IPO CSV, then
// writes the CSV, Markdown and badge outputs and persists the run.
func (j *DailyDedupJob) Run(ctx context.Context) (*JobReport, error) {
	logrus.Info("Starting Daily Dedup Job")
	startTime := time.Now()
	report := &JobReport{InputPath: j.Config.Output.IPOInputPath, OutputPath: j.Config.Output.DedupOutput}

	if j.Downloader != nil {
		path, err := j.Downloader.Download(ctx)
		if err != nil {
			logrus.WithError(err).Warnf("Download failed, using existing %s", report.InputPath)
		} else {
			report.InputPath = path
		}
	}

	source, err := services.ReadTableFile(report.InputPath, services.EncodingAuto)
	if err != nil {
		logrus.Errorf("Failed to run Daily Dedup Job: %v", err)
		return nil, err
	}

	reformatted, conversion := services.ReformatCompactDates(&source)
	report.ReformatCells = conversion.CellsRewritten

	filtered, removed := services.NewRowFilter(j.Config.Output.RemarkKeywords, 0).Apply(&reformatted)
	report.FilteredRows = removed
	logrus.Infof("Filtered %d withdrawn or rejected applications", removed)

	fetched, err := j.Auctions.Fetch(ctx)
	if err != nil {
		logrus.Errorf("Failed to run Daily Dedup Job: auction data unavailable: %v", err)
		return nil, err
	}
	report.AuctionOrigin = fetched.Origin

	result, err := j.Engine.Resolve(&filtered, &fetched.Table)
	if err != nil {
		logrus.Errorf("Failed to run Daily Dedup Job: %v", err)
		return nil, err
	}
	report.Result = result
	report.Summary = result.Summary(fetched.Origin)

	if err := services.WriteTableFile(report.OutputPath, result.Output, true); err != nil {
		return nil, err
	}

	if path := j.Config.Output.MarkdownOutput; path != "" {
		if err := j.Reports.WriteMarkdownFile(path, result.Output); err != nil {
			logrus.WithError(err).Warn("Failed to write markdown output")
		}
	}

	if path := j.Config.Output.BadgeOutput; path != "" {
		badge, err := j.Reports.WriteBadgeFile(path, report.OutputPath)
		if err != nil {
			logrus.WithError(err).Warn("Failed to write badge output")
		} else {
			report.Badge = &badge
		}
	}

	if j.Recorder != nil {
		if err := j.Recorder.SaveRun(ctx, result, fetched.Origin); err != nil {
			logrus.WithError(err).Warn("Failed to persist resolution run")
		}
	}

	report.Duration = time.Since(startTime)
	logrus.WithFields(logrus.Fields{
		"input":            report.InputPath,
		"output":           report.OutputPath,
		"filtered":         report.FilteredRows,
		"duplicate_groups": result.DuplicateGroups,
		"removed":          result.Removed,
		"ambiguous_groups": result.AmbiguousGroups,
		"auction_origin":   report.AuctionOrigin,
		"duration":         report.Duration,
	}).Info("Daily Dedup Job completed")

	return report, nil
}
