package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/fenilmodi00/twipo-dedup/shared"
	"github.com/sirupsen/logrus"
)

const tpexDownloaderName = "TPExDownloader"

// TPExDownloader saves the applying-company CSV from the TPEx site by clicking
// the page's UTF-8 export button in headless Chrome.
type TPExDownloader struct {
	config         shared.DownloadConfig
	serviceMetrics *shared.ServiceMetrics
	logger         *logrus.Entry
}

// NewTPExDownloader creates a new downloader
func NewTPExDownloader(config shared.DownloadConfig) *TPExDownloader {
	return &TPExDownloader{
		config:         config,
		serviceMetrics: shared.NewServiceMetrics(tpexDownloaderName),
		logger:         logrus.WithField("component", tpexDownloaderName),
	}
}

// Download fetches the CSV and returns the path it was saved to.
func (d *TPExDownloader) Download(ctx context.Context) (string, error) {
	startTime := time.Now()
	path, err := d.download(ctx)
	d.serviceMetrics.RecordRequest(err == nil, time.Since(startTime))
	return path, err
}

func (d *TPExDownloader) download(ctx context.Context) (string, error) {
	downloadDir, err := filepath.Abs(d.config.DownloadDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}
	if err := os.MkdirAll(downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("mute-audio", true),
		chromedp.UserAgent(shared.BrowserUserAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, d.config.Timeout)
	defer cancelTimeout()

	completed := make(chan string, 1)
	chromedp.ListenTarget(timeoutCtx, func(ev interface{}) {
		progress, ok := ev.(*browser.EventDownloadProgress)
		if !ok || progress.State != browser.DownloadProgressStateCompleted {
			return
		}
		select {
		case completed <- progress.GUID:
		default:
		}
	})

	d.logger.WithFields(logrus.Fields{
		"url":      d.config.PageURL,
		"selector": d.config.ButtonSelector,
		"dir":      downloadDir,
	}).Info("Downloading TPEx applying-company CSV")

	err = chromedp.Run(timeoutCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllowAndName).
			WithDownloadPath(downloadDir).
			WithEventsEnabled(true),
		chromedp.Navigate(d.config.PageURL),
		chromedp.WaitVisible(d.config.ButtonSelector, chromedp.ByQuery),
		chromedp.Click(d.config.ButtonSelector, chromedp.ByQuery),
	)
	if err != nil && !strings.Contains(err.Error(), "net::ERR_ABORTED") {
		return "", shared.NewServiceError(shared.ErrorCategoryNetwork, "TPEX_DOWNLOAD_FAILED",
			"browser automation failed", tpexDownloaderName, "Download", true, err)
	}

	var guid string
	select {
	case guid = <-completed:
	case <-timeoutCtx.Done():
		return "", shared.NewServiceError(shared.ErrorCategoryTimeout, "TPEX_DOWNLOAD_TIMEOUT",
			"download did not complete in time", tpexDownloaderName, "Download", true, timeoutCtx.Err())
	}

	target := filepath.Join(downloadDir, d.config.TargetFileName)
	if err := moveDownloadedFile(downloadDir, guid, target); err != nil {
		return "", err
	}

	d.logger.WithField("path", target).Info("Saved TPEx CSV")
	return target, nil
}

// moveDownloadedFile renames the GUID-named browser download to target,
// replacing any previous copy.
func moveDownloadedFile(dir, guid, target string) error {
	source := filepath.Join(dir, guid)
	if _, err := os.Stat(source); err != nil {
		return shared.NewServiceError(shared.ErrorCategoryResource, "DOWNLOAD_MISSING",
			fmt.Sprintf("downloaded file %s not found", guid), tpexDownloaderName, "Download", false, err)
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace %s: %w", target, err)
	}
	if err := os.Rename(source, target); err != nil {
		return fmt.Errorf("failed to rename download: %w", err)
	}
	return nil
}
