package services

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fenilmodi00/twipo-dedup/models"
	"github.com/sirupsen/logrus"
)

// LineBadge is a shields.io endpoint payload.
type LineBadge struct {
	SchemaVersion int    `json:"schemaVersion"`
	Label         string `json:"label"`
	Message       string `json:"message"`
	Color         string `json:"color"`
}

// NewLineBadge creates the badge reporting a line count.
func NewLineBadge(lines int) LineBadge {
	return LineBadge{SchemaVersion: 1, Label: "Lines", Message: strconv.Itoa(lines), Color: "blue"}
}

// ReportService renders tables for publication.
type ReportService struct {
	logger *logrus.Entry
}

// NewReportService creates a new report service
func NewReportService() *ReportService {
	return &ReportService{logger: logrus.WithField("component", "ReportService")}
}

// RenderMarkdown renders the table as a GitHub-flavored Markdown table.
func (s *ReportService) RenderMarkdown(table models.Table) string {
	width := len(table.Header)
	for _, row := range table.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	if width == 0 {
		return ""
	}

	var builder strings.Builder
	writeMarkdownRow(&builder, table.Header, width)

	builder.WriteString("|")
	for i := 0; i < width; i++ {
		builder.WriteString(" --- |")
	}
	builder.WriteString("\n")

	for _, row := range table.Rows {
		writeMarkdownRow(&builder, row, width)
	}
	return builder.String()
}

func writeMarkdownRow(builder *strings.Builder, cells []string, width int) {
	builder.WriteString("|")
	for i := 0; i < width; i++ {
		cell := ""
		if i < len(cells) {
			cell = escapeMarkdownCell(cells[i])
		}
		builder.WriteString(" ")
		builder.WriteString(cell)
		builder.WriteString(" |")
	}
	builder.WriteString("\n")
}

func escapeMarkdownCell(cell string) string {
	cell = strings.TrimSpace(cell)
	cell = strings.ReplaceAll(cell, "|", `\|`)
	cell = strings.ReplaceAll(cell, "\r\n", "<br>")
	return strings.ReplaceAll(cell, "\n", "<br>")
}

// CountRecords counts CSV records, header included, in a UTF-8 stream.
func (s *ReportService) CountRecords(r io.Reader) (int, error) {
	records, err := ReadRecords(r, "utf-8")
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// WriteMarkdownFile renders the table into path.
func (s *ReportService) WriteMarkdownFile(path string, table models.Table) error {
	if err := os.WriteFile(path, []byte(s.RenderMarkdown(table)), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown %s: %w", path, err)
	}
	s.logger.WithFields(logrus.Fields{"path": path, "rows": table.Len()}).Info("Wrote markdown table")
	return nil
}

// WriteBadgeFile writes the line badge for csvPath into badgePath.
func (s *ReportService) WriteBadgeFile(badgePath, csvPath string) (LineBadge, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return LineBadge{}, fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer file.Close()

	lines, err := s.CountRecords(file)
	if err != nil {
		return LineBadge{}, err
	}

	badge := NewLineBadge(lines)
	data, err := json.MarshalIndent(badge, "", "    ")
	if err != nil {
		return LineBadge{}, err
	}
	if err := os.WriteFile(badgePath, data, 0o644); err != nil {
		return LineBadge{}, fmt.Errorf("failed to write badge %s: %w", badgePath, err)
	}

	s.logger.WithFields(logrus.Fields{"path": badgePath, "lines": lines}).Info("Wrote line badge")
	return badge, nil
}
