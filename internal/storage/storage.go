// Package storage defines where exported reports are kept.
package storage

import (
	"context"
	"io"
	"path"
	"strings"
)

// ContentTypeXLSX is the media type of exported workbooks.
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SaveInput describes a report to store.
type SaveInput struct {
	Key         string
	Body        io.Reader
	ContentType string
}

// ReportStore persists exported report files.
type ReportStore interface {
	// Save stores the report and returns its location.
	Save(ctx context.Context, input SaveInput) (string, error)
	Load(ctx context.Context, key string) ([]byte, error)
}

// ReportKey is the storage key of a run's workbook.
func ReportKey(runID string) string {
	return path.Join("reconciliations", strings.TrimSpace(runID)+".xlsx")
}
