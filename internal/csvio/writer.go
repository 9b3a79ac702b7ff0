// Package csvio serializes a TradeTable to the local CSV artifact.
// The output is deterministic: the same table written to the same path
// produces a byte-identical file, and an existing file at the destination is
// overwritten without confirmation.
package csvio

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/lucasvieira/go-trades-etl/internal/config"
	pkgerrors "github.com/lucasvieira/go-trades-etl/internal/errors"
	"github.com/lucasvieira/go-trades-etl/internal/models"
)

const componentName = "writer"

// filenamePattern is the date-stamped default artifact name.
const filenamePattern = "api_trades_%s.csv"

// DefaultFilename returns the date-stamped artifact filename for the given time.
func DefaultFilename(now time.Time) string {
	return fmt.Sprintf(filenamePattern, now.Format("2006-01-02"))
}

// ArtifactPath resolves the artifact destination from the CSV configuration,
// using the date-stamped default when no explicit filename is configured.
func ArtifactPath(cfg config.CSVConfig, now time.Time) string {
	filename := cfg.Filename
	if filename == "" {
		filename = DefaultFilename(now)
	}
	return filepath.Join(cfg.OutputDir, filename)
}

// WriteTable serializes the table to a CSV file at path. The file has one
// header line matching the table's column order followed by one line per row.
// Failures are IO-classified; a partially written file is left in place, the
// run has no cleanup step.
func WriteTable(table *models.TradeTable, path string) error {
	if table == nil {
		return pkgerrors.New(
			fmt.Errorf("table must not be nil"),
			pkgerrors.ErrorTypeSchema, componentName, "write_table")
	}

	file, err := os.Create(path)
	if err != nil {
		return pkgerrors.New(
			fmt.Errorf("failed to create %s: %w", path, err),
			pkgerrors.ErrorTypeIO, componentName, "write_table")
	}

	rows := table.Rows()
	if err := gocsv.MarshalFile(&rows, file); err != nil {
		file.Close()
		return pkgerrors.New(
			fmt.Errorf("failed to write %s: %w", path, err),
			pkgerrors.ErrorTypeIO, componentName, "write_table")
	}

	if err := file.Close(); err != nil {
		return pkgerrors.New(
			fmt.Errorf("failed to close %s: %w", path, err),
			pkgerrors.ErrorTypeIO, componentName, "write_table")
	}

	return nil
}
