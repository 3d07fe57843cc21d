package ingest

import (
	"context"

	"fjacquet/csv-ingest/internal/fileutils"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// DirectoryRequest describes a directory of statement files.
type DirectoryRequest struct {
	InputDir     string
	UserID       string
	CreditCardID string
	DeleteAfter  bool
	Threshold    float64
}

// FileResult is the outcome of one file of a directory run.
type FileResult struct {
	FilePath string
	Report   *models.IngestionReport
	Err      error
}

// IngestDirectory ingests every .csv file of the directory in name order.
// A failing file does not stop the run.
func (o *Orchestrator) IngestDirectory(ctx context.Context, req DirectoryRequest) ([]FileResult, error) {
	files, err := fileutils.ListFilesWithExtension(req.InputDir, ".csv")
	if err != nil {
		return nil, err
	}

	o.logger.Info("Ingesting directory",
		logging.F(logging.FieldFile, req.InputDir),
		logging.F(logging.FieldCount, len(files)))

	results := make([]FileResult, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		report, err := o.Ingest(ctx, Request{
			FilePath:     path,
			UserID:       req.UserID,
			CreditCardID: req.CreditCardID,
			DeleteAfter:  req.DeleteAfter,
			Threshold:    req.Threshold,
		})
		if err != nil {
			o.logger.WithError(err).Warn("File ingestion failed", logging.F(logging.FieldFile, path))
		}
		results = append(results, FileResult{FilePath: path, Report: report, Err: err})
	}
	return results, nil
}

// Totals sums the processed, duplicate and error counts of results.
func Totals(results []FileResult) (processed, duplicates, errors int) {
	for _, r := range results {
		if r.Report == nil {
			continue
		}
		processed += r.Report.Processed
		duplicates += r.Report.Duplicates
		errors += r.Report.ErrorCount()
	}
	return processed, duplicates, errors
}
