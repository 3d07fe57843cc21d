package models

import (
	"fmt"

	"fjacquet/csv-ingest/internal/logging"
)

// RowError is a row-level failure recorded during ingestion. Line is the
// one-based physical record number in the file.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// IngestionReport summarizes one ingestion run. It is returned to the caller
// and never persisted.
type IngestionReport struct {
	Success     bool                 `json:"success"`
	FilePath    string               `json:"file_path"`
	MappingID   string               `json:"mapping_id"`
	MappingName string               `json:"mapping_used"`
	Processed   int                  `json:"processed"`
	Duplicates  int                  `json:"duplicates"`
	Errors      []RowError           `json:"errors"`
	Stats       *CategorizationStats `json:"categorization"`
}

// AddError records a row-level failure.
func (r *IngestionReport) AddError(line int, err error) {
	r.Errors = append(r.Errors, RowError{Line: line, Message: err.Error()})
}

// ErrorCount returns the number of rows that failed.
func (r *IngestionReport) ErrorCount() int {
	return len(r.Errors)
}

// ErrorMessages returns the row errors formatted for display.
func (r *IngestionReport) ErrorMessages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.String())
	}
	return out
}

// LogSummary logs the run totals.
func (r *IngestionReport) LogSummary(logger logging.Logger) {
	if logger == nil {
		return
	}
	logger.Info("Ingestion summary",
		logging.F(logging.FieldFile, r.FilePath),
		logging.F(logging.FieldMapping, r.MappingName),
		logging.F("processed", r.Processed),
		logging.F("duplicates", r.Duplicates),
		logging.F("errors", r.ErrorCount()),
	)
	if r.Stats != nil {
		r.Stats.LogSummary(logger, r.MappingName)
	}
}

// NewIngestionReport creates an empty successful report for filePath.
func NewIngestionReport(filePath string) *IngestionReport {
	return &IngestionReport{
		Success:  true,
		FilePath: filePath,
		Errors:   []RowError{},
		Stats:    NewCategorizationStats(),
	}
}
