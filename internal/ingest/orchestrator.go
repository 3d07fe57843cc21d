// Package ingest runs a statement file through mapping resolution, row
// parsing, duplicate detection, persistence and categorization.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"fjacquet/csv-ingest/internal/cache"
	"fjacquet/csv-ingest/internal/categorizer"
	"fjacquet/csv-ingest/internal/csvparser"
	"fjacquet/csv-ingest/internal/dedup"
	"fjacquet/csv-ingest/internal/fileutils"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/mapping"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"
)

// Request describes one file to ingest.
type Request struct {
	FilePath     string
	UserID       string
	CreditCardID string
	DeleteAfter  bool
	// Threshold overrides the applier threshold when positive.
	Threshold float64
}

// Recorder receives per-file outcomes.
type Recorder interface {
	ObserveFile(institution string, duration time.Duration, err error)
	ObserveReport(report *models.IngestionReport)
}

// Dependencies wires an Orchestrator.
type Dependencies struct {
	Storage      store.Storage
	Resolver     *mapping.Resolver
	Parser       *csvparser.RowParser
	Engine       *categorizer.Engine
	Applier      *categorizer.Applier
	KeywordTable []models.CategoryConfig
	// Cache holds the training data quoted in prompts. Optional.
	Cache       cache.Store
	DedupPolicy dedup.Policy
	// Workers > 1 moves categorization into a bounded pool after the row loop.
	Workers  int
	Recorder Recorder
	Logger   logging.Logger
}

// Orchestrator ingests statement files.
type Orchestrator struct {
	storage  store.Storage
	resolver *mapping.Resolver
	parser   *csvparser.RowParser
	engine   *categorizer.Engine
	applier  *categorizer.Applier
	keywords []models.CategoryConfig
	cache    cache.Store
	policy   dedup.Policy
	workers  int
	recorder Recorder
	logger   logging.Logger
}

// NewOrchestrator validates deps and fills defaults.
func NewOrchestrator(deps Dependencies) (*Orchestrator, error) {
	if deps.Storage == nil {
		return nil, fmt.Errorf("ingest: storage is required")
	}
	if deps.Resolver == nil {
		return nil, fmt.Errorf("ingest: mapping resolver is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("ingest: categorization engine is required")
	}
	o := &Orchestrator{
		storage:  deps.Storage,
		resolver: deps.Resolver,
		parser:   deps.Parser,
		engine:   deps.Engine,
		applier:  deps.Applier,
		keywords: deps.KeywordTable,
		cache:    deps.Cache,
		policy:   deps.DedupPolicy,
		workers:  deps.Workers,
		recorder: deps.Recorder,
		logger:   deps.Logger,
	}
	if o.parser == nil {
		o.parser = csvparser.NewRowParser()
	}
	if o.applier == nil {
		o.applier = categorizer.NewApplier(deps.Storage, deps.Storage, 0)
	}
	if o.policy == "" {
		o.policy = dedup.PolicyOccurrence
	}
	if o.logger == nil {
		o.logger = logging.NewLogrusAdapter("info", "text")
	}
	return o, nil
}

// Ingest processes one file. Mapping and catalogue failures are fatal and
// return the error with a report marked unsuccessful. Row failures are
// collected in the report and the run continues. The input is closed on
// every path and removed afterwards when req.DeleteAfter is set.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) (report *models.IngestionReport, err error) {
	start := time.Now()
	report = models.NewIngestionReport(req.FilePath)
	logger := o.logger.WithFields(
		logging.F(logging.FieldFile, req.FilePath),
		logging.F(logging.FieldUser, req.UserID),
		logging.F(logging.FieldCard, req.CreditCardID))

	institution := ""
	defer func() {
		if req.DeleteAfter {
			if rmErr := fileutils.RemoveFile(req.FilePath); rmErr != nil {
				logger.WithError(rmErr).Warn("Failed to remove input file")
			}
		}
		if err != nil {
			report.Success = false
		}
		if o.recorder != nil {
			o.recorder.ObserveFile(institution, time.Since(start), err)
			o.recorder.ObserveReport(report)
		}
	}()

	if strings.TrimSpace(req.UserID) == "" {
		return report, fmt.Errorf("ingest %s: user id is required", req.FilePath)
	}

	resolution, err := o.resolver.Resolve(ctx, req.CreditCardID)
	if err != nil {
		logger.WithError(err).Error("No usable CSV mapping")
		return report, err
	}
	m := resolution.Mapping
	institution = m.Institution
	report.MappingID = m.ID
	report.MappingName = m.Name
	logger = logger.WithFields(
		logging.F(logging.FieldMapping, m.Name),
		logging.F(logging.FieldMappingSource, resolution.Source))

	file, err := fileutils.OpenFile(req.FilePath)
	if err != nil {
		return report, err
	}
	defer func() { _ = file.Close() }()

	fingerprint, err := fileutils.Fingerprint(file)
	if err != nil {
		return report, err
	}
	if _, err = file.Seek(0, io.SeekStart); err != nil {
		return report, fmt.Errorf("rewind %s: %w", req.FilePath, err)
	}

	catalogue, err := o.loadCatalogue(ctx, logger)
	if err != nil {
		return report, err
	}

	reader, err := csvparser.NewReader(file, m)
	if err != nil {
		return report, fmt.Errorf("ingest %s: %w", req.FilePath, err)
	}

	applier := o.applier
	if req.Threshold > 0 {
		applier = applier.WithThreshold(req.Threshold)
	}
	detector := dedup.NewDetector(o.storage, o.policy)
	meta := sourceInfo{file: filepath.Base(req.FilePath), fingerprint: fingerprint}

	var pending []models.Transaction
	for {
		if err = ctx.Err(); err != nil {
			return report, err
		}
		rec, readErr := reader.Next()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			err = fmt.Errorf("ingest %s: %w", req.FilePath, readErr)
			return report, err
		}
		if rec.Err != nil {
			report.AddError(rec.Line, rec.Err)
			continue
		}
		if blank(rec.Row) {
			continue
		}

		tx, dup, rowErr := o.persistRow(ctx, rec, m, req, detector, meta)
		switch {
		case rowErr != nil:
			logger.WithError(rowErr).Debug("Skipping CSV row", logging.F(logging.FieldLine, rec.Line))
			report.AddError(rec.Line, rowErr)
			continue
		case dup:
			report.Duplicates++
			continue
		}
		report.Processed++

		if o.workers > 1 {
			pending = append(pending, *tx)
			continue
		}
		o.categorizeOne(ctx, tx, catalogue, applier, report.Stats, logger)
	}

	if len(pending) > 0 {
		results := categorizer.NewBatchProcessor(o.engine, applier, o.workers, logger).Recategorize(ctx, pending, catalogue)
		categorizer.RecordResults(report.Stats, results)
	}

	report.LogSummary(logger)
	return report, nil
}

type sourceInfo struct {
	file        string
	fingerprint string
}

// persistRow parses, checks and stores one record. dup reports a row that
// was already stored.
func (o *Orchestrator) persistRow(ctx context.Context, rec csvparser.Record, m *models.MappingConfig, req Request, detector *dedup.Detector, meta sourceInfo) (*models.Transaction, bool, error) {
	draft, err := o.parser.Parse(rec.Row, m, req.UserID, req.CreditCardID)
	if err != nil {
		return nil, false, err
	}
	draft.Metadata.SourceFile = meta.file
	draft.Metadata.SourceFingerprint = meta.fingerprint
	draft.Metadata.RowNumber = rec.Line

	decision, err := detector.Check(ctx, &draft)
	if err != nil {
		return nil, false, err
	}
	if decision.Duplicate {
		return nil, true, nil
	}

	tx, err := o.storage.CreateTransaction(ctx, draft)
	if errors.Is(err, store.ErrDuplicateTransaction) {
		return nil, true, nil
	}
	if err != nil {
		detector.Release(draft)
		return nil, false, fmt.Errorf("store transaction: %w", err)
	}
	return tx, false, nil
}

func (o *Orchestrator) categorizeOne(ctx context.Context, tx *models.Transaction, catalogue *categorizer.Catalogue, applier *categorizer.Applier, stats *models.CategorizationStats, logger logging.Logger) {
	result := o.engine.Categorize(ctx, *tx, catalogue)
	applied, err := applier.Apply(ctx, tx, result)
	if err != nil {
		logger.WithError(err).Warn("Failed to store category",
			logging.F(logging.FieldTransactionID, tx.ID))
		stats.RecordFailure()
		return
	}
	stats.Record(result, applied)
}

func (o *Orchestrator) loadCatalogue(ctx context.Context, logger logging.Logger) (*categorizer.Catalogue, error) {
	training, err := categorizer.LoadTrainingData(ctx, o.cache)
	if err != nil {
		logger.WithError(err).Warn("Ignoring training data")
		training = nil
	}
	catalogue, err := categorizer.LoadCatalogue(ctx, o.storage, o.keywords, training)
	if err != nil {
		return nil, err
	}
	return catalogue, nil
}

// Catalogue loads the category catalogue as used by Ingest.
func (o *Orchestrator) Catalogue(ctx context.Context) (*categorizer.Catalogue, error) {
	return o.loadCatalogue(ctx, o.logger)
}

func blank(row models.RawRow) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
