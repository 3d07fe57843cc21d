package categorizer

import (
	"context"
	"runtime"
	"sync"

	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
)

// BatchResult is the outcome for one transaction of a batch.
type BatchResult struct {
	TransactionID string
	Result        models.CategorizationResult
	Applied       bool
	Err           error
}

// BatchProcessor categorizes independent transactions with a bounded pool of
// workers. Each worker only writes the row of its own transaction.
type BatchProcessor struct {
	engine  *Engine
	applier *Applier
	workers int
	logger  logging.Logger
}

// NewBatchProcessor creates a processor. A non-positive worker count uses
// the number of CPUs.
func NewBatchProcessor(engine *Engine, applier *Applier, workers int, logger logging.Logger) *BatchProcessor {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	logger = loggerOrDefault(logger)
	return &BatchProcessor{engine: engine, applier: applier, workers: workers, logger: logger}
}

// Workers returns the size of the pool.
func (p *BatchProcessor) Workers() int {
	return p.workers
}

type indexedTransaction struct {
	index int
	tx    *models.Transaction
}

// Recategorize categorizes txs and applies accepted results. Results keep the
// order of txs. Transactions not reached before ctx is done carry ctx.Err().
func (p *BatchProcessor) Recategorize(ctx context.Context, txs []models.Transaction, catalogue *Catalogue) []BatchResult {
	results := make([]BatchResult, len(txs))
	for i := range txs {
		results[i] = BatchResult{TransactionID: txs[i].ID}
	}
	if len(txs) == 0 {
		return results
	}

	workers := p.workers
	if workers > len(txs) {
		workers = len(txs)
	}

	work := make(chan indexedTransaction)
	done := make([]bool, len(txs))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				results[item.index] = p.process(ctx, item.tx, catalogue)
				done[item.index] = true
			}
		}()
	}

feed:
	for i := range txs {
		select {
		case work <- indexedTransaction{index: i, tx: &txs[i]}:
		case <-ctx.Done():
			break feed
		}
	}
	close(work)
	wg.Wait()

	for i := range results {
		if !done[i] {
			results[i].Err = ctx.Err()
		}
	}

	p.logger.Debug("Batch categorization completed",
		logging.F(logging.FieldCount, len(txs)),
		logging.F(logging.FieldWorkers, workers))
	return results
}

func (p *BatchProcessor) process(ctx context.Context, tx *models.Transaction, catalogue *Catalogue) BatchResult {
	out := BatchResult{TransactionID: tx.ID}
	out.Result = p.engine.Categorize(ctx, *tx, catalogue)
	applied, err := p.applier.Apply(ctx, tx, out.Result)
	if err != nil {
		p.logger.WithError(err).Warn("Failed to store category",
			logging.F(logging.FieldTransactionID, tx.ID))
		out.Err = err
		return out
	}
	out.Applied = applied
	return out
}

// RecordResults adds batch results to stats.
func RecordResults(stats *models.CategorizationStats, results []BatchResult) {
	for _, r := range results {
		if r.Err != nil {
			stats.RecordFailure()
			continue
		}
		stats.Record(r.Result, r.Applied)
	}
}
