package categorizer

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"
)

// Applier persists categorization results that reach the confidence
// threshold.
type Applier struct {
	transactions store.TransactionStore
	categories   store.CategoryStore
	threshold    float64
}

// NewApplier creates an Applier. A non-positive threshold uses
// models.DefaultConfidenceThreshold.
func NewApplier(transactions store.TransactionStore, categories store.CategoryStore, threshold float64) *Applier {
	if threshold <= 0 {
		threshold = models.DefaultConfidenceThreshold
	}
	return &Applier{transactions: transactions, categories: categories, threshold: threshold}
}

// Threshold returns the minimum confidence that gets persisted.
func (a *Applier) Threshold() float64 {
	return a.threshold
}

// WithThreshold returns a copy of the Applier using another threshold.
func (a *Applier) WithThreshold(threshold float64) *Applier {
	return NewApplier(a.transactions, a.categories, threshold)
}

// Apply stores the result on tx when it is accepted and reports whether it
// was. tx is updated in place on success.
func (a *Applier) Apply(ctx context.Context, tx *models.Transaction, result models.CategorizationResult) (bool, error) {
	if tx == nil || !result.Accepted(a.threshold) {
		return false, nil
	}

	confidence := result.Confidence
	update := store.CategoryUpdate{
		CategoryID:        result.CategoryID,
		IsCategorizedByAI: true,
		AIConfidence:      &confidence,
	}
	if err := a.transactions.UpdateTransactionCategory(ctx, tx.ID, update); err != nil {
		return false, fmt.Errorf("apply category to transaction %s: %w", tx.ID, err)
	}

	tx.CategoryID = update.CategoryID
	tx.IsCategorizedByAI = update.IsCategorizedByAI
	tx.AIConfidence = update.AIConfidence
	return true, nil
}

// ApplyManualCategory sets a category chosen by a person. The AI flag and
// confidence are cleared.
func (a *Applier) ApplyManualCategory(ctx context.Context, transactionID, categoryName string) (*models.Transaction, error) {
	cat, err := a.categories.FindCategoryByName(ctx, categoryName)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("category %q: %w", categoryName, err)
		}
		return nil, fmt.Errorf("find category %q: %w", categoryName, err)
	}
	tx, err := a.transactions.FindTransaction(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("find transaction %s: %w", transactionID, err)
	}

	id := cat.ID
	update := store.CategoryUpdate{CategoryID: &id}
	if err := a.transactions.UpdateTransactionCategory(ctx, tx.ID, update); err != nil {
		return nil, fmt.Errorf("correct category of transaction %s: %w", tx.ID, err)
	}
	tx.CategoryID = &id
	tx.IsCategorizedByAI = false
	tx.AIConfidence = nil
	return tx, nil
}
