// Package export writes persisted transactions to CSV.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"fjacquet/csv-ingest/internal/dateutils"
	"fjacquet/csv-ingest/internal/fileutils"
	"fjacquet/csv-ingest/internal/logging"
	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/gocarina/gocsv"
)

// Row is the exported form of a transaction.
type Row struct {
	ID                string `csv:"id"`
	Date              string `csv:"transaction_date"`
	Description       string `csv:"description"`
	Establishment     string `csv:"establishment"`
	Amount            string `csv:"amount"`
	Category          string `csv:"category"`
	IsCategorizedByAI bool   `csv:"is_categorized_by_ai"`
	AIConfidence      string `csv:"ai_confidence"`
	Institution       string `csv:"institution"`
	Mapping           string `csv:"csv_mapping"`
	SourceFile        string `csv:"source_file"`
}

// Request selects the transactions to export.
type Request struct {
	UserID       string
	CreditCardID string
	OutputPath   string
}

// Exporter writes transactions with a configurable delimiter.
type Exporter struct {
	transactions store.TransactionStore
	categories   store.CategoryStore
	delimiter    rune
	logger       logging.Logger
}

// NewExporter creates an Exporter. A zero delimiter uses ','.
func NewExporter(transactions store.TransactionStore, categories store.CategoryStore, delimiter rune, logger logging.Logger) *Exporter {
	if delimiter == 0 {
		delimiter = ','
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Exporter{transactions: transactions, categories: categories, delimiter: delimiter, logger: logger}
}

// Export writes the selected transactions to req.OutputPath and returns how
// many rows were written.
func (e *Exporter) Export(ctx context.Context, req Request) (int, error) {
	rows, err := e.Rows(ctx, req)
	if err != nil {
		return 0, err
	}

	file, err := fileutils.CreateFile(req.OutputPath)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			e.logger.WithError(cerr).Warn("Failed to close file")
		}
	}()

	if err := WriteRows(file, rows, e.delimiter); err != nil {
		return 0, err
	}

	e.logger.Info("Successfully wrote transactions to CSV file",
		logging.F(logging.FieldOutputFile, req.OutputPath),
		logging.F(logging.FieldCount, len(rows)),
		logging.F(logging.FieldDelimiter, string(e.delimiter)))
	return len(rows), nil
}

// Rows loads the selected transactions in insertion order.
func (e *Exporter) Rows(ctx context.Context, req Request) ([]Row, error) {
	txs, err := e.transactions.ListTransactions(ctx, store.TransactionFilter{
		UserID:       req.UserID,
		CreditCardID: req.CreditCardID,
	})
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	categories, err := e.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	rows := make([]Row, 0, len(txs))
	for _, tx := range txs {
		rows = append(rows, toRow(tx, names))
	}
	return rows, nil
}

func toRow(tx models.Transaction, categoryNames map[string]string) Row {
	row := Row{
		ID:                tx.ID,
		Date:              dateutils.ToISODate(tx.Date),
		Description:       tx.Description,
		Establishment:     tx.Establishment,
		Amount:            tx.Amount.StringFixed(2),
		IsCategorizedByAI: tx.IsCategorizedByAI,
		Institution:       tx.Metadata.Institution,
		Mapping:           tx.Metadata.MappingName,
		SourceFile:        tx.Metadata.SourceFile,
	}
	if tx.IsCategorized() {
		row.Category = categoryNames[*tx.CategoryID]
	}
	if tx.AIConfidence != nil {
		row.AIConfidence = strconv.FormatFloat(*tx.AIConfidence, 'f', 2, 64)
	}
	return row
}

// WriteRows marshals rows with a header line using delimiter.
func WriteRows(w io.Writer, rows []Row, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if err := gocsv.MarshalCSV(rows, gocsv.NewSafeCSVWriter(csvWriter)); err != nil {
		return fmt.Errorf("error writing CSV data: %w", err)
	}
	return nil
}
