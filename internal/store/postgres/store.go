package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"fjacquet/csv-ingest/internal/models"
	"fjacquet/csv-ingest/internal/store"

	"github.com/google/uuid"
)

// Store implements store.Storage on a PostgreSQL database.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore wraps an open database. Call EnsureSchema before first use.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the pool.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

// --- mappings ---

const mappingColumns = `id, credit_card_id, name, institution, column_mapping, date_format, amount_format, delimiter, has_header, encoding, is_active, created_at, updated_at`

func scanMapping(row rowScanner) (*models.MappingConfig, error) {
	var m models.MappingConfig
	var cardID sql.NullString
	var columnsRaw, formatsRaw, amountRaw []byte
	if err := row.Scan(&m.ID, &cardID, &m.Name, &m.Institution, &columnsRaw, &formatsRaw, &amountRaw,
		&m.Delimiter, &m.HasHeader, &m.Encoding, &m.IsActive, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	m.CreditCardID = cardID.String
	if err := json.Unmarshal(columnsRaw, &m.Columns); err != nil {
		return nil, fmt.Errorf("unmarshal column_mapping: %w", err)
	}
	if err := json.Unmarshal(formatsRaw, &m.DateFormats); err != nil {
		return nil, fmt.Errorf("unmarshal date_format: %w", err)
	}
	if len(amountRaw) > 0 {
		if err := json.Unmarshal(amountRaw, &m.AmountFormat); err != nil {
			return nil, fmt.Errorf("unmarshal amount_format: %w", err)
		}
	}
	return &m, nil
}

func (s *Store) queryMapping(ctx context.Context, query string, args ...any) (*models.MappingConfig, error) {
	m, err := scanMapping(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan mapping: %w", err)
	}
	return m, nil
}

// FindActiveMappingByCard returns the oldest active mapping bound to the card.
func (s *Store) FindActiveMappingByCard(ctx context.Context, creditCardID string) (*models.MappingConfig, error) {
	return s.queryMapping(ctx, `
SELECT `+mappingColumns+`
FROM csv_mappings
WHERE credit_card_id = $1 AND is_active
ORDER BY created_at, id
LIMIT 1
`, creditCardID)
}

// FindActiveMappingByInstitution returns the oldest active mapping of the
// institution.
func (s *Store) FindActiveMappingByInstitution(ctx context.Context, institution string) (*models.MappingConfig, error) {
	return s.queryMapping(ctx, `
SELECT `+mappingColumns+`
FROM csv_mappings
WHERE lower(institution) = lower($1) AND is_active
ORDER BY created_at, id
LIMIT 1
`, institution)
}

// FindMapping returns a mapping by id.
func (s *Store) FindMapping(ctx context.Context, id string) (*models.MappingConfig, error) {
	return s.queryMapping(ctx, `
SELECT `+mappingColumns+`
FROM csv_mappings
WHERE id = $1
`, id)
}

// ListMappings returns the mappings passing filter in creation order.
func (s *Store) ListMappings(ctx context.Context, filter store.MappingFilter) ([]models.MappingConfig, error) {
	var where []string
	var args []any
	if filter.Institution != "" {
		args = append(args, filter.Institution)
		where = append(where, fmt.Sprintf("lower(institution) = lower($%d)", len(args)))
	}
	if filter.CreditCardID != "" {
		args = append(args, filter.CreditCardID)
		where = append(where, fmt.Sprintf("credit_card_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active")
	}

	query := "SELECT " + mappingColumns + " FROM csv_mappings"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	out := []models.MappingConfig{}
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}

// SaveMapping inserts or updates a mapping. An empty ID is assigned.
func (s *Store) SaveMapping(ctx context.Context, mapping *models.MappingConfig) error {
	if mapping == nil {
		return fmt.Errorf("save mapping: nil mapping")
	}
	columnsJSON, err := json.Marshal(mapping.Columns)
	if err != nil {
		return fmt.Errorf("marshal column_mapping: %w", err)
	}
	formatsJSON, err := json.Marshal(mapping.DateFormats)
	if err != nil {
		return fmt.Errorf("marshal date_format: %w", err)
	}
	amountJSON, err := json.Marshal(mapping.AmountFormat)
	if err != nil {
		return fmt.Errorf("marshal amount_format: %w", err)
	}

	now := s.now()
	if mapping.ID == "" {
		mapping.ID = uuid.NewString()
	}
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now
	delimiter := mapping.Delimiter
	if delimiter == "" {
		delimiter = ","
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO csv_mappings (`+mappingColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
ON CONFLICT (id) DO UPDATE SET
	credit_card_id = EXCLUDED.credit_card_id,
	name = EXCLUDED.name,
	institution = EXCLUDED.institution,
	column_mapping = EXCLUDED.column_mapping,
	date_format = EXCLUDED.date_format,
	amount_format = EXCLUDED.amount_format,
	delimiter = EXCLUDED.delimiter,
	has_header = EXCLUDED.has_header,
	encoding = EXCLUDED.encoding,
	is_active = EXCLUDED.is_active,
	updated_at = EXCLUDED.updated_at
`,
		mapping.ID, nullString(mapping.CreditCardID), mapping.Name, mapping.Institution,
		columnsJSON, formatsJSON, amountJSON, delimiter, mapping.HasHeader, mapping.Encoding,
		mapping.IsActive, mapping.CreatedAt, mapping.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

func (s *Store) execAffecting(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeactivateMapping marks a mapping inactive.
func (s *Store) DeactivateMapping(ctx context.Context, id string) error {
	return s.execAffecting(ctx, "deactivate mapping", `
UPDATE csv_mappings
SET is_active = FALSE, updated_at = $2
WHERE id = $1
`, id, s.now())
}

// --- credit cards ---

// FindCreditCard returns a card by id.
func (s *Store) FindCreditCard(ctx context.Context, id string) (*models.CreditCard, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, user_id, name, institution, brand, last_digits, color, is_active
FROM credit_cards
WHERE id = $1
`, id)
	var c models.CreditCard
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Institution, &c.Brand, &c.LastDigits, &c.Color, &c.IsActive); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan credit card: %w", err)
	}
	return &c, nil
}

// SaveCreditCard inserts or updates a card. An empty ID is assigned.
func (s *Store) SaveCreditCard(ctx context.Context, card *models.CreditCard) error {
	if card == nil {
		return fmt.Errorf("save credit card: nil card")
	}
	if card.ID == "" {
		card.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO credit_cards (id, user_id, name, institution, brand, last_digits, color, is_active)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	name = EXCLUDED.name,
	institution = EXCLUDED.institution,
	brand = EXCLUDED.brand,
	last_digits = EXCLUDED.last_digits,
	color = EXCLUDED.color,
	is_active = EXCLUDED.is_active
`, card.ID, card.UserID, card.Name, card.Institution, card.Brand, card.LastDigits, card.Color, card.IsActive)
	if err != nil {
		return fmt.Errorf("upsert credit card: %w", err)
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, user_id, credit_card_id, category_id, transaction_date, description, establishment, amount, raw_description, occurrence, is_categorized_by_ai, ai_confidence, metadata, created_at, updated_at`

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var cardID, categoryID sql.NullString
	var confidence sql.NullFloat64
	var occurrence int
	var metadataRaw []byte
	if err := row.Scan(&tx.ID, &tx.UserID, &cardID, &categoryID, &tx.Date, &tx.Description, &tx.Establishment,
		&tx.Amount, &tx.RawDescription, &occurrence, &tx.IsCategorizedByAI, &confidence, &metadataRaw,
		&tx.CreatedAt, &tx.UpdatedAt); err != nil {
		return nil, err
	}
	tx.CreditCardID = cardID.String
	if categoryID.Valid {
		id := categoryID.String
		tx.CategoryID = &id
	}
	if confidence.Valid {
		c := confidence.Float64
		tx.AIConfidence = &c
	}
	tx.Date = time.Date(tx.Date.Year(), tx.Date.Month(), tx.Date.Day(), 0, 0, 0, 0, time.UTC)
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &tx.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	tx.Metadata.Occurrence = occurrence
	return &tx, nil
}

// CountMatchingTransactions counts transactions with the same user, date,
// description and amount.
func (s *Store) CountMatchingTransactions(ctx context.Context, key store.MatchKey) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
SELECT COUNT(*)
FROM transactions
WHERE user_id = $1 AND transaction_date = $2 AND description = $3 AND amount = $4
`, key.UserID, key.Date, key.Description, key.Amount).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count matching transactions: %w", err)
	}
	return n, nil
}

// TransactionExists reports whether any transaction matches key.
func (s *Store) TransactionExists(ctx context.Context, key store.MatchKey) (bool, error) {
	n, err := s.CountMatchingTransactions(ctx, key)
	return n > 0, err
}

// CreateTransaction inserts a draft. The unique occurrence constraint makes
// the insert the atomic duplicate guard.
func (s *Store) CreateTransaction(ctx context.Context, draft models.TransactionDraft) (*models.Transaction, error) {
	draft.Metadata.Occurrence = draft.Occurrence()
	metadataJSON, err := json.Marshal(draft.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	now := s.now()
	tx := models.Transaction{
		TransactionDraft: draft,
		ID:               uuid.NewString(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	var id string
	err = s.db.QueryRowContext(ctx, `
INSERT INTO transactions (`+transactionColumns+`)
VALUES ($1,$2,$3,NULL,$4,$5,$6,$7,$8,$9,FALSE,NULL,$10,$11,$12)
ON CONFLICT ON CONSTRAINT uq_transactions_occurrence DO NOTHING
RETURNING id
`,
		tx.ID, draft.UserID, nullString(draft.CreditCardID), draft.Date, draft.Description, draft.Establishment,
		draft.Amount, draft.RawDescription, draft.Metadata.Occurrence, metadataJSON, tx.CreatedAt, tx.UpdatedAt,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrDuplicateTransaction
		}
		return nil, fmt.Errorf("insert transaction: %w", err)
	}
	return &tx, nil
}

// UpdateTransactionCategory writes the categorization state of one row.
func (s *Store) UpdateTransactionCategory(ctx context.Context, id string, update store.CategoryUpdate) error {
	var categoryID sql.NullString
	if update.CategoryID != nil {
		categoryID = sql.NullString{String: *update.CategoryID, Valid: true}
	}
	var confidence sql.NullFloat64
	if update.AIConfidence != nil {
		confidence = sql.NullFloat64{Float64: *update.AIConfidence, Valid: true}
	}
	return s.execAffecting(ctx, "update transaction category", `
UPDATE transactions
SET category_id = $2, is_categorized_by_ai = $3, ai_confidence = $4, updated_at = $5
WHERE id = $1
`, id, categoryID, update.IsCategorizedByAI, confidence, s.now())
}

// FindTransaction returns a transaction by id.
func (s *Store) FindTransaction(ctx context.Context, id string) (*models.Transaction, error) {
	tx, err := scanTransaction(s.db.QueryRowContext(ctx, `
SELECT `+transactionColumns+`
FROM transactions
WHERE id = $1
`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}
	return tx, nil
}

// ListTransactions returns the transactions passing filter.
func (s *Store) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]models.Transaction, error) {
	query, args := buildTransactionQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	out := []models.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func buildTransactionQuery(filter store.TransactionFilter) (string, []any) {
	var where []string
	var args []any
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		where = append(where, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.CreditCardID != "" {
		args = append(args, filter.CreditCardID)
		where = append(where, fmt.Sprintf("credit_card_id = $%d", len(args)))
	}
	if filter.OnlyCategorized {
		where = append(where, "category_id IS NOT NULL")
	}
	if filter.OnlyUncategorized {
		if filter.BelowConfidence > 0 {
			args = append(args, filter.BelowConfidence)
			where = append(where, fmt.Sprintf("(category_id IS NULL OR (is_categorized_by_ai AND ai_confidence < $%d))", len(args)))
		} else {
			where = append(where, "category_id IS NULL")
		}
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if filter.NewestFirst {
		query += " ORDER BY created_at DESC, id DESC"
	} else {
		query += " ORDER BY created_at, id"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

// --- categories ---

// FindCategoryByName looks a category up by exact name.
func (s *Store) FindCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, name, description, color, icon, is_default
FROM categories
WHERE name = $1
`, name)
	var c models.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.IsDefault); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return &c, nil
}

// ListCategories returns all categories sorted by name.
func (s *Store) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, name, description, color, icon, is_default
FROM categories
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.Icon, &c.IsDefault); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return out, nil
}

// SaveCategory inserts or updates a category keyed by name.
func (s *Store) SaveCategory(ctx context.Context, category *models.Category) error {
	if category == nil || strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("save category: name is required")
	}
	if category.ID == "" {
		category.ID = uuid.NewString()
	}
	err := s.db.QueryRowContext(ctx, `
INSERT INTO categories (id, name, description, color, icon, is_default)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (name) DO UPDATE SET
	description = EXCLUDED.description,
	color = EXCLUDED.color,
	icon = EXCLUDED.icon,
	is_default = EXCLUDED.is_default
RETURNING id
`, category.ID, category.Name, category.Description, category.Color, category.Icon, category.IsDefault).Scan(&category.ID)
	if err != nil {
		return fmt.Errorf("upsert category: %w", err)
	}
	return nil
}

var _ store.Storage = (*Store)(nil)
