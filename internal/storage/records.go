package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/transcat/internal/common"
	"github.com/Veraticus/transcat/internal/model"
)

// lookupChunkSize keeps IN lists below SQLite's bound-parameter limit.
const lookupChunkSize = 500

// Match is the stored id and category for a description.
type Match struct {
	Category string
	ID       int64
}

// AppendResult reports what an append actually wrote.
type AppendResult struct {
	Inserted []model.CategoryRecord
	Skipped  int
	MaxID    int64 // max id observed before the insert
}

// LookupDescriptions returns the stored match for every description present in
// the table. When several rows share a description the highest id wins.
func (s *Store) LookupDescriptions(ctx context.Context, descriptions []string) (map[string]Match, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	unique := dedupe(descriptions)
	matches := make(map[string]Match, len(unique))

	for start := 0; start < len(unique); start += lookupChunkSize {
		end := min(start+lookupChunkSize, len(unique))
		chunk := unique[start:end]

		args := make([]any, len(chunk))
		for i, d := range chunk {
			args[i] = d
		}

		query := fmt.Sprintf(`SELECT id, description, category FROM %s
			WHERE description IN (%s) AND category IS NOT NULL
			ORDER BY id`, s.table, placeholders(len(chunk)))

		rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
		if err != nil {
			return nil, fmt.Errorf("failed to look up descriptions: %w", common.WrapStoreError(err))
		}

		for rows.Next() {
			var (
				id       int64
				desc     string
				category string
			)
			if err := rows.Scan(&id, &desc, &category); err != nil {
				_ = rows.Close()
				return nil, fmt.Errorf("failed to scan match: %w", err)
			}
			matches[desc] = Match{ID: id, Category: category}
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to iterate matches: %w", common.WrapStoreError(err))
		}
		_ = rows.Close()
	}

	return matches, nil
}

// LoadHistorical returns every categorized record ordered by id: the training
// corpus.
func (s *Store) LoadHistorical(ctx context.Context) ([]model.CategoryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRecords(ctx, fmt.Sprintf(`SELECT id, description, category, amount, operation_date, type
		FROM %s WHERE category IS NOT NULL ORDER BY id`, s.table))
}

// LoadAll returns every record, categorized or not, ordered by id.
func (s *Store) LoadAll(ctx context.Context) ([]model.CategoryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryRecords(ctx, fmt.Sprintf(`SELECT id, description, category, amount, operation_date, type
		FROM %s ORDER BY id`, s.table))
}

// GetRecord loads a single record by id.
func (s *Store) GetRecord(ctx context.Context, id int64) (*model.CategoryRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	records, err := s.queryRecords(ctx, fmt.Sprintf(`SELECT id, description, category, amount, operation_date, type
		FROM %s WHERE id = ?`, s.table), id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("record %d: %w", id, common.ErrNotFound)
	}
	return &records[0], nil
}

// MaxID returns the highest assigned id, or 0 for an empty table.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	return s.maxIDTx(ctx, s.db)
}

func (s *Store) maxIDTx(ctx context.Context, q queryable) (int64, error) {
	var maxID sql.NullInt64
	err := q.QueryRowContext(ctx, fmt.Sprintf(`SELECT MAX(id) FROM %s`, s.table)).Scan(&maxID)
	if err != nil {
		return 0, fmt.Errorf("failed to read max id: %w", common.WrapStoreError(err))
	}
	return maxID.Int64, nil
}

// AppendRecords inserts records whose id exceeds the current max id. Rows at
// or below it are replays and are skipped, which makes re-applying a batch a
// no-op. The read and the insert run in one transaction.
func (s *Store) AppendRecords(ctx context.Context, records []model.CategoryRecord) (*AppendResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateRecords(records); err != nil {
		return nil, err
	}

	s.appendMu.Lock()
	defer s.appendMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", common.WrapStoreError(err))
	}
	defer func() { _ = tx.Rollback() }()

	if lock := s.dialect.appendLock(); lock != "" {
		if _, err := tx.ExecContext(ctx, s.dialect.rebind(lock), s.table); err != nil {
			return nil, fmt.Errorf("failed to lock %s: %w", s.table, common.WrapStoreError(err))
		}
	}

	maxID, err := s.maxIDTx(ctx, tx)
	if err != nil {
		return nil, err
	}

	result := &AppendResult{MaxID: maxID}
	fresh := filterAbove(records, maxID)
	result.Skipped = len(records) - len(fresh)

	if len(fresh) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.dialect.rebind(fmt.Sprintf(`INSERT INTO %s
			(id, description, category, amount, operation_date, type)
			VALUES (?, ?, ?, ?, ?, ?)`, s.table)))
		if err != nil {
			return nil, fmt.Errorf("failed to prepare insert: %w", common.WrapStoreError(err))
		}
		defer func() { _ = stmt.Close() }()

		for _, rec := range fresh {
			rec.OperationDate = normalizeDate(rec.OperationDate)
			if _, err := stmt.ExecContext(ctx,
				rec.ID,
				rec.Description,
				nullString(rec.Category),
				rec.Amount,
				rec.OperationDate,
				string(rec.Kind),
			); err != nil {
				return nil, fmt.Errorf("failed to insert record %d: %w", rec.ID, common.WrapStoreError(err))
			}
			result.Inserted = append(result.Inserted, rec)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit append: %w", common.WrapStoreError(err))
	}

	if result.Skipped > 0 {
		slog.Debug("Skipped replayed records", "table", s.table, "skipped", result.Skipped, "max_id", maxID)
	}
	return result, nil
}

// UpdateCategory sets the category of exactly one record.
func (s *Store) UpdateCategory(ctx context.Context, id int64, category string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", common.WrapStoreError(err))
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.dialect.rebind(fmt.Sprintf(`UPDATE %s SET category = ? WHERE id = ?`, s.table)), category, id)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", common.WrapStoreError(err))
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record %d: %w", id, common.ErrNotFound)
	}
	if affected > 1 {
		return fmt.Errorf("update of record %d touched %d rows", id, affected)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit update: %w", common.WrapStoreError(err))
	}
	return nil
}

// Categories returns the distinct assigned categories in alphabetical order.
func (s *Store) Categories(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT DISTINCT category FROM %s
		WHERE category IS NOT NULL ORDER BY category`, s.table))
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", common.WrapStoreError(err))
	}
	defer func() { _ = rows.Close() }()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CategoryTotals sums record amounts per category. Amounts are stored as
// entered, so they are parsed here rather than summed in SQL.
func (s *Store) CategoryTotals(ctx context.Context) (map[string]decimal.Decimal, error) {
	records, err := s.LoadHistorical(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[string]decimal.Decimal)
	for _, rec := range records {
		amount, err := model.ParseAmount(rec.Amount)
		if err != nil {
			slog.Warn("Skipping record with unparseable amount", "id", rec.ID, "amount", rec.Amount)
			continue
		}
		totals[rec.Category] = totals[rec.Category].Add(amount)
	}
	return totals, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]model.CategoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", common.WrapStoreError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []model.CategoryRecord
	for rows.Next() {
		var (
			rec      model.CategoryRecord
			category sql.NullString
			kind     string
		)
		if err := rows.Scan(&rec.ID, &rec.Description, &category, &rec.Amount, &rec.OperationDate, &kind); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec.Category = category.String
		rec.Kind = model.Kind(kind)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", common.WrapStoreError(err))
	}
	return records, nil
}

func filterAbove(records []model.CategoryRecord, maxID int64) []model.CategoryRecord {
	fresh := make([]model.CategoryRecord, 0, len(records))
	seen := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if rec.ID <= maxID {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		fresh = append(fresh, rec)
	}
	return fresh
}

// normalizeDate truncates to the calendar day in UTC, the form rows are stored in.
func normalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// queryable is satisfied by both *sql.DB and *sql.Tx.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

