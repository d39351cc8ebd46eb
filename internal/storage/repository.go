// Package storage is the SQLite backend. The schema lives in embedded
// migrations; queries are plain database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const txColumns = `id, title, amount_cents, date_unix_ms, type, category_id, account_id, to_account_id, person_id, note`

// Append implements ledger.TransactionWriter.
func (r *SQLiteRepository) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Amount.Cents, t.Date.UnixMilli(), string(t.Type),
		nullable(t.CategoryID), t.AccountID, nullable(t.ToAccountID), nullable(t.PersonID), t.Note)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	for _, tagID := range t.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_tags (transaction_id, tag_id) VALUES (?, ?)`,
			t.ID, tagID); err != nil {
			return "", fmt.Errorf("insert transaction tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"title", t.Title,
		"amount_cents", t.Amount.Cents,
		"type", t.Type)

	return t.ID, nil
}

// Get implements ledger.TransactionReader.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ledger.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if err := r.loadTags(ctx, map[string]*core.Transaction{t.ID: &t}); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Delete implements ledger.TransactionDeleter.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	slog.InfoContext(ctx, "Transaction deleted from SQLite", "id", id)
	return nil
}

// ListAll implements ledger.TransactionLister.
func (r *SQLiteRepository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions ORDER BY date_unix_ms DESC, id`)
}

// ListMonth implements ledger.TransactionLister.
func (r *SQLiteRepository) ListMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	start, end := core.MonthRange(year, month)
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE date_unix_ms >= ? AND date_unix_ms < ?
		 ORDER BY date_unix_ms DESC, id`,
		start.UnixMilli(), end.UnixMilli())
}

func (r *SQLiteRepository) list(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	byID := make(map[string]*core.Transaction)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadTags(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *SQLiteRepository) loadTags(ctx context.Context, byID map[string]*core.Transaction) error {
	if len(byID) == 0 {
		return nil
	}
	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	placeholders := ""
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			placeholders += ", "
		}
		placeholders += "?"
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT transaction_id, tag_id FROM transaction_tags
		 WHERE transaction_id IN (`+placeholders+`) ORDER BY tag_id`, args...)
	if err != nil {
		return fmt.Errorf("load transaction tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var txID, tagID string
		if err := rows.Scan(&txID, &tagID); err != nil {
			return fmt.Errorf("scan transaction tag: %w", err)
		}
		if t, ok := byID[txID]; ok {
			t.TagIDs = append(t.TagIDs, tagID)
		}
	}
	return rows.Err()
}

// Lookups implements ledger.LookupReader. Categories come back as a
// two-level hierarchy ordered by their position column.
func (r *SQLiteRepository) Lookups(ctx context.Context) (core.Lookups, error) {
	var lk core.Lookups

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, parent_id, icon, color, bg_color, is_system
		 FROM categories ORDER BY position, name`)
	if err != nil {
		return lk, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var flat []core.Category
	for rows.Next() {
		var c core.Category
		var parentID sql.NullString
		var isSystem int
		if err := rows.Scan(&c.ID, &c.Name, &parentID, &c.Icon, &c.Color, &c.BgColor, &isSystem); err != nil {
			return lk, fmt.Errorf("scan category: %w", err)
		}
		c.ParentID = parentID.String
		c.IsSystem = isSystem != 0
		flat = append(flat, c)
	}
	if err := rows.Err(); err != nil {
		return lk, fmt.Errorf("iterate categories: %w", err)
	}
	lk.Categories = nestCategories(flat)

	if lk.Tags, err = r.listTags(ctx); err != nil {
		return lk, err
	}
	if lk.People, err = r.listPeople(ctx); err != nil {
		return lk, err
	}
	if lk.Accounts, err = r.listAccounts(ctx); err != nil {
		return lk, err
	}
	return lk, nil
}

func (r *SQLiteRepository) listTags(ctx context.Context) ([]core.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	var out []core.Tag
	for rows.Next() {
		var t core.Tag
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listPeople(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, balance_cents FROM people ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list people: %w", err)
	}
	defer rows.Close()

	var out []core.Person
	for rows.Next() {
		var p core.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.BalanceCents); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) listAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, icon FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		if err := rows.Scan(&a.ID, &a.Name, &a.Icon); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AdjustPersonBalance implements ledger.PersonBalancer.
func (r *SQLiteRepository) AdjustPersonBalance(ctx context.Context, personID string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE people SET balance_cents = balance_cents + ? WHERE id = ?`,
		deltaCents, personID)
	if err != nil {
		return fmt.Errorf("adjust person balance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var dateMS int64
	var txType string
	var categoryID, toAccountID, personID sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Amount.Cents, &dateMS, &txType,
		&categoryID, &t.AccountID, &toAccountID, &personID, &t.Note)
	if err != nil {
		return t, err
	}
	t.Date = time.UnixMilli(dateMS).UTC()
	t.Type = core.TransactionType(txType)
	t.CategoryID = categoryID.String
	t.ToAccountID = toAccountID.String
	t.PersonID = personID.String
	return t, nil
}

func nestCategories(flat []core.Category) []core.Category {
	var roots []core.Category
	index := make(map[string]int)
	for _, c := range flat {
		if c.ParentID == "" {
			index[c.ID] = len(roots)
			roots = append(roots, c)
		}
	}
	for _, c := range flat {
		if c.ParentID == "" {
			continue
		}
		if i, ok := index[c.ParentID]; ok {
			roots[i].Children = append(roots[i].Children, c)
			roots[i].IsParent = true
		}
	}
	return roots
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
