// Package postgres is the Postgres backend, suitable when several
// instances share one ledger.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"sort"
	"time"

	"tally/internal/core"
	"tally/internal/ledger"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Repository struct {
	db *sql.DB
}

func NewRepository(connStr string) (*Repository, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("create postgres driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

const txColumns = `id, title, amount_cents, occurred_at, type, category_id, account_id, to_account_id, person_id, note`

func (r *Repository) Append(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		t.ID, t.Title, t.Amount.Cents, t.Date, string(t.Type),
		nullable(t.CategoryID), t.AccountID, nullable(t.ToAccountID), nullable(t.PersonID), t.Note)
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	for _, tagID := range t.TagIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO transaction_tags (transaction_id, tag_id) VALUES ($1, $2)`,
			t.ID, tagID); err != nil {
			return "", fmt.Errorf("insert transaction tag: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit transaction: %w", err)
	}
	return t.ID, nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE id = $1`, id)
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

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
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
	return nil
}

func (r *Repository) ListAll(ctx context.Context) ([]core.Transaction, error) {
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions ORDER BY occurred_at DESC, id`)
}

func (r *Repository) ListMonth(ctx context.Context, year, month int) ([]core.Transaction, error) {
	start, end := core.MonthRange(year, month)
	return r.list(ctx,
		`SELECT `+txColumns+` FROM transactions
		 WHERE occurred_at >= $1 AND occurred_at < $2
		 ORDER BY occurred_at DESC, id`,
		start, end)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
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

	byID := make(map[string]*core.Transaction, len(out))
	for i := range out {
		byID[out[i].ID] = &out[i]
	}
	if err := r.loadTags(ctx, byID); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) loadTags(ctx context.Context, byID map[string]*core.Transaction) error {
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
		placeholders += fmt.Sprintf("$%d", i+1)
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

func (r *Repository) Lookups(ctx context.Context) (core.Lookups, error) {
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
		if err := rows.Scan(&c.ID, &c.Name, &parentID, &c.Icon, &c.Color, &c.BgColor, &c.IsSystem); err != nil {
			return lk, fmt.Errorf("scan category: %w", err)
		}
		c.ParentID = parentID.String
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

func (r *Repository) listTags(ctx context.Context) ([]core.Tag, error) {
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

func (r *Repository) listPeople(ctx context.Context) ([]core.Person, error) {
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

func (r *Repository) listAccounts(ctx context.Context) ([]core.Account, error) {
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

func (r *Repository) AdjustPersonBalance(ctx context.Context, personID string, deltaCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE people SET balance_cents = balance_cents + $1 WHERE id = $2`,
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
	var txType string
	var categoryID, toAccountID, personID sql.NullString
	err := row.Scan(&t.ID, &t.Title, &t.Amount.Cents, &t.Date, &txType,
		&categoryID, &t.AccountID, &toAccountID, &personID, &t.Note)
	if err != nil {
		return t, err
	}
	t.Date = t.Date.UTC()
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
