/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements inventory.Store and inventory.TxStore using SQLite.

KEY TABLES:
  ingredients:         name (case-insensitively unique), qty_kg, supplier
  products:            id, unique name
  product_ingredients: formula rows (product_id, ingredient_name, percentage)
  productions:         confirmed production records

PRECISION:
  Quantities and percentages are stored as decimal strings, never as
  REAL, so stored values round-trip exactly. Display rounding is a
  presentation concern.

CONCURRENCY:
  A sync.RWMutex plus SetMaxOpenConns(1) serialize all access: the
  engine is single-writer by contract, and a single pooled connection
  also keeps ":memory:" databases coherent. SQLite runs in WAL mode
  for crash recovery.

TRANSIENT ERRORS:
  Mutations retry a bounded number of times on SQLITE_BUSY before
  surfacing the failure.

USAGE:
  store, err := sqlite.New("./materials.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - inventory/store.go: Interface definitions
  - inventory/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/materials-engine/inventory"
)

// Store implements inventory.TxStore using SQLite.
type Store struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// New creates a SQLite store at the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: serializes writers and keeps :memory: databases
	// on a single underlying handle.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, path: dbPath}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ingredients (
		name TEXT PRIMARY KEY COLLATE NOCASE,
		qty_kg TEXT NOT NULL DEFAULT '0',
		supplier TEXT NOT NULL DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS product_ingredients (
		id INTEGER PRIMARY KEY,
		product_id TEXT NOT NULL,
		ingredient_name TEXT NOT NULL,
		percentage TEXT NOT NULL,
		FOREIGN KEY(product_id) REFERENCES products(id)
	);

	CREATE INDEX IF NOT EXISTS idx_product_ingredients_product
		ON product_ingredients(product_id);

	CREATE TABLE IF NOT EXISTS productions (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		product_name TEXT NOT NULL,
		kilos_produced TEXT NOT NULL,
		produced_at TEXT NOT NULL DEFAULT '',
		batch_number TEXT NOT NULL DEFAULT ''
	);

	-- History ordering (hot path for the reporting surface)
	CREATE INDEX IF NOT EXISTS idx_productions_history
		ON productions(produced_at DESC, id DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so the same helpers serve
// direct calls and transaction-scoped calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// INGREDIENTS
// =============================================================================

func (s *Store) InsertIngredient(ctx context.Context, ing inventory.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertIngredient(ctx, s.db, ing)
}

func insertIngredient(ctx context.Context, q querier, ing inventory.Ingredient) error {
	_, err := execRetry(ctx, q,
		"INSERT INTO ingredients (name, qty_kg, supplier) VALUES (?, ?, ?)",
		ing.Name, ing.Quantity.String(), ing.Supplier,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return inventory.ErrDuplicateName
		}
		return fmt.Errorf("failed to insert ingredient: %w", err)
	}
	return nil
}

func (s *Store) GetIngredient(ctx context.Context, name string) (*inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getIngredient(ctx, s.db, name)
}

func getIngredient(ctx context.Context, q querier, name string) (*inventory.Ingredient, error) {
	var ing inventory.Ingredient
	var qty string

	err := q.QueryRowContext(ctx,
		"SELECT name, qty_kg, supplier FROM ingredients WHERE name = ?",
		name,
	).Scan(&ing.Name, &qty, &ing.Supplier)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ingredient: %w", err)
	}

	ing.Quantity = inventory.MustParseQuantity(qty)
	return &ing, nil
}

func (s *Store) ListIngredients(ctx context.Context) ([]inventory.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listIngredients(ctx, s.db)
}

func listIngredients(ctx context.Context, q querier) ([]inventory.Ingredient, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT name, qty_kg, supplier FROM ingredients ORDER BY name COLLATE NOCASE",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingredients: %w", err)
	}
	defer rows.Close()

	var out []inventory.Ingredient
	for rows.Next() {
		var ing inventory.Ingredient
		var qty string
		if err := rows.Scan(&ing.Name, &qty, &ing.Supplier); err != nil {
			return nil, err
		}
		ing.Quantity = inventory.MustParseQuantity(qty)
		out = append(out, ing)
	}
	return out, rows.Err()
}

func (s *Store) UpdateIngredient(ctx context.Context, ing inventory.Ingredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateIngredient(ctx, s.db, ing)
}

func updateIngredient(ctx context.Context, q querier, ing inventory.Ingredient) error {
	res, err := execRetry(ctx, q,
		"UPDATE ingredients SET qty_kg = ?, supplier = ? WHERE name = ?",
		ing.Quantity.String(), ing.Supplier, ing.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to update ingredient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrIngredientNotFound
	}
	return nil
}

func (s *Store) AdjustIngredient(ctx context.Context, name string, delta inventory.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustIngredient(ctx, s.db, name, delta)
}

// adjustIngredient is a read-modify-write because quantities are
// stored as decimal strings. Callers serialize via the store mutex or
// run inside a transaction.
func adjustIngredient(ctx context.Context, q querier, name string, delta inventory.Quantity) error {
	current, err := getIngredient(ctx, q, name)
	if err != nil {
		return err
	}
	if current == nil {
		// Missing ingredient: adjustment matches no row.
		return nil
	}
	_, err = execRetry(ctx, q,
		"UPDATE ingredients SET qty_kg = ? WHERE name = ?",
		current.Quantity.Add(delta).String(), current.Name,
	)
	if err != nil {
		return fmt.Errorf("failed to adjust ingredient: %w", err)
	}
	return nil
}

func (s *Store) DeleteIngredient(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteIngredient(ctx, s.db, name)
}

func deleteIngredient(ctx context.Context, q querier, name string) error {
	res, err := execRetry(ctx, q, "DELETE FROM ingredients WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("failed to delete ingredient: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrIngredientNotFound
	}
	return nil
}

// =============================================================================
// PRODUCTS & FORMULA ROWS
// =============================================================================

func (s *Store) SaveProduct(ctx context.Context, p inventory.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return saveProduct(ctx, tx, p)
	})
}

// saveProduct upserts the product row and replaces the formula as a
// unit (delete-all-then-reinsert). Must run inside a transaction.
func saveProduct(ctx context.Context, q querier, p inventory.Product) error {
	_, err := execRetry(ctx, q, `
		INSERT INTO products (id, name) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name`,
		p.ID, p.Name,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return inventory.ErrDuplicateName
		}
		return fmt.Errorf("failed to save product: %w", err)
	}

	if _, err := execRetry(ctx, q,
		"DELETE FROM product_ingredients WHERE product_id = ?", p.ID,
	); err != nil {
		return fmt.Errorf("failed to clear formula rows: %w", err)
	}

	for _, row := range p.Formula {
		if _, err := execRetry(ctx, q,
			"INSERT INTO product_ingredients (product_id, ingredient_name, percentage) VALUES (?, ?, ?)",
			p.ID, row.IngredientName, row.Percentage.String(),
		); err != nil {
			return fmt.Errorf("failed to insert formula row: %w", err)
		}
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q querier, id inventory.ProductID) (*inventory.Product, error) {
	var p inventory.Product
	err := q.QueryRowContext(ctx,
		"SELECT id, name FROM products WHERE id = ?", id,
	).Scan(&p.ID, &p.Name)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	p.Formula, err = loadFormula(ctx, q, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// loadFormula returns rows in insertion order, as the editor saved them.
func loadFormula(ctx context.Context, q querier, id inventory.ProductID) ([]inventory.FormulaRow, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT ingredient_name, percentage FROM product_ingredients WHERE product_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load formula: %w", err)
	}
	defer rows.Close()

	var formula []inventory.FormulaRow
	for rows.Next() {
		var row inventory.FormulaRow
		var pct string
		if err := rows.Scan(&row.IngredientName, &pct); err != nil {
			return nil, err
		}
		row.Percentage = parseDecimal(pct)
		formula = append(formula, row)
	}
	return formula, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProducts(ctx, s.db)
}

func listProducts(ctx context.Context, q querier) ([]inventory.Product, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	var out []inventory.Product
	for rows.Next() {
		var p inventory.Product
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		out[i].Formula, err = loadFormula(ctx, q, out[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return deleteProduct(ctx, tx, id)
	})
}

// deleteProduct removes the product and its formula rows together.
// Must run inside a transaction.
func deleteProduct(ctx context.Context, q querier, id inventory.ProductID) error {
	if _, err := execRetry(ctx, q,
		"DELETE FROM product_ingredients WHERE product_id = ?", id,
	); err != nil {
		return fmt.Errorf("failed to delete formula rows: %w", err)
	}

	res, err := execRetry(ctx, q, "DELETE FROM products WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// =============================================================================
// PRODUCTIONS
// =============================================================================

func (s *Store) InsertProduction(ctx context.Context, rec inventory.Production) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertProduction(ctx, s.db, rec)
}

func insertProduction(ctx context.Context, q querier, rec inventory.Production) error {
	_, err := execRetry(ctx, q, `
		INSERT INTO productions (id, product_id, product_name, kilos_produced, produced_at, batch_number)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProductID, rec.ProductName, rec.Kilos.String(), rec.ProducedAt, rec.BatchNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to insert production: %w", err)
	}
	return nil
}

func (s *Store) GetProduction(ctx context.Context, id inventory.ProductionID) (*inventory.Production, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduction(ctx, s.db, id)
}

func getProduction(ctx context.Context, q querier, id inventory.ProductionID) (*inventory.Production, error) {
	var rec inventory.Production
	var kilos string

	err := q.QueryRowContext(ctx, `
		SELECT id, product_id, product_name, kilos_produced, produced_at, batch_number
		FROM productions WHERE id = ?`, id,
	).Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &kilos, &rec.ProducedAt, &rec.BatchNumber)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get production: %w", err)
	}

	rec.Kilos = inventory.MustParseQuantity(kilos)
	return &rec, nil
}

func (s *Store) ListProductions(ctx context.Context) ([]inventory.Production, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProductions(ctx, s.db)
}

func listProductions(ctx context.Context, q querier) ([]inventory.Production, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, product_name, kilos_produced, produced_at, batch_number
		FROM productions
		ORDER BY produced_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list productions: %w", err)
	}
	defer rows.Close()

	var out []inventory.Production
	for rows.Next() {
		var rec inventory.Production
		var kilos string
		if err := rows.Scan(&rec.ID, &rec.ProductID, &rec.ProductName, &kilos, &rec.ProducedAt, &rec.BatchNumber); err != nil {
			return nil, err
		}
		rec.Kilos = inventory.MustParseQuantity(kilos)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) DeleteProduction(ctx context.Context, id inventory.ProductionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteProduction(ctx, s.db, id)
}

func deleteProduction(ctx context.Context, q querier, id inventory.ProductionID) error {
	res, err := execRetry(ctx, q, "DELETE FROM productions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete production: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrProductionNotFound
	}
	return nil
}

// =============================================================================
// TRANSACTIONS (inventory.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store inventory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

// inTx runs fn inside BEGIN/COMMIT with rollback on every error path.
// Callers must hold the write lock.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore routes every Store method through the open transaction. The
// parent holds the write lock for the duration, so no locking here.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) InsertIngredient(ctx context.Context, ing inventory.Ingredient) error {
	return insertIngredient(ctx, ts.tx, ing)
}

func (ts *txStore) GetIngredient(ctx context.Context, name string) (*inventory.Ingredient, error) {
	return getIngredient(ctx, ts.tx, name)
}

func (ts *txStore) ListIngredients(ctx context.Context) ([]inventory.Ingredient, error) {
	return listIngredients(ctx, ts.tx)
}

func (ts *txStore) UpdateIngredient(ctx context.Context, ing inventory.Ingredient) error {
	return updateIngredient(ctx, ts.tx, ing)
}

func (ts *txStore) AdjustIngredient(ctx context.Context, name string, delta inventory.Quantity) error {
	return adjustIngredient(ctx, ts.tx, name, delta)
}

func (ts *txStore) DeleteIngredient(ctx context.Context, name string) error {
	return deleteIngredient(ctx, ts.tx, name)
}

func (ts *txStore) SaveProduct(ctx context.Context, p inventory.Product) error {
	return saveProduct(ctx, ts.tx, p)
}

func (ts *txStore) GetProduct(ctx context.Context, id inventory.ProductID) (*inventory.Product, error) {
	return getProduct(ctx, ts.tx, id)
}

func (ts *txStore) ListProducts(ctx context.Context) ([]inventory.Product, error) {
	return listProducts(ctx, ts.tx)
}

func (ts *txStore) DeleteProduct(ctx context.Context, id inventory.ProductID) error {
	return deleteProduct(ctx, ts.tx, id)
}

func (ts *txStore) InsertProduction(ctx context.Context, rec inventory.Production) error {
	return insertProduction(ctx, ts.tx, rec)
}

func (ts *txStore) GetProduction(ctx context.Context, id inventory.ProductionID) (*inventory.Production, error) {
	return getProduction(ctx, ts.tx, id)
}

func (ts *txStore) ListProductions(ctx context.Context) ([]inventory.Production, error) {
	return listProductions(ctx, ts.tx)
}

func (ts *txStore) DeleteProduction(ctx context.Context, id inventory.ProductionID) error {
	return deleteProduction(ctx, ts.tx, id)
}

// =============================================================================
// BACKUP
// =============================================================================

// Backup copies the database file to dstPath. The WAL is checkpointed
// first so the copy is self-contained.
func (s *Store) Backup(ctx context.Context, dstPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == ":memory:" || strings.HasPrefix(s.path, "file::memory:") {
		return fmt.Errorf("cannot back up an in-memory database")
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return fmt.Errorf("failed to checkpoint before backup: %w", err)
	}

	src, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("failed to open database file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy database file: %w", err)
	}
	return dst.Sync()
}

// =============================================================================
// HELPERS
// =============================================================================

const busyAttempts = 3

// execRetry retries a mutation a bounded number of times when SQLite
// reports the database as busy/locked, then surfaces the failure.
func execRetry(ctx context.Context, q querier, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	var err error
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		res, err = q.ExecContext(ctx, query, args...)
		if err == nil || !isBusyError(err) {
			return res, err
		}
		time.Sleep(time.Duration(attempt) * 10 * time.Millisecond)
	}
	return nil, fmt.Errorf("storage busy after %d attempts: %w", busyAttempts, err)
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
