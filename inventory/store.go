/*
store.go - Persistence contracts for the materials engine

PURPOSE:
  Defines the interface between domain logic and the database. The
  engine never opens connections from ambient state; a Store handle is
  injected into every component that needs one.

KEY INTERFACES:
  Store:   CRUD + range queries for the four relations
           (ingredients, products, formula rows, productions)
  TxStore: Store plus WithTx for atomic multi-statement operations

ATOMICITY CONTRACT:
  Confirm (debit-all + append-record), Reverse (credit-all +
  delete-record), and formula replace-all each run inside a single
  WithTx call: a crash mid-operation leaves the store in its
  pre-operation state, never partially applied.

UNIQUENESS:
  InsertIngredient and SaveProduct return ErrDuplicateName when a name
  collides (ingredient names case-insensitively).

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite store
  - inventory/store: In-memory store for testing

SEE ALSO:
  - ledger.go: Stock quantity operations built on Store
  - workflow.go: Uses TxStore for confirm/reverse
*/
package inventory

import "context"

// =============================================================================
// STORE - Four-relation persistence
// =============================================================================

// Store handles persistence for ingredients, products (with formula
// rows), and production records. Missing-entity reads return (nil, nil)
// so callers decide whether absence is an error.
type Store interface {
	// InsertIngredient adds a new ingredient. Returns ErrDuplicateName
	// if the name is already taken (case-insensitive).
	InsertIngredient(ctx context.Context, ing Ingredient) error

	// GetIngredient returns the ingredient or (nil, nil) when absent.
	GetIngredient(ctx context.Context, name string) (*Ingredient, error)

	// ListIngredients returns all ingredients ordered case-insensitively
	// by name.
	ListIngredients(ctx context.Context) ([]Ingredient, error)

	// UpdateIngredient replaces quantity and supplier for an existing
	// ingredient. Returns ErrIngredientNotFound when absent.
	UpdateIngredient(ctx context.Context, ing Ingredient) error

	// AdjustIngredient adds delta (possibly negative) to the stored
	// quantity. A missing name is a silent no-op; the ledger layers
	// policy on top of this primitive.
	AdjustIngredient(ctx context.Context, name string, delta Quantity) error

	// DeleteIngredient removes an ingredient. Returns
	// ErrIngredientNotFound when absent. No dependency check: formulas
	// referencing the name keep a dangling reference.
	DeleteIngredient(ctx context.Context, name string) error

	// SaveProduct inserts or updates a product and atomically replaces
	// its formula rows (delete-all-then-reinsert). Returns
	// ErrDuplicateName on a name collision.
	SaveProduct(ctx context.Context, p Product) error

	// GetProduct returns the product with its formula rows in insertion
	// order, or (nil, nil) when absent.
	GetProduct(ctx context.Context, id ProductID) (*Product, error)

	// ListProducts returns all products with formulas, oldest first.
	ListProducts(ctx context.Context) ([]Product, error)

	// DeleteProduct removes a product and its formula rows atomically.
	// Returns ErrProductNotFound when absent.
	DeleteProduct(ctx context.Context, id ProductID) error

	// InsertProduction appends a production record.
	InsertProduction(ctx context.Context, rec Production) error

	// GetProduction returns the record or (nil, nil) when absent.
	GetProduction(ctx context.Context, id ProductionID) (*Production, error)

	// ListProductions returns history ordered by produced_at descending,
	// then id descending as tie-break.
	ListProductions(ctx context.Context) ([]Production, error)

	// DeleteProduction removes a record. Returns ErrProductionNotFound
	// when absent.
	DeleteProduction(ctx context.Context, id ProductionID) error
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error
	// the transaction is rolled back; otherwise it is committed. The
	// Store passed to fn is only valid for the duration of the call.
	WithTx(ctx context.Context, fn func(Store) error) error
}
