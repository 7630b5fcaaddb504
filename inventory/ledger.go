/*
ledger.go - Stock ledger: the authority over ingredient quantities

PURPOSE:
  The StockLedger is the only component allowed to mutate
  quantity-on-hand. Every mutation persists immediately; there is no
  in-memory staging.

OPERATIONS:
  Available: quantity on hand (missing ingredient = zero, not an error)
  Debit:     unconditional subtraction
  Credit:    unconditional addition
  Restock:   addition constrained to non-negative amounts

DEBIT/CREDIT ARE PRIMITIVES:
  Debit does not reject results below zero and neither Debit nor
  Credit reports a missing ingredient (the adjustment simply matches
  no row). Callers are responsible for checking sufficiency first; the
  production workflow always does check-then-confirm inside one
  transaction, so normal use never drives stock negative.

LIFECYCLE:
  The ledger also owns ingredient lifecycle operations (add, update,
  delete) since it is the authority for the ingredients relation.

SEE ALSO:
  - workflow.go: The only caller of Debit/Credit
  - store.go: AdjustIngredient primitive
*/
package inventory

import (
	"context"
	"strings"
)

// StockLedger owns ingredient quantities. Construct one over a plain
// Store for direct operations, or over the transaction-scoped Store
// inside a WithTx block.
type StockLedger struct {
	store Store
}

func NewStockLedger(store Store) *StockLedger {
	return &StockLedger{store: store}
}

// =============================================================================
// QUANTITY OPERATIONS
// =============================================================================

// Available returns the quantity on hand. A missing ingredient is
// treated as zero.
func (l *StockLedger) Available(ctx context.Context, name string) (Quantity, error) {
	ing, err := l.store.GetIngredient(ctx, name)
	if err != nil {
		return Quantity{}, err
	}
	if ing == nil {
		return NewQuantity(0), nil
	}
	return ing.Quantity, nil
}

// Debit subtracts qty unconditionally. The caller must have verified
// sufficiency first.
func (l *StockLedger) Debit(ctx context.Context, name string, qty Quantity) error {
	return l.store.AdjustIngredient(ctx, name, qty.Neg())
}

// Credit adds qty unconditionally.
func (l *StockLedger) Credit(ctx context.Context, name string, qty Quantity) error {
	return l.store.AdjustIngredient(ctx, name, qty)
}

// Restock adds a non-negative quantity to an existing ingredient.
func (l *StockLedger) Restock(ctx context.Context, name string, added Quantity) error {
	if added.IsNegative() {
		return invalidArgumentf("restock amount must not be negative, got %s", added)
	}
	ing, err := l.store.GetIngredient(ctx, name)
	if err != nil {
		return err
	}
	if ing == nil {
		return ErrIngredientNotFound
	}
	return l.store.AdjustIngredient(ctx, name, added)
}

// =============================================================================
// INGREDIENT LIFECYCLE
// =============================================================================

// AddIngredient creates a new ingredient. Returns ErrDuplicateName if
// the name is already taken (case-insensitive).
func (l *StockLedger) AddIngredient(ctx context.Context, name string, qty Quantity, supplier string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalidArgumentf("ingredient name is required")
	}
	return l.store.InsertIngredient(ctx, Ingredient{Name: name, Quantity: qty, Supplier: supplier})
}

// UpdateIngredient replaces quantity and supplier for an existing
// ingredient.
func (l *StockLedger) UpdateIngredient(ctx context.Context, name string, qty Quantity, supplier string) error {
	return l.store.UpdateIngredient(ctx, Ingredient{Name: name, Quantity: qty, Supplier: supplier})
}

// DeleteIngredient removes an ingredient. Formulas referencing the
// name are left with a dangling reference; that is accepted behavior.
func (l *StockLedger) DeleteIngredient(ctx context.Context, name string) error {
	return l.store.DeleteIngredient(ctx, name)
}
