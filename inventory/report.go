/*
report.go - Read-only reporting views

PURPOSE:
  Assembles ledger, formula, and history data for display. No business
  rules live here beyond ordering and row-parity metadata; rounding to
  the 6-decimal display convention happens in the presentation layer.
*/
package inventory

import "context"

// IngredientRow is an ingredient with its 1-based display position and
// alternating-row parity.
type IngredientRow struct {
	Ingredient
	Position int
	Odd      bool
}

// Reports provides read-only views over the store.
type Reports struct {
	store Store
}

func NewReports(store Store) *Reports {
	return &Reports{store: store}
}

// IngredientRows returns all ingredients in case-insensitive name
// order, annotated with position and parity.
func (r *Reports) IngredientRows(ctx context.Context) ([]IngredientRow, error) {
	ings, err := r.store.ListIngredients(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]IngredientRow, len(ings))
	for i, ing := range ings {
		rows[i] = IngredientRow{
			Ingredient: ing,
			Position:   i + 1,
			Odd:        (i+1)%2 == 1,
		}
	}
	return rows, nil
}

// Products returns all products with their formula rows.
func (r *Reports) Products(ctx context.Context) ([]Product, error) {
	return r.store.ListProducts(ctx)
}

// History returns production records newest-first (produced_at
// descending, id descending as tie-break).
func (r *Reports) History(ctx context.Context) ([]Production, error) {
	return r.store.ListProductions(ctx)
}
