/*
resolver.go - Formula resolution

PURPOSE:
  Converts a target output quantity into required ingredient amounts:
  for each formula row, required = target × (percentage / 100).

PROPERTIES:
  - Pure: no side effects, deterministic, order-preserving
  - Linear: Resolve(formula, 2Q) = 2 × Resolve(formula, Q) element-wise
  - Percentages are independent ratios; they need not sum to 100

SEE ALSO:
  - workflow.go: Pairs requirements with ledger availability
*/
package inventory

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Requirement is the resolved amount of one ingredient for a target
// output quantity.
type Requirement struct {
	IngredientName string
	Percentage     decimal.Decimal
	Required       Quantity
}

// Resolve computes the required quantity of each formula ingredient
// for the given target output. Rows come back in formula order.
func Resolve(formula []FormulaRow, target Quantity) []Requirement {
	reqs := make([]Requirement, len(formula))
	for i, row := range formula {
		reqs[i] = Requirement{
			IngredientName: row.IngredientName,
			Percentage:     row.Percentage,
			Required:       QuantityFromDecimal(target.Value.Mul(row.Percentage).Div(hundred)),
		}
	}
	return reqs
}
