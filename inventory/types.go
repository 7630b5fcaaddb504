/*
Package inventory provides the core materials management engine.

PURPOSE:
  This package contains the domain types and algorithms for tracking
  raw-material stock, product formulas expressed as ingredient
  percentages, and production runs that consume stock according to
  those formulas.

KEY CONCEPTS IN THIS FILE (types.go):
  - Quantity: A kilogram amount backed by decimal.Decimal
  - Ingredient: A raw material with quantity-on-hand and supplier
  - Product/FormulaRow: A recipe as (ingredient, percentage) pairs
  - Production: An immutable record of a confirmed production run

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal so stored quantities never lose
     precision; sufficiency comparisons use a fixed 1e-9 tolerance
  2. Exclusive ownership: only the StockLedger mutates quantities
  3. Immutability: Production records are never edited, only reversed

SEE ALSO:
  - resolver.go: Formula resolution (percentages to required kilos)
  - ledger.go: Stock quantity authority (debit/credit/restock)
  - workflow.go: Check/confirm/reverse orchestration
  - store.go: Persistence contracts
*/
package inventory

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// QUANTITY - Kilogram amount
// =============================================================================

// Quantity is an amount of material in kilograms.
type Quantity struct {
	Value decimal.Decimal
}

// sufficiencyEpsilon absorbs floating-point noise in availability
// comparisons: available covers required when available+1e-9 >= required.
var sufficiencyEpsilon = decimal.New(1, -9)

func NewQuantity(kg float64) Quantity {
	return Quantity{Value: decimal.NewFromFloat(kg)}
}

func QuantityFromDecimal(d decimal.Decimal) Quantity {
	return Quantity{Value: d}
}

// MustParseQuantity parses a decimal string, returning zero on failure.
func MustParseQuantity(s string) Quantity {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{Value: decimal.Zero}
	}
	return Quantity{Value: d}
}

func (q Quantity) Add(o Quantity) Quantity { return Quantity{Value: q.Value.Add(o.Value)} }
func (q Quantity) Sub(o Quantity) Quantity { return Quantity{Value: q.Value.Sub(o.Value)} }
func (q Quantity) Neg() Quantity           { return Quantity{Value: q.Value.Neg()} }
func (q Quantity) IsNegative() bool        { return q.Value.IsNegative() }
func (q Quantity) IsZero() bool            { return q.Value.IsZero() }
func (q Quantity) Equal(o Quantity) bool   { return q.Value.Equal(o.Value) }
func (q Quantity) String() string          { return q.Value.String() }

// Covers reports whether q is enough stock to satisfy required,
// within the fixed tolerance.
func (q Quantity) Covers(required Quantity) bool {
	return !q.Value.Add(sufficiencyEpsilon).LessThan(required.Value)
}

// Display rounds to the 6-decimal presentation convention. Storage
// keeps full precision; only DTOs go through this.
func (q Quantity) Display() float64 {
	return q.Value.Round(6).InexactFloat64()
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ProductID string
type ProductionID string

// NewProductID returns a time-ordered (UUIDv7) identifier so that
// lexicographic order follows creation order.
func NewProductID() ProductID {
	return ProductID(uuid.Must(uuid.NewV7()).String())
}

func NewProductionID() ProductionID {
	return ProductionID(uuid.Must(uuid.NewV7()).String())
}

// =============================================================================
// INGREDIENT - Raw material with quantity-on-hand
// =============================================================================

// Ingredient is a raw material. Names are unique case-insensitively.
type Ingredient struct {
	Name     string
	Quantity Quantity
	Supplier string
}

// =============================================================================
// PRODUCT & FORMULA
// =============================================================================

// MaxFormulaRows caps the number of ingredient rows per product.
const MaxFormulaRows = 30

// FormulaRow binds an ingredient name to a percentage of the target
// output quantity. Percentages are independent ratios, not parts of
// a whole: a formula summing to 120% is legal.
type FormulaRow struct {
	IngredientName string
	Percentage     decimal.Decimal
}

// Product owns its formula. The formula is always replaced as a unit,
// never partially patched.
type Product struct {
	ID      ProductID
	Name    string
	Formula []FormulaRow
}

// Validate enforces the formula rules: non-empty product name, 1 to
// MaxFormulaRows rows, non-empty ingredient names, percentage > 0.
func (p Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return invalidArgumentf("product name is required")
	}
	if len(p.Formula) == 0 {
		return invalidArgumentf("at least one formula row is required")
	}
	if len(p.Formula) > MaxFormulaRows {
		return invalidArgumentf("formula has %d rows, maximum is %d", len(p.Formula), MaxFormulaRows)
	}
	for _, row := range p.Formula {
		if strings.TrimSpace(row.IngredientName) == "" {
			return invalidArgumentf("formula row has an empty ingredient name")
		}
		if !row.Percentage.IsPositive() {
			return invalidArgumentf("percentage for %q must be greater than zero", row.IngredientName)
		}
	}
	return nil
}

// =============================================================================
// PRODUCTION - Immutable record of a confirmed run
// =============================================================================

// ProducedAtLayout is the accepted timestamp format for production
// records. The empty string is the "unspecified" sentinel.
const ProducedAtLayout = "2006-01-02 15:04:05"

// Production records a confirmed run. Every confirmed production was
// fully satisfiable from stock at confirmation time; partial
// consumption is never recorded. ProductName is a snapshot so history
// survives product deletion.
type Production struct {
	ID          ProductionID
	ProductID   ProductID
	ProductName string
	Kilos       Quantity
	ProducedAt  string
	BatchNumber string
}

// NormalizeProducedAt validates a user-supplied timestamp. Blank input
// becomes the unspecified sentinel; anything else must match
// ProducedAtLayout.
func NormalizeProducedAt(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if _, err := time.Parse(ProducedAtLayout, s); err != nil {
		return "", invalidArgumentf("produced_at %q is not in %q format", s, ProducedAtLayout)
	}
	return s, nil
}
