/*
errors.go - Centralized error types for the materials engine

PURPOSE:
  All domain error types in one place. Callers branch with errors.Is /
  errors.As; the HTTP layer translates them to status codes.

ERROR CATEGORIES:
  1. Uniqueness violations (duplicate ingredient/product name)
  2. Missing entities (ingredient, product, production record)
  3. Invalid input (bad percentage, negative restock, oversized formula)
  4. Insufficient stock (carries the full shortage list)

SEE ALSO:
  - workflow.go: Produces InsufficientStockError
  - store/sqlite: Translates UNIQUE constraint failures to ErrDuplicateName
*/
package inventory

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrDuplicateName is returned when an insert or rename violates
	// the uniqueness constraint on an ingredient or product name.
	ErrDuplicateName = errors.New("name already exists")

	// ErrIngredientNotFound is returned when a referenced ingredient is absent.
	ErrIngredientNotFound = errors.New("ingredient not found")

	// ErrProductNotFound is returned when a referenced product is absent.
	ErrProductNotFound = errors.New("product not found")

	// ErrProductionNotFound is returned when a production record is absent.
	ErrProductionNotFound = errors.New("production record not found")

	// ErrInvalidArgument is returned for malformed input: percentage <= 0,
	// negative restock amount, empty or oversized formula, bad timestamp.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInsufficientStock is returned when a production cannot be
	// satisfied from current stock. Unwrapped from InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
)

func invalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ShortageDetail describes one ingredient that cannot cover its
// required amount.
type ShortageDetail struct {
	IngredientName string
	Required       Quantity
	Available      Quantity
}

// InsufficientStockError carries the full per-ingredient shortage
// list, not just the first failure.
type InsufficientStockError struct {
	ProductName string
	TargetKilos Quantity
	Shortages   []ShortageDetail
}

func (e *InsufficientStockError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "insufficient stock for %s kg of %q:", e.TargetKilos, e.ProductName)
	for _, s := range e.Shortages {
		fmt.Fprintf(&b, " %s (need %s kg, have %s kg)", s.IngredientName, s.Required, s.Available)
	}
	return b.String()
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIngredientNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrProductionNotFound)
}

// IsClientError returns true if the error is due to invalid client
// input rather than an engine failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidArgument) ||
		errors.Is(err, ErrDuplicateName) ||
		errors.Is(err, ErrInsufficientStock) ||
		IsNotFound(err)
}
