/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types
  decouple the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

PRECISION:
  The domain stores quantities as exact decimals. Responses round to 6
  decimal places for display; that rounding happens here and only
  here. Request bodies carry numeric fields as json.Number so client
  values reach the decimal layer without a float64 round-trip.

SEE ALSO:
  - handlers.go: Uses these types
  - inventory/types.go: Domain model
*/
package api

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/materials-engine/inventory"
)

// =============================================================================
// INGREDIENTS
// =============================================================================

// IngredientDTO represents an ingredient in API responses.
type IngredientDTO struct {
	Name       string  `json:"name"`
	QuantityKg float64 `json:"quantity_kg"`
	Supplier   string  `json:"supplier"`
	Position   int     `json:"position,omitempty"`
	Odd        bool    `json:"odd,omitempty"`
}

// CreateIngredientRequest is the request to register an ingredient.
type CreateIngredientRequest struct {
	Name       string      `json:"name"`
	QuantityKg json.Number `json:"quantity_kg"`
	Supplier   string      `json:"supplier"`
}

// UpdateIngredientRequest replaces quantity and supplier.
type UpdateIngredientRequest struct {
	QuantityKg json.Number `json:"quantity_kg"`
	Supplier   string      `json:"supplier"`
}

// RestockRequest adds stock to an existing ingredient.
type RestockRequest struct {
	AddedKg json.Number `json:"added_kg"`
}

// =============================================================================
// PRODUCTS
// =============================================================================

// FormulaRowDTO is one ingredient line of a product formula.
type FormulaRowDTO struct {
	IngredientName string  `json:"ingredient_name"`
	Percentage     float64 `json:"percentage"`
}

// ProductDTO represents a product and its formula in API responses.
type ProductDTO struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Formula []FormulaRowDTO `json:"formula"`
}

// FormulaRowInput is one formula line in a save request.
type FormulaRowInput struct {
	IngredientName string      `json:"ingredient_name"`
	Percentage     json.Number `json:"percentage"`
}

// SaveProductRequest creates or replaces a product definition.
type SaveProductRequest struct {
	Name    string            `json:"name"`
	Formula []FormulaRowInput `json:"formula"`
}

// =============================================================================
// PRODUCTIONS
// =============================================================================

// CheckProductionRequest asks whether stock covers a production run.
type CheckProductionRequest struct {
	ProductID string      `json:"product_id"`
	Kilos     json.Number `json:"kilos"`
}

// RequirementStatusDTO is the per-ingredient result of a check.
type RequirementStatusDTO struct {
	IngredientName string  `json:"ingredient_name"`
	Percentage     float64 `json:"percentage"`
	RequiredKg     float64 `json:"required_kg"`
	AvailableKg    float64 `json:"available_kg"`
	Sufficient     bool    `json:"sufficient"`
}

// CheckProductionResponse wraps the check results.
type CheckProductionResponse struct {
	Requirements []RequirementStatusDTO `json:"requirements"`
	AllCovered   bool                   `json:"all_covered"`
}

// ConfirmProductionRequest records a production run.
type ConfirmProductionRequest struct {
	ProductID   string      `json:"product_id"`
	Kilos       json.Number `json:"kilos"`
	ProducedAt  string      `json:"produced_at,omitempty"`
	BatchNumber string      `json:"batch_number,omitempty"`
}

// ProductionDTO represents a production record in API responses.
type ProductionDTO struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	KilosKg     float64 `json:"kilos_produced"`
	ProducedAt  string  `json:"produced_at,omitempty"`
	BatchNumber string  `json:"batch_number,omitempty"`
}

// =============================================================================
// ADMIN / ERRORS
// =============================================================================

// BackupRequest names the destination file for a database backup.
type BackupRequest struct {
	Path string `json:"path"`
}

// ShortageDTO is one insufficient ingredient in a rejected confirmation.
type ShortageDTO struct {
	IngredientName string  `json:"ingredient_name"`
	RequiredKg     float64 `json:"required_kg"`
	AvailableKg    float64 `json:"available_kg"`
}

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error     string        `json:"error"`
	Details   string        `json:"details,omitempty"`
	Shortages []ShortageDTO `json:"shortages,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toIngredientDTO(row inventory.IngredientRow) IngredientDTO {
	return IngredientDTO{
		Name:       row.Name,
		QuantityKg: row.Quantity.Display(),
		Supplier:   row.Supplier,
		Position:   row.Position,
		Odd:        row.Odd,
	}
}

func toProductDTO(p inventory.Product) ProductDTO {
	formula := make([]FormulaRowDTO, len(p.Formula))
	for i, row := range p.Formula {
		formula[i] = FormulaRowDTO{
			IngredientName: row.IngredientName,
			Percentage:     row.Percentage.Round(6).InexactFloat64(),
		}
	}
	return ProductDTO{ID: string(p.ID), Name: p.Name, Formula: formula}
}

func toProductionDTO(rec inventory.Production) ProductionDTO {
	return ProductionDTO{
		ID:          string(rec.ID),
		ProductID:   string(rec.ProductID),
		ProductName: rec.ProductName,
		KilosKg:     rec.Kilos.Display(),
		ProducedAt:  rec.ProducedAt,
		BatchNumber: rec.BatchNumber,
	}
}

func toRequirementStatusDTOs(statuses []inventory.RequirementStatus) ([]RequirementStatusDTO, bool) {
	dtos := make([]RequirementStatusDTO, len(statuses))
	allCovered := true
	for i, st := range statuses {
		dtos[i] = RequirementStatusDTO{
			IngredientName: st.IngredientName,
			Percentage:     st.Percentage.Round(6).InexactFloat64(),
			RequiredKg:     st.Required.Display(),
			AvailableKg:    st.Available.Display(),
			Sufficient:     st.Sufficient,
		}
		if !st.Sufficient {
			allCovered = false
		}
	}
	return dtos, allCovered
}

// parseQuantity converts a json.Number body field to a Quantity without
// losing digits to a float64 round-trip.
func parseQuantity(raw json.Number, field string) (inventory.Quantity, error) {
	if raw.String() == "" {
		return inventory.NewQuantity(0), nil
	}
	d, err := decimal.NewFromString(raw.String())
	if err != nil {
		return inventory.Quantity{}, fmt.Errorf("invalid %s: %q", field, raw.String())
	}
	return inventory.QuantityFromDecimal(d), nil
}

func parsePercentage(raw json.Number) (decimal.Decimal, error) {
	return decimal.NewFromString(raw.String())
}
