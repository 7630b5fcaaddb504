package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/materials-engine/inventory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func kg(v float64) inventory.Quantity {
	return inventory.NewQuantity(v)
}

func pct(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v)
}

func row(name string, percentage float64) inventory.FormulaRow {
	return inventory.FormulaRow{IngredientName: name, Percentage: pct(percentage)}
}

// =============================================================================
// REQUIREMENT RESOLUTION TESTS
// =============================================================================

func TestResolve_BasicProportions(t *testing.T) {
	// GIVEN: A formula of 50% flour and 30% water
	// WHEN: Resolving for a 200 kg run
	// THEN: Flour requires 100 kg and water 60 kg, in formula order

	formula := []inventory.FormulaRow{
		row("Flour", 50),
		row("Water", 30),
	}

	reqs := inventory.Resolve(formula, kg(200))

	if len(reqs) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(reqs))
	}
	if reqs[0].IngredientName != "Flour" || !reqs[0].Required.Equal(kg(100)) {
		t.Errorf("flour: expected 100 kg, got %s for %s", reqs[0].Required, reqs[0].IngredientName)
	}
	if reqs[1].IngredientName != "Water" || !reqs[1].Required.Equal(kg(60)) {
		t.Errorf("water: expected 60 kg, got %s for %s", reqs[1].Required, reqs[1].IngredientName)
	}
}

func TestResolve_PercentagesNeedNotSumToHundred(t *testing.T) {
	// GIVEN: A formula whose percentages total 120
	// WHEN: Resolving for 100 kg
	// THEN: Each row resolves independently; no normalization happens

	formula := []inventory.FormulaRow{
		row("Base", 100),
		row("Additive", 20),
	}

	reqs := inventory.Resolve(formula, kg(100))

	if !reqs[0].Required.Equal(kg(100)) {
		t.Errorf("base: expected 100 kg, got %s", reqs[0].Required)
	}
	if !reqs[1].Required.Equal(kg(20)) {
		t.Errorf("additive: expected 20 kg, got %s", reqs[1].Required)
	}
}

func TestResolve_ExactDecimalArithmetic(t *testing.T) {
	// GIVEN: A percentage that is awkward in binary floating point
	// WHEN: Resolving 33.33% of 100 kg
	// THEN: The requirement is exactly 33.33 kg

	reqs := inventory.Resolve([]inventory.FormulaRow{row("Cocoa", 33.33)}, kg(100))

	want := inventory.MustParseQuantity("33.33")
	if !reqs[0].Required.Equal(want) {
		t.Errorf("expected exactly 33.33 kg, got %s", reqs[0].Required)
	}
}

func TestResolve_EmptyFormula(t *testing.T) {
	// GIVEN: A product with no formula rows
	// WHEN: Resolving any target
	// THEN: No requirements are produced

	reqs := inventory.Resolve(nil, kg(500))
	if len(reqs) != 0 {
		t.Fatalf("expected no requirements, got %d", len(reqs))
	}
}

// =============================================================================
// SUFFICIENCY BOUNDARY TESTS
// =============================================================================

func TestCovers_ExactMatchIsSufficient(t *testing.T) {
	// GIVEN: Available stock exactly equals the requirement
	// WHEN: Checking coverage
	// THEN: The stock covers the requirement

	if !kg(75).Covers(kg(75)) {
		t.Error("exact availability must cover the requirement")
	}
}

func TestCovers_ToleranceAbsorbsRoundingDust(t *testing.T) {
	// GIVEN: Available stock short of the requirement by less than 1e-9
	// WHEN: Checking coverage
	// THEN: The shortfall is treated as rounding noise

	available := inventory.MustParseQuantity("74.9999999995")
	if !available.Covers(kg(75)) {
		t.Error("sub-tolerance shortfall must still cover")
	}
}

func TestCovers_RealShortfallIsInsufficient(t *testing.T) {
	// GIVEN: Available stock short of the requirement by more than 1e-9
	// WHEN: Checking coverage
	// THEN: The stock does not cover

	available := inventory.MustParseQuantity("74.99999")
	if available.Covers(kg(75)) {
		t.Error("a real shortfall must not cover")
	}
}

// =============================================================================
// PRODUCT VALIDATION TESTS
// =============================================================================

func TestProductValidate_RejectsOversizedFormula(t *testing.T) {
	// GIVEN: A formula one row beyond the maximum
	// WHEN: Validating the product
	// THEN: Validation fails with an invalid-argument error

	formula := make([]inventory.FormulaRow, inventory.MaxFormulaRows+1)
	for i := range formula {
		formula[i] = row("x", 1)
	}
	p := inventory.Product{ID: inventory.NewProductID(), Name: "Overfull", Formula: formula}

	if err := p.Validate(); !inventory.IsClientError(err) {
		t.Fatalf("expected client error for %d rows, got %v", len(formula), err)
	}
}

func TestProductValidate_RejectsNonPositivePercentage(t *testing.T) {
	// GIVEN: A formula row with a zero percentage
	// WHEN: Validating the product
	// THEN: Validation fails

	p := inventory.Product{
		ID:      inventory.NewProductID(),
		Name:    "Bread",
		Formula: []inventory.FormulaRow{row("Flour", 0)},
	}
	if err := p.Validate(); err == nil {
		t.Fatal("expected error for zero percentage")
	}
}

// =============================================================================
// TIMESTAMP NORMALIZATION TESTS
// =============================================================================

func TestNormalizeProducedAt(t *testing.T) {
	// GIVEN: Blank, valid, and malformed timestamps
	// WHEN: Normalizing each
	// THEN: Blank passes through, valid is trimmed, malformed is rejected

	if got, err := inventory.NormalizeProducedAt("  "); err != nil || got != "" {
		t.Errorf("blank: got %q, %v", got, err)
	}
	if got, err := inventory.NormalizeProducedAt(" 2025-06-01 14:30:00 "); err != nil || got != "2025-06-01 14:30:00" {
		t.Errorf("valid: got %q, %v", got, err)
	}
	if _, err := inventory.NormalizeProducedAt("June 1st"); !inventory.IsClientError(err) {
		t.Errorf("malformed: expected client error, got %v", err)
	}
}
