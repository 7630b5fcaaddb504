package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/warp/materials-engine/api"
	"github.com/warp/materials-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return api.NewRouter(api.NewHandler(store))
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
	}
}

// seedBread registers 100 kg of flour and a Bread product at 50% flour,
// returning the product id.
func seedBread(t *testing.T, h http.Handler) string {
	t.Helper()

	rec := doJSON(t, h, "POST", "/api/ingredients", map[string]any{
		"name":        "Flour",
		"quantity_kg": 100,
		"supplier":    "Mill Co",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed ingredient: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/products", map[string]any{
		"name": "Bread",
		"formula": []map[string]any{
			{"ingredient_name": "Flour", "percentage": 50},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed product: status %d: %s", rec.Code, rec.Body.String())
	}

	var product struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &product)
	return product.ID
}

// =============================================================================
// INGREDIENT ENDPOINT TESTS
// =============================================================================

func TestAPI_IngredientLifecycle(t *testing.T) {
	h := newTestServer(t)

	// Create
	rec := doJSON(t, h, "POST", "/api/ingredients", map[string]any{
		"name":        "Sugar",
		"quantity_kg": 10.5,
		"supplier":    "Sweet Inc",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: status %d: %s", rec.Code, rec.Body.String())
	}

	// List carries display position and row parity
	rec = doJSON(t, h, "GET", "/api/ingredients", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var list []struct {
		Name       string  `json:"name"`
		QuantityKg float64 `json:"quantity_kg"`
		Position   int     `json:"position"`
		Odd        bool    `json:"odd"`
	}
	decodeBody(t, rec, &list)
	if len(list) != 1 || list[0].Name != "Sugar" || list[0].Position != 1 || !list[0].Odd {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Restock
	rec = doJSON(t, h, "POST", "/api/ingredients/Sugar/restock", map[string]any{"added_kg": 4.5})
	if rec.Code != http.StatusOK {
		t.Fatalf("restock: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "GET", "/api/ingredients/Sugar", nil)
	var got struct {
		QuantityKg float64 `json:"quantity_kg"`
	}
	decodeBody(t, rec, &got)
	if got.QuantityKg != 15 {
		t.Errorf("expected 15 kg after restock, got %v", got.QuantityKg)
	}

	// Delete
	rec = doJSON(t, h, "DELETE", "/api/ingredients/Sugar", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, h, "GET", "/api/ingredients/Sugar", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestAPI_DuplicateIngredientConflict(t *testing.T) {
	h := newTestServer(t)

	body := map[string]any{"name": "Salt", "quantity_kg": 1}
	if rec := doJSON(t, h, "POST", "/api/ingredients", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create: status %d", rec.Code)
	}

	rec := doJSON(t, h, "POST", "/api/ingredients", map[string]any{"name": "SALT", "quantity_kg": 2})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_RestockNegativeRejected(t *testing.T) {
	h := newTestServer(t)
	seedBread(t, h)

	rec := doJSON(t, h, "POST", "/api/ingredients/Flour/restock", map[string]any{"added_kg": -5})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// PRODUCT ENDPOINT TESTS
// =============================================================================

func TestAPI_ProductValidation(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, "POST", "/api/products", map[string]any{
		"name": "Broken",
		"formula": []map[string]any{
			{"ingredient_name": "Flour", "percentage": 0},
		},
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero percentage, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAPI_UpdateProductReplacesFormula(t *testing.T) {
	h := newTestServer(t)
	productID := seedBread(t, h)

	rec := doJSON(t, h, "PUT", "/api/products/"+productID, map[string]any{
		"name": "Bread",
		"formula": []map[string]any{
			{"ingredient_name": "Flour", "percentage": 40},
			{"ingredient_name": "Water", "percentage": 30},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "GET", "/api/products/"+productID, nil)
	var product struct {
		Formula []struct {
			IngredientName string  `json:"ingredient_name"`
			Percentage     float64 `json:"percentage"`
		} `json:"formula"`
	}
	decodeBody(t, rec, &product)
	if len(product.Formula) != 2 || product.Formula[0].Percentage != 40 {
		t.Fatalf("unexpected formula: %+v", product.Formula)
	}
}

func TestAPI_UnknownProductNotFound(t *testing.T) {
	h := newTestServer(t)

	rec := doJSON(t, h, "GET", "/api/products/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// =============================================================================
// PRODUCTION ENDPOINT TESTS
// =============================================================================

func TestAPI_CheckConfirmReverseFlow(t *testing.T) {
	h := newTestServer(t)
	productID := seedBread(t, h)

	// Check: 150 kg of bread needs 75 kg of flour, 100 on hand
	rec := doJSON(t, h, "POST", "/api/productions/check", map[string]any{
		"product_id": productID,
		"kilos":      150,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("check: status %d: %s", rec.Code, rec.Body.String())
	}
	var check struct {
		AllCovered   bool `json:"all_covered"`
		Requirements []struct {
			IngredientName string  `json:"ingredient_name"`
			RequiredKg     float64 `json:"required_kg"`
			AvailableKg    float64 `json:"available_kg"`
			Sufficient     bool    `json:"sufficient"`
		} `json:"requirements"`
	}
	decodeBody(t, rec, &check)
	if !check.AllCovered || len(check.Requirements) != 1 {
		t.Fatalf("unexpected check result: %+v", check)
	}
	if check.Requirements[0].RequiredKg != 75 || check.Requirements[0].AvailableKg != 100 {
		t.Fatalf("unexpected requirement: %+v", check.Requirements[0])
	}

	// Confirm debits stock
	rec = doJSON(t, h, "POST", "/api/productions", map[string]any{
		"product_id":   productID,
		"kilos":        150,
		"produced_at":  "2025-06-01 08:00:00",
		"batch_number": "B-42",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm: status %d: %s", rec.Code, rec.Body.String())
	}
	var confirmed struct {
		ID string `json:"id"`
	}
	decodeBody(t, rec, &confirmed)

	rec = doJSON(t, h, "GET", "/api/ingredients/Flour", nil)
	var flour struct {
		QuantityKg float64 `json:"quantity_kg"`
	}
	decodeBody(t, rec, &flour)
	if flour.QuantityKg != 25 {
		t.Fatalf("expected 25 kg after confirm, got %v", flour.QuantityKg)
	}

	// History shows the record with the name snapshot
	rec = doJSON(t, h, "GET", "/api/productions", nil)
	var history []struct {
		ID          string `json:"id"`
		ProductName string `json:"product_name"`
		BatchNumber string `json:"batch_number"`
	}
	decodeBody(t, rec, &history)
	if len(history) != 1 || history[0].ProductName != "Bread" || history[0].BatchNumber != "B-42" {
		t.Fatalf("unexpected history: %+v", history)
	}

	// Reverse credits the stock back and removes the record
	rec = doJSON(t, h, "DELETE", "/api/productions/"+confirmed.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reverse: status %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "GET", "/api/ingredients/Flour", nil)
	decodeBody(t, rec, &flour)
	if flour.QuantityKg != 100 {
		t.Fatalf("expected 100 kg after reverse, got %v", flour.QuantityKg)
	}
}

func TestAPI_ConfirmInsufficientStock(t *testing.T) {
	h := newTestServer(t)
	productID := seedBread(t, h)

	// 300 kg of bread needs 150 kg of flour, only 100 on hand
	rec := doJSON(t, h, "POST", "/api/productions", map[string]any{
		"product_id": productID,
		"kilos":      300,
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Error     string `json:"error"`
		Shortages []struct {
			IngredientName string  `json:"ingredient_name"`
			RequiredKg     float64 `json:"required_kg"`
			AvailableKg    float64 `json:"available_kg"`
		} `json:"shortages"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Shortages) != 1 {
		t.Fatalf("expected one shortage, got %+v", resp)
	}
	if resp.Shortages[0].IngredientName != "Flour" || resp.Shortages[0].RequiredKg != 150 {
		t.Fatalf("unexpected shortage: %+v", resp.Shortages[0])
	}

	// Stock untouched
	rec = doJSON(t, h, "GET", "/api/ingredients/Flour", nil)
	var flour struct {
		QuantityKg float64 `json:"quantity_kg"`
	}
	decodeBody(t, rec, &flour)
	if flour.QuantityKg != 100 {
		t.Fatalf("stock changed on rejected confirm: %v", flour.QuantityKg)
	}
}

func TestAPI_MalformedTimestampRejected(t *testing.T) {
	h := newTestServer(t)
	productID := seedBread(t, h)

	rec := doJSON(t, h, "POST", "/api/productions", map[string]any{
		"product_id":  productID,
		"kilos":       10,
		"produced_at": "yesterday",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

// =============================================================================
// METRICS TESTS
// =============================================================================

func TestAPI_MetricsExposeWorkflowCounters(t *testing.T) {
	h := newTestServer(t)
	productID := seedBread(t, h)

	rec := doJSON(t, h, "POST", "/api/productions", map[string]any{
		"product_id": productID,
		"kilos":      100,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("confirm: status %d", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: status %d", rec.Code)
	}
	body := rec.Body.String()
	want := "materials_productions_confirmed_total 1"
	if !strings.Contains(body, want) {
		t.Errorf("metrics output missing %q", want)
	}
}
