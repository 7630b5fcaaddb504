/*
handlers.go - HTTP API handlers for the materials engine

PURPOSE:
  Exposes the inventory engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Ingredients:
    GET    /api/ingredients                  List raw materials
    POST   /api/ingredients                  Register ingredient
    GET    /api/ingredients/{name}           Get ingredient
    PUT    /api/ingredients/{name}           Replace quantity/supplier
    POST   /api/ingredients/{name}/restock   Add stock
    DELETE /api/ingredients/{name}           Remove ingredient

  Products:
    GET    /api/products                     List products with formulas
    POST   /api/products                     Create product
    GET    /api/products/{id}                Get product
    PUT    /api/products/{id}                Replace product and formula
    DELETE /api/products/{id}                Remove product

  Productions:
    GET    /api/productions                  Production history
    POST   /api/productions/check            Dry-run sufficiency check
    POST   /api/productions                  Confirm a run (debits stock)
    DELETE /api/productions/{id}             Reverse a run (credits stock)

  Admin:
    POST   /api/admin/backup                 Copy the database file

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Duplicate name, insufficient stock (with shortage list)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/warp/materials-engine/inventory"
	"github.com/warp/materials-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Workflow *inventory.Workflow
	Ledger   *inventory.StockLedger
	Reports  *inventory.Reports
	Metrics  *Metrics
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{
		Store:    store,
		Workflow: inventory.NewWorkflow(store),
		Ledger:   inventory.NewStockLedger(store),
		Reports:  inventory.NewReports(store),
		Metrics:  NewMetrics(),
	}
}

// =============================================================================
// INGREDIENT HANDLERS
// =============================================================================

// ListIngredients returns all ingredients in display order.
func (h *Handler) ListIngredients(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Reports.IngredientRows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list ingredients", err)
		return
	}

	dtos := make([]IngredientDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toIngredientDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateIngredient registers a new raw material.
func (h *Handler) CreateIngredient(w http.ResponseWriter, r *http.Request) {
	var req CreateIngredientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	qty, err := parseQuantity(req.QuantityKg, "quantity_kg")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}

	if err := h.Ledger.AddIngredient(r.Context(), req.Name, qty, req.Supplier); err != nil {
		writeDomainError(w, "Failed to create ingredient", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"name": strings.TrimSpace(req.Name)})
}

// GetIngredient returns a single ingredient by name.
func (h *Handler) GetIngredient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	ing, err := h.Store.GetIngredient(r.Context(), name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get ingredient", err)
		return
	}
	if ing == nil {
		writeError(w, http.StatusNotFound, "Ingredient not found", nil)
		return
	}

	writeJSON(w, http.StatusOK, IngredientDTO{
		Name:       ing.Name,
		QuantityKg: ing.Quantity.Display(),
		Supplier:   ing.Supplier,
	})
}

// UpdateIngredient replaces quantity and supplier.
func (h *Handler) UpdateIngredient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req UpdateIngredientRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	qty, err := parseQuantity(req.QuantityKg, "quantity_kg")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantity", err)
		return
	}

	if err := h.Ledger.UpdateIngredient(r.Context(), name, qty, req.Supplier); err != nil {
		writeDomainError(w, "Failed to update ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// RestockIngredient adds stock to an existing ingredient.
func (h *Handler) RestockIngredient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var req RestockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	added, err := parseQuantity(req.AddedKg, "added_kg")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}

	if err := h.Ledger.Restock(r.Context(), name, added); err != nil {
		writeDomainError(w, "Failed to restock ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restocked"})
}

// DeleteIngredient removes an ingredient from the ledger.
func (h *Handler) DeleteIngredient(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	if err := h.Ledger.DeleteIngredient(r.Context(), name); err != nil {
		writeDomainError(w, "Failed to delete ingredient", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products with their formulas.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Reports.Products(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateProduct creates a product with its formula.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req SaveProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.productFromRequest(inventory.NewProductID(), req)
	if err != nil {
		writeDomainError(w, "Invalid product", err)
		return
	}

	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		writeDomainError(w, "Failed to create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// GetProduct returns a single product with its formula.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	product, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// UpdateProduct replaces an existing product's name and formula.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}

	var req SaveProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	product, err := h.productFromRequest(id, req)
	if err != nil {
		writeDomainError(w, "Invalid product", err)
		return
	}

	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		writeDomainError(w, "Failed to update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(product))
}

// DeleteProduct removes a product and its formula rows.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductID(chi.URLParam(r, "id"))

	if err := h.Store.DeleteProduct(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to delete product", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// productFromRequest builds and validates a domain Product from a save
// request.
func (h *Handler) productFromRequest(id inventory.ProductID, req SaveProductRequest) (inventory.Product, error) {
	formula := make([]inventory.FormulaRow, len(req.Formula))
	for i, row := range req.Formula {
		pct, err := parsePercentage(row.Percentage)
		if err != nil {
			return inventory.Product{}, inventory.ErrInvalidArgument
		}
		formula[i] = inventory.FormulaRow{
			IngredientName: strings.TrimSpace(row.IngredientName),
			Percentage:     pct,
		}
	}

	product := inventory.Product{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Formula: formula,
	}
	if err := product.Validate(); err != nil {
		return inventory.Product{}, err
	}
	return product, nil
}

// =============================================================================
// PRODUCTION HANDLERS
// =============================================================================

// ListProductions returns production history newest-first.
func (h *Handler) ListProductions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Reports.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list productions", err)
		return
	}

	dtos := make([]ProductionDTO, len(records))
	for i, rec := range records {
		dtos[i] = toProductionDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CheckProduction reports required vs available stock without mutating
// anything.
func (h *Handler) CheckProduction(w http.ResponseWriter, r *http.Request) {
	var req CheckProductionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kilos, err := parseQuantity(req.Kilos, "kilos")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kilos", err)
		return
	}

	statuses, err := h.Workflow.CheckRequirements(r.Context(), inventory.ProductID(req.ProductID), kilos)
	if err != nil {
		writeDomainError(w, "Failed to check requirements", err)
		return
	}

	dtos, allCovered := toRequirementStatusDTOs(statuses)
	writeJSON(w, http.StatusOK, CheckProductionResponse{
		Requirements: dtos,
		AllCovered:   allCovered,
	})
}

// ConfirmProduction validates sufficiency and records the run,
// debiting stock atomically.
func (h *Handler) ConfirmProduction(w http.ResponseWriter, r *http.Request) {
	var req ConfirmProductionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	kilos, err := parseQuantity(req.Kilos, "kilos")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid kilos", err)
		return
	}

	id, err := h.Workflow.ConfirmProduction(r.Context(), inventory.ConfirmRequest{
		ProductID:   inventory.ProductID(req.ProductID),
		Kilos:       kilos,
		ProducedAt:  req.ProducedAt,
		BatchNumber: req.BatchNumber,
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			h.Metrics.InsufficientRejections.Inc()
		}
		writeDomainError(w, "Failed to confirm production", err)
		return
	}

	h.Metrics.ProductionsConfirmed.Inc()
	writeJSON(w, http.StatusCreated, map[string]string{"id": string(id)})
}

// ReverseProduction credits stock back and deletes the record.
func (h *Handler) ReverseProduction(w http.ResponseWriter, r *http.Request) {
	id := inventory.ProductionID(chi.URLParam(r, "id"))

	if err := h.Workflow.ReverseProduction(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to reverse production", err)
		return
	}

	h.Metrics.ProductionsReversed.Inc()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reversed"})
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// BackupDatabase copies the live database file to the requested path.
func (h *Handler) BackupDatabase(w http.ResponseWriter, r *http.Request) {
	var req BackupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, http.StatusBadRequest, "Backup path is required", nil)
		return
	}

	if err := h.Store.Backup(r.Context(), req.Path); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to back up database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "backed_up", "path": req.Path})
}

// =============================================================================
// HELPERS
// =============================================================================

// decodeJSON decodes a request body with numbers preserved as
// json.Number, so decimal inputs survive intact.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP statuses. Insufficient
// stock carries the full shortage list in the response body.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	var insufficient *inventory.InsufficientStockError
	if errors.As(err, &insufficient) {
		shortages := make([]ShortageDTO, len(insufficient.Shortages))
		for i, s := range insufficient.Shortages {
			shortages[i] = ShortageDTO{
				IngredientName: s.IngredientName,
				RequiredKg:     s.Required.Display(),
				AvailableKg:    s.Available.Display(),
			}
		}
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "Insufficient stock",
			Details:   err.Error(),
			Shortages: shortages,
		})
		return
	}

	switch {
	case errors.Is(err, inventory.ErrDuplicateName):
		writeError(w, http.StatusConflict, message, err)
	case inventory.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, inventory.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
