/*
workflow.go - Production workflow: check, confirm, reverse

PURPOSE:
  Orchestrates the production/inventory consistency rules. A production
  attempt moves Planned → Checked → Confirmed or Rejected.

CHECK:
  Resolves the formula, pairs each requirement with ledger
  availability, and flags insufficiency when available + 1e-9 <
  required. Side-effect-free.

CONFIRM:
  Re-runs the check inside a single transaction (a prior check result
  is never trusted), and either:
  - fails with InsufficientStockError carrying the full shortage list,
    mutating nothing, or
  - debits every required ingredient and appends one production record.
  Debit-all + append-record commit or roll back together: a crash
  mid-confirmation cannot leave stock debited without a matching
  history record.

REVERSE:
  Reads the record, re-resolves the CURRENT formula of the referenced
  product against the recorded kilos, credits every amount back, and
  deletes the record — all in one transaction. If the formula changed
  since confirmation the restoration is inexact; that drift matches
  the observed behavior this engine preserves (see DESIGN.md). A
  deleted product resolves to zero rows, so reversal then only removes
  the record.

SEE ALSO:
  - resolver.go: Requirement computation
  - ledger.go: Debit/credit primitives
  - store.go: WithTx contract
*/
package inventory

import "context"

// RequirementStatus pairs a resolved requirement with current
// availability.
type RequirementStatus struct {
	Requirement
	Available  Quantity
	Sufficient bool
}

// ConfirmRequest carries the inputs for confirming a production run.
// ProducedAt is either blank (unspecified) or a ProducedAtLayout
// timestamp; BatchNumber is free-form and optional.
type ConfirmRequest struct {
	ProductID   ProductID
	Kilos       Quantity
	ProducedAt  string
	BatchNumber string
}

// Workflow coordinates resolver, ledger, and store for production
// runs. All mutations go through the store's transaction support.
type Workflow struct {
	store TxStore
}

func NewWorkflow(store TxStore) *Workflow {
	return &Workflow{store: store}
}

// =============================================================================
// CHECK
// =============================================================================

// CheckRequirements reports required vs available per ingredient for
// producing target kilos of the product. Read-only.
func (w *Workflow) CheckRequirements(ctx context.Context, productID ProductID, target Quantity) ([]RequirementStatus, error) {
	product, err := w.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return evaluateRequirements(ctx, w.store, product.Formula, target)
}

func evaluateRequirements(ctx context.Context, store Store, formula []FormulaRow, target Quantity) ([]RequirementStatus, error) {
	ledger := NewStockLedger(store)
	reqs := Resolve(formula, target)
	statuses := make([]RequirementStatus, len(reqs))
	for i, req := range reqs {
		available, err := ledger.Available(ctx, req.IngredientName)
		if err != nil {
			return nil, err
		}
		statuses[i] = RequirementStatus{
			Requirement: req,
			Available:   available,
			Sufficient:  available.Covers(req.Required),
		}
	}
	return statuses, nil
}

// =============================================================================
// CONFIRM
// =============================================================================

// ConfirmProduction validates sufficiency and, if every ingredient is
// covered, debits stock and appends the production record atomically.
// On any shortage it returns *InsufficientStockError and mutates
// nothing.
func (w *Workflow) ConfirmProduction(ctx context.Context, req ConfirmRequest) (ProductionID, error) {
	producedAt, err := NormalizeProducedAt(req.ProducedAt)
	if err != nil {
		return "", err
	}

	id := NewProductionID()
	err = w.store.WithTx(ctx, func(s Store) error {
		product, err := s.GetProduct(ctx, req.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return ErrProductNotFound
		}

		// Never trust a stale prior check.
		statuses, err := evaluateRequirements(ctx, s, product.Formula, req.Kilos)
		if err != nil {
			return err
		}

		var shortages []ShortageDetail
		for _, st := range statuses {
			if !st.Sufficient {
				shortages = append(shortages, ShortageDetail{
					IngredientName: st.IngredientName,
					Required:       st.Required,
					Available:      st.Available,
				})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{
				ProductName: product.Name,
				TargetKilos: req.Kilos,
				Shortages:   shortages,
			}
		}

		ledger := NewStockLedger(s)
		for _, st := range statuses {
			if err := ledger.Debit(ctx, st.IngredientName, st.Required); err != nil {
				return err
			}
		}

		return s.InsertProduction(ctx, Production{
			ID:          id,
			ProductID:   product.ID,
			ProductName: product.Name,
			Kilos:       req.Kilos,
			ProducedAt:  producedAt,
			BatchNumber: req.BatchNumber,
		})
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// =============================================================================
// REVERSE
// =============================================================================

// ReverseProduction credits back the quantities implied by the
// product's current formula and deletes the record, atomically.
func (w *Workflow) ReverseProduction(ctx context.Context, id ProductionID) error {
	return w.store.WithTx(ctx, func(s Store) error {
		rec, err := s.GetProduction(ctx, id)
		if err != nil {
			return err
		}
		if rec == nil {
			return ErrProductionNotFound
		}

		product, err := s.GetProduct(ctx, rec.ProductID)
		if err != nil {
			return err
		}
		if product != nil {
			ledger := NewStockLedger(s)
			for _, req := range Resolve(product.Formula, rec.Kilos) {
				if err := ledger.Credit(ctx, req.IngredientName, req.Required); err != nil {
					return err
				}
			}
		}

		return s.DeleteProduction(ctx, rec.ID)
	})
}
