// Package store provides an in-memory Store implementation for
// testing and development.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/warp/materials-engine/inventory"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements inventory.TxStore with maps. Ingredient keys are
// lower-cased for case-insensitive uniqueness; the stored Name keeps
// its original casing.
type Memory struct {
	mu          sync.RWMutex
	ingredients map[string]inventory.Ingredient
	products    map[inventory.ProductID]inventory.Product
	productions map[inventory.ProductionID]inventory.Production
}

func NewMemory() *Memory {
	return &Memory{
		ingredients: make(map[string]inventory.Ingredient),
		products:    make(map[inventory.ProductID]inventory.Product),
		productions: make(map[inventory.ProductionID]inventory.Production),
	}
}

func ingredientKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// =============================================================================
// INGREDIENTS
// =============================================================================

func (m *Memory) InsertIngredient(_ context.Context, ing inventory.Ingredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ingredientKey(ing.Name)
	if _, exists := m.ingredients[k]; exists {
		return inventory.ErrDuplicateName
	}
	m.ingredients[k] = ing
	return nil
}

func (m *Memory) GetIngredient(_ context.Context, name string) (*inventory.Ingredient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ing, ok := m.ingredients[ingredientKey(name)]
	if !ok {
		return nil, nil
	}
	return &ing, nil
}

func (m *Memory) ListIngredients(_ context.Context) ([]inventory.Ingredient, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Ingredient, 0, len(m.ingredients))
	for _, ing := range m.ingredients {
		out = append(out, ing)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (m *Memory) UpdateIngredient(_ context.Context, ing inventory.Ingredient) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ingredientKey(ing.Name)
	existing, ok := m.ingredients[k]
	if !ok {
		return inventory.ErrIngredientNotFound
	}
	existing.Quantity = ing.Quantity
	existing.Supplier = ing.Supplier
	m.ingredients[k] = existing
	return nil
}

func (m *Memory) AdjustIngredient(_ context.Context, name string, delta inventory.Quantity) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ingredientKey(name)
	existing, ok := m.ingredients[k]
	if !ok {
		// Missing ingredient: adjustment matches no row.
		return nil
	}
	existing.Quantity = existing.Quantity.Add(delta)
	m.ingredients[k] = existing
	return nil
}

func (m *Memory) DeleteIngredient(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := ingredientKey(name)
	if _, ok := m.ingredients[k]; !ok {
		return inventory.ErrIngredientNotFound
	}
	delete(m.ingredients, k)
	return nil
}

// =============================================================================
// PRODUCTS
// =============================================================================

func (m *Memory) SaveProduct(_ context.Context, p inventory.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, other := range m.products {
		if id != p.ID && other.Name == p.Name {
			return inventory.ErrDuplicateName
		}
	}
	p.Formula = append([]inventory.FormulaRow(nil), p.Formula...)
	m.products[p.ID] = p
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id inventory.ProductID) (*inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	p.Formula = append([]inventory.FormulaRow(nil), p.Formula...)
	return &p, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]inventory.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Product, 0, len(m.products))
	for _, p := range m.products {
		p.Formula = append([]inventory.FormulaRow(nil), p.Formula...)
		out = append(out, p)
	}
	// UUIDv7 ids are time-ordered, so id order is creation order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) DeleteProduct(_ context.Context, id inventory.ProductID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.products[id]; !ok {
		return inventory.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

// =============================================================================
// PRODUCTIONS
// =============================================================================

func (m *Memory) InsertProduction(_ context.Context, rec inventory.Production) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.productions[rec.ID] = rec
	return nil
}

func (m *Memory) GetProduction(_ context.Context, id inventory.ProductionID) (*inventory.Production, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.productions[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *Memory) ListProductions(_ context.Context) ([]inventory.Production, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]inventory.Production, 0, len(m.productions))
	for _, rec := range m.productions {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProducedAt != out[j].ProducedAt {
			return out[i].ProducedAt > out[j].ProducedAt
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteProduction(_ context.Context, id inventory.ProductionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.productions[id]; !ok {
		return inventory.ErrProductionNotFound
	}
	delete(m.productions, id)
	return nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx simulates a transaction: fn runs against a private clone and
// the clone replaces the live state only if fn succeeds.
func (m *Memory) WithTx(_ context.Context, fn func(inventory.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := m.cloneLocked()
	if err := fn(clone); err != nil {
		return err
	}

	m.ingredients = clone.ingredients
	m.products = clone.products
	m.productions = clone.productions
	return nil
}

func (m *Memory) cloneLocked() *Memory {
	clone := NewMemory()
	for k, v := range m.ingredients {
		clone.ingredients[k] = v
	}
	for k, v := range m.products {
		v.Formula = append([]inventory.FormulaRow(nil), v.Formula...)
		clone.products[k] = v
	}
	for k, v := range m.productions {
		clone.productions[k] = v
	}
	return clone
}
