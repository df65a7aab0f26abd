package list

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/store"
)

var (
	ErrNotFound = errors.New("product not found")

	// ErrInvalidPrice rejects negative or non-finite amounts before any
	// write; the existing price is left untouched.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrQuantityFloor signals that a decrement would take the quantity
	// below 1. Nothing is changed; the caller confirms the deletion and
	// calls Remove.
	ErrQuantityFloor = errors.New("quantity cannot drop below 1")

	ErrEmptyName = errors.New("product name must not be empty")
)

// CatalogView is the slice of the catalog manager the repository needs to
// coerce unrecognized references.
type CatalogView interface {
	HasCategory(id string) bool
	HasShop(id string) bool
}

// Recorder receives every newly created product for the re-add history.
type Recorder interface {
	Record(p model.Product) error
}

// Group is one shopping-list section: a category id and its products.
type Group struct {
	CategoryID string
	Products   []model.Product
}

// Repository owns list membership and product mutation. The in-memory slice
// mirrors the store and is updated only after the store write succeeds, so a
// failed write leaves the last known good state intact. Mutations reload the
// record immediately before writing to avoid lost updates from overlapping
// surfaces.
type Repository struct {
	mu       sync.RWMutex
	store    *store.Store
	catalog  CatalogView
	recorder Recorder
	logger   *slog.Logger

	products []model.Product
}

func NewRepository(st *store.Store, catalog CatalogView, rec Recorder, logger *slog.Logger) *Repository {
	return &Repository{
		store:    st,
		catalog:  catalog,
		recorder: rec,
		logger:   logger,
	}
}

// Load rebuilds the in-memory list from the store.
func (r *Repository) Load() error {
	products, err := store.GetAll[model.Product](r.store, store.Products)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.products = products
	r.mu.Unlock()
	return nil
}

// Add merges into an existing product on a case-insensitive name match or an
// exact barcode match: quantity goes up by one and the shop sets are
// unioned. A barcode match merges even when the names differ, so a repeat
// scan that resolved to a translated name still lands on the same row.
// Otherwise a new product is created and recorded in the history. The bool
// result reports whether the add merged.
func (r *Repository) Add(input model.ProductInput) (*model.Product, bool, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, false, ErrEmptyName
	}
	barcode := strings.TrimSpace(input.Barcode)

	r.mu.Lock()
	defer r.mu.Unlock()

	for i, p := range r.products {
		if !strings.EqualFold(p.Name, name) && (barcode == "" || p.Barcode != barcode) {
			continue
		}

		fresh, err := store.Get[model.Product](r.store, store.Products, p.ID)
		if err != nil {
			return nil, false, err
		}
		if fresh == nil {
			// The row vanished under us; fall through to create.
			break
		}

		fresh.Quantity++
		fresh.Shops = unionShops(fresh.Shops, input.Shops)
		if err := r.store.Put(store.Products, fresh.ID, fresh); err != nil {
			return nil, false, err
		}
		r.products[i] = *fresh
		return fresh, true, nil
	}

	category := input.Category
	if category == "" || (r.catalog != nil && !r.catalog.HasCategory(category)) {
		category = model.FallbackCategory
	}

	product := model.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Brand:     strings.TrimSpace(input.Brand),
		Category:  category,
		Barcode:   barcode,
		Image:     input.Image,
		Shops:     unionShops(nil, input.Shops),
		Prices:    map[string]float64{},
		Quantity:  1,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Put(store.Products, product.ID, product); err != nil {
		return nil, false, err
	}
	r.products = append(r.products, product)

	if r.recorder != nil {
		if err := r.recorder.Record(product); err != nil {
			// The product itself is persisted; a failed history write only
			// costs the quick re-add shortcut.
			r.logger.Warn("record history", "product", product.Name, "error", err)
		}
	}
	return &product, false, nil
}

// unionShops appends the ids from extra that base does not already hold,
// preserving order.
func unionShops(base, extra []string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))
	for _, id := range base {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range extra {
		if id != "" && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Get returns the product from the in-memory mirror, or nil when absent.
func (r *Repository) Get(id string) *model.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.ID == id {
			out := p
			return &out
		}
	}
	return nil
}

// Products returns the list in storage insertion order.
func (r *Repository) Products() []model.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Product, len(r.products))
	copy(out, r.products)
	return out
}

// ByShop returns the products associated with the given shop.
func (r *Repository) ByShop(shopID string) []model.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []model.Product
	for _, p := range r.products {
		for _, id := range p.Shops {
			if id == shopID {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// Stats returns the summed quantity of all products and of the completed
// ones.
func (r *Repository) Stats() (total, done int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		total += p.Quantity
		if p.Done {
			done += p.Quantity
		}
	}
	return total, done
}

// Grouped sections the list by category following the given id order, which
// the caller takes from the catalog's storage insertion order. Products
// whose category is not in the order land in trailing groups.
func (r *Repository) Grouped(order []string) []Group {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byCategory := make(map[string][]model.Product)
	var extra []string
	for _, p := range r.products {
		cat := p.Category
		if cat == "" {
			cat = model.FallbackCategory
		}
		if _, seen := byCategory[cat]; !seen && !containsID(order, cat) {
			extra = append(extra, cat)
		}
		byCategory[cat] = append(byCategory[cat], p)
	}

	var groups []Group
	for _, id := range append(append([]string{}, order...), extra...) {
		if products, ok := byCategory[id]; ok {
			groups = append(groups, Group{CategoryID: id, Products: products})
		}
	}
	return groups
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AdjustQuantity applies the delta to the current persisted quantity. A
// result below 1 is a deletion trigger, not a clamp: ErrQuantityFloor is
// returned with nothing changed, and the caller deletes after confirmation.
func (r *Repository) AdjustQuantity(id string, delta int) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	newQty := fresh.Quantity + delta
	if newQty < 1 {
		return nil, ErrQuantityFloor
	}

	fresh.Quantity = newQty
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// ToggleDone flips the completion flag.
func (r *Repository) ToggleDone(id string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	fresh.Done = !fresh.Done
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// Remove deletes the product. The history keeps its entry so the product
// stays one tap away.
func (r *Repository) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Delete(store.Products, id); err != nil {
		return err
	}
	for i, p := range r.products {
		if p.ID == id {
			r.products = append(r.products[:i], r.products[i+1:]...)
			break
		}
	}
	return nil
}

// ClearCompleted deletes every completed product and returns how many were
// removed; zero is the "nothing to do" state, not an error.
func (r *Repository) ClearCompleted() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	kept := r.products[:0]
	for i, p := range r.products {
		if !p.Done {
			kept = append(kept, p)
			continue
		}
		if err := r.store.Delete(store.Products, p.ID); err != nil {
			kept = append(kept, r.products[i:]...)
			r.products = kept
			return count, err
		}
		count++
	}
	r.products = kept
	return count, nil
}

// ClearAll empties the list.
func (r *Repository) ClearAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Clear(store.Products); err != nil {
		return err
	}
	r.products = nil
	return nil
}

// SetCategory moves the product to the given category, coercing an
// unrecognized id to the fallback.
func (r *Repository) SetCategory(id, categoryID string) (*model.Product, error) {
	if categoryID == "" || (r.catalog != nil && !r.catalog.HasCategory(categoryID)) {
		categoryID = model.FallbackCategory
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	fresh.Category = categoryID
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// SetShops replaces the product's shop set, deduplicated. Prices for shops
// no longer in the set are kept; only deleting the shop itself clears them.
func (r *Repository) SetShops(id string, shopIDs []string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	fresh.Shops = unionShops(nil, shopIDs)
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// SetPrice records the product's price at the given shop. The amount must be
// finite and non-negative; anything else is rejected before any write.
func (r *Repository) SetPrice(id, shopID string, amount float64) (*model.Product, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, amount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	if fresh.Prices == nil {
		fresh.Prices = map[string]float64{}
	}
	fresh.Prices[shopID] = amount
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// ClearPrice removes the product's price entry for the given shop.
func (r *Repository) ClearPrice(id, shopID string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh, err := store.Get[model.Product](r.store, store.Products, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, ErrNotFound
	}

	delete(fresh.Prices, shopID)
	if err := r.store.Put(store.Products, id, fresh); err != nil {
		return nil, err
	}
	r.replace(*fresh)
	return fresh, nil
}

// ReassignCategory moves every product in fromID to toID, persisting each.
func (r *Repository) ReassignCategory(fromID, toID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i, p := range r.products {
		if p.Category != fromID {
			continue
		}
		p.Category = toID
		if err := r.store.Put(store.Products, p.ID, p); err != nil {
			return count, err
		}
		r.products[i] = p
		count++
	}
	return count, nil
}

// DetachShop strips the shop from every product's shop set and price map
// without touching any other field. The working copy is detached from the
// cache's slice and map backing so a failed write leaves the mirror on the
// last known good state.
func (r *Repository) DetachShop(shopID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for i, p := range r.products {
		touched := false
		for j, id := range p.Shops {
			if id == shopID {
				p.Shops = append(append([]string{}, p.Shops[:j]...), p.Shops[j+1:]...)
				touched = true
				break
			}
		}
		if _, ok := p.Prices[shopID]; ok {
			p.Prices = maps.Clone(p.Prices)
			delete(p.Prices, shopID)
			touched = true
		}
		if !touched {
			continue
		}
		if err := r.store.Put(store.Products, p.ID, p); err != nil {
			return count, err
		}
		r.products[i] = p
		count++
	}
	return count, nil
}

// Reconcile sweeps the list for records left inconsistent by an interrupted
// cascade or written by an older schema: dangling category references go to
// the fallback, dangling shop and price references are stripped, and missing
// quantity fields are raised to the minimum. Safe to re-run; returns the
// number of products repaired.
func (r *Repository) Reconcile() (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fixed := 0
	for i, p := range r.products {
		dirty := false

		if p.Category == "" || (r.catalog != nil && !r.catalog.HasCategory(p.Category)) {
			p.Category = model.FallbackCategory
			dirty = true
		}
		if p.Quantity < 1 {
			p.Quantity = 1
			dirty = true
		}
		if r.catalog != nil {
			kept := make([]string, 0, len(p.Shops))
			for _, id := range p.Shops {
				if r.catalog.HasShop(id) {
					kept = append(kept, id)
				} else {
					dirty = true
				}
			}
			if len(kept) != len(p.Shops) {
				p.Shops = kept
			}
			var stale []string
			for id := range p.Prices {
				if !r.catalog.HasShop(id) {
					stale = append(stale, id)
				}
			}
			if len(stale) > 0 {
				p.Prices = maps.Clone(p.Prices)
				for _, id := range stale {
					delete(p.Prices, id)
				}
				dirty = true
			}
		}
		if p.Shops == nil {
			p.Shops = []string{}
			dirty = true
		}

		if !dirty {
			continue
		}
		if err := r.store.Put(store.Products, p.ID, p); err != nil {
			return fixed, err
		}
		r.products[i] = p
		fixed++
	}

	if fixed > 0 {
		r.logger.Info("reconciled products", "count", fixed)
	}
	return fixed, nil
}

func (r *Repository) replace(p model.Product) {
	for i := range r.products {
		if r.products[i].ID == p.ID {
			r.products[i] = p
			return
		}
	}
	r.products = append(r.products, p)
}
