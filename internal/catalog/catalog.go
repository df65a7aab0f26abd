package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/store"
)

var (
	// ErrLastCategory rejects deleting the sole remaining category.
	ErrLastCategory = errors.New("at least one category must remain")

	// ErrFallbackCategory rejects deleting the fallback category, which must
	// always exist for orphaned products to land in.
	ErrFallbackCategory = errors.New("fallback category cannot be deleted")

	ErrEmptyName = errors.New("name must not be empty")
)

// defaultCategories is the built-in seed list, written once when the
// categories collection is found empty.
var defaultCategories = []model.Category{
	{ID: "dairy", Name: "Dairy", Emoji: "🥛", IsDefault: true},
	{ID: "fruit", Name: "Fruit & Vegetables", Emoji: "🍎", IsDefault: true},
	{ID: "meat", Name: "Meat & Fish", Emoji: "🥩", IsDefault: true},
	{ID: "bakery", Name: "Bakery", Emoji: "🥖", IsDefault: true},
	{ID: "drinks", Name: "Drinks", Emoji: "🥤", IsDefault: true},
	{ID: "frozen", Name: "Frozen", Emoji: "🧊", IsDefault: true},
	{ID: "snacks", Name: "Snacks & Sweets", Emoji: "🍪", IsDefault: true},
	{ID: "household", Name: "Household", Emoji: "🧴", IsDefault: true},
	{ID: model.FallbackCategory, Name: "Other", Emoji: "📦", IsDefault: true},
}

// DefaultCategories returns a copy of the built-in seed list.
func DefaultCategories() []model.Category {
	out := make([]model.Category, len(defaultCategories))
	copy(out, defaultCategories)
	return out
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	invalidRunes  = regexp.MustCompile(`[^a-z0-9_]`)
)

// DeriveID turns a display name into a slug: lowercase, whitespace runs to a
// single underscore, everything outside [a-z0-9_] stripped.
func DeriveID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, "_")
	return invalidRunes.ReplaceAllString(s, "")
}

// ProductReassigner is the slice of the product repository the cascading
// deletes need.
type ProductReassigner interface {
	// ReassignCategory moves every product in fromID to toID and returns the
	// number of products touched.
	ReassignCategory(fromID, toID string) (int, error)
	// DetachShop strips the shop from every product's shop set and price map
	// and returns the number of products touched.
	DetachShop(shopID string) (int, error)
}

// Config controls seeding and display collation.
type Config struct {
	// Locale drives locale-aware name comparison for pickers and filters.
	Locale language.Tag
	// SeedShops, when non-empty, is written to an empty shops collection on
	// first load. The default is to start with no shops.
	SeedShops []model.Shop
}

// Manager owns the category and shop lifecycle. The in-memory slices mirror
// the store in insertion order and are updated only after a successful
// write.
type Manager struct {
	mu       sync.RWMutex
	store    *store.Store
	products ProductReassigner
	coll     *collate.Collator
	seeds    []model.Shop
	logger   *slog.Logger

	categories []model.Category
	shops      []model.Shop
}

func NewManager(st *store.Store, cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		store:  st,
		coll:   collate.New(cfg.Locale),
		seeds:  cfg.SeedShops,
		logger: logger,
	}
}

// AttachProducts wires the repository the cascading deletes write through.
func (m *Manager) AttachProducts(p ProductReassigner) {
	m.products = p
}

// Load rebuilds the in-memory catalog from the store, seeding empty
// collections. Seeding is persisted immediately so it runs at most once; an
// import that removed the fallback category gets it re-inserted here.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cats, err := store.GetAll[model.Category](m.store, store.Categories)
	if err != nil {
		return err
	}
	if len(cats) == 0 {
		for _, c := range defaultCategories {
			if err := m.store.Put(store.Categories, c.ID, c); err != nil {
				return fmt.Errorf("seed categories: %w", err)
			}
		}
		cats = DefaultCategories()
		m.logger.Info("seeded default categories", "count", len(cats))
	} else if !hasCategoryID(cats, model.FallbackCategory) {
		fallback := defaultCategories[len(defaultCategories)-1]
		if err := m.store.Put(store.Categories, fallback.ID, fallback); err != nil {
			return fmt.Errorf("restore fallback category: %w", err)
		}
		cats = append(cats, fallback)
		m.logger.Warn("restored missing fallback category")
	}
	m.categories = cats

	shops, err := store.GetAll[model.Shop](m.store, store.Shops)
	if err != nil {
		return err
	}
	if len(shops) == 0 && len(m.seeds) > 0 {
		for _, s := range m.seeds {
			if err := m.store.Put(store.Shops, s.ID, s); err != nil {
				return fmt.Errorf("seed shops: %w", err)
			}
		}
		shops = append(shops, m.seeds...)
		m.logger.Info("seeded shops", "count", len(shops))
	}
	m.shops = shops

	return nil
}

func hasCategoryID(cats []model.Category, id string) bool {
	for _, c := range cats {
		if c.ID == id {
			return true
		}
	}
	return false
}

// Categories returns the categories in storage insertion order, which is the
// order the shopping list groups by.
func (m *Manager) Categories() []model.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Category, len(m.categories))
	copy(out, m.categories)
	return out
}

// Shops returns the shops in storage insertion order.
func (m *Manager) Shops() []model.Shop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.Shop, len(m.shops))
	copy(out, m.shops)
	return out
}

// SortedCategories returns the categories ordered by name under the
// configured locale, for pickers and filters.
func (m *Manager) SortedCategories() []model.Category {
	out := m.Categories()
	sort.SliceStable(out, func(i, j int) bool {
		return m.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// SortedShops returns the shops ordered by name under the configured locale.
func (m *Manager) SortedShops() []model.Shop {
	out := m.Shops()
	sort.SliceStable(out, func(i, j int) bool {
		return m.coll.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// CategoryOrder returns the category ids in storage insertion order.
func (m *Manager) CategoryOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := make([]string, len(m.categories))
	for i, c := range m.categories {
		order[i] = c.ID
	}
	return order
}

func (m *Manager) Category(id string) (model.Category, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.categories {
		if c.ID == id {
			return c, true
		}
	}
	return model.Category{}, false
}

func (m *Manager) Shop(id string) (model.Shop, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.shops {
		if s.ID == id {
			return s, true
		}
	}
	return model.Shop{}, false
}

func (m *Manager) HasCategory(id string) bool {
	_, ok := m.Category(id)
	return ok
}

func (m *Manager) HasShop(id string) bool {
	_, ok := m.Shop(id)
	return ok
}

// UpsertCategory edits the category in place when id is non-empty, else
// derives a fresh slug from the name and inserts. Derived slugs that are
// already taken get a numeric suffix instead of overwriting.
func (m *Manager) UpsertCategory(id, name, emoji string) (model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Category{}, ErrEmptyName
	}
	if emoji == "" {
		emoji = "📦"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		for i, c := range m.categories {
			if c.ID == id {
				updated := model.Category{ID: id, Name: name, Emoji: emoji, IsDefault: c.IsDefault}
				if err := m.store.Put(store.Categories, id, updated); err != nil {
					return model.Category{}, err
				}
				m.categories[i] = updated
				return updated, nil
			}
		}
	}

	if id == "" {
		id = m.nextSlug(name, func(candidate string) bool {
			return hasCategoryID(m.categories, candidate)
		})
	}
	created := model.Category{ID: id, Name: name, Emoji: emoji}
	if err := m.store.Put(store.Categories, id, created); err != nil {
		return model.Category{}, err
	}
	m.categories = append(m.categories, created)
	return created, nil
}

// UpsertShop mirrors UpsertCategory for shops.
func (m *Manager) UpsertShop(id, name, emoji string) (model.Shop, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Shop{}, ErrEmptyName
	}
	if emoji == "" {
		emoji = "🛒"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id != "" {
		for i, s := range m.shops {
			if s.ID == id {
				updated := model.Shop{ID: id, Name: name, Emoji: emoji}
				if err := m.store.Put(store.Shops, id, updated); err != nil {
					return model.Shop{}, err
				}
				m.shops[i] = updated
				return updated, nil
			}
		}
	}

	if id == "" {
		id = m.nextSlug(name, func(candidate string) bool {
			for _, s := range m.shops {
				if s.ID == candidate {
					return true
				}
			}
			return false
		})
	}
	created := model.Shop{ID: id, Name: name, Emoji: emoji}
	if err := m.store.Put(store.Shops, id, created); err != nil {
		return model.Shop{}, err
	}
	m.shops = append(m.shops, created)
	return created, nil
}

// nextSlug derives a slug and disambiguates collisions with _2, _3, ...
// suffixes. Callers hold the lock.
func (m *Manager) nextSlug(name string, taken func(string) bool) string {
	base := DeriveID(name)
	if base == "" {
		base = "unnamed"
	}
	candidate := base
	for i := 2; taken(candidate); i++ {
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return candidate
}

// DeleteCategory removes the category and reassigns every product that
// referenced it to the fallback. The cascade is a sequence of per-record
// writes; a crash in the middle is healed by the reconciliation sweep on the
// next load.
func (m *Manager) DeleteCategory(id string) error {
	if id == model.FallbackCategory {
		return ErrFallbackCategory
	}

	m.mu.Lock()
	if len(m.categories) <= 1 {
		m.mu.Unlock()
		return ErrLastCategory
	}
	idx := -1
	for i, c := range m.categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return fmt.Errorf("category %q not found", id)
	}
	if err := m.store.Delete(store.Categories, id); err != nil {
		m.mu.Unlock()
		return err
	}
	m.categories = append(m.categories[:idx], m.categories[idx+1:]...)
	m.mu.Unlock()

	if m.products != nil {
		n, err := m.products.ReassignCategory(id, model.FallbackCategory)
		if err != nil {
			return fmt.Errorf("reassign products from %q: %w", id, err)
		}
		if n > 0 {
			m.logger.Info("reassigned products to fallback", "category", id, "count", n)
		}
	}
	return nil
}

// DeleteShop removes the shop and strips it from every product's shop set
// and price map. Products themselves are never deleted.
func (m *Manager) DeleteShop(id string) error {
	m.mu.Lock()
	idx := -1
	for i, s := range m.shops {
		if s.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return fmt.Errorf("shop %q not found", id)
	}
	if err := m.store.Delete(store.Shops, id); err != nil {
		m.mu.Unlock()
		return err
	}
	m.shops = append(m.shops[:idx], m.shops[idx+1:]...)
	m.mu.Unlock()

	if m.products != nil {
		n, err := m.products.DetachShop(id)
		if err != nil {
			return fmt.Errorf("detach shop %q: %w", id, err)
		}
		if n > 0 {
			m.logger.Info("detached shop from products", "shop", id, "count", n)
		}
	}
	return nil
}
