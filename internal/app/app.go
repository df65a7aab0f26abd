// Package app wires the components into one explicit application-state
// object: no ambient globals, every cache owned here and rebuilt from the
// store on load.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/spesasmart/spesasmart/internal/catalog"
	"github.com/spesasmart/spesasmart/internal/history"
	"github.com/spesasmart/spesasmart/internal/list"
	"github.com/spesasmart/spesasmart/internal/logging"
	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/pricing"
	"github.com/spesasmart/spesasmart/internal/snapshot"
	"github.com/spesasmart/spesasmart/internal/store"
)

// Config holds the deployment choices.
type Config struct {
	// Locale drives locale-aware sorting of catalog names.
	Locale language.Tag
	// SeedShops optionally pre-populates an empty shops collection on first
	// run.
	SeedShops []model.Shop
}

// App owns the store and the component caches built over it.
type App struct {
	Catalog  *catalog.Manager
	Products *list.Repository
	History  *history.Tracker
	Ranker   *pricing.Ranker

	store  *store.Store
	codec  *snapshot.Codec
	logger *slog.Logger
}

// New builds the application state over an opened database and loads it.
// A nil logger falls back to the default console logger.
func New(db *sql.DB, cfg Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Setup("info")
	}
	st := store.New(db)

	mgr := catalog.NewManager(st, catalog.Config{
		Locale:    cfg.Locale,
		SeedShops: cfg.SeedShops,
	}, logger.With("component", "catalog"))
	tracker := history.NewTracker(st, logger.With("component", "history"))
	repo := list.NewRepository(st, mgr, tracker, logger.With("component", "list"))
	mgr.AttachProducts(repo)

	a := &App{
		Catalog:  mgr,
		Products: repo,
		History:  tracker,
		Ranker:   pricing.NewRanker(cfg.Locale),
		store:    st,
		codec:    snapshot.NewCodec(st, catalog.DefaultCategories(), logger.With("component", "snapshot")),
		logger:   logger,
	}
	if err := a.Reload(); err != nil {
		return nil, err
	}
	return a, nil
}

// Reload rebuilds every in-memory cache from the store and repairs records
// left inconsistent by an interrupted cascade or an older schema.
func (a *App) Reload() error {
	if err := a.Catalog.Load(); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	if err := a.Products.Load(); err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	if err := a.History.Load(); err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if _, err := a.Products.Reconcile(); err != nil {
		return fmt.Errorf("reconcile products: %w", err)
	}
	return nil
}

// ReAdd forwards a history entry back into the list and refreshes the
// entry's recency, whether the add merged or created.
func (a *App) ReAdd(entryID string) (*model.Product, bool, error) {
	entry, ok := a.History.Get(entryID)
	if !ok {
		return nil, false, fmt.Errorf("history entry %q not found", entryID)
	}

	product, merged, err := a.Products.Add(model.ProductInput{
		Name:     entry.Name,
		Brand:    entry.Brand,
		Category: entry.Category,
		Barcode:  entry.Barcode,
		Image:    entry.Image,
		Shops:    entry.Shops,
	})
	if err != nil {
		return nil, false, err
	}

	if _, err := a.History.Touch(entryID); err != nil {
		a.logger.Warn("refresh history entry", "id", entryID, "error", err)
	}
	return product, merged, nil
}

// RankPrices returns the product's per-shop offers, cheapest first.
func (a *App) RankPrices(productID string) ([]pricing.Offer, error) {
	product := a.Products.Get(productID)
	if product == nil {
		return nil, list.ErrNotFound
	}
	return a.Ranker.Rank(*product, a.Catalog.Shops()), nil
}

// SuggestCategory proposes a category id for a product name, for prefilling
// manual entry.
func (a *App) SuggestCategory(name string) string {
	return catalog.Suggest(name)
}

// ExportSnapshot assembles the portable document from the current state.
func (a *App) ExportSnapshot() *model.Snapshot {
	return snapshot.Build(
		a.Products.Products(),
		a.Catalog.Shops(),
		a.Catalog.Categories(),
		a.History.Entries(),
	)
}

// ImportSnapshot restores the document into the store and reloads every
// cache from the store, which stays the single source of truth.
func (a *App) ImportSnapshot(doc *model.Snapshot) error {
	if err := a.codec.Restore(doc); err != nil {
		return err
	}
	return a.Reload()
}
