package app

import (
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"golang.org/x/text/language"

	"github.com/spesasmart/spesasmart/internal/database"
	"github.com/spesasmart/spesasmart/internal/history"
	"github.com/spesasmart/spesasmart/internal/model"
	"github.com/spesasmart/spesasmart/internal/snapshot"
	"github.com/spesasmart/spesasmart/internal/store"
)

func setupAppTestDB(t *testing.T) (*App, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	a, err := New(db, Config{Locale: language.Italian}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, db
}

func TestNewSeedsCatalog(t *testing.T) {
	a, _ := setupAppTestDB(t)

	if got := len(a.Catalog.Categories()); got != 9 {
		t.Errorf("categories = %d, want 9", got)
	}
	if got := len(a.Catalog.Shops()); got != 0 {
		t.Errorf("shops = %d, want 0", got)
	}
	if got := len(a.Products.Products()); got != 0 {
		t.Errorf("products = %d, want 0", got)
	}
}

func TestReAddFromHistory(t *testing.T) {
	a, _ := setupAppTestDB(t)

	p, _, err := a.Products.Add(model.ProductInput{Name: "Milk", Category: "dairy", Barcode: "8001234"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	entryID := history.EntryID(p.Barcode, p.Name)

	// The product leaves the list; its history entry stays.
	if err := a.Products.Remove(p.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, ok := a.History.Get(entryID); !ok {
		t.Fatal("history entry gone after product removal")
	}

	readded, merged, err := a.ReAdd(entryID)
	if err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if merged {
		t.Error("expected create on re-add of removed product")
	}
	if readded.Name != "Milk" || readded.Category != "dairy" || readded.Barcode != "8001234" {
		t.Errorf("re-added = %+v", readded)
	}

	// Re-adding again merges and refreshes the entry instead of duplicating.
	again, merged, err := a.ReAdd(entryID)
	if err != nil {
		t.Fatalf("second re-add: %v", err)
	}
	if !merged || again.Quantity != 2 {
		t.Errorf("merged = %v, quantity = %d; want true, 2", merged, again.Quantity)
	}
	if got := len(a.History.Entries()); got != 1 {
		t.Errorf("history entries = %d, want 1", got)
	}

	if _, _, err := a.ReAdd("missing"); err == nil {
		t.Error("expected error for unknown history entry")
	}
}

func TestRankPrices(t *testing.T) {
	a, _ := setupAppTestDB(t)

	conad, _ := a.Catalog.UpsertShop("", "Conad", "🛒")
	coop, _ := a.Catalog.UpsertShop("", "Coop", "🏪")

	p, _, _ := a.Products.Add(model.ProductInput{Name: "Milk", Shops: []string{conad.ID, coop.ID}})
	a.Products.SetPrice(p.ID, conad.ID, 1.49)
	a.Products.SetPrice(p.ID, coop.ID, 1.29)

	offers, err := a.RankPrices(p.ID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(offers) != 2 {
		t.Fatalf("offers = %d, want 2", len(offers))
	}
	if offers[0].Shop.ID != coop.ID || !offers[0].Best {
		t.Errorf("best offer = %+v, want coop flagged best", offers[0])
	}

	if _, err := a.RankPrices("missing"); err == nil {
		t.Error("expected error for unknown product")
	}
}

func TestSuggestCategory(t *testing.T) {
	a, _ := setupAppTestDB(t)

	if got := a.SuggestCategory("Parmigiano"); got != "dairy" {
		t.Errorf("suggestion = %q, want dairy", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	a, _ := setupAppTestDB(t)

	shop, _ := a.Catalog.UpsertShop("", "Conad", "🛒")
	custom, _ := a.Catalog.UpsertCategory("", "Pet Food", "🐱")

	p, _, err := a.Products.Add(model.ProductInput{
		Name: "Croccantini", Category: custom.ID, Shops: []string{shop.ID},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := a.Products.SetPrice(p.ID, shop.ID, 4.99); err != nil {
		t.Fatalf("set price: %v", err)
	}

	before := a.Products.Products()
	doc := a.ExportSnapshot()
	if len(doc.Categories) != 1 || doc.Categories[0].ID != custom.ID {
		t.Errorf("exported categories = %+v, want only the custom one", doc.Categories)
	}

	// Wipe everything, then restore through an encode/decode cycle.
	if err := a.Products.ClearAll(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	data, err := snapshot.Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := snapshot.Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := a.ImportSnapshot(decoded); err != nil {
		t.Fatalf("import: %v", err)
	}

	after := a.Products.Products()
	if !reflect.DeepEqual(after, before) {
		t.Errorf("products differ after round trip:\ngot  %+v\nwant %+v", after, before)
	}
	if !a.Catalog.HasShop(shop.ID) {
		t.Error("shop lost in round trip")
	}
	if !a.Catalog.HasCategory(custom.ID) {
		t.Error("custom category lost in round trip")
	}
	if got := len(a.Catalog.Categories()); got != 10 {
		t.Errorf("categories = %d, want 10 (seeds + custom)", got)
	}
}

func TestImportInvalidDocumentLeavesStateUntouched(t *testing.T) {
	a, _ := setupAppTestDB(t)

	if _, _, err := a.Products.Add(model.ProductInput{Name: "Milk"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := snapshot.Decode([]byte(`{"version": 1}`)); !errors.Is(err, snapshot.ErrInvalidFormat) {
		t.Fatal("expected decode rejection")
	}
	if err := a.ImportSnapshot(&model.Snapshot{Version: 1}); !errors.Is(err, snapshot.ErrInvalidFormat) {
		t.Fatalf("import error = %v, want ErrInvalidFormat", err)
	}

	if got := len(a.Products.Products()); got != 1 {
		t.Errorf("products = %d, want 1 (untouched)", got)
	}
}

func TestLoadReconcilesDanglingReferences(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	// A record left behind by an interrupted category delete.
	st := store.New(db)
	stale := model.Product{
		ID: "p1", Name: "Old Milk", Category: "deleted_cat",
		Shops: []string{"gone_shop"}, Quantity: 2,
	}
	if err := st.Put(store.Products, stale.ID, stale); err != nil {
		t.Fatalf("put: %v", err)
	}

	a, err := New(db, Config{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new app: %v", err)
	}

	got := a.Products.Get("p1")
	if got == nil {
		t.Fatal("product missing after load")
	}
	if got.Category != model.FallbackCategory {
		t.Errorf("category = %q, want fallback", got.Category)
	}
	if len(got.Shops) != 0 {
		t.Errorf("shops = %v, want stripped", got.Shops)
	}
	if got.Quantity != 2 {
		t.Errorf("quantity = %d, want 2", got.Quantity)
	}
}
