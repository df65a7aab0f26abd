package pricing

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/spesasmart/spesasmart/internal/model"
)

var testShops = []model.Shop{
	{ID: "alfa", Name: "Alfa"},
	{ID: "beta", Name: "Beta"},
	{ID: "gamma", Name: "Gamma"},
}

func TestRankAscendingWithTieBreak(t *testing.T) {
	r := NewRanker(language.Italian)
	p := model.Product{
		Name: "Milk",
		Prices: map[string]float64{
			"alfa":  3.50,
			"beta":  2.90,
			"gamma": 2.90,
		},
	}

	offers := r.Rank(p, testShops)
	if len(offers) != 3 {
		t.Fatalf("offers = %d, want 3", len(offers))
	}

	// Beta and Gamma tie at 2.90 and sit adjacent at the front, tie-broken
	// by shop name.
	want := []struct {
		shop  string
		price float64
		best  bool
	}{
		{"Beta", 2.90, true},
		{"Gamma", 2.90, false},
		{"Alfa", 3.50, false},
	}
	for i, w := range want {
		if offers[i].Shop.Name != w.shop || offers[i].Price != w.price || offers[i].Best != w.best {
			t.Errorf("offers[%d] = {%s %v best=%v}, want {%s %v best=%v}",
				i, offers[i].Shop.Name, offers[i].Price, offers[i].Best, w.shop, w.price, w.best)
		}
	}
}

func TestSingleOfferHasNoBestFlag(t *testing.T) {
	r := NewRanker(language.Und)
	p := model.Product{Prices: map[string]float64{"alfa": 1.99}}

	offers := r.Rank(p, testShops)
	if len(offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(offers))
	}
	if offers[0].Best {
		t.Error("single offer flagged best with nothing to compare against")
	}
}

func TestRankDropsUnresolvableAndNonPositive(t *testing.T) {
	r := NewRanker(language.Und)
	p := model.Product{Prices: map[string]float64{
		"alfa":    2.50,
		"deleted": 1.00, // shop no longer exists
		"beta":    0,    // not a real price
	}}

	offers := r.Rank(p, testShops)
	if len(offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(offers))
	}
	if offers[0].Shop.ID != "alfa" {
		t.Errorf("offer = %q, want alfa", offers[0].Shop.ID)
	}
}

func TestRankEmptyPriceMap(t *testing.T) {
	r := NewRanker(language.Und)

	if offers := r.Rank(model.Product{}, testShops); len(offers) != 0 {
		t.Errorf("offers = %d, want 0", len(offers))
	}
}
