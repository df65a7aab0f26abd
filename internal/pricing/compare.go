// Package pricing derives the per-shop price ranking of a product. Pure
// functions over in-memory state; nothing here persists.
package pricing

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/spesasmart/spesasmart/internal/model"
)

// Offer is one (shop, price) entry of a ranking.
type Offer struct {
	Shop  model.Shop
	Price float64
	// Best marks the cheapest offer, set only when there is at least one
	// other offer to compare against.
	Best bool
}

// Ranker orders a product's price map. Ties on price break on shop name
// under the configured locale.
type Ranker struct {
	coll *collate.Collator
}

func NewRanker(locale language.Tag) *Ranker {
	return &Ranker{coll: collate.New(locale)}
}

// Rank returns the product's offers ascending by price. Entries whose shop
// is not in the given list and entries without a positive price are dropped.
func (r *Ranker) Rank(p model.Product, shops []model.Shop) []Offer {
	byID := make(map[string]model.Shop, len(shops))
	for _, s := range shops {
		byID[s.ID] = s
	}

	var offers []Offer
	for shopID, price := range p.Prices {
		shop, ok := byID[shopID]
		if !ok || price <= 0 {
			continue
		}
		offers = append(offers, Offer{Shop: shop, Price: price})
	}

	sort.SliceStable(offers, func(i, j int) bool {
		if offers[i].Price != offers[j].Price {
			return offers[i].Price < offers[j].Price
		}
		return r.coll.CompareString(offers[i].Shop.Name, offers[j].Shop.Name) < 0
	})

	if len(offers) > 1 {
		offers[0].Best = true
	}
	return offers
}
