package catalog

import (
	"strings"

	"github.com/spesasmart/spesasmart/internal/model"
)

// Suggest returns the seed category id for the given product name.
// It performs case-insensitive matching: exact match first, then substring
// match. Falls back to the fallback category if no match is found. The
// result is advisory — a prefill for manual entry, never validated input.
func Suggest(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return model.FallbackCategory
	}

	// Phase 1: exact match
	if cat, ok := exactMatch[n]; ok {
		return cat
	}

	// Phase 2: substring match (ordered more-specific first)
	for _, entry := range substringMatches {
		if strings.Contains(n, entry.keyword) {
			return entry.category
		}
	}

	return model.FallbackCategory
}

var exactMatch = map[string]string{
	// Dairy
	"milk":       "dairy",
	"latte":      "dairy",
	"butter":     "dairy",
	"burro":      "dairy",
	"eggs":       "dairy",
	"uova":       "dairy",
	"yogurt":     "dairy",
	"cream":      "dairy",
	"panna":      "dairy",
	"mozzarella": "dairy",
	"parmigiano": "dairy",

	// Fruit & vegetables
	"apple":    "fruit",
	"apples":   "fruit",
	"mele":     "fruit",
	"banana":   "fruit",
	"bananas":  "fruit",
	"banane":   "fruit",
	"tomato":   "fruit",
	"tomatoes": "fruit",
	"pomodori": "fruit",
	"lettuce":  "fruit",
	"insalata": "fruit",
	"onions":   "fruit",
	"cipolle":  "fruit",
	"potatoes": "fruit",
	"patate":   "fruit",

	// Meat & fish
	"chicken":    "meat",
	"pollo":      "meat",
	"beef":       "meat",
	"manzo":      "meat",
	"tuna":       "meat",
	"tonno":      "meat",
	"salmon":     "meat",
	"salmone":    "meat",
	"prosciutto": "meat",

	// Bakery
	"bread":     "bakery",
	"pane":      "bakery",
	"croissant": "bakery",
	"grissini":  "bakery",

	// Drinks
	"water":    "drinks",
	"acqua":    "drinks",
	"coffee":   "drinks",
	"caffè":    "drinks",
	"beer":     "drinks",
	"birra":    "drinks",
	"wine":     "drinks",
	"vino":     "drinks",

	// Snacks & sweets
	"chocolate":  "snacks",
	"cioccolato": "snacks",
	"biscotti":   "snacks",
	"chips":      "snacks",
	"patatine":   "snacks",

	// Household
	"detergent": "household",
	"detersivo": "household",
	"shampoo":   "household",
	"soap":      "household",
	"sapone":    "household",
}

var substringMatches = []struct {
	keyword  string
	category string
}{
	{"cheese", "dairy"},
	{"formaggio", "dairy"},
	{"yogurt", "dairy"},
	{"milk", "dairy"},
	{"latte", "dairy"},

	{"frozen", "frozen"},
	{"surgelat", "frozen"},
	{"gelato", "frozen"},
	{"ice cream", "frozen"},

	{"juice", "drinks"},
	{"succo", "drinks"},
	{"cola", "drinks"},
	{"tea", "drinks"},

	{"fish", "meat"},
	{"pesce", "meat"},
	{"carne", "meat"},
	{"salami", "meat"},
	{"salame", "meat"},

	{"salad", "fruit"},
	{"verdur", "fruit"},
	{"frutta", "fruit"},

	{"bread", "bakery"},
	{"pizza", "bakery"},
	{"focaccia", "bakery"},

	{"snack", "snacks"},
	{"cookie", "snacks"},
	{"candy", "snacks"},
	{"caramell", "snacks"},

	{"cleaner", "household"},
	{"paper", "household"},
	{"carta", "household"},
	{"igienic", "household"},
}
