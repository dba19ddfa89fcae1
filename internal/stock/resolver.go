// Package stock implements variant-level inventory: resolving a size/color
// request onto a stock count, validating checkout items against it, and
// applying deductions and restorations atomically.
package stock

import (
	"sort"
	"strings"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
)

// Defaults used when a request leaves size or color unspecified
const (
	DefaultSize  = "Standard"
	DefaultColor = "Default"
)

// Key builds the "{size}-{color}" variant key, applying defaults
func Key(size, color string) string {
	if size == "" {
		size = DefaultSize
	}
	if color == "" {
		color = DefaultColor
	}
	return size + "-" + color
}

// ResolveKey maps a size/color request onto an entry of the sparse variant
// stock map. Matching stages, first hit wins:
//
//  1. exact key match
//  2. case-insensitive key match
//  3. partial match: any key with the "{size}-" prefix, then any key with
//     the "-{color}" suffix
//
// Partial candidates are scanned in sorted key order so the result is
// deterministic. Returns ok=false when nothing matches.
func ResolveKey(stocks map[string]int, size, color string) (string, int, bool) {
	if size == "" {
		size = DefaultSize
	}
	if color == "" {
		color = DefaultColor
	}
	key := size + "-" + color

	if qty, found := stocks[key]; found {
		return key, qty, true
	}

	keys := make([]string, 0, len(stocks))
	for k := range stocks {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return k, stocks[k], true
		}
	}

	// Candidates come from the requested size and color themselves, so
	// hyphenated names like "Extra-Long" or "Off-White" stay whole.
	sizePrefix := strings.ToLower(size) + "-"
	colorSuffix := "-" + strings.ToLower(color)
	for _, k := range keys {
		if strings.HasPrefix(strings.ToLower(k), sizePrefix) {
			return k, stocks[k], true
		}
	}
	for _, k := range keys {
		if strings.HasSuffix(strings.ToLower(k), colorSuffix) {
			return k, stocks[k], true
		}
	}

	return "", 0, false
}

// Resolve returns the stock count for a size/color request, 0 when no
// variant matches. Never negative.
func Resolve(stocks map[string]int, size, color string) int {
	_, qty, _ := ResolveKey(stocks, size, color)
	if qty < 0 {
		return 0
	}
	return qty
}

// Location identifies where a product's stock for a request lives: either a
// variant row (Key) or, for products with no variant rows at all, the
// aggregate stock column on the product itself.
type Location struct {
	ProductID uint
	Key       string
	Aggregate bool
	Resolved  bool
	Available int
}

// ResolveProduct resolves a size/color request against a product. Products
// that never populated variant stock fall back to the aggregate Stock field;
// once any variant row exists the variant map is authoritative.
func ResolveProduct(p *model.Product, size, color string) Location {
	if len(p.VariantStock) == 0 {
		avail := p.Stock
		if avail < 0 {
			avail = 0
		}
		return Location{ProductID: p.ID, Key: Key(size, color), Aggregate: true, Resolved: true, Available: avail}
	}

	key, qty, ok := ResolveKey(p.StockMap(), size, color)
	if !ok {
		// Keep the default key so restorations have somewhere to land
		return Location{ProductID: p.ID, Key: Key(size, color), Available: 0}
	}
	if qty < 0 {
		qty = 0
	}
	return Location{ProductID: p.ID, Key: key, Resolved: true, Available: qty}
}

// PosDefaults fills an omitted size or color the way the POS counter does:
// the product's first declared variant size and first declared color, before
// falling back to the storefront defaults.
func PosDefaults(p *model.Product, size, color string) (string, string) {
	if size == "" {
		if len(p.Variants) > 0 {
			size = p.Variants[0].Size
		} else {
			size = DefaultSize
		}
	}
	if color == "" {
		if len(p.Colors) > 0 {
			color = p.Colors[0].Name
		} else {
			color = DefaultColor
		}
	}
	return size, color
}
