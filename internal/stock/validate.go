package stock

import (
	"fmt"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
)

// ItemRequest is one requested checkout line, before validation
type ItemRequest struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Qty       int    `json:"qty"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

func itemLabel(i int, req ItemRequest) string {
	if req.Name != "" {
		return fmt.Sprintf("item %q", req.Name)
	}
	return fmt.Sprintf("item #%d", i+1)
}

// ValidateOrderItems checks every requested item against the catalog and
// collects every problem found. products is keyed by product ID; a missing
// entry means the product does not exist. An empty result means the whole
// request is sellable.
func ValidateOrderItems(products map[uint]*model.Product, items []ItemRequest) []string {
	var problems []string

	for i, req := range items {
		label := itemLabel(i, req)

		if req.ProductID == 0 {
			problems = append(problems, fmt.Sprintf("%s: missing product id", label))
			continue
		}

		p, found := products[req.ProductID]
		if !found {
			problems = append(problems, fmt.Sprintf("%s: product %d not found", label, req.ProductID))
			continue
		}

		if req.Qty < 1 {
			problems = append(problems, fmt.Sprintf("%s: quantity must be at least 1", label))
			continue
		}

		if req.Color != "" && req.Color != DefaultColor && len(p.Colors) > 0 && !p.HasColor(req.Color) {
			problems = append(problems, fmt.Sprintf("%s: color %q is not offered", label, req.Color))
		}
		if req.Size != "" && req.Size != DefaultSize && len(p.Variants) > 0 && !p.HasSize(req.Size) {
			problems = append(problems, fmt.Sprintf("%s: size %q is not offered", label, req.Size))
		}

		loc := ResolveProduct(p, req.Size, req.Color)
		if loc.Available == 0 {
			problems = append(problems, fmt.Sprintf("%s: out of stock", label))
		} else if req.Qty > loc.Available {
			problems = append(problems, fmt.Sprintf("%s: only %d in stock, %d requested", label, loc.Available, req.Qty))
		}
	}

	return problems
}

// ValidatePosItems checks POS checkout lines. The counter is more lenient
// than the storefront: size and color are not checked against the product's
// declared options, only the resolved stock count matters. Omitted size or
// color defaults to the product's first declared variant and color.
func ValidatePosItems(products map[uint]*model.Product, items []ItemRequest) []string {
	var problems []string

	for i, req := range items {
		label := itemLabel(i, req)

		if req.ProductID == 0 {
			problems = append(problems, fmt.Sprintf("%s: missing product id", label))
			continue
		}

		p, found := products[req.ProductID]
		if !found {
			problems = append(problems, fmt.Sprintf("%s: product %d not found", label, req.ProductID))
			continue
		}

		if req.Qty < 1 {
			problems = append(problems, fmt.Sprintf("%s: quantity must be at least 1", label))
			continue
		}

		size, color := PosDefaults(p, req.Size, req.Color)
		loc := ResolveProduct(p, size, color)
		if loc.Available == 0 {
			problems = append(problems, fmt.Sprintf("%s: out of stock", label))
		} else if req.Qty > loc.Available {
			problems = append(problems, fmt.Sprintf("%s: only %d in stock, %d requested", label, loc.Available, req.Qty))
		}
	}

	return problems
}
