package stock

import (
	"fmt"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"

	"gorm.io/gorm"
)

// Movement is one stock change to apply: Qty units of a resolved variant
type Movement struct {
	ProductID uint
	Size      string
	Color     string
	Qty       int
}

// Applied reports where one movement landed and the quantity left afterwards
type Applied struct {
	ProductID uint
	Key       string
	Aggregate bool
	Remaining int
}

// InsufficientStockError is returned when a conditional decrement finds less
// stock than requested. The surrounding transaction must roll back.
type InsufficientStockError struct {
	ProductID uint
	Key       string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d variant %q (requested %d)", e.ProductID, e.Key, e.Requested)
}

// LoadProducts fetches products with their variant associations, keyed by ID
func LoadProducts(tx *gorm.DB, ids []uint) (map[uint]*model.Product, error) {
	products := make(map[uint]*model.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var rows []model.Product
	err := tx.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Colors", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("VariantStock").
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	for i := range rows {
		products[rows[i].ID] = &rows[i]
	}
	return products, nil
}

// Deduct removes stock for every movement inside the given transaction.
// Each removal is a single conditional decrement (quantity >= qty guards the
// update), so concurrent checkouts cannot drive stock negative: the slower
// one sees zero rows affected and the whole transaction rolls back.
func Deduct(tx *gorm.DB, movements []Movement) ([]Applied, error) {
	ids := make([]uint, 0, len(movements))
	for _, mv := range movements {
		ids = append(ids, mv.ProductID)
	}

	products, err := LoadProducts(tx, ids)
	if err != nil {
		return nil, err
	}

	applied := make([]Applied, 0, len(movements))
	for _, mv := range movements {
		p, found := products[mv.ProductID]
		if !found {
			return nil, fmt.Errorf("product %d not found", mv.ProductID)
		}

		loc := ResolveProduct(p, mv.Size, mv.Color)

		if loc.Aggregate {
			res := tx.Model(&model.Product{}).
				Where("id = ? AND stock >= ?", mv.ProductID, mv.Qty).
				UpdateColumn("stock", gorm.Expr("stock - ?", mv.Qty))
			if res.Error != nil {
				return nil, res.Error
			}
			if res.RowsAffected == 0 {
				return nil, &InsufficientStockError{ProductID: mv.ProductID, Key: loc.Key, Requested: mv.Qty}
			}

			var remaining int
			if err := tx.Model(&model.Product{}).Where("id = ?", mv.ProductID).Select("stock").Scan(&remaining).Error; err != nil {
				return nil, err
			}
			applied = append(applied, Applied{ProductID: mv.ProductID, Key: loc.Key, Aggregate: true, Remaining: remaining})
			continue
		}

		res := tx.Model(&model.VariantStock{}).
			Where("product_id = ? AND variant_key = ? AND quantity >= ?", mv.ProductID, loc.Key, mv.Qty).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", mv.Qty))
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, &InsufficientStockError{ProductID: mv.ProductID, Key: loc.Key, Requested: mv.Qty}
		}

		var remaining int
		if err := tx.Model(&model.VariantStock{}).
			Where("product_id = ? AND variant_key = ?", mv.ProductID, loc.Key).
			Select("quantity").Scan(&remaining).Error; err != nil {
			return nil, err
		}
		applied = append(applied, Applied{ProductID: mv.ProductID, Key: loc.Key, Remaining: remaining})
	}

	return applied, nil
}

// Restore puts stock back for every movement, the exact inverse of Deduct.
// When the resolved variant row no longer exists the row is recreated under
// the default key so the units are not lost.
func Restore(tx *gorm.DB, movements []Movement) ([]Applied, error) {
	ids := make([]uint, 0, len(movements))
	for _, mv := range movements {
		ids = append(ids, mv.ProductID)
	}

	products, err := LoadProducts(tx, ids)
	if err != nil {
		return nil, err
	}

	applied := make([]Applied, 0, len(movements))
	for _, mv := range movements {
		p, found := products[mv.ProductID]
		if !found {
			// Product was hard-deleted since the sale; nowhere to restore to
			continue
		}

		loc := ResolveProduct(p, mv.Size, mv.Color)

		if loc.Aggregate {
			res := tx.Model(&model.Product{}).
				Where("id = ?", mv.ProductID).
				UpdateColumn("stock", gorm.Expr("stock + ?", mv.Qty))
			if res.Error != nil {
				return nil, res.Error
			}

			var remaining int
			if err := tx.Model(&model.Product{}).Where("id = ?", mv.ProductID).Select("stock").Scan(&remaining).Error; err != nil {
				return nil, err
			}
			applied = append(applied, Applied{ProductID: mv.ProductID, Key: loc.Key, Aggregate: true, Remaining: remaining})
			continue
		}

		if !loc.Resolved {
			row := model.VariantStock{ProductID: mv.ProductID, VariantKey: loc.Key, Quantity: mv.Qty}
			if err := tx.Create(&row).Error; err != nil {
				return nil, err
			}
			applied = append(applied, Applied{ProductID: mv.ProductID, Key: loc.Key, Remaining: mv.Qty})
			continue
		}

		res := tx.Model(&model.VariantStock{}).
			Where("product_id = ? AND variant_key = ?", mv.ProductID, loc.Key).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", mv.Qty))
		if res.Error != nil {
			return nil, res.Error
		}

		var remaining int
		if err := tx.Model(&model.VariantStock{}).
			Where("product_id = ? AND variant_key = ?", mv.ProductID, loc.Key).
			Select("quantity").Scan(&remaining).Error; err != nil {
			return nil, err
		}
		applied = append(applied, Applied{ProductID: mv.ProductID, Key: loc.Key, Remaining: remaining})
	}

	return applied, nil
}

// MovementsFromOrderItems converts persisted order items back into the
// movements that created them, for restoration on cancellation.
func MovementsFromOrderItems(items []model.OrderItem) []Movement {
	movements := make([]Movement, 0, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			continue
		}
		movements = append(movements, Movement{ProductID: it.ProductID, Size: it.Size, Color: it.Color, Qty: it.Qty})
	}
	return movements
}

// MovementsFromPosItems converts POS transaction items into movements
func MovementsFromPosItems(items []model.PosTransactionItem) []Movement {
	movements := make([]Movement, 0, len(items))
	for _, it := range items {
		if it.ProductID == 0 {
			continue
		}
		movements = append(movements, Movement{ProductID: it.ProductID, Size: it.Size, Color: it.Color, Qty: it.Qty})
	}
	return movements
}
