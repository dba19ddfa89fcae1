package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/coupon"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/stock"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CouponRequest defines the structure for coupon creation/update requests
type CouponRequest struct {
	Code              string   `json:"code" validate:"required"`
	Discount          float64  `json:"discount" validate:"required,gt=0"`
	Type              string   `json:"type"`
	Scope             string   `json:"scope"`
	AllowedCategories []string `json:"allowed_categories"`
	AllowedProducts   []uint   `json:"allowed_products"`
	AllowPreOrder     bool     `json:"allow_pre_order"`
	Status            string   `json:"status"`
}

func (r *CouponRequest) normalize() error {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	if r.Code == "" {
		return errors.New("code is required")
	}
	if r.Discount <= 0 {
		return errors.New("discount must be positive")
	}

	if r.Type == "" {
		r.Type = model.CouponTypePercentage
	}
	if r.Type != model.CouponTypePercentage && r.Type != model.CouponTypeFlat {
		return fmt.Errorf("unknown coupon type %q", r.Type)
	}
	if r.Type == model.CouponTypePercentage && r.Discount > 100 {
		return errors.New("percentage discount cannot exceed 100")
	}

	if r.Scope == "" {
		r.Scope = model.CouponScopeStore
	}
	switch r.Scope {
	case model.CouponScopeStore:
	case model.CouponScopeCategory:
		if len(r.AllowedCategories) == 0 {
			return errors.New("category-scoped coupon needs allowed_categories")
		}
	case model.CouponScopeProduct:
		if len(r.AllowedProducts) == 0 {
			return errors.New("product-scoped coupon needs allowed_products")
		}
	default:
		return fmt.Errorf("unknown coupon scope %q", r.Scope)
	}

	if r.Status == "" {
		r.Status = model.CouponStatusActive
	}
	if r.Status != model.CouponStatusActive && r.Status != model.CouponStatusInactive {
		return fmt.Errorf("unknown coupon status %q", r.Status)
	}

	return nil
}

func (r *CouponRequest) associations() ([]model.CouponCategory, []model.CouponProduct) {
	categories := make([]model.CouponCategory, 0, len(r.AllowedCategories))
	if r.Scope == model.CouponScopeCategory {
		for _, name := range r.AllowedCategories {
			categories = append(categories, model.CouponCategory{Category: name})
		}
	}

	products := make([]model.CouponProduct, 0, len(r.AllowedProducts))
	if r.Scope == model.CouponScopeProduct {
		for _, id := range r.AllowedProducts {
			products = append(products, model.CouponProduct{ProductID: id})
		}
	}

	return categories, products
}

// ListCoupons handles retrieving all coupons (admin)
func ListCoupons(c echo.Context) error {
	log := logger.FromContext(c)

	var coupons []model.Coupon
	result := database.GetDB().
		Preload("AllowedCategories").
		Preload("AllowedProducts").
		Find(&coupons)
	if result.Error != nil {
		log.Error("Failed to list coupons", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve coupons"})
	}

	return c.JSON(http.StatusOK, coupons)
}

// GetCoupon handles retrieving a single coupon by ID (admin)
func GetCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var cpn model.Coupon
	result := database.GetDB().
		Preload("AllowedCategories").
		Preload("AllowedProducts").
		First(&cpn, id)
	if result.Error != nil {
		log.Warn("Coupon not found", zap.String("coupon_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Coupon not found"})
	}

	return c.JSON(http.StatusOK, cpn)
}

// CreateCoupon handles creating a new coupon (admin)
func CreateCoupon(c echo.Context) error {
	log := logger.FromContext(c)

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := req.normalize(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var count int64
	database.GetDB().Model(&model.Coupon{}).Where("code = ?", req.Code).Count(&count)
	if count > 0 {
		log.Warn("Coupon with this code already exists", zap.String("code", req.Code))
		return c.JSON(http.StatusConflict, echo.Map{"error": "Coupon with this code already exists"})
	}

	categories, products := req.associations()
	cpn := model.Coupon{
		Code:              req.Code,
		Discount:          req.Discount,
		Type:              req.Type,
		Scope:             req.Scope,
		AllowedCategories: categories,
		AllowedProducts:   products,
		AllowPreOrder:     req.AllowPreOrder,
		Status:            req.Status,
	}

	if result := database.GetDB().Create(&cpn); result.Error != nil {
		log.Error("Failed to create coupon", zap.String("code", req.Code), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create coupon"})
	}

	log.Info("Coupon created successfully",
		zap.String("code", cpn.Code),
		zap.String("type", cpn.Type),
		zap.String("scope", cpn.Scope))
	return c.JSON(http.StatusCreated, cpn)
}

// UpdateCoupon handles updating an existing coupon (admin). Allowed category
// and product lists are replaced with the submitted set.
func UpdateCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req CouponRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("coupon_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}
	if err := req.normalize(); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	var cpn model.Coupon
	if result := database.GetDB().First(&cpn, id); result.Error != nil {
		log.Warn("Coupon not found for update", zap.String("coupon_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Coupon not found"})
	}

	if req.Code != cpn.Code {
		var count int64
		database.GetDB().Model(&model.Coupon{}).Where("code = ? AND id != ?", req.Code, id).Count(&count)
		if count > 0 {
			log.Warn("Coupon with this code already exists", zap.String("code", req.Code))
			return c.JSON(http.StatusConflict, echo.Map{"error": "Coupon with this code already exists"})
		}
	}

	categories, products := req.associations()

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		cpn.Code = req.Code
		cpn.Discount = req.Discount
		cpn.Type = req.Type
		cpn.Scope = req.Scope
		cpn.AllowPreOrder = req.AllowPreOrder
		cpn.Status = req.Status

		if err := tx.Save(&cpn).Error; err != nil {
			return err
		}

		if err := tx.Where("coupon_id = ?", cpn.ID).Delete(&model.CouponCategory{}).Error; err != nil {
			return err
		}
		if err := tx.Where("coupon_id = ?", cpn.ID).Delete(&model.CouponProduct{}).Error; err != nil {
			return err
		}

		for i := range categories {
			categories[i].CouponID = cpn.ID
		}
		for i := range products {
			products[i].CouponID = cpn.ID
		}

		if len(categories) > 0 {
			if err := tx.Create(&categories).Error; err != nil {
				return err
			}
		}
		if len(products) > 0 {
			if err := tx.Create(&products).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Error("Failed to update coupon", zap.String("coupon_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update coupon"})
	}

	var updated model.Coupon
	database.GetDB().Preload("AllowedCategories").Preload("AllowedProducts").First(&updated, cpn.ID)

	log.Info("Coupon updated successfully", zap.String("code", updated.Code))
	return c.JSON(http.StatusOK, updated)
}

// DeleteCoupon handles deleting a coupon (admin, soft delete)
func DeleteCoupon(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.Coupon{}, id)
	if result.Error != nil {
		log.Error("Failed to delete coupon", zap.String("coupon_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete coupon"})
	}
	if result.RowsAffected == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Coupon not found"})
	}

	log.Info("Coupon deleted successfully", zap.String("coupon_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Coupon deleted successfully"})
}

// CouponValidateRequest is the body of a public coupon validation request
type CouponValidateRequest struct {
	Code  string              `json:"code" validate:"required"`
	Items []stock.ItemRequest `json:"items"`
}

// ValidateCoupon handles the public coupon check at cart time: it computes
// the discount the code would yield on the submitted cart. Prices and
// categories come from the catalog, not from the client.
func ValidateCoupon(c echo.Context) error {
	log := logger.FromContext(c)

	var req CouponValidateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code is required"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cart is empty"})
	}

	db := database.GetDB()

	var cpn model.Coupon
	if err := db.Preload("AllowedCategories").Preload("AllowedProducts").
		Where("code = ?", code).First(&cpn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prometheus.RecordCouponApplication("not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Coupon not found"})
		}
		log.Error("Failed to look up coupon", zap.String("code", code), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to look up coupon"})
	}

	ids := make([]uint, 0, len(req.Items))
	for _, item := range req.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := stock.LoadProducts(db, ids)
	if err != nil {
		log.Error("Failed to load products for coupon validation", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to validate coupon"})
	}

	cartItems := make([]coupon.CartItem, 0, len(req.Items))
	for _, item := range req.Items {
		p, found := products[item.ProductID]
		if !found {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("product %d not found", item.ProductID)})
		}
		cartItems = append(cartItems, coupon.CartItem{
			ProductID:  p.ID,
			Category:   p.Category,
			Price:      p.VariantPrice(item.Size),
			Qty:        item.Qty,
			IsPreOrder: p.IsPreOrder,
		})
	}

	result, err := coupon.Apply(&cpn, cartItems)
	if err != nil {
		prometheus.RecordCouponApplication("rejected")
		log.Info("Coupon rejected", zap.String("code", code), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	prometheus.RecordCouponApplication("applied")
	log.Info("Coupon validated",
		zap.String("code", code),
		zap.Float64("discount", result.Discount),
		zap.Int("eligible_items", result.EligibleCount))
	return c.JSON(http.StatusOK, result)
}
