package handler

import (
	"net/http"
	"sort"
	"strconv"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProductRequest defines the structure for product creation/update requests
type ProductRequest struct {
	Name              string           `json:"name" validate:"required"`
	Description       string           `json:"description"`
	SKU               string           `json:"sku" validate:"required"`
	Category          string           `json:"category"`
	Price             float64          `json:"price" validate:"required,gt=0"`
	Stock             int              `json:"stock"`
	LowStockThreshold int              `json:"low_stock_threshold"`
	ShowOnStorefront  bool             `json:"show_on_storefront"`
	IsPreOrder        bool             `json:"is_pre_order"`
	Variants          []VariantRequest `json:"variants"`
	Colors            []ColorRequest   `json:"colors"`
	VariantStock      map[string]int   `json:"variant_stock"`
}

// VariantRequest is one size option in a product request
type VariantRequest struct {
	Size  string  `json:"size"`
	Price float64 `json:"price"`
}

// ColorRequest is one color option in a product request
type ColorRequest struct {
	Name     string `json:"name"`
	ImageURL string `json:"image_url"`
}

func productAssociations(req *ProductRequest) ([]model.ProductVariant, []model.ProductColor, []model.VariantStock) {
	variants := make([]model.ProductVariant, 0, len(req.Variants))
	for i, v := range req.Variants {
		variants = append(variants, model.ProductVariant{Size: v.Size, Price: v.Price, Position: i})
	}

	colors := make([]model.ProductColor, 0, len(req.Colors))
	for i, col := range req.Colors {
		colors = append(colors, model.ProductColor{Name: col.Name, ImageURL: col.ImageURL, Position: i})
	}

	// Deterministic row order for the sparse stock map
	keys := make([]string, 0, len(req.VariantStock))
	for k := range req.VariantStock {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stocks := make([]model.VariantStock, 0, len(keys))
	for _, k := range keys {
		qty := req.VariantStock[k]
		if qty < 0 {
			qty = 0
		}
		stocks = append(stocks, model.VariantStock{VariantKey: k, Quantity: qty})
	}

	return variants, colors, stocks
}

func preloadProduct(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("Colors", func(db *gorm.DB) *gorm.DB { return db.Order("position, id") }).
		Preload("VariantStock")
}

// ListProducts handles retrieving all products with optional filtering (admin)
func ListProducts(c echo.Context) error {
	log := logger.FromContext(c)

	db := database.GetDB()
	var products []model.Product

	query := preloadProduct(db)

	// Filter by storefront visibility if specified
	visible := c.QueryParam("show_on_storefront")
	if visible != "" {
		v, err := strconv.ParseBool(visible)
		if err == nil {
			query = query.Where("show_on_storefront = ?", v)
		} else {
			log.Warn("Invalid show_on_storefront parameter", zap.String("value", visible), zap.Error(err))
		}
	}

	// Filter by category if specified
	category := c.QueryParam("category")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	result := query.Find(&products)
	if result.Error != nil {
		log.Error("Failed to list products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	log.Info("Products retrieved successfully", zap.Int("count", len(products)))
	return c.JSON(http.StatusOK, products)
}

// StorefrontProducts handles the public catalog listing: only products
// flagged for the storefront are returned.
func StorefrontProducts(c echo.Context) error {
	log := logger.FromContext(c)

	query := preloadProduct(database.GetDB()).Where("show_on_storefront = ?", true)

	category := c.QueryParam("category")
	if category != "" {
		query = query.Where("category = ?", category)
	}

	var products []model.Product
	if result := query.Find(&products); result.Error != nil {
		log.Error("Failed to list storefront products", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to retrieve products",
		})
	}

	return c.JSON(http.StatusOK, products)
}

// GetProduct handles retrieving a single product by ID
func GetProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var product model.Product
	result := preloadProduct(database.GetDB()).First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	return c.JSON(http.StatusOK, product)
}

// CreateProduct handles creating a new product with its variants, colors
// and per-variant stock.
func CreateProduct(c echo.Context) error {
	log := logger.FromContext(c)

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	if req.Name == "" || req.SKU == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name and sku are required",
		})
	}

	// Check if product with SKU already exists
	var count int64
	database.GetDB().Model(&model.Product{}).Where("sku = ?", req.SKU).Count(&count)
	if count > 0 {
		log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
		return c.JSON(http.StatusConflict, echo.Map{
			"error": "Product with this SKU already exists",
		})
	}

	variants, colors, stocks := productAssociations(&req)
	product := model.Product{
		Name:              req.Name,
		Description:       req.Description,
		SKU:               req.SKU,
		Category:          req.Category,
		Price:             req.Price,
		Stock:             req.Stock,
		LowStockThreshold: req.LowStockThreshold,
		ShowOnStorefront:  req.ShowOnStorefront,
		IsPreOrder:        req.IsPreOrder,
		Variants:          variants,
		Colors:            colors,
		VariantStock:      stocks,
	}

	result := database.GetDB().Create(&product)
	if result.Error != nil {
		log.Error("Failed to create product",
			zap.String("name", req.Name),
			zap.String("sku", req.SKU),
			zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to create product",
		})
	}

	for _, vs := range product.VariantStock {
		prometheus.UpdateVariantStock(strconv.FormatUint(uint64(product.ID), 10), vs.VariantKey, float64(vs.Quantity))
	}

	log.Info("Product created successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU),
		zap.Int("variants", len(product.Variants)))
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct handles updating an existing product. Variant, color and
// stock associations are replaced wholesale with the submitted set.
func UpdateProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req ProductRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid request data",
		})
	}

	// Find existing product
	var product model.Product
	result := database.GetDB().First(&product, id)
	if result.Error != nil {
		log.Warn("Product not found for update", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	// Check if SKU is changed and if new SKU already exists
	if req.SKU != product.SKU {
		var count int64
		database.GetDB().Model(&model.Product{}).Where("sku = ? AND id != ?", req.SKU, id).Count(&count)
		if count > 0 {
			log.Warn("Product with this SKU already exists", zap.String("sku", req.SKU))
			return c.JSON(http.StatusConflict, echo.Map{
				"error": "Product with this SKU already exists",
			})
		}
	}

	variants, colors, stocks := productAssociations(&req)

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		product.Name = req.Name
		product.Description = req.Description
		product.SKU = req.SKU
		product.Category = req.Category
		product.Price = req.Price
		product.Stock = req.Stock
		product.LowStockThreshold = req.LowStockThreshold
		product.ShowOnStorefront = req.ShowOnStorefront
		product.IsPreOrder = req.IsPreOrder

		if err := tx.Save(&product).Error; err != nil {
			return err
		}

		// Replace associations with the submitted set
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.ProductVariant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.ProductColor{}).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&model.VariantStock{}).Error; err != nil {
			return err
		}

		for i := range variants {
			variants[i].ProductID = product.ID
		}
		for i := range colors {
			colors[i].ProductID = product.ID
		}
		for i := range stocks {
			stocks[i].ProductID = product.ID
		}

		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		if len(colors) > 0 {
			if err := tx.Create(&colors).Error; err != nil {
				return err
			}
		}
		if len(stocks) > 0 {
			if err := tx.Create(&stocks).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Error("Failed to update product", zap.String("product_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to update product",
		})
	}

	for _, vs := range stocks {
		prometheus.UpdateVariantStock(strconv.FormatUint(uint64(product.ID), 10), vs.VariantKey, float64(vs.Quantity))
	}

	var updated model.Product
	preloadProduct(database.GetDB()).First(&updated, product.ID)

	log.Info("Product updated successfully",
		zap.Uint("product_id", product.ID),
		zap.String("name", product.Name),
		zap.String("sku", product.SKU))
	return c.JSON(http.StatusOK, updated)
}

// DeleteProduct handles deleting a product (soft delete)
func DeleteProduct(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	result := database.GetDB().Delete(&model.Product{}, id)
	if result.Error != nil {
		log.Error("Failed to delete product", zap.String("product_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to delete product",
		})
	}

	if result.RowsAffected == 0 {
		log.Warn("Product not found for deletion", zap.String("product_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{
			"error": "Product not found",
		})
	}

	log.Info("Product deleted successfully", zap.String("product_id", id))
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Product deleted successfully",
	})
}

// LowStockReport lists variant stock rows at or below their product's
// low-stock threshold, for the admin dashboard.
func LowStockReport(c echo.Context) error {
	log := logger.FromContext(c)

	type lowStockRow struct {
		ProductID  uint   `json:"product_id"`
		Name       string `json:"name"`
		SKU        string `json:"sku"`
		VariantKey string `json:"variant_key"`
		Quantity   int    `json:"quantity"`
		Threshold  int    `json:"threshold"`
	}

	var rows []lowStockRow
	err := database.GetDB().
		Table("variant_stocks").
		Select("variant_stocks.product_id, products.name, products.sku, variant_stocks.variant_key, variant_stocks.quantity, products.low_stock_threshold as threshold").
		Joins("JOIN products ON products.id = variant_stocks.product_id AND products.deleted_at IS NULL").
		Where("variant_stocks.quantity <= products.low_stock_threshold").
		Order("variant_stocks.quantity").
		Scan(&rows).Error
	if err != nil {
		log.Error("Failed to build low stock report", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "Failed to build low stock report",
		})
	}

	return c.JSON(http.StatusOK, rows)
}
