package handler

import (
	"fmt"
	"net/http"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/middleware"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CartItemRequest is one line of a cart update
type CartItemRequest struct {
	ProductID uint   `json:"product_id" validate:"required"`
	Qty       int    `json:"qty" validate:"required,gt=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

// CreateCart issues a new server-side cart with an opaque token. The client
// keeps the token; all cart state lives here.
func CreateCart(c echo.Context) error {
	log := logger.FromContext(c)

	cart := model.Cart{Token: uuid.New().String()}
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		cart.CustomerID = &userID
	}

	if result := database.GetDB().Create(&cart); result.Error != nil {
		log.Error("Failed to create cart", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create cart"})
	}

	log.Info("Cart created", zap.String("token", cart.Token))
	return c.JSON(http.StatusCreated, cart)
}

// GetCart retrieves a cart by its token
func GetCart(c echo.Context) error {
	log := logger.FromContext(c)
	token := c.Param("token")

	var cart model.Cart
	result := database.GetDB().Preload("Items").Where("token = ?", token).First(&cart)
	if result.Error != nil {
		log.Warn("Cart not found", zap.String("token", token))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Cart not found"})
	}

	return c.JSON(http.StatusOK, cart)
}

// ReplaceCartItems replaces the cart's contents with the submitted set.
// Every product reference is checked against the catalog; quantities must be
// positive. Prices and stock are not checked here, checkout is where stock
// truth is enforced.
func ReplaceCartItems(c echo.Context) error {
	log := logger.FromContext(c)
	token := c.Param("token")

	var items []CartItemRequest
	if err := c.Bind(&items); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	var cart model.Cart
	if result := database.GetDB().Where("token = ?", token).First(&cart); result.Error != nil {
		log.Warn("Cart not found", zap.String("token", token))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Cart not found"})
	}

	for i, item := range items {
		if item.ProductID == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("item #%d: missing product id", i+1)})
		}
		if item.Qty < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("item #%d: quantity must be at least 1", i+1)})
		}
		var count int64
		database.GetDB().Model(&model.Product{}).Where("id = ?", item.ProductID).Count(&count)
		if count == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("item #%d: product %d not found", i+1, item.ProductID)})
		}
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}

		rows := make([]model.CartItem, 0, len(items))
		for _, item := range items {
			rows = append(rows, model.CartItem{
				CartID:    cart.ID,
				ProductID: item.ProductID,
				Qty:       item.Qty,
				Size:      item.Size,
				Color:     item.Color,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		log.Error("Failed to update cart", zap.String("token", token), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update cart"})
	}

	var updated model.Cart
	database.GetDB().Preload("Items").First(&updated, cart.ID)

	log.Info("Cart updated", zap.String("token", token), zap.Int("items", len(items)))
	return c.JSON(http.StatusOK, updated)
}

// DeleteCart removes a cart and its items
func DeleteCart(c echo.Context) error {
	log := logger.FromContext(c)
	token := c.Param("token")

	var cart model.Cart
	if result := database.GetDB().Where("token = ?", token).First(&cart); result.Error != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Cart not found"})
	}

	err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&cart).Error
	})
	if err != nil {
		log.Error("Failed to delete cart", zap.String("token", token), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete cart"})
	}

	log.Info("Cart deleted", zap.String("token", token))
	return c.JSON(http.StatusOK, echo.Map{"message": "Cart deleted"})
}
