package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/coupon"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/middleware"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/stock"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/config"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/mailer"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var checkoutCfg config.CheckoutConfig

// Initialize stores checkout defaults for the handlers
func Initialize(cfg *config.Config) {
	checkoutCfg = cfg.Checkout
}

// OrderRequest defines the structure for order creation requests. Monetary
// totals are not part of the request: subtotal, discount and total are
// derived server-side from catalog prices.
type OrderRequest struct {
	CustomerName    string              `json:"customer_name" validate:"required"`
	CustomerEmail   string              `json:"customer_email" validate:"required,email"`
	CustomerPhone   string              `json:"customer_phone"`
	ShippingAddress string              `json:"shipping_address"`
	ShippingCity    string              `json:"shipping_city"`
	ShippingPostal  string              `json:"shipping_postal"`
	PaymentMethod   string              `json:"payment_method"`
	CouponCode      string              `json:"coupon_code"`
	Status          string              `json:"status"`
	Items           []stock.ItemRequest `json:"items"`
}

const orderNumberAttempts = 5

// uniqueOrderNumber generates an order number not yet present in the table.
// The unique index is the real guarantee; the pre-check just keeps retries
// out of the failure path.
func uniqueOrderNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number := model.GenerateOrderNumber()
		var count int64
		if err := tx.Model(&model.Order{}).Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique order number after %d attempts", orderNumberAttempts)
}

// CreateOrder handles storefront checkout. The whole request succeeds or
// fails as one: every item is validated, every validation problem is
// reported in a single message, and stock deduction happens inside the same
// transaction that persists the order.
func CreateOrder(c echo.Context) error {
	log := logger.FromContext(c)

	var req OrderRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if req.CustomerName == "" || req.CustomerEmail == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "customer_name and customer_email are required"})
	}
	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "order must contain at least one item"})
	}

	initialStatus := model.StatusPending
	if req.Status != "" {
		if !model.IsValidOrderStatus(req.Status) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unknown status %q", req.Status)})
		}
		initialStatus = req.Status
	}

	db := database.GetDB()

	var order model.Order
	var applied []stock.Applied

	err := db.Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, 0, len(req.Items))
		for _, item := range req.Items {
			if item.ProductID != 0 {
				ids = append(ids, item.ProductID)
			}
		}

		products, err := stock.LoadProducts(tx, ids)
		if err != nil {
			return err
		}

		if problems := stock.ValidateOrderItems(products, req.Items); len(problems) > 0 {
			return &validationError{message: strings.Join(problems, "; ")}
		}

		// Build order lines from the catalog, not from the client
		items := make([]model.OrderItem, 0, len(req.Items))
		cartItems := make([]coupon.CartItem, 0, len(req.Items))
		movements := make([]stock.Movement, 0, len(req.Items))
		var subtotal float64

		for _, item := range req.Items {
			p := products[item.ProductID]
			price := p.VariantPrice(item.Size)
			subtotal += price * float64(item.Qty)

			items = append(items, model.OrderItem{
				ProductID:  p.ID,
				Name:       p.Name,
				Qty:        item.Qty,
				Price:      price,
				Size:       item.Size,
				Color:      item.Color,
				IsPreOrder: p.IsPreOrder,
			})
			cartItems = append(cartItems, coupon.CartItem{
				ProductID:  p.ID,
				Category:   p.Category,
				Price:      price,
				Qty:        item.Qty,
				IsPreOrder: p.IsPreOrder,
			})
			movements = append(movements, stock.Movement{ProductID: p.ID, Size: item.Size, Color: item.Color, Qty: item.Qty})
		}

		var discount float64
		couponCode := ""
		if req.CouponCode != "" {
			code := strings.ToUpper(strings.TrimSpace(req.CouponCode))
			var cpn model.Coupon
			if err := tx.Preload("AllowedCategories").Preload("AllowedProducts").
				Where("code = ?", code).First(&cpn).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &validationError{message: fmt.Sprintf("coupon %q not found", code)}
				}
				return err
			}

			result, err := coupon.Apply(&cpn, cartItems)
			if err != nil {
				prometheus.RecordCouponApplication("rejected")
				return &validationError{message: err.Error()}
			}
			discount = result.Discount
			couponCode = code

			if err := tx.Model(&cpn).UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error; err != nil {
				return err
			}
		}

		number, err := uniqueOrderNumber(tx)
		if err != nil {
			return err
		}

		shipping := checkoutCfg.ShippingFee
		now := time.Now()
		order = model.Order{
			OrderNumber:     number,
			CustomerName:    req.CustomerName,
			CustomerEmail:   req.CustomerEmail,
			CustomerPhone:   req.CustomerPhone,
			ShippingAddress: req.ShippingAddress,
			ShippingCity:    req.ShippingCity,
			ShippingPostal:  req.ShippingPostal,
			PaymentMethod:   req.PaymentMethod,
			CouponCode:      couponCode,
			Subtotal:        subtotal,
			Discount:        discount,
			Shipping:        shipping,
			Total:           subtotal - discount + shipping,
			Status:          initialStatus,
			Items:           items,
			StatusHistory: []model.OrderStatusEvent{
				{Status: initialStatus, Timestamp: now},
			},
		}
		if userID, ok := middleware.GetUserIDFromContext(c); ok {
			order.CustomerID = &userID
		}

		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		applied, err = stock.Deduct(tx, movements)
		return err
	})

	if err != nil {
		var vErr *validationError
		if errors.As(err, &vErr) {
			log.Warn("Order validation failed", zap.String("reason", vErr.message))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.message})
		}
		var stockErr *stock.InsufficientStockError
		if errors.As(err, &stockErr) {
			prometheus.RecordStockRejection("order")
			log.Warn("Order rejected for insufficient stock",
				zap.Uint("product_id", stockErr.ProductID),
				zap.String("variant_key", stockErr.Key),
				zap.Int("requested", stockErr.Requested))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": stockErr.Error()})
		}
		log.Error("Failed to create order", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create order"})
	}

	prometheus.OrdersCreatedCounter.Inc()
	// Counted only after commit: a coupon on an order that later failed
	// stock deduction was never really applied
	if order.CouponCode != "" {
		prometheus.RecordCouponApplication("applied")
	}
	for _, a := range applied {
		if !a.Aggregate {
			prometheus.UpdateVariantStock(strconv.FormatUint(uint64(a.ProductID), 10), a.Key, float64(a.Remaining))
		}
	}

	// Confirmation email is best-effort and never blocks the response
	mailer.DispatchOrderConfirmation(&order)

	log.Info("Order created successfully",
		zap.String("order_number", order.OrderNumber),
		zap.Int("items", len(order.Items)),
		zap.Float64("total", order.Total))
	return c.JSON(http.StatusCreated, order)
}

// validationError marks aggregated checkout validation failures so the
// handler can map them to a 400 instead of a 500.
type validationError struct {
	message string
}

func (e *validationError) Error() string { return e.message }

// ListOrders handles retrieving all orders with optional status filtering (admin)
func ListOrders(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Preload("Items").Order("created_at DESC")

	status := c.QueryParam("status")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []model.Order
	if result := query.Find(&orders); result.Error != nil {
		log.Error("Failed to list orders", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve orders"})
	}

	log.Info("Orders retrieved successfully", zap.Int("count", len(orders)))
	return c.JSON(http.StatusOK, orders)
}

// GetOrder handles retrieving a single order by ID (admin)
func GetOrder(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var order model.Order
	result := database.GetDB().
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp, id") }).
		First(&order, id)
	if result.Error != nil {
		log.Warn("Order not found", zap.String("order_id", id), zap.Error(result.Error))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
	}

	return c.JSON(http.StatusOK, order)
}

// TrackOrder handles the public order lookup by human-readable order number
func TrackOrder(c echo.Context) error {
	log := logger.FromContext(c)
	number := strings.ToUpper(strings.TrimSpace(c.Param("orderNumber")))

	var order model.Order
	result := database.GetDB().
		Preload("Items").
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("timestamp, id") }).
		Where("order_number = ?", number).
		First(&order)
	if result.Error != nil {
		log.Warn("Order not found for tracking", zap.String("order_number", number))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
	}

	return c.JSON(http.StatusOK, order)
}

// StatusUpdateRequest is the body of a status transition request
type StatusUpdateRequest struct {
	Status string `json:"status" validate:"required"`
}

// UpdateOrderStatus handles order status transitions (admin). Any status may
// be set to any other: the operator is trusted. Moving into cancelled
// restores the deducted stock exactly once: the status write is a
// conditional update and only the request that actually flips the row out of
// a non-cancelled status restores, so concurrent cancellations cannot
// double-restore. Every transition appends to the status history.
func UpdateOrderStatus(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("order_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if !model.IsValidOrderStatus(req.Status) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unknown status %q", req.Status)})
	}

	db := database.GetDB()

	var order model.Order
	var restored bool
	var applied []stock.Applied

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			return err
		}

		if req.Status == model.StatusCancelled {
			// Conditional write first: the restore is keyed off rows
			// affected, not an earlier read, so a cancel that lost the
			// race to another cancel restores nothing.
			res := tx.Model(&model.Order{}).
				Where("id = ? AND status <> ?", order.ID, model.StatusCancelled).
				UpdateColumn("status", model.StatusCancelled)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				var err error
				applied, err = stock.Restore(tx, stock.MovementsFromOrderItems(order.Items))
				if err != nil {
					return err
				}
				restored = true
			}
		} else if err := tx.Model(&order).UpdateColumn("status", req.Status).Error; err != nil {
			return err
		}

		order.Status = req.Status
		event := model.OrderStatusEvent{OrderID: order.ID, Status: req.Status, Timestamp: time.Now()}
		return tx.Create(&event).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("Order not found for status update", zap.String("order_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Order not found"})
		}
		log.Error("Failed to update order status", zap.String("order_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update order status"})
	}

	prometheus.OrderStatusCounter.WithLabelValues(req.Status).Inc()
	if restored {
		prometheus.OrdersCancelledCounter.Inc()
		for _, a := range applied {
			if !a.Aggregate {
				prometheus.UpdateVariantStock(strconv.FormatUint(uint64(a.ProductID), 10), a.Key, float64(a.Remaining))
			}
		}
	}

	log.Info("Order status updated",
		zap.String("order_number", order.OrderNumber),
		zap.String("status", req.Status),
		zap.Bool("stock_restored", restored))
	return c.JSON(http.StatusOK, echo.Map{
		"order_number":   order.OrderNumber,
		"status":         req.Status,
		"stock_restored": restored,
	})
}

// MyOrders lists the authenticated customer's own orders
func MyOrders(c echo.Context) error {
	log := logger.FromContext(c)

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	var orders []model.Order
	result := database.GetDB().Preload("Items").
		Where("customer_id = ?", userID).
		Order("created_at DESC").
		Find(&orders)
	if result.Error != nil {
		log.Error("Failed to list customer orders", zap.Uint("customer_id", userID), zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve orders"})
	}

	return c.JSON(http.StatusOK, orders)
}
