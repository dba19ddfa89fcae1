package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/middleware"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/stock"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/logger"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PosTransactionRequest defines the structure for POS checkout requests
type PosTransactionRequest struct {
	Items          []stock.ItemRequest `json:"items"`
	Discount       float64             `json:"discount"`
	GSTPercentage  *float64            `json:"gst_percentage"`
	AmountReceived float64             `json:"amount_received"`
	PaymentMethod  string              `json:"payment_method"`
}

const posNumberAttempts = 5

func uniquePosNumber(tx *gorm.DB) (string, error) {
	for attempt := 0; attempt < posNumberAttempts; attempt++ {
		number := model.GeneratePosTransactionNumber(time.Now())
		var count int64
		if err := tx.Model(&model.PosTransaction{}).Where("transaction_number = ?", number).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique transaction number after %d attempts", posNumberAttempts)
}

// CreatePosTransaction handles in-store checkout. The counter is more
// lenient than the storefront: only stock counts are validated, and omitted
// size or color silently defaults to the product's first declared variant
// and color. Stock is deducted in the same transaction as the sale record.
func CreatePosTransaction(c echo.Context) error {
	log := logger.FromContext(c)

	var req PosTransactionRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	if len(req.Items) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction must contain at least one item"})
	}
	if req.Discount < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "discount cannot be negative"})
	}

	gstPercentage := checkoutCfg.GSTPercentage
	if req.GSTPercentage != nil {
		if *req.GSTPercentage < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "gst_percentage cannot be negative"})
		}
		gstPercentage = *req.GSTPercentage
	}

	db := database.GetDB()

	var txn model.PosTransaction
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

		if problems := stock.ValidatePosItems(products, req.Items); len(problems) > 0 {
			return &validationError{message: strings.Join(problems, "; ")}
		}

		items := make([]model.PosTransactionItem, 0, len(req.Items))
		movements := make([]stock.Movement, 0, len(req.Items))
		var subtotal float64

		for _, item := range req.Items {
			p := products[item.ProductID]
			size, color := stock.PosDefaults(p, item.Size, item.Color)
			price := p.VariantPrice(size)
			subtotal += price * float64(item.Qty)

			items = append(items, model.PosTransactionItem{
				ProductID: p.ID,
				Name:      p.Name,
				Qty:       item.Qty,
				Price:     price,
				Size:      size,
				Color:     color,
			})
			movements = append(movements, stock.Movement{ProductID: p.ID, Size: size, Color: color, Qty: item.Qty})
		}

		discount := req.Discount
		if discount > subtotal {
			discount = subtotal
		}

		taxable := subtotal - discount
		gstAmount := taxable * gstPercentage / 100
		total := taxable + gstAmount

		if req.AmountReceived < total {
			return &validationError{message: fmt.Sprintf("amount received %.2f is less than total %.2f", req.AmountReceived, total)}
		}

		number, err := uniquePosNumber(tx)
		if err != nil {
			return err
		}

		paymentMethod := req.PaymentMethod
		if paymentMethod == "" {
			paymentMethod = "cash"
		}

		txn = model.PosTransaction{
			TransactionNumber: number,
			Subtotal:          subtotal,
			Discount:          discount,
			GSTPercentage:     gstPercentage,
			GSTAmount:         gstAmount,
			Total:             total,
			AmountReceived:    req.AmountReceived,
			Change:            req.AmountReceived - total,
			PaymentMethod:     paymentMethod,
			Status:            model.PosStatusCompleted,
			Items:             items,
		}
		if cashierID, ok := middleware.GetUserIDFromContext(c); ok {
			txn.CashierID = &cashierID
		}

		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		applied, err = stock.Deduct(tx, movements)
		return err
	})

	if err != nil {
		var vErr *validationError
		if errors.As(err, &vErr) {
			log.Warn("POS transaction validation failed", zap.String("reason", vErr.message))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": vErr.message})
		}
		var stockErr *stock.InsufficientStockError
		if errors.As(err, &stockErr) {
			prometheus.RecordStockRejection("pos")
			log.Warn("POS transaction rejected for insufficient stock",
				zap.Uint("product_id", stockErr.ProductID),
				zap.String("variant_key", stockErr.Key),
				zap.Int("requested", stockErr.Requested))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": stockErr.Error()})
		}
		log.Error("Failed to create POS transaction", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create transaction"})
	}

	prometheus.PosTransactionsCounter.WithLabelValues(txn.Status).Inc()
	for _, a := range applied {
		if !a.Aggregate {
			prometheus.UpdateVariantStock(strconv.FormatUint(uint64(a.ProductID), 10), a.Key, float64(a.Remaining))
		}
	}

	log.Info("POS transaction created",
		zap.String("transaction_number", txn.TransactionNumber),
		zap.Int("items", len(txn.Items)),
		zap.Float64("total", txn.Total))
	return c.JSON(http.StatusCreated, txn)
}

// ListPosTransactions handles retrieving POS transactions (admin)
func ListPosTransactions(c echo.Context) error {
	log := logger.FromContext(c)

	query := database.GetDB().Preload("Items").Order("created_at DESC")

	status := c.QueryParam("status")
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var transactions []model.PosTransaction
	if result := query.Find(&transactions); result.Error != nil {
		log.Error("Failed to list POS transactions", zap.Error(result.Error))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to retrieve transactions"})
	}

	return c.JSON(http.StatusOK, transactions)
}

// GetPosTransaction handles retrieving a single POS transaction by ID (admin)
func GetPosTransaction(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var txn model.PosTransaction
	result := database.GetDB().Preload("Items").First(&txn, id)
	if result.Error != nil {
		log.Warn("POS transaction not found", zap.String("transaction_id", id))
		return c.JSON(http.StatusNotFound, echo.Map{"error": "Transaction not found"})
	}

	return c.JSON(http.StatusOK, txn)
}

// UpdatePosTransactionStatus handles POS status changes (admin). Voiding a
// sale (cancelled or refunded) restores its stock exactly once, mirroring
// order cancellation: the status write is conditional on the row not already
// being voided, and only the request that flips it restores, so concurrent
// voids cannot double-restore.
func UpdatePosTransactionStatus(c echo.Context) error {
	log := logger.FromContext(c)
	id := c.Param("id")

	var req StatusUpdateRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.String("transaction_id", id), zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid request data"})
	}

	switch req.Status {
	case model.PosStatusCompleted, model.PosStatusCancelled, model.PosStatusRefunded:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("unknown status %q", req.Status)})
	}

	voided := func(status string) bool {
		return status == model.PosStatusCancelled || status == model.PosStatusRefunded
	}

	db := database.GetDB()

	var txn model.PosTransaction
	var restored bool
	var applied []stock.Applied

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&txn, id).Error; err != nil {
			return err
		}

		if voided(req.Status) {
			res := tx.Model(&model.PosTransaction{}).
				Where("id = ? AND status NOT IN ?", txn.ID, []string{model.PosStatusCancelled, model.PosStatusRefunded}).
				UpdateColumn("status", req.Status)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				var err error
				applied, err = stock.Restore(tx, stock.MovementsFromPosItems(txn.Items))
				if err != nil {
					return err
				}
				restored = true
			} else if err := tx.Model(&txn).UpdateColumn("status", req.Status).Error; err != nil {
				return err
			}
		} else if err := tx.Model(&txn).UpdateColumn("status", req.Status).Error; err != nil {
			return err
		}

		txn.Status = req.Status
		return nil
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("POS transaction not found for status update", zap.String("transaction_id", id))
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Transaction not found"})
		}
		log.Error("Failed to update POS transaction status", zap.String("transaction_id", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update transaction status"})
	}

	prometheus.PosTransactionsCounter.WithLabelValues(req.Status).Inc()
	if restored {
		for _, a := range applied {
			if !a.Aggregate {
				prometheus.UpdateVariantStock(strconv.FormatUint(uint64(a.ProductID), 10), a.Key, float64(a.Remaining))
			}
		}
	}

	log.Info("POS transaction status updated",
		zap.String("transaction_number", txn.TransactionNumber),
		zap.String("status", req.Status),
		zap.Bool("stock_restored", restored))
	return c.JSON(http.StatusOK, echo.Map{
		"transaction_number": txn.TransactionNumber,
		"status":             req.Status,
		"stock_restored":     restored,
	})
}
