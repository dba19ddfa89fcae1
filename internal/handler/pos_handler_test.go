package handler

import (
	"fmt"
	"net/http"
	"regexp"
	"testing"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/stock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func posRequest(items []stock.ItemRequest, received float64) PosTransactionRequest {
	gst := 0.0
	return PosTransactionRequest{
		Items:          items,
		GSTPercentage:  &gst,
		AmountReceived: received,
		PaymentMethod:  "cash",
	}
}

func TestCreatePosTransactionDefaultsToFirstVariant(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	// No size or color on the request: the counter silently takes the
	// product's first declared variant and color
	rec := request(t, CreatePosTransaction, http.MethodPost, posRequest([]stock.ItemRequest{
		{ProductID: p.ID, Qty: 1},
	}, 100), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var txn model.PosTransaction
	decode(t, rec, &txn)

	assert.Regexp(t, regexp.MustCompile(`^POS-\d{8}-\d{6}-\d{3}$`), txn.TransactionNumber)
	assert.Equal(t, model.PosStatusCompleted, txn.Status)
	assert.Equal(t, 100.0, txn.Subtotal) // Queen variant price
	require.Len(t, txn.Items, 1)
	assert.Equal(t, "Queen", txn.Items[0].Size)
	assert.Equal(t, "White", txn.Items[0].Color)

	assert.Equal(t, 1, variantQty(t, db, p.ID, "Queen-White"))
}

func TestCreatePosTransactionComputesGSTAndChange(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	gst := 7.0
	req := PosTransactionRequest{
		Items:          []stock.ItemRequest{{ProductID: p.ID, Qty: 2}},
		Discount:       20,
		GSTPercentage:  &gst,
		AmountReceived: 250,
	}

	rec := request(t, CreatePosTransaction, http.MethodPost, req, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var txn model.PosTransaction
	decode(t, rec, &txn)

	// subtotal 200, less 20 discount, plus 7% GST on the taxable 180
	assert.Equal(t, 200.0, txn.Subtotal)
	assert.Equal(t, 20.0, txn.Discount)
	assert.InDelta(t, 12.6, txn.GSTAmount, 0.001)
	assert.InDelta(t, 192.6, txn.Total, 0.001)
	assert.InDelta(t, 57.4, txn.Change, 0.001)
	assert.Equal(t, "cash", txn.PaymentMethod)
}

func TestCreatePosTransactionInsufficientCash(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	rec := request(t, CreatePosTransaction, http.MethodPost, posRequest([]stock.ItemRequest{
		{ProductID: p.ID, Qty: 1},
	}, 10), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "amount received")

	// Nothing persisted, nothing deducted
	var count int64
	require.NoError(t, db.Model(&model.PosTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 2, variantQty(t, db, p.ID, "Queen-White"))
}

func TestCreatePosTransactionInsufficientStock(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	rec := request(t, CreatePosTransaction, http.MethodPost, posRequest([]stock.ItemRequest{
		{ProductID: p.ID, Qty: 5},
	}, 1000), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorMessage(t, rec), "in stock")
	assert.Equal(t, 2, variantQty(t, db, p.ID, "Queen-White"))
}

func TestCreatePosTransactionIgnoresUndeclaredColor(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	// The storefront would reject this color; the counter only checks stock
	rec := request(t, CreatePosTransaction, http.MethodPost, posRequest([]stock.ItemRequest{
		{ProductID: p.ID, Qty: 1, Size: "Queen", Color: "Chartreuse"},
	}, 100), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 1, variantQty(t, db, p.ID, "Queen-White"))
}

func createPosTransaction(t *testing.T, p *model.Product, qty int) model.PosTransaction {
	t.Helper()

	rec := request(t, CreatePosTransaction, http.MethodPost, posRequest([]stock.ItemRequest{
		{ProductID: p.ID, Qty: qty},
	}, 1000), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var txn model.PosTransaction
	decode(t, rec, &txn)
	return txn
}

func TestVoidingPosTransactionRestoresStockOnce(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	txn := createPosTransaction(t, p, 2)
	require.Equal(t, 0, variantQty(t, db, p.ID, "Queen-White"))

	id := fmt.Sprint(txn.ID)

	rec := request(t, UpdatePosTransactionStatus, http.MethodPatch, statusBody(model.PosStatusCancelled), map[string]string{"id": id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, variantQty(t, db, p.ID, "Queen-White"))

	// Refunding an already-cancelled sale must not restore again
	rec = request(t, UpdatePosTransactionStatus, http.MethodPatch, statusBody(model.PosStatusRefunded), map[string]string{"id": id})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, variantQty(t, db, p.ID, "Queen-White"))
}

func TestVoidLosingRaceDoesNotRestore(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	txn := createPosTransaction(t, p, 2)
	require.Equal(t, 0, variantQty(t, db, p.ID, "Queen-White"))

	// A rival refund lands right after this request loads the sale; the
	// conditional status write then affects no row, so no second restore.
	flipped := false
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("rival_void", func(d *gorm.DB) {
		if flipped || d.Statement.Table != "pos_transactions" {
			return
		}
		flipped = true
		d.Session(&gorm.Session{NewDB: true}).
			Model(&model.PosTransaction{}).
			Where("id = ?", txn.ID).
			UpdateColumn("status", model.PosStatusRefunded)
	}))
	t.Cleanup(func() { db.Callback().Query().Remove("rival_void") })

	rec := request(t, UpdatePosTransactionStatus, http.MethodPatch, statusBody(model.PosStatusCancelled), map[string]string{"id": fmt.Sprint(txn.ID)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, flipped)
	assert.Equal(t, 0, variantQty(t, db, p.ID, "Queen-White"))
}

func TestUpdatePosTransactionStatusRejectsUnknown(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)
	txn := createPosTransaction(t, p, 1)

	rec := request(t, UpdatePosTransactionStatus, http.MethodPatch, statusBody("pending"), map[string]string{"id": fmt.Sprint(txn.ID)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
