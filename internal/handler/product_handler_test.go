package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func duvetRequest() ProductRequest {
	return ProductRequest{
		Name:             "Linen Duvet Cover",
		SKU:              "BED-DUV-001",
		Category:         "Bedding",
		Price:            100,
		ShowOnStorefront: true,
		Variants: []VariantRequest{
			{Size: "Queen", Price: 100},
			{Size: "King", Price: 130},
		},
		Colors: []ColorRequest{{Name: "White"}, {Name: "Sage"}},
		VariantStock: map[string]int{
			"Queen-White": 4,
			"King-Sage":   2,
		},
	}
}

func TestCreateProduct(t *testing.T) {
	db := setupDB(t)

	rec := request(t, CreateProduct, http.MethodPost, duvetRequest(), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var p model.Product
	decode(t, rec, &p)
	assert.Equal(t, "BED-DUV-001", p.SKU)
	require.Len(t, p.Variants, 2)
	assert.Equal(t, "Queen", p.Variants[0].Size)
	require.Len(t, p.Colors, 2)
	require.Len(t, p.VariantStock, 2)

	assert.Equal(t, 4, variantQty(t, db, p.ID, "Queen-White"))
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	setupDB(t)

	rec := request(t, CreateProduct, http.MethodPost, duvetRequest(), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = request(t, CreateProduct, http.MethodPost, duvetRequest(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateProductClampsNegativeStock(t *testing.T) {
	db := setupDB(t)

	req := duvetRequest()
	req.VariantStock = map[string]int{"Queen-White": -3}

	rec := request(t, CreateProduct, http.MethodPost, req, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var p model.Product
	decode(t, rec, &p)
	assert.Equal(t, 0, variantQty(t, db, p.ID, "Queen-White"))
}

func TestCreateProductRequiresNameAndSKU(t *testing.T) {
	setupDB(t)

	rec := request(t, CreateProduct, http.MethodPost, ProductRequest{Price: 10}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProductReplacesAssociations(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)

	req := duvetRequest()
	req.SKU = p.SKU
	req.Variants = []VariantRequest{{Size: "King", Price: 150}}
	req.Colors = []ColorRequest{{Name: "Charcoal"}}
	req.VariantStock = map[string]int{"King-Charcoal": 6}

	rec := request(t, UpdateProduct, http.MethodPut, req, map[string]string{"id": fmt.Sprint(p.ID)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated model.Product
	decode(t, rec, &updated)
	require.Len(t, updated.Variants, 1)
	assert.Equal(t, "King", updated.Variants[0].Size)
	require.Len(t, updated.VariantStock, 1)
	assert.Equal(t, "King-Charcoal", updated.VariantStock[0].VariantKey)

	// The original Queen-White row is gone
	var count int64
	require.NoError(t, db.Model(&model.VariantStock{}).Where("product_id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStorefrontProductsHidesUnlisted(t *testing.T) {
	db := setupDB(t)
	seedBeddingProduct(t, db) // visible

	hidden := &model.Product{Name: "Warehouse Only", SKU: "WH-001", Price: 10, ShowOnStorefront: false}
	require.NoError(t, db.Create(hidden).Error)

	rec := listRequest(t, StorefrontProducts, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []model.Product
	decode(t, rec, &products)
	require.Len(t, products, 1)
	assert.NotEqual(t, "WH-001", products[0].SKU)

	// The admin listing sees both
	rec = listRequest(t, ListProducts, "")
	decode(t, rec, &products)
	assert.Len(t, products, 2)
}

func TestListProductsCategoryFilter(t *testing.T) {
	db := setupDB(t)
	seedBeddingProduct(t, db)
	seedBathProduct(t, db)

	rec := listRequest(t, ListProducts, "category=Bath")
	require.Equal(t, http.StatusOK, rec.Code)

	var products []model.Product
	decode(t, rec, &products)
	require.Len(t, products, 1)
	assert.Equal(t, "Bath", products[0].Category)
}

func TestDeleteProductSoftDeletes(t *testing.T) {
	db := setupDB(t)
	p := seedBeddingProduct(t, db)
	id := fmt.Sprint(p.ID)

	rec := request(t, DeleteProduct, http.MethodDelete, nil, map[string]string{"id": id})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, GetProduct, http.MethodGet, nil, map[string]string{"id": id})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Soft delete: the row survives with deleted_at set
	var count int64
	require.NoError(t, db.Unscoped().Model(&model.Product{}).Where("id = ?", p.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	rec = request(t, DeleteProduct, http.MethodDelete, nil, map[string]string{"id": id})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLowStockReport(t *testing.T) {
	db := setupDB(t)

	p := &model.Product{
		Name:              "Bath Towel",
		SKU:               "BATH-TWL-001",
		Category:          "Bath",
		Price:             25,
		LowStockThreshold: 3,
		ShowOnStorefront:  true,
		VariantStock: []model.VariantStock{
			{VariantKey: "Standard-White", Quantity: 2},
			{VariantKey: "Standard-Grey", Quantity: 9},
		},
	}
	require.NoError(t, db.Create(p).Error)

	rec := listRequest(t, LowStockReport, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var rows []map[string]interface{}
	decode(t, rec, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "Standard-White", rows[0]["variant_key"])
	assert.EqualValues(t, 2, rows[0]["quantity"])
}
