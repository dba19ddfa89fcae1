package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/wrhermikkhh/InfiniteHome-sub000/internal/model"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/config"
	"github.com/wrhermikkhh/InfiniteHome-sub000/pkg/database"
	"github.com/wrhermikkhh/InfiniteHome-sub000/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestMain(m *testing.M) {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	prometheus.InitMetrics(cfg)
	Initialize(cfg)
	os.Exit(m.Run())
}

// setupDB opens a fresh in-memory database, runs migrations and points the
// global accessor at it.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	database.Set(db)
	return db
}

// request runs a handler against a JSON request and returns the recorder
func request(t *testing.T, h echo.HandlerFunc, method string, body interface{}, params map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = strings.NewReader(string(encoded))
	} else {
		reader = strings.NewReader("")
	}

	e := echo.New()
	req := httptest.NewRequest(method, "/", reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)

	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	decode(t, rec, &body)
	return body["error"]
}

// seedBeddingProduct creates the standard fixture: a Queen/White duvet with
// two units of Queen-White in stock.
func seedBeddingProduct(t *testing.T, db *gorm.DB) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:     "Linen Duvet Cover",
		SKU:      "LDC-001",
		Category: "Bedding",
		Price:    90,
		Variants: []model.ProductVariant{{Size: "Queen", Price: 100}},
		Colors:   []model.ProductColor{{Name: "White"}},
		VariantStock: []model.VariantStock{
			{VariantKey: "Queen-White", Quantity: 2},
		},
		ShowOnStorefront: true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func seedBathProduct(t *testing.T, db *gorm.DB) *model.Product {
	t.Helper()

	p := &model.Product{
		Name:             "Waffle Bath Towel",
		SKU:              "WBT-001",
		Category:         "Bath",
		Price:            500,
		Stock:            10,
		ShowOnStorefront: true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func variantQty(t *testing.T, db *gorm.DB, productID uint, key string) int {
	t.Helper()

	var qty int
	err := db.Model(&model.VariantStock{}).
		Where("product_id = ? AND variant_key = ?", productID, key).
		Select("quantity").Scan(&qty).Error
	require.NoError(t, err)
	return qty
}

// listRequest runs a handler against a GET request with a query string
func listRequest(t *testing.T, h echo.HandlerFunc, query string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec
}

func statusBody(status string) map[string]string {
	return map[string]string{"status": status}
}
