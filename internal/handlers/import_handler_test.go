package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"stock-monitor-service/internal/store"
)

func newImportRouter(t *testing.T) (*gin.Engine, *store.Ledger) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	ledger := store.NewLedger(logger)
	h := NewImportHandler(ledger)

	router := gin.New()
	router.GET("/api/v1/products/import/template", h.GetProductImportTemplate)
	router.POST("/api/v1/products/import", h.ImportProducts)
	return router, ledger
}

func uploadFile(t *testing.T, router *gin.Engine, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestImportTemplateEndpoint(t *testing.T) {
	router, _ := newImportRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/import/template", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reorderPoint")
	assert.Contains(t, w.Body.String(), "maxCapacity")
}

func TestImportProductsCSV(t *testing.T) {
	router, ledger := newImportRouter(t)

	csvData := "sku,name,category,warehouseId,currentStock,reorderPoint,maxCapacity,unitPrice\n" +
		"SKU-1,Wireless Mouse,Electronics,WH-001,120,40,500,24.99\n" +
		"SKU-2,Keyboard,Electronics,WH-001,80,30,300,\n"

	w := uploadFile(t, router, "products.csv", []byte(csvData))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Len(t, result.CreatedIDs, 2)
	assert.Equal(t, 2, ledger.Count())
}

func TestImportProductsCollectsRowErrors(t *testing.T) {
	router, ledger := newImportRouter(t)

	csvData := "sku,name,category,warehouseId,currentStock,reorderPoint,maxCapacity,unitPrice\n" +
		"SKU-1,Mouse,Electronics,WH-001,120,40,500,24.99\n" +
		",Missing SKU,Electronics,WH-001,10,5,100,\n" +
		"SKU-3,Bad Stock,Electronics,WH-001,abc,5,100,\n" +
		"SKU-4,Bad Thresholds,Electronics,WH-001,10,100,100,\n"

	w := uploadFile(t, router, "products.csv", []byte(csvData))
	require.Equal(t, http.StatusOK, w.Code)

	var result ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 3, result.FailedCount)
	require.Len(t, result.Errors, 3)
	// row numbers are 1-based including the header
	assert.Equal(t, 3, result.Errors[0].Row)
	assert.Equal(t, 1, ledger.Count())
}

func TestImportProductsXLSX(t *testing.T) {
	router, ledger := newImportRouter(t)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"sku", "name", "category", "warehouseId", "currentStock", "reorderPoint", "maxCapacity", "unitPrice"},
		{"SKU-X1", "Monitor", "Electronics", "WH-002", 60, 20, 200, 149.99},
	}
	for i, row := range rows {
		require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	w := uploadFile(t, router, "products.xlsx", buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, ledger.Count())
}

func TestImportProductsRejectsUnsupportedFormat(t *testing.T) {
	router, _ := newImportRouter(t)

	w := uploadFile(t, router, "products.txt", []byte("not a spreadsheet"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportProductsRejectsEmptyFile(t *testing.T) {
	router, _ := newImportRouter(t)

	w := uploadFile(t, router, "products.csv", []byte("sku,name\n"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
