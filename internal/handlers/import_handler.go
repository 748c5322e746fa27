package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"stock-monitor-service/internal/models"
	"stock-monitor-service/internal/store"
)

// ImportFormat represents the file format for import
type ImportFormat string

const (
	ImportFormatCSV  ImportFormat = "csv"
	ImportFormatXLSX ImportFormat = "xlsx"
)

// ImportTemplateColumn defines a column in the import template
type ImportTemplateColumn struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Type        string `json:"type"`
	Example     string `json:"example"`
}

// ImportTemplate defines the structure of an import template
type ImportTemplate struct {
	Entity     string                 `json:"entity"`
	Version    string                 `json:"version"`
	Columns    []ImportTemplateColumn `json:"columns"`
	SampleData []map[string]string    `json:"sampleData,omitempty"`
}

// ImportRowError represents an error for a specific row
type ImportRowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ImportResult represents the result of an import operation
type ImportResult struct {
	Success      bool             `json:"success"`
	TotalRows    int              `json:"totalRows"`
	SuccessCount int              `json:"successCount"`
	FailedCount  int              `json:"failedCount"`
	Errors       []ImportRowError `json:"errors,omitempty"`
	CreatedIDs   []string         `json:"createdIds,omitempty"`
}

// ImportHandler bulk-provisions products from CSV/XLSX uploads.
type ImportHandler struct {
	ledger *store.Ledger
}

func NewImportHandler(ledger *store.Ledger) *ImportHandler {
	return &ImportHandler{ledger: ledger}
}

// ProductImportTemplate returns the template for products
func ProductImportTemplate() ImportTemplate {
	return ImportTemplate{
		Entity:  "products",
		Version: "1.0",
		Columns: []ImportTemplateColumn{
			{Name: "sku", Description: "Unique product SKU", Required: true, Type: "string", Example: "SKU-1001"},
			{Name: "name", Description: "Product name", Required: true, Type: "string", Example: "Wireless Mouse"},
			{Name: "category", Description: "Product category", Required: true, Type: "string", Example: "Electronics"},
			{Name: "warehouseId", Description: "Warehouse assignment", Required: true, Type: "string", Example: "WH-001"},
			{Name: "currentStock", Description: "Initial stock on hand", Required: true, Type: "int", Example: "120"},
			{Name: "reorderPoint", Description: "Reorder threshold, below maxCapacity", Required: true, Type: "int", Example: "40"},
			{Name: "maxCapacity", Description: "Maximum storable quantity", Required: true, Type: "int", Example: "500"},
			{Name: "unitPrice", Description: "Unit price", Required: false, Type: "float", Example: "24.99"},
		},
		SampleData: []map[string]string{
			{
				"sku": "SKU-1001", "name": "Wireless Mouse", "category": "Electronics",
				"warehouseId": "WH-001", "currentStock": "120", "reorderPoint": "40",
				"maxCapacity": "500", "unitPrice": "24.99",
			},
		},
	}
}

// GetProductImportTemplate returns the import template definition.
func (h *ImportHandler) GetProductImportTemplate(c *gin.Context) {
	c.JSON(http.StatusOK, models.SuccessResponse{Success: true, Data: ProductImportTemplate()})
}

// ImportProducts parses an uploaded CSV or XLSX file and provisions one
// product per row. Row failures are collected, not fatal.
func (h *ImportHandler) ImportProducts(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Missing file upload")
		return
	}
	defer file.Close()

	var rows [][]string
	switch detectFormat(header.Filename) {
	case ImportFormatCSV:
		rows, err = readCSV(file)
	case ImportFormatXLSX:
		rows, err = readXLSX(file)
	default:
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unsupported file format, expected .csv or .xlsx")
		return
	}
	if err != nil {
		respondError(c, http.StatusBadRequest, "PARSE_ERROR", err.Error())
		return
	}
	if len(rows) < 2 {
		respondError(c, http.StatusBadRequest, "VALIDATION_ERROR", "File contains no data rows")
		return
	}

	cols := indexColumns(rows[0])
	result := ImportResult{Success: true}
	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after header
		result.TotalRows++
		product, rowErr := parseProductRow(cols, row, rowNum)
		if rowErr != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, *rowErr)
			continue
		}
		created, err := h.ledger.Create(product)
		if err != nil {
			result.FailedCount++
			result.Errors = append(result.Errors, ImportRowError{
				Row:     rowNum,
				Code:    "CREATION_FAILED",
				Message: err.Error(),
			})
			continue
		}
		result.SuccessCount++
		result.CreatedIDs = append(result.CreatedIDs, created.ID.String())
	}
	result.Success = result.FailedCount == 0

	status := http.StatusOK
	if result.SuccessCount == 0 {
		status = http.StatusBadRequest
	}
	c.JSON(status, result)
}

func detectFormat(filename string) ImportFormat {
	switch {
	case strings.HasSuffix(strings.ToLower(filename), ".csv"):
		return ImportFormatCSV
	case strings.HasSuffix(strings.ToLower(filename), ".xlsx"):
		return ImportFormatXLSX
	}
	return ""
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV: %w", err)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("invalid XLSX: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func parseProductRow(cols map[string]int, row []string, rowNum int) (models.Product, *ImportRowError) {
	cell := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for _, required := range []string{"sku", "name", "category", "warehouseId", "currentStock", "reorderPoint", "maxCapacity"} {
		if cell(required) == "" {
			return models.Product{}, &ImportRowError{
				Row:     rowNum,
				Column:  required,
				Code:    "MISSING_VALUE",
				Message: fmt.Sprintf("%s is required", required),
			}
		}
	}

	intCell := func(name string) (int, *ImportRowError) {
		n, err := strconv.Atoi(cell(name))
		if err != nil {
			return 0, &ImportRowError{Row: rowNum, Column: name, Code: "INVALID_NUMBER", Message: fmt.Sprintf("%s must be an integer", name)}
		}
		return n, nil
	}

	stock, rowErr := intCell("currentStock")
	if rowErr != nil {
		return models.Product{}, rowErr
	}
	reorder, rowErr := intCell("reorderPoint")
	if rowErr != nil {
		return models.Product{}, rowErr
	}
	capacity, rowErr := intCell("maxCapacity")
	if rowErr != nil {
		return models.Product{}, rowErr
	}

	price := 0.0
	if s := cell("unitPrice"); s != "" {
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Product{}, &ImportRowError{Row: rowNum, Column: "unitPrice", Code: "INVALID_NUMBER", Message: "unitPrice must be a number"}
		}
		price = p
	}

	return models.Product{
		SKU:          cell("sku"),
		Name:         cell("name"),
		Category:     cell("category"),
		WarehouseID:  cell("warehouseId"),
		CurrentStock: stock,
		ReorderPoint: reorder,
		MaxCapacity:  capacity,
		UnitPrice:    price,
	}, nil
}
