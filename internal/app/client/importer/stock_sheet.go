// Package importer читает поступления товара из .xlsx.
package importer

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"stockkeeper/internal/domain/batch"
	"stockkeeper/internal/domain/stock"
)

var headerAliases = map[string]string{
	"product id":    "product_id",
	"product":       "product_id",
	"id":            "product_id",
	"товар":         "product_id",
	"код товара":    "product_id",
	"batch number":  "batch_number",
	"batch":         "batch_number",
	"batch no":      "batch_number",
	"lot":           "batch_number",
	"партия":        "batch_number",
	"номер партии":  "batch_number",
	"expiry date":   "expiry_date",
	"expiry":        "expiry_date",
	"exp date":      "expiry_date",
	"срок годности": "expiry_date",
	"годен до":      "expiry_date",
	"qty":           "qty",
	"quantity":      "qty",
	"количество":    "qty",
	"кол-во":        "qty",
}

var required = []string{"product_id", "batch_number", "expiry_date", "qty"}

// форматы даты, в которых ячейка может прийти из GetRows
var dateLayouts = []string{
	batch.DateLayout,
	"02.01.2006",
	"01/02/2006",
	"1/2/06",
	"01-02-06",
	"2006/01/02",
}

// ParseStockSheet разбирает первый лист. Ошибочные строки возвращаются в
// RowError и не мешают остальным; err - только для файла целиком.
func ParseStockSheet(r io.Reader) ([]stock.AddRequest, []stock.RowError, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("excel file has no sheets")
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("excel file is empty")
	}

	cols := mapColumns(rows[0])
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, nil, fmt.Errorf("missing required column: %s", name)
		}
	}

	var (
		out     = make([]stock.AddRequest, 0, len(rows)-1)
		rowErrs []stock.RowError
	)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		if blank(cells) {
			continue
		}

		req, err := parseRow(cells, cols)
		if err != nil {
			rowErrs = append(rowErrs, stock.RowError{Row: index + 1, Err: err})
			continue
		}
		out = append(out, req)
	}

	return out, rowErrs, nil
}

func parseRow(cells []string, cols map[string]int) (stock.AddRequest, error) {
	var req stock.AddRequest

	id, err := parseInt(readCell(cells, cols["product_id"]))
	if err != nil {
		return req, fmt.Errorf("invalid product_id: %w", err)
	}
	qty, err := parseInt(readCell(cells, cols["qty"]))
	if err != nil {
		return req, fmt.Errorf("invalid qty: %w", err)
	}
	expiry, err := parseDate(readCell(cells, cols["expiry_date"]))
	if err != nil {
		return req, fmt.Errorf("invalid expiry_date: %w", err)
	}

	req = stock.AddRequest{
		ProductID:   int64(id),
		BatchNumber: strings.TrimSpace(readCell(cells, cols["batch_number"])),
		ExpiryDate:  expiry.Format(batch.DateLayout),
		Qty:         qty,
	}
	return req, req.Validate()
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		normalized := normalizeHeader(col)
		if normalized == "" {
			continue
		}
		canonical, ok := headerAliases[normalized]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.ReplaceAll(value, "_", " ")
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseInt(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, errors.New("value is empty")
	}

	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, errors.New("must be an integer")
	}
	return int(asFloat), nil
}

func parseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, errors.New("value is empty")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}

	// неформатированная ячейка даты - серийный номер Excel
	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial > 0 {
		return excelize.ExcelDateToTime(serial, false)
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}
