package inquiries

import (
	"context"
	"fmt"
	"io"
	"strings"

	pkgAuth "github.com/angelmondragon/tradedesk-backend/pkg/auth"
	"github.com/angelmondragon/tradedesk-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tradedesk-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/multierr"
)

const (
	columnSKU      = "sku"
	columnQuantity = "quantity"
	columnPrice    = "price"
)

var importHeaderAliases = map[string]string{
	"sku":          columnSKU,
	"sku code":     columnSKU,
	"skucode":      columnSKU,
	"item code":    columnSKU,
	"code":         columnSKU,
	"quantity":     columnQuantity,
	"qty":          columnQuantity,
	"amount":       columnQuantity,
	"order qty":    columnQuantity,
	"price":        columnPrice,
	"target price": columnPrice,
	"unit price":   columnPrice,
	"targetprice":  columnPrice,
}

// importRow is one parsed spreadsheet line. Row is the 1-based sheet row.
type importRow struct {
	Row         int
	SKUCode     string
	Quantity    int
	TargetPrice *decimal.Decimal
}

// parseImportSheet reads the first sheet and returns the data rows. Row
// problems are collected rather than returned on first failure.
func parseImportSheet(r io.Reader) ([]importRow, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open excel file: %w", err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("excel file has no sheets")
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("excel file is empty")
	}

	cols := mapImportColumns(rows[0])
	if _, ok := cols[columnSKU]; !ok {
		return nil, fmt.Errorf("missing required column: sku")
	}
	if _, ok := cols[columnQuantity]; !ok {
		return nil, fmt.Errorf("missing required column: quantity")
	}

	var errs error
	out := make([]importRow, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		if blankRow(cells) {
			continue
		}
		rowNo := index + 1
		row := importRow{Row: rowNo, SKUCode: strings.TrimSpace(readCell(cells, cols[columnSKU]))}
		rowOK := true
		if row.SKUCode == "" {
			errs = multierr.Append(errs, fmt.Errorf("row %d: missing sku", rowNo))
			rowOK = false
		}

		qty, err := parseQuantity(readCell(cells, cols[columnQuantity]))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("row %d: %w", rowNo, err))
			rowOK = false
		}
		row.Quantity = qty

		if idx, ok := cols[columnPrice]; ok {
			price, err := parsePrice(readCell(cells, idx))
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("row %d: %w", rowNo, err))
				rowOK = false
			}
			row.TargetPrice = price
		}
		if rowOK {
			out = append(out, row)
		}
	}
	if errs != nil {
		return nil, errs
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("excel file has no data rows")
	}
	return out, nil
}

func (s *service) ImportFromExcel(ctx context.Context, r io.Reader, meta ImportMeta, actor *pkgAuth.Actor) (*models.Inquiry, error) {
	if actor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	rows, err := parseImportSheet(r)
	if err != nil {
		return nil, importError(err)
	}

	codes := make([]string, 0, len(rows))
	for _, row := range rows {
		codes = append(codes, row.SKUCode)
	}
	skus, err := s.skus.FindSKUsByCodes(ctx, codes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve sku codes")
	}
	var errs error
	var valueIDs []uuid.UUID
	for _, row := range rows {
		sku, ok := skus[row.SKUCode]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("row %d: unknown sku %q", row.Row, row.SKUCode))
			continue
		}
		valueIDs = append(valueIDs, sku.AttributeValueIDs...)
	}
	if errs != nil {
		return nil, importError(errs)
	}
	labels, err := s.repo.ValueLabels(ctx, valueIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load attribute values")
	}

	items := make([]ItemInput, 0, len(rows))
	for _, row := range rows {
		sku := skus[row.SKUCode]
		skuID := sku.ID
		items = append(items, ItemInput{
			ProductID:   sku.ProductID,
			SKUID:       &skuID,
			SKUSpecs:    describeSKU(sku, labels),
			Quantity:    row.Quantity,
			TargetPrice: row.TargetPrice,
		})
	}

	name := strings.TrimSpace(meta.ContactName)
	if name == "" {
		name = actor.Email
	}
	return s.Create(ctx, CreateInput{
		ContactName:  name,
		ContactEmail: meta.ContactEmail,
		ContactPhone: meta.ContactPhone,
		CompanyName:  meta.CompanyName,
		Notes:        meta.Notes,
		Currency:     meta.Currency,
		Items:        items,
	}, actor)
}

// importError rejects the whole sheet, listing each row problem.
func importError(err error) error {
	errs := multierr.Errors(err)
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	return pkgerrors.Wrap(pkgerrors.CodeBadRequest, err, "spreadsheet rejected").
		WithDetails(map[string]any{"reason": "import_rows", "errors": messages})
}

// describeSKU renders the value labels of a SKU, falling back to its code.
func describeSKU(sku models.SKU, labels map[uuid.UUID]models.AttributeValue) string {
	parts := make([]string, 0, len(sku.AttributeValueIDs))
	for _, id := range sku.AttributeValueIDs {
		if v, ok := labels[id]; ok {
			if label := v.Value.Get("en"); label != "" {
				parts = append(parts, label)
			}
		}
	}
	if len(parts) == 0 {
		return sku.SKUCode
	}
	return strings.Join(parts, " / ")
}

func mapImportColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := importHeaderAliases[normalizeHeader(col)]
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

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseQuantity(raw string) (int, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsInteger() || !d.IsPositive() || d.GreaterThan(decimal.NewFromInt(1_000_000_000)) {
		return 0, fmt.Errorf("quantity %q is not a positive integer", strings.TrimSpace(raw))
	}
	return int(d.IntPart()), nil
}

func parsePrice(raw string) (*decimal.Decimal, error) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if value == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil || d.IsNegative() {
		return nil, fmt.Errorf("price %q is invalid", strings.TrimSpace(raw))
	}
	return &d, nil
}
