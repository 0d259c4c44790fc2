package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/logging"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type StockWriter interface {
	Set(ctx context.Context, level domain.StockLevel) error
}

// CSVImporter loads catalog rows and their stock levels. A row with a key
// starts a product; following rows without a key add stock variants or
// images to it.
type CSVImporter struct {
	reader   *csv.Reader
	products ProductWriter
	stock    StockWriter
	logger   *zap.SugaredLogger
}

func NewCSVImporter(r io.Reader, products ProductWriter, stock StockWriter, logger *zap.SugaredLogger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:   csvr,
		products: products,
		stock:    stock,
		logger:   logging.OrNop(logger),
	}
}

// Result counts what a run wrote.
type Result struct {
	Products    int
	StockLevels int
}

type variantRow struct {
	Size     string
	Color    string
	Quantity int
}

type csvRow struct {
	ID         string
	Key        string
	Name       string
	Desc       string
	SKU        string
	Price      string
	Discounted string
	Currency   string
	ImageURLs  []string
	Variants   []variantRow
}

// Run parses CSV rows and upserts products grouped by product key.
func (i *CSVImporter) Run(ctx context.Context) (Result, error) {
	var res Result
	headers, err := i.reader.Read()
	if err != nil {
		return res, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var current *csvRow
	line := 1
	for {
		record, err := i.reader.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read row %d: %w", line, err)
		}

		row, err := parseRow(record, index)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", line, err)
		}
		if row == nil {
			continue
		}

		if row.Key != "" {
			if current != nil {
				if err := i.save(ctx, current, &res); err != nil {
					return res, err
				}
			}
			current = row
			continue
		}

		// Continuation rows belong to the current product.
		if current != nil {
			current.ImageURLs = append(current.ImageURLs, row.ImageURLs...)
			current.Variants = append(current.Variants, row.Variants...)
		}
	}

	if current != nil {
		if err := i.save(ctx, current, &res); err != nil {
			return res, err
		}
	}
	i.logger.Infof("importer: done products=%d stock_levels=%d", res.Products, res.StockLevels)
	return res, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow, res *Result) error {
	if row.Key == "" || row.Name == "" || row.SKU == "" || row.Price == "" {
		return fmt.Errorf("invalid product row (missing required fields) for key %q", row.Key)
	}
	if row.ID != "" {
		if _, err := uuid.Parse(row.ID); err != nil {
			return fmt.Errorf("invalid id for key %q: %s", row.Key, row.ID)
		}
	}
	price, err := decimal.NewFromString(row.Price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("invalid price for key %q: %s", row.Key, row.Price)
	}
	var discounted *decimal.Decimal
	if row.Discounted != "" {
		d, err := decimal.NewFromString(row.Discounted)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("invalid discounted price for key %q: %s", row.Key, row.Discounted)
		}
		discounted = &d
	}
	currency := row.Currency
	if currency == "" {
		currency = "USD"
	}

	attrs := map[string]interface{}{}
	if len(row.ImageURLs) > 0 {
		attrs["images"] = row.ImageURLs
	}

	saved, err := i.products.Upsert(ctx, domain.Product{
		ID:              row.ID,
		Key:             row.Key,
		SKU:             row.SKU,
		Name:            row.Name,
		Description:     row.Desc,
		Price:           price.Round(2),
		DiscountedPrice: discounted,
		Currency:        currency,
		Attributes:      attrs,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", row.Key, err)
	}
	res.Products++

	if i.stock == nil {
		return nil
	}
	for _, v := range row.Variants {
		level := domain.StockLevel{ProductID: saved.ID, Size: v.Size, Color: v.Color, Quantity: v.Quantity}
		if err := i.stock.Set(ctx, level); err != nil {
			return fmt.Errorf("set stock %q size=%q color=%q: %w", row.Key, v.Size, v.Color, err)
		}
		res.StockLevels++
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimSpace(h)] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) (*csvRow, error) {
	key := pick(record, index, "key")
	imageURL := pick(record, index, "image")
	stockStr := pick(record, index, "stock")

	if key == "" && imageURL == "" && stockStr == "" {
		return nil, nil
	}

	row := &csvRow{
		ID:         pick(record, index, "id"),
		Key:        key,
		Name:       pick(record, index, "name"),
		Desc:       pick(record, index, "description"),
		SKU:        pick(record, index, "sku"),
		Price:      pick(record, index, "price"),
		Discounted: pick(record, index, "discountedPrice"),
		Currency:   strings.ToUpper(pick(record, index, "currency")),
	}
	if imageURL != "" {
		row.ImageURLs = []string{imageURL}
	}
	if stockStr != "" {
		qty, err := strconv.Atoi(stockStr)
		if err != nil || qty < 0 {
			return nil, fmt.Errorf("invalid stock %q", stockStr)
		}
		row.Variants = []variantRow{{
			Size:     pick(record, index, "size"),
			Color:    pick(record, index, "color"),
			Quantity: qty,
		}}
	}
	return row, nil
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}
