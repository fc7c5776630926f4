package store

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"pizza-dashboard/internal/models"
)

const (
	// DateLayout parses D/M/YYYY with or without zero padding.
	DateLayout = "2/1/2006"
	TimeLayout = "15:04:05"

	batchSize         = 1000
	maxWorkers        = 10
	maxReportedErrors = 20
)

// RequiredColumns is the canonical column order; exports use it too.
var RequiredColumns = []string{
	"order_id",
	"pizza_id",
	"pizza_name",
	"pizza_category",
	"pizza_size",
	"pizza_ingredients",
	"quantity",
	"unit_price",
	"total_price",
	"order_date",
	"order_time",
}

type LoadOptions struct {
	// SkipInvalid drops rows that fail to parse instead of failing the
	// whole load. Skipped rows are counted in LoadReport.
	SkipInvalid bool
	Workers     int
}

type LoadReport struct {
	Rows    int           `json:"rows"`
	Skipped int           `json:"skipped"`
	Errors  []*ParseError `json:"-"`
}

// Load reads the transaction CSV at path.
func Load(ctx context.Context, path string, opts LoadOptions, logger *slog.Logger) (*TransactionSet, LoadReport, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, LoadReport{}, &DataLoadError{Path: path, Reason: "open file", Err: err}
	}
	defer file.Close()

	return read(ctx, path, file, opts, logger)
}

// Read parses transactions from r; used for uploads and tests.
func Read(ctx context.Context, r io.Reader, opts LoadOptions, logger *slog.Logger) (*TransactionSet, LoadReport, error) {
	return read(ctx, "<reader>", r, opts, logger)
}

type rawRecord struct {
	line   int
	fields []string
}

type columnIndex map[string]int

func read(ctx context.Context, path string, r io.Reader, opts LoadOptions, logger *slog.Logger) (*TransactionSet, LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report LoadReport

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, report, &DataLoadError{Path: path, Reason: "empty file"}
	}
	if err != nil {
		return nil, report, &DataLoadError{Path: path, Reason: "read header", Err: err}
	}

	cols, err := indexColumns(header)
	if err != nil {
		return nil, report, &DataLoadError{Path: path, Reason: "invalid header", Err: err}
	}

	var records []rawRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, report, &DataLoadError{Path: path, Reason: "read records", Err: err}
		}
		line, _ := reader.FieldPos(0)
		records = append(records, rawRecord{line: line, fields: fields})
	}

	if len(records) == 0 {
		return nil, report, &DataLoadError{Path: path, Reason: "no transactions"}
	}

	rows, parseErrs, err := parseRecords(ctx, records, cols, opts.Workers)
	if err != nil {
		return nil, report, err
	}

	kept := rows[:0]
	for i := range rows {
		perr := parseErrs[i]
		if perr == nil {
			kept = append(kept, rows[i])
			continue
		}
		if !opts.SkipInvalid {
			return nil, report, perr
		}
		report.Skipped++
		if len(report.Errors) < maxReportedErrors {
			report.Errors = append(report.Errors, perr)
		}
	}

	if report.Skipped > 0 {
		logger.Warn("skipped invalid rows",
			"path", path,
			"skipped", report.Skipped,
			"first_error", report.Errors[0].Error(),
		)
	}

	if len(kept) == 0 {
		return nil, report, &DataLoadError{Path: path, Reason: "no valid transactions"}
	}

	report.Rows = len(kept)
	return NewTransactionSet(kept), report, nil
}

func indexColumns(header []string) (columnIndex, error) {
	cols := make(columnIndex, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range RequiredColumns {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return cols, nil
}

// parseRecords parses batches concurrently. Results stay index aligned with
// records so file order is preserved.
func parseRecords(ctx context.Context, records []rawRecord, cols columnIndex, workers int) ([]models.Transaction, []*ParseError, error) {
	if workers <= 0 {
		workers = maxWorkers
	}

	rows := make([]models.Transaction, len(records))
	parseErrs := make([]*ParseError, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				rows[i], parseErrs[i] = parseRecord(records[i], cols)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return rows, parseErrs, nil
}

func parseRecord(rec rawRecord, cols columnIndex) (models.Transaction, *ParseError) {
	get := func(name string) (string, *ParseError) {
		i := cols[name]
		if i >= len(rec.fields) {
			return "", &ParseError{Row: rec.line, Column: name, Err: errors.New("missing value")}
		}
		return strings.TrimSpace(rec.fields[i]), nil
	}
	fail := func(column, value string, err error) (models.Transaction, *ParseError) {
		return models.Transaction{}, &ParseError{Row: rec.line, Column: column, Value: value, Err: err}
	}

	values := make(map[string]string, len(RequiredColumns))
	for _, name := range RequiredColumns {
		v, perr := get(name)
		if perr != nil {
			return models.Transaction{}, perr
		}
		values[name] = v
	}

	if values["order_id"] == "" {
		return fail("order_id", "", errors.New("empty order id"))
	}

	size, err := models.ParseSize(values["pizza_size"])
	if err != nil {
		return fail("pizza_size", values["pizza_size"], err)
	}

	quantity, err := strconv.Atoi(values["quantity"])
	if err != nil {
		return fail("quantity", values["quantity"], err)
	}
	if quantity <= 0 {
		return fail("quantity", values["quantity"], errors.New("quantity must be positive"))
	}

	unitPrice, err := parseMoney(values["unit_price"])
	if err != nil {
		return fail("unit_price", values["unit_price"], err)
	}
	totalPrice, err := parseMoney(values["total_price"])
	if err != nil {
		return fail("total_price", values["total_price"], err)
	}

	orderDate, err := time.ParseInLocation(DateLayout, values["order_date"], time.UTC)
	if err != nil {
		return fail("order_date", values["order_date"], err)
	}

	clock, err := time.Parse(TimeLayout, values["order_time"])
	if err != nil {
		return fail("order_time", values["order_time"], err)
	}
	orderTime := time.Duration(clock.Hour())*time.Hour +
		time.Duration(clock.Minute())*time.Minute +
		time.Duration(clock.Second())*time.Second

	return models.Transaction{
		OrderID:     values["order_id"],
		PizzaID:     values["pizza_id"],
		PizzaName:   values["pizza_name"],
		Category:    models.Category(values["pizza_category"]),
		Size:        size,
		Ingredients: values["pizza_ingredients"],
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		TotalPrice:  totalPrice,
		OrderDate:   orderDate,
		OrderTime:   orderTime,
	}, nil
}

func parseMoney(v string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if d.IsNegative() {
		return decimal.Decimal{}, errors.New("negative amount")
	}
	return d, nil
}
