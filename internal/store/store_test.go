package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/models"
)

const header = "order_id,pizza_id,pizza_name,pizza_category,pizza_size,pizza_ingredients,quantity,unit_price,total_price,order_date,order_time"

const validCSV = header + `
1,hawaiian_m,The Hawaiian Pizza,Classic,M,"Sliced Ham, Pineapple, Mozzarella Cheese",1,13.25,13.25,1/1/2015,11:38:36
2,classic_dlx_m,The Classic Deluxe Pizza,Classic,M,"Pepperoni, Mushrooms, Red Onions",1,16.00,16.00,01/01/2015,11:57:40
2,five_cheese_l,The Five Cheese Pizza,Veggie,L,"Mozzarella Cheese, Provolone Cheese",2,18.50,37.00,01/01/2015,11:57:40
3,ital_supr_xl,The Italian Supreme Pizza,Supreme,XL,"Calabrese Salami, Capocollo",1,25.50,25.50,15/07/2015,9:05:00
`

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pizza_sales.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_ValidData(t *testing.T) {
	set, report, err := Load(context.Background(), createTempCSV(t, validCSV), LoadOptions{}, quietLogger)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if set.Len() != 4 || report.Rows != 4 || report.Skipped != 0 {
		t.Fatalf("Len = %d, report = %+v", set.Len(), report)
	}

	rows := set.Rows()
	first := rows[0]
	if first.OrderID != "1" || first.Size != models.SizeM || first.Quantity != 1 {
		t.Errorf("unexpected first row: %+v", first)
	}
	if !first.TotalPrice.Equal(decimal.RequireFromString("13.25")) {
		t.Errorf("TotalPrice = %s", first.TotalPrice)
	}
	if first.Hour != 11 || first.Day != models.Thursday || first.Month != time.January {
		t.Errorf("derived fields = %d %v %v", first.Hour, first.Day, first.Month)
	}
	if rows[3].Hour != 9 || rows[3].Month != time.July {
		t.Errorf("last row derived = %d %v", rows[3].Hour, rows[3].Month)
	}

	if diff := cmp.Diff([]models.Category{"Classic", "Supreme", "Veggie"}, set.Categories()); diff != "" {
		t.Errorf("Categories() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]models.Size{models.SizeM, models.SizeL, models.SizeXL}, set.Sizes()); diff != "" {
		t.Errorf("Sizes() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]time.Month{time.January, time.July}, set.Months()); diff != "" {
		t.Errorf("Months() (-want +got):\n%s", diff)
	}
}

func TestLoad_ColumnOrderIndependent(t *testing.T) {
	csv := "extra,order_time,order_date,total_price,unit_price,quantity,pizza_ingredients,pizza_size,pizza_category,pizza_name,pizza_id,order_id\n" +
		"x,18:00:00,02/01/2015,12.00,12.00,1,Tomatoes,S,Classic,Margherita,marg_s,9\n"
	set, _, err := Read(context.Background(), strings.NewReader(csv), LoadOptions{}, quietLogger)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	row := set.Rows()[0]
	if row.OrderID != "9" || row.PizzaName != "Margherita" || row.Hour != 18 {
		t.Errorf("unexpected row: %+v", row)
	}
}

func TestLoad_DataLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty file", content: ""},
		{name: "header only", content: header + "\n"},
		{name: "missing column", content: "order_id,pizza_name\n1,x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(context.Background(), createTempCSV(t, tt.content), LoadOptions{}, quietLogger)
			var loadErr *DataLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("Load() error = %v, want DataLoadError", err)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		_, _, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), LoadOptions{}, quietLogger)
		var loadErr *DataLoadError
		if !errors.As(err, &loadErr) || !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("Load() error = %v, want DataLoadError wrapping ErrNotExist", err)
		}
	})

	t.Run("missing column names listed", func(t *testing.T) {
		_, _, err := Read(context.Background(), strings.NewReader("order_id\n1\n"), LoadOptions{}, quietLogger)
		if err == nil || !strings.Contains(err.Error(), "order_time") {
			t.Fatalf("error should name missing columns, got %v", err)
		}
	})
}

func TestLoad_ParseErrors(t *testing.T) {
	row := func(qty, unit, date, clock string) string {
		return header + "\n1,p,P,Classic,M,Tomatoes," + qty + "," + unit + ",10.00," + date + "," + clock + "\n"
	}

	tests := []struct {
		name   string
		csv    string
		column string
	}{
		{"invalid date", row("1", "10.00", "2015-01-01", "10:00:00"), "order_date"},
		{"invalid time", row("1", "10.00", "01/01/2015", "25:00:00"), "order_time"},
		{"invalid quantity", row("two", "10.00", "01/01/2015", "10:00:00"), "quantity"},
		{"zero quantity", row("0", "10.00", "01/01/2015", "10:00:00"), "quantity"},
		{"invalid price", row("1", "ten", "01/01/2015", "10:00:00"), "unit_price"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Read(context.Background(), strings.NewReader(tt.csv), LoadOptions{}, quietLogger)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("Read() error = %v, want ParseError", err)
			}
			if perr.Column != tt.column || perr.Row != 2 {
				t.Errorf("ParseError = row %d column %s, want row 2 column %s", perr.Row, perr.Column, tt.column)
			}
		})
	}
}

func TestLoad_SkipInvalid(t *testing.T) {
	csv := validCSV + "4,p,P,Classic,M,Tomatoes,1,oops,10.00,01/01/2015,10:00:00\n"

	if _, _, err := Read(context.Background(), strings.NewReader(csv), LoadOptions{}, quietLogger); err == nil {
		t.Fatal("strict load should fail on invalid row")
	}

	set, report, err := Read(context.Background(), strings.NewReader(csv), LoadOptions{SkipInvalid: true}, quietLogger)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if set.Len() != 4 || report.Skipped != 1 || len(report.Errors) != 1 {
		t.Errorf("Len = %d, report = %+v", set.Len(), report)
	}
	if report.Errors[0].Row != 6 {
		t.Errorf("skipped row = %d, want 6", report.Errors[0].Row)
	}
}

func TestLoad_ManyRowsKeepOrder(t *testing.T) {
	var b strings.Builder
	b.WriteString(header + "\n")
	const n = 2500
	for i := 0; i < n; i++ {
		b.WriteString(strings.Join([]string{
			strconv.Itoa(i), "p", "P", "Classic", "S", "Tomatoes", "1", "1.00", "1.00", "01/01/2015", "10:00:00",
		}, ",") + "\n")
	}

	set, _, err := Read(context.Background(), strings.NewReader(b.String()), LoadOptions{Workers: 4}, quietLogger)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	for i, row := range set.Rows() {
		if row.OrderID != strconv.Itoa(i) {
			t.Fatalf("row %d has order %s", i, row.OrderID)
		}
	}
}

func TestLoad_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Read(ctx, strings.NewReader(validCSV), LoadOptions{}, quietLogger); !errors.Is(err, context.Canceled) {
		t.Errorf("Read() error = %v, want context.Canceled", err)
	}
}

func TestTransactionSet_SelectDoesNotMutate(t *testing.T) {
	set, _, err := Read(context.Background(), strings.NewReader(validCSV), LoadOptions{}, quietLogger)
	if err != nil {
		t.Fatal(err)
	}
	before := set.Rows()

	view := set.Select(func(tx models.Transaction) bool { return tx.Category == "Classic" })
	if view.Len() != 2 {
		t.Errorf("view.Len() = %d, want 2", view.Len())
	}
	if diff := cmp.Diff(before, set.Rows()); diff != "" {
		t.Errorf("set mutated (-before +after):\n%s", diff)
	}
	if set.View().Len() != set.Len() {
		t.Error("View() should include every row")
	}
}

func TestEmptyView(t *testing.T) {
	v := EmptyView()
	if v.Len() != 0 {
		t.Errorf("Len() = %d", v.Len())
	}
	for range v.All() {
		t.Fatal("empty view yielded a row")
	}
	var nilSet *TransactionSet
	if nilSet.View().Len() != 0 {
		t.Error("nil set view should be empty")
	}
}
