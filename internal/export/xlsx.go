package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"pizza-dashboard/internal/aggregate"
	"pizza-dashboard/internal/store"
)

const (
	sheetTransactions = "Transactions"
	sheetSummary      = "Summary"
	sheetTop          = "Top Pizzas"
	sheetIngredients  = "Ingredients"
)

// WriteXLSX writes a workbook with the view's rows and the dashboard's
// KPIs, top pizzas and ingredient counts.
func WriteXLSX(w io.Writer, v *store.View, d *aggregate.Dashboard) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetTransactions); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetSummary, sheetTop, sheetIngredients} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#7B2C17"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeTransactions(f, v, headerStyle); err != nil {
		return err
	}
	if err := writeSummary(f, d, headerStyle); err != nil {
		return err
	}
	if err := writeTop(f, d, headerStyle); err != nil {
		return err
	}
	if err := writeIngredients(f, d, headerStyle); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, style int, columns []string) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func writeTransactions(f *excelize.File, v *store.View, style int) error {
	if err := writeHeader(f, sheetTransactions, style, store.RequiredColumns); err != nil {
		return err
	}
	row := 2
	for tx := range v.All() {
		values := []interface{}{
			tx.OrderID,
			tx.PizzaID,
			tx.PizzaName,
			string(tx.Category),
			tx.Size.String(),
			tx.Ingredients,
			tx.Quantity,
			tx.UnitPrice.InexactFloat64(),
			tx.TotalPrice.InexactFloat64(),
			tx.OrderDate.Format(dateLayout),
			tx.ClockString(),
		}
		if err := writeRow(f, sheetTransactions, row, values); err != nil {
			return err
		}
		row++
	}
	return f.SetColWidth(sheetTransactions, "A", "K", 16)
}

func writeSummary(f *excelize.File, d *aggregate.Dashboard, style int) error {
	if err := writeHeader(f, sheetSummary, style, []string{"KPI", "Value"}); err != nil {
		return err
	}
	k := d.KPIs
	rows := [][]interface{}{
		{"Total Revenue", k.TotalRevenue.InexactFloat64()},
		{"Pizzas Sold", k.TotalPizzas},
		{"Total Orders", k.TotalOrders},
		{"Avg Order Value", k.AvgOrderValue.InexactFloat64()},
		{"Average Pizza Per Order", k.AvgPizzasPerOrder.InexactFloat64()},
	}
	for i, values := range rows {
		if err := writeRow(f, sheetSummary, i+2, values); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetSummary, "A", "A", 26)
}

func writeTop(f *excelize.File, d *aggregate.Dashboard, style int) error {
	if err := writeHeader(f, sheetTop, style, []string{"Metric", "Rank", "Pizza", "Value"}); err != nil {
		return err
	}
	row := 2
	for _, m := range aggregate.Metrics() {
		for i, p := range d.Top[m] {
			values := []interface{}{string(m), i + 1, p.Key, p.Value.InexactFloat64()}
			if err := writeRow(f, sheetTop, row, values); err != nil {
				return err
			}
			row++
		}
	}
	return f.SetColWidth(sheetTop, "C", "C", 32)
}

func writeIngredients(f *excelize.File, d *aggregate.Dashboard, style int) error {
	if err := writeHeader(f, sheetIngredients, style, []string{"Ingredient", "Lines"}); err != nil {
		return err
	}
	for i, ing := range d.Ingredients {
		if err := writeRow(f, sheetIngredients, i+2, []interface{}{ing.Name, ing.Count}); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheetIngredients, "A", "A", 28)
}
