// Package export serializes a filtered view back to tabular files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"pizza-dashboard/internal/models"
	"pizza-dashboard/internal/store"
)

const (
	dateLayout  = "02/01/2006"
	moneyPlaces = 2
)

func record(tx models.Transaction) []string {
	return []string{
		tx.OrderID,
		tx.PizzaID,
		tx.PizzaName,
		string(tx.Category),
		tx.Size.String(),
		tx.Ingredients,
		strconv.Itoa(tx.Quantity),
		tx.UnitPrice.StringFixed(moneyPlaces),
		tx.TotalPrice.StringFixed(moneyPlaces),
		tx.OrderDate.Format(dateLayout),
		tx.ClockString(),
	}
}

// WriteCSV writes v in the input column order. The same view always
// produces the same bytes.
func WriteCSV(w io.Writer, v *store.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(store.RequiredColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for tx := range v.All() {
		if err := cw.Write(record(tx)); err != nil {
			return fmt.Errorf("write order %s: %w", tx.OrderID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
