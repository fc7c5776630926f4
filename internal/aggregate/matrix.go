package aggregate

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/models"
	"pizza-dashboard/internal/store"
)

// Matrix is a dense category × size table. Rows are categories ascending,
// columns sizes smallest first; absent combinations hold zero.
type Matrix struct {
	Rows    []string            `json:"rows"`
	Columns []string            `json:"columns"`
	Values  [][]decimal.Decimal `json:"values"`
}

type cell struct {
	category models.Category
	size     models.Size
}

// CategoryBySize pivots v by category and size over the categories and
// sizes present in v.
func CategoryBySize(v *store.View, m Metric) (Matrix, error) {
	if !slices.Contains(Metrics(), m) {
		return Matrix{}, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}

	cells := make(map[cell]*group)
	categories := make(map[models.Category]struct{})
	sizes := make(map[models.Size]struct{})

	for tx := range v.All() {
		c := cell{category: tx.Category, size: tx.Size}
		grp, ok := cells[c]
		if !ok {
			grp = newGroup()
			cells[c] = grp
		}
		grp.add(tx)
		categories[tx.Category] = struct{}{}
		sizes[tx.Size] = struct{}{}
	}

	rowKeys := make([]models.Category, 0, len(categories))
	for c := range categories {
		rowKeys = append(rowKeys, c)
	}
	slices.Sort(rowKeys)

	colKeys := make([]models.Size, 0, len(sizes))
	for _, s := range models.Sizes() {
		if _, ok := sizes[s]; ok {
			colKeys = append(colKeys, s)
		}
	}

	out := Matrix{
		Rows:    make([]string, len(rowKeys)),
		Columns: make([]string, len(colKeys)),
		Values:  make([][]decimal.Decimal, len(rowKeys)),
	}
	for j, s := range colKeys {
		out.Columns[j] = s.String()
	}
	for i, c := range rowKeys {
		out.Rows[i] = string(c)
		out.Values[i] = make([]decimal.Decimal, len(colKeys))
		for j, s := range colKeys {
			out.Values[i][j] = cells[cell{category: c, size: s}].value(m)
		}
	}
	return out, nil
}

func (m Matrix) Total() decimal.Decimal {
	total := decimal.Zero
	for _, row := range m.Values {
		for _, v := range row {
			total = total.Add(v)
		}
	}
	return total
}

// Cell returns the value at (row, column) by key.
func (m Matrix) Cell(row, column string) (decimal.Decimal, bool) {
	i := slices.Index(m.Rows, row)
	j := slices.Index(m.Columns, column)
	if i < 0 || j < 0 {
		return decimal.Zero, false
	}
	return m.Values[i][j], true
}

// Shares expresses every cell as a percentage of the grand total.
func (m Matrix) Shares() Matrix {
	total := m.Total()
	out := Matrix{
		Rows:    slices.Clone(m.Rows),
		Columns: slices.Clone(m.Columns),
		Values:  make([][]decimal.Decimal, len(m.Values)),
	}
	for i, row := range m.Values {
		out.Values[i] = make([]decimal.Decimal, len(row))
		for j, v := range row {
			out.Values[i][j] = percent(v, total)
		}
	}
	return out
}
