// Package aggregate turns a filtered view into the grouped series, matrices
// and KPIs the dashboard draws. Every function is pure and total over any
// view, including the empty one.
package aggregate

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/models"
	"pizza-dashboard/internal/store"
)

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownMetric    = errors.New("unknown metric")
)

type Dimension string

const (
	DimDay      Dimension = "day"
	DimHour     Dimension = "hour"
	DimMonth    Dimension = "month"
	DimCategory Dimension = "category"
	DimSize     Dimension = "size"
	DimPizza    Dimension = "pizza"
)

// Dimensions lists the one-dimensional groupings.
func Dimensions() []Dimension {
	return []Dimension{DimDay, DimHour, DimMonth, DimCategory, DimSize, DimPizza}
}

func ParseDimension(v string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(v)))
	if !slices.Contains(Dimensions(), d) {
		return "", fmt.Errorf("%w: %q", ErrUnknownDimension, v)
	}
	return d, nil
}

type Metric string

const (
	Revenue  Metric = "revenue"
	Quantity Metric = "quantity"
	Orders   Metric = "orders"
)

func Metrics() []Metric {
	return []Metric{Revenue, Quantity, Orders}
}

func ParseMetric(v string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(v)))
	if !slices.Contains(Metrics(), m) {
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, v)
	}
	return m, nil
}

type Point struct {
	Key   string          `json:"key"`
	Value decimal.Decimal `json:"value"`
}

// Series is an ordered mapping from group key to value.
type Series []Point

func (s Series) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range s {
		total = total.Add(p.Value)
	}
	return total
}

func (s Series) Value(key string) (decimal.Decimal, bool) {
	for _, p := range s {
		if p.Key == key {
			return p.Value, true
		}
	}
	return decimal.Zero, false
}

// Shares converts each value into its percentage of the series total,
// rounded to two places. A zero total yields zero shares.
func (s Series) Shares() Series {
	total := s.Total()
	out := make(Series, len(s))
	for i, p := range s {
		out[i] = Point{Key: p.Key, Value: percent(p.Value, total)}
	}
	return out
}

func percent(v, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return v.Mul(decimal.NewFromInt(100)).DivRound(total, 2)
}

// group accumulates the three metrics for one key.
type group struct {
	revenue  decimal.Decimal
	quantity int64
	orders   map[string]struct{}
}

func newGroup() *group {
	return &group{revenue: decimal.Zero, orders: make(map[string]struct{})}
}

func (g *group) add(tx models.Transaction) {
	g.revenue = g.revenue.Add(tx.TotalPrice)
	g.quantity += int64(tx.Quantity)
	g.orders[tx.OrderID] = struct{}{}
}

func (g *group) value(m Metric) decimal.Decimal {
	if g == nil {
		return decimal.Zero
	}
	switch m {
	case Revenue:
		return g.revenue
	case Quantity:
		return decimal.NewFromInt(g.quantity)
	case Orders:
		return decimal.NewFromInt(int64(len(g.orders)))
	}
	return decimal.Zero
}

type grouped struct {
	dim    Dimension
	keys   []string
	groups map[string]*group
}

func keyOf(dim Dimension, tx models.Transaction) string {
	switch dim {
	case DimDay:
		return tx.Day.String()
	case DimHour:
		return strconv.Itoa(tx.Hour)
	case DimMonth:
		return tx.Month.String()
	case DimCategory:
		return string(tx.Category)
	case DimSize:
		return tx.Size.String()
	default:
		return tx.PizzaName
	}
}

// collect groups v by dim and fixes the emission order of keys. Day, hour
// and month are dense; the rest list observed keys only.
func collect(v *store.View, dim Dimension) (grouped, error) {
	if !slices.Contains(Dimensions(), dim) {
		return grouped{}, fmt.Errorf("%w: %q", ErrUnknownDimension, dim)
	}

	g := grouped{dim: dim, groups: make(map[string]*group)}
	for tx := range v.All() {
		k := keyOf(dim, tx)
		grp, ok := g.groups[k]
		if !ok {
			grp = newGroup()
			g.groups[k] = grp
		}
		grp.add(tx)
	}

	switch dim {
	case DimDay:
		for _, d := range models.Weekdays() {
			g.keys = append(g.keys, d.String())
		}
	case DimHour:
		for h := 0; h < 24; h++ {
			g.keys = append(g.keys, strconv.Itoa(h))
		}
	case DimMonth:
		for _, m := range models.Months() {
			g.keys = append(g.keys, m.String())
		}
	case DimSize:
		for _, s := range models.Sizes() {
			if _, ok := g.groups[s.String()]; ok {
				g.keys = append(g.keys, s.String())
			}
		}
	default:
		for k := range g.groups {
			g.keys = append(g.keys, k)
		}
		slices.Sort(g.keys)
	}
	return g, nil
}

func (g grouped) series(m Metric) Series {
	out := make(Series, 0, len(g.keys))
	for _, k := range g.keys {
		out = append(out, Point{Key: k, Value: g.groups[k].value(m)})
	}
	if g.dim == DimPizza {
		rank(out)
	}
	return out
}

// rank sorts by value descending, ties by key ascending.
func rank(s Series) {
	slices.SortStableFunc(s, func(a, b Point) int {
		if c := b.Value.Cmp(a.Value); c != 0 {
			return c
		}
		return strings.Compare(a.Key, b.Key)
	})
}

// By groups v by dim and reports metric m per group.
func By(v *store.View, dim Dimension, m Metric) (Series, error) {
	if !slices.Contains(Metrics(), m) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
	}
	g, err := collect(v, dim)
	if err != nil {
		return nil, err
	}
	return g.series(m), nil
}

// Rankable reports whether dim is keyed by name, so that ordering its
// groups by value is meaningful.
func Rankable(dim Dimension) bool {
	return dim == DimPizza || dim == DimCategory
}

// Top returns the n best groups of dim by m. Only name-keyed dimensions
// can be ranked. n <= 0 returns the full ranking.
func Top(v *store.View, dim Dimension, m Metric, n int) (Series, error) {
	if !Rankable(dim) {
		return nil, fmt.Errorf("%w: %q cannot be ranked", ErrUnknownDimension, dim)
	}
	s, err := By(v, dim, m)
	if err != nil {
		return nil, err
	}
	return s.Top(n), nil
}

// Top ranks a copy of s by value descending, ties by key, and keeps the
// first n points.
func (s Series) Top(n int) Series {
	out := slices.Clone(s)
	rank(out)
	return truncate(out, n)
}

func truncate(s Series, n int) Series {
	if n <= 0 || len(s) <= n {
		return s
	}
	return slices.Clone(s[:n])
}
