package aggregate

import (
	"errors"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/store"
)

// ErrDivisionUndefined is returned by Ratio when the denominator is zero,
// which happens for averages over a view with no orders.
var ErrDivisionUndefined = errors.New("division undefined: zero denominator")

const ratioPlaces = 4

type KPIs struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalPizzas       int64           `json:"total_pizzas"`
	TotalOrders       int             `json:"total_orders"`
	AvgOrderValue     decimal.Decimal `json:"avg_order_value"`
	AvgPizzasPerOrder decimal.Decimal `json:"avg_pizzas_per_order"`
	// AveragesDefined is false when there are no orders; both averages are
	// then reported as zero.
	AveragesDefined bool `json:"averages_defined"`
}

func Ratio(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, ErrDivisionUndefined
	}
	return num.DivRound(den, ratioPlaces), nil
}

func ComputeKPIs(v *store.View) KPIs {
	k := KPIs{TotalRevenue: decimal.Zero}
	orders := make(map[string]struct{})
	for tx := range v.All() {
		k.TotalRevenue = k.TotalRevenue.Add(tx.TotalPrice)
		k.TotalPizzas += int64(tx.Quantity)
		orders[tx.OrderID] = struct{}{}
	}
	k.TotalOrders = len(orders)

	den := decimal.NewFromInt(int64(k.TotalOrders))
	aov, errAOV := Ratio(k.TotalRevenue, den)
	ppo, errPPO := Ratio(decimal.NewFromInt(k.TotalPizzas), den)
	k.AvgOrderValue = aov
	k.AvgPizzasPerOrder = ppo
	k.AveragesDefined = errAOV == nil && errPPO == nil
	return k
}

type IngredientCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Ingredients counts, per ingredient, the transaction lines that list it
// (not weighted by quantity). Sorted by count descending then name; n <= 0
// returns every ingredient.
func Ingredients(v *store.View, n int) []IngredientCount {
	counts := make(map[string]int)
	for tx := range v.All() {
		for _, name := range tx.IngredientList() {
			counts[name]++
		}
	}

	out := make([]IngredientCount, 0, len(counts))
	for name, c := range counts {
		out = append(out, IngredientCount{Name: name, Count: c})
	}
	slices.SortFunc(out, func(a, b IngredientCount) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Name, b.Name)
	})

	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
