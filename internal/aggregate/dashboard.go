package aggregate

import "pizza-dashboard/internal/store"

type Options struct {
	TopN           int
	IngredientTopN int
}

func DefaultOptions() Options {
	return Options{TopN: 5, IngredientTopN: 10}
}

// Dashboard bundles every output for one view so each dimension/metric
// pair is computed once and shared by all consumers.
type Dashboard struct {
	Rows         int                             `json:"rows"`
	KPIs         KPIs                            `json:"kpis"`
	Series       map[Dimension]map[Metric]Series `json:"series"`
	CategorySize map[Metric]Matrix               `json:"category_size"`
	Top          map[Metric]Series               `json:"top"`
	Ingredients  []IngredientCount               `json:"ingredients"`
	OrderValues  Distribution                    `json:"order_values"`
	Correlation  Correlation                     `json:"correlation"`
}

// Build computes the dashboard for v.
func Build(v *store.View, opts Options) *Dashboard {
	d := &Dashboard{
		Rows:         v.Len(),
		KPIs:         ComputeKPIs(v),
		Series:       make(map[Dimension]map[Metric]Series, len(Dimensions())),
		CategorySize: make(map[Metric]Matrix, len(Metrics())),
		Top:          make(map[Metric]Series, len(Metrics())),
		Ingredients:  Ingredients(v, opts.IngredientTopN),
		OrderValues:  OrderValues(v),
		Correlation:  Correlations(v),
	}

	for _, dim := range Dimensions() {
		// collect cannot fail for a listed dimension.
		g, _ := collect(v, dim)
		d.Series[dim] = make(map[Metric]Series, len(Metrics()))
		for _, m := range Metrics() {
			d.Series[dim][m] = g.series(m)
		}
	}

	for _, m := range Metrics() {
		d.CategorySize[m], _ = CategoryBySize(v, m)
		d.Top[m] = d.Series[DimPizza][m].Top(opts.TopN)
	}
	return d
}

// Lookup returns the series for dim and m.
func (d *Dashboard) Lookup(dim Dimension, m Metric) (Series, bool) {
	byMetric, ok := d.Series[dim]
	if !ok {
		return nil, false
	}
	s, ok := byMetric[m]
	return s, ok
}
