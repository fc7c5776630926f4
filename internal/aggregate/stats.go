package aggregate

import (
	"math"
	"slices"

	"pizza-dashboard/internal/store"
)

// Distribution summarizes a sample. Skewness and Kurtosis are the
// bias-adjusted estimators (kurtosis is excess kurtosis); they stay zero
// when the sample is too small or has no spread.
type Distribution struct {
	Count            int     `json:"count"`
	Mean             float64 `json:"mean"`
	StdDev           float64 `json:"std_dev"`
	CV               float64 `json:"coefficient_of_variation"`
	Skewness         float64 `json:"skewness"`
	Kurtosis         float64 `json:"kurtosis"`
	Min              float64 `json:"min"`
	Q1               float64 `json:"q1"`
	Median           float64 `json:"median"`
	Q3               float64 `json:"q3"`
	Max              float64 `json:"max"`
	IQR              float64 `json:"iqr"`
	OutlierThreshold float64 `json:"outlier_threshold"`
	Outliers         int     `json:"outliers"`
}

// Describe computes a Distribution over values.
func Describe(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	d := Distribution{Count: n, Min: sorted[0], Max: sorted[n-1]}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	d.Mean = sum / float64(n)

	var m2, m3, m4 float64
	for _, v := range sorted {
		dev := v - d.Mean
		sq := dev * dev
		m2 += sq
		m3 += sq * dev
		m4 += sq * sq
	}
	fn := float64(n)
	if n > 1 {
		d.StdDev = math.Sqrt(m2 / (fn - 1))
	}
	if d.Mean != 0 {
		d.CV = d.StdDev / d.Mean
	}

	m2, m3, m4 = m2/fn, m3/fn, m4/fn
	if m2 > 0 {
		if n >= 3 {
			g1 := m3 / math.Pow(m2, 1.5)
			d.Skewness = g1 * math.Sqrt(fn*(fn-1)) / (fn - 2)
		}
		if n >= 4 {
			g2 := m4/(m2*m2) - 3
			d.Kurtosis = ((fn+1)*g2 + 6) * (fn - 1) / ((fn - 2) * (fn - 3))
		}
	}

	d.Q1 = quantile(sorted, 0.25)
	d.Median = quantile(sorted, 0.5)
	d.Q3 = quantile(sorted, 0.75)
	d.IQR = d.Q3 - d.Q1
	d.OutlierThreshold = d.Q3 + 1.5*d.IQR
	for _, v := range sorted {
		if v > d.OutlierThreshold {
			d.Outliers++
		}
	}
	return d
}

// quantile interpolates linearly between the closest ranks of a sorted
// sample.
func quantile(sorted []float64, q float64) float64 {
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := min(lo+1, len(sorted)-1)
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// OrderValues describes the distribution of per-order revenue in v.
func OrderValues(v *store.View) Distribution {
	totals := make(map[string]float64)
	var ids []string
	for tx := range v.All() {
		if _, ok := totals[tx.OrderID]; !ok {
			ids = append(ids, tx.OrderID)
		}
		totals[tx.OrderID] += tx.TotalPrice.InexactFloat64()
	}

	values := make([]float64, 0, len(ids))
	for _, id := range ids {
		values = append(values, totals[id])
	}
	return Describe(values)
}

// CorrelationFields are the numeric line-item fields correlated.
var CorrelationFields = []string{"quantity", "unit_price", "total_price", "order_hour"}

// Correlation is a symmetric Pearson correlation matrix over Fields. Pairs
// involving a constant field are reported as zero.
type Correlation struct {
	Fields []string    `json:"fields"`
	Matrix [][]float64 `json:"matrix"`
}

func Correlations(v *store.View) Correlation {
	k := len(CorrelationFields)
	cols := make([][]float64, k)
	for tx := range v.All() {
		cols[0] = append(cols[0], float64(tx.Quantity))
		cols[1] = append(cols[1], tx.UnitPrice.InexactFloat64())
		cols[2] = append(cols[2], tx.TotalPrice.InexactFloat64())
		cols[3] = append(cols[3], float64(tx.Hour))
	}

	out := Correlation{Fields: slices.Clone(CorrelationFields), Matrix: make([][]float64, k)}
	for i := range out.Matrix {
		out.Matrix[i] = make([]float64, k)
	}
	for i := 0; i < k; i++ {
		for j := i; j < k; j++ {
			r := pearson(cols[i], cols[j])
			out.Matrix[i][j] = r
			out.Matrix[j][i] = r
		}
	}
	return out
}

func pearson(x, y []float64) float64 {
	n := len(x)
	if n < 2 || len(y) != n {
		return 0
	}
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0
	}
	return sxy / math.Sqrt(sxx*syy)
}
