package aggregate

import (
	"math"
	"testing"

	"pizza-dashboard/internal/store"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestDescribe(t *testing.T) {
	d := Describe([]float64{4, 1, 3, 2})

	checks := []struct {
		name      string
		got, want float64
	}{
		{"mean", d.Mean, 2.5},
		{"std_dev", d.StdDev, math.Sqrt(5.0 / 3.0)},
		{"cv", d.CV, math.Sqrt(5.0/3.0) / 2.5},
		{"skewness", d.Skewness, 0},
		{"kurtosis", d.Kurtosis, -1.2},
		{"q1", d.Q1, 1.75},
		{"median", d.Median, 2.5},
		{"q3", d.Q3, 3.25},
		{"iqr", d.IQR, 1.5},
		{"outlier_threshold", d.OutlierThreshold, 5.5},
		{"min", d.Min, 1},
		{"max", d.Max, 4},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if d.Count != 4 || d.Outliers != 0 {
		t.Errorf("count = %d outliers = %d", d.Count, d.Outliers)
	}
}

func TestDescribe_SkewAndOutliers(t *testing.T) {
	d := Describe([]float64{1, 1, 1, 1, 1, 1, 1, 100})
	if d.Skewness <= 0 {
		t.Errorf("skewness = %v, want positive", d.Skewness)
	}
	if d.Outliers != 1 {
		t.Errorf("outliers = %d, want 1", d.Outliers)
	}
}

func TestDescribe_Small(t *testing.T) {
	if d := Describe(nil); d != (Distribution{}) {
		t.Errorf("Describe(nil) = %+v", d)
	}
	d := Describe([]float64{7})
	if d.Mean != 7 || d.StdDev != 0 || d.Skewness != 0 || d.Median != 7 {
		t.Errorf("Describe([7]) = %+v", d)
	}
}

func TestOrderValues(t *testing.T) {
	d := OrderValues(exampleSet().View())
	// Order 1 = 12 + 18, order 2 = 12.
	if d.Count != 2 || !approx(d.Mean, 21) || !approx(d.Min, 12) || !approx(d.Max, 30) {
		t.Errorf("OrderValues() = %+v", d)
	}
}

func TestCorrelations(t *testing.T) {
	c := Correlations(exampleSet().View())
	if len(c.Fields) != 4 || len(c.Matrix) != 4 {
		t.Fatalf("Correlations() = %+v", c)
	}
	for i := range c.Matrix {
		for j := range c.Matrix[i] {
			if c.Matrix[i][j] != c.Matrix[j][i] {
				t.Errorf("matrix not symmetric at %d,%d", i, j)
			}
		}
	}
	// Quantity is constant in the example.
	if c.Matrix[0][0] != 0 {
		t.Errorf("constant field correlation = %v", c.Matrix[0][0])
	}
	// Unit and total price coincide when quantity is 1.
	if !approx(c.Matrix[1][2], 1) {
		t.Errorf("corr(unit_price, total_price) = %v", c.Matrix[1][2])
	}

	empty := Correlations(store.EmptyView())
	if empty.Matrix[1][2] != 0 {
		t.Errorf("empty correlation = %v", empty.Matrix[1][2])
	}
}
