package templates

import (
	"context"
	"strings"
	"testing"
)

func TestDashboard(t *testing.T) {
	var b strings.Builder
	f := Filters{
		Months:     []string{"January", "July"},
		Categories: []string{"Classic", "Fish & Chips"},
		Sizes:      []string{"M", "XXL"},
	}
	if err := Dashboard(f).Render(context.Background(), &b); err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	html := b.String()
	for _, want := range []string{
		`data-on-load="@get('/sse/dashboard')"`,
		`data-bind-months value="July"`,
		`data-bind-sizes value="XXL"`,
		`value="Fish &amp; Chips"`,
		`id="kpi-cards"`,
		`href="/api/export.csv"`,
		`data-attr-href="&#39;/api/export.csv?&#39; + new URLSearchParams({months: $months.join(&#39;,&#39;), categories: $categories.join(&#39;,&#39;), sizes: $sizes.join(&#39;,&#39;)})"`,
		`data-attr-href="&#39;/api/export.xlsx?&#39;`,
		`&#34;categories&#34;`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}
