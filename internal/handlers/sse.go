package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"pizza-dashboard/internal/aggregate"
	"pizza-dashboard/internal/errors"
	"pizza-dashboard/internal/filter"
	"pizza-dashboard/internal/observability"
	"pizza-dashboard/internal/services"
)

const undefinedValue = "n/a"

var kpiTemplate = template.Must(template.New("kpis").Parse(`
<div id="kpi-cards" class="kpi-grid">
{{range .}}<div class="kpi-card">
<span class="kpi-label">{{.Label}}</span>
<strong class="kpi-value">{{.Value}}</strong>
</div>
{{end}}</div>`))

var topTemplate = template.Must(template.New("top").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(`
<div id="top-pizzas">
<table class="modern-table">
<thead><tr><th>#</th><th>Pizza</th><th>Revenue</th></tr></thead>
<tbody>
{{range $i, $p := .}}<tr>
<td>{{inc $i}}</td>
<td>{{$p.Key}}</td>
<td><strong>${{$p.Value.StringFixed 2}}</strong></td>
</tr>{{else}}<tr><td colspan="3">No sales match the selected filters</td></tr>{{end}}
</tbody>
</table>
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

type kpiCard struct {
	Label string
	Value string
}

func kpiCards(k aggregate.KPIs) []kpiCard {
	aov, ppo := undefinedValue, undefinedValue
	if k.AveragesDefined {
		aov = "$" + k.AvgOrderValue.StringFixed(2)
		ppo = k.AvgPizzasPerOrder.StringFixed(2)
	}
	return []kpiCard{
		{Label: "Total Revenue", Value: "$" + k.TotalRevenue.StringFixed(2)},
		{Label: "Pizzas Sold", Value: strconv.FormatInt(k.TotalPizzas, 10)},
		{Label: "Total Orders", Value: strconv.Itoa(k.TotalOrders)},
		{Label: "Avg Order Value", Value: aov},
		{Label: "Average Pizza Per Order", Value: ppo},
	}
}

func renderKPIs(k aggregate.KPIs) (string, error) {
	var buf strings.Builder
	err := kpiTemplate.Execute(&buf, kpiCards(k))
	return buf.String(), err
}

func renderTop(s aggregate.Series) (string, error) {
	var buf strings.Builder
	err := topTemplate.Execute(&buf, s)
	return buf.String(), err
}

// selection reads the filter signals sent by the page.
func (h *SSEHandlers) selection(r *http.Request) (filter.Criteria, error) {
	var sel filter.Selection
	if err := datastar.ReadSignals(r, &sel); err != nil {
		return filter.Criteria{}, errors.ValidationWrap(err, "Malformed signals")
	}
	return sel.Criteria(h.analytics.Defaults())
}

// HandleDashboard recomputes the dashboard for the page's current filter
// signals and patches the data signals, KPI cards and top pizza table.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	c, err := h.selection(r)
	if err != nil {
		errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
		return
	}
	d := h.analytics.Dashboard(c, h.analytics.Options())

	sse := datastar.NewSSE(w, r)

	signals, err := json.Marshal(map[string]any{
		"dashboard": d,
	})
	if err != nil {
		h.logger.Error("marshal dashboard signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch dashboard signals", "error", err)
		return
	}

	cards, err := renderKPIs(d.KPIs)
	if err != nil {
		h.logger.Error("render kpi cards", "error", err)
		return
	}
	if err := sse.PatchElements(cards); err != nil {
		h.logger.Warn("patch kpi cards", "error", err)
		return
	}

	top, err := renderTop(d.Top[aggregate.Revenue])
	if err != nil {
		h.logger.Error("render top pizzas", "error", err)
		return
	}
	if err := sse.PatchElements(top); err != nil {
		h.logger.Warn("patch top pizzas", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleFilters resets the selection signals to every observed value and
// publishes the available options.
func (h *SSEHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	opts := h.analytics.Filters()
	signals, err := json.Marshal(map[string]any{
		"options":    opts,
		"months":     opts.Months,
		"categories": opts.Categories,
		"sizes":      opts.Sizes,
	})
	if err != nil {
		h.logger.Error("marshal filter signals", "error", err)
		return
	}
	if err := sse.PatchSignals(signals); err != nil {
		h.logger.Warn("patch filter signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
