package handlers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"pizza-dashboard/internal/aggregate"
	"pizza-dashboard/internal/errors"
	"pizza-dashboard/internal/export"
	"pizza-dashboard/internal/filter"
	"pizza-dashboard/internal/observability"
	"pizza-dashboard/internal/services"
)

const (
	cacheControl = "private, max-age=60"
	csvType      = "text/csv; charset=utf-8"
	xlsxType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var cacheHeaders = map[string]string{
	"Cache-Control": cacheControl,
}

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, err, observability.GetRequestID(r.Context()))
}

// intParam reads a non-negative integer query parameter.
func intParam(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		e := errors.BadRequest(fmt.Sprintf("%s must be a non-negative integer", key))
		e.Details = raw
		return 0, e
	}
	return n, nil
}

func boolParam(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// dashboard resolves the request's selection and limits to a dashboard.
func (h *APIHandlers) dashboard(r *http.Request) (*aggregate.Dashboard, filter.Criteria, error) {
	c, err := filter.Parse(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		return nil, filter.Criteria{}, err
	}

	opts := h.analytics.Options()
	if opts.TopN, err = intParam(r, "top", opts.TopN); err != nil {
		return nil, c, err
	}
	if opts.IngredientTopN, err = intParam(r, "ingredients", opts.IngredientTopN); err != nil {
		return nil, c, err
	}
	return h.analytics.Dashboard(c, opts), c, nil
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, _, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, d, cacheHeaders)
}

func (h *APIHandlers) HandleKPIs(w http.ResponseWriter, r *http.Request) {
	d, _, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, d.KPIs, cacheHeaders)
}

type seriesResponse struct {
	Dimension aggregate.Dimension `json:"dimension"`
	Metric    aggregate.Metric    `json:"metric"`
	Share     bool                `json:"share"`
	Total     decimal.Decimal     `json:"total"`
	Points    aggregate.Series    `json:"points"`
}

func (h *APIHandlers) HandleSeries(w http.ResponseWriter, r *http.Request) {
	dim, err := aggregate.ParseDimension(r.PathValue("dimension"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	m, err := aggregate.ParseMetric(r.PathValue("metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, _, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, _ := d.Lookup(dim, m)
	resp := seriesResponse{Dimension: dim, Metric: m, Total: s.Total(), Points: s}
	if boolParam(r, "share") {
		resp.Share = true
		resp.Points = s.Shares()
	}
	errors.WriteSuccessWithHeaders(w, resp, cacheHeaders)
}

// HandleTop ranks pizzas by default; ?dimension=category ranks categories.
func (h *APIHandlers) HandleTop(w http.ResponseWriter, r *http.Request) {
	m, err := aggregate.ParseMetric(r.PathValue("metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	dim := aggregate.DimPizza
	if v := r.URL.Query().Get("dimension"); v != "" {
		if dim, err = aggregate.ParseDimension(v); err != nil {
			h.fail(w, r, err)
			return
		}
		if !aggregate.Rankable(dim) {
			h.fail(w, r, errors.BadRequest(fmt.Sprintf("dimension %q cannot be ranked", dim)))
			return
		}
	}
	n, err := intParam(r, "n", h.analytics.Options().TopN)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := filter.Parse(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts := h.analytics.Options()
	opts.TopN = n
	d := h.analytics.Dashboard(c, opts)
	if dim == aggregate.DimPizza {
		errors.WriteSuccessWithHeaders(w, d.Top[m], cacheHeaders)
		return
	}
	s, _ := d.Lookup(dim, m)
	errors.WriteSuccessWithHeaders(w, s.Top(n), cacheHeaders)
}

func (h *APIHandlers) HandleMatrix(w http.ResponseWriter, r *http.Request) {
	m, err := aggregate.ParseMetric(r.PathValue("metric"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d, _, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	matrix := d.CategorySize[m]
	if boolParam(r, "share") {
		matrix = matrix.Shares()
	}
	errors.WriteSuccessWithHeaders(w, matrix, cacheHeaders)
}

func (h *APIHandlers) HandleIngredients(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", h.analytics.Options().IngredientTopN)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := filter.Parse(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	opts := h.analytics.Options()
	opts.IngredientTopN = n
	errors.WriteSuccessWithHeaders(w, h.analytics.Dashboard(c, opts).Ingredients, cacheHeaders)
}

func (h *APIHandlers) HandleStatistics(w http.ResponseWriter, r *http.Request) {
	d, _, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	errors.WriteSuccessWithHeaders(w, map[string]any{
		"order_values": d.OrderValues,
		"correlation":  d.Correlation,
	}, cacheHeaders)
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccessWithHeaders(w, h.analytics.Filters(), cacheHeaders)
}

func exportName(c filter.Criteria, ext string) string {
	return fmt.Sprintf("pizza_sales_%s.%s", c.Key()[:12], ext)
}

func (h *APIHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	c, err := filter.Parse(r.URL.Query(), h.analytics.Defaults())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, h.analytics.View(c)); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "CSV export failed"))
		return
	}

	w.Header().Set("Content-Type", csvType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(c, "csv")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write csv export", "error", err)
	}
}

func (h *APIHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	d, c, err := h.dashboard(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, h.analytics.View(c), d); err != nil {
		h.fail(w, r, errors.InternalWrap(err, "XLSX export failed"))
		return
	}

	w.Header().Set("Content-Type", xlsxType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportName(c, "xlsx")))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write xlsx export", "error", err)
	}
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
		"rows":      h.analytics.Set().Len(),
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {

	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}
