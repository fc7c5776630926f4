// Package templates holds the HTML shell that hosts the filter controls
// and the containers the SSE endpoints patch.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.5/bundles/datastar.js"

// Filters lists the selectable values; every value starts selected.
type Filters struct {
	Months     []string `json:"months"`
	Categories []string `json:"categories"`
	Sizes      []string `json:"sizes"`
}

// Dashboard renders the page shell. Changing any checkbox re-requests
// /sse/dashboard with the current selection signals.
func Dashboard(f Filters) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		signals, err := templ.JSONString(f)
		if err != nil {
			return fmt.Errorf("encode signals: %w", err)
		}

		var b strings.Builder
		b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Pizza Sales Dashboard</title>
<script type="module" src="` + datastarScript + `"></script>
</head>
<body>
<main data-signals="` + templ.EscapeString(signals) + `" data-on-load="@get('/sse/dashboard')">
<h1>Pizza Sales Dashboard</h1>
<form id="filters" data-on-change="@get('/sse/dashboard')">
`)
		writeGroup(&b, "Month", "months", f.Months)
		writeGroup(&b, "Category", "categories", f.Categories)
		writeGroup(&b, "Size", "sizes", f.Sizes)
		b.WriteString(`<button type="button" data-on-click="@get('/sse/filters').then(() => @get('/sse/dashboard'))">Select all</button>
</form>
<section id="kpi-cards" class="kpi-grid"></section>
<section id="top-pizzas"></section>
<p class="exports">
`)
		writeExportLink(&b, "/api/export.csv", "Download CSV")
		writeExportLink(&b, "/api/export.xlsx", "Download XLSX")
		b.WriteString(`</p>
</main>
</body>
</html>
`)
		_, err = io.WriteString(w, b.String())
		return err
	})
}

func writeGroup(b *strings.Builder, legend, signal string, values []string) {
	fmt.Fprintf(b, "<fieldset><legend>%s</legend>\n", templ.EscapeString(legend))
	for _, v := range values {
		fmt.Fprintf(b, `<label><input type="checkbox" data-bind-%s value="%s"> %s</label>`+"\n",
			signal, templ.EscapeString(v), templ.EscapeString(v))
	}
	b.WriteString("</fieldset>\n")
}

// exportHref is a datastar expression for path carrying the current
// selection. An unchecked group is sent as an empty parameter, which the
// API reads as the empty set.
func exportHref(path string) string {
	return "'" + path + "?' + new URLSearchParams({" +
		"months: $months.join(','), " +
		"categories: $categories.join(','), " +
		"sizes: $sizes.join(',')})"
}

// writeExportLink keeps a plain href for the unfiltered export and lets
// datastar rewrite it as the checkboxes change.
func writeExportLink(b *strings.Builder, path, label string) {
	fmt.Fprintf(b, `<a href="%s" data-attr-href="%s">%s</a>`+"\n",
		path, templ.EscapeString(exportHref(path)), templ.EscapeString(label))
}
