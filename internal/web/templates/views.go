// Package templates holds the HTML views of the web UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

// e escapes text for HTML bodies and attribute values.
func e(s string) string {
	return templ.EscapeString(s)
}

// write renders parts in order, stopping at the first error.
func write(w io.Writer, parts ...string) error {
	for _, p := range parts {
		if _, err := io.WriteString(w, p); err != nil {
			return err
		}
	}
	return nil
}

// Layout wraps body in the page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := write(w,
			`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
			`<title>`, e(title), ` · typedcsv</title></head><body><main>`,
			`<h1>`, e(title), `</h1>`,
		); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		return write(w, `</main></body></html>`)
	})
}

// SchemaGroup is one source system and its schemas.
type SchemaGroup struct {
	Name    string
	Schemas []schema.Info
}

// GroupSchemas buckets infos by group, keeping their order.
func GroupSchemas(infos []schema.Info) []SchemaGroup {
	var groups []SchemaGroup
	for _, info := range infos {
		if n := len(groups); n == 0 || groups[n-1].Name != info.Group {
			groups = append(groups, SchemaGroup{Name: info.Group})
		}
		last := &groups[len(groups)-1]
		last.Schemas = append(last.Schemas, info)
	}
	return groups
}

// SchemaList renders every schema with its columns and an upload form that
// posts to the parse endpoint.
func SchemaList(groups []SchemaGroup) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(groups) == 0 {
			return write(w, `<p class="empty">No schemas are registered.</p>`)
		}
		for _, g := range groups {
			if err := write(w, `<section class="group"><h2>`, e(g.Name), `</h2>`); err != nil {
				return err
			}
			for _, info := range g.Schemas {
				if err := schemaCard(info).Render(ctx, w); err != nil {
					return err
				}
			}
			if err := write(w, `</section>`); err != nil {
				return err
			}
		}
		return nil
	})
}

func schemaCard(info schema.Info) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		cols := make([]string, len(info.Columns))
		for i, c := range info.Columns {
			cols[i] = `<code>` + e(c) + `</code>`
		}
		key := e(info.Key)
		return write(w,
			`<article class="schema" id="schema-`, key, `">`,
			`<h3>`, e(info.Label), ` <small>`, key, `</small></h3>`,
			`<p>Columns: `, strings.Join(cols, ", "), `</p>`,
			fmt.Sprintf(`<p><a href="/api/template/%s">Download header template</a></p>`, key),
			`<form method="post" enctype="multipart/form-data" action="/api/parse/`, key, `">`,
			`<input type="file" name="file" accept=".csv,.gz,.zst,text/csv" required>`,
			`<button type="submit">Check file</button></form>`,
			`</article>`,
		)
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		parts := []string{`<div class="alert alert-error" role="alert"><p>`, e(message), `</p>`}
		if action != "" {
			parts = append(parts, `<p class="action">`, e(action), `</p>`)
		}
		parts = append(parts, `<p class="code">Code: `, e(code), `</p></div>`)
		return write(w, parts...)
	})
}
