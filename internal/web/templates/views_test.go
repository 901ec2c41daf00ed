package templates

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/typedcsv/internal/schema"
)

func TestGroupSchemas(t *testing.T) {
	groups := GroupSchemas([]schema.Info{
		{Key: "a1", Group: "A"},
		{Key: "a2", Group: "A"},
		{Key: "b1", Group: "B"},
	})
	require.Len(t, groups, 2)
	assert.Equal(t, "A", groups[0].Name)
	assert.Len(t, groups[0].Schemas, 2)
	assert.Equal(t, "b1", groups[1].Schemas[0].Key)

	assert.Empty(t, GroupSchemas(nil))
}

func TestSchemaList(t *testing.T) {
	var b strings.Builder
	page := Layout("Schemas", SchemaList(GroupSchemas([]schema.Info{
		{Key: "ns_customers", Group: "NS", Label: "Customers & Co", Columns: []string{"Customer ID", "<Name>"}},
	})))
	require.NoError(t, page.Render(context.Background(), &b))
	html := b.String()

	assert.True(t, strings.HasPrefix(html, "<!DOCTYPE html>"))
	assert.Contains(t, html, "<h2>NS</h2>")
	assert.Contains(t, html, "Customers &amp; Co")
	assert.Contains(t, html, "<code>&lt;Name&gt;</code>")
	assert.Contains(t, html, `href="/api/template/ns_customers"`)
	assert.Contains(t, html, `action="/api/parse/ns_customers"`)
	assert.True(t, strings.HasSuffix(html, "</html>"))
}

func TestSchemaList_Empty(t *testing.T) {
	var b strings.Builder
	require.NoError(t, SchemaList(nil).Render(context.Background(), &b))
	assert.Contains(t, b.String(), "No schemas are registered")
}

func TestErrorAlert(t *testing.T) {
	var b strings.Builder
	require.NoError(t, ErrorAlert("Bad <file>", "", "FILE004").Render(context.Background(), &b))
	html := b.String()

	assert.Contains(t, html, "Bad &lt;file&gt;")
	assert.Contains(t, html, "Code: FILE004")
	assert.NotContains(t, html, `class="action"`)
}
