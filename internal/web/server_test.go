package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/JonMunkholm/typedcsv/internal/config"
	"github.com/JonMunkholm/typedcsv/internal/schema"
)

type widget struct {
	Name  string   `csv:"name"`
	Count int      `csv:"count"`
	Tags  []string `csv:"tags"`
}

func TestMain(m *testing.M) {
	schema.Register(schema.Define[widget](schema.Info{
		Key:   "test_widgets",
		Group: "Test",
		Label: "Widgets <beta>",
		Table: "widgets",
	}))
	goleak.VerifyTestMain(m)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 0, RequestTimeout: time.Minute},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxConcurrent: 2,
			MaxWaitTime:   20 * time.Millisecond,
			MaxReportRows: 100,
		},
		CSV: config.CSVConfig{Separator: ",", Quote: `"`, ListSeparator: ";"},
	}
}

// copyDB records what a load would have written.
type copyDB struct {
	table pgx.Identifier
	rows  int64
}

func (c *copyDB) CopyFrom(_ context.Context, table pgx.Identifier, _ []string, src pgx.CopyFromSource) (int64, error) {
	c.table = table
	for src.Next() {
		if _, err := src.Values(); err != nil {
			return 0, err
		}
		c.rows++
	}
	return c.rows, src.Err()
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartBody(t *testing.T, csv string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "before the file"))
	fw, err := mw.CreateFormFile("file", "widgets.csv")
	require.NoError(t, err)
	_, err = io.WriteString(fw, csv)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

const widgetsCSV = "name,count,tags\nann,1,a;b\nbob,x,c\ncy,3,\n"

func TestHealth(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	h := decode[HealthResponse](t, rec)
	assert.Equal(t, "ok", h.Status)
	assert.GreaterOrEqual(t, h.Schemas, 1)
	assert.False(t, h.Database)
	assert.Equal(t, 2, h.Uploads.MaxConcurrent)
	assert.Equal(t, 2, h.Uploads.Available)
}

func TestRootRedirects(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/schemas", rec.Header().Get("Location"))
}

func TestSchemasPage(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/schemas", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `action="/api/parse/test_widgets"`)
	assert.Contains(t, body, "Widgets &lt;beta&gt;")
	assert.NotContains(t, body, "<beta>")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestListSchemas(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/schemas", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	infos := decode[[]schema.Info](t, rec)
	var found bool
	for _, info := range infos {
		if info.Key == "test_widgets" {
			found = true
			assert.Equal(t, []string{"name", "count", "tags"}, info.Columns)
		}
	}
	assert.True(t, found, "test_widgets should be listed")
}

func TestGetSchema(t *testing.T) {
	profile, err := config.ParseProfile(strings.NewReader("schemas:\n  test_widgets:\n    separator: \"|\"\n"), testConfig().CSV)
	require.NoError(t, err)
	s := NewServer(testConfig(), profile, nil)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/schemas/test_widgets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[SchemaDetail](t, rec)
	assert.Equal(t, "widgets", detail.Table)
	assert.Equal(t, "|", detail.CSV.Separator)
	assert.Equal(t, ";", detail.CSV.ListSeparator)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/schemas/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SCH001", decode[ErrorResponse](t, rec).Code)
}

func TestDownloadTemplate(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/template/test_widgets", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "test_widgets_template.csv")
	assert.Equal(t, "name,count,tags\n", rec.Body.String())
}

func TestParse(t *testing.T) {
	gz := func(s string) *bytes.Buffer {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		_, _ = zw.Write([]byte(s))
		_ = zw.Close()
		return &buf
	}

	tests := []struct {
		name        string
		body        func(t *testing.T) (io.Reader, string)
		query       string
		wantValid   int
		wantInvalid int
		wantRows    int
	}{
		{
			name:        "raw body",
			body:        func(*testing.T) (io.Reader, string) { return strings.NewReader(widgetsCSV), "text/csv" },
			wantValid:   2,
			wantInvalid: 1,
			wantRows:    1,
		},
		{
			name: "multipart",
			body: func(t *testing.T) (io.Reader, string) {
				return multipartBody(t, widgetsCSV)
			},
			wantValid:   2,
			wantInvalid: 1,
			wantRows:    1,
		},
		{
			name:        "gzip",
			body:        func(*testing.T) (io.Reader, string) { return gz(widgetsCSV), "application/gzip" },
			wantValid:   2,
			wantInvalid: 1,
			wantRows:    1,
		},
		{
			name:        "all rows",
			body:        func(*testing.T) (io.Reader, string) { return strings.NewReader(widgetsCSV), "text/csv" },
			query:       "?rows=all",
			wantValid:   2,
			wantInvalid: 1,
			wantRows:    3,
		},
		{
			name: "separator override",
			body: func(*testing.T) (io.Reader, string) {
				return strings.NewReader("name|count|tags\nann|1|a\n"), "text/csv"
			},
			query:     "?separator=%7C",
			wantValid: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer(testConfig(), nil, nil)
			body, contentType := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, "/api/parse/test_widgets"+tt.query, body)
			req.Header.Set("Content-Type", contentType)

			rec := do(t, s, req)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			var resp struct {
				Schema    string            `json:"schema"`
				Valid     int               `json:"valid"`
				Invalid   int               `json:"invalid"`
				Rows      []json.RawMessage `json:"rows"`
				BytesRead int64             `json:"bytes_read"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "test_widgets", resp.Schema)
			assert.Equal(t, tt.wantValid, resp.Valid)
			assert.Equal(t, tt.wantInvalid, resp.Invalid)
			assert.Len(t, resp.Rows, tt.wantRows)
			assert.Positive(t, resp.BytesRead)
			assert.Equal(t, 0, s.Limiter().ActiveCount(), "upload slot should be released")
		})
	}
}

func TestParse_InvalidRowReport(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/parse/test_widgets", strings.NewReader(widgetsCSV))
	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows []struct {
			Line   int              `json:"line"`
			Errors []map[string]any `json:"errors"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, 3, resp.Rows[0].Line)
	assert.NotEmpty(t, resp.Rows[0].Errors)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name        string
		path        string
		body        func(t *testing.T) (io.Reader, string)
		configure   func(*config.Config)
		wantStatus  int
		wantCode    string
		retryHeader bool
	}{
		{
			name:       "unknown schema",
			path:       "/api/parse/nope",
			body:       func(*testing.T) (io.Reader, string) { return strings.NewReader(widgetsCSV), "text/csv" },
			wantStatus: http.StatusNotFound,
			wantCode:   "SCH001",
		},
		{
			name:       "header only",
			path:       "/api/parse/test_widgets",
			body:       func(*testing.T) (io.Reader, string) { return strings.NewReader("name,count\n"), "text/csv" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CSV002",
		},
		{
			name: "multipart without file",
			path: "/api/parse/test_widgets",
			body: func(t *testing.T) (io.Reader, string) {
				var buf bytes.Buffer
				mw := multipart.NewWriter(&buf)
				require.NoError(t, mw.WriteField("note", "no file here"))
				require.NoError(t, mw.Close())
				return &buf, mw.FormDataContentType()
			},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name: "too large",
			path: "/api/parse/test_widgets",
			body: func(*testing.T) (io.Reader, string) {
				return strings.NewReader(strings.Repeat(widgetsCSV, 10)), "text/csv"
			},
			configure:  func(c *config.Config) { c.Upload.MaxFileSize = 64 },
			wantStatus: http.StatusRequestEntityTooLarge,
			wantCode:   "FILE001",
		},
		{
			name:       "invalid options",
			path:       "/api/parse/test_widgets?separator=ab&trim=maybe",
			body:       func(*testing.T) (io.Reader, string) { return strings.NewReader(widgetsCSV), "text/csv" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CSV001",
		},
		{
			name:       "unknown charset",
			path:       "/api/parse/test_widgets?charset=klingon",
			body:       func(*testing.T) (io.Reader, string) { return strings.NewReader(widgetsCSV), "text/csv" },
			wantStatus: http.StatusBadRequest,
			wantCode:   "CSV001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			if tt.configure != nil {
				tt.configure(cfg)
			}
			s := NewServer(cfg, nil, nil)
			body, contentType := tt.body(t)
			req := httptest.NewRequest(http.MethodPost, tt.path, body)
			req.Header.Set("Content-Type", contentType)

			rec := do(t, s, req)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode[ErrorResponse](t, rec).Code)
			assert.Equal(t, 0, s.Limiter().ActiveCount())
		})
	}
}

func TestParse_Busy(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	for range s.Limiter().MaxConcurrent() {
		require.True(t, s.Limiter().TryAcquire())
	}
	defer func() {
		for range s.Limiter().MaxConcurrent() {
			s.Limiter().Release()
		}
	}()

	req := httptest.NewRequest(http.MethodPost, "/api/parse/test_widgets", strings.NewReader(widgetsCSV))
	rec := do(t, s, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "UPL002", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLoad(t *testing.T) {
	db := &copyDB{}
	s := NewServer(testConfig(), nil, db)

	req := httptest.NewRequest(http.MethodPost, "/api/load/test_widgets", strings.NewReader(widgetsCSV))
	rec := do(t, s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Table      string `json:"table"`
		Inserted   int64  `json:"inserted"`
		Skipped    int    `json:"skipped"`
		FailedRows []struct {
			Line int `json:"line"`
		} `json:"failed_rows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, pgx.Identifier{"widgets"}, db.table)
	assert.Equal(t, "widgets", res.Table)
	assert.Equal(t, int64(2), res.Inserted)
	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.FailedRows, 1)
	assert.Equal(t, 3, res.FailedRows[0].Line)
}

func TestLoad_Disabled(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/load/test_widgets", strings.NewReader(widgetsCSV))
	rec := do(t, s, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "LOAD001", decode[ErrorResponse](t, rec).Code)
}

func TestLoad_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Server.APIKeys = "secret-1, secret-2"
	db := &copyDB{}
	s := NewServer(cfg, nil, db)

	req := httptest.NewRequest(http.MethodPost, "/api/load/test_widgets", strings.NewReader(widgetsCSV))
	assert.Equal(t, http.StatusUnauthorized, do(t, s, req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/load/test_widgets", strings.NewReader(widgetsCSV))
	req.Header.Set("X-API-Key", "secret-2")
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)

	// Parsing stays open.
	req = httptest.NewRequest(http.MethodPost, "/api/parse/test_widgets", strings.NewReader(widgetsCSV))
	assert.Equal(t, http.StatusOK, do(t, s, req).Code)
}

func TestShutdown_WaitsForUploads(t *testing.T) {
	s := NewServer(testConfig(), nil, nil)
	require.True(t, s.Limiter().TryAcquire())

	go func() {
		time.Sleep(30 * time.Millisecond)
		s.Limiter().Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Shutdown(ctx))
	assert.Equal(t, 0, s.Limiter().ActiveCount())
}
