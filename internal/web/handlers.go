package web

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/typedcsv/internal/config"
	"github.com/JonMunkholm/typedcsv/internal/logging"
	"github.com/JonMunkholm/typedcsv/internal/pgload"
	"github.com/JonMunkholm/typedcsv/internal/schema"
	"github.com/JonMunkholm/typedcsv/internal/source"
	"github.com/JonMunkholm/typedcsv/internal/web/templates"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string              `json:"status"`
	Schemas  int                 `json:"schemas"`
	Database bool                `json:"database"`
	Uploads  UploadLimiterStatus `json:"uploads"`
}

// SchemaDetail is a schema with the reader settings applied to it.
type SchemaDetail struct {
	schema.Info
	CSV config.CSVConfig `json:"csv"`
}

// ParseResponse is the body of POST /api/parse/{schemaKey}.
type ParseResponse struct {
	*schema.Report
	BytesRead int64 `json:"bytes_read"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, HealthResponse{
		Status:   "ok",
		Schemas:  schema.Count(),
		Database: s.db != nil,
		Uploads:  s.limiter.Status(),
	})
}

func (s *Server) handleSchemasPage(w http.ResponseWriter, r *http.Request) {
	infos := make([]schema.Info, 0, schema.Count())
	for _, def := range schema.All() {
		infos = append(infos, def.Info)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	page := templates.Layout("Schemas", templates.SchemaList(templates.GroupSchemas(infos)))
	if err := page.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render schemas page", "error", err)
	}
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	infos := make([]schema.Info, 0, schema.Count())
	for _, def := range schema.All() {
		infos = append(infos, def.Info)
	}
	writeJSON(w, r, http.StatusOK, infos)
}

func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	def, err := schema.Lookup(chi.URLParam(r, "schemaKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, SchemaDetail{Info: def.Info, CSV: s.csvFor(def.Info.Key)})
}

// handleDownloadTemplate returns a CSV with just the schema's header row,
// written with the schema's separator.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	def, err := schema.Lookup(chi.URLParam(r, "schemaKey"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_template.csv"`, def.Info.Key))

	csvWriter := csv.NewWriter(w)
	if sep, _, _ := s.csvFor(def.Info.Key).Runes(); sep != 0 {
		csvWriter.Comma = sep
	}
	if err := csvWriter.Write(def.Info.Columns); err != nil {
		logging.FromContext(r.Context()).Error("write template", "error", err)
		return
	}
	csvWriter.Flush()
}

// handleParse checks an upload against a schema and reports invalid rows.
// The upload is streamed; only the report is held in memory.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	def, cfg, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer s.limiter.Release()

	src, err := s.openUpload(w, r, cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer src.Close()

	withValid := r.URL.Query().Get("rows") == "all"
	logger := logging.WithFields(r.Context(), "schema", def.Info.Key)

	rep, err := def.Check(r.Context(), src, cfg, s.cfg.Upload.MaxReportRows, withValid, logger)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if rep.Total == 0 {
		s.respondError(w, r, errNoDataRows)
		return
	}

	logger.Info("upload checked",
		"total", rep.Total,
		"valid", rep.Valid,
		"invalid", rep.Invalid,
		"excluded", rep.Excluded,
	)
	writeJSON(w, r, http.StatusOK, ParseResponse{Report: rep, BytesRead: src.Counter.BytesRead()})
}

// handleLoad copies the valid rows of an upload into the schema's table.
func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.respondError(w, r, errDatabaseDisabled)
		return
	}
	def, cfg, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer s.limiter.Release()

	src, err := s.openUpload(w, r, cfg)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer src.Close()

	logger := logging.WithFields(r.Context(), "schema", def.Info.Key)
	res, err := pgload.Load(r.Context(), s.db, def, def.Rows(src, cfg, logger), logger)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// prepare resolves the schema and reader settings and takes an upload slot.
// On success the caller must release the slot.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (schema.Definition, config.CSVConfig, bool) {
	def, err := schema.Lookup(chi.URLParam(r, "schemaKey"))
	if err != nil {
		s.respondError(w, r, err)
		return schema.Definition{}, config.CSVConfig{}, false
	}

	cfg, err := csvOverrides(r, s.csvFor(def.Info.Key))
	if err != nil {
		s.respondError(w, r, err)
		return schema.Definition{}, config.CSVConfig{}, false
	}

	if err := s.limiter.Acquire(r.Context()); err != nil {
		s.respondError(w, r, err)
		return schema.Definition{}, config.CSVConfig{}, false
	}
	return def, cfg, true
}

func (s *Server) csvFor(key string) config.CSVConfig {
	if s.profile == nil {
		return s.cfg.CSV
	}
	return s.profile.For(key)
}

// openUpload returns the uploaded CSV as a normalized source. Multipart
// requests carry the file in the "file" field; any other body is the file.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request, cfg config.CSVConfig) (*source.Source, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var body io.Reader = r.Body
	size := max(r.ContentLength, 0)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		mr, err := r.MultipartReader()
		if err != nil {
			return nil, fmt.Errorf("read multipart form: %w", err)
		}
		for {
			part, err := mr.NextPart()
			if errors.Is(err, io.EOF) {
				return nil, errNoFile
			}
			if err != nil {
				return nil, fmt.Errorf("read multipart form: %w", err)
			}
			if part.FormName() == "file" {
				body, size = part, 0
				break
			}
			_ = part.Close()
		}
	}

	return source.New(body, size, source.Options{Charset: cfg.Charset})
}

// csvOverrides applies reader options from the query string to base.
func csvOverrides(r *http.Request, base config.CSVConfig) (config.CSVConfig, error) {
	q := r.URL.Query()
	cfg := base

	strs := map[string]*string{
		"separator":      &cfg.Separator,
		"quote":          &cfg.Quote,
		"escape":         &cfg.Escape,
		"list_separator": &cfg.ListSeparator,
		"charset":        &cfg.Charset,
	}
	for name, dst := range strs {
		if q.Has(name) {
			*dst = q.Get(name)
		}
	}

	bools := map[string]*bool{
		"trim":             &cfg.Trim,
		"skip_empty_lines": &cfg.SkipEmptyLines,
		"empty_as_null":    &cfg.EmptyAsNull,
		"strict_columns":   &cfg.StrictColumns,
	}
	var problems []string
	for name, dst := range bools {
		if !q.Has(name) {
			continue
		}
		v, err := strconv.ParseBool(q.Get(name))
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s must be a boolean", name))
			continue
		}
		*dst = v
	}
	if len(problems) > 0 {
		return base, fmt.Errorf("invalid csv options: %s", strings.Join(problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}
