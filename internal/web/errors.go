package web

// errors.go turns handler errors into responses.
//
// Every error is logged with its technical detail and request ID, then
// mapped to a user message with a support code:
//
//	CSV001  invalid reader options          400
//	CSV002  no data rows                    400
//	FILE001 upload exceeds the size limit   413
//	FILE002 unreadable compressed payload   400
//	FILE003 unsupported charset             400
//	FILE004 no file in the request          400
//	SCH001  unknown schema                  404
//	UPL002  all upload slots busy           503
//	UPL004  request cancelled               400
//	UPL005  request timed out               504
//	LOAD001 database loading not configured 503
//	DB001   duplicate key                   409
//	DB003   missing referenced row          409
//	DB004   target table does not exist     500
//	DB005   database unreachable            503
//	DB000   other database failures         500
//	ERR000  anything else                   500
//
// Typed errors are matched first with errors.Is / errors.As; the remaining
// patterns are matched case-insensitively against the message.

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/typedcsv/internal/logging"
	"github.com/JonMunkholm/typedcsv/internal/schema"
	"github.com/JonMunkholm/typedcsv/internal/web/templates"
)

var (
	errNoFile           = errors.New("no file provided")
	errNoDataRows       = errors.New("empty file: no data rows")
	errDatabaseDisabled = errors.New("database loading is not configured")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
	Status  int    // HTTP status
}

// ErrorResponse is the JSON body of API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns are checked in order after the typed matches; the first
// substring match wins.
var errorPatterns = []errorPattern{
	{"invalid csv options", UserMessage{"The CSV options are invalid", "Use single-character separator, quote and escape values", "CSV001", http.StatusBadRequest}},
	{"failed to create gzip reader", UserMessage{"The compressed file could not be read", "Upload a plain CSV or a valid .gz file", "FILE002", http.StatusBadRequest}},
	{"failed to create zstd reader", UserMessage{"The compressed file could not be read", "Upload a plain CSV or a valid .zst file", "FILE002", http.StatusBadRequest}},
	{"unsupported charset", UserMessage{"The file's character set is not supported", "Save the file as UTF-8 or pick a known charset", "FILE003", http.StatusBadRequest}},
	{"multipart", UserMessage{"The upload form could not be read", "Send the file in a field named \"file\"", "FILE004", http.StatusBadRequest}},
	{"connection refused", UserMessage{"Unable to connect to database", "Check that the database is running", "DB005", http.StatusServiceUnavailable}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
	Status:  http.StatusInternalServerError,
}

// MapError converts err to a user-facing message and status. A nil error
// maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var maxBytes *http.MaxBytesError
	var pgErr *pgconn.PgError

	switch {
	case errors.Is(err, schema.ErrUnknownSchema):
		return UserMessage{"Unknown schema", "Pick one of the schemas listed at /api/schemas", "SCH001", http.StatusNotFound}
	case errors.Is(err, ErrTooManyUploads):
		return UserMessage{"System is busy processing other uploads", "Please wait a moment and try again", "UPL002", http.StatusServiceUnavailable}
	case errors.As(err, &maxBytes):
		return UserMessage{"File exceeds the maximum upload size", "Split the file into smaller chunks or compress it", "FILE001", http.StatusRequestEntityTooLarge}
	case errors.Is(err, errNoFile), errors.Is(err, http.ErrMissingFile):
		return UserMessage{"No file was provided", "Please select a CSV file to upload", "FILE004", http.StatusBadRequest}
	case errors.Is(err, errNoDataRows):
		return UserMessage{"The uploaded file has no data rows", "Please upload a CSV file with a header and data rows", "CSV002", http.StatusBadRequest}
	case errors.Is(err, errDatabaseDisabled):
		return UserMessage{"Loading into the database is not configured", "Set DATABASE_URL and restart the server", "LOAD001", http.StatusServiceUnavailable}
	case errors.Is(err, context.DeadlineExceeded):
		return UserMessage{"Request timed out", "Try a smaller file or check your connection", "UPL005", http.StatusGatewayTimeout}
	case errors.Is(err, context.Canceled):
		return UserMessage{"Request was cancelled", "Please try again", "UPL004", http.StatusBadRequest}
	case errors.As(err, &pgErr):
		return mapPgError(pgErr)
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}
	return defaultMessage
}

func mapPgError(e *pgconn.PgError) UserMessage {
	switch e.Code {
	case "23505":
		return UserMessage{"A record with this key already exists", "Remove duplicates or clear the table before loading", "DB001", http.StatusConflict}
	case "23503":
		return UserMessage{"Referenced record does not exist", "Load parent records first", "DB003", http.StatusConflict}
	case "42P01":
		return UserMessage{"The target table does not exist", "Create the table before loading", "DB004", http.StatusInternalServerError}
	}
	return UserMessage{"The database rejected the load", "Check the server logs for details", "DB000", http.StatusInternalServerError}
}

// respondError logs err and writes the mapped message as JSON for API
// clients, or as an HTML alert otherwise.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", msg.Status,
		"error", err.Error(),
		"code", msg.Code,
	)

	if msg.Code == "UPL002" {
		w.Header().Set("Retry-After", "5")
	}

	if wantsJSON(r) {
		respondErrorJSON(w, msg)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(msg.Status)
	_ = templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

func respondErrorJSON(w http.ResponseWriter, msg UserMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(msg.Status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
