package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentcli/internal/dataprocessing"
	"segmentcli/internal/segmentation"
)

func quietHandler(includeStack bool) *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), includeStack)
}

func TestProblemDetailsJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusNotFound, TypeNotFound, "Not Found", "", "/x").
		WithExtension("trace_id", "abc").
		WithExtension("status", 999)

	raw, err := json.Marshal(pd)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, TypeNotFound, got["type"])
	assert.Equal(t, float64(404), got["status"], "standard members win over extensions")
	assert.Equal(t, "abc", got["trace_id"])
	assert.Equal(t, "/x", got["instance"])
	assert.NotContains(t, got, "detail")
}

func TestErrorToProblem(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"timeout", fmt.Errorf("run: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, TypeTimeout},
		{"api not found", NotFoundError("segmentation run"), http.StatusNotFound, TypeNotFound},
		{"api validation", NewValidationErrors([]ValidationError{{Field: "format", Message: "oneof"}}), http.StatusBadRequest, TypeValidation},
		{"missing file", ErrMissingFile, http.StatusBadRequest, TypeValidation},
		{"body too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 10}), http.StatusRequestEntityTooLarge, TypePayloadTooLarge},
		{"missing columns", fmt.Errorf("load: %w", &dataprocessing.MissingColumnsError{Columns: []string{"AMS"}}), http.StatusUnprocessableEntity, TypeMissingColumns},
		{"parse error", &dataprocessing.ParseError{Row: 4, Column: "Closed time", Value: "x", Err: fmt.Errorf("bad")}, http.StatusUnprocessableEntity, TypeInvalidValue},
		{"unsupported", fmt.Errorf("load: %w", dataprocessing.ErrUnsupportedFormat), http.StatusUnsupportedMediaType, TypeUnsupportedFormat},
		{"empty", dataprocessing.ErrEmptyFile, http.StatusUnprocessableEntity, TypeEmptyExport},
		{"no customers", fmt.Errorf("attributes: %w", segmentation.ErrNoCustomers), http.StatusUnprocessableEntity, TypeNoCustomers},
		{"too few", segmentation.ErrTooFewSamples, http.StatusUnprocessableEntity, TypeTooFewCustomers},
		{"no viable", segmentation.ErrNoViableClustering, http.StatusUnprocessableEntity, TypeNoViableClusters},
		{"unknown", fmt.Errorf("disk on fire"), http.StatusInternalServerError, TypeInternal},
	}

	h := quietHandler(false)
	r := httptest.NewRequest(http.MethodGet, "/api/v1/segmentations", nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pd := h.ErrorToProblem(tt.err, r)
			assert.Equal(t, tt.wantStatus, pd.Status)
			assert.Equal(t, tt.wantType, pd.Type)
			assert.Equal(t, "/api/v1/segmentations", pd.Instance)
		})
	}
}

func TestErrorToProblemExtensions(t *testing.T) {
	h := quietHandler(false)
	r := httptest.NewRequest(http.MethodPost, "/upload", nil)

	pd := h.ErrorToProblem(&dataprocessing.MissingColumnsError{Columns: []string{"AMS", "CMS"}}, r)
	assert.Equal(t, []string{"AMS", "CMS"}, pd.Extensions["missing_columns"])

	pd = h.ErrorToProblem(&dataprocessing.ParseError{Row: 7, Column: "AMS", Err: fmt.Errorf("bad")}, r)
	assert.Equal(t, 7, pd.Extensions["row"])
	assert.Equal(t, "AMS", pd.Extensions["column"])

	pd = h.ErrorToProblem(NotFoundError("segmentation run"), r)
	assert.Equal(t, "NOT_FOUND", pd.Extensions["error_code"])
	assert.Equal(t, "segmentation run not found", pd.Detail)
}

func TestHandleError(t *testing.T) {
	h := quietHandler(true)
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/boom", nil)

	h.HandleError(w, r, fmt.Errorf("unexpected"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, TypeInternal, body["type"])
	assert.Contains(t, body, "trace_id")
	assert.Contains(t, body, "stack")

	w = httptest.NewRecorder()
	h.HandleError(w, r, nil)
	assert.Equal(t, 0, w.Body.Len())
}

func TestRecoveryMiddleware(t *testing.T) {
	h := quietHandler(true)
	handler := RecoveryMiddleware(h)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "kaboom", body["panic"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := quietHandler(false)

	w := httptest.NewRecorder()
	h.NotFound(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	h.MethodNotAllowed(w, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "DELETE")
}

func TestRequestLogger(t *testing.T) {
	var buf jsonLines
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/tea?cups=2", nil))

	require.Len(t, buf.lines, 1)
	entry := buf.lines[0]
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, float64(http.StatusTeapot), entry["status"])
	assert.Equal(t, "cups=2", entry["query"])
	assert.Equal(t, "http", entry["component"])
}

type jsonLines struct {
	lines []map[string]any
}

func (j *jsonLines) Write(p []byte) (int, error) {
	var m map[string]any
	if err := json.Unmarshal(p, &m); err != nil {
		return 0, err
	}
	j.lines = append(j.lines, m)
	return len(p), nil
}
