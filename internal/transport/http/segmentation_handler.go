package http

import (
	"bytes"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"segmentcli/internal/config"
	apierrors "segmentcli/internal/errors"
	"segmentcli/internal/exporter"
	"segmentcli/internal/middleware"
	"segmentcli/internal/services"
	"segmentcli/pkg/contracts/domain"
)

const (
	uploadField     = "file"
	maxMemoryUpload = 8 << 20
	defaultRunLimit = 50
	maxRunLimit     = 100
)

var downloadContentTypes = map[exporter.Format]string{
	exporter.FormatCSV:  "text/csv; charset=utf-8",
	exporter.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// uploadRequest is validated before the pipeline runs
type uploadRequest struct {
	FileName string `json:"file_name" validate:"required,filename"`
}

// RunResponse is the summary of one segmentation run
type RunResponse struct {
	ID           string                 `json:"id"`
	SourceName   string                 `json:"source_name"`
	Score        float64                `json:"score"`
	Seed         int64                  `json:"seed"`
	Space        domain.FeatureSpace    `json:"space"`
	ClusterCount int                    `json:"cluster_count"`
	Customers    int                    `json:"customers"`
	Centers      []domain.ClusterCenter `json:"centers"`
	Files        []string               `json:"files,omitempty"`
	StoredID     string                 `json:"stored_id,omitempty"`
	Published    bool                   `json:"published"`
	CreatedAt    time.Time              `json:"created_at"`
	DurationMS   int64                  `json:"duration_ms"`
	Links        map[string]string      `json:"links"`
}

// Render implements render.Renderer
func (rr *RunResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

func newRunResponse(rec *services.RunRecord) *RunResponse {
	files := make([]string, 0, len(rec.Files))
	for _, f := range rec.Files {
		files = append(files, filepath.Base(f))
	}

	self := runPath(rec.ID)
	return &RunResponse{
		ID:           rec.ID,
		SourceName:   rec.SourceName,
		Score:        rec.Report.Score,
		Seed:         rec.Report.Seed,
		Space:        rec.Report.Space,
		ClusterCount: rec.Report.ClusterCount,
		Customers:    rec.Report.Customers,
		Centers:      rec.Report.Centers,
		Files:        files,
		StoredID:     rec.StoredID,
		Published:    rec.Published,
		CreatedAt:    rec.CreatedAt,
		DurationMS:   rec.Report.Duration.Milliseconds(),
		Links: map[string]string{
			"self":     self,
			"clusters": self + "/clusters",
			"download": self + "/download",
		},
	}
}

// RunListResponse lists runs newest first
type RunListResponse struct {
	Runs  []*RunResponse `json:"runs"`
	Count int            `json:"count"`
	Total int            `json:"total"`
}

// Render implements render.Renderer
func (rl *RunListResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ClustersResponse carries the per-customer segment assignments of a run
type ClustersResponse struct {
	RunID     string                     `json:"run_id"`
	Cluster   *int                       `json:"cluster,omitempty"`
	Count     int                        `json:"count"`
	Customers []domain.ClusteredCustomer `json:"customers"`
}

// Render implements render.Renderer
func (cr *ClustersResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// SegmentationHandler serves the segmentation resource
type SegmentationHandler struct {
	service        SegmentationServiceInterface
	validator      *middleware.Validator
	errorHandler   *apierrors.ErrorHandler
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewSegmentationHandler creates the handler. maxUploadBytes caps the
// multipart body of uploads.
func NewSegmentationHandler(service SegmentationServiceInterface, validator *middleware.Validator, errorHandler *apierrors.ErrorHandler, maxUploadBytes int64, logger *slog.Logger) *SegmentationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SegmentationHandler{
		service:        service,
		validator:      validator,
		errorHandler:   errorHandler,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With(slog.String("handler", "segmentation")),
	}
}

// Routes returns the segmentation routes
func (h *SegmentationHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ListSegmentations)
	r.With(
		middleware.ContentTypeValidator(h.errorHandler, "multipart/form-data"),
		middleware.MaxBodySize(h.maxUploadBytes),
	).Post("/", h.CreateSegmentation)
	r.Get("/schema", h.GetSummarySchema)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.GetSegmentation)
		r.Get("/clusters", h.GetClusters)
		r.Get("/download", h.Download)
	})

	return r
}

// CreateSegmentation handles POST /api/v1/segmentations. The upload is
// segmented synchronously; progress is broadcast over the WebSocket.
func (h *SegmentationHandler) CreateSegmentation(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxMemoryUpload); err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		h.errorHandler.HandleError(w, r, uploadError(err))
		return
	}
	defer file.Close()

	if !h.validator.Check(w, r, uploadRequest{FileName: header.Filename}) {
		return
	}

	h.logger.InfoContext(r.Context(), "segmentation upload received",
		slog.String("file", header.Filename),
		slog.Int64("size", header.Size))

	rec, err := h.service.Run(r.Context(), services.SegmentationRequest{
		SourceName: header.Filename,
		Reader:     file,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Location", runPath(rec.ID))
	render.Status(r, http.StatusCreated)
	render.Render(w, r, newRunResponse(rec))
}

// ListSegmentations handles GET /api/v1/segmentations
func (h *SegmentationHandler) ListSegmentations(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.validator.ValidateInt(w, r, "limit", 1, maxRunLimit, defaultRunLimit)
	if !ok {
		return
	}

	runs := h.service.ListRuns()
	total := len(runs)
	if len(runs) > limit {
		runs = runs[:limit]
	}

	resp := &RunListResponse{Runs: make([]*RunResponse, 0, len(runs)), Total: total}
	for _, rec := range runs {
		resp.Runs = append(resp.Runs, newRunResponse(rec))
	}
	resp.Count = len(resp.Runs)

	render.Render(w, r, resp)
}

// GetSegmentation handles GET /api/v1/segmentations/{id}
func (h *SegmentationHandler) GetSegmentation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	render.Render(w, r, newRunResponse(rec))
}

// GetClusters handles GET /api/v1/segmentations/{id}/clusters with an
// optional ?cluster= filter
func (h *SegmentationHandler) GetClusters(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	maxCluster := rec.Report.ClusterCount - 1
	if maxCluster < 0 {
		maxCluster = 0
	}
	cluster, ok := h.validator.ValidateInt(w, r, "cluster", 0, maxCluster, -1)
	if !ok {
		return
	}

	resp := &ClustersResponse{RunID: rec.ID, Customers: rec.Report.Clustered}
	if cluster >= 0 {
		resp.Cluster = &cluster
		resp.Customers = make([]domain.ClusteredCustomer, 0)
		for _, c := range rec.Report.Clustered {
			if c.Cluster != nil && *c.Cluster == cluster {
				resp.Customers = append(resp.Customers, c)
			}
		}
	}
	resp.Count = len(resp.Customers)

	render.Render(w, r, resp)
}

// Download handles GET /api/v1/segmentations/{id}/download?format=csv|xlsx
func (h *SegmentationHandler) Download(w http.ResponseWriter, r *http.Request) {
	name, ok := h.validator.ValidateEnum(w, r, "format",
		[]string{string(exporter.FormatCSV), string(exporter.FormatXLSX)}, string(exporter.FormatCSV))
	if !ok {
		return
	}
	format := exporter.Format(name)
	id := chi.URLParam(r, "id")

	// buffered so a failure can still be answered with a problem document
	var buf bytes.Buffer
	if err := h.service.WriteDownload(r.Context(), id, format, &buf); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	rec, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", downloadContentTypes[format])
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": DownloadFileName(rec.SourceName, format),
	}))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.WarnContext(r.Context(), "download interrupted",
			slog.String("run_id", id),
			slog.String("error", err.Error()))
	}
}

// GetSummarySchema handles GET /api/v1/segmentations/schema
func (h *SegmentationHandler) GetSummarySchema(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, exporter.SummarySchema())
}

func (h *SegmentationHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrRunNotFound):
		err = apierrors.NotFoundError("segmentation run")
	case errors.Is(err, services.ErrDownloadUnavailable):
		err = apierrors.New(http.StatusConflict, "DOWNLOAD_UNAVAILABLE",
			"The raw export of this run is no longer held in memory")
	case errors.Is(err, services.ErrInvalidInput):
		err = apierrors.InvalidRequestWithError(err)
	}
	h.errorHandler.HandleError(w, r, err)
}

// uploadError maps multipart failures; oversized bodies keep their
// *http.MaxBytesError so they answer 413
func uploadError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return err
	case errors.Is(err, http.ErrMissingFile):
		return apierrors.ErrMissingFile
	default:
		return apierrors.InvalidRequestWithError(err)
	}
}

// DownloadFileName names the annotated export after the uploaded file
func DownloadFileName(source string, format exporter.Format) string {
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if stem == "" || stem == "." {
		stem = "segmentation"
	}
	return stem + "_ranked." + string(format)
}

func runPath(id string) string {
	return config.SegmentationsEndpoint + "/" + id
}
