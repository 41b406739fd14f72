package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"segmentcli/internal/config"
	"segmentcli/internal/dataprocessing"
	"segmentcli/internal/exporter"
	"segmentcli/internal/segmentation"
	ws "segmentcli/internal/websocket"
	"segmentcli/pkg/contracts/domain"
)

// WebSocketHub interface for WebSocket communication
type WebSocketHub interface {
	Broadcast(messageType string, data any)
}

// ReportStore persists finished runs
type ReportStore interface {
	SaveReport(ctx context.Context, report domain.SegmentReport) (string, error)
	GetRun(ctx context.Context, id string) (*domain.SegmentReport, error)
}

// ReportPublisher emits finished runs to downstream consumers
type ReportPublisher interface {
	PublishReport(ctx context.Context, report domain.SegmentReport) error
}

// SegmentationRequest describes one run. Exactly one of Reader or Path is used;
// Reader wins when both are set.
type SegmentationRequest struct {
	SourceName string
	Reader     io.Reader
	Path       string
	// OutputDir overrides the per-run reports directory
	OutputDir string
	// SkipExport keeps results in memory only
	SkipExport bool
}

// ProgressUpdate is broadcast while the selection grid is evaluated
type ProgressUpdate struct {
	RunKey    string  `json:"run_key"`
	Source    string  `json:"source"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
	Percent   float64 `json:"percent"`
}

// SegmentationService runs the load, segment, export pipeline
type SegmentationService struct {
	loader    *dataprocessing.Loader
	segmenter *segmentation.Segmenter
	exporter  *exporter.Exporter
	runs      *RunStore
	store     ReportStore
	publisher ReportPublisher
	hub       WebSocketHub
	paths     *config.Paths
	format    exporter.Format
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a SegmentationService
type Option func(*SegmentationService)

// WithStore persists every run
func WithStore(store ReportStore) Option {
	return func(s *SegmentationService) { s.store = store }
}

// WithPublisher publishes every run
func WithPublisher(p ReportPublisher) Option {
	return func(s *SegmentationService) { s.publisher = p }
}

// WithHub broadcasts progress to WebSocket clients
func WithHub(hub WebSocketHub) Option {
	return func(s *SegmentationService) { s.hub = hub }
}

// WithPaths writes exports under the reports directory and keeps a copy of uploads
func WithPaths(paths *config.Paths) Option {
	return func(s *SegmentationService) { s.paths = paths }
}

// WithOutputFormat selects the export format
func WithOutputFormat(f exporter.Format) Option {
	return func(s *SegmentationService) { s.format = f }
}

// WithTimeout bounds the duration of a run
func WithTimeout(d time.Duration) Option {
	return func(s *SegmentationService) { s.timeout = d }
}

// NewSegmentationService creates the service
func NewSegmentationService(segmenter *segmentation.Segmenter, runs *RunStore, logger *slog.Logger, opts ...Option) *SegmentationService {
	if logger == nil {
		logger = slog.Default()
	}
	if runs == nil {
		runs = NewRunStore(DefaultRunCapacity)
	}

	s := &SegmentationService{
		loader:    dataprocessing.NewLoader(logger),
		segmenter: segmenter,
		exporter:  exporter.NewExporter(logger),
		runs:      runs,
		format:    exporter.FormatCSV,
		logger:    logger.With(slog.String("service", "segmentation")),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the pipeline for req and records the result
func (s *SegmentationService) Run(ctx context.Context, req SegmentationRequest) (*RunRecord, error) {
	if req.SourceName == "" || (req.Reader == nil && req.Path == "") {
		return nil, fmt.Errorf("%w: source name and input are required", ErrInvalidInput)
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	runKey := fmt.Sprintf("%s@%d", filepath.Base(req.SourceName), s.now().UnixNano())
	logger := s.logger.With(slog.String("source", req.SourceName))

	table, err := s.load(ctx, req)
	if err != nil {
		s.broadcastError(runKey, req.SourceName, "load", err)
		return nil, fmt.Errorf("load %s: %w", req.SourceName, err)
	}

	result, err := s.segmenter.RunWithProgress(ctx, table, s.progress(runKey, req.SourceName))
	if err != nil {
		s.broadcastError(runKey, req.SourceName, "segment", err)
		return nil, err
	}

	report := result.Report
	report.SourceName = req.SourceName

	rec := &RunRecord{
		ID:         report.RunID,
		SourceName: req.SourceName,
		Report:     report,
		Download:   result.Export(),
		CreatedAt:  s.now().UTC(),
	}

	if !req.SkipExport {
		if err := s.export(ctx, rec, req.OutputDir); err != nil {
			s.broadcastError(runKey, req.SourceName, "export", err)
			return nil, err
		}
	}

	if s.store != nil {
		id, err := s.store.SaveReport(ctx, report)
		if err != nil {
			s.broadcastError(runKey, req.SourceName, "persist", err)
			return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
		}
		rec.StoredID = id
	}

	if s.publisher != nil {
		if err := s.publisher.PublishReport(ctx, report); err != nil {
			s.broadcastError(runKey, req.SourceName, "publish", err)
			return nil, fmt.Errorf("%w: %w", ErrPublish, err)
		}
		rec.Published = true
	}

	s.runs.Put(rec)

	logger.InfoContext(ctx, "segmentation run recorded",
		slog.String("run_id", rec.ID),
		slog.Float64("score", report.Score),
		slog.Int("files", len(rec.Files)))

	if s.hub != nil {
		s.hub.Broadcast(ws.TypeSegmentationComplete, map[string]any{
			"run_key": runKey,
			"run_id":  rec.ID,
			"source":  req.SourceName,
			"score":   report.Score,
			"seed":    report.Seed,
			"space":   report.Space,
		})
	}

	return rec, nil
}

// load reads the export, keeping a copy of uploaded content under the data directory
func (s *SegmentationService) load(ctx context.Context, req SegmentationRequest) (*domain.TicketTable, error) {
	if req.Reader == nil {
		return s.loader.LoadFile(ctx, req.Path)
	}

	r := req.Reader
	if s.paths != nil && s.paths.DataDir != "" {
		if err := os.MkdirAll(s.paths.DataDir, 0755); err == nil {
			path := filepath.Join(s.paths.DataDir, s.paths.GetUploadName(req.SourceName, s.now()))
			if f, err := os.Create(path); err == nil {
				defer f.Close()
				r = io.TeeReader(r, f)
			} else {
				s.logger.WarnContext(ctx, "could not keep upload copy", slog.String("error", err.Error()))
			}
		}
	}
	return s.loader.Load(ctx, r, req.SourceName)
}

func (s *SegmentationService) export(ctx context.Context, rec *RunRecord, dir string) error {
	if dir == "" {
		if s.paths == nil {
			return nil
		}
		dir = s.paths.GetRunDir(rec.ID)
	}

	files, err := s.exporter.WriteRun(ctx, dir, exporter.Run{Report: rec.Report, Download: rec.Download}, s.format)
	if err != nil {
		return fmt.Errorf("export run %s: %w", rec.ID, err)
	}
	rec.OutputDir = dir
	rec.Files = files
	return nil
}

// progress broadcasts whole-percent steps of the selection grid
func (s *SegmentationService) progress(runKey, source string) segmentation.ProgressFunc {
	if s.hub == nil {
		return nil
	}

	var (
		mu   sync.Mutex
		last = -1
	)
	return func(done, total int) {
		if total <= 0 {
			return
		}
		pct := done * 100 / total

		mu.Lock()
		if pct <= last {
			mu.Unlock()
			return
		}
		last = pct
		mu.Unlock()

		s.hub.Broadcast(ws.TypeSegmentationProgress, ProgressUpdate{
			RunKey:    runKey,
			Source:    source,
			Completed: done,
			Total:     total,
			Percent:   float64(pct),
		})
	}
}

func (s *SegmentationService) broadcastError(runKey, source, stage string, err error) {
	if s.hub == nil {
		return
	}
	s.hub.Broadcast(ws.TypeSegmentationError, map[string]any{
		"run_key": runKey,
		"source":  source,
		"stage":   stage,
		"error":   err.Error(),
	})
}

// GetRun returns a run from memory, falling back to the report store
func (s *SegmentationService) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	rec, err := s.runs.Get(id)
	if err == nil {
		return rec, nil
	}
	if s.store == nil {
		return nil, err
	}

	report, serr := s.store.GetRun(ctx, id)
	if serr != nil {
		s.logger.DebugContext(ctx, "run not in report store",
			slog.String("run_id", id),
			slog.String("error", serr.Error()))
		return nil, ErrRunNotFound
	}
	return &RunRecord{
		ID:         report.RunID,
		SourceName: report.SourceName,
		Report:     *report,
		CreatedAt:  report.StartedAt,
	}, nil
}

// ListRuns returns the in-memory runs, newest first
func (s *SegmentationService) ListRuns() []*RunRecord {
	return s.runs.List()
}

// WriteDownload writes the annotated raw table of a run as csv or xlsx
func (s *SegmentationService) WriteDownload(ctx context.Context, id string, format exporter.Format, out io.Writer) error {
	rec, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if rec.Download.Header == nil {
		return ErrDownloadUnavailable
	}

	switch format {
	case exporter.FormatCSV:
		return exporter.EncodeCSV(out, exporter.WriteOptions{
			Headers:   rec.Download.Header,
			Records:   rec.Download.Rows,
			BOMPrefix: true,
		})
	case exporter.FormatXLSX:
		run := exporter.Run{Report: rec.Report, Download: rec.Download}
		return exporter.WriteWorkbook(out, run.Sheets())
	default:
		return fmt.Errorf("%w: download format must be csv or xlsx", ErrInvalidInput)
	}
}

// IsInputError reports whether err was caused by the uploaded content
func IsInputError(err error) bool {
	var missing *dataprocessing.MissingColumnsError
	var parse *dataprocessing.ParseError
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, dataprocessing.ErrUnsupportedFormat) ||
		errors.Is(err, dataprocessing.ErrEmptyFile) ||
		errors.As(err, &missing) ||
		errors.As(err, &parse) ||
		errors.Is(err, segmentation.ErrNoCustomers) ||
		errors.Is(err, segmentation.ErrTooFewSamples) ||
		errors.Is(err, segmentation.ErrNoViableClustering)
}
