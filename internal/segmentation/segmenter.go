package segmentation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"segmentcli/pkg/contracts/domain"
)

// Result carries every table produced by a segmentation run
type Result struct {
	Resolved    *domain.TicketTable
	Filtered    []domain.TicketRecord
	Attributes  []domain.CustomerAttributes
	Selection   Selection
	Assignments []domain.ClusterAssignment
	Clustered   []domain.ClusteredCustomer
	Centers     []domain.ClusterCenter
	Report      domain.SegmentReport
}

// Export returns the raw rows annotated with their cluster label
func (r *Result) Export() domain.ExportTable {
	return MergeExport(r.Resolved, r.Clustered)
}

// Segmenter orchestrates a segmentation run
type Segmenter struct {
	cfg     Config
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// NewSegmenter creates a segmenter using the global tracer provider
func NewSegmenter(cfg Config, logger *slog.Logger) *Segmenter {
	if logger == nil {
		logger = slog.Default()
	}

	return &Segmenter{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "segmenter")),
		tracer: otel.Tracer(instrumentationName),
	}
}

// SetMetrics attaches run metrics
func (s *Segmenter) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetTracer overrides the tracer
func (s *Segmenter) SetTracer(t trace.Tracer) {
	s.tracer = t
}

// Config returns the selector configuration
func (s *Segmenter) Config() Config {
	return s.cfg
}

// Run segments the customers of table
func (s *Segmenter) Run(ctx context.Context, table *domain.TicketTable) (*Result, error) {
	return s.RunWithProgress(ctx, table, nil)
}

// RunWithProgress segments the customers of table, reporting grid progress to
// progress. progress may be called from several goroutines.
func (s *Segmenter) RunWithProgress(ctx context.Context, table *domain.TicketTable, progress ProgressFunc) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()

	ctx, span := s.tracer.Start(ctx, "segmentation.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Int("rows", table.Len()),
		attribute.Int("cluster_count", s.cfg.ClusterCount),
	))
	defer span.End()

	logger := s.logger.With(slog.String("run_id", runID))
	logger.InfoContext(ctx, "starting segmentation",
		slog.Int("rows", table.Len()),
		slog.Int("cluster_count", s.cfg.ClusterCount),
		slog.Int64("seed_start", s.cfg.SeedStart),
		slog.Int64("seed_end", s.cfg.SeedEnd),
		slog.Int("workers", s.cfg.Workers),
	)

	fail := func(stage string, err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.recordFailure(ctx, stage)
		logger.ErrorContext(ctx, "segmentation failed",
			slog.String("stage", stage),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", stage, err)
	}

	result := &Result{}

	_, attrSpan := s.tracer.Start(ctx, "segmentation.attributes")
	result.Resolved = ResolveIdentifiers(table)
	result.Filtered = FilterCustomers(result.Resolved.Records)
	result.Attributes = BuildAttributes(result.Filtered)
	attrSpan.SetAttributes(
		attribute.Int("filtered_rows", len(result.Filtered)),
		attribute.Int("customers", len(result.Attributes)),
	)
	attrSpan.End()

	logger.InfoContext(ctx, "built customer attributes",
		slog.Int("filtered_rows", len(result.Filtered)),
		slog.Int("customers", len(result.Attributes)))

	if len(result.Attributes) == 0 {
		return fail("attributes", ErrNoCustomers)
	}

	raw := PrepareFeatures(result.Attributes)
	standardized, _ := Standardize(raw)
	sets := []FeatureSet{
		{Space: domain.FeatureSpaceRaw, Matrix: raw},
		{Space: domain.FeatureSpaceStandardized, Matrix: standardized},
	}

	selCtx, selSpan := s.tracer.Start(ctx, "segmentation.select")
	sel, err := SelectClusters(selCtx, sets, s.cfg, progress)
	if err != nil {
		selSpan.RecordError(err)
		selSpan.End()
		return fail("select", err)
	}
	selSpan.SetAttributes(
		attribute.Float64("score", sel.Score),
		attribute.Int64("seed", sel.Seed),
		attribute.String("space", string(sel.Space)),
	)
	selSpan.End()

	logger.InfoContext(ctx, "selected clustering",
		slog.Float64("score", sel.Score),
		slog.Int64("seed", sel.Seed),
		slog.String("space", string(sel.Space)))

	result.Selection = sel
	result.Assignments = Assignments(result.Attributes, sel.Labels)
	result.Clustered = LabelClusters(result.Attributes, result.Assignments, result.Filtered, s.cfg.ClusterCount)
	result.Centers = BuildClusterCenters(sel, result.Assignments)

	duration := time.Since(start)
	result.Report = domain.SegmentReport{
		RunID:        runID,
		Score:        sel.Score,
		Seed:         sel.Seed,
		Space:        sel.Space,
		ClusterCount: s.cfg.ClusterCount,
		Customers:    len(result.Attributes),
		Centers:      result.Centers,
		Clustered:    result.Clustered,
		StartedAt:    start,
		Duration:     duration,
	}

	s.metrics.recordSuccess(ctx, sel, len(sets)*s.cfg.Seeds(), len(result.Attributes), duration.Seconds())

	logger.InfoContext(ctx, "segmentation completed",
		slog.Duration("duration", duration),
		slog.Int("clustered_rows", len(result.Clustered)))

	return result, nil
}
