package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"segmentcli/internal/config"
	"segmentcli/pkg/contracts/domain"
)

// ErrNotFound is returned when a run id is unknown
var ErrNotFound = errors.New("segmentation run not found")

// RunSummary is one row of the run listing
type RunSummary struct {
	ID           string
	SourceName   string
	Score        float64
	Seed         int64
	Space        domain.FeatureSpace
	ClusterCount int
	Customers    int
	StartedAt    time.Time
	CreatedAt    time.Time
}

// Store persists segmentation reports in Postgres
type Store struct {
	pool   *pgxpool.Pool
	schema string
	logger *slog.Logger
}

// Open connects to the database described by cfg and verifies the connection
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	schema, err := SanitizeSchema(cfg.Schema)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(pool, schema, logger), nil
}

// New wraps an existing pool. schema must already be sanitized.
func New(pool *pgxpool.Pool, schema string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		pool:   pool,
		schema: schema,
		logger: logger.With(slog.String("component", "store")),
	}
}

// Close releases the pool
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the schema, tables and indexes when missing
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.schema) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema %s: %w", s.schema, err)
		}
	}
	return nil
}

// SaveReport stores the run, its centers and its clustered customers in one
// transaction and returns the stored run id.
func (s *Store) SaveReport(ctx context.Context, report domain.SegmentReport) (string, error) {
	runID, err := uuid.Parse(report.RunID)
	if err != nil {
		runID = uuid.New()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s.segmentation_runs (
			id, source_name, score, seed, feature_space,
			cluster_count, customers, started_at, duration_ms
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9
		)`, s.schema),
		runID,
		nullString(report.SourceName),
		report.Score,
		report.Seed,
		string(report.Space),
		report.ClusterCount,
		report.Customers,
		report.StartedAt,
		report.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	insertCenterSQL := fmt.Sprintf(`
		INSERT INTO %s.segmentation_centers (
			id, run_id, cluster, label, cluster_size,
			recency, ticket_count, ams, cms, customer_interactions, agent_interactions
		) VALUES (
			$1,$2,$3,$4,$5,
			$6,$7,$8,$9,$10,$11
		)`, s.schema)

	batch := &pgx.Batch{}
	for _, c := range report.Centers {
		args := []any{uuid.New(), runID, c.Cluster, c.Label, c.Size}
		for _, name := range domain.FeatureNames {
			v, _ := c.Feature(name)
			args = append(args, v)
		}
		batch.Queue(insertCenterSQL, args...)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("insert centers: %w", err)
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.schema, "segmentation_assignments"},
		assignmentColumns,
		pgx.CopyFromRows(assignmentRows(runID, report.Clustered)),
	); err != nil {
		return "", fmt.Errorf("copy assignments: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	s.logger.InfoContext(ctx, "stored segmentation run",
		slog.String("run_id", runID.String()),
		slog.Int("centers", len(report.Centers)),
		slog.Int("assignments", len(report.Clustered)))

	return runID.String(), nil
}

// assignmentRows converts clustered customers to COPY rows
func assignmentRows(runID uuid.UUID, clustered []domain.ClusteredCustomer) [][]any {
	rows := make([][]any, 0, len(clustered))
	for _, c := range clustered {
		var cluster any
		if c.Cluster != nil {
			cluster = int32(*c.Cluster)
		}
		rows = append(rows, []any{
			uuid.New(),
			runID,
			c.ClientCode,
			cluster,
			nullString(c.Label),
			nullString(c.CompanyName),
			nullString(c.GroupCompany),
			nullString(c.Brand),
			int32(c.Recency),
			int32(c.TicketCount),
			c.AMS,
			c.CMS,
			c.CustomerInteractions,
			c.AgentInteractions,
		})
	}
	return rows
}

// GetRun loads a stored report with its centers and clustered customers
func (s *Store) GetRun(ctx context.Context, id string) (*domain.SegmentReport, error) {
	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrNotFound
	}

	var (
		report     domain.SegmentReport
		source     *string
		space      string
		durationMS int64
	)
	err = s.pool.QueryRow(ctx, fmt.Sprintf(`
		SELECT source_name, score, seed, feature_space, cluster_count, customers, started_at, duration_ms
		FROM %s.segmentation_runs WHERE id = $1`, s.schema), runID).
		Scan(&source, &report.Score, &report.Seed, &space, &report.ClusterCount, &report.Customers, &report.StartedAt, &durationMS)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}

	report.RunID = runID.String()
	report.Space = domain.FeatureSpace(space)
	report.Duration = time.Duration(durationMS) * time.Millisecond
	if source != nil {
		report.SourceName = *source
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT cluster, label, cluster_size, recency, ticket_count, ams, cms, customer_interactions, agent_interactions
		FROM %s.segmentation_centers WHERE run_id = $1 ORDER BY cluster`, s.schema), runID)
	if err != nil {
		return nil, fmt.Errorf("query centers: %w", err)
	}
	report.Centers, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.ClusterCenter, error) {
		c := domain.ClusterCenter{Centroid: make([]float64, len(domain.FeatureNames)), Space: report.Space}
		err := row.Scan(&c.Cluster, &c.Label, &c.Size,
			&c.Centroid[0], &c.Centroid[1], &c.Centroid[2], &c.Centroid[3], &c.Centroid[4], &c.Centroid[5])
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan centers: %w", err)
	}

	rows, err = s.pool.Query(ctx, fmt.Sprintf(`
		SELECT client_code, cluster, label, company_name, group_company, brand,
			recency, ticket_count, ams, cms, customer_interactions, agent_interactions
		FROM %s.segmentation_assignments WHERE run_id = $1 ORDER BY client_code, id`, s.schema), runID)
	if err != nil {
		return nil, fmt.Errorf("query assignments: %w", err)
	}
	report.Clustered, err = pgx.CollectRows(rows, scanClustered)
	if err != nil {
		return nil, fmt.Errorf("scan assignments: %w", err)
	}

	return &report, nil
}

func scanClustered(row pgx.CollectableRow) (domain.ClusteredCustomer, error) {
	var (
		c                            domain.ClusteredCustomer
		cluster                      *int32
		label, company, group, brand *string
		recency, tickets             int32
	)
	err := row.Scan(&c.ClientCode, &cluster, &label, &company, &group, &brand,
		&recency, &tickets, &c.AMS, &c.CMS, &c.CustomerInteractions, &c.AgentInteractions)
	if err != nil {
		return c, err
	}

	if cluster != nil {
		id := int(*cluster)
		c.Cluster = &id
	}
	c.Recency = int(recency)
	c.TicketCount = int(tickets)
	c.Label = deref(label)
	c.CompanyName = deref(company)
	c.GroupCompany = deref(group)
	c.Brand = deref(brand)
	return c, nil
}

// ListRuns returns the most recent runs first
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, source_name, score, seed, feature_space, cluster_count, customers, started_at, created_at
		FROM %s.segmentation_runs ORDER BY created_at DESC, id LIMIT $1`, s.schema), limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (RunSummary, error) {
		var (
			r      RunSummary
			id     uuid.UUID
			source *string
			space  string
		)
		err := row.Scan(&id, &source, &r.Score, &r.Seed, &space, &r.ClusterCount, &r.Customers, &r.StartedAt, &r.CreatedAt)
		r.ID = id.String()
		r.SourceName = deref(source)
		r.Space = domain.FeatureSpace(space)
		return r, err
	})
}

// nullString maps blank text to SQL NULL
func nullString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Ping checks that the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
