// Command segment clusters the customers of a ticket export and writes the
// clustered, centers and download tables plus a JSON summary.
//
//	segment -in export.xlsx -out reports/march [-format csv|xlsx|both] [-workers N] [-db] [-publish]
//	segment -schema
//	segment -history 20
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"

	"segmentcli/internal/config"
	"segmentcli/internal/exporter"
	"segmentcli/internal/infrastructure"
	"segmentcli/internal/publisher"
	"segmentcli/internal/segmentation"
	"segmentcli/internal/services"
	"segmentcli/internal/store"
	"segmentcli/internal/validation"
)

// options are the parsed command line flags
type options struct {
	in         string
	out        string
	format     exporter.Format
	workers    int
	seedEnd    int64
	useDB      bool
	publish    bool
	schema     bool
	history    int
	configFile string
}

var errUsage = errors.New("usage")

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "segment: %v\n", err)
		}
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var (
		opts   options
		format string
	)

	fs := flag.NewFlagSet("segment", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.in, "in", "", "ticket export to segment (.csv, .xlsx or .xlsm)")
	fs.StringVar(&opts.out, "out", "", "output directory (defaults to the reports directory)")
	fs.StringVar(&format, "format", string(exporter.FormatCSV), "output format: csv, xlsx or both")
	fs.IntVar(&opts.workers, "workers", -1, "parallel model fits (0 uses every CPU, default from config)")
	fs.Int64Var(&opts.seedEnd, "seed-end", 0, "last seed of the search grid (default from config)")
	fs.BoolVar(&opts.useDB, "db", false, "persist the run to Postgres")
	fs.BoolVar(&opts.publish, "publish", false, "publish segment events to Kafka")
	fs.BoolVar(&opts.schema, "schema", false, "print the JSON Schema of the summary document and exit")
	fs.IntVar(&opts.history, "history", 0, "list the N most recent stored runs and exit")
	fs.StringVar(&opts.configFile, "config", "", "config file (defaults to SEGMENT_CONFIG or config.yaml)")

	if err := fs.Parse(args); err != nil {
		return opts, errUsage
	}

	f, err := exporter.ParseFormat(format)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return opts, errUsage
	}
	opts.format = f

	if opts.in == "" && !opts.schema && opts.history <= 0 {
		fmt.Fprintln(stderr, "segment: -in is required")
		fs.Usage()
		return opts, errUsage
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	if opts.schema {
		return exporter.WriteSummarySchema(stdout)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	if opts.history > 0 {
		return printHistory(ctx, cfg, opts.history, stdout, logger)
	}

	out := opts.out
	if out == "" {
		paths, err := config.ResolvePaths(cfg.Paths)
		if err != nil {
			return err
		}
		out = paths.GetRunDir(time.Now().UTC().Format("20060102T150405"))
	}

	files := validation.NewFileValidator(logger)
	if err := files.ValidateExport(opts.in); err != nil {
		return err
	}
	if err := files.ValidateOutputDirectory(out); err != nil {
		return err
	}

	svc, closeFn, err := newService(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	rec, err := svc.Run(ctx, services.SegmentationRequest{
		SourceName: filepath.Base(opts.in),
		Path:       opts.in,
		OutputDir:  out,
	})
	if err != nil {
		return err
	}

	return printResult(stdout, rec)
}

// loadConfig applies the command line overrides on top of the loaded config
func loadConfig(opts options) (*config.Config, error) {
	path := opts.configFile
	if path == "" {
		path = config.ConfigFilePath()
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}

	if opts.workers >= 0 {
		cfg.Segmentation.Workers = opts.workers
	}
	if opts.seedEnd > 0 {
		cfg.Segmentation.SeedEnd = opts.seedEnd
	}
	if opts.useDB {
		cfg.Database.Enabled = true
	}
	if opts.publish {
		cfg.Kafka.Enabled = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// newService builds the segmentation service with the optional store and
// publisher. The returned func releases them.
func newService(ctx context.Context, cfg *config.Config, opts options, logger *slog.Logger) (*services.SegmentationService, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	segmenter := segmentation.NewSegmenter(segmentation.NewConfig(cfg.Segmentation), logger)
	svcOpts := []services.Option{
		services.WithOutputFormat(opts.format),
		services.WithTimeout(cfg.Server.OperationTimeout),
	}

	if cfg.Database.Enabled {
		st, err := store.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("open report store: %w", err)
		}
		closers = append(closers, st.Close)
		if err := st.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, nil, err
		}
		svcOpts = append(svcOpts, services.WithStore(st))
	}

	if cfg.Kafka.Enabled {
		pub, err := publisher.NewFromConfig(cfg.Kafka, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, func() {
			if err := pub.Close(); err != nil {
				logger.Warn("failed to close publisher", slog.String("error", err.Error()))
			}
		})
		svcOpts = append(svcOpts, services.WithPublisher(pub))
	}

	return services.NewSegmentationService(segmenter, nil, logger, svcOpts...), closeAll, nil
}

func printResult(w io.Writer, rec *services.RunRecord) error {
	report := rec.Report
	fmt.Fprintf(w, "best silhouette score: %.6f (seed %d, %s features)\n", report.Score, report.Seed, report.Space)
	fmt.Fprintf(w, "customers: %d in %d clusters\n", report.Customers, report.ClusterCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CLUSTER\tSIZE\tRECENCY\tTICKETS")
	for _, c := range report.Centers {
		recency, _ := c.Feature("Recency")
		tickets, _ := c.Feature("Ticket Count")
		fmt.Fprintf(tw, "%s\t%d\t%.3f\t%.3f\n", c.Label, c.Size, recency, tickets)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, f := range rec.Files {
		fmt.Fprintf(w, "wrote %s\n", f)
	}
	if rec.StoredID != "" {
		fmt.Fprintf(w, "stored as %s\n", rec.StoredID)
	}
	if rec.Published {
		fmt.Fprintln(w, "published segment events")
	}
	return nil
}

func printHistory(ctx context.Context, cfg *config.Config, limit int, w io.Writer, logger *slog.Logger) error {
	if cfg.Database.URL == "" {
		return errors.New("-history needs SEGMENT_DATABASE_URL or database.url")
	}
	st, err := store.Open(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("open report store: %w", err)
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tSCORE\tCUSTOMERS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%.6f\t%d\t%s\n", r.ID, r.SourceName, r.Score, r.Customers, r.CreatedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}
