package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"segmentcli/pkg/contracts/domain"
)

// File names written for every run
const (
	ClusteredFile = "clustered.csv"
	CentersFile   = "centers.csv"
	DownloadFile  = "download.csv"
	WorkbookFile  = "segmentation.xlsx"
	SummaryFile   = "summary.json"
)

// Run is everything written for one segmentation run
type Run struct {
	Report   domain.SegmentReport
	Download domain.ExportTable
}

// Sheets returns the workbook sheets of the run
func (r Run) Sheets() []Sheet {
	return []Sheet{
		{Name: SheetClusters, Table: ClusteredTable(r.Report.Clustered)},
		{Name: SheetCenters, Table: CentersTable(r.Report.Centers)},
		{Name: SheetDownload, Table: r.Download},
	}
}

// Exporter writes run outputs into a directory
type Exporter struct {
	csv    *CSVWriter
	logger *slog.Logger
}

// NewExporter creates an exporter
func NewExporter(logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "exporter"))
	return &Exporter{csv: NewCSVWriter(nil, logger), logger: logger}
}

// WriteRun writes the clustered, centers and download tables in the requested
// format plus the JSON summary into dir, and returns the written paths.
func (e *Exporter) WriteRun(ctx context.Context, dir string, run Run, format Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string

	if format.includesCSV() {
		for _, sheet := range []struct {
			file  string
			table domain.ExportTable
		}{
			{ClusteredFile, ClusteredTable(run.Report.Clustered)},
			{CentersFile, CentersTable(run.Report.Centers)},
			{DownloadFile, run.Download},
		} {
			path := filepath.Join(dir, sheet.file)
			if err := e.csv.WriteTable(path, sheet.table); err != nil {
				return written, fmt.Errorf("write %s: %w", sheet.file, err)
			}
			written = append(written, path)
		}
	}

	if format.includesXLSX() {
		path := filepath.Join(dir, WorkbookFile)
		if err := writeFile(path, func(f *os.File) error { return WriteWorkbook(f, run.Sheets()) }); err != nil {
			return written, fmt.Errorf("write %s: %w", WorkbookFile, err)
		}
		written = append(written, path)
	}

	path := filepath.Join(dir, SummaryFile)
	if err := writeFile(path, func(f *os.File) error { return WriteSummary(f, NewSummary(run.Report)) }); err != nil {
		return written, fmt.Errorf("write %s: %w", SummaryFile, err)
	}
	written = append(written, path)

	e.logger.InfoContext(ctx, "exported segmentation run",
		slog.String("run_id", run.Report.RunID),
		slog.String("dir", dir),
		slog.Int("files", len(written)))

	return written, nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
