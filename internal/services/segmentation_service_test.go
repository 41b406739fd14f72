package services

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"segmentcli/internal/config"
	"segmentcli/internal/dataprocessing"
	"segmentcli/internal/exporter"
	"segmentcli/internal/segmentation"
	"segmentcli/internal/shared/testutil"
	ws "segmentcli/internal/websocket"
	"segmentcli/pkg/contracts/domain"
)

func testSegmenter(t *testing.T) *segmentation.Segmenter {
	t.Helper()
	logger, _ := testutil.NewLogCapture()
	cfg := segmentation.DefaultConfig()
	cfg.SeedEnd = 3
	cfg.NInit = 3
	cfg.Workers = 2
	return segmentation.NewSegmenter(cfg, logger)
}

func csvRequest() SegmentationRequest {
	return SegmentationRequest{SourceName: "tickets.csv", Reader: strings.NewReader(testutil.SegmentedExportCSV())}
}

func TestSegmentationServiceRun(t *testing.T) {
	base := t.TempDir()
	paths := config.NewPaths(base, config.PathsConfig{DataDir: "data", ReportsDir: "reports", LogsDir: "logs"})

	hub := &MockWebSocketHub{}
	hub.On("Broadcast", mock.Anything, mock.Anything).Return()

	logger, capture := testutil.NewLogCapture()
	svc := NewSegmentationService(testSegmenter(t), NewRunStore(10), logger,
		WithHub(hub),
		WithPaths(paths),
		WithOutputFormat(exporter.FormatBoth),
	)

	rec, err := svc.Run(context.Background(), csvRequest())
	require.NoError(t, err)

	assert.Equal(t, "tickets.csv", rec.Report.SourceName)
	assert.Equal(t, 25, rec.Report.Customers)
	assert.Len(t, rec.Report.Centers, 5)
	assert.Len(t, rec.Download.Rows, 51)
	assert.Equal(t, paths.GetRunDir(rec.ID), rec.OutputDir)
	assert.Len(t, rec.Files, 5)
	for _, f := range rec.Files {
		assert.FileExists(t, f)
	}

	uploads, err := os.ReadDir(paths.DataDir)
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.True(t, strings.HasSuffix(uploads[0].Name(), "_tickets.csv"))

	types := hub.types()
	require.NotEmpty(t, types)
	assert.Equal(t, ws.TypeSegmentationProgress, types[0])
	assert.Equal(t, ws.TypeSegmentationComplete, types[len(types)-1])
	// whole-percent throttling: at most 101 progress messages
	assert.LessOrEqual(t, len(types), 102)

	got, err := svc.GetRun(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Same(t, rec, got)
	assert.Len(t, svc.ListRuns(), 1)

	_, ok := capture.Find("segmentation run recorded")
	assert.True(t, ok)
}

func TestSegmentationServiceFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.xlsx")
	data, err := testutil.SegmentedExportXLSX()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))

	out := filepath.Join(dir, "out")
	svc := NewSegmentationService(testSegmenter(t), nil, nil)
	rec, err := svc.Run(context.Background(), SegmentationRequest{SourceName: "export.xlsx", Path: path, OutputDir: out})
	require.NoError(t, err)

	assert.Equal(t, out, rec.OutputDir)
	assert.FileExists(t, filepath.Join(out, exporter.ClusteredFile))
	assert.FileExists(t, filepath.Join(out, exporter.SummaryFile))
}

func TestSegmentationServicePersistsAndPublishes(t *testing.T) {
	store := &MockReportStore{}
	store.On("SaveReport", mock.Anything, mock.MatchedBy(func(r domain.SegmentReport) bool {
		return r.SourceName == "tickets.csv" && len(r.Clustered) == 25
	})).Return("stored-1", nil)

	pub := &MockPublisher{}
	pub.On("PublishReport", mock.Anything, mock.Anything).Return(nil)

	svc := NewSegmentationService(testSegmenter(t), nil, nil, WithStore(store), WithPublisher(pub))
	req := csvRequest()
	req.SkipExport = true

	rec, err := svc.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "stored-1", rec.StoredID)
	assert.True(t, rec.Published)
	assert.Empty(t, rec.Files)

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestSegmentationServiceFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("store failure", func(t *testing.T) {
		store := &MockReportStore{}
		store.On("SaveReport", mock.Anything, mock.Anything).Return("", boom)
		pub := &MockPublisher{}

		svc := NewSegmentationService(testSegmenter(t), nil, nil, WithStore(store), WithPublisher(pub))
		_, err := svc.Run(context.Background(), csvRequest())
		assert.ErrorIs(t, err, ErrPersistence)
		assert.ErrorIs(t, err, boom)
		pub.AssertNotCalled(t, "PublishReport", mock.Anything, mock.Anything)
		assert.Empty(t, svc.ListRuns())
	})

	t.Run("publish failure", func(t *testing.T) {
		pub := &MockPublisher{}
		pub.On("PublishReport", mock.Anything, mock.Anything).Return(boom)

		svc := NewSegmentationService(testSegmenter(t), nil, nil, WithPublisher(pub))
		_, err := svc.Run(context.Background(), csvRequest())
		assert.ErrorIs(t, err, ErrPublish)
	})

	t.Run("missing columns broadcast an error", func(t *testing.T) {
		hub := &MockWebSocketHub{}
		hub.On("Broadcast", ws.TypeSegmentationError, mock.Anything).Return()

		svc := NewSegmentationService(testSegmenter(t), nil, nil, WithHub(hub))
		_, err := svc.Run(context.Background(), SegmentationRequest{
			SourceName: "bad.csv",
			Reader:     strings.NewReader("Client code,Brand\nA,B\n"),
		})
		var missing *dataprocessing.MissingColumnsError
		assert.ErrorAs(t, err, &missing)
		assert.True(t, IsInputError(err))
		hub.AssertExpectations(t)
	})

	t.Run("invalid request", func(t *testing.T) {
		svc := NewSegmentationService(testSegmenter(t), nil, nil)
		_, err := svc.Run(context.Background(), SegmentationRequest{})
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.True(t, IsInputError(err))
	})

	t.Run("too few customers", func(t *testing.T) {
		rows := testutil.SegmentedExportRows()[:5]
		var b strings.Builder
		for _, r := range rows {
			b.WriteString(strings.Join(r, ",") + "\n")
		}
		svc := NewSegmentationService(testSegmenter(t), nil, nil)
		_, err := svc.Run(context.Background(), SegmentationRequest{SourceName: "small.csv", Reader: strings.NewReader(b.String())})
		assert.ErrorIs(t, err, segmentation.ErrTooFewSamples)
		assert.True(t, IsInputError(err))
	})
}

func TestSegmentationServiceGetRunFallsBackToStore(t *testing.T) {
	store := &MockReportStore{}
	store.On("GetRun", mock.Anything, "db-run").Return(&domain.SegmentReport{RunID: "db-run", SourceName: "old.csv"}, nil)
	store.On("GetRun", mock.Anything, "nope").Return(nil, errors.New("not found"))

	svc := NewSegmentationService(testSegmenter(t), nil, nil, WithStore(store))

	rec, err := svc.GetRun(context.Background(), "db-run")
	require.NoError(t, err)
	assert.Equal(t, "old.csv", rec.SourceName)

	err = svc.WriteDownload(context.Background(), "db-run", exporter.FormatCSV, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrDownloadUnavailable)

	_, err = svc.GetRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestWriteDownload(t *testing.T) {
	svc := NewSegmentationService(testSegmenter(t), nil, nil)
	req := csvRequest()
	req.SkipExport = true
	rec, err := svc.Run(context.Background(), req)
	require.NoError(t, err)

	var csvOut bytes.Buffer
	require.NoError(t, svc.WriteDownload(context.Background(), rec.ID, exporter.FormatCSV, &csvOut))
	lines := strings.Split(strings.TrimSpace(strings.TrimPrefix(csvOut.String(), "\ufeff")), "\n")
	assert.Len(t, lines, 52)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(lines[0]), domain.ExportLabelColumn))

	var xlsxOut bytes.Buffer
	require.NoError(t, svc.WriteDownload(context.Background(), rec.ID, exporter.FormatXLSX, &xlsxOut))
	f, err := excelize.OpenReader(&xlsxOut)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{exporter.SheetClusters, exporter.SheetCenters, exporter.SheetDownload}, f.GetSheetList())

	err = svc.WriteDownload(context.Background(), rec.ID, exporter.FormatBoth, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	err = svc.WriteDownload(context.Background(), "missing", exporter.FormatCSV, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrRunNotFound)
}
