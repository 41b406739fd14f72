package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentcli/internal/dataprocessing"
	"segmentcli/internal/exporter"
	"segmentcli/internal/shared/testutil"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
		check   func(t *testing.T, o options)
	}{
		{
			name: "defaults",
			args: []string{"-in", "x.csv"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, "x.csv", o.in)
				assert.Equal(t, exporter.FormatCSV, o.format)
				assert.Equal(t, -1, o.workers)
				assert.False(t, o.useDB)
			},
		},
		{
			name: "all flags",
			args: []string{"-in", "x.xlsx", "-out", "o", "-format", "BOTH", "-workers", "4", "-db", "-publish"},
			check: func(t *testing.T, o options) {
				assert.Equal(t, exporter.FormatBoth, o.format)
				assert.Equal(t, 4, o.workers)
				assert.True(t, o.useDB)
				assert.True(t, o.publish)
				assert.Equal(t, "o", o.out)
			},
		},
		{name: "schema needs no input", args: []string{"-schema"}},
		{name: "missing input", args: []string{}, wantErr: true},
		{name: "bad format", args: []string{"-in", "x.csv", "-format", "pdf"}, wantErr: true},
		{name: "unknown flag", args: []string{"-nope"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			o, err := parseFlags(tt.args, &stderr)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUsage)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, o)
			}
		})
	}
}

func TestRunSchema(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-schema"}, &stdout, &bytes.Buffer{}))

	var schema map[string]any
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &schema))
	assert.Equal(t, "Segmentation summary", schema["title"])
}

func TestRunSegmentsExport(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "tickets.csv")
	require.NoError(t, os.WriteFile(in, []byte(testutil.SegmentedExportCSV()), 0644))
	out := filepath.Join(dir, "out")

	var stdout bytes.Buffer
	err := run(context.Background(),
		[]string{"-in", in, "-out", out, "-format", "both", "-workers", "2", "-seed-end", "3"},
		&stdout, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Contains(t, stdout.String(), "best silhouette score")
	assert.Contains(t, stdout.String(), "customers: 25 in 5 clusters")
	for _, name := range []string{
		exporter.ClusteredFile, exporter.CentersFile, exporter.DownloadFile,
		exporter.WorkbookFile, exporter.SummaryFile,
	} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestRunMissingInput(t *testing.T) {
	err := run(context.Background(),
		[]string{"-in", filepath.Join(t.TempDir(), "missing.csv"), "-out", t.TempDir()},
		&bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunRejectsUnsupportedInput(t *testing.T) {
	in := filepath.Join(t.TempDir(), "tickets.pdf")
	require.NoError(t, os.WriteFile(in, []byte("%PDF"), 0644))

	err := run(context.Background(), []string{"-in", in, "-out", t.TempDir()}, &bytes.Buffer{}, &bytes.Buffer{})
	assert.ErrorIs(t, err, dataprocessing.ErrUnsupportedFormat)
}

func TestHistoryNeedsDatabaseURL(t *testing.T) {
	t.Setenv("SEGMENT_DATABASE_URL", "")
	err := run(context.Background(), []string{"-history", "5"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-history")
}
