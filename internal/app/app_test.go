package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentcli/internal/config"
	"segmentcli/internal/shared/testutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.ReportsDir = filepath.Join(dir, "reports")
	cfg.Paths.LogsDir = filepath.Join(dir, "logs")
	cfg.Telemetry.EnableMetrics = true
	cfg.Telemetry.EnableTracing = true
	cfg.Telemetry.TraceToConsole = false
	cfg.Database.Enabled = false
	cfg.Kafka.Enabled = false
	return cfg
}

func TestNewApplication(t *testing.T) {
	logger, _ := testutil.NewLogCapture()
	cfg := testConfig(t)

	a, err := NewApplication(context.Background(), cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Stop(context.Background()) })

	assert.DirExists(t, cfg.Paths.DataDir)
	assert.DirExists(t, cfg.Paths.ReportsDir)
	assert.Nil(t, a.Services.Store)
	assert.Nil(t, a.Services.Publisher)
	assert.NotNil(t, a.Services.Segmentation)
	assert.Equal(t, ":0", a.Server.Addr)

	tests := []struct {
		path string
		want int
	}{
		{config.HealthEndpoint, http.StatusOK},
		{config.ReadyEndpoint, http.StatusOK},
		{config.MetricsEndpoint, http.StatusOK},
		{config.SegmentationsEndpoint, http.StatusOK},
		{config.SegmentationsEndpoint + "/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestNewApplicationDatabaseUnavailable(t *testing.T) {
	logger, _ := testutil.NewLogCapture()
	cfg := testConfig(t)
	cfg.Database.Enabled = true
	cfg.Database.URL = "not a url ::"

	_, err := NewApplication(context.Background(), cfg, logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report store")
}

func TestStopWithoutStart(t *testing.T) {
	logger, _ := testutil.NewLogCapture()
	a, err := NewApplication(context.Background(), testConfig(t), logger)
	require.NoError(t, err)

	assert.NoError(t, a.Stop(context.Background()))
	assert.Equal(t, 0, a.Services.WebSocket.ClientCount())
}

func TestGenerateBuildID(t *testing.T) {
	id := generateBuildID()
	assert.Len(t, id, 12)
	assert.Equal(t, id, generateBuildID())
}
