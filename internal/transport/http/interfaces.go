package http

import (
	"context"
	"io"

	"segmentcli/internal/exporter"
	"segmentcli/internal/services"
	"segmentcli/pkg/contracts"
)

// SegmentationServiceInterface is the part of the segmentation service the
// API depends on
type SegmentationServiceInterface interface {
	Run(ctx context.Context, req services.SegmentationRequest) (*services.RunRecord, error)
	GetRun(ctx context.Context, id string) (*services.RunRecord, error)
	ListRuns() []*services.RunRecord
	WriteDownload(ctx context.Context, id string, format exporter.Format, out io.Writer) error
}

// HealthServiceInterface is implemented by services.HealthService
type HealthServiceInterface interface {
	LivenessCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	Version() contracts.VersionInfo
}
