package services

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"segmentcli/pkg/contracts/domain"
)

// MockWebSocketHub is a mock for WebSocketHub interface
type MockWebSocketHub struct {
	mock.Mock
	mu       sync.Mutex
	messages []string
}

func (m *MockWebSocketHub) Broadcast(messageType string, data any) {
	m.mu.Lock()
	m.messages = append(m.messages, messageType)
	m.mu.Unlock()
	m.Called(messageType, data)
}

func (m *MockWebSocketHub) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.messages...)
}

// MockReportStore is a mock for ReportStore interface
type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) SaveReport(ctx context.Context, report domain.SegmentReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) GetRun(ctx context.Context, id string) (*domain.SegmentReport, error) {
	args := m.Called(ctx, id)
	report, _ := args.Get(0).(*domain.SegmentReport)
	return report, args.Error(1)
}

// MockPublisher is a mock for ReportPublisher interface
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishReport(ctx context.Context, report domain.SegmentReport) error {
	return m.Called(ctx, report).Error(0)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticCounter int

func (c staticCounter) ClientCount() int { return int(c) }
