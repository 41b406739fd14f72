package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"segmentcli/internal/config"
	"segmentcli/pkg/contracts"
	"segmentcli/pkg/contracts/domain"
)

// Event types carried in the "event" header and payload
const (
	EventSegmentAssigned       = "segment.assigned"
	EventSegmentationCompleted = "segmentation.completed"
)

// batchSize bounds the number of messages handed to the writer per call
const batchSize = 500

// ErrDisabled is returned by NewFromConfig when publishing is turned off
var ErrDisabled = errors.New("kafka publishing disabled")

// MessageWriter is the subset of *kafka.Writer the publisher uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// SegmentAssigned is published once per clustered customer
type SegmentAssigned struct {
	Event        string    `json:"event"`
	RunID        string    `json:"run_id"`
	ClientCode   string    `json:"client_code"`
	Cluster      *int      `json:"cluster"`
	Label        string    `json:"label,omitempty"`
	CompanyName  string    `json:"company_name,omitempty"`
	GroupCompany string    `json:"group_company,omitempty"`
	Brand        string    `json:"brand,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// SegmentationCompleted summarizes a finished run
type SegmentationCompleted struct {
	Event        string         `json:"event"`
	RunID        string         `json:"run_id"`
	SourceName   string         `json:"source_name,omitempty"`
	Score        float64        `json:"score"`
	Seed         int64          `json:"seed"`
	Space        string         `json:"space"`
	ClusterCount int            `json:"cluster_count"`
	Customers    int            `json:"customers"`
	ClusterSizes map[string]int `json:"cluster_sizes"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Publisher sends segmentation results to Kafka
type Publisher struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// New creates a publisher around an existing writer
func New(writer MessageWriter, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		writer: writer,
		logger: logger.With(slog.String("component", "publisher")),
		now:    time.Now,
	}
}

// NewFromConfig builds a kafka-go writer from cfg
func NewFromConfig(cfg config.KafkaConfig, logger *slog.Logger) (*Publisher, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireAll,
	}
	if cfg.ClientID != "" {
		w.Transport = &kafka.Transport{ClientID: cfg.ClientID}
	}
	return New(w, logger), nil
}

// PublishReport sends one segment.assigned message per clustered customer
// keyed by client code, followed by a segmentation.completed message keyed
// by run id.
func (p *Publisher) PublishReport(ctx context.Context, report domain.SegmentReport) error {
	now := p.now().UTC()

	msgs := make([]kafka.Message, 0, len(report.Clustered)+1)
	for _, c := range report.Clustered {
		msg, err := newMessage(c.ClientCode, EventSegmentAssigned, SegmentAssigned{
			Event:        EventSegmentAssigned,
			RunID:        report.RunID,
			ClientCode:   c.ClientCode,
			Cluster:      c.Cluster,
			Label:        c.Label,
			CompanyName:  c.CompanyName,
			GroupCompany: c.GroupCompany,
			Brand:        c.Brand,
			OccurredAt:   now,
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	completed, err := newMessage(report.RunID, EventSegmentationCompleted, completedEvent(report, now))
	if err != nil {
		return err
	}
	msgs = append(msgs, completed)

	for start := 0; start < len(msgs); start += batchSize {
		end := min(start+batchSize, len(msgs))
		if err := p.writer.WriteMessages(ctx, msgs[start:end]...); err != nil {
			return fmt.Errorf("write kafka messages: %w", err)
		}
	}

	p.logger.InfoContext(ctx, "published segmentation run",
		slog.String("run_id", report.RunID),
		slog.Int("messages", len(msgs)))
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

func completedEvent(report domain.SegmentReport, now time.Time) SegmentationCompleted {
	sizes := make(map[string]int, len(report.Centers))
	for _, c := range report.Centers {
		sizes[c.Label] = c.Size
	}
	return SegmentationCompleted{
		Event:        EventSegmentationCompleted,
		RunID:        report.RunID,
		SourceName:   report.SourceName,
		Score:        report.Score,
		Seed:         report.Seed,
		Space:        string(report.Space),
		ClusterCount: report.ClusterCount,
		Customers:    report.Customers,
		ClusterSizes: sizes,
		OccurredAt:   now,
	}
}

func newMessage(key, event string, payload any) (kafka.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", event, err)
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event)},
			{Key: "schema_version", Value: []byte(contracts.EventFormatVersion)},
		},
	}, nil
}
