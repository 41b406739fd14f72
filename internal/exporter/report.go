package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/invopop/jsonschema"

	"segmentcli/pkg/contracts"
	"segmentcli/pkg/contracts/domain"
)

// Summary is the JSON document describing a finished run
type Summary struct {
	FormatVersion string          `json:"format_version" jsonschema:"required,description=Version of this document layout"`
	RunID         string          `json:"run_id" jsonschema:"required,description=Identifier of the segmentation run"`
	SourceName    string          `json:"source_name,omitempty" jsonschema:"description=Name of the uploaded export"`
	Score         float64         `json:"score" jsonschema:"required,minimum=-1,maximum=1,description=Mean silhouette coefficient of the winning clustering"`
	Seed          int64           `json:"seed" jsonschema:"required,description=Random seed of the winning k-means fit"`
	Space         string          `json:"space" jsonschema:"required,enum=raw,enum=standardized"`
	ClusterCount  int             `json:"cluster_count" jsonschema:"required,minimum=2"`
	Customers     int             `json:"customers" jsonschema:"required,minimum=0"`
	StartedAt     time.Time       `json:"started_at" jsonschema:"required"`
	DurationMS    int64           `json:"duration_ms" jsonschema:"required,minimum=0"`
	Centers       []CenterSummary `json:"centers" jsonschema:"required"`
}

// CenterSummary is one cluster center with named feature coordinates
type CenterSummary struct {
	Label    string             `json:"label" jsonschema:"required"`
	Cluster  int                `json:"cluster" jsonschema:"required,minimum=0"`
	Size     int                `json:"cluster_size" jsonschema:"required,minimum=0"`
	Features map[string]float64 `json:"features" jsonschema:"required"`
}

// NewSummary builds the summary document of a report
func NewSummary(report domain.SegmentReport) Summary {
	centers := make([]CenterSummary, 0, len(report.Centers))
	for _, c := range report.Centers {
		features := make(map[string]float64, len(domain.FeatureNames))
		for _, name := range domain.FeatureNames {
			if v, ok := c.Feature(name); ok {
				features[name] = v
			}
		}
		centers = append(centers, CenterSummary{
			Label:    c.Label,
			Cluster:  c.Cluster,
			Size:     c.Size,
			Features: features,
		})
	}

	return Summary{
		FormatVersion: contracts.SummaryFormatVersion,
		RunID:         report.RunID,
		SourceName:    report.SourceName,
		Score:         report.Score,
		Seed:          report.Seed,
		Space:         string(report.Space),
		ClusterCount:  report.ClusterCount,
		Customers:     report.Customers,
		StartedAt:     report.StartedAt,
		DurationMS:    report.Duration.Milliseconds(),
		Centers:       centers,
	}
}

// WriteSummary writes the summary as indented JSON
func WriteSummary(out io.Writer, summary Summary) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	return nil
}

// SummarySchema returns the JSON Schema of the summary document
func SummarySchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Summary{})
	schema.Title = "Segmentation summary"
	return schema
}

// WriteSummarySchema writes the indented JSON Schema of the summary document
func WriteSummarySchema(out io.Writer) error {
	b, err := json.MarshalIndent(SummarySchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	_, err = out.Write(append(b, '\n'))
	return err
}
