package domain

import (
	"fmt"
	"time"
)

// FeatureNames is the fixed column order of the clustering feature space
var FeatureNames = []string{
	"Recency",
	"Ticket Count",
	"AMS",
	"CMS",
	"Customer interactions",
	"Agent interactions",
}

// FeatureSpace identifies which matrix a model was fit on
type FeatureSpace string

const (
	FeatureSpaceRaw          FeatureSpace = "raw"
	FeatureSpaceStandardized FeatureSpace = "standardized"
)

// CustomerAttributes is the per-customer behavioral profile
type CustomerAttributes struct {
	ClientCode           string  `json:"client_code"`
	Recency              int     `json:"recency"`
	TicketCount          int     `json:"ticket_count"`
	AMS                  bool    `json:"ams"`
	CMS                  bool    `json:"cms"`
	CustomerInteractions float64 `json:"customer_interactions"`
	AgentInteractions    float64 `json:"agent_interactions"`
}

// Features returns the attribute row as a feature vector in FeatureNames order
func (a CustomerAttributes) Features() []float64 {
	return []float64{
		float64(a.Recency),
		float64(a.TicketCount),
		boolToFloat(a.AMS),
		boolToFloat(a.CMS),
		a.CustomerInteractions,
		a.AgentInteractions,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// ClusterAssignment maps a customer to a cluster id
type ClusterAssignment struct {
	ClientCode string `json:"client_code"`
	Cluster    int    `json:"cluster"`
}

// ClusterLabel returns the display label of a cluster id
func ClusterLabel(id int) string {
	return fmt.Sprintf("Cluster %d", id)
}

// ClusteredCustomer is an attribute row annotated with its segment and display metadata
type ClusteredCustomer struct {
	CustomerAttributes
	Cluster      *int   `json:"cluster"`
	CompanyName  string `json:"company_name,omitempty"`
	GroupCompany string `json:"group_company,omitempty"`
	Brand        string `json:"brand,omitempty"`
	Label        string `json:"ranking,omitempty"`
}

// ClusterCenter is one centroid of the winning model
type ClusterCenter struct {
	Cluster  int          `json:"cluster"`
	Centroid []float64    `json:"centroid"`
	Size     int          `json:"cluster_size"`
	Label    string       `json:"label"`
	Space    FeatureSpace `json:"space"`
}

// Feature returns the centroid coordinate of a named feature
func (c ClusterCenter) Feature(name string) (float64, bool) {
	for i, n := range FeatureNames {
		if n == name && i < len(c.Centroid) {
			return c.Centroid[i], true
		}
	}
	return 0, false
}

// SegmentReport is the result of one segmentation run
type SegmentReport struct {
	RunID        string              `json:"run_id"`
	SourceName   string              `json:"source_name,omitempty"`
	Score        float64             `json:"score"`
	Seed         int64               `json:"seed"`
	Space        FeatureSpace        `json:"space"`
	ClusterCount int                 `json:"cluster_count"`
	Customers    int                 `json:"customers"`
	Centers      []ClusterCenter     `json:"centers"`
	Clustered    []ClusteredCustomer `json:"clustered,omitempty"`
	StartedAt    time.Time           `json:"started_at"`
	Duration     time.Duration       `json:"duration"`
}

// ExportTable is the annotated raw dataset offered for download
type ExportTable struct {
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
}

// ExportLabelColumn is the column appended to the raw export
const ExportLabelColumn = "Ranking"
