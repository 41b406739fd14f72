package exporter

import (
	"segmentcli/pkg/contracts/domain"
)

// Column names of the derived tables
const (
	ColumnCluster     = "Cluster"
	ColumnClusterSize = "Cluster Size"
)

// ClusteredHeader is the header of the per-customer cluster table
var ClusteredHeader = append(append([]string{domain.ColumnClientCode}, domain.FeatureNames...),
	ColumnCluster,
	domain.ColumnCompanyName,
	domain.ColumnGroupCompany,
	domain.ColumnBrand,
	domain.ExportLabelColumn,
)

// CentersHeader is the header of the cluster center table
var CentersHeader = append(append([]string(nil), domain.FeatureNames...),
	ColumnClusterSize,
	ColumnCluster,
)

// ClusteredTable renders the labelled attribute rows
func ClusteredTable(clustered []domain.ClusteredCustomer) domain.ExportTable {
	rows := make([][]string, 0, len(clustered))
	for _, c := range clustered {
		rows = append(rows, []string{
			c.ClientCode,
			formatInt(c.Recency),
			formatInt(c.TicketCount),
			formatBool(c.AMS),
			formatBool(c.CMS),
			formatFloat(c.CustomerInteractions),
			formatFloat(c.AgentInteractions),
			formatCluster(c.Cluster),
			c.CompanyName,
			c.GroupCompany,
			c.Brand,
			c.Label,
		})
	}
	return domain.ExportTable{Header: ClusteredHeader, Rows: rows}
}

// CentersTable renders one row per centroid followed by its size and label
func CentersTable(centers []domain.ClusterCenter) domain.ExportTable {
	rows := make([][]string, 0, len(centers))
	for _, c := range centers {
		row := make([]string, 0, len(CentersHeader))
		for i := range domain.FeatureNames {
			v := 0.0
			if i < len(c.Centroid) {
				v = c.Centroid[i]
			}
			row = append(row, formatFloat(v))
		}
		row = append(row, formatInt(c.Size), c.Label)
		rows = append(rows, row)
	}
	return domain.ExportTable{Header: CentersHeader, Rows: rows}
}
