package segmentation

import (
	"strings"

	"segmentcli/pkg/contracts/domain"
)

// MergeExport joins the cluster label of every clustered customer onto the raw
// rows of the (identifier-resolved) table and drops duplicate rows. Rows of
// customers that were not clustered keep an empty label.
func MergeExport(table *domain.TicketTable, clustered []domain.ClusteredCustomer) domain.ExportTable {
	labels := make(map[string]string, len(clustered))
	for _, c := range clustered {
		if _, ok := labels[c.ClientCode]; !ok {
			labels[c.ClientCode] = c.Label
		}
	}

	header := append(append([]string(nil), table.Header...), domain.ExportLabelColumn)
	export := domain.ExportTable{Header: header, Rows: make([][]string, 0, len(table.Records))}

	seen := make(map[string]bool, len(table.Records))
	for _, rec := range table.Records {
		row := make([]string, len(table.Header)+1)
		copy(row, rec.Values)
		row[len(row)-1] = labels[rec.ClientCode]

		key := strings.Join(row, "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		export.Rows = append(export.Rows, row)
	}
	return export
}
