package segmentation

import (
	"segmentcli/pkg/contracts/domain"
)

// Assignments zips the attribute identifiers with the winning labels
func Assignments(attrs []domain.CustomerAttributes, labels []int) []domain.ClusterAssignment {
	out := make([]domain.ClusterAssignment, 0, len(attrs))
	for i, a := range attrs {
		if i >= len(labels) {
			break
		}
		out = append(out, domain.ClusterAssignment{ClientCode: a.ClientCode, Cluster: labels[i]})
	}
	return out
}

type companyMetadata struct {
	CompanyName  string
	GroupCompany string
	Brand        string
}

// LabelClusters left-joins the assignments and the display metadata of the
// given records onto the attribute table and drops duplicate rows. Rows whose
// cluster lies in [0, k) are labelled "Cluster {id}".
func LabelClusters(attrs []domain.CustomerAttributes, assignments []domain.ClusterAssignment, metadata []domain.TicketRecord, k int) []domain.ClusteredCustomer {
	clusterOf := make(map[string]int, len(assignments))
	for _, a := range assignments {
		if _, ok := clusterOf[a.ClientCode]; !ok {
			clusterOf[a.ClientCode] = a.Cluster
		}
	}

	companies := make(map[string][]companyMetadata)
	seen := make(map[string]map[companyMetadata]bool)
	for _, rec := range metadata {
		meta := companyMetadata{CompanyName: rec.CompanyName, GroupCompany: rec.GroupCompany, Brand: rec.Brand}
		if seen[rec.ClientCode] == nil {
			seen[rec.ClientCode] = make(map[companyMetadata]bool)
		}
		if seen[rec.ClientCode][meta] {
			continue
		}
		seen[rec.ClientCode][meta] = true
		companies[rec.ClientCode] = append(companies[rec.ClientCode], meta)
	}

	out := make([]domain.ClusteredCustomer, 0, len(attrs))
	emitted := make(map[domain.CustomerAttributes]bool, len(attrs))
	for _, a := range attrs {
		// exact duplicate attribute rows carry the same metadata and cluster
		if emitted[a] {
			continue
		}
		emitted[a] = true

		var cluster *int
		if c, ok := clusterOf[a.ClientCode]; ok {
			cluster = &c
		}

		label := ""
		if cluster != nil && *cluster >= 0 && *cluster < k {
			label = domain.ClusterLabel(*cluster)
		}

		metas := companies[a.ClientCode]
		if len(metas) == 0 {
			metas = []companyMetadata{{}}
		}
		for _, m := range metas {
			out = append(out, domain.ClusteredCustomer{
				CustomerAttributes: a,
				Cluster:            cluster,
				CompanyName:        m.CompanyName,
				GroupCompany:       m.GroupCompany,
				Brand:              m.Brand,
				Label:              label,
			})
		}
	}
	return out
}

// BuildClusterCenters returns one row per centroid of the winning model. Row i
// describes cluster i: its centroid, the number of assignments equal to i and
// the label "Cluster i".
func BuildClusterCenters(sel Selection, assignments []domain.ClusterAssignment) []domain.ClusterCenter {
	if sel.Model == nil {
		return nil
	}

	k := len(sel.Model.Centers)
	sizes := make([]int, k)
	for _, a := range assignments {
		if a.Cluster >= 0 && a.Cluster < k {
			sizes[a.Cluster]++
		}
	}

	centers := make([]domain.ClusterCenter, k)
	for i, c := range sel.Model.Centers {
		centers[i] = domain.ClusterCenter{
			Cluster:  i,
			Centroid: clone(c),
			Size:     sizes[i],
			Label:    domain.ClusterLabel(i),
			Space:    sel.Space,
		}
	}
	return centers
}
