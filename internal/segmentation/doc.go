// Package segmentation clusters support-ticket customers into behavioral segments.
//
// The package turns a loaded ticket export into a segmentation report:
//
//  1. Identifier resolution: brand and group-company codes override the client code
//  2. Attribute building: recency, ticket volume, interaction sums and AMS/CMS availability
//  3. Feature preparation: a raw and a standardized six-column feature matrix
//  4. Cluster selection: k-means fits over a fixed seed range on both matrices,
//     keeping the configuration with the highest silhouette score
//  5. Labeling: cluster assignments, display metadata and cluster centers
//  6. Export: the cluster label joined back onto every raw ticket row
//
// # Architecture
//
//   - identifiers.go: client code resolution and customer filtering
//   - attributes.go: per-customer sub-tables and their inner join
//   - features.go: feature matrix and standard scaling
//   - kmeans.go: k-means++ initialisation and Lloyd iterations
//   - silhouette.go: silhouette validity score
//   - selector.go: the seed/feature-space search and its reduction
//   - labeler.go: cluster labels, metadata join and cluster centers
//   - export.go: download table assembly
//   - segmenter.go: orchestration with logging, tracing and metrics
//
// # Usage Example
//
//	table, err := dataprocessing.LoadFile(ctx, "tickets.xlsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	segmenter := segmentation.NewSegmenter(segmentation.DefaultConfig(), slog.Default())
//	result, err := segmenter.Run(ctx, table)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	download := segmentation.MergeExport(result.Resolved, result.Clustered)
//
// Customers missing from any attribute sub-table are dropped by the inner join.
// Cluster ids are not stable across runs with different inputs.
package segmentation
