// Package services implements the application layer between the HTTP API and
// the segmentation core.
//
// SegmentationService runs the pipeline for one export: load the tickets,
// select and label clusters, write the export files and optionally persist
// and publish the result. Progress is broadcast to WebSocket clients while
// the seed grid is evaluated. Finished runs are kept in a bounded in-memory
// RunStore; when a report store is configured, older runs are read back from
// it.
//
// HealthService reports liveness and the readiness of the data directory,
// the database and the WebSocket hub.
package services
