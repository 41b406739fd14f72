// Package http exposes the segmentation service over a chi router: uploads
// of ticket exports, run summaries, per-customer cluster assignments and
// annotated downloads in csv or xlsx. Errors are answered as RFC 7807
// problem documents.
package http
