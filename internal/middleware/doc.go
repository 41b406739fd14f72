// Package middleware holds the HTTP middleware of the segmentation API:
// request IDs, rate limiting, CORS, security headers, body limits, request
// validation and OpenTelemetry instrumentation.
package middleware
