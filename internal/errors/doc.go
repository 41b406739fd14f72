// Package errors maps application errors to RFC 7807 problem responses.
//
// ErrorHandler recognises context cancellation, APIError values, oversized
// request bodies and the load and segmentation errors of the core packages.
// Anything else is reported as an internal error without leaking its text.
package errors
