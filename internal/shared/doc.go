// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides generated ticket exports and an in-memory
// slog handler for asserting on log output.
package shared
