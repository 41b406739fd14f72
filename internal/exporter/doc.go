// Package exporter writes the results of a segmentation run.
//
// The clustered customer table, the cluster center table and the annotated
// download table can be written as CSV (with a UTF-8 byte order mark for
// Excel), as sheets of one .xlsx workbook, or both. Every run also gets a JSON
// summary whose JSON Schema is available from SummarySchema.
//
// Example usage:
//
//	exp := exporter.NewExporter(logger)
//	files, err := exp.WriteRun(ctx, "out", exporter.Run{
//	    Report:   result.Report,
//	    Download: result.Export(),
//	}, exporter.FormatBoth)
package exporter
