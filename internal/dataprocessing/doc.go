// Package dataprocessing ingests ticketing-system exports. It reads CSV files
// and Excel workbooks into a domain.TicketTable, checks that every column the
// segmentation needs is present, and converts the typed cells (closed time,
// interaction counts and the TRG/AMS/CMS flags) while keeping every raw cell
// for the annotated download.
//
// # Usage
//
//	loader := dataprocessing.NewLoader(logger)
//	table, err := loader.LoadFile(ctx, "tickets.xlsx")
//	if err != nil {
//	    var missing *dataprocessing.MissingColumnsError
//	    if errors.As(err, &missing) {
//	        // report missing.Columns to the user
//	    }
//	}
//
// # Formats
//
// The format is chosen by file extension only: .csv, .xlsx and .xlsm are
// accepted and everything else fails with ErrUnsupportedFormat. A UTF-8 byte
// order mark at the start of a CSV file is ignored. In workbooks the first
// sheet whose leading rows contain the required header is used.
//
// # Cell conversion
//
// Closed times accept RFC 3339, ISO dates with or without a time, US and
// day-first dates and Excel serial numbers. Blank interaction counts are zero.
// Blank flags stay unknown so that the AMS/CMS aggregation can skip them.
package dataprocessing
