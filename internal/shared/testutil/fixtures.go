package testutil

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExportHeader is the column order of generated ticket exports
var ExportHeader = []string{
	"Client code", "Group Company", "Brand", "TRG Customer", "Closed time",
	"Customer interactions", "Agent interactions", "AMS", "CMS", "Company Name",
}

// ExportReference is the latest closure time in generated exports
var ExportReference = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// SegmentedExportRows returns a ticket export with five recency groups of five
// customers, two tickets each, plus two identical non-TRG rows for "ZZ".
// Five clusters separate cleanly on this data.
func SegmentedExportRows() [][]string {
	rows := [][]string{ExportHeader}
	add := func(code, trg string, daysAgo int) {
		closed := ExportReference.AddDate(0, 0, -daysAgo).Format("2006-01-02 15:04:05")
		rows = append(rows, []string{code, "Group " + code[:1], "Brand", trg, closed, "2", "3", "True", "True", code + " Ltd"})
	}

	for g := 0; g < 5; g++ {
		for i := 0; i < 5; i++ {
			code := fmt.Sprintf("%c%d", 'A'+g, i)
			days := g*100 + i
			add(code, "True", days)
			add(code, "True", days+1)
		}
	}
	add("ZZ", "False", 3)
	add("ZZ", "False", 3)
	return rows
}

// SegmentedExportCSV renders SegmentedExportRows as CSV text
func SegmentedExportCSV() string {
	var b strings.Builder
	for _, row := range SegmentedExportRows() {
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}

// SegmentedExportXLSX renders SegmentedExportRows as a single-sheet workbook
func SegmentedExportXLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range SegmentedExportRows() {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
