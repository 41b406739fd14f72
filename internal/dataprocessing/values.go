package dataprocessing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// timestampLayouts are tried in order by ParseTimestamp
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	// month and day with or without padding, as Excel saves CSV
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"02-01-2006 15:04:05",
	"02-01-2006",
}

// excelSerialMin and excelSerialMax bound the serial numbers accepted as dates
// (1900-01-01 to 9999-12-31)
const (
	excelSerialMin = 1
	excelSerialMax = 2958465
)

// ParseTimestamp parses a closed-time cell. A blank cell yields the zero time.
// Values without a zone are interpreted in loc. Bare numbers are read as Excel
// serial dates.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < excelSerialMin || serial > excelSerialMax {
			return time.Time{}, fmt.Errorf("excel serial %v out of range", serial)
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		// serials carry no zone; reinterpret the wall clock in loc
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp layout")
}

// ParseNumber parses an interaction count. Blank cells count as zero and
// thousands separators are ignored.
func ParseNumber(s string) (float64, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatTimestamp renders a closed time the way exports are written back
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}
