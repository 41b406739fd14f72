package exporter

import (
	"fmt"
	"strconv"
	"strings"
)

// Format selects the file types written for a run
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatBoth Format = "both"
)

// ParseFormat validates a user supplied format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX, FormatBoth:
		return f, nil
	case "":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want csv, xlsx or both)", s)
	}
}

func (f Format) includesCSV() bool  { return f == FormatCSV || f == FormatBoth }
func (f Format) includesXLSX() bool { return f == FormatXLSX || f == FormatBoth }

// formatFloat formats a float64 with the shortest exact representation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// formatBool formats a boolean value the way the source exports spell it
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// formatCluster formats an optional cluster id; no assignment is blank
func formatCluster(c *int) string {
	if c == nil {
		return ""
	}
	return strconv.Itoa(*c)
}
