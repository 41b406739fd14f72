package domain

import (
	"strings"
	"time"
)

// Column names expected in a ticketing-system export
const (
	ColumnClientCode           = "Client code"
	ColumnGroupCompany         = "Group Company"
	ColumnBrand                = "Brand"
	ColumnTRGCustomer          = "TRG Customer"
	ColumnClosedTime           = "Closed time"
	ColumnCustomerInteractions = "Customer interactions"
	ColumnAgentInteractions    = "Agent interactions"
	ColumnAMS                  = "AMS"
	ColumnCMS                  = "CMS"
	ColumnCompanyName          = "Company Name"
)

// RequiredColumns lists every column the segmentation core reads
var RequiredColumns = []string{
	ColumnClientCode,
	ColumnGroupCompany,
	ColumnBrand,
	ColumnTRGCustomer,
	ColumnClosedTime,
	ColumnCustomerInteractions,
	ColumnAgentInteractions,
	ColumnAMS,
	ColumnCMS,
	ColumnCompanyName,
}

// Flag is a boolean cell that may be blank in the export
type Flag int8

const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// ParseFlag converts a spreadsheet cell into a Flag.
// Unrecognised or blank values are reported as FlagUnknown.
func ParseFlag(s string) Flag {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1", "1.0":
		return FlagTrue
	case "false", "f", "no", "n", "0", "0.0":
		return FlagFalse
	default:
		return FlagUnknown
	}
}

// Known reports whether the cell held a value
func (f Flag) Known() bool {
	return f != FlagUnknown
}

// Bool returns true only for FlagTrue
func (f Flag) Bool() bool {
	return f == FlagTrue
}

// String returns the export representation of the flag
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "True"
	case FlagFalse:
		return "False"
	default:
		return ""
	}
}

// TicketRecord is one row of a ticketing-system export
type TicketRecord struct {
	ClientCode           string    `json:"client_code"`
	GroupCompany         string    `json:"group_company,omitempty"`
	Brand                string    `json:"brand,omitempty"`
	CompanyName          string    `json:"company_name,omitempty"`
	TRGCustomer          bool      `json:"trg_customer"`
	ClosedTime           time.Time `json:"closed_time"`
	CustomerInteractions float64   `json:"customer_interactions"`
	AgentInteractions    float64   `json:"agent_interactions"`
	AMS                  Flag      `json:"ams"`
	CMS                  Flag      `json:"cms"`

	// Values holds every cell of the row in header order
	Values []string `json:"-"`
}

// HasClosedTime reports whether the ticket carries a closure timestamp
func (r TicketRecord) HasClosedTime() bool {
	return !r.ClosedTime.IsZero()
}

// TicketTable is a loaded export: the original header plus parsed rows
type TicketTable struct {
	Header  []string       `json:"header"`
	Records []TicketRecord `json:"records"`
}

// ColumnIndex returns the position of a header column or -1
func (t *TicketTable) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

// Len returns the number of records
func (t *TicketTable) Len() int {
	return len(t.Records)
}
