package segmentation

import (
	"strings"

	"segmentcli/pkg/contracts/domain"
)

// ResolveIdentifiers returns a copy of the table where the client code of each
// row is replaced by its group company, and then by its brand, when present.
// The resolved code is also written into the row's cell values.
func ResolveIdentifiers(table *domain.TicketTable) *domain.TicketTable {
	codeIdx := table.ColumnIndex(domain.ColumnClientCode)

	resolved := &domain.TicketTable{
		Header:  append([]string(nil), table.Header...),
		Records: make([]domain.TicketRecord, len(table.Records)),
	}

	for i, rec := range table.Records {
		rec.Values = append([]string(nil), rec.Values...)

		if strings.TrimSpace(rec.GroupCompany) != "" {
			rec.ClientCode = rec.GroupCompany
		}
		if strings.TrimSpace(rec.Brand) != "" {
			rec.ClientCode = rec.Brand
		}

		if codeIdx >= 0 && codeIdx < len(rec.Values) {
			rec.Values[codeIdx] = rec.ClientCode
		}
		resolved.Records[i] = rec
	}

	return resolved
}

// FilterCustomers keeps only rows flagged as TRG customers
func FilterCustomers(records []domain.TicketRecord) []domain.TicketRecord {
	filtered := make([]domain.TicketRecord, 0, len(records))
	for _, rec := range records {
		if rec.TRGCustomer {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
