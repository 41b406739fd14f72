package segmentation

import (
	"time"

	"segmentcli/pkg/contracts/domain"
)

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func ticket(code string, closed time.Time, ams, cms domain.Flag, customer, agent float64) domain.TicketRecord {
	return domain.TicketRecord{
		ClientCode:           code,
		TRGCustomer:          true,
		ClosedTime:           closed,
		CustomerInteractions: customer,
		AgentInteractions:    agent,
		AMS:                  ams,
		CMS:                  cms,
	}
}

func daysBefore(days float64) time.Time {
	return baseTime.Add(-time.Duration(days * float64(24*time.Hour)))
}

func codesOf[T any](rows []T, code func(T) string) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[code(r)] = true
	}
	return out
}

// blobs returns five well separated groups of four points
func blobs() Matrix {
	centers := [][]float64{{0, 0}, {10, 0}, {0, 10}, {10, 10}, {20, 20}}
	offsets := [][]float64{{0, 0}, {0.5, 0}, {0, 0.5}, {0.5, 0.5}}

	var m Matrix
	for _, c := range centers {
		for _, o := range offsets {
			m = append(m, []float64{c[0] + o[0], c[1] + o[1]})
		}
	}
	return m
}

// segmentedTable builds an export with five recency groups of five customers,
// plus a non-TRG customer and a duplicated raw row
func segmentedTable() *domain.TicketTable {
	table := &domain.TicketTable{Header: []string{
		domain.ColumnClientCode, domain.ColumnGroupCompany, domain.ColumnBrand,
		domain.ColumnTRGCustomer, domain.ColumnClosedTime, domain.ColumnCustomerInteractions,
		domain.ColumnAgentInteractions, domain.ColumnAMS, domain.ColumnCMS, domain.ColumnCompanyName,
	}}

	add := func(code string, trg bool, closed time.Time) {
		rec := ticket(code, closed, domain.FlagTrue, domain.FlagTrue, 2, 3)
		rec.TRGCustomer = trg
		rec.CompanyName = code + " Ltd"
		trgCell := "False"
		if trg {
			trgCell = "True"
		}
		rec.Values = []string{code, "", "", trgCell, closed.Format(time.RFC3339), "2", "3", "True", "True", rec.CompanyName}
		table.Records = append(table.Records, rec)
	}

	for g := 0; g < 5; g++ {
		for i := 0; i < 5; i++ {
			code := string(rune('A'+g)) + string(rune('0'+i))
			days := float64(g*100 + i)
			add(code, true, daysBefore(days))
			add(code, true, daysBefore(days+1))
		}
	}
	add("ZZ", false, daysBefore(3))
	add("ZZ", false, daysBefore(3))
	return table
}
