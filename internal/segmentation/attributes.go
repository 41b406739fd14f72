package segmentation

import (
	"sort"
	"strings"
	"time"

	"segmentcli/pkg/contracts/domain"
)

const day = 24 * time.Hour

// RecencyRow holds the most recent closure of a customer
type RecencyRow struct {
	ClientCode string
	LastClosed time.Time
	Recency    int
}

// VolumeRow holds the number of closed tickets of a customer
type VolumeRow struct {
	ClientCode  string
	TicketCount int
}

// InteractionRow holds the interaction sums of a customer
type InteractionRow struct {
	ClientCode           string
	CustomerInteractions float64
	AgentInteractions    float64
}

// AvailabilityRow holds the AMS/CMS availability of a customer
type AvailabilityRow struct {
	ClientCode string
	AMS        bool
	CMS        bool
}

// BuildRecency computes, per customer, the whole days between the latest
// closure in the whole set and the customer's own latest closure.
// Rows without a closed time or without an identifier are ignored, also for
// the global latest closure.
func BuildRecency(records []domain.TicketRecord) []RecencyRow {
	latest := make(map[string]time.Time)
	for _, rec := range records {
		if !hasIdentifier(rec) || !rec.HasClosedTime() {
			continue
		}
		if cur, ok := latest[rec.ClientCode]; !ok || rec.ClosedTime.After(cur) {
			latest[rec.ClientCode] = rec.ClosedTime
		}
	}

	var globalMax time.Time
	for _, t := range latest {
		if t.After(globalMax) {
			globalMax = t
		}
	}

	rows := make([]RecencyRow, 0, len(latest))
	for _, code := range sortedKeys(latest) {
		last := latest[code]
		rows = append(rows, RecencyRow{
			ClientCode: code,
			LastClosed: last,
			Recency:    int(globalMax.Sub(last) / day),
		})
	}
	return rows
}

// BuildVolume counts closed tickets per customer. Rows without an identifier
// are ignored.
func BuildVolume(records []domain.TicketRecord) []VolumeRow {
	counts := make(map[string]int)
	for _, rec := range records {
		if !hasIdentifier(rec) {
			continue
		}
		if _, ok := counts[rec.ClientCode]; !ok {
			counts[rec.ClientCode] = 0
		}
		if rec.HasClosedTime() {
			counts[rec.ClientCode]++
		}
	}

	rows := make([]VolumeRow, 0, len(counts))
	for _, code := range sortedKeys(counts) {
		if code == "" {
			continue
		}
		rows = append(rows, VolumeRow{ClientCode: code, TicketCount: counts[code]})
	}
	return rows
}

// BuildInteractions sums customer and agent interactions per customer
func BuildInteractions(records []domain.TicketRecord) []InteractionRow {
	sums := make(map[string]*InteractionRow)
	for _, rec := range records {
		if !hasIdentifier(rec) {
			continue
		}
		row, ok := sums[rec.ClientCode]
		if !ok {
			row = &InteractionRow{ClientCode: rec.ClientCode}
			sums[rec.ClientCode] = row
		}
		row.CustomerInteractions += rec.CustomerInteractions
		row.AgentInteractions += rec.AgentInteractions
	}

	rows := make([]InteractionRow, 0, len(sums))
	for _, code := range sortedKeys(sums) {
		rows = append(rows, *sums[code])
	}
	return rows
}

// BuildAvailability computes the logical AND of the AMS and CMS flags per
// customer. Blank flags do not participate.
func BuildAvailability(records []domain.TicketRecord) []AvailabilityRow {
	flags := make(map[string]*AvailabilityRow)
	for _, rec := range records {
		if !hasIdentifier(rec) {
			continue
		}
		row, ok := flags[rec.ClientCode]
		if !ok {
			row = &AvailabilityRow{ClientCode: rec.ClientCode, AMS: true, CMS: true}
			flags[rec.ClientCode] = row
		}
		if rec.AMS.Known() && !rec.AMS.Bool() {
			row.AMS = false
		}
		if rec.CMS.Known() && !rec.CMS.Bool() {
			row.CMS = false
		}
	}

	rows := make([]AvailabilityRow, 0, len(flags))
	for _, code := range sortedKeys(flags) {
		rows = append(rows, *flags[code])
	}
	return rows
}

// BuildAttributes derives the four sub-tables from the filtered records and
// inner-joins them on the client code in the order recency, volume,
// availability, interactions. A customer missing from any sub-table is dropped.
func BuildAttributes(records []domain.TicketRecord) []domain.CustomerAttributes {
	recency := BuildRecency(records)

	volume := make(map[string]VolumeRow)
	for _, row := range BuildVolume(records) {
		volume[row.ClientCode] = row
	}
	availability := make(map[string]AvailabilityRow)
	for _, row := range BuildAvailability(records) {
		availability[row.ClientCode] = row
	}
	interactions := make(map[string]InteractionRow)
	for _, row := range BuildInteractions(records) {
		interactions[row.ClientCode] = row
	}

	attrs := make([]domain.CustomerAttributes, 0, len(recency))
	for _, r := range recency {
		v, ok := volume[r.ClientCode]
		if !ok {
			continue
		}
		a, ok := availability[r.ClientCode]
		if !ok {
			continue
		}
		in, ok := interactions[r.ClientCode]
		if !ok {
			continue
		}

		attrs = append(attrs, domain.CustomerAttributes{
			ClientCode:           r.ClientCode,
			Recency:              r.Recency,
			TicketCount:          v.TicketCount,
			AMS:                  a.AMS,
			CMS:                  a.CMS,
			CustomerInteractions: in.CustomerInteractions,
			AgentInteractions:    in.AgentInteractions,
		})
	}
	return attrs
}

// hasIdentifier reports whether the resolved client code is present. A blank
// code is a missing value and forms no customer.
func hasIdentifier(rec domain.TicketRecord) bool {
	return strings.TrimSpace(rec.ClientCode) != ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
