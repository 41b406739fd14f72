package segmentation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentcli/pkg/contracts/domain"
)

func TestBuildRecency(t *testing.T) {
	records := []domain.TicketRecord{
		ticket("A", daysBefore(5), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("A", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("B", daysBefore(6.5), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("C", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("D", time.Time{}, domain.FlagTrue, domain.FlagTrue, 0, 0),
	}

	rows := BuildRecency(records)
	require.Len(t, rows, 3)

	got := make(map[string]int)
	for _, r := range rows {
		got[r.ClientCode] = r.Recency
		assert.GreaterOrEqual(t, r.Recency, 0)
	}

	assert.Equal(t, map[string]int{"A": 0, "B": 6, "C": 0}, got)
	assert.Equal(t, baseTime, rows[0].LastClosed)
}

func TestBuildVolume(t *testing.T) {
	records := []domain.TicketRecord{
		ticket("A", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("A", daysBefore(2), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("A", time.Time{}, domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 0, 0),
		ticket("B", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 0, 0),
	}

	rows := BuildVolume(records)
	assert.Equal(t, []VolumeRow{
		{ClientCode: "A", TicketCount: 2},
		{ClientCode: "B", TicketCount: 1},
	}, rows)

	// a blank identifier is a missing value and leaves every sub-table
	assert.False(t, codesOf(BuildRecency(records), func(r RecencyRow) string { return r.ClientCode })[""])
	assert.False(t, codesOf(BuildInteractions(records), func(r InteractionRow) string { return r.ClientCode })[""])
	assert.False(t, codesOf(BuildAvailability(records), func(r AvailabilityRow) string { return r.ClientCode })[""])
}

func TestBuildInteractions(t *testing.T) {
	records := []domain.TicketRecord{
		ticket("A", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 2, 1),
		ticket("A", daysBefore(2), domain.FlagTrue, domain.FlagTrue, 3, 4.5),
		ticket("B", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 0, 7),
	}

	rows := BuildInteractions(records)
	assert.Equal(t, []InteractionRow{
		{ClientCode: "A", CustomerInteractions: 5, AgentInteractions: 5.5},
		{ClientCode: "B", CustomerInteractions: 0, AgentInteractions: 7},
	}, rows)
}

func TestBuildAvailability(t *testing.T) {
	t.Run("one false among ten", func(t *testing.T) {
		var records []domain.TicketRecord
		for i := 0; i < 10; i++ {
			records = append(records, ticket("A", daysBefore(float64(i)), domain.FlagTrue, domain.FlagTrue, 0, 0))
		}
		records = append(records, ticket("A", daysBefore(11), domain.FlagFalse, domain.FlagTrue, 0, 0))

		rows := BuildAvailability(records)
		require.Len(t, rows, 1)
		assert.False(t, rows[0].AMS)
		assert.True(t, rows[0].CMS)
	})

	t.Run("blank flags are skipped", func(t *testing.T) {
		records := []domain.TicketRecord{
			ticket("A", daysBefore(1), domain.FlagUnknown, domain.FlagTrue, 0, 0),
			ticket("A", daysBefore(2), domain.FlagTrue, domain.FlagUnknown, 0, 0),
			ticket("B", daysBefore(1), domain.FlagFalse, domain.FlagFalse, 0, 0),
		}

		rows := BuildAvailability(records)
		assert.Equal(t, []AvailabilityRow{
			{ClientCode: "A", AMS: true, CMS: true},
			{ClientCode: "B", AMS: false, CMS: false},
		}, rows)
	})
}

func TestBuildAttributes(t *testing.T) {
	t.Run("three customers with one AMS outage", func(t *testing.T) {
		records := []domain.TicketRecord{
			ticket("A", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 1, 1),
			ticket("A", daysBefore(2), domain.FlagFalse, domain.FlagTrue, 1, 1),
			ticket("B", daysBefore(3), domain.FlagTrue, domain.FlagTrue, 2, 0),
			ticket("B", daysBefore(4), domain.FlagTrue, domain.FlagTrue, 2, 0),
			ticket("C", daysBefore(10), domain.FlagTrue, domain.FlagTrue, 0, 3),
			ticket("C", daysBefore(12), domain.FlagTrue, domain.FlagTrue, 0, 3),
		}

		attrs := BuildAttributes(records)
		assert.Equal(t, []domain.CustomerAttributes{
			{ClientCode: "A", Recency: 0, TicketCount: 2, AMS: false, CMS: true, CustomerInteractions: 2, AgentInteractions: 2},
			{ClientCode: "B", Recency: 3, TicketCount: 2, AMS: true, CMS: true, CustomerInteractions: 4, AgentInteractions: 0},
			{ClientCode: "C", Recency: 10, TicketCount: 2, AMS: true, CMS: true, CustomerInteractions: 0, AgentInteractions: 6},
		}, attrs)
	})

	t.Run("inner join drops incomplete customers", func(t *testing.T) {
		records := []domain.TicketRecord{
			ticket("A", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 1, 1),
			ticket("", daysBefore(1), domain.FlagTrue, domain.FlagTrue, 1, 1),
			ticket("D", time.Time{}, domain.FlagTrue, domain.FlagTrue, 1, 1),
		}

		attrs := BuildAttributes(records)
		require.Len(t, attrs, 1)
		assert.Equal(t, "A", attrs[0].ClientCode)

		recency := codesOf(BuildRecency(records), func(r RecencyRow) string { return r.ClientCode })
		volume := codesOf(BuildVolume(records), func(r VolumeRow) string { return r.ClientCode })
		availability := codesOf(BuildAvailability(records), func(r AvailabilityRow) string { return r.ClientCode })
		interactions := codesOf(BuildInteractions(records), func(r InteractionRow) string { return r.ClientCode })

		for _, a := range attrs {
			assert.True(t, recency[a.ClientCode])
			assert.True(t, volume[a.ClientCode])
			assert.True(t, availability[a.ClientCode])
			assert.True(t, interactions[a.ClientCode])
		}
	})

	t.Run("blank identifier does not set the latest closure", func(t *testing.T) {
		records := []domain.TicketRecord{
			ticket("A", daysBefore(5), domain.FlagTrue, domain.FlagTrue, 0, 0),
			ticket("B", daysBefore(9), domain.FlagTrue, domain.FlagTrue, 0, 0),
			ticket("", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 0, 0),
			ticket("  ", daysBefore(0), domain.FlagTrue, domain.FlagTrue, 0, 0),
		}

		attrs := BuildAttributes(records)
		require.Len(t, attrs, 2)
		assert.Equal(t, "A", attrs[0].ClientCode)
		assert.Equal(t, 0, attrs[0].Recency)
		assert.Equal(t, "B", attrs[1].ClientCode)
		assert.Equal(t, 4, attrs[1].Recency)
	})

	t.Run("only the latest closers have zero recency", func(t *testing.T) {
		table := segmentedTable()
		attrs := BuildAttributes(FilterCustomers(table.Records))
		require.Len(t, attrs, 25)

		for _, a := range attrs {
			assert.GreaterOrEqual(t, a.Recency, 0)
			if a.ClientCode == "A0" {
				assert.Equal(t, 0, a.Recency)
			} else {
				assert.Greater(t, a.Recency, 0, a.ClientCode)
			}
		}
	})
}
