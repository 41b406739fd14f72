package segmentation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"segmentcli/pkg/contracts/domain"
)

func TestResolveIdentifiers(t *testing.T) {
	table := &domain.TicketTable{
		Header: []string{domain.ColumnClientCode, domain.ColumnGroupCompany, domain.ColumnBrand},
		Records: []domain.TicketRecord{
			{ClientCode: "C1", Values: []string{"C1", "", ""}},
			{ClientCode: "C2", GroupCompany: "G1", Values: []string{"C2", "G1", ""}},
			{ClientCode: "C3", GroupCompany: "G1", Brand: "B1", Values: []string{"C3", "G1", "B1"}},
			{ClientCode: "C4", Brand: "B2", Values: []string{"C4", "", "B2"}},
			{ClientCode: "C5", GroupCompany: "  ", Values: []string{"C5", "  ", ""}},
		},
	}

	resolved := ResolveIdentifiers(table)
	require.Len(t, resolved.Records, 5)

	tests := []struct {
		name string
		idx  int
		want string
	}{
		{"no override", 0, "C1"},
		{"group company overrides", 1, "G1"},
		{"brand takes precedence over group", 2, "B1"},
		{"brand overrides without group", 3, "B2"},
		{"blank group is ignored", 4, "C5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolved.Records[tt.idx].ClientCode)
			assert.Equal(t, tt.want, resolved.Records[tt.idx].Values[0])
		})
	}

	// the input table is left untouched
	assert.Equal(t, "C3", table.Records[2].ClientCode)
	assert.Equal(t, "C3", table.Records[2].Values[0])
}

func TestFilterCustomers(t *testing.T) {
	records := []domain.TicketRecord{
		{ClientCode: "A", TRGCustomer: true},
		{ClientCode: "B", TRGCustomer: false},
		{ClientCode: "C", TRGCustomer: true},
	}

	filtered := FilterCustomers(records)
	require.Len(t, filtered, 2)
	assert.Equal(t, "A", filtered[0].ClientCode)
	assert.Equal(t, "C", filtered[1].ClientCode)
}
