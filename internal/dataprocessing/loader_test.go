package dataprocessing

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"segmentcli/pkg/contracts/domain"
)

const ticketHeader = "Client code,Group Company,Brand,TRG Customer,Closed time,Customer interactions,Agent interactions,AMS,CMS,Company Name,Subject"

func csvExport(lines ...string) string {
	return strings.Join(append([]string{ticketHeader}, lines...), "\n") + "\n"
}

func TestLoadCSV(t *testing.T) {
	data := "\xEF\xBB\xBF" + csvExport(
		"C1,,,True,2024-03-01 10:00:00,2,3,True,False,Acme,Printer",
		"C2,G1,,TRUE,2024-02-20 09:00:00,\"1,000\",1,,true,Beta,\"Login, again\"",
		",,,,,,,,,,",
		"C3,,B3,False,,,,,,Gamma,",
		"C4,,,yes,,1,1,1,0,Delta",
	)

	table, err := Load(context.Background(), strings.NewReader(data), "tickets.csv")
	require.NoError(t, err)

	assert.Equal(t, domain.ColumnClientCode, table.Header[0], "byte order mark must be stripped")
	assert.Len(t, table.Header, 11)
	require.Len(t, table.Records, 4)

	first := table.Records[0]
	assert.Equal(t, "C1", first.ClientCode)
	assert.True(t, first.TRGCustomer)
	assert.True(t, first.ClosedTime.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 2.0, first.CustomerInteractions)
	assert.Equal(t, 3.0, first.AgentInteractions)
	assert.Equal(t, domain.FlagTrue, first.AMS)
	assert.Equal(t, domain.FlagFalse, first.CMS)
	assert.Equal(t, "Acme", first.CompanyName)
	assert.Equal(t, "Printer", first.Values[10])

	second := table.Records[1]
	assert.Equal(t, "G1", second.GroupCompany)
	assert.Equal(t, 1000.0, second.CustomerInteractions)
	assert.Equal(t, domain.FlagUnknown, second.AMS)
	assert.Equal(t, domain.FlagTrue, second.CMS)
	assert.Equal(t, "Login, again", second.Values[10])

	third := table.Records[2]
	assert.False(t, third.TRGCustomer)
	assert.False(t, third.HasClosedTime())
	assert.Equal(t, "B3", third.Brand)

	// short rows are padded to the header width
	fourth := table.Records[3]
	assert.Len(t, fourth.Values, 11)
	assert.Empty(t, fourth.Values[10])
	assert.True(t, fourth.TRGCustomer)
}

func TestLoadFileCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Tickets.CSV")
	require.NoError(t, os.WriteFile(path, []byte(csvExport("C1,,,True,2024-03-01,1,1,True,True,Acme,")), 0644))

	table, err := LoadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name  string
		file  string
		data  string
		check func(*testing.T, error)
	}{
		{
			name: "unsupported extension",
			file: "tickets.json",
			data: "{}",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
			},
		},
		{
			name: "no extension",
			file: "tickets",
			data: csvExport(),
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
			},
		},
		{
			name: "empty file",
			file: "tickets.csv",
			data: "",
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEmptyFile)
			},
		},
		{
			name: "missing columns",
			file: "tickets.csv",
			data: "Client code,Brand,AMS\nC1,,True\n",
			check: func(t *testing.T, err error) {
				var missing *MissingColumnsError
				require.ErrorAs(t, err, &missing)
				assert.Contains(t, missing.Columns, domain.ColumnClosedTime)
				assert.Contains(t, missing.Columns, domain.ColumnCompanyName)
				assert.NotContains(t, missing.Columns, domain.ColumnBrand)
				assert.Contains(t, err.Error(), "Closed time")
			},
		},
		{
			name: "bad timestamp on a TRG row",
			file: "tickets.csv",
			data: csvExport("C1,,,True,2024-03-01,1,1,True,True,Acme,", "C2,,,True,soon,1,1,True,True,Beta,"),
			check: func(t *testing.T, err error) {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.ErrorIs(t, err, ErrInvalidValue)
				assert.Equal(t, 3, perr.Row)
				assert.Equal(t, domain.ColumnClosedTime, perr.Column)
				assert.Equal(t, "soon", perr.Value)
			},
		},
		{
			name: "bad interaction count on a TRG row",
			file: "tickets.csv",
			data: csvExport("C1,,,True,2024-03-01,lots,1,True,True,Acme,"),
			check: func(t *testing.T, err error) {
				var perr *ParseError
				require.ErrorAs(t, err, &perr)
				assert.Equal(t, domain.ColumnCustomerInteractions, perr.Column)
			},
		},
		{
			name: "not a workbook",
			file: "tickets.xlsx",
			data: "plain text",
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), strings.NewReader(tt.data), tt.file)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestLoadTolerantOfNonCustomerRows(t *testing.T) {
	data := csvExport(
		"C1,,,True,2024-03-01,1,1,True,True,Acme,",
		"X1,,,False,someday,n/a,,,,Other,",
	)

	table, err := Load(context.Background(), strings.NewReader(data), "tickets.csv")
	require.NoError(t, err)
	require.Len(t, table.Records, 2)
	assert.False(t, table.Records[1].HasClosedTime())
	assert.Equal(t, "someday", table.Records[1].Values[4])
}

// ticketWorkbook writes an export with a cover sheet and the tickets on a
// second sheet below a title row
func ticketWorkbook(t *testing.T) []byte {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "Cover"))
	require.NoError(t, f.SetCellValue("Cover", "A1", "Ticket export"))

	_, err := f.NewSheet("Tickets")
	require.NoError(t, err)
	require.NoError(t, f.SetCellValue("Tickets", "A1", "Exported from helpdesk"))

	header := strings.Split(ticketHeader, ",")
	require.NoError(t, f.SetSheetRow("Tickets", "A2", &header))

	closed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	row := []any{"C1", nil, "B1", true, closed, 4, 2, true, false, "Acme", "Printer"}
	require.NoError(t, f.SetSheetRow("Tickets", "A3", &row))

	style, err := f.NewStyle(&excelize.Style{NumFmt: 22})
	require.NoError(t, err)
	require.NoError(t, f.SetCellStyle("Tickets", "E3", "E3", style))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return buf.Bytes()
}

func TestLoadWorkbook(t *testing.T) {
	data := ticketWorkbook(t)

	table, err := NewLoader(nil).Load(context.Background(), bytes.NewReader(data), "tickets.xlsx")
	require.NoError(t, err)

	assert.Equal(t, strings.Split(ticketHeader, ","), table.Header)
	require.Len(t, table.Records, 1)

	rec := table.Records[0]
	assert.Equal(t, "C1", rec.ClientCode)
	assert.Equal(t, "B1", rec.Brand)
	assert.True(t, rec.TRGCustomer)
	assert.Equal(t, domain.FlagTrue, rec.AMS)
	assert.Equal(t, domain.FlagFalse, rec.CMS)
	assert.Equal(t, 4.0, rec.CustomerInteractions)
	assert.Equal(t, 2.0, rec.AgentInteractions)
	assert.True(t, rec.ClosedTime.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)), "got %v", rec.ClosedTime)
	assert.Equal(t, "2024-03-01 12:00:00", rec.Values[4])
}

func TestLoadWorkbookWithoutTickets(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Client code"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())

	_, err := Load(context.Background(), &buf, "tickets.xlsm")
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	assert.NotContains(t, missing.Columns, domain.ColumnClientCode)
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported("a.csv"))
	assert.True(t, IsSupported("a.XLSX"))
	assert.True(t, IsSupported("a.xlsm"))
	assert.False(t, IsSupported("a.xls"))
	assert.False(t, IsSupported("a.txt"))
}
