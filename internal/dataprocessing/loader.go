package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"segmentcli/pkg/contracts/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// headerScanRows is how many leading rows of a worksheet are searched for the header
const headerScanRows = 10

// Loader reads ticketing-system exports into a TicketTable
type Loader struct {
	logger   *slog.Logger
	location *time.Location
}

// NewLoader creates a loader. Timestamps without a zone are read as UTC.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		logger:   logger.With(slog.String("component", "loader")),
		location: time.UTC,
	}
}

// WithLocation sets the zone used for timestamps that carry none
func (l *Loader) WithLocation(loc *time.Location) *Loader {
	if loc != nil {
		l.location = loc
	}
	return l
}

// LoadFile reads an export from disk. The format is chosen by extension.
func (l *Loader) LoadFile(ctx context.Context, path string) (*domain.TicketTable, error) {
	if err := checkFormat(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return l.Load(ctx, f, filepath.Base(path))
}

// Load reads an export from r. name only selects the format: .csv files are
// read as comma separated text, .xlsx and .xlsm files as Excel workbooks.
func (l *Loader) Load(ctx context.Context, r io.Reader, name string) (*domain.TicketTable, error) {
	if err := checkFormat(name); err != nil {
		return nil, err
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		rows, err = readCSV(r)
	default:
		rows, err = l.readWorkbook(ctx, r)
	}
	if err != nil {
		return nil, err
	}

	table, err := l.buildTable(rows)
	if err != nil {
		return nil, err
	}

	l.logger.InfoContext(ctx, "loaded ticket export",
		slog.String("file", name),
		slog.Int("columns", len(table.Header)),
		slog.Int("rows", table.Len()))

	return table, nil
}

// LoadFile reads an export with a default loader
func LoadFile(ctx context.Context, path string) (*domain.TicketTable, error) {
	return NewLoader(nil).LoadFile(ctx, path)
}

// Load reads an export from r with a default loader
func Load(ctx context.Context, r io.Reader, name string) (*domain.TicketTable, error) {
	return NewLoader(nil).Load(ctx, r, name)
}

// IsSupported reports whether name has an extension the loader accepts
func IsSupported(name string) bool {
	return checkFormat(name) == nil
}

func checkFormat(name string) error {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".csv", ".xlsx", ".xlsm":
		return nil
	default:
		return fmt.Errorf("%q: %w", ext, ErrUnsupportedFormat)
	}
}

// readCSV reads every record, stripping a leading byte order mark
func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return rows, nil
}

// readWorkbook returns the rows of the first worksheet whose leading rows hold
// every required column, starting at the header row. Cell values are read raw
// so dates arrive as serial numbers.
func (l *Loader) readWorkbook(ctx context.Context, r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	var firstErr error
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
		}

		for i := 0; i < len(rows) && i < headerScanRows; i++ {
			missing := missingColumns(rows[i])
			if len(missing) == 0 {
				l.logger.DebugContext(ctx, "found ticket sheet",
					slog.String("sheet", sheet),
					slog.Int("header_row", i+1))
				return rows[i:], nil
			}
			if firstErr == nil && len(rows[i]) > 0 {
				firstErr = &MissingColumnsError{Columns: missing}
			}
		}
	}

	if firstErr == nil {
		firstErr = ErrEmptyFile
	}
	return nil, firstErr
}

func missingColumns(header []string) []string {
	probe := domain.TicketTable{Header: header}
	var missing []string
	for _, col := range domain.RequiredColumns {
		if probe.ColumnIndex(col) < 0 {
			missing = append(missing, col)
		}
	}
	return missing
}

// columnIndexes holds the position of every required column
type columnIndexes struct {
	clientCode, groupCompany, brand, trg, closed int
	customerInteractions, agentInteractions     int
	ams, cms, companyName                       int
}

// buildTable converts the header row and data rows into records. Blank rows
// are skipped. Conversion errors are reported only for TRG customer rows.
func (l *Loader) buildTable(rows [][]string) (*domain.TicketTable, error) {
	if len(rows) == 0 || isBlank(rows[0]) {
		return nil, ErrEmptyFile
	}

	header := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		header[i] = strings.TrimSpace(h)
	}
	table := &domain.TicketTable{Header: header}

	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	idx := columnIndexes{
		clientCode:           table.ColumnIndex(domain.ColumnClientCode),
		groupCompany:         table.ColumnIndex(domain.ColumnGroupCompany),
		brand:                table.ColumnIndex(domain.ColumnBrand),
		trg:                  table.ColumnIndex(domain.ColumnTRGCustomer),
		closed:               table.ColumnIndex(domain.ColumnClosedTime),
		customerInteractions: table.ColumnIndex(domain.ColumnCustomerInteractions),
		agentInteractions:    table.ColumnIndex(domain.ColumnAgentInteractions),
		ams:                  table.ColumnIndex(domain.ColumnAMS),
		cms:                  table.ColumnIndex(domain.ColumnCMS),
		companyName:          table.ColumnIndex(domain.ColumnCompanyName),
	}

	table.Records = make([]domain.TicketRecord, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if isBlank(row) {
			continue
		}

		rec, err := l.parseRecord(header, row, idx)
		if err != nil {
			var perr *ParseError
			if errors.As(err, &perr) {
				perr.Row = n + 2
			}
			return nil, err
		}
		table.Records = append(table.Records, rec)
	}

	return table, nil
}

// parseRecord converts one row, padded to the header width
func (l *Loader) parseRecord(header, row []string, idx columnIndexes) (domain.TicketRecord, error) {
	values := make([]string, len(header))
	copy(values, row)
	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	rec := domain.TicketRecord{
		ClientCode:   values[idx.clientCode],
		GroupCompany: values[idx.groupCompany],
		Brand:        values[idx.brand],
		CompanyName:  values[idx.companyName],
		TRGCustomer:  domain.ParseFlag(values[idx.trg]).Bool(),
		AMS:          domain.ParseFlag(values[idx.ams]),
		CMS:          domain.ParseFlag(values[idx.cms]),
		Values:       values,
	}

	invalid := func(col int, err error) error {
		return &ParseError{Column: header[col], Value: values[col], Err: err}
	}

	closed, err := ParseTimestamp(values[idx.closed], l.location)
	if err != nil && rec.TRGCustomer {
		return rec, invalid(idx.closed, err)
	}
	rec.ClosedTime = closed
	if err == nil && isNumeric(values[idx.closed]) {
		// Excel serials are written back as readable timestamps
		values[idx.closed] = FormatTimestamp(closed)
	}

	if rec.CustomerInteractions, err = ParseNumber(values[idx.customerInteractions]); err != nil && rec.TRGCustomer {
		return rec, invalid(idx.customerInteractions, err)
	}
	if rec.AgentInteractions, err = ParseNumber(values[idx.agentInteractions]); err != nil && rec.TRGCustomer {
		return rec, invalid(idx.agentInteractions, err)
	}

	return rec, nil
}

func isNumeric(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
