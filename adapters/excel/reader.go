package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gapfill/domain/core"
	"gapfill/domain/series"
	"gapfill/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	return &DataReader{
		filePath: filePath,
		fileType: fileTypeOf(filePath),
		logger:   internal.DefaultLogger.WithComponent("DataReader"),
	}
}

func fileTypeOf(path string) string {
	if strings.ToLower(filepath.Ext(path)) == ".csv" {
		return "csv"
	}
	return "xlsx"
}

// ReadTable reads the file into a table of hourly series. Missing readings
// become NaN; columns holding other non-numeric text are kept as text.
func (r *DataReader) ReadTable() (*series.Table, error) {
	data, err := r.ReadData()
	if err != nil {
		return nil, err
	}
	return r.toTable(data)
}

// ReadData reads data from Excel or CSV files into raw rows
func (r *DataReader) ReadData() (*ExcelData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the first sheet with raw cell values, so numbers keep
// full precision and dates arrive as serials.
func (r *DataReader) readExcelData() (*ExcelData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, core.NewMalformedInputError("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}
	r.logger.Debug("sheet %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewMalformedInputError("Excel file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// readCSVData reads CSV data into raw rows
func (r *DataReader) readCSVData() (*ExcelData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	startTime := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 2 {
		return nil, core.NewMalformedInputError("CSV file must have at least a header row and one data row")
	}
	return r.processRows(rows)
}

// processRows trims headers and cells and pads short rows
func (r *DataReader) processRows(rows [][]string) (*ExcelData, error) {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlankRow(row) {
			continue
		}
		cells := make([]string, len(headers))
		for j := 0; j < len(row) && j < len(headers); j++ {
			cells[j] = strings.TrimSpace(row[j])
		}
		dataRows = append(dataRows, cells)
	}

	return &ExcelData{Headers: headers, Rows: dataRows}, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// timeColumnIndex prefers a DateTime header and falls back to the first column
func timeColumnIndex(headers []string) int {
	for i, h := range headers {
		if strings.EqualFold(h, DefaultTimeColumn) {
			return i
		}
	}
	return 0
}

func (r *DataReader) toTable(data *ExcelData) (*series.Table, error) {
	timeIdx := timeColumnIndex(data.Headers)
	table := &series.Table{
		TimeColumn: data.Headers[timeIdx],
		Timestamps: make([]time.Time, len(data.Rows)),
	}

	for i, row := range data.Rows {
		ts, err := r.parseTimestamp(row[timeIdx])
		if err != nil {
			return nil, core.NewMalformedInputError(fmt.Sprintf("row %d: %v", i+2, err))
		}
		table.Timestamps[i] = ts
	}

	for j, name := range data.Headers {
		if j == timeIdx {
			continue
		}
		table.Columns = append(table.Columns, parseColumn(name, data.Rows, j))
	}

	if err := table.Validate(); err != nil {
		return nil, err
	}

	r.logger.Info("%s loaded (%d columns, %d rows)", filepath.Base(r.filePath), len(table.Columns), table.Rows())
	return table, nil
}

func (r *DataReader) parseTimestamp(cell string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, cell); err == nil {
			return ts, nil
		}
	}
	// Excel stores dates as day serials
	if r.fileType == "xlsx" {
		if serial, err := strconv.ParseFloat(cell, 64); err == nil {
			ts, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				return ts.Round(time.Second), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", cell)
}

// parseColumn reads column j as floats; a single non-numeric, non-missing
// cell turns the whole column into text.
func parseColumn(name string, rows [][]string, j int) series.Column {
	values := make([]float64, len(rows))
	for i, row := range rows {
		cell := row[j]
		if missingTokens[strings.ToLower(cell)] {
			values[i] = series.Missing()
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil || math.IsInf(v, 0) {
			text := make([]string, len(rows))
			for k, row := range rows {
				text[k] = row[j]
			}
			return series.Column{Name: name, Text: text}
		}
		values[i] = v
	}
	return series.Column{Name: name, Values: values}
}
