package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"gapfill/domain/series"
	"gapfill/internal"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Sheet1"

// DataWriter writes tables back to CSV or Excel files
type DataWriter struct {
	filePath string
	fileType string
	logger   *internal.Logger
}

// NewDataWriter creates a writer; the format follows the file extension
func NewDataWriter(filePath string) *DataWriter {
	return &DataWriter{
		filePath: filePath,
		fileType: fileTypeOf(filePath),
		logger:   internal.DefaultLogger.WithComponent("DataWriter"),
	}
}

// WriteTable writes the timestamp column followed by every column in table
// order. Missing readings are written as empty cells.
func (w *DataWriter) WriteTable(table *series.Table) error {
	if err := table.Validate(); err != nil {
		return err
	}

	var err error
	switch w.fileType {
	case "csv":
		err = w.writeCSV(table)
	default:
		err = w.writeExcel(table)
	}
	if err != nil {
		return err
	}
	w.logger.Info("wrote %d rows to %s", table.Rows(), w.filePath)
	return nil
}

func headerRow(table *series.Table) []string {
	timeColumn := table.TimeColumn
	if timeColumn == "" {
		timeColumn = DefaultTimeColumn
	}
	header := []string{timeColumn}
	for _, c := range table.Columns {
		header = append(header, c.Name)
	}
	return header
}

func formatCell(c series.Column, i int) string {
	if !c.IsNumeric() {
		return c.Text[i]
	}
	if series.IsMissing(c.Values[i]) {
		return ""
	}
	return strconv.FormatFloat(c.Values[i], 'f', -1, 64)
}

func (w *DataWriter) writeCSV(table *series.Table) error {
	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.Write(headerRow(table)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	record := make([]string, len(table.Columns)+1)
	for i, ts := range table.Timestamps {
		record[0] = ts.Format(TimestampLayout)
		for j, c := range table.Columns {
			record[j+1] = formatCell(c, i)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV file: %w", err)
	}
	return file.Close()
}

func (w *DataWriter) writeExcel(table *series.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(defaultSheet)
	if err != nil {
		return fmt.Errorf("failed to open sheet writer: %w", err)
	}

	header := headerRow(table)
	cells := make([]interface{}, len(header))
	for j, h := range header {
		cells[j] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, ts := range table.Timestamps {
		row := make([]interface{}, len(header))
		row[0] = ts.Format(TimestampLayout)
		for j, c := range table.Columns {
			switch {
			case !c.IsNumeric():
				row[j+1] = c.Text[i]
			case series.IsMissing(c.Values[i]):
				row[j+1] = nil
			default:
				row[j+1] = c.Values[i]
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush sheet: %w", err)
	}
	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}
