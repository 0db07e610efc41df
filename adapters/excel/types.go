package excel

import "time"

// ExcelData represents a raw sheet: trimmed headers and row cells in header order
type ExcelData struct {
	Headers []string   // Column headers
	Rows    [][]string // Data rows, padded to len(Headers)
}

// DefaultTimeColumn is the timestamp header written by DataWriter and preferred by DataReader
const DefaultTimeColumn = "DateTime"

// TimestampLayout is the layout timestamps are written with
const TimestampLayout = "2006-01-02 15:04:05"

// timestampLayouts are tried in order when parsing the time column
var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"2006-01-02",
}

// missingTokens are cell spellings read as a missing reading (lower-cased)
var missingTokens = map[string]bool{
	"":     true,
	"nan":  true,
	"null": true,
	"na":   true,
	"n/a":  true,
	"none": true,
	"-":    true,
}
