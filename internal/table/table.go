package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/nconklindev/stringtable/internal/types"

	"github.com/xuri/excelize/v2"
)

// Options controls how an input file is turned into rows.
type Options struct {
	// Sheet selects a worksheet by name. Empty means the first sheet.
	Sheet string
	// HasHeader drops the first non-blank row of the source.
	HasHeader bool
	// NameColumn and TextColumn are zero-based column indices.
	NameColumn int
	TextColumn int
}

func DefaultOptions() Options {
	return Options{HasHeader: true, NameColumn: 0, TextColumn: 1}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SupportedExtensions lists the input extensions Read accepts.
var SupportedExtensions = []string{".xlsx", ".xlsm", ".xltx", ".xltm", ".csv"}

// Read loads the data rows of a CSV or spreadsheet file in source order.
//
// Errors are *types.InputReadError when the file cannot be read as a table
// and *types.MalformedRowError when a data row has no usable name/text pair.
func Read(filePath string, opts Options) (*types.Table, error) {
	if opts.NameColumn < 0 || opts.TextColumn < 0 {
		return nil, &types.InputReadError{Path: filePath, Err: errors.New("column index must not be negative")}
	}

	ext := strings.ToLower(filepath.Ext(filePath))

	var (
		records [][]string
		sheet   string
		err     error
	)
	switch ext {
	case ".csv":
		records, err = readCSVRecords(filePath)
	case ".xlsx", ".xlsm", ".xltx", ".xltm":
		records, sheet, err = readXLSXRecords(filePath, opts.Sheet)
	default:
		err = fmt.Errorf("unsupported file type: %q", ext)
	}
	if err != nil {
		return nil, &types.InputReadError{Path: filePath, Err: err}
	}

	rows, err := toRows(filePath, records, opts)
	if err != nil {
		return nil, err
	}

	slog.Debug("table loaded", "path", filePath, "sheet", sheet, "rows", len(rows))

	return &types.Table{
		Source: filePath,
		Sheet:  sheet,
		Rows:   rows,
	}, nil
}

func readCSVRecords(filePath string) ([][]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	// Excel's "CSV UTF-8" export starts with a byte order mark.
	br := bufio.NewReader(file)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return reader.ReadAll()
}

func readXLSXRecords(filePath, sheet string) ([][]string, string, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx == -1 {
		return nil, "", fmt.Errorf("sheet %q not found (available: %s)", sheet, strings.Join(f.GetSheetList(), ", "))
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, "", err
	}

	// GetRows trims trailing empty cells, so pad every row to the table
	// width to keep an empty text cell distinct from a missing column.
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}
	for i, row := range rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			rows[i] = padded
		}
	}

	slog.Debug("sheet selected", "path", filePath, "sheet", sheet, "width", width)

	return rows, sheet, nil
}

// toRows applies header and blank-row handling and validates each data row.
// records[i] corresponds to source line i+1.
func toRows(filePath string, records [][]string, opts Options) ([]types.Row, error) {
	start := 0
	for start < len(records) && isBlank(records[start]) {
		start++
	}
	if start > 0 {
		slog.Debug("skipped leading blank rows", "path", filePath, "count", start)
	}

	end := len(records)
	for end > start && isBlank(records[end-1]) {
		end--
	}

	if opts.HasHeader && start < end {
		start++
	}

	need := max(opts.NameColumn, opts.TextColumn) + 1
	rows := make([]types.Row, 0, end-start)

	for i := start; i < end; i++ {
		record := records[i]
		line := i + 1

		if len(record) < need {
			return nil, &types.MalformedRowError{
				Path:   filePath,
				Line:   line,
				Reason: fmt.Sprintf("expected at least %d columns, got %d", need, len(record)),
			}
		}

		name := strings.TrimSpace(record[opts.NameColumn])
		text := record[opts.TextColumn]
		if !utf8.ValidString(name) || !utf8.ValidString(text) {
			return nil, &types.MalformedRowError{Path: filePath, Line: line, Reason: "not valid UTF-8"}
		}

		if name == "" {
			return nil, &types.MalformedRowError{Path: filePath, Line: line, Reason: "empty name"}
		}

		if strings.ContainsAny(text, "\r\n") {
			return nil, &types.MalformedRowError{Path: filePath, Line: line, Reason: "text contains a line break"}
		}

		rows = append(rows, types.Row{Name: name, Text: text, Line: line})
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
