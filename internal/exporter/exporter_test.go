package exporter

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"go/format"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/nconklindev/stringtable/internal/types"

	"github.com/xuri/excelize/v2"
)

const banner = "// Generated code exported from stringtable.\n" +
	"// DO NOT modify this manually! Edit the corresponding source table instead!\n"

func writeInputCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(append([][]string{{"Name", "Text"}}, rows...)); err != nil {
		t.Fatal(err)
	}
	f.Close()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		t.Fatal(err)
	}
	return lines
}

// defines extracts the (name, value) pairs of every #define directive.
func defines(t *testing.T, path string) ([]string, []int) {
	t.Helper()
	var names []string
	var values []int
	for _, line := range readLines(t, path) {
		if !strings.HasPrefix(line, "#define ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 3 {
			t.Fatalf("Malformed directive %q", line)
		}
		v, err := strconv.Atoi(fields[2])
		if err != nil {
			t.Fatalf("Non-integer value in %q", line)
		}
		names = append(names, fields[1])
		values = append(values, v)
	}
	return names, values
}

func TestExport_Scenario(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "strings.csv")
	defsFile := filepath.Join(tmpDir, "strings.h")
	textFile := filepath.Join(tmpDir, "strings.txt")

	writeInputCSV(t, input, [][]string{
		{"OK", "Success"},
		{"FAIL", "Failure occurred"},
	})

	result, err := Export(input, defsFile, textFile, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if result.RowsExported != 2 {
		t.Errorf("Expected 2 rows exported, got %d", result.RowsExported)
	}

	defs, err := os.ReadFile(defsFile)
	if err != nil {
		t.Fatal(err)
	}
	expectedDefs := banner + "\n#pragma once\n\n#define OK 0\n#define FAIL 1\n"
	if string(defs) != expectedDefs {
		t.Errorf("Definitions mismatch:\n got: %q\nwant: %q", defs, expectedDefs)
	}

	text, err := os.ReadFile(textFile)
	if err != nil {
		t.Fatal(err)
	}
	if string(text) != "Success\nFailure occurred\n" {
		t.Errorf("Unexpected text artifact %q", text)
	}

	if result.DefinitionsBytes != int64(len(defs)) {
		t.Errorf("Expected %d definitions bytes, got %d", len(defs), result.DefinitionsBytes)
	}
	if result.TextBytes != int64(len(text)) {
		t.Errorf("Expected %d text bytes, got %d", len(text), result.TextBytes)
	}
}

func TestExport_RowCounts(t *testing.T) {
	tests := []struct {
		name string
		rows int
	}{
		{"Zero rows", 0},
		{"One row", 1},
		{"Many rows", 250},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			input := filepath.Join(tmpDir, "strings.csv")
			defsFile := filepath.Join(tmpDir, "strings.h")
			textFile := filepath.Join(tmpDir, "strings.txt")

			var rows [][]string
			for i := 0; i < tt.rows; i++ {
				rows = append(rows, []string{fmt.Sprintf("STR_%d", i), fmt.Sprintf("text, number %d", i)})
			}
			writeInputCSV(t, input, rows)

			if _, err := Export(input, defsFile, textFile, DefaultOptions(), nil); err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			// Row i must round-trip through line i of both artifacts.
			names, values := defines(t, defsFile)
			lines := readLines(t, textFile)
			if len(names) != tt.rows {
				t.Fatalf("Expected %d directives, got %d", tt.rows, len(names))
			}
			if len(lines) != tt.rows {
				t.Fatalf("Expected %d text lines, got %d", tt.rows, len(lines))
			}
			for i := range rows {
				if values[i] != i {
					t.Errorf("Directive %d has value %d", i, values[i])
				}
				if names[i] != rows[i][0] || lines[i] != rows[i][1] {
					t.Errorf("Row %d: expected (%s, %s), got (%s, %s)", i, rows[i][0], rows[i][1], names[i], lines[i])
				}
			}

			if tt.rows == 0 {
				defs, _ := os.ReadFile(defsFile)
				if string(defs) != banner+"\n#pragma once\n\n" {
					t.Errorf("Expected banner only, got %q", defs)
				}
				info, err := os.Stat(textFile)
				if err != nil {
					t.Fatal(err)
				}
				if info.Size() != 0 {
					t.Errorf("Expected empty text artifact, got %d bytes", info.Size())
				}
			}
		})
	}
}

func TestExport_Idempotent(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "strings.xlsx")
	defsFile := filepath.Join(tmpDir, "strings.h")
	textFile := filepath.Join(tmpDir, "strings.txt")

	f := excelize.NewFile()
	f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Name", "Text"})
	f.SetSheetRow("Sheet1", "A2", &[]interface{}{"OK", "Success"})
	f.SetSheetRow("Sheet1", "A3", &[]interface{}{"FAIL", "Failure occurred"})
	if err := f.SaveAs(input); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := Export(input, defsFile, textFile, DefaultOptions(), nil); err != nil {
		t.Fatalf("First export failed: %v", err)
	}
	firstDefs, _ := os.ReadFile(defsFile)
	firstText, _ := os.ReadFile(textFile)

	result, err := Export(input, defsFile, textFile, DefaultOptions(), nil)
	if err != nil {
		t.Fatalf("Second export failed: %v", err)
	}
	secondDefs, _ := os.ReadFile(defsFile)
	secondText, _ := os.ReadFile(textFile)

	if !bytes.Equal(firstDefs, secondDefs) || !bytes.Equal(firstText, secondText) {
		t.Error("Expected byte-identical outputs across runs")
	}
	if result.Sheet != "Sheet1" {
		t.Errorf("Expected sheet Sheet1, got %q", result.Sheet)
	}
}

func TestExport_MissingInput(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "missing.xlsx")
	defsFile := filepath.Join(tmpDir, "strings.h")
	textFile := filepath.Join(tmpDir, "strings.txt")

	_, err := Export(input, defsFile, textFile, DefaultOptions(), nil)
	var readErr *types.InputReadError
	if !errors.As(err, &readErr) {
		t.Fatalf("Expected InputReadError, got %v", err)
	}

	for _, path := range []string{defsFile, textFile} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("Expected %s not to be created", path)
		}
	}
}

func TestExport_MalformedRowCreatesNoOutput(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "strings.csv")
	defsFile := filepath.Join(tmpDir, "strings.h")
	textFile := filepath.Join(tmpDir, "strings.txt")

	writeInputCSV(t, input, [][]string{{"OK", "Success"}, {"BROKEN"}})

	_, err := Export(input, defsFile, textFile, DefaultOptions(), nil)
	var rowErr *types.MalformedRowError
	if !errors.As(err, &rowErr) {
		t.Fatalf("Expected MalformedRowError, got %v", err)
	}
	if _, err := os.Stat(defsFile); !os.IsNotExist(err) {
		t.Error("Expected no definitions file")
	}
}

func TestExport_OutputWriteError(t *testing.T) {
	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "strings.csv")
	writeInputCSV(t, input, [][]string{{"OK", "Success"}})

	missingDir := filepath.Join(tmpDir, "no-such-dir")

	tests := []struct {
		name     string
		defsFile string
		textFile string
		badPath  string
	}{
		{
			name:     "Definitions path",
			defsFile: filepath.Join(missingDir, "strings.h"),
			textFile: filepath.Join(tmpDir, "strings.txt"),
			badPath:  filepath.Join(missingDir, "strings.h"),
		},
		{
			name:     "Text path",
			defsFile: filepath.Join(tmpDir, "strings.h"),
			textFile: filepath.Join(missingDir, "strings.txt"),
			badPath:  filepath.Join(missingDir, "strings.txt"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Export(input, tt.defsFile, tt.textFile, DefaultOptions(), nil)
			var writeErr *types.OutputWriteError
			if !errors.As(err, &writeErr) {
				t.Fatalf("Expected OutputWriteError, got %v", err)
			}
			if writeErr.Path != tt.badPath {
				t.Errorf("Expected path %s, got %s", tt.badPath, writeErr.Path)
			}
		})
	}
}

func TestRender_GoFormat(t *testing.T) {
	goBanner := "// Code generated by stringtable. DO NOT EDIT.\n" + banner

	tests := []struct {
		name     string
		rows     []types.Row
		expected string
	}{
		{
			name: "Two rows",
			rows: []types.Row{{Name: "OK", Text: "Success"}, {Name: "FAIL", Text: "Failure occurred"}},
			expected: goBanner + "\npackage msg\n\nconst (\n" +
				"\tOK   = 0\n" +
				"\tFAIL = 1\n" +
				")\n",
		},
		{
			name:     "No rows",
			rows:     nil,
			expected: goBanner + "\npackage msg\n",
		},
	}

	generated := regexp.MustCompile(`(?m)^// Code generated .* DO NOT EDIT\.$`)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Format = FormatGo
			opts.Package = "msg"

			var defs, text bytes.Buffer
			if err := Render(&types.Table{Rows: tt.rows}, &defs, &text, opts, nil); err != nil {
				t.Fatalf("Render failed: %v", err)
			}
			if defs.String() != tt.expected {
				t.Errorf("Definitions mismatch:\n got: %q\nwant: %q", defs.String(), tt.expected)
			}

			formatted, err := format.Source(defs.Bytes())
			if err != nil {
				t.Fatalf("Generated Go does not parse: %v", err)
			}
			if !bytes.Equal(formatted, defs.Bytes()) {
				t.Errorf("Generated Go is not gofmt-clean:\n got: %q\nwant: %q", defs.String(), formatted)
			}
			if !generated.Match(defs.Bytes()) {
				t.Error("Expected a standard generated-code marker")
			}
		})
	}
}

func TestRender_GoFormatInvalidName(t *testing.T) {
	opts := DefaultOptions()
	opts.Format = FormatGo

	var defs, text bytes.Buffer
	err := Render(&types.Table{Rows: []types.Row{{Name: "NOT VALID", Text: "x"}}}, &defs, &text, opts, nil)
	if err == nil {
		t.Fatal("Expected an error for a name that is not a Go identifier")
	}
	if defs.Len() != 0 {
		t.Errorf("Expected nothing written on format failure, got %q", defs.String())
	}
}

func TestRender_Progress(t *testing.T) {
	rows := make([]types.Row, 4)
	for i := range rows {
		rows[i] = types.Row{Name: fmt.Sprintf("S%d", i), Text: "x"}
	}

	progressChan := make(chan float64, len(rows))
	var defs, text bytes.Buffer
	if err := Render(&types.Table{Rows: rows}, &defs, &text, DefaultOptions(), progressChan); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	close(progressChan)

	var last float64
	count := 0
	for p := range progressChan {
		if p <= last {
			t.Errorf("Progress not increasing: %f after %f", p, last)
		}
		last = p
		count++
	}
	if count != len(rows) {
		t.Errorf("Expected %d progress updates, got %d", len(rows), count)
	}
	if last != 1 {
		t.Errorf("Expected final progress 1, got %f", last)
	}
}

func TestRender_CustomTool(t *testing.T) {
	opts := DefaultOptions()
	opts.Tool = "LangExporter"

	var defs, text bytes.Buffer
	if err := Render(&types.Table{}, &defs, &text, opts, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.HasPrefix(defs.String(), "// Generated code exported from LangExporter.\n") {
		t.Errorf("Unexpected banner %q", defs.String())
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected Format
		wantErr  bool
	}{
		{"", FormatC, false},
		{"c", FormatC, false},
		{"C++", FormatC, false},
		{"go", FormatGo, false},
		{" Go ", FormatGo, false},
		{"rust", FormatC, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v; wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseFormat(%q) = %v; want %v", tt.input, got, tt.expected)
			}
		})
	}
}
