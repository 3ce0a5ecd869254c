package exporter

import (
	"bufio"
	"bytes"
	"fmt"
	"go/format"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/nconklindev/stringtable/internal/table"
	"github.com/nconklindev/stringtable/internal/types"
)

const DefaultTool = "stringtable"

type Format int

const (
	// FormatC emits "#define NAME n" lines behind #pragma once.
	FormatC Format = iota
	// FormatGo emits a const block.
	FormatGo
)

func (f Format) String() string {
	switch f {
	case FormatGo:
		return "go"
	default:
		return "c"
	}
}

// Ext returns the conventional extension for a definitions file.
func (f Format) Ext() string {
	if f == FormatGo {
		return ".go"
	}
	return ".h"
}

// ParseFormat maps a flag value onto a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "c", "h", "cpp", "c++":
		return FormatC, nil
	case "go":
		return FormatGo, nil
	default:
		return FormatC, fmt.Errorf("unknown format %q (want c or go)", s)
	}
}

type Options struct {
	Format  Format
	Package string
	Tool    string
	Table   table.Options
}

func DefaultOptions() Options {
	return Options{
		Format:  FormatC,
		Package: DefaultTool,
		Tool:    DefaultTool,
		Table:   table.DefaultOptions(),
	}
}

// Export reads inputFile and writes the definitions and text artifacts.
// Progress in [0,1] is sent on progressChan without blocking; it may be nil.
func Export(inputFile, definitionsFile, textFile string, opts Options, progressChan chan<- float64) (*types.ExportResult, error) {
	tbl, err := table.Read(inputFile, opts.Table)
	if err != nil {
		return nil, err
	}

	return Write(tbl, definitionsFile, textFile, opts, progressChan)
}

// Write renders tbl into the two output files, overwriting them.
func Write(tbl *types.Table, definitionsFile, textFile string, opts Options, progressChan chan<- float64) (*types.ExportResult, error) {
	slog.Debug("export started",
		"input", tbl.Source,
		"definitions", definitionsFile,
		"text", textFile,
		"rows", len(tbl.Rows),
		"format", opts.Format.String(),
	)

	defsOut, err := create(definitionsFile)
	if err != nil {
		return nil, err
	}
	defer defsOut.file.Close()

	textOut, err := create(textFile)
	if err != nil {
		return nil, err
	}
	defer textOut.file.Close()

	if err := Render(tbl, defsOut, textOut, opts, progressChan); err != nil {
		return nil, err
	}

	if err := defsOut.close(); err != nil {
		return nil, err
	}
	if err := textOut.close(); err != nil {
		return nil, err
	}

	slog.Info("export finished",
		"input", tbl.Source,
		"rows", len(tbl.Rows),
		"definitions_bytes", defsOut.n,
		"text_bytes", textOut.n,
	)

	return &types.ExportResult{
		InputFile:        tbl.Source,
		DefinitionsFile:  definitionsFile,
		TextFile:         textFile,
		Sheet:            tbl.Sheet,
		RowsExported:     len(tbl.Rows),
		DefinitionsBytes: defsOut.n,
		TextBytes:        textOut.n,
	}, nil
}

// Render writes both artifacts for tbl. Row i becomes constant value i and
// line i of the text artifact. Go definitions are gofmt-formatted before
// they reach defs.
func Render(tbl *types.Table, defs, text io.Writer, opts Options, progressChan chan<- float64) error {
	tool := opts.Tool
	if tool == "" {
		tool = DefaultTool
	}

	out := defs
	var goBuf bytes.Buffer
	if opts.Format == FormatGo {
		out = &goBuf
	}

	var hdr strings.Builder
	if opts.Format == FormatGo {
		hdr.WriteString("// Code generated by " + tool + ". DO NOT EDIT.\n")
	}
	hdr.WriteString("// Generated code exported from " + tool + ".\n")
	hdr.WriteString("// DO NOT modify this manually! Edit the corresponding source table instead!\n")
	hdr.WriteString("\n")

	switch opts.Format {
	case FormatGo:
		pkg := opts.Package
		if pkg == "" {
			pkg = DefaultTool
		}
		hdr.WriteString("package " + pkg + "\n")
		if len(tbl.Rows) > 0 {
			hdr.WriteString("\nconst (\n")
		}
	default:
		hdr.WriteString("#pragma once\n\n")
	}

	if _, err := io.WriteString(out, hdr.String()); err != nil {
		return err
	}

	total := len(tbl.Rows)
	for i, row := range tbl.Rows {
		var line string
		if opts.Format == FormatGo {
			line = "\t" + row.Name + " = " + strconv.Itoa(i) + "\n"
		} else {
			line = "#define " + row.Name + " " + strconv.Itoa(i) + "\n"
		}

		if _, err := io.WriteString(out, line); err != nil {
			return err
		}
		if _, err := io.WriteString(text, row.Text+"\n"); err != nil {
			return err
		}

		if progressChan != nil {
			select {
			case progressChan <- float64(i+1) / float64(total):
			default:
			}
		}
	}

	if opts.Format != FormatGo {
		return nil
	}

	if total > 0 {
		goBuf.WriteString(")\n")
	}
	src, err := format.Source(goBuf.Bytes())
	if err != nil {
		return fmt.Errorf("format Go definitions: %w", err)
	}
	_, err = defs.Write(src)
	return err
}

// output is a buffered file that reports failures as OutputWriteError and
// counts the bytes written.
type output struct {
	path string
	file *os.File
	buf  *bufio.Writer
	n    int64
}

func create(path string) (*output, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, &types.OutputWriteError{Path: path, Err: err}
	}
	return &output{path: path, file: f, buf: bufio.NewWriter(f)}, nil
}

func (o *output) Write(p []byte) (int, error) {
	n, err := o.buf.Write(p)
	o.n += int64(n)
	if err != nil {
		return n, &types.OutputWriteError{Path: o.path, Err: err}
	}
	return n, nil
}

func (o *output) close() error {
	if err := o.buf.Flush(); err != nil {
		return &types.OutputWriteError{Path: o.path, Err: err}
	}
	if err := o.file.Close(); err != nil {
		return &types.OutputWriteError{Path: o.path, Err: err}
	}
	return nil
}
