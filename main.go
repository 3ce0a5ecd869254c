package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nconklindev/stringtable/internal/exporter"
	"github.com/nconklindev/stringtable/internal/logging"
	"github.com/nconklindev/stringtable/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

// exportError marks a failure that has already been reported and that is
// not a usage problem.
type exportError struct {
	err error
}

func (e *exportError) Error() string { return e.err.Error() }

func (e *exportError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return exitOK
	}

	var exportErr *exportError
	if errors.As(err, &exportErr) {
		return exitFailure
	}

	fmt.Fprintln(stderr, ui.ErrorStyle.Render("Error: "+err.Error()))
	fmt.Fprint(stderr, cmd.UsageString())
	return exitUsage
}

func newRootCommand() *cobra.Command {
	var (
		interactive bool
		noHeader    bool
		verbose     bool
		sheet       string
		format      string
		pkg         string
	)

	cmd := &cobra.Command{
		Use:   "stringtable [flags] <input_file> <output_definitions_file> <output_text_file>",
		Short: "Export spreadsheet rows as integer constants and a string table",
		Long: `Export the rows of a spreadsheet (.xlsx, .xlsm, .csv) into two files:
a definitions file with one constant per row, valued by row index, and a
text file with the row's text on the matching line.

Run without arguments to pick the files interactively.

Examples:
  stringtable lang.xlsx lang.h lang.txt
  stringtable --format go --package msg --sheet English lang.xlsx lang.go lang.txt`,
		Version:       version,
		Args:          zeroOrThreeArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logging.Setup(level, cmd.ErrOrStderr())

			f, err := exporter.ParseFormat(format)
			if err != nil {
				return err
			}

			opts := exporter.DefaultOptions()
			opts.Format = f
			opts.Package = pkg
			opts.Table.Sheet = sheet
			opts.Table.HasHeader = !noHeader

			if interactive || len(args) == 0 {
				return runInteractive(cmd, opts)
			}

			return runExport(cmd, args, opts)
		},
	}

	cmd.SetVersionTemplate(fmt.Sprintf("stringtable {{.Version}}\ncommit: %s\nbuilt: %s\n", commit, date))

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "pick files interactively")
	cmd.Flags().BoolVar(&noHeader, "no-header", false, "treat the first row as data instead of a header")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "log diagnostic messages to stderr")
	cmd.Flags().StringVar(&sheet, "sheet", "", "worksheet to export (default: first sheet)")
	cmd.Flags().StringVar(&format, "format", "c", "definitions format: c or go")
	cmd.Flags().StringVar(&pkg, "package", exporter.DefaultTool, "package clause for --format go")

	return cmd
}

func zeroOrThreeArgs(cmd *cobra.Command, args []string) error {
	if len(args) != 0 && len(args) != 3 {
		return fmt.Errorf("accepts 0 or 3 arg(s), received %d", len(args))
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string, opts exporter.Options) error {
	result, err := exporter.Export(args[0], args[1], args[2], opts, nil)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.ErrorStyle.Render("✗"), err)
		return &exportError{err: err}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s rows from %s\n",
		ui.SuccessStyle.Render("✓ Exported"), humanize.Comma(int64(result.RowsExported)), result.InputFile)
	fmt.Fprintf(out, "  %s %s\n", result.DefinitionsFile, ui.MutedStyle.Render(humanize.Bytes(uint64(result.DefinitionsBytes))))
	fmt.Fprintf(out, "  %s %s\n", result.TextFile, ui.MutedStyle.Render(humanize.Bytes(uint64(result.TextBytes))))

	return nil
}

func runInteractive(cmd *cobra.Command, opts exporter.Options) error {
	logging.Discard()

	p := tea.NewProgram(ui.InitialModel(opts), tea.WithAltScreen(), tea.WithMouseCellMotion())
	final, err := p.Run()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return &exportError{err: err}
	}

	if m, ok := final.(ui.Model); ok && m.Err() != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %s\n", ui.ErrorStyle.Render("✗"), m.Err())
		return &exportError{err: m.Err()}
	}

	return nil
}
