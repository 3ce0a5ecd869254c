package types

// Row is one data record of the input table. Line is the 1-based row
// number in the source file and is only used for diagnostics.
type Row struct {
	Name string
	Text string
	Line int
}

// Table holds the data rows of an input file in source order.
type Table struct {
	Source string
	Sheet  string
	Rows   []Row
}

type ExportResult struct {
	InputFile        string
	DefinitionsFile  string
	TextFile         string
	Sheet            string
	RowsExported     int
	DefinitionsBytes int64
	TextBytes        int64
}
