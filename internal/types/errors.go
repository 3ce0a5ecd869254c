package types

import "fmt"

// InputReadError reports an input file that is missing, unreadable or not
// parseable as a table.
type InputReadError struct {
	Path string
	Err  error
}

func (e *InputReadError) Error() string {
	return fmt.Sprintf("input read error: %s: %v", e.Path, e.Err)
}

func (e *InputReadError) Unwrap() error { return e.Err }

// MalformedRowError reports a data row that cannot produce a name/text pair.
type MalformedRowError struct {
	Path   string
	Line   int
	Reason string
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row: %s: row %d: %s", e.Path, e.Line, e.Reason)
}

// OutputWriteError reports an output file that could not be created or written.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("output write error: %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }
