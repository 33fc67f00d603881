package source

import "fmt"

// FetchError reports a record-table provider failure for a named table.
// Fetch errors abort the query; the engine never retries or coerces a
// failed table to empty.
type FetchError struct {
	Table string
	Err   error
}

// Error implements error.
func (e *FetchError) Error() string {
	return fmt.Sprintf("source: fetch table %q: %v", e.Table, e.Err)
}

// Unwrap exposes the underlying provider error.
func (e *FetchError) Unwrap() error {
	return e.Err
}

func fetchErr(table string, err error) error {
	if err == nil {
		return nil
	}
	return &FetchError{Table: table, Err: err}
}
