package sheets

import "context"

// Table is a rectangular export of one owner's collection.
type Table struct {
	Header []string
	Rows   [][]string
}

// Ports for outbound adapters.
type (
	// TableWriter replaces the whole content of a named tab.
	TableWriter interface {
		WriteTable(ctx context.Context, tab string, t Table) error
	}
)
