package memory

import (
	"context"
	"sort"
	"sync"

	ports "fintrack/internal/sheets"
)

// Writer keeps the last table written to each tab.
type Writer struct {
	mu     sync.Mutex
	tabs   map[string]ports.Table
	writes int
}

var _ ports.TableWriter = (*Writer)(nil)

func New() *Writer {
	return &Writer{tabs: make(map[string]ports.Table)}
}

// WriteTable replaces the tab content.
func (w *Writer) WriteTable(ctx context.Context, tab string, t ports.Table) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = append([]string(nil), r...)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tabs[tab] = ports.Table{Header: append([]string(nil), t.Header...), Rows: rows}
	w.writes++
	return nil
}

// Table returns the content of a tab.
func (w *Writer) Table(tab string) (ports.Table, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.tabs[tab]
	return t, ok
}

// Tabs lists written tab names, sorted.
func (w *Writer) Tabs() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tabs))
	for name := range w.tabs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Writes counts WriteTable calls.
func (w *Writer) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}
