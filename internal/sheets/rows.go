package sheets

import (
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// ownerPrefixLen bounds the owner part of a tab name.
const ownerPrefixLen = 8

// TabName returns the spreadsheet tab for an owner's collection,
// e.g. "expenses-a1b2c3d4".
func TabName(collection core.Collection, owner string) string {
	var b strings.Builder
	for _, r := range owner {
		if b.Len() >= ownerPrefixLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	prefix := b.String()
	if prefix == "" {
		prefix = "anon"
	}
	return string(collection) + "-" + prefix
}

// TableFor decodes a stored snapshot payload and flattens it into rows.
func TableFor(collection core.Collection, payload []byte) (Table, error) {
	switch collection {
	case core.Transactions:
		items, err := storage.DecodeCollection[core.LendingRecord](payload)
		if err != nil {
			return Table{}, err
		}
		t := Table{Header: []string{"ID", "Person", "Type", "Status", "Amount", "Returned", "Remaining", "Date", "Parent", "Note"}}
		for _, r := range items {
			t.Rows = append(t.Rows, []string{
				r.ID, r.PersonName, string(r.Type), string(r.Status),
				r.Amount.String(), r.AmountReturned.String(), r.Remaining().String(),
				day(r.Date), r.ParentID, r.Note,
			})
		}
		return t, nil
	case core.Expenses:
		items, err := storage.DecodeCollection[core.Expense](payload)
		if err != nil {
			return Table{}, err
		}
		t := Table{Header: []string{"ID", "Title", "Category", "Amount", "Date", "Payment", "Parent", "Note"}}
		for _, e := range items {
			t.Rows = append(t.Rows, []string{
				e.ID, e.Title, e.Category, e.Amount.String(), day(e.Date), e.PaymentMethod, e.ParentID, e.Note,
			})
		}
		return t, nil
	case core.Interest:
		items, err := storage.DecodeCollection[core.InterestRecord](payload)
		if err != nil {
			return Table{}, err
		}
		t := Table{Header: []string{"ID", "Person", "Principal", "Interest", "Total", "Date", "Remarks"}}
		for _, r := range items {
			t.Rows = append(t.Rows, []string{
				r.ID, r.PersonName, r.Principal.String(), r.Interest.String(), r.TotalAmount.String(), day(r.Date), r.Remarks,
			})
		}
		return t, nil
	case core.Earnings:
		items, err := storage.DecodeCollection[core.EarningRecord](payload)
		if err != nil {
			return Table{}, err
		}
		t := Table{Header: []string{"ID", "Source", "Earning", "Amount", "Date", "Remarks"}}
		for _, r := range items {
			t.Rows = append(t.Rows, []string{
				r.ID, r.SourceName, r.EarningName, r.Amount.String(), day(r.Date), r.Remarks,
			})
		}
		return t, nil
	case core.OtherBalances:
		items, err := storage.DecodeCollection[core.OtherBalance](payload)
		if err != nil {
			return Table{}, err
		}
		// One row per sub-transaction, balance columns repeated.
		t := Table{Header: []string{"ID", "Type", "Label", "Balance", "Updated", "Entry", "Entry Type", "Entry Amount", "Entry Date", "Note"}}
		for _, b := range items {
			updated := ""
			if !b.UpdatedAt.IsZero() {
				updated = b.UpdatedAt.UTC().Format(time.RFC3339)
			}
			if len(b.Transactions) == 0 {
				t.Rows = append(t.Rows, []string{b.ID, string(b.Type), b.Label, b.Amount.String(), updated, "", "", "", "", ""})
				continue
			}
			for _, s := range b.Transactions {
				t.Rows = append(t.Rows, []string{
					b.ID, string(b.Type), b.Label, b.Amount.String(), updated,
					s.ID, string(s.Type), s.Amount.String(), day(s.Date), s.Note,
				})
			}
		}
		return t, nil
	default:
		return Table{}, fmt.Errorf("unknown collection %q", collection)
	}
}

func day(d core.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.UTC().Format(core.DayLayout)
}

// Width is the column count of the widest row, header included.
func (t Table) Width() int {
	w := len(t.Header)
	for _, r := range t.Rows {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// ColumnName converts a 1-based column index to A1 letters.
func ColumnName(n int) string {
	if n <= 0 {
		return "A"
	}
	var out []byte
	for n > 0 {
		n--
		out = append([]byte{byte('A' + n%26)}, out...)
		n /= 26
	}
	return string(out)
}

// Len reports the total number of rows including the header.
func (t Table) Len() int { return len(t.Rows) + 1 }
