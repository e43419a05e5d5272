package core

import "strings"

// Update commands. A nil field leaves the stored value unchanged; each Apply
// returns the merged record with derived fields recomputed.
type (
	LendingPatch struct {
		PersonName     *string            `json:"personName" validate:"omitempty,min=1,max=100"`
		Amount         *Money             `json:"amount" validate:"omitempty,gt=0"`
		Date           *Date              `json:"date"`
		Note           *string            `json:"note" validate:"omitempty,max=500"`
		Status         *TransactionStatus `json:"status" validate:"omitempty,oneof=pending partial paid"`
		Type           *TransactionType   `json:"type" validate:"omitempty,oneof=lending borrowing"`
		AmountReturned *Money             `json:"amountReturned" validate:"omitempty,gte=0"`
		ParentID       *string            `json:"parentId"`
	}

	ExpensePatch struct {
		Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
		Amount        *Money  `json:"amount" validate:"omitempty,gt=0"`
		Category      *string `json:"category" validate:"omitempty,min=1,max=100"`
		Date          *Date   `json:"date"`
		Note          *string `json:"note" validate:"omitempty,max=500"`
		PaymentMethod *string `json:"paymentMethod" validate:"omitempty,max=50"`
		ParentID      *string `json:"parentId"`
	}

	// InterestPatch has no TotalAmount: it is always derived.
	InterestPatch struct {
		PersonName *string `json:"personName" validate:"omitempty,min=1,max=100"`
		Principal  *Money  `json:"principal" validate:"omitempty,gte=0"`
		Interest   *Money  `json:"interest" validate:"omitempty,gte=0"`
		Date       *Date   `json:"date"`
		Remarks    *string `json:"remarks" validate:"omitempty,max=500"`
	}

	EarningPatch struct {
		SourceName  *string `json:"sourceName" validate:"omitempty,min=1,max=100"`
		EarningName *string `json:"earningName" validate:"omitempty,min=1,max=100"`
		Amount      *Money  `json:"amount" validate:"omitempty,gt=0"`
		Date        *Date   `json:"date"`
		Remarks     *string `json:"remarks" validate:"omitempty,max=500"`
	}

	// BalancePatch has no Amount: it follows the sub-ledger.
	BalancePatch struct {
		Type  *BalanceType `json:"type" validate:"omitempty,oneof=cash bank"`
		Label *string      `json:"label" validate:"omitempty,min=1,max=100"`
	}

	SubTransactionPatch struct {
		Type   *EntryType `json:"type" validate:"omitempty,oneof=credit debit"`
		Note   *string    `json:"note" validate:"omitempty,max=200"`
		Amount *Money     `json:"amount" validate:"omitempty,gte=0"`
		Date   *Date      `json:"date"`
	}
)

func (p LendingPatch) Apply(r LendingRecord) LendingRecord {
	setString(&r.PersonName, p.PersonName)
	set(&r.Amount, p.Amount)
	setDate(&r.Date, p.Date)
	setString(&r.Note, p.Note)
	set(&r.Status, p.Status)
	set(&r.Type, p.Type)
	set(&r.AmountReturned, p.AmountReturned)
	setString(&r.ParentID, p.ParentID)
	return r
}

func (p ExpensePatch) Apply(e Expense) Expense {
	setString(&e.Title, p.Title)
	set(&e.Amount, p.Amount)
	setString(&e.Category, p.Category)
	setDate(&e.Date, p.Date)
	setString(&e.Note, p.Note)
	setString(&e.PaymentMethod, p.PaymentMethod)
	setString(&e.ParentID, p.ParentID)
	return e
}

func (p InterestPatch) Apply(r InterestRecord) InterestRecord {
	setString(&r.PersonName, p.PersonName)
	set(&r.Principal, p.Principal)
	set(&r.Interest, p.Interest)
	setDate(&r.Date, p.Date)
	setString(&r.Remarks, p.Remarks)
	r.Derive()
	return r
}

func (p EarningPatch) Apply(r EarningRecord) EarningRecord {
	setString(&r.SourceName, p.SourceName)
	setString(&r.EarningName, p.EarningName)
	set(&r.Amount, p.Amount)
	setDate(&r.Date, p.Date)
	setString(&r.Remarks, p.Remarks)
	return r
}

// Apply leaves Amount and UpdatedAt to OtherBalance.Recompute.
func (p BalancePatch) Apply(b OtherBalance) OtherBalance {
	set(&b.Type, p.Type)
	setString(&b.Label, p.Label)
	return b
}

func (p SubTransactionPatch) Apply(t SubTransaction) SubTransaction {
	set(&t.Type, p.Type)
	setString(&t.Note, p.Note)
	set(&t.Amount, p.Amount)
	setDate(&t.Date, p.Date)
	return t
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

// setDate ignores an explicit empty date so a record never loses its day.
func setDate(dst *Date, v *Date) {
	if v != nil && !v.IsZero() {
		*dst = *v
	}
}
