package core

import (
	"errors"
	"time"
)

const (
	Lending   TransactionType = "lending"
	Borrowing TransactionType = "borrowing"

	StatusPending TransactionStatus = "pending"
	StatusPartial TransactionStatus = "partial"
	StatusPaid    TransactionStatus = "paid"

	Cash BalanceType = "cash"
	Bank BalanceType = "bank"

	Credit EntryType = "credit"
	Debit  EntryType = "debit"
)

// Collection names one owner-scoped snapshot in the persistence layer.
type Collection string

const (
	Transactions  Collection = "transactions"
	Expenses      Collection = "expenses"
	Interest      Collection = "interest"
	Earnings      Collection = "earnings"
	OtherBalances Collection = "other-balances"
)

// Collections lists every snapshot kind in load order.
var Collections = []Collection{Transactions, Expenses, Interest, Earnings, OtherBalances}

// OpeningBalanceNote labels the credit inserted when a balance is created.
const OpeningBalanceNote = "Opening Balance"

type (
	TransactionType   string
	TransactionStatus string
	BalanceType       string
	EntryType         string

	// LendingRecord is money lent to or borrowed from a person.
	LendingRecord struct {
		ID             string            `json:"id"`
		PersonName     string            `json:"personName" validate:"required,max=100"`
		Amount         Money             `json:"amount" validate:"gt=0"`
		Date           Date              `json:"date"`
		Note           string            `json:"note,omitempty" validate:"max=500"`
		Status         TransactionStatus `json:"status" validate:"required,oneof=pending partial paid"`
		Type           TransactionType   `json:"type" validate:"required,oneof=lending borrowing"`
		AmountReturned Money             `json:"amountReturned" validate:"gte=0"`
		ParentID       string            `json:"parentId,omitempty"`
	}

	Expense struct {
		ID            string `json:"id"`
		Title         string `json:"title" validate:"required,max=200"`
		Amount        Money  `json:"amount" validate:"gt=0"`
		Category      string `json:"category" validate:"required,max=100"`
		Date          Date   `json:"date"`
		Note          string `json:"note,omitempty" validate:"max=500"`
		PaymentMethod string `json:"paymentMethod,omitempty" validate:"max=50"`
		ParentID      string `json:"parentId,omitempty"`
	}

	// InterestRecord keeps TotalAmount equal to Principal plus Interest.
	InterestRecord struct {
		ID          string `json:"id"`
		PersonName  string `json:"personName" validate:"required,max=100"`
		Principal   Money  `json:"principal" validate:"gte=0"`
		Interest    Money  `json:"interest" validate:"gte=0"`
		TotalAmount Money  `json:"totalAmount"`
		Date        Date   `json:"date"`
		Remarks     string `json:"remarks,omitempty" validate:"max=500"`
	}

	EarningRecord struct {
		ID          string `json:"id"`
		SourceName  string `json:"sourceName" validate:"required,max=100"`
		EarningName string `json:"earningName" validate:"required,max=100"`
		Amount      Money  `json:"amount" validate:"gt=0"`
		Date        Date   `json:"date"`
		Remarks     string `json:"remarks,omitempty" validate:"max=500"`
	}

	// OtherBalance is a cash or bank balance backed by its own sub-ledger.
	OtherBalance struct {
		ID           string           `json:"id"`
		Type         BalanceType      `json:"type" validate:"required,oneof=cash bank"`
		Label        string           `json:"label" validate:"required,max=100"`
		Amount       Money            `json:"amount" validate:"gte=0"`
		UpdatedAt    time.Time        `json:"updatedAt"`
		Transactions []SubTransaction `json:"transactions" validate:"-"`
	}

	SubTransaction struct {
		ID     string    `json:"id"`
		Type   EntryType `json:"type" validate:"required,oneof=credit debit"`
		Note   string    `json:"note" validate:"max=200"`
		Amount Money     `json:"amount" validate:"gte=0"`
		Date   Date      `json:"date"`
	}

	Profile struct {
		UserID      string    `json:"userId"`
		Email       string    `json:"email,omitempty" validate:"omitempty,email,max=254"`
		DisplayName string    `json:"displayName,omitempty" validate:"max=100"`
		PhotoURL    string    `json:"photoURL,omitempty" validate:"omitempty,url,max=2048"`
		CreatedAt   time.Time `json:"createdAt"`
		LastLoginAt time.Time `json:"lastLoginAt"`
	}
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidParent = errors.New("invalid parent")
	ErrUnavailable   = errors.New("collection unavailable")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// Remaining is the part of the amount not yet returned.
func (r LendingRecord) Remaining() Money {
	return r.Amount.Sub(r.AmountReturned)
}

// Settled reports whether nothing is left to return.
func (r LendingRecord) Settled() bool {
	return r.Amount.Cents <= r.AmountReturned.Cents
}

func (r LendingRecord) RecordID() string  { return r.ID }
func (r LendingRecord) ParentRef() string { return r.ParentID }
func (e Expense) RecordID() string        { return e.ID }
func (e Expense) ParentRef() string       { return e.ParentID }
func (r InterestRecord) RecordID() string { return r.ID }
func (r EarningRecord) RecordID() string  { return r.ID }
func (b OtherBalance) RecordID() string   { return b.ID }
func (t SubTransaction) RecordID() string { return t.ID }

// Derive recomputes TotalAmount.
func (r *InterestRecord) Derive() {
	r.TotalAmount = r.Principal.Add(r.Interest)
}

// Ledger returns credits minus debits over the sub-transactions.
func (b OtherBalance) Ledger() Money {
	var total Money
	for _, t := range b.Transactions {
		if t.Type == Credit {
			total = total.Add(t.Amount)
		} else {
			total = total.Sub(t.Amount)
		}
	}
	return total
}

// Recompute sets Amount from the sub-ledger and bumps UpdatedAt.
func (b *OtherBalance) Recompute(now time.Time) {
	b.Amount = b.Ledger()
	b.UpdatedAt = now
}

// Clone copies the balance including its sub-transactions.
func (b OtherBalance) Clone() OtherBalance {
	out := b
	out.Transactions = append([]SubTransaction(nil), b.Transactions...)
	if out.Transactions == nil {
		out.Transactions = []SubTransaction{}
	}
	return out
}

// IsValid reports whether the collection name is known.
func (c Collection) IsValid() bool {
	for _, known := range Collections {
		if c == known {
			return true
		}
	}
	return false
}

func (c Collection) String() string {
	return string(c)
}
