package core

import "github.com/google/uuid"

const (
	PrefixTransaction    = "txn_"
	PrefixExpense        = "exp_"
	PrefixInterest       = "int_"
	PrefixEarning        = "earn_"
	PrefixBalance        = "bal_"
	PrefixSubTransaction = "sub_"
)

// NewID returns a fresh identifier carrying the record kind prefix.
func NewID(prefix string) string {
	return prefix + uuid.NewString()
}
