package mocks

import "database/sql"

// TxArg is what the repository mocks record in place of a *sql.Tx. Argument
// diffs print it through String, so they never read the live transaction
// while database/sql still owns it.
type TxArg struct {
	tx *sql.Tx
}

// Tx wraps tx for recording.
func Tx(tx *sql.Tx) TxArg {
	return TxArg{tx: tx}
}

// Unwrap returns the recorded transaction.
func (a TxArg) Unwrap() *sql.Tx {
	return a.tx
}

func (a TxArg) String() string {
	if a.tx == nil {
		return "<nil *sql.Tx>"
	}
	return "*sql.Tx"
}
