package events

import "time"

// TransactionAppended is emitted after a transaction has been committed
// to the ledger.
type TransactionAppended struct {
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	SubjectID     string    `json:"subject_id"`
	Amount        int64     `json:"amount"`
	Description   string    `json:"description"`
	Timestamp     time.Time `json:"timestamp"`
}
