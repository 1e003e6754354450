package usecase

import (
	"context"

	"github.com/1001R/bpm/internal/entity"
)

type ledgerRepository interface {
	Balance(ctx context.Context, accountID string) (int64, error)
	// Append atomically adds tran.Amount to the account balance and
	// inserts the transaction row, all-or-nothing. The returned
	// transaction carries the store-assigned timestamp and sequence.
	Append(ctx context.Context, tran entity.Transaction) (entity.Transaction, error)
	Page(ctx context.Context, accountID string, cursor entity.Cursor) (entity.Page, error)
}

type idempotenceRepository interface {
	// MakeRecord return true if it was first time to call this method with same id
	MakeRecord(string) (bool, error)
}

type userstateRepository interface {
	Get(int64) (entity.UserState, error)
	Save(int64, entity.UserState) error
}

type eventPublisher interface {
	Publish(ctx context.Context, event any) error
}
