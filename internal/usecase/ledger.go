package usecase

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/1001R/bpm/internal/amount"
	"github.com/1001R/bpm/internal/entity"
	"github.com/1001R/bpm/internal/events"
)

type GetBalance struct {
	repo ledgerRepository
}

func NewGetBalance(repo ledgerRepository) *GetBalance {
	return &GetBalance{
		repo: repo,
	}
}

func (g *GetBalance) Execute(ctx context.Context, accountID string) (int64, error) {
	return g.repo.Balance(ctx, accountID)
}

type FetchPage struct {
	repo ledgerRepository
}

func NewFetchPage(repo ledgerRepository) *FetchPage {
	return &FetchPage{
		repo: repo,
	}
}

func (f *FetchPage) Execute(ctx context.Context, accountID string, cursor entity.Cursor) (entity.Page, error) {
	return f.repo.Page(ctx, accountID, cursor)
}

type GetStatement struct {
	repo ledgerRepository
}

func NewGetStatement(repo ledgerRepository) *GetStatement {
	return &GetStatement{
		repo: repo,
	}
}

// Execute returns the balance together with one page of history, the
// view a caller needs to render an account.
func (g *GetStatement) Execute(ctx context.Context, accountID string, cursor entity.Cursor) (int64, entity.Page, error) {
	balance, err := g.repo.Balance(ctx, accountID)
	if err != nil {
		return 0, entity.Page{}, err
	}
	page, err := g.repo.Page(ctx, accountID, cursor)
	if err != nil {
		return 0, entity.Page{}, err
	}
	return balance, page, nil
}

type AppendTransaction struct {
	repo      ledgerRepository
	publisher eventPublisher
}

// NewAppendTransaction wires the append operation; publisher may be nil
// when no event sink is configured.
func NewAppendTransaction(repo ledgerRepository, publisher eventPublisher) *AppendTransaction {
	return &AppendTransaction{
		repo:      repo,
		publisher: publisher,
	}
}

// Execute books a signed amount against the account. Positive amounts
// are deposits, negative ones withdrawals; the balance may go negative.
func (a *AppendTransaction) Execute(ctx context.Context, accountID, subjectID string, amountMinor int64, description string) error {
	if amountMinor == 0 {
		return amount.InvalidAmountErr
	}

	committed, err := a.repo.Append(ctx, entity.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		SubjectID:   subjectID,
		Amount:      amountMinor,
		Description: description,
	})
	if err != nil {
		return err
	}

	if a.publisher != nil {
		event := events.TransactionAppended{
			TransactionID: committed.ID,
			AccountID:     committed.AccountID,
			SubjectID:     committed.SubjectID,
			Amount:        committed.Amount,
			Description:   committed.Description,
			Timestamp:     committed.Timestamp,
		}
		// the append is committed at this point, the event is advisory
		if err := a.publisher.Publish(ctx, event); err != nil {
			log.Printf("publish transaction event: %v", err)
		}
	}
	return nil
}
