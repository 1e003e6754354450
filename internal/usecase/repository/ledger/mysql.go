package ledger

import (
	"context"
	"errors"
	"time"

	sqlmysql "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/1001R/bpm/internal/entity"
	"github.com/1001R/bpm/pkg/mysql"
)

// appendAttempts bounds the retry loop around deadlocked append
// transactions before giving up with entity.ConflictErr.
const appendAttempts = 3

type sqlAccount struct {
	ID        string `gorm:"primaryKey;size:64"`
	Balance   int64
	UpdatedAt int64 `gorm:"autoUpdateTime:milli"`
}

func (*sqlAccount) TableName() string {
	return "accounts"
}

type sqlTransaction struct {
	Seq         uint64 `gorm:"primaryKey;autoIncrement"`
	RefID       string `gorm:"column:ref_id;size:36;uniqueIndex"`
	AccountID   string `gorm:"size:64;index:idx_account_tstamp,priority:1"`
	SubjectID   string `gorm:"size:64"`
	Tstamp      int64  `gorm:"index:idx_account_tstamp,priority:2"` // unix nanoseconds, UTC
	Amount      int64
	Description string `gorm:"size:255"`
}

func (*sqlTransaction) TableName() string {
	return "transactions"
}

type MySQLRepository struct {
	client *mysql.Client
}

func NewMySQL(client *mysql.Client) (*MySQLRepository, error) {
	if err := client.DB().AutoMigrate(&sqlAccount{}, &sqlTransaction{}); err != nil {
		return nil, err
	}
	return &MySQLRepository{
		client: client,
	}, nil
}

func (r *MySQLRepository) CreateAccount(ctx context.Context, accountID string) error {
	account := sqlAccount{ID: accountID}
	return r.client.DB().WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account).Error
}

func (r *MySQLRepository) Balance(ctx context.Context, accountID string) (int64, error) {
	var account sqlAccount
	err := r.client.DB().WithContext(ctx).Where("id = ?", accountID).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, entity.AccountNotFoundErr
	}
	if err != nil {
		return 0, err
	}
	return account.Balance, nil
}

// Append locks the account row for the duration of the transaction, so
// concurrent appends on one account serialize instead of losing an
// update.
func (r *MySQLRepository) Append(ctx context.Context, tran entity.Transaction) (entity.Transaction, error) {
	var row sqlTransaction
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		err = r.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var account sqlAccount
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ?", tran.AccountID).
				First(&account).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return entity.AccountNotFoundErr
			}
			if err != nil {
				return err
			}

			account.Balance += tran.Amount
			if err := tx.Save(&account).Error; err != nil {
				return err
			}

			row = sqlTransaction{
				RefID:       tran.ID,
				AccountID:   tran.AccountID,
				SubjectID:   tran.SubjectID,
				Tstamp:      time.Now().UTC().UnixNano(),
				Amount:      tran.Amount,
				Description: tran.Description,
			}
			return tx.Create(&row).Error
		})
		if !retryable(err) {
			break
		}
	}

	if retryable(err) {
		return entity.Transaction{}, entity.ConflictErr
	}
	if err != nil {
		return entity.Transaction{}, err
	}

	tran.Seq = row.Seq
	tran.Timestamp = time.Unix(0, row.Tstamp).UTC()
	return tran, nil
}

func (r *MySQLRepository) Page(ctx context.Context, accountID string, cursor entity.Cursor) (entity.Page, error) {
	db := r.client.DB().WithContext(ctx)

	var count int64
	if err := db.Model(&sqlAccount{}).Where("id = ?", accountID).Count(&count).Error; err != nil {
		return entity.Page{}, err
	}
	if count == 0 {
		return entity.Page{}, entity.AccountNotFoundErr
	}

	query := db.Where("account_id = ?", accountID).Limit(entity.PageSize)
	boundary := cursor.Time.UnixNano()
	switch cursor.Direction {
	case entity.OlderPage:
		query = query.
			Where("tstamp < ? OR (tstamp = ? AND seq < ?)", boundary, boundary, cursor.Seq).
			Order("tstamp DESC, seq DESC")
	case entity.NewerPage:
		query = query.
			Where("tstamp > ? OR (tstamp = ? AND seq > ?)", boundary, boundary, cursor.Seq).
			Order("tstamp ASC, seq ASC")
	default:
		query = query.Order("tstamp DESC, seq DESC")
	}

	var rows []sqlTransaction
	if err := query.Find(&rows).Error; err != nil {
		return entity.Page{}, err
	}

	var page entity.Page
	for _, row := range rows {
		page.Transactions = append(page.Transactions, entity.Transaction{
			ID:          row.RefID,
			AccountID:   row.AccountID,
			SubjectID:   row.SubjectID,
			Timestamp:   time.Unix(0, row.Tstamp).UTC(),
			Seq:         row.Seq,
			Amount:      row.Amount,
			Description: row.Description,
		})
	}

	if cursor.Direction == entity.NewerPage {
		// fetched ascending, display order is descending
		reverse(page.Transactions)
	} else {
		page.LastPage = len(page.Transactions) < entity.PageSize
	}
	return page, nil
}

// retryable reports MySQL deadlock and lock-wait-timeout failures.
func retryable(err error) bool {
	var sqlErr *sqlmysql.MySQLError
	if errors.As(err, &sqlErr) {
		return sqlErr.Number == 1205 || sqlErr.Number == 1213
	}
	return false
}
