package ledger

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/1001R/bpm/internal/entity"
)

var (
	accountsBucketName     = []byte("accounts")
	transactionsBucketName = []byte("transactions")
)

// BoltDBRepository keeps accounts and their transaction logs in a bbolt
// file. Each account owns a nested bucket whose keys order the log by
// (timestamp, seq), so bucket cursors walk the history natively.
type BoltDBRepository struct {
	db *bolt.DB
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(accountsBucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(transactionsBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db}, nil
}

// CreateAccount provisions an empty account. It is a no-op when the
// account already exists.
func (r *BoltDBRepository) CreateAccount(_ context.Context, accountID string) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(accountsBucketName)
		if bucket.Get([]byte(accountID)) != nil {
			return nil
		}

		raw, err := json.Marshal(entity.Account{ID: accountID})
		if err != nil {
			return err
		}
		return bucket.Put([]byte(accountID), raw)
	})
}

func (r *BoltDBRepository) Balance(_ context.Context, accountID string) (int64, error) {
	var account entity.Account

	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(accountsBucketName).Get([]byte(accountID))
		if raw == nil {
			return entity.AccountNotFoundErr
		}
		return json.Unmarshal(raw, &account)
	})

	if err != nil {
		return 0, err
	}

	return account.Balance, nil
}

// Append books the transaction inside a single bolt update: the balance
// write and the row insert commit or roll back together.
func (r *BoltDBRepository) Append(_ context.Context, tran entity.Transaction) (entity.Transaction, error) {
	err := r.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket(accountsBucketName)
		key := []byte(tran.AccountID)

		raw := accounts.Get(key)
		if raw == nil {
			return entity.AccountNotFoundErr
		}
		var account entity.Account
		if err := json.Unmarshal(raw, &account); err != nil {
			return err
		}

		account.Balance += tran.Amount
		raw, err := json.Marshal(account)
		if err != nil {
			return err
		}
		if err := accounts.Put(key, raw); err != nil {
			return err
		}

		bucket, err := tx.Bucket(transactionsBucketName).CreateBucketIfNotExists(key)
		if err != nil {
			return err
		}
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}

		tran.Seq = seq
		tran.Timestamp = time.Now().UTC()
		// per-account order stays non-decreasing even if the clock steps back
		if last, _ := bucket.Cursor().Last(); last != nil {
			if t := keyTime(last); tran.Timestamp.Before(t) {
				tran.Timestamp = t
			}
		}

		rawTran, err := json.Marshal(tran)
		if err != nil {
			return err
		}
		return bucket.Put(txKey(tran.Timestamp, tran.Seq), rawTran)
	})

	if err != nil {
		return entity.Transaction{}, err
	}

	return tran, nil
}

// Page reads up to entity.PageSize transactions around the cursor
// boundary, newest first. An absent account is an error; an account
// with no history yields an empty last page.
func (r *BoltDBRepository) Page(_ context.Context, accountID string, cursor entity.Cursor) (entity.Page, error) {
	var page entity.Page

	err := r.db.View(func(tx *bolt.Tx) error {
		if tx.Bucket(accountsBucketName).Get([]byte(accountID)) == nil {
			return entity.AccountNotFoundErr
		}

		bucket := tx.Bucket(transactionsBucketName).Bucket([]byte(accountID))
		if bucket == nil {
			page.LastPage = true
			return nil
		}

		c := bucket.Cursor()

		if cursor.Direction == entity.NewerPage {
			boundary := txKey(cursor.Time, cursor.Seq)
			k, v := c.Seek(boundary)
			if k != nil && bytes.Equal(k, boundary) {
				k, v = c.Next()
			}
			for ; k != nil && len(page.Transactions) < entity.PageSize; k, v = c.Next() {
				if err := collect(&page, v); err != nil {
					return err
				}
			}
			// fetched ascending, display order is descending
			reverse(page.Transactions)
			return nil
		}

		var k, v []byte
		if cursor.Direction == entity.OlderPage {
			boundary := txKey(cursor.Time, cursor.Seq)
			if k, v = c.Seek(boundary); k == nil {
				k, v = c.Last()
			} else {
				k, v = c.Prev()
			}
		} else {
			k, v = c.Last()
		}
		for ; k != nil && len(page.Transactions) < entity.PageSize; k, v = c.Prev() {
			if err := collect(&page, v); err != nil {
				return err
			}
		}
		page.LastPage = len(page.Transactions) < entity.PageSize
		return nil
	})

	if err != nil {
		return entity.Page{}, err
	}

	return page, nil
}

func collect(page *entity.Page, raw []byte) error {
	var tran entity.Transaction
	if err := json.Unmarshal(raw, &tran); err != nil {
		return err
	}
	page.Transactions = append(page.Transactions, tran)
	return nil
}

func reverse(trans []entity.Transaction) {
	for i, j := 0, len(trans)-1; i < j; i, j = i+1, j-1 {
		trans[i], trans[j] = trans[j], trans[i]
	}
}

// txKey orders transactions by (timestamp, seq); the sequence number
// keeps simultaneous transactions from sharing a key.
func txKey(t time.Time, seq uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b, uint64(t.UnixNano()))
	binary.BigEndian.PutUint64(b[8:], seq)
	return b
}

func keyTime(key []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(key[:8]))).UTC()
}
