package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/1001R/bpm/internal/entity"
)

func newTestRepository(t *testing.T) *BoltDBRepository {
	t.Helper()

	db, err := bolt.Open(filepath.Join(t.TempDir(), "ledger.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	repo, err := NewBoltDB(db)
	if err != nil {
		t.Fatal(err)
	}
	return repo
}

func mustCreateAccount(t *testing.T, repo *BoltDBRepository, accountID string) {
	t.Helper()
	if err := repo.CreateAccount(context.Background(), accountID); err != nil {
		t.Fatal(err)
	}
}

func mustAppend(t *testing.T, repo *BoltDBRepository, accountID string, amount int64, description string) entity.Transaction {
	t.Helper()

	tran, err := repo.Append(context.Background(), entity.Transaction{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		SubjectID:   "42",
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tran
}

func mustPage(t *testing.T, repo *BoltDBRepository, accountID string, cursor entity.Cursor) entity.Page {
	t.Helper()

	page, err := repo.Page(context.Background(), accountID, cursor)
	if err != nil {
		t.Fatal(err)
	}
	return page
}

func TestMissingAccount(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if _, err := repo.Balance(ctx, "nobody"); !errors.Is(err, entity.AccountNotFoundErr) {
		t.Errorf("Balance error = %v, want AccountNotFoundErr", err)
	}

	_, err := repo.Append(ctx, entity.Transaction{ID: uuid.NewString(), AccountID: "nobody", Amount: 100})
	if !errors.Is(err, entity.AccountNotFoundErr) {
		t.Errorf("Append error = %v, want AccountNotFoundErr", err)
	}

	if _, err := repo.Page(ctx, "nobody", entity.Cursor{}); !errors.Is(err, entity.AccountNotFoundErr) {
		t.Errorf("Page error = %v, want AccountNotFoundErr", err)
	}
}

func TestCreateAccountIsIdempotent(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")
	mustAppend(t, repo, "family", 500, "pocket money")

	mustCreateAccount(t, repo, "family")

	balance, err := repo.Balance(context.Background(), "family")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 500 {
		t.Errorf("balance after re-create = %d, want 500", balance)
	}
}

func TestEmptyHistory(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")

	balance, err := repo.Balance(context.Background(), "family")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 0 {
		t.Errorf("balance = %d, want 0", balance)
	}

	page := mustPage(t, repo, "family", entity.Cursor{})
	if len(page.Transactions) != 0 {
		t.Errorf("got %d transactions, want none", len(page.Transactions))
	}
	if !page.LastPage {
		t.Error("empty history should be the last page")
	}
}

func TestBalanceFollowsAppends(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")

	amounts := []int64{500, -200, 1250, -1, -549}
	var want int64
	for _, a := range amounts {
		mustAppend(t, repo, "family", a, "x")
		want += a

		balance, err := repo.Balance(context.Background(), "family")
		if err != nil {
			t.Fatal(err)
		}
		if balance != want {
			t.Fatalf("balance = %d, want %d", balance, want)
		}
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")
	mustAppend(t, repo, "family", 500, "pocket money")
	mustAppend(t, repo, "family", -200, "cinema")

	page := mustPage(t, repo, "family", entity.Cursor{})
	if len(page.Transactions) != 2 {
		t.Fatalf("got %d transactions, want 2", len(page.Transactions))
	}
	if !page.LastPage {
		t.Error("two transactions should fit one page")
	}
	if page.Transactions[0].Amount != -200 || page.Transactions[1].Amount != 500 {
		t.Errorf("wrong order: %d, %d", page.Transactions[0].Amount, page.Transactions[1].Amount)
	}
	if page.Transactions[0].Description != "cinema" {
		t.Errorf("description = %q, want cinema", page.Transactions[0].Description)
	}
}

func before(a, b entity.Transaction) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.Seq < b.Seq
}

func TestPaginationNoGapNoOverlap(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")

	appended := make(map[string]bool)
	for i := 0; i < 25; i++ {
		tran := mustAppend(t, repo, "family", int64(i+1), "x")
		appended[tran.ID] = true
	}

	var all []entity.Transaction

	page := mustPage(t, repo, "family", entity.Cursor{})
	for {
		all = append(all, page.Transactions...)
		if page.LastPage {
			break
		}
		if len(page.Transactions) != entity.PageSize {
			t.Fatalf("non-last page holds %d transactions, want %d", len(page.Transactions), entity.PageSize)
		}
		page = mustPage(t, repo, "family", page.Older())
	}

	if len(all) != 25 {
		t.Fatalf("walked %d transactions, want 25", len(all))
	}
	for i := 1; i < len(all); i++ {
		if !before(all[i], all[i-1]) {
			t.Fatalf("transactions %d and %d are not strictly descending", i-1, i)
		}
	}
	for _, tran := range all {
		if !appended[tran.ID] {
			t.Fatalf("unknown or duplicated transaction %s", tran.ID)
		}
		delete(appended, tran.ID)
	}
}

func TestPaginationBackward(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")
	for i := 0; i < 25; i++ {
		mustAppend(t, repo, "family", int64(i+1), "x")
	}

	p0 := mustPage(t, repo, "family", entity.Cursor{})
	p1 := mustPage(t, repo, "family", p0.Older())
	p2 := mustPage(t, repo, "family", p1.Older())

	back1 := mustPage(t, repo, "family", p2.Newer())
	assertSamePage(t, back1, p1)

	back0 := mustPage(t, repo, "family", back1.Newer())
	assertSamePage(t, back0, p0)
}

func assertSamePage(t *testing.T, got, want entity.Page) {
	t.Helper()

	if len(got.Transactions) != len(want.Transactions) {
		t.Fatalf("got %d transactions, want %d", len(got.Transactions), len(want.Transactions))
	}
	for i := range got.Transactions {
		if got.Transactions[i].ID != want.Transactions[i].ID {
			t.Fatalf("transaction %d is %s, want %s", i, got.Transactions[i].ID, want.Transactions[i].ID)
		}
	}
}

func TestPageBeyondHistory(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")
	for i := 0; i < 5; i++ {
		mustAppend(t, repo, "family", 100, "x")
	}

	page := mustPage(t, repo, "family", entity.Cursor{})
	if !page.LastPage {
		t.Fatal("five transactions should be a single last page")
	}

	past := mustPage(t, repo, "family", page.Older())
	if len(past.Transactions) != 0 {
		t.Errorf("got %d transactions past the end, want none", len(past.Transactions))
	}
	if !past.LastPage {
		t.Error("page past the end should be the last page")
	}
}

func TestAccountsAreIsolated(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "alice")
	mustCreateAccount(t, repo, "bob")

	mustAppend(t, repo, "alice", 500, "x")
	mustAppend(t, repo, "bob", -300, "y")

	balance, err := repo.Balance(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 500 {
		t.Errorf("alice balance = %d, want 500", balance)
	}

	page := mustPage(t, repo, "bob", entity.Cursor{})
	if len(page.Transactions) != 1 || page.Transactions[0].Amount != -300 {
		t.Errorf("bob history = %+v", page.Transactions)
	}
}

func TestConcurrentAppends(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")

	const (
		workers = 8
		each    = 5
	)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				_, err := repo.Append(context.Background(), entity.Transaction{
					ID:        uuid.NewString(),
					AccountID: "family",
					Amount:    7,
				})
				if err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	balance, err := repo.Balance(context.Background(), "family")
	if err != nil {
		t.Fatal(err)
	}
	if balance != workers*each*7 {
		t.Errorf("balance = %d, want %d", balance, workers*each*7)
	}

	var count int
	page := mustPage(t, repo, "family", entity.Cursor{})
	for {
		count += len(page.Transactions)
		if page.LastPage {
			break
		}
		page = mustPage(t, repo, "family", page.Older())
	}
	if count != workers*each {
		t.Errorf("walked %d transactions, want %d", count, workers*each)
	}
}

func TestAppendIsAtomic(t *testing.T) {
	repo := newTestRepository(t)
	mustCreateAccount(t, repo, "family")
	mustAppend(t, repo, "family", 500, "x")

	boom := errors.New("boom")
	err := repo.db.Update(func(tx *bolt.Tx) error {
		accounts := tx.Bucket(accountsBucketName)

		var account entity.Account
		if err := json.Unmarshal(accounts.Get([]byte("family")), &account); err != nil {
			return err
		}
		account.Balance += 100
		raw, err := json.Marshal(account)
		if err != nil {
			return err
		}
		if err := accounts.Put([]byte("family"), raw); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("update error = %v, want boom", err)
	}

	balance, err := repo.Balance(context.Background(), "family")
	if err != nil {
		t.Fatal(err)
	}
	if balance != 500 {
		t.Errorf("balance after rollback = %d, want 500", balance)
	}

	page := mustPage(t, repo, "family", entity.Cursor{})
	if len(page.Transactions) != 1 {
		t.Errorf("got %d transactions after rollback, want 1", len(page.Transactions))
	}
}
