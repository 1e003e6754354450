package entity

import "errors"

var AccountNotFoundErr = errors.New("account not found")

// Account balances are integer minor units (cents). The balance always
// equals the sum of all committed transaction amounts of the account.
type Account struct {
	ID      string `json:"id"`
	Balance int64  `json:"balance"`
}
