package entity

import "errors"

var UserStateNotFoundErr = errors.New("user state not found")

const (
	EnterAmountState      = "enterAmount"
	EnterDescriptionState = "enterDescription"
)

const (
	KindDeposit    = "deposit"
	KindWithdrawal = "withdrawal"
)

// UserState carries a user's position in the two-step transaction entry
// dialog between updates. Amount is the unsigned magnitude in minor
// units; the sign is applied from Kind when the entry is booked.
type UserState struct {
	Name string `json:"name"`

	Kind   string `json:"kind,omitempty"`
	Amount *int64 `json:"amount,omitempty"`
}
