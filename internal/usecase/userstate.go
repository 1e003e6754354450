package usecase

import (
	"errors"

	"github.com/1001R/bpm/internal/entity"
)

type GetUserstate struct {
	repo userstateRepository
}

func NewGetUserstate(repo userstateRepository) *GetUserstate {
	return &GetUserstate{
		repo: repo,
	}
}

// Execute returns the stored dialog state, or the zero state when the
// user has none yet.
func (u *GetUserstate) Execute(userID int64) (entity.UserState, error) {
	state, err := u.repo.Get(userID)
	if err != nil {
		if errors.Is(err, entity.UserStateNotFoundErr) {
			return entity.UserState{}, nil
		}
		return entity.UserState{}, err
	}
	return state, nil
}

type SaveUserstate struct {
	repo userstateRepository
}

func NewSaveUserstate(repo userstateRepository) *SaveUserstate {
	return &SaveUserstate{
		repo: repo,
	}
}

func (u *SaveUserstate) Execute(userID int64, state entity.UserState) error {
	return u.repo.Save(userID, state)
}
