package userstate

import (
	"encoding/binary"
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/1001R/bpm/internal/entity"
)

var stateBucketName = []byte("state")

type BoltDBRepository struct {
	db *bolt.DB
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stateBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db}, nil
}

func (r *BoltDBRepository) Save(userID int64, state entity.UserState) error {
	return r.db.Update(func(tx *bolt.Tx) error {
		raw, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return tx.Bucket(stateBucketName).Put(itob(userID), raw)
	})
}

func (r *BoltDBRepository) Get(userID int64) (entity.UserState, error) {
	var state entity.UserState

	err := r.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(stateBucketName).Get(itob(userID))
		if raw == nil {
			return entity.UserStateNotFoundErr
		}
		return json.Unmarshal(raw, &state)
	})

	if err != nil {
		return entity.UserState{}, err
	}

	return state, nil
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}
