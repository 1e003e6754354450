package idempotence

import (
	bolt "go.etcd.io/bbolt"
)

var idempotenceBucketName = []byte("idempotence")

type BoltDBRepository struct {
	db *bolt.DB
}

func NewBoltDB(db *bolt.DB) (*BoltDBRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(idempotenceBucketName)
		return err
	})

	if err != nil {
		return nil, err
	}

	return &BoltDBRepository{db: db}, nil
}

// MakeRecord stores the id and reports whether it was seen for the
// first time.
func (r *BoltDBRepository) MakeRecord(id string) (ok bool, err error) {
	err = r.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(idempotenceBucketName)
		if bucket.Get([]byte(id)) != nil {
			return nil
		}

		ok = true
		return bucket.Put([]byte(id), []byte{})
	})
	return
}
