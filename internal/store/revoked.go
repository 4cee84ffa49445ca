package store

import (
	"context"
	"time"

	"github.com/boltdb/bolt"
)

// Revoke records that the token with the given id must be rejected until
// the given time.
func (db *DB) Revoke(_ context.Context, jti string, until time.Time) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		v, err := until.UTC().MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRevokedTokens).Put([]byte(jti), v)
	})
}

// IsRevoked reports whether jti was revoked and the revocation is still in
// force.
func (db *DB) IsRevoked(_ context.Context, jti string) (bool, error) {
	var revoked bool
	err := db.bolt.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketRevokedTokens).Get([]byte(jti))
		if v == nil {
			return nil
		}
		var until time.Time
		if err := until.UnmarshalBinary(v); err != nil {
			return err
		}
		revoked = time.Now().Before(until)
		return nil
	})
	return revoked, err
}

// PurgeRevoked drops revocations that expired before now and returns how
// many were removed.
func (db *DB) PurgeRevoked(now time.Time) (int, error) {
	n := 0
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRevokedTokens)
		var expired [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var until time.Time
			if err := until.UnmarshalBinary(v); err != nil || !now.Before(until) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		n = len(expired)
		return nil
	})
	return n, err
}
