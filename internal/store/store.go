// Package store persists accounts, devices and revoked tokens as JSON
// documents in a bolt database.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique index already holds the key.
	ErrDuplicate = errors.New("duplicate")
)

var (
	bucketAccounts         = []byte("accounts")
	bucketAccountsByEmail  = []byte("accounts_by_email")
	bucketAccountsByVerify = []byte("accounts_by_verify_token")
	bucketDevices          = []byte("devices")
	bucketDevicesByUUID    = []byte("devices_by_uuid")
	bucketDevicesByOwner   = []byte("devices_by_owner")
	bucketRevokedTokens    = []byte("revoked_tokens")
	allBuckets             = [][]byte{
		bucketAccounts, bucketAccountsByEmail, bucketAccountsByVerify,
		bucketDevices, bucketDevicesByUUID, bucketDevicesByOwner,
		bucketRevokedTokens,
	}
)

// DB is the document database.
type DB struct {
	bolt *bolt.DB
}

// Open opens or creates the database file at path, creating parent
// directories as needed.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	b, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	err = b.Update(func(tx *bolt.Tx) error {
		for _, name := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = b.Close()
		return nil, err
	}
	return &DB{bolt: b}, nil
}

// Close releases the file lock.
func (db *DB) Close() error {
	return db.bolt.Close()
}

// Path is the file backing the database.
func (db *DB) Path() string {
	return db.bolt.Path()
}

func getJSON(b *bolt.Bucket, key string, v any) error {
	data := b.Get([]byte(key))
	if data == nil {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}
