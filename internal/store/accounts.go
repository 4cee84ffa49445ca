package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/boltdb/bolt"

	"github.com/luminosity-leds/luminosity/internal/models"
)

// accountDoc is the stored form of an account. The model hides the password
// hash and verify token from JSON, so they are carried here explicitly.
type accountDoc struct {
	models.Account
	PasswordHash      string    `json:"password"`
	VerifyToken       string    `json:"verifyToken,omitempty"`
	VerifyTokenExpiry time.Time `json:"verifyTokenExpiry"`
}

func toDoc(a *models.Account) accountDoc {
	return accountDoc{
		Account:           *a,
		PasswordHash:      a.Password,
		VerifyToken:       a.VerifyToken,
		VerifyTokenExpiry: a.VerifyTokenExpiry,
	}
}

func (d accountDoc) model() *models.Account {
	a := d.Account
	a.Password = d.PasswordHash
	a.VerifyToken = d.VerifyToken
	a.VerifyTokenExpiry = d.VerifyTokenExpiry
	if a.Notifications == nil {
		a.Notifications = []string{}
	}
	if a.DevicesLinked == nil {
		a.DevicesLinked = []string{}
	}
	return &a
}

func emailKey(email string) []byte {
	return []byte(strings.ToLower(strings.TrimSpace(email)))
}

// CreateAccount inserts a new account. a.ID must be set by the caller. The
// email is unique regardless of case.
func (db *DB) CreateAccount(a *models.Account) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		byEmail := tx.Bucket(bucketAccountsByEmail)
		if byEmail.Get(emailKey(a.Email)) != nil {
			return fmt.Errorf("email %s: %w", a.Email, ErrDuplicate)
		}
		accounts := tx.Bucket(bucketAccounts)
		if accounts.Get([]byte(a.ID)) != nil {
			return fmt.Errorf("account %s: %w", a.ID, ErrDuplicate)
		}
		if err := byEmail.Put(emailKey(a.Email), []byte(a.ID)); err != nil {
			return err
		}
		if a.VerifyToken != "" {
			if err := tx.Bucket(bucketAccountsByVerify).Put([]byte(a.VerifyToken), []byte(a.ID)); err != nil {
				return err
			}
		}
		return putJSON(accounts, a.ID, toDoc(a))
	})
}

func accountIn(tx *bolt.Tx, id string) (*models.Account, error) {
	var doc accountDoc
	if err := getJSON(tx.Bucket(bucketAccounts), id, &doc); err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}
	return doc.model(), nil
}

func (db *DB) AccountByID(id string) (*models.Account, error) {
	var a *models.Account
	err := db.bolt.View(func(tx *bolt.Tx) error {
		var err error
		a, err = accountIn(tx, id)
		return err
	})
	return a, err
}

func (db *DB) AccountByEmail(email string) (*models.Account, error) {
	var a *models.Account
	err := db.bolt.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketAccountsByEmail).Get(emailKey(email))
		if id == nil {
			return fmt.Errorf("email %s: %w", email, ErrNotFound)
		}
		var err error
		a, err = accountIn(tx, string(id))
		return err
	})
	return a, err
}

// AccountByVerifyToken finds the account holding an outstanding email
// verification token. Expiry is left to the caller.
func (db *DB) AccountByVerifyToken(token string) (*models.Account, error) {
	if token == "" {
		return nil, fmt.Errorf("verify token: %w", ErrNotFound)
	}
	var a *models.Account
	err := db.bolt.View(func(tx *bolt.Tx) error {
		id := tx.Bucket(bucketAccountsByVerify).Get([]byte(token))
		if id == nil {
			return fmt.Errorf("verify token: %w", ErrNotFound)
		}
		var err error
		a, err = accountIn(tx, string(id))
		return err
	})
	return a, err
}

// UpdateAccount loads the account, hands it to fn and stores the result in a
// single transaction. The email and verify token indexes follow the change.
// An error from fn aborts the write and is returned unchanged.
func (db *DB) UpdateAccount(id string, fn func(a *models.Account) error) (*models.Account, error) {
	var out *models.Account
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		a, err := accountIn(tx, id)
		if err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		a.ID = id
		if err := saveAccountIn(tx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func saveAccountIn(tx *bolt.Tx, a *models.Account) error {
	prev, err := accountIn(tx, a.ID)
	if err != nil {
		return err
	}
	byEmail := tx.Bucket(bucketAccountsByEmail)
	if string(emailKey(prev.Email)) != string(emailKey(a.Email)) {
		if byEmail.Get(emailKey(a.Email)) != nil {
			return fmt.Errorf("email %s: %w", a.Email, ErrDuplicate)
		}
		if err := byEmail.Delete(emailKey(prev.Email)); err != nil {
			return err
		}
		if err := byEmail.Put(emailKey(a.Email), []byte(a.ID)); err != nil {
			return err
		}
	}
	byVerify := tx.Bucket(bucketAccountsByVerify)
	if prev.VerifyToken != a.VerifyToken {
		if prev.VerifyToken != "" {
			if err := byVerify.Delete([]byte(prev.VerifyToken)); err != nil {
				return err
			}
		}
		if a.VerifyToken != "" {
			if err := byVerify.Put([]byte(a.VerifyToken), []byte(a.ID)); err != nil {
				return err
			}
		}
	}
	return putJSON(tx.Bucket(bucketAccounts), a.ID, toDoc(a))
}

// DeleteAccount removes the account, its index entries and every device it
// owns. It returns the UUIDs of the removed devices.
func (db *DB) DeleteAccount(id string) ([]string, error) {
	var removed []string
	err := db.bolt.Update(func(tx *bolt.Tx) error {
		a, err := accountIn(tx, id)
		if err != nil {
			return err
		}
		devices, err := devicesOwnedIn(tx, id)
		if err != nil {
			return err
		}
		for _, d := range devices {
			if err := deleteDeviceIn(tx, d); err != nil {
				return err
			}
			removed = append(removed, d.UUID)
		}
		if err := tx.Bucket(bucketDevicesByOwner).DeleteBucket([]byte(id)); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		if err := tx.Bucket(bucketAccountsByEmail).Delete(emailKey(a.Email)); err != nil {
			return err
		}
		if a.VerifyToken != "" {
			if err := tx.Bucket(bucketAccountsByVerify).Delete([]byte(a.VerifyToken)); err != nil {
				return err
			}
		}
		return tx.Bucket(bucketAccounts).Delete([]byte(id))
	})
	return removed, err
}
