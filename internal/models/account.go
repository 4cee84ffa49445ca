package models

import "time"

// Account is a registered user. Password and the verification token are kept
// out of JSON; the store persists them separately.
type Account struct {
	ID                string     `json:"_id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	Password          string     `json:"-"`
	IsVerified        bool       `json:"isVerified"`
	VerifyToken       string     `json:"-"`
	VerifyTokenExpiry time.Time  `json:"-"`
	CreationDate      time.Time  `json:"creationDate"`
	DeletionDate      *time.Time `json:"deletionDate"`
	LastUpdated       time.Time  `json:"lastUpdated"`
	Notifications     []string   `json:"notifications"`
	DevicesLinked     []string   `json:"devicesLinked"`
}

// Unlink removes a device id from DevicesLinked.
func (a *Account) Unlink(deviceID string) {
	kept := a.DevicesLinked[:0]
	for _, id := range a.DevicesLinked {
		if id != deviceID {
			kept = append(kept, id)
		}
	}
	a.DevicesLinked = kept
}

// Notify appends a message to the account's notifications.
func (a *Account) Notify(msg string) {
	a.Notifications = append(a.Notifications, msg)
}
