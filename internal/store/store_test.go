package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminosity-leds/luminosity/internal/models"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "luminosity.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newAccount(t *testing.T, db *DB) *models.Account {
	t.Helper()
	now := time.Now().UTC()
	a := &models.Account{
		ID:           uuid.NewString(),
		Name:         randomdata.FullName(randomdata.RandomGender),
		Email:        uuid.NewString()[:8] + "." + randomdata.Email(),
		Password:     "$2a$10$hash",
		CreationDate: now,
		LastUpdated:  now,
	}
	require.NoError(t, db.CreateAccount(a))
	return a
}

func newDevice(t *testing.T, db *DB, owner string) *models.Device {
	t.Helper()
	now := time.Now().UTC()
	d := &models.Device{
		ID:          uuid.NewString(),
		UUID:        uuid.NewString(),
		Name:        randomdata.SillyName(),
		User:        owner,
		Connected:   true,
		Color:       "Red",
		Brightness:  50,
		LastUpdated: now,
	}
	require.NoError(t, db.CreateDevice(d))
	return d
}

func TestAccountRoundTripKeepsSecrets(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)

	got, err := db.AccountByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Email, got.Email)
	assert.Equal(t, "$2a$10$hash", got.Password)
	assert.Empty(t, got.DevicesLinked)
	assert.NotNil(t, got.DevicesLinked)

	byEmail, err := db.AccountByEmail(strings.ToUpper(a.Email))
	require.NoError(t, err)
	assert.Equal(t, a.ID, byEmail.ID)
}

func TestCreateAccountRejectsDuplicateEmail(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)

	dup := &models.Account{ID: uuid.NewString(), Email: " " + strings.ToUpper(a.Email)}
	err := db.CreateAccount(dup)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMissingDocuments(t *testing.T) {
	db := openTemp(t)
	_, err := db.AccountByID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.AccountByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.AccountByVerifyToken("")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.DeviceByUUID("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteDevice("nope"), ErrNotFound)
	_, err = db.UpdateAccount("nope", func(*models.Account) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestVerifyTokenIndexFollowsSaves(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)

	expiry := time.Now().Add(time.Hour).UTC()
	_, err := db.UpdateAccount(a.ID, func(cur *models.Account) error {
		cur.VerifyToken = "tok-1"
		cur.VerifyTokenExpiry = expiry
		return nil
	})
	require.NoError(t, err)

	got, err := db.AccountByVerifyToken("tok-1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.WithinDuration(t, expiry, got.VerifyTokenExpiry, time.Second)

	_, err = db.UpdateAccount(a.ID, func(cur *models.Account) error {
		cur.VerifyToken = ""
		cur.IsVerified = true
		return nil
	})
	require.NoError(t, err)

	_, err = db.AccountByVerifyToken("tok-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAccountEmailChange(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)
	b := newAccount(t, db)

	setEmail := func(email string) func(*models.Account) error {
		return func(cur *models.Account) error {
			cur.Email = email
			return nil
		}
	}
	_, err := db.UpdateAccount(a.ID, setEmail(b.Email))
	assert.ErrorIs(t, err, ErrDuplicate)

	_, err = db.UpdateAccount(a.ID, setEmail("moved@example.com"))
	require.NoError(t, err)
	got, err := db.AccountByEmail("moved@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestDevicesLinkAndOrder(t *testing.T) {
	db := openTemp(t)
	owner := newAccount(t, db)
	first := newDevice(t, db, owner.ID)
	second := newDevice(t, db, owner.ID)
	newDevice(t, db, newAccount(t, db).ID)

	list, err := db.DevicesByOwner(owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	acc, err := db.AccountByID(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, acc.DevicesLinked)

	byUUID, err := db.DeviceByUUID(second.UUID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, byUUID.ID)

	empty, err := db.DevicesByOwner("nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCreateDeviceRequiresOwner(t *testing.T) {
	db := openTemp(t)
	d := &models.Device{ID: uuid.NewString(), UUID: uuid.NewString(), User: "ghost"}
	assert.ErrorIs(t, db.CreateDevice(d), ErrNotFound)
}

func TestSaveDeviceKeepsOwner(t *testing.T) {
	db := openTemp(t)
	owner := newAccount(t, db)
	d := newDevice(t, db, owner.ID)

	d.Brightness = 90
	require.NoError(t, db.SaveDevice(d))
	got, err := db.DeviceByID(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, got.Brightness)

	d.User = "someone-else"
	assert.Error(t, db.SaveDevice(d))
}

func TestDeleteDeviceUnlinks(t *testing.T) {
	db := openTemp(t)
	owner := newAccount(t, db)
	keep := newDevice(t, db, owner.ID)
	gone := newDevice(t, db, owner.ID)

	require.NoError(t, db.DeleteDevice(gone.ID))

	acc, err := db.AccountByID(owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{keep.ID}, acc.DevicesLinked)

	list, err := db.DevicesByOwner(owner.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, keep.ID, list[0].ID)

	_, err = db.DeviceByUUID(gone.UUID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAccountCascades(t *testing.T) {
	db := openTemp(t)
	owner := newAccount(t, db)
	d1 := newDevice(t, db, owner.ID)
	d2 := newDevice(t, db, owner.ID)
	other := newAccount(t, db)
	kept := newDevice(t, db, other.ID)

	removed, err := db.DeleteAccount(owner.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{d1.UUID, d2.UUID}, removed)

	_, err = db.AccountByEmail(owner.Email)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.DeviceByID(d1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = db.DeviceByUUID(d2.UUID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = db.DeviceByID(kept.ID)
	assert.NoError(t, err)

	// email is free again
	again := &models.Account{ID: uuid.NewString(), Email: owner.Email}
	assert.NoError(t, db.CreateAccount(again))
}

func TestRevocations(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	ok, err := db.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, db.Revoke(ctx, "jti-old", time.Now().Add(-time.Minute)))

	ok, err = db.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := db.PurgeRevoked(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err = db.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "luminosity.db")
	db, err := Open(path)
	require.NoError(t, err)
	a := newAccount(t, db)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	got, err := db.AccountByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
	assert.Equal(t, path, db.Path())
}

func TestUpdateAccount(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)
	d := newDevice(t, db, a.ID)

	got, err := db.UpdateAccount(a.ID, func(cur *models.Account) error {
		assert.Equal(t, []string{d.ID}, cur.DevicesLinked)
		cur.IsVerified = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.IsVerified)
	assert.Equal(t, []string{d.ID}, got.DevicesLinked)

	stop := errors.New("stop")
	_, err = db.UpdateAccount(a.ID, func(cur *models.Account) error {
		cur.Name = "changed"
		return stop
	})
	assert.ErrorIs(t, err, stop)
	again, err := db.AccountByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, again.Name)

	_, err = db.UpdateAccount("nope", func(*models.Account) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDeviceAppendsNotes(t *testing.T) {
	db := openTemp(t)
	a := newAccount(t, db)
	d := &models.Device{ID: uuid.NewString(), UUID: uuid.NewString(), Name: "Lamp", User: a.ID}
	require.NoError(t, db.CreateDevice(d, "Device \"Lamp\" registered"))

	got, err := db.AccountByID(a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{`Device "Lamp" registered`}, got.Notifications)
	assert.Equal(t, []string{d.ID}, got.DevicesLinked)
}
