package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/accounts"
	"github.com/luminosity-leds/luminosity/internal/api"
	"github.com/luminosity-leds/luminosity/internal/auth"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/devices"
	"github.com/luminosity-leds/luminosity/internal/lighting"
	"github.com/luminosity-leds/luminosity/internal/mailer"
	"github.com/luminosity-leds/luminosity/internal/models"
	"github.com/luminosity-leds/luminosity/internal/store"
)

func newServer(t *testing.T) (*httptest.Server, *store.DB) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	iss, err := auth.NewIssuer("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	logger := zap.NewNop()
	devSvc := devices.NewService(db, color.Default, lighting.NewSimulator(color.Default), logger)
	accSvc := accounts.NewService(db, iss, db, mailer.NewLog(logger), devSvc, logger, accounts.Options{BcryptCost: 4})

	srv := httptest.NewServer(api.NewRouter(api.Deps{
		Accounts: accSvc,
		Devices:  devSvc,
		Palette:  color.Default,
		Issuer:   iss,
		Revoker:  db,
		Logger:   logger,
	}))
	t.Cleanup(srv.Close)
	return srv, db
}

func loggedIn(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(srv.URL + "/")
	require.NoError(t, err)

	email := strings.ToLower(randomdata.SillyName()) + "@example.com"
	acc, err := c.Signup(ctx, randomdata.FullName(randomdata.RandomGender), email, "s3cret-password")
	require.NoError(t, err)
	assert.Equal(t, email, acc.Email)
	assert.False(t, acc.IsVerified)

	require.NoError(t, c.Login(ctx, email, "s3cret-password"))
	require.NotEmpty(t, c.Token())
	return c
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServer, c.Server())
}

func TestSessionCalls(t *testing.T) {
	srv, db := newServer(t)
	ctx := context.Background()
	c := loggedIn(t, srv)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.False(t, me.IsVerified)

	stored, err := db.AccountByID(me.ID)
	require.NoError(t, err)
	require.NoError(t, c.VerifyEmail(ctx, stored.VerifyToken))

	me, err = c.Me(ctx)
	require.NoError(t, err)
	assert.True(t, me.IsVerified)

	// a fresh client holding the same token is still logged in
	other, err := New(srv.URL, WithToken(c.Token()))
	require.NoError(t, err)
	_, err = other.Me(ctx)
	require.NoError(t, err)

	token := c.Token()
	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	_, err = c.Me(ctx)
	assert.ErrorIs(t, err, ErrNotLoggedIn)

	revoked, err := New(srv.URL, WithToken(token))
	require.NoError(t, err)
	_, err = revoked.Me(ctx)
	assert.Equal(t, http.StatusUnauthorized, StatusOf(err))
}

func TestLoginFailure(t *testing.T) {
	srv, _ := newServer(t)
	c, err := New(srv.URL)
	require.NoError(t, err)

	err = c.Login(context.Background(), "nobody@example.com", "whatever-password")
	require.Error(t, err)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Empty(t, c.Token())
}

func TestDeviceLifecycle(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c := loggedIn(t, srv)

	d, err := c.RegisterDevice(ctx, "Desk lamp", "Blue", 40)
	require.NoError(t, err)
	assert.True(t, d.Connected)
	assert.False(t, d.Powered)

	_, err = c.RegisterDevice(ctx, "Bad", "Chartreuse", 40)
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))

	list, err := c.Devices(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, d.UUID, list[0].UUID)

	on := true
	bright := 100
	d, err = c.UpdateDevice(ctx, d.UUID, models.DeviceUpdate{Powered: &on, Brightness: &bright})
	require.NoError(t, err)
	assert.True(t, d.Powered)

	f, err := c.Output(ctx, d.UUID)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), f.B)
	assert.Equal(t, uint8(0), f.R)

	d, err = c.Disconnect(ctx, d.UUID)
	require.NoError(t, err)
	assert.False(t, d.Connected)
	d, err = c.Connect(ctx, d.UUID)
	require.NoError(t, err)
	assert.True(t, d.Connected)

	got, err := c.Device(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, d.UUID, got.UUID)

	require.NoError(t, c.DeleteDevice(ctx, d.UUID))
	_, err = c.Device(ctx, d.UUID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
}

func TestDevicesAreScopedToOwner(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	alice := loggedIn(t, srv)
	bob := loggedIn(t, srv)

	d, err := alice.RegisterDevice(ctx, "Porch", "Amber", 70)
	require.NoError(t, err)

	_, err = bob.Device(ctx, d.UUID)
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Error(t, bob.DeleteDevice(ctx, d.UUID))

	list, err := bob.Devices(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestDeleteAccount(t *testing.T) {
	srv, db := newServer(t)
	ctx := context.Background()
	c := loggedIn(t, srv)
	me, err := c.Me(ctx)
	require.NoError(t, err)

	require.NoError(t, c.DeleteAccount(ctx))
	assert.Empty(t, c.Token())
	_, err = db.AccountByID(me.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestColors(t *testing.T) {
	srv, _ := newServer(t)
	ctx := context.Background()
	c, err := New(srv.URL)
	require.NoError(t, err)

	p, err := c.Colors(ctx)
	require.NoError(t, err)
	assert.Equal(t, color.Default, p)

	m, err := c.MatchHex(ctx, "#fe0101")
	require.NoError(t, err)
	assert.Equal(t, "Red", m.Name)
	assert.Equal(t, "#fe0101", m.Hex)

	m, err = c.MatchRGB(ctx, 0, 0, 250)
	require.NoError(t, err)
	assert.Equal(t, "Blue", m.Name)
	assert.Equal(t, color.RGB{B: 250}, m.RGB)

	_, err = c.MatchHex(ctx, "not-a-color")
	assert.Equal(t, http.StatusBadRequest, StatusOf(err))
}

func TestSessionFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s, err := LoadSession(path)
	require.NoError(t, err)
	assert.Empty(t, s.Token)

	require.NoError(t, SaveSession(path, &Session{Server: "http://x", Email: "a@b.c", Token: "tok"}))
	s, err = LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, "tok", s.Token)
	assert.False(t, s.SavedAt.IsZero())

	require.NoError(t, ClearSession(path))
	require.NoError(t, ClearSession(path))
	s, err = LoadSession(path)
	require.NoError(t, err)
	assert.Empty(t, s.Token)
}
