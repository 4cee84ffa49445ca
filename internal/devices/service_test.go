package devices

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Pallinder/go-randomdata"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/lighting"
	"github.com/luminosity-leds/luminosity/internal/models"
	"github.com/luminosity-leds/luminosity/internal/store"
)

func ptr[T any](v T) *T { return &v }

type fixture struct {
	svc *Service
	db  *store.DB
	sim *lighting.Simulator
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "devices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sim := lighting.NewSimulator(color.Default)
	return &fixture{svc: NewService(db, color.Default, sim, zap.NewNop()), db: db, sim: sim}
}

func (f *fixture) account(t *testing.T) string {
	t.Helper()
	a := &models.Account{ID: uuid.NewString(), Name: randomdata.FullName(randomdata.RandomGender), Email: uuid.NewString() + "@example.com"}
	require.NoError(t, f.db.CreateAccount(a))
	return a.ID
}

func (f *fixture) register(t *testing.T, owner string) *models.Device {
	t.Helper()
	d, err := f.svc.Register(context.Background(), owner, RegisterInput{Name: randomdata.SillyName(), Color: "Blue", Brightness: ptr(40)})
	require.NoError(t, err)
	return d
}

func TestRegister(t *testing.T) {
	f := setup(t)
	owner := f.account(t)

	d, err := f.svc.Register(context.Background(), owner, RegisterInput{Name: "  Desk lamp ", Color: "Ruby Red", Brightness: ptr(75)})
	require.NoError(t, err)
	assert.Equal(t, "Desk lamp", d.Name)
	assert.True(t, d.Connected)
	assert.False(t, d.Powered)
	assert.Equal(t, 75, d.Brightness)
	assert.NotEmpty(t, d.UUID)
	for _, ts := range []time.Time{d.PoweredTimestamp, d.ConnectedTimestamp, d.ColorTimestamp, d.BrightnessTimestamp, d.LastUpdated} {
		assert.Equal(t, d.LastUpdated, ts)
	}

	a, err := f.db.AccountByID(owner)
	require.NoError(t, err)
	assert.Equal(t, []string{d.ID}, a.DevicesLinked)
	require.Len(t, a.Notifications, 1)
	assert.Contains(t, a.Notifications[0], "Desk lamp")

	// registered devices start powered off, so the simulator shows black
	frame, ok := f.sim.Frame(d.UUID)
	require.True(t, ok)
	assert.Equal(t, "#000000", frame.Hex)
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	owner := f.account(t)
	cases := []struct {
		in   RegisterInput
		want string
	}{
		{RegisterInput{Color: "Red", Brightness: ptr(5)}, "Device name is required"},
		{RegisterInput{Name: "x", Color: "red", Brightness: ptr(5)}, "Invalid color selected"},
		{RegisterInput{Name: "x", Color: "Red"}, "Brightness must be a number between 0 and 100"},
		{RegisterInput{Name: "x", Color: "Red", Brightness: ptr(101)}, "Brightness must be a number between 0 and 100"},
		{RegisterInput{Name: "x", Color: "Red", Brightness: ptr(-1)}, "Brightness must be a number between 0 and 100"},
	}
	for _, tc := range cases {
		_, err := f.svc.Register(context.Background(), owner, tc.in)
		assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
		assert.Equal(t, tc.want, apperr.MessageOf(err))
	}

	_, err := f.svc.Register(context.Background(), "ghost", RegisterInput{Name: "x", Color: "Red", Brightness: ptr(0)})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestListIsOwnerScoped(t *testing.T) {
	f := setup(t)
	alice, bob := f.account(t), f.account(t)
	a1 := f.register(t, alice)
	a2 := f.register(t, alice)
	f.register(t, bob)

	list, err := f.svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, a1.ID, list[0].ID)
	assert.Equal(t, a2.ID, list[1].ID)

	empty, err := f.svc.List(context.Background(), f.account(t))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestGetByIDOrUUID(t *testing.T) {
	f := setup(t)
	owner, other := f.account(t), f.account(t)
	d := f.register(t, owner)

	byID, err := f.svc.Get(context.Background(), owner, d.ID)
	require.NoError(t, err)
	byUUID, err := f.svc.Get(context.Background(), owner, d.UUID)
	require.NoError(t, err)
	assert.Equal(t, byID.ID, byUUID.ID)

	_, err = f.svc.Get(context.Background(), other, d.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, err = f.svc.Get(context.Background(), owner, "missing")
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
	_, err = f.svc.Get(context.Background(), owner, "")
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
}

func TestUpdatePartial(t *testing.T) {
	f := setup(t)
	owner := f.account(t)
	d := f.register(t, owner)

	later := d.LastUpdated.Add(time.Minute)
	f.svc.now = func() time.Time { return later }

	got, err := f.svc.Update(context.Background(), owner, d.ID, models.DeviceUpdate{
		Brightness: ptr(100),
		Powered:    ptr(true),
		Name:       ptr(""),
		Color:      ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, d.Name, got.Name)
	assert.Equal(t, "Blue", got.Color)
	assert.Equal(t, 100, got.Brightness)
	assert.True(t, got.Powered)
	assert.Equal(t, later, got.BrightnessTimestamp)
	assert.Equal(t, later, got.PoweredTimestamp)
	assert.True(t, d.ColorTimestamp.Equal(got.ColorTimestamp))
	assert.Equal(t, later, got.LastUpdated)

	stored, err := f.db.DeviceByID(d.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, stored.Brightness)

	frame, err := f.svc.Output(context.Background(), owner, d.UUID)
	require.NoError(t, err)
	assert.Equal(t, "#0000ff", frame.Hex)
}

func TestUpdateRejects(t *testing.T) {
	f := setup(t)
	owner, other := f.account(t), f.account(t)
	d := f.register(t, owner)

	_, err := f.svc.Update(context.Background(), owner, d.ID, models.DeviceUpdate{Color: ptr("Plaid")})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	_, err = f.svc.Update(context.Background(), owner, d.ID, models.DeviceUpdate{Brightness: ptr(150)})
	assert.True(t, apperr.Is(err, apperr.CodeInvalidInput))
	_, err = f.svc.Update(context.Background(), other, d.ID, models.DeviceUpdate{Powered: ptr(true)})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	stored, err := f.db.DeviceByID(d.ID)
	require.NoError(t, err)
	assert.False(t, stored.Powered)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	owner, other := f.account(t), f.account(t)
	d := f.register(t, owner)

	err := f.svc.Delete(context.Background(), other, d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))

	require.NoError(t, f.svc.Delete(context.Background(), owner, d.UUID))
	_, ok := f.sim.Frame(d.UUID)
	assert.False(t, ok)

	a, err := f.db.AccountByID(owner)
	require.NoError(t, err)
	assert.Empty(t, a.DevicesLinked)

	err = f.svc.Delete(context.Background(), owner, d.ID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestConnectDisconnect(t *testing.T) {
	f := setup(t)
	owner := f.account(t)
	d := f.register(t, owner)

	later := d.LastUpdated.Add(time.Hour)
	f.svc.now = func() time.Time { return later }

	got, err := f.svc.Disconnect(context.Background(), owner, d.UUID)
	require.NoError(t, err)
	assert.False(t, got.Connected)
	assert.Equal(t, later, got.ConnectedTimestamp)

	got, err = f.svc.Connect(context.Background(), owner, d.UUID)
	require.NoError(t, err)
	assert.True(t, got.Connected)

	_, err = f.svc.Connect(context.Background(), f.account(t), d.UUID)
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestOutputRebuildsAfterRestart(t *testing.T) {
	f := setup(t)
	owner := f.account(t)
	d := f.register(t, owner)
	_, err := f.svc.Update(context.Background(), owner, d.ID, models.DeviceUpdate{Powered: ptr(true), Color: ptr("White")})
	require.NoError(t, err)

	// a fresh simulator has no frames, as after a server restart
	f.svc.sim = lighting.NewSimulator(color.Default)
	frame, err := f.svc.Output(context.Background(), owner, d.UUID)
	require.NoError(t, err)
	// white at 40%: 102, gamma 40
	assert.Equal(t, "#282828", frame.Hex)
}

func TestConcurrentRegisterKeepsEveryNotification(t *testing.T) {
	f := setup(t)
	owner := f.account(t)

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Register(context.Background(), owner, RegisterInput{Name: randomdata.SillyName(), Color: "Teal", Brightness: ptr(10)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	a, err := f.db.AccountByID(owner)
	require.NoError(t, err)
	assert.Len(t, a.DevicesLinked, n)
	assert.Len(t, a.Notifications, n)
}
