// Package devices implements the owner-scoped device operations and keeps
// the lighting simulator in step with stored device state.
package devices

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/lighting"
	"github.com/luminosity-leds/luminosity/internal/models"
	"github.com/luminosity-leds/luminosity/internal/store"
)

const (
	MinBrightness = 0
	MaxBrightness = 100
)

var (
	errDeviceNotFound = apperr.NotFound("Device not found or unauthorized")
	errNameRequired   = apperr.Invalid("Device name is required")
	errBadColor       = apperr.Invalid("Invalid color selected")
	errBadBrightness  = apperr.Invalid("Brightness must be a number between 0 and 100")
)

// Store is the subset of the document store the service needs.
type Store interface {
	AccountByID(id string) (*models.Account, error)
	CreateDevice(d *models.Device, notes ...string) error
	DeviceByID(id string) (*models.Device, error)
	DeviceByUUID(uuid string) (*models.Device, error)
	DevicesByOwner(owner string) ([]*models.Device, error)
	SaveDevice(d *models.Device) error
	DeleteDevice(id string) error
}

type Service struct {
	store   Store
	palette color.Palette
	sim     *lighting.Simulator
	logger  *zap.Logger
	now     func() time.Time
}

func NewService(s Store, p color.Palette, sim *lighting.Simulator, logger *zap.Logger) *Service {
	return &Service{store: s, palette: p, sim: sim, logger: logger, now: time.Now}
}

// RegisterInput is the new device form.
type RegisterInput struct {
	Name       string `json:"name"`
	Color      string `json:"color"`
	Brightness *int   `json:"brightness"`
}

func (s *Service) validColor(c string) bool {
	return s.palette.Contains(c)
}

func validBrightness(b int) bool {
	return b >= MinBrightness && b <= MaxBrightness
}

// Register creates a connected, powered off device for owner.
func (s *Service) Register(ctx context.Context, owner string, in RegisterInput) (*models.Device, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errNameRequired
	}
	if !s.validColor(in.Color) {
		return nil, errBadColor
	}
	if in.Brightness == nil || !validBrightness(*in.Brightness) {
		return nil, errBadBrightness
	}
	if _, err := s.store.AccountByID(owner); err != nil {
		return nil, accountErr(err)
	}

	now := s.now().UTC()
	d := &models.Device{
		ID:                  uuid.NewString(),
		UUID:                uuid.NewString(),
		Name:                name,
		User:                owner,
		Powered:             false,
		PoweredTimestamp:    now,
		Connected:           true,
		ConnectedTimestamp:  now,
		Color:               in.Color,
		ColorTimestamp:      now,
		Brightness:          *in.Brightness,
		BrightnessTimestamp: now,
		LastUpdated:         now,
	}
	if err := s.store.CreateDevice(d, fmt.Sprintf("Device %q registered", d.Name)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, accountErr(err)
		}
		return nil, apperr.Internal(err)
	}

	s.apply(d)
	s.logger.Info("device registered", zap.String("account", owner), zap.String("device", d.UUID))
	return d, nil
}

func accountErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(err, apperr.CodeNotFound, "User not found")
	}
	return apperr.Internal(err)
}

// List returns the owner's devices in registration order.
func (s *Service) List(_ context.Context, owner string) ([]*models.Device, error) {
	list, err := s.store.DevicesByOwner(owner)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return list, nil
}

// Get finds one of owner's devices by store id or device UUID. Devices of
// other accounts are reported as missing.
func (s *Service) Get(_ context.Context, owner, ref string) (*models.Device, error) {
	if strings.TrimSpace(ref) == "" {
		return nil, apperr.Invalid("Device ID is required")
	}
	d, err := s.store.DeviceByUUID(ref)
	if errors.Is(err, store.ErrNotFound) {
		d, err = s.store.DeviceByID(ref)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, errDeviceNotFound
		}
		return nil, apperr.Internal(err)
	}
	if d.User != owner {
		return nil, errDeviceNotFound
	}
	return d, nil
}

// normalize drops empty strings so they leave the field alone, as the
// dashboard sends them for untouched inputs.
func normalize(u models.DeviceUpdate) models.DeviceUpdate {
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			u.Name = nil
		} else {
			u.Name = &name
		}
	}
	if u.Color != nil && *u.Color == "" {
		u.Color = nil
	}
	return u
}

// Update applies the fields present in u to one of owner's devices.
func (s *Service) Update(ctx context.Context, owner, ref string, u models.DeviceUpdate) (*models.Device, error) {
	u = normalize(u)
	if u.Color != nil && !s.validColor(*u.Color) {
		return nil, errBadColor
	}
	if u.Brightness != nil && !validBrightness(*u.Brightness) {
		return nil, errBadBrightness
	}
	d, err := s.Get(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	u.Apply(d, s.now().UTC())
	if err := s.store.SaveDevice(d); err != nil {
		return nil, apperr.Internal(err)
	}
	s.apply(d)
	s.logger.Debug("device updated", zap.String("device", d.UUID))
	return d, nil
}

// Delete removes one of owner's devices and unlinks it from the account.
func (s *Service) Delete(ctx context.Context, owner, ref string) error {
	d, err := s.Get(ctx, owner, ref)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDevice(d.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errDeviceNotFound
		}
		return apperr.Internal(err)
	}
	s.sim.Forget(d.UUID)
	s.logger.Info("device deleted", zap.String("account", owner), zap.String("device", d.UUID))
	return nil
}

// Connect marks the device connected. No socket is opened.
func (s *Service) Connect(ctx context.Context, owner, ref string) (*models.Device, error) {
	return s.setConnected(ctx, owner, ref, true)
}

// Disconnect marks the device disconnected.
func (s *Service) Disconnect(ctx context.Context, owner, ref string) (*models.Device, error) {
	return s.setConnected(ctx, owner, ref, false)
}

func (s *Service) setConnected(ctx context.Context, owner, ref string, connected bool) (*models.Device, error) {
	d, err := s.Get(ctx, owner, ref)
	if err != nil {
		return nil, err
	}
	d.SetConnected(connected, s.now().UTC())
	if err := s.store.SaveDevice(d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

// Output returns the frame the device would currently emit. Devices not
// seen since start are rendered from their stored state.
func (s *Service) Output(ctx context.Context, owner, ref string) (lighting.Frame, error) {
	d, err := s.Get(ctx, owner, ref)
	if err != nil {
		return lighting.Frame{}, err
	}
	if f, ok := s.sim.Frame(d.UUID); ok {
		return f, nil
	}
	return s.apply(d), nil
}

// Forget drops simulator state for a device removed elsewhere.
func (s *Service) Forget(deviceUUID string) {
	s.sim.Forget(deviceUUID)
}

func (s *Service) apply(d *models.Device) lighting.Frame {
	return s.sim.Apply(d.UUID, lighting.State{Powered: d.Powered, Color: d.Color, Brightness: d.Brightness})
}
