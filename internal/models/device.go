package models

import "time"

// Device is a simulated smart light owned by one account. Each controllable
// attribute carries the time it last changed.
type Device struct {
	ID                  string    `json:"_id"`
	UUID                string    `json:"uuid"`
	Name                string    `json:"name"`
	User                string    `json:"user"`
	Powered             bool      `json:"powered"`
	PoweredTimestamp    time.Time `json:"poweredTimestamp"`
	Connected           bool      `json:"connected"`
	ConnectedTimestamp  time.Time `json:"connectedTimestamp"`
	Color               string    `json:"color"`
	ColorTimestamp      time.Time `json:"colorTimestamp"`
	Brightness          int       `json:"brightness"`
	BrightnessTimestamp time.Time `json:"brightnessTimestamp"`
	LastUpdated         time.Time `json:"lastUpdated"`
}

// DeviceUpdate is a partial update; nil fields are left alone.
type DeviceUpdate struct {
	Name       *string `json:"name,omitempty"`
	Brightness *int    `json:"brightness,omitempty"`
	Color      *string `json:"color,omitempty"`
	Powered    *bool   `json:"powered,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u DeviceUpdate) Empty() bool {
	return u.Name == nil && u.Brightness == nil && u.Color == nil && u.Powered == nil
}

// Apply writes the present fields onto d, stamping each one's timestamp and
// LastUpdated with now.
func (u DeviceUpdate) Apply(d *Device, now time.Time) {
	if u.Name != nil {
		d.Name = *u.Name
	}
	if u.Brightness != nil {
		d.Brightness = *u.Brightness
		d.BrightnessTimestamp = now
	}
	if u.Color != nil {
		d.Color = *u.Color
		d.ColorTimestamp = now
	}
	if u.Powered != nil {
		d.Powered = *u.Powered
		d.PoweredTimestamp = now
	}
	d.LastUpdated = now
}

// SetConnected records a connection state change.
func (d *Device) SetConnected(connected bool, now time.Time) {
	d.Connected = connected
	d.ConnectedTimestamp = now
	d.LastUpdated = now
}
