// Package lighting simulates what a registered LED device would emit for a
// given power, color and brightness state.
package lighting

import (
	"sync"

	"github.com/luminosity-leds/luminosity/internal/color"
)

// Gamma applies the quadratic correction LED drivers use so that perceived
// brightness tracks the requested value.
func Gamma(v uint8) uint8 {
	return uint8((uint16(v) * uint16(v)) / 255)
}

// State is the subset of a device that affects its light output.
type State struct {
	Powered    bool
	Color      string
	Brightness int
}

// Frame is the simulated output of a device. GRB holds the bytes in the order
// addressable LED strips expect them.
type Frame struct {
	R   uint8   `json:"r"`
	G   uint8   `json:"g"`
	B   uint8   `json:"b"`
	Hex string  `json:"hex"`
	GRB [3]byte `json:"grb"`
}

// Render computes the frame for s. Unknown colors and powered-off devices
// render black; brightness is clamped to 0..100.
func Render(p color.Palette, s State) Frame {
	var out color.RGB
	if s.Powered {
		if named, ok := p.Lookup(s.Color); ok {
			if rgb, err := color.ParseHex(named.Hex); err == nil {
				out = scale(rgb, s.Brightness)
			}
		}
	}
	f := Frame{R: Gamma(out.R), G: Gamma(out.G), B: Gamma(out.B)}
	f.Hex = color.RGB{R: f.R, G: f.G, B: f.B}.Hex()
	f.GRB = [3]byte{f.G, f.R, f.B}
	return f
}

func scale(c color.RGB, brightness int) color.RGB {
	if brightness < 0 {
		brightness = 0
	}
	if brightness > 100 {
		brightness = 100
	}
	return color.RGB{
		R: uint8(int(c.R) * brightness / 100),
		G: uint8(int(c.G) * brightness / 100),
		B: uint8(int(c.B) * brightness / 100),
	}
}

// Simulator remembers the last frame of every device it has been told about.
// It is safe for concurrent use.
type Simulator struct {
	palette color.Palette

	mu     sync.RWMutex
	frames map[string]Frame
}

func NewSimulator(p color.Palette) *Simulator {
	return &Simulator{palette: p, frames: make(map[string]Frame)}
}

// Apply renders s for the device and stores the result.
func (s *Simulator) Apply(deviceUUID string, st State) Frame {
	f := Render(s.palette, st)
	s.mu.Lock()
	s.frames[deviceUUID] = f
	s.mu.Unlock()
	return f
}

// Frame returns the last applied frame for the device.
func (s *Simulator) Frame(deviceUUID string) (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.frames[deviceUUID]
	return f, ok
}

// Forget drops the device.
func (s *Simulator) Forget(deviceUUID string) {
	s.mu.Lock()
	delete(s.frames, deviceUUID)
	s.mu.Unlock()
}
