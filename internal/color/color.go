// Package color holds the device color palette and the conversions the
// dashboard color picker relies on.
package color

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FallbackName is returned by Closest when the target cannot be parsed.
const FallbackName = "Red"

var ErrInvalidHex = errors.New("invalid hex color")

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Hex formats c as lower-case #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex parses "#rrggbb" or "rrggbb", case-insensitively.
func ParseHex(s string) (RGB, error) {
	clean := strings.TrimPrefix(s, "#")
	if len(clean) != 6 {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	v, err := strconv.ParseUint(clean, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// FromInts builds an RGB, clamping each channel to 0..255.
func FromInts(r, g, b int) RGB {
	return RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

// distance is the squared Euclidean distance between two colors.
func distance(a, b RGB) int {
	dr := int(a.R) - int(b.R)
	dg := int(a.G) - int(b.G)
	db := int(a.B) - int(b.B)
	return dr*dr + dg*dg + db*db
}

func clampChannel(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// TextColorClass returns the presentation class the dashboard uses to print a
// device's color name.
func TextColorClass(name string) string {
	switch strings.ToLower(name) {
	case "red":
		return "text-red-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "green":
		return "text-green-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "blue":
		return "text-blue-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "yellow":
		return "text-yellow-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "purple":
		return "text-purple-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "orange":
		return "text-orange-500 [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	case "white":
		return "text-white [text-shadow:_0_1px_3_rgb(0_0_0_/_100%)]"
	default:
		return "text-black [text-shadow:_0_1px_3_rgb(0_0_0_/_30%)]"
	}
}
