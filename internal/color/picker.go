package color

import (
	"fmt"
	"strconv"
	"strings"
)

// Picker keeps a palette name, a hex string and an RGB value in step with each
// other. Whichever side changes last wins and the others are derived from it.
type Picker struct {
	palette Palette

	Name string `json:"name"`
	Hex  string `json:"hex"`
	RGB  RGB    `json:"rgb"`
}

// NewPicker returns a picker set to the first palette entry, or to pure red
// when the palette is empty.
func NewPicker(p Palette) *Picker {
	pk := &Picker{palette: p, Name: FallbackName, Hex: "#ff0000", RGB: RGB{R: 255}}
	if len(p) > 0 {
		_ = pk.SelectName(p[0].Name)
	}
	return pk
}

// SelectName switches to a palette entry by name.
func (p *Picker) SelectName(name string) error {
	named, ok := p.palette.Lookup(name)
	if !ok {
		return fmt.Errorf("unknown color %q", name)
	}
	rgb, err := ParseHex(named.Hex)
	if err != nil {
		return err
	}
	p.Name, p.RGB, p.Hex = named.Name, rgb, rgb.Hex()
	return nil
}

// SetHex takes a hex value and derives RGB and the closest palette name.
// Invalid input leaves the picker untouched.
func (p *Picker) SetHex(hex string) error {
	rgb, err := ParseHex(hex)
	if err != nil {
		return err
	}
	p.apply(rgb)
	return nil
}

// SetRGB takes channel values, clamped to 0..255, and derives hex and the
// closest palette name.
func (p *Picker) SetRGB(r, g, b int) {
	p.apply(FromInts(r, g, b))
}

// SetChannel updates one channel from raw text input. Non-digits are dropped,
// at most three digits are kept and an empty field counts as zero.
func (p *Picker) SetChannel(ch byte, input string) error {
	v := ParseChannelInput(input)
	rgb := p.RGB
	switch ch {
	case 'r', 'R':
		rgb.R = v
	case 'g', 'G':
		rgb.G = v
	case 'b', 'B':
		rgb.B = v
	default:
		return fmt.Errorf("unknown channel %q", ch)
	}
	p.apply(rgb)
	return nil
}

func (p *Picker) apply(rgb RGB) {
	p.RGB = rgb
	p.Hex = rgb.Hex()
	if named, ok := p.palette.ClosestRGB(rgb); ok {
		p.Name = named.Name
	} else {
		p.Name = FallbackName
	}
}

// ParseChannelInput turns free text into a channel value.
func ParseChannelInput(input string) uint8 {
	digits := keep(input, isDigit, 3)
	if digits == "" {
		return 0
	}
	n, _ := strconv.Atoi(digits)
	return clampChannel(n)
}

// SanitizeHexInput strips everything but hex digits and keeps at most six.
func SanitizeHexInput(input string) string {
	return keep(input, isHexDigit, 6)
}

func keep(s string, ok func(rune) bool, max int) string {
	var b strings.Builder
	for _, r := range s {
		if b.Len() == max {
			break
		}
		if ok(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isHexDigit(r rune) bool {
	return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}
