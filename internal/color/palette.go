package color

// Named is a palette entry.
type Named struct {
	Name string `json:"name"`
	Hex  string `json:"hex"`
}

// Palette is an ordered list of named colors. Order matters: Closest keeps the
// earliest entry on ties.
type Palette []Named

// Default is the set of colors a device may be registered with.
var Default = Palette{
	{Name: "Red", Hex: "#ff0000"},
	{Name: "Ruby Red", Hex: "#9b111e"},
	{Name: "Crimson", Hex: "#dc143c"},
	{Name: "Orange", Hex: "#ffa500"},
	{Name: "Amber", Hex: "#ffbf00"},
	{Name: "Gold", Hex: "#ffd700"},
	{Name: "Yellow", Hex: "#ffff00"},
	{Name: "Lime", Hex: "#bfff00"},
	{Name: "Green", Hex: "#00ff00"},
	{Name: "Emerald", Hex: "#50c878"},
	{Name: "Teal", Hex: "#008080"},
	{Name: "Cyan", Hex: "#00ffff"},
	{Name: "Sky Blue", Hex: "#87ceeb"},
	{Name: "Blue", Hex: "#0000ff"},
	{Name: "Navy", Hex: "#000080"},
	{Name: "Indigo", Hex: "#4b0082"},
	{Name: "Violet", Hex: "#8f00ff"},
	{Name: "Purple", Hex: "#800080"},
	{Name: "Magenta", Hex: "#ff00ff"},
	{Name: "Pink", Hex: "#ffc0cb"},
	{Name: "Rose", Hex: "#ff007f"},
	{Name: "Warm White", Hex: "#fdf4dc"},
	{Name: "White", Hex: "#ffffff"},
	{Name: "Black", Hex: "#000000"},
}

// Lookup finds the entry with exactly this name.
func (p Palette) Lookup(name string) (Named, bool) {
	for _, c := range p {
		if c.Name == name {
			return c, true
		}
	}
	return Named{}, false
}

func (p Palette) Contains(name string) bool {
	_, ok := p.Lookup(name)
	return ok
}

// Names lists the palette names in order.
func (p Palette) Names() []string {
	names := make([]string, 0, len(p))
	for _, c := range p {
		names = append(names, c.Name)
	}
	return names
}

// Closest returns the name of the entry nearest to hex. An unparseable hex
// yields FallbackName.
func (p Palette) Closest(hex string) string {
	target, err := ParseHex(hex)
	if err != nil {
		return FallbackName
	}
	named, ok := p.ClosestRGB(target)
	if !ok {
		return FallbackName
	}
	return named.Name
}

// ClosestRGB returns the entry nearest to target by squared Euclidean distance.
// Entries whose hex does not parse are skipped. ok is false when no entry
// qualifies.
func (p Palette) ClosestRGB(target RGB) (Named, bool) {
	var (
		best  Named
		found bool
		min   int
	)
	for _, c := range p {
		rgb, err := ParseHex(c.Hex)
		if err != nil {
			continue
		}
		d := distance(target, rgb)
		if !found || d < min {
			best, min, found = c, d, true
		}
	}
	return best, found
}
