package canvas

import (
	"math"
	"math/rand"
)

// Palette hands out one random hue per key code and remembers it, so a key
// keeps its colour across sessions.
type Palette struct {
	rnd    *rand.Rand
	colors map[int]Color
}

// NewPalette returns a palette seeded with seed.
func NewPalette(seed int64) *Palette {
	return &Palette{
		rnd:    rand.New(rand.NewSource(seed)),
		colors: make(map[int]Color),
	}
}

// ColorFor returns the colour of a key code, assigning hsl(h, 80%, 60%) on first use.
func (p *Palette) ColorFor(keyCode int) Color {
	if c, ok := p.colors[keyCode]; ok {
		return c
	}
	c := HSL(math.Floor(p.rnd.Float64()*360), 0.8, 0.6)
	p.colors[keyCode] = c
	return c
}

// HSL converts hue in degrees, saturation and lightness in [0,1] to RGB.
func HSL(h, s, l float64) Color {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	c := (1 - math.Abs(2*l-1)) * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := l - c/2

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return Color{
		R: uint8(math.Round((r + m) * 255)),
		G: uint8(math.Round((g + m) * 255)),
		B: uint8(math.Round((b + m) * 255)),
	}
}
