// Package confetti simulates a celebratory particle burst and rasterizes it
// onto a character grid.
//
// Particles live on a virtual canvas measured in pixels. Each frame a
// particle moves along its launch angle at its current velocity, falls by
// the gravity constant, and loses velocity by the decay factor.
package confetti

import (
	"math"
	"strings"

	"github.com/cory-johannsen/slot/internal/game/dice"
)

// Options describe a burst.
type Options struct {
	// Count is the number of particles.
	Count int
	// Spread is the launch cone in degrees, centred on Angle.
	Spread float64
	// Angle is the cone's centre in degrees; 90 points straight up.
	Angle float64
	// OriginX and OriginY place the emitter as fractions of the canvas.
	OriginX float64
	OriginY float64
	// StartVelocity is the maximum launch speed in pixels per frame.
	StartVelocity float64
	// Gravity is added to the vertical position every frame.
	Gravity float64
	// Decay multiplies the velocity every frame.
	Decay float64
	// Ticks is the particle lifetime in frames.
	Ticks int
	// Width and Height size the virtual canvas.
	Width  float64
	Height float64
}

// DefaultOptions returns a 120-particle burst with a 90° spread emitted from
// 70% of the way down the canvas.
func DefaultOptions() Options {
	return Options{
		Count:         120,
		Spread:        90,
		Angle:         90,
		OriginX:       0.5,
		OriginY:       0.7,
		StartVelocity: 45,
		Gravity:       1,
		Decay:         0.9,
		Ticks:         200,
		Width:         800,
		Height:        600,
	}
}

// Glyphs are the characters particles are drawn with.
var Glyphs = []rune{'*', '+', '•', '✦', '◆', '~'}

// Particle is one piece of confetti.
type Particle struct {
	X, Y     float64
	Angle    float64 // radians
	Velocity float64
	Glyph    rune
	Color    int
	Tick     int
}

// Burst creates o.Count particles at the origin, each launched at a random
// angle within the spread and a random speed between half and all of
// StartVelocity.
//
// Precondition: src must be non-nil.
func Burst(src dice.Source, o Options) []Particle {
	ps := make([]Particle, o.Count)
	x := o.OriginX * o.Width
	y := o.OriginY * o.Height
	for i := range ps {
		deg := o.Angle + (unit(src)-0.5)*o.Spread
		ps[i] = Particle{
			X:        x,
			Y:        y,
			Angle:    deg * math.Pi / 180,
			Velocity: o.StartVelocity * (0.5 + unit(src)*0.5),
			Glyph:    Glyphs[src.Intn(len(Glyphs))],
			Color:    src.Intn(len(Palette)),
		}
	}
	return ps
}

// unit returns a draw in [0, 1].
func unit(src dice.Source) float64 {
	return float64(src.Intn(1001)) / 1000
}

// Step advances every particle by one frame and drops those whose lifetime
// has ended. The slice is reused.
func Step(ps []Particle, o Options) []Particle {
	out := ps[:0]
	for _, p := range ps {
		p.X += math.Cos(p.Angle) * p.Velocity
		// Screen y grows downwards.
		p.Y += -math.Sin(p.Angle)*p.Velocity + o.Gravity
		p.Velocity *= o.Decay
		p.Tick++
		if p.Tick < o.Ticks {
			out = append(out, p)
		}
	}
	return out
}

// Palette holds the ANSI colours particles cycle through.
var Palette = []string{
	"\033[91m", "\033[92m", "\033[93m", "\033[94m", "\033[95m", "\033[96m",
}

// Frame rasterizes particles onto cols × rows cells. Particles outside the
// canvas are skipped; when two share a cell the later one wins. Colour codes
// are applied when color is true.
//
// Postcondition: Returns exactly rows strings of cols visible cells each.
func Frame(ps []Particle, o Options, cols, rows int, color bool) []string {
	cells := make([][]int, rows)
	for r := range cells {
		cells[r] = make([]int, cols)
		for c := range cells[r] {
			cells[r][c] = -1
		}
	}
	for i, p := range ps {
		c := int(p.X / o.Width * float64(cols))
		r := int(p.Y / o.Height * float64(rows))
		if c < 0 || c >= cols || r < 0 || r >= rows || p.X < 0 || p.Y < 0 {
			continue
		}
		cells[r][c] = i
	}

	lines := make([]string, rows)
	var b strings.Builder
	for r, row := range cells {
		b.Reset()
		for _, idx := range row {
			if idx < 0 {
				b.WriteByte(' ')
				continue
			}
			p := ps[idx]
			if color {
				b.WriteString(Palette[p.Color%len(Palette)])
				b.WriteRune(p.Glyph)
				b.WriteString("\033[0m")
			} else {
				b.WriteRune(p.Glyph)
			}
		}
		lines[r] = b.String()
	}
	return lines
}
