// internal/color/color.go
//
// RGB value type and the light arithmetic the board is built on.
// Responsibilities:
//   - RGB: an immutable 8-bit triple, compared by value, encoded as [r,g,b] in JSON.
//   - Light: an unclamped float triple used while summing source contributions.
//   - Mix: additive mixing with uniform down-scaling when a channel overflows 255.
//   - Distance: normalized Euclidean distance used for scoring (black↔white ≈ 0.577).
//
// Notes:
//   - Rounding follows round-half-up on non-negative values (math.Round).
//   - Zero (black) is also what an unlit tile looks like.
package color

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RGB is a color with 8-bit channels.
type RGB struct {
	R uint8
	G uint8
	B uint8
}

var (
	Black = RGB{0, 0, 0}
	White = RGB{255, 255, 255}
	Red   = RGB{255, 0, 0}
	Green = RGB{0, 255, 0}
	Blue  = RGB{0, 0, 255}
)

// Primaries are handed out in this order during the placement phase.
var Primaries = [3]RGB{Red, Green, Blue}

// IsZero reports whether every channel is 0.
func (c RGB) IsZero() bool { return c == Black }

// Light widens c to float channels without scaling.
func (c RGB) Light() Light {
	return Light{R: float64(c.R), G: float64(c.G), B: float64(c.B)}
}

// Scale returns c attenuated (or amplified) by f as unclamped light.
func (c RGB) Scale(f float64) Light {
	return Light{R: float64(c.R) * f, G: float64(c.G) * f, B: float64(c.B) * f}
}

// String renders c as a CSS rgb() expression.
func (c RGB) String() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c.R, c.G, c.B)
}

// Hex renders c as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ParseHex accepts "#rrggbb", "rrggbb" or the short "#rgb" form.
func ParseHex(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("color: invalid hex %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("color: invalid hex %q: %w", s, err)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

// MarshalJSON encodes c as a three element array, the format the browser client uses.
func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]int{int(c.R), int(c.G), int(c.B)})
}

// UnmarshalJSON decodes [r,g,b]; each channel must be an integer in [0,255].
func (c *RGB) UnmarshalJSON(b []byte) error {
	var raw []float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("color: expected [r,g,b]: %w", err)
	}
	if len(raw) != 3 {
		return errors.New("color: expected exactly 3 channels")
	}
	var ch [3]uint8
	for i, v := range raw {
		if v < 0 || v > 255 || v != math.Trunc(v) {
			return fmt.Errorf("color: channel %d out of range: %v", i, v)
		}
		ch[i] = uint8(v)
	}
	*c = RGB{R: ch[0], G: ch[1], B: ch[2]}
	return nil
}

// Light is an additive light contribution; channels may exceed 255.
type Light struct {
	R, G, B float64
}

// Add sums two contributions channel-wise.
func (l Light) Add(o Light) Light {
	return Light{R: l.R + o.R, G: l.G + o.G, B: l.B + o.B}
}

// Mix sums the contributions and scales every channel by 255/max(r,g,b,255).
// Hue ratios are kept; in-range sums are returned unscaled.
func Mix(contributions ...Light) RGB {
	var sum Light
	for _, c := range contributions {
		sum = sum.Add(c)
	}
	maxVal := math.Max(math.Max(sum.R, sum.G), math.Max(sum.B, 255))
	f := 255 / maxVal
	return Normalize(sum.R*f, sum.G*f, sum.B*f)
}

// Normalize rounds and clamps float channels into an RGB.
func Normalize(r, g, b float64) RGB {
	return RGB{R: clampChannel(r), G: clampChannel(g), B: clampChannel(b)}
}

func clampChannel(v float64) uint8 {
	v = math.Round(v)
	switch {
	case v < 0 || math.IsNaN(v):
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// Distance is the Euclidean distance between a and b scaled by 1/255 * 1/3.
// Identical colors are 0; black and white are √3/3.
func Distance(a, b RGB) float64 {
	dr := float64(a.R) - float64(b.R)
	dg := float64(a.G) - float64(b.G)
	db := float64(a.B) - float64(b.B)
	return (1.0 / 255) * (1.0 / 3) * math.Sqrt(dr*dr+dg*dg+db*db)
}
