package sprite

import (
	"errors"
	"fmt"
)

// ErrBadPalette is returned when a palette resource does not hold exactly
// 256 three-byte colors.
var ErrBadPalette = errors.New("sprite: malformed palette")

// PaletteSize is the raw byte length of a palette resource: 256 colors of
// 3 bytes each. The original layout reserves a fourth byte per color but
// never stores it in the data file.
const PaletteSize = 256 * 3

// Color is one palette entry.
type Color struct {
	R, G, B uint8
}

// Hex returns the color as a #RRGGBB string.
func (c Color) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// Palette holds the 256 colors of one palette resource.
type Palette [256]Color

// ParsePalette decodes a palette resource. Any length other than exactly
// 768 bytes means the resource is not a palette.
func ParsePalette(data []byte) (*Palette, error) {
	if len(data) != PaletteSize {
		return nil, fmt.Errorf("%w: %d bytes, want %d", ErrBadPalette, len(data), PaletteSize)
	}
	var p Palette
	for i := range p {
		p[i] = Color{R: data[3*i], G: data[3*i+1], B: data[3*i+2]}
	}
	return &p, nil
}
