package sprite

import (
	"fmt"
)

// DecodeSolid decodes a rectangular sprite: one palette index per pixel,
// no transparency. The resource must be exactly width*height+10 bytes;
// any other size is a format error.
func DecodeSolid(data []byte, pal *Palette) (*Sprite, error) {
	s, body, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	if len(body) != s.area() {
		return nil, fmt.Errorf("%w: solid body is %d bytes, want %d", ErrDecode, len(body), s.area())
	}

	s.Pixels = make([]byte, 0, s.area()*bytesPerPixel)
	for _, idx := range body {
		c := pal[idx]
		s.Pixels = append(s.Pixels, c.B, c.G, c.R, 0xff)
	}
	return s, nil
}

// DecodeTransparent decodes a run-length sprite with transparent gaps.
// Each fill byte is a palette index shifted by colorOffset before lookup;
// the shift selects among sub-ranges of the palette used to recolor the
// same source shape. The addition wraps in uint8 arithmetic, so a shifted
// index always lands inside the 256-entry palette (the legacy format never
// bounds-checked this; wrap-around is the documented policy here).
func DecodeTransparent(data []byte, pal *Palette, colorOffset uint8) (*Sprite, error) {
	return decodeRunLength(data, func(s *Sprite, idx uint8) {
		c := pal[idx+colorOffset]
		s.Pixels = append(s.Pixels, c.B, c.G, c.R, 0xff)
	}, true)
}

// DecodeOverlay decodes a run-length shadow sprite. Every filled pixel
// takes its color from the single palette entry at value and reuses value
// as its alpha, so intensity varies while hue stays fixed.
func DecodeOverlay(data []byte, pal *Palette, value uint8) (*Sprite, error) {
	c := pal[value]
	return decodeRunLength(data, func(s *Sprite, _ uint8) {
		s.Pixels = append(s.Pixels, c.B, c.G, c.R, value)
	}, false)
}

// DecodeMask decodes a run-length stencil: dropped pixels are fully zero,
// filled pixels are opaque white. Masks carry no palette.
func DecodeMask(data []byte) (*Sprite, error) {
	return decodeRunLength(data, func(s *Sprite, _ uint8) {
		s.Pixels = append(s.Pixels, 0xff, 0xff, 0xff, 0xff)
	}, false)
}

// decodeRunLength runs the drop/fill loop shared by the transparent,
// overlay and mask encodings. emit appends exactly one pixel; readIndex
// selects whether each filled pixel consumes a palette-index byte from the
// stream. The decoder never reads past data and fails if the runs do not
// cover the declared pixel area exactly.
func decodeRunLength(data []byte, emit func(*Sprite, uint8), readIndex bool) (*Sprite, error) {
	s, body, err := parseHeader(data)
	if err != nil {
		return nil, err
	}

	s.Pixels = make([]byte, 0, s.area()*bytesPerPixel)
	pos := 0
	for pos < len(body) {
		drop := int(body[pos])
		pos++
		for i := 0; i < drop; i++ {
			s.Pixels = append(s.Pixels, 0, 0, 0, 0)
		}

		if pos >= len(body) {
			return nil, fmt.Errorf("%w: run-length stream ends after drop count", ErrDecode)
		}
		fill := int(body[pos])
		pos++
		for i := 0; i < fill; i++ {
			var idx uint8
			if readIndex {
				if pos >= len(body) {
					return nil, fmt.Errorf("%w: truncated fill run", ErrDecode)
				}
				idx = body[pos]
				pos++
			}
			emit(s, idx)
		}
	}

	if len(s.Pixels) != s.area()*bytesPerPixel {
		return nil, fmt.Errorf("%w: runs cover %d pixels, header declares %d",
			ErrDecode, len(s.Pixels)/bytesPerPixel, s.area())
	}
	return s, nil
}
