// Package sprite decodes the archive's four indexed-color sprite encodings
// into rasters with explicit per-pixel color, and provides the compositing
// operations the original renderer applied after decode.
//
// Every sprite resource starts with the same 10-byte header:
//
//	+0x00  delta_x   int8     animation displacement
//	+0x01  delta_y   int8
//	+0x02  width     uint16   little-endian
//	+0x04  height    uint16
//	+0x06  offset_x  int16    anchor offset when drawn
//	+0x08  offset_y  int16
//
// The body that follows depends on the encoding: solid sprites store one
// palette index per pixel; the run-length encodings alternate a
// transparent "drop" count with an opaque "fill" count until the pixel
// area is covered.
package sprite

import (
	"encoding/binary"
	"errors"
	"fmt"
	"image"
)

// ErrDecode is returned for any malformed sprite resource: short header,
// truncated body, or a body that does not cover the declared pixel area.
var ErrDecode = errors.New("sprite: decode failed")

// headerSize is the fixed sprite header length.
const headerSize = 10

// bytesPerPixel is the size of one decoded pixel. Pixel bytes are emitted
// in blue, green, red, alpha order on every platform; downstream consumers
// rely on this exact ordering.
const bytesPerPixel = 4

// Sprite is a decoded raster. Pixels holds Width*Height four-byte pixels
// in B,G,R,A order and shares no memory with the archive.
type Sprite struct {
	DeltaX  int8
	DeltaY  int8
	Width   uint16
	Height  uint16
	OffsetX int16
	OffsetY int16

	Pixels []byte
}

// parseHeader reads the common 10-byte header and returns the body.
func parseHeader(data []byte) (*Sprite, []byte, error) {
	if len(data) < headerSize {
		return nil, nil, fmt.Errorf("%w: %d byte resource, header needs %d", ErrDecode, len(data), headerSize)
	}
	s := &Sprite{
		DeltaX:  int8(data[0]),
		DeltaY:  int8(data[1]),
		Width:   binary.LittleEndian.Uint16(data[2:4]),
		Height:  binary.LittleEndian.Uint16(data[4:6]),
		OffsetX: int16(binary.LittleEndian.Uint16(data[6:8])),
		OffsetY: int16(binary.LittleEndian.Uint16(data[8:10])),
	}
	return s, data[headerSize:], nil
}

// area returns the pixel count declared by the header.
func (s *Sprite) area() int {
	return int(s.Width) * int(s.Height)
}

// at returns the byte offset of pixel (x, y) in Pixels.
func (s *Sprite) at(x, y int) int {
	return (y*int(s.Width) + x) * bytesPerPixel
}

// Stick composites overlay onto s at pixel offset (dx, dy). Overlay pixels
// replace base pixels only where the overlay is opaque (alpha > 0); the
// overlay is clipped to the base bounds.
func (s *Sprite) Stick(overlay *Sprite, dx, dy int) {
	if overlay == nil {
		return
	}
	for y := 0; y < int(overlay.Height); y++ {
		ty := y + dy
		if ty < 0 || ty >= int(s.Height) {
			continue
		}
		for x := 0; x < int(overlay.Width); x++ {
			tx := x + dx
			if tx < 0 || tx >= int(s.Width) {
				continue
			}
			src := overlay.at(x, y)
			if overlay.Pixels[src+3] == 0 {
				continue
			}
			copy(s.Pixels[s.at(tx, ty):], overlay.Pixels[src:src+bytesPerPixel])
		}
	}
}

// Image converts the sprite into a standard library image. The pixel
// buffer is re-ordered from the B,G,R,A contract layout; the result shares
// no memory with the sprite.
func (s *Sprite) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, int(s.Width), int(s.Height)))
	for i := 0; i < s.area(); i++ {
		b, g, r, a := s.Pixels[4*i], s.Pixels[4*i+1], s.Pixels[4*i+2], s.Pixels[4*i+3]
		img.Pix[4*i+0] = r
		img.Pix[4*i+1] = g
		img.Pix[4*i+2] = b
		img.Pix[4*i+3] = a
	}
	return img
}
