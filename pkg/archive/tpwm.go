package archive

import (
	"fmt"
)

// tpwmMagic identifies the DOS-era TPWM compression wrapper. Original
// installs shipped the data file either raw or inside this container.
var tpwmMagic = [4]byte{'T', 'P', 'W', 'M'}

// tpwmHeaderSize is the magic plus the little-endian uncompressed size.
const tpwmHeaderSize = 8

// unpackTPWM removes the TPWM wrapper from raw. The body is an LZSS-style
// stream: a flag byte announces eight items, most significant bit first.
// A set bit is a back-reference of two bytes t1,t2 encoding a copy of
// (t1&0x0f)+3 bytes from ((t1&0xf0)<<4)|t2 bytes behind the write position;
// a clear bit is a literal. Decoding stops once the announced uncompressed
// size has been produced.
//
// A buffer without the TPWM magic returns ErrNotCompressed.
func unpackTPWM(raw []byte) ([]byte, error) {
	if len(raw) < tpwmHeaderSize || [4]byte(raw[0:4]) != tpwmMagic {
		return nil, ErrNotCompressed
	}

	size := uint32(raw[4]) | uint32(raw[5])<<8 | uint32(raw[6])<<16 | uint32(raw[7])<<24
	out := make([]byte, 0, size)
	src := raw[tpwmHeaderSize:]
	pos := 0

	for pos < len(src) && uint32(len(out)) < size {
		flag := src[pos]
		pos++

		for bit := 0; bit < 8 && uint32(len(out)) < size; bit++ {
			set := flag&0x80 != 0
			flag <<= 1

			if set {
				if pos+2 > len(src) {
					return nil, fmt.Errorf("tpwm: truncated back-reference at %d", pos)
				}
				t1, t2 := src[pos], src[pos+1]
				pos += 2

				length := int(t1&0x0f) + 3
				offset := int(t1&0xf0)<<4 | int(t2)
				if offset == 0 || offset > len(out) {
					return nil, fmt.Errorf("tpwm: back-reference offset %d outside %d written bytes", offset, len(out))
				}
				// Copies may overlap their own output.
				for i := 0; i < length; i++ {
					out = append(out, out[len(out)-offset])
				}
			} else {
				if pos >= len(src) {
					return nil, fmt.Errorf("tpwm: truncated literal at %d", pos)
				}
				out = append(out, src[pos])
				pos++
			}
		}
	}

	if uint32(len(out)) != size {
		return nil, fmt.Errorf("tpwm: produced %d of %d declared bytes", len(out), size)
	}

	return out, nil
}
