package sprite

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawSprite builds a sprite resource: the 10-byte header followed by body.
func rawSprite(w, h uint16, body ...byte) []byte {
	buf := make([]byte, headerSize)
	buf[0] = 1                                       // delta_x
	buf[1] = 0xff                                    // delta_y = -1
	binary.LittleEndian.PutUint16(buf[2:4], w)       // width
	binary.LittleEndian.PutUint16(buf[4:6], h)       // height
	binary.LittleEndian.PutUint16(buf[6:8], 5)       // offset_x
	binary.LittleEndian.PutUint16(buf[8:10], 0xfffe) // offset_y = -2
	return append(buf, body...)
}

// testPalette has entry i = (i, i+1, i+2) with byte wrap-around.
func testPalette() *Palette {
	var p Palette
	for i := range p {
		p[i] = Color{R: uint8(i), G: uint8(i + 1), B: uint8(i + 2)}
	}
	return &p
}

func TestParsePalette(t *testing.T) {
	raw := make([]byte, PaletteSize)
	raw[3*5+0], raw[3*5+1], raw[3*5+2] = 10, 20, 30

	p, err := ParsePalette(raw)
	require.NoError(t, err)
	assert.Equal(t, Color{R: 10, G: 20, B: 30}, p[5])
	assert.Equal(t, "#0A141E", p[5].Hex())

	_, err = ParsePalette(raw[:PaletteSize-1])
	assert.ErrorIs(t, err, ErrBadPalette)

	_, err = ParsePalette(append(raw, 0))
	assert.ErrorIs(t, err, ErrBadPalette)
}

func TestHeaderFields(t *testing.T) {
	s, err := DecodeSolid(rawSprite(1, 1, 7), testPalette())
	require.NoError(t, err)

	assert.Equal(t, int8(1), s.DeltaX)
	assert.Equal(t, int8(-1), s.DeltaY)
	assert.Equal(t, uint16(1), s.Width)
	assert.Equal(t, uint16(1), s.Height)
	assert.Equal(t, int16(5), s.OffsetX)
	assert.Equal(t, int16(-2), s.OffsetY)
}

func TestDecodeSolid(t *testing.T) {
	pal := testPalette()

	t.Run("Pixels", func(t *testing.T) {
		s, err := DecodeSolid(rawSprite(2, 1, 0, 10), pal)
		require.NoError(t, err)
		// Entry 0 = (0,1,2), entry 10 = (10,11,12); emitted B,G,R,A.
		assert.Equal(t, []byte{2, 1, 0, 0xff, 12, 11, 10, 0xff}, s.Pixels)
	})

	t.Run("SizeMismatch", func(t *testing.T) {
		_, err := DecodeSolid(rawSprite(2, 2, 0, 0, 0), pal)
		assert.ErrorIs(t, err, ErrDecode)

		_, err = DecodeSolid(rawSprite(1, 1, 0, 0), pal)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("ShortHeader", func(t *testing.T) {
		_, err := DecodeSolid([]byte{1, 2, 3}, pal)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestDecodeTransparent(t *testing.T) {
	var pal Palette
	pal[5] = Color{R: 10, G: 20, B: 30}
	pal[44] = Color{R: 44, G: 45, B: 46}

	t.Run("MinimalStream", func(t *testing.T) {
		// drop=2, fill=1, index 5: two transparent pixels then entry 5.
		s, err := DecodeTransparent(rawSprite(3, 1, 2, 1, 5), &pal, 0)
		require.NoError(t, err)
		assert.Equal(t, []byte{
			0, 0, 0, 0,
			0, 0, 0, 0,
			30, 20, 10, 0xff,
		}, s.Pixels)
	})

	t.Run("ColorOffset", func(t *testing.T) {
		s, err := DecodeTransparent(rawSprite(1, 1, 0, 1, 5), &pal, 39)
		require.NoError(t, err)
		assert.Equal(t, []byte{46, 45, 44, 0xff}, s.Pixels)
	})

	t.Run("ColorOffsetWraps", func(t *testing.T) {
		// 200 + 100 wraps to 44 in uint8 arithmetic.
		s, err := DecodeTransparent(rawSprite(1, 1, 0, 1, 200), &pal, 100)
		require.NoError(t, err)
		assert.Equal(t, []byte{46, 45, 44, 0xff}, s.Pixels)
	})

	t.Run("CoverageMismatch", func(t *testing.T) {
		_, err := DecodeTransparent(rawSprite(4, 1, 2, 1, 5), &pal, 0)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("TruncatedFill", func(t *testing.T) {
		// fill announces 2 indices, stream carries 1.
		_, err := DecodeTransparent(rawSprite(3, 1, 1, 2, 5), &pal, 0)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("MissingFillCount", func(t *testing.T) {
		_, err := DecodeTransparent(rawSprite(2, 1, 2), &pal, 0)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestDecodeOverlay(t *testing.T) {
	var pal Palette
	pal[0x80] = Color{R: 1, G: 2, B: 3}

	s, err := DecodeOverlay(rawSprite(3, 1, 1, 2), &pal, 0x80)
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		3, 2, 1, 0x80,
		3, 2, 1, 0x80,
	}, s.Pixels)
}

func TestDecodeMask(t *testing.T) {
	s, err := DecodeMask(rawSprite(4, 1, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, []byte{
		0, 0, 0, 0,
		0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff,
		0xff, 0xff, 0xff, 0xff,
	}, s.Pixels)
}

func TestRunLengthCoversArea(t *testing.T) {
	// Sum of drop+fill runs must equal width*height for every
	// run-length encoding.
	body := []byte{2, 1, 5, 0, 2, 6, 7} // 2+1+0+2 = 5 pixels
	pal := testPalette()

	tr, err := DecodeTransparent(rawSprite(5, 1, body...), pal, 0)
	require.NoError(t, err)
	assert.Len(t, tr.Pixels, 5*bytesPerPixel)

	mk, err := DecodeMask(rawSprite(5, 1, 2, 1, 0, 2))
	require.NoError(t, err)
	assert.Len(t, mk.Pixels, 5*bytesPerPixel)
}

func TestSeparate(t *testing.T) {
	pal := testPalette()

	t.Run("IdenticalInputs", func(t *testing.T) {
		a, err := DecodeTransparent(rawSprite(3, 1, 2, 1, 5), pal, 0)
		require.NoError(t, err)
		b, err := DecodeTransparent(rawSprite(3, 1, 2, 1, 5), pal, 0)
		require.NoError(t, err)

		mask, img, err := Separate(a, b)
		require.NoError(t, err)
		assert.Same(t, a, img)
		for i := 0; i < len(mask.Pixels); i += bytesPerPixel {
			assert.Zero(t, mask.Pixels[i+3], "identical inputs must give a fully transparent mask")
		}
	})

	t.Run("DifferingPixels", func(t *testing.T) {
		a, err := DecodeTransparent(rawSprite(3, 1, 2, 1, 5), pal, 0)
		require.NoError(t, err)
		b, err := DecodeTransparent(rawSprite(3, 1, 2, 1, 5), pal, 8)
		require.NoError(t, err)

		mask, _, err := Separate(a, b)
		require.NoError(t, err)
		// Only the filled pixel differs between the two color offsets.
		assert.Equal(t, []byte{
			0, 0, 0, 0,
			0, 0, 0, 0,
			0xff, 0xff, 0xff, 0xff,
		}, mask.Pixels)
	})

	t.Run("DimensionMismatch", func(t *testing.T) {
		a, err := DecodeMask(rawSprite(2, 1, 0, 2))
		require.NoError(t, err)
		b, err := DecodeMask(rawSprite(3, 1, 0, 3))
		require.NoError(t, err)

		_, _, err = Separate(a, b)
		assert.ErrorIs(t, err, ErrDecode)
	})

	t.Run("NilInput", func(t *testing.T) {
		_, _, err := Separate(nil, nil)
		assert.ErrorIs(t, err, ErrDecode)
	})
}

func TestStick(t *testing.T) {
	pal := testPalette()

	base, err := DecodeSolid(rawSprite(2, 2, 1, 1, 1, 1), pal)
	require.NoError(t, err)

	// Overlay: one transparent pixel, one of entry 9.
	overlay, err := DecodeTransparent(rawSprite(2, 1, 1, 1, 9), pal, 0)
	require.NoError(t, err)

	base.Stick(overlay, 0, 1)

	// (0,1) keeps the base pixel (overlay transparent there),
	// (1,1) takes the overlay pixel.
	assert.Equal(t, []byte{3, 2, 1, 0xff}, base.Pixels[base.at(0, 1):base.at(0, 1)+4])
	assert.Equal(t, []byte{11, 10, 9, 0xff}, base.Pixels[base.at(1, 1):base.at(1, 1)+4])

	t.Run("ClipsToBase", func(t *testing.T) {
		// Offsets pushing the overlay outside must not panic or write.
		before := append([]byte(nil), base.Pixels...)
		base.Stick(overlay, 5, 5)
		base.Stick(overlay, -5, -5)
		assert.Equal(t, before, base.Pixels)
	})

	t.Run("NilOverlay", func(t *testing.T) {
		base.Stick(nil, 0, 0)
	})
}

func TestImage(t *testing.T) {
	pal := testPalette()
	s, err := DecodeSolid(rawSprite(1, 1, 20), pal)
	require.NoError(t, err)

	img := s.Image()
	require.Equal(t, 1, img.Bounds().Dx())
	// Entry 20 = (20,21,22): NRGBA stores R,G,B,A.
	assert.Equal(t, []byte{20, 21, 22, 0xff}, img.Pix)
}
