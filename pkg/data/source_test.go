package data

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serftools/spadata/pkg/audio"
)

const testEntryCount = 4000

// archiveBuilder assembles a synthetic data file: an index table sized
// like the real archive followed by a flat payload pool.
type archiveBuilder struct {
	offsets [testEntryCount + 1]uint32
	sizes   [testEntryCount + 1]uint32
	payload []byte
}

func newArchiveBuilder() *archiveBuilder {
	return &archiveBuilder{}
}

func (b *archiveBuilder) set(idx uint32, data []byte) {
	headerLen := 4 + testEntryCount*8
	b.offsets[idx] = uint32(headerLen + len(b.payload))
	b.sizes[idx] = uint32(len(data))
	b.payload = append(b.payload, data...)
}

func (b *archiveBuilder) bytes() []byte {
	out := make([]byte, 4+testEntryCount*8, 4+testEntryCount*8+len(b.payload))
	binary.LittleEndian.PutUint32(out[0:4], testEntryCount)
	for i := 1; i <= testEntryCount; i++ {
		rec := out[4+(i-1)*8:]
		binary.LittleEndian.PutUint32(rec[0:4], b.sizes[i])
		binary.LittleEndian.PutUint32(rec[4:8], b.offsets[i])
	}
	return append(out, b.payload...)
}

// rawSprite builds a sprite resource with the 10-byte header.
func rawSprite(w, h uint16, body ...byte) []byte {
	buf := make([]byte, 10)
	binary.LittleEndian.PutUint16(buf[2:4], w)
	binary.LittleEndian.PutUint16(buf[4:6], h)
	return append(buf, body...)
}

// rawPalette returns a 768-byte palette with entry i = (i, i, i).
func rawPalette() []byte {
	out := make([]byte, 768)
	for i := 0; i < 256; i++ {
		out[3*i], out[3*i+1], out[3*i+2] = byte(i), byte(i), byte(i)
	}
	return out
}

// rawAnimation builds the length-prefixed animation table resource.
func rawAnimation(body []byte) []byte {
	out := make([]byte, 4+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(len(body)))
	copy(out[4:], body)
	return out
}

// loadedSource builds and loads a Source over a populated test archive.
func loadedSource(t *testing.T, mutate func(*archiveBuilder), opts ...Option) *Source {
	t.Helper()

	b := newArchiveBuilder()
	b.set(animationTableIndex, rawAnimation([]byte{1, 2, 3, 4}))
	b.set(3, rawPalette())
	if mutate != nil {
		mutate(b)
	}

	s := New(opts...)
	require.NoError(t, s.LoadBytes(b.bytes()))
	return s
}

func TestLoad(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		s := loadedSource(t, nil)
		assert.True(t, s.Loaded())
		assert.Equal(t, testEntryCount+1, s.EntryCount())
		assert.Equal(t, []byte{1, 2, 3, 4}, s.AnimationTable())
	})

	t.Run("TruncatedTable", func(t *testing.T) {
		raw := make([]byte, 4)
		binary.LittleEndian.PutUint32(raw, 100)

		s := New()
		err := s.LoadBytes(raw)
		require.Error(t, err)
		assert.False(t, s.Loaded(), "no table may be published after a failed load")
		assert.Zero(t, s.EntryCount())
	})

	t.Run("AnimationTableMissing", func(t *testing.T) {
		b := newArchiveBuilder()
		b.set(3, rawPalette())
		assert.Error(t, New().LoadBytes(b.bytes()))
	})

	t.Run("AnimationLengthMismatch", func(t *testing.T) {
		b := newArchiveBuilder()
		bad := rawAnimation([]byte{1, 2, 3, 4})
		binary.BigEndian.PutUint32(bad[0:4], 99)
		b.set(animationTableIndex, bad)
		b.set(3, rawPalette())

		s := New()
		assert.Error(t, s.LoadBytes(b.bytes()))
		assert.Nil(t, s.AnimationTable())
	})

	t.Run("MissingFile", func(t *testing.T) {
		assert.Error(t, New().Load("testdata/absent.pa"))
	})
}

func TestGetSpritePartsPlainKinds(t *testing.T) {
	s := loadedSource(t, func(b *archiveBuilder) {
		b.set(870, rawSprite(1, 1, 7))       // icon, solid
		b.set(750, rawSprite(2, 1, 1, 1, 9)) // font, transparent
		b.set(60, rawSprite(2, 1, 1, 1))     // map-mask-up, mask
		b.set(4, rawSprite(1, 1, 0, 1))      // serf-shadow, overlay
	})

	t.Run("Solid", func(t *testing.T) {
		mask, img, err := s.GetSpriteParts(KindIcon, 0)
		require.NoError(t, err)
		assert.Nil(t, mask)
		require.NotNil(t, img)
		assert.Equal(t, []byte{7, 7, 7, 0xff}, img.Pixels)
	})

	t.Run("Font", func(t *testing.T) {
		mask, img, err := s.GetSpriteParts(KindFont, 0)
		require.NoError(t, err)
		assert.Nil(t, mask)
		require.NotNil(t, img)
		assert.Equal(t, uint16(2), img.Width)
	})

	t.Run("Mask", func(t *testing.T) {
		mask, img, err := s.GetSpriteParts(KindMapMaskUp, 0)
		require.NoError(t, err)
		assert.Nil(t, img)
		require.NotNil(t, mask)
		assert.Equal(t, []byte{0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff}, mask.Pixels)
	})

	t.Run("Overlay", func(t *testing.T) {
		_, img, err := s.GetSpriteParts(KindSerfShadow, 0)
		require.NoError(t, err)
		require.NotNil(t, img)
		// Fill pixels use palette entry 0x80 with alpha 0x80.
		assert.Equal(t, []byte{0x80, 0x80, 0x80, 0x80}, img.Pixels)
	})

	t.Run("AbsentIndex", func(t *testing.T) {
		_, _, err := s.GetSpriteParts(KindIcon, 5)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("NonSpriteKind", func(t *testing.T) {
		_, _, err := s.GetSpriteParts(KindSound, 0)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestGetSpritePartsSerfTorso(t *testing.T) {
	// Fill index 10 resolves to palette entries 74 and 82 under the two
	// color offsets, so the filled pixel is tintable and lands in the mask.
	torso := rawSprite(2, 1, 1, 1, 10)
	arms := rawSprite(1, 1, 0, 1, 3)

	t.Run("WithArms", func(t *testing.T) {
		s := loadedSource(t, func(b *archiveBuilder) {
			b.set(2500, torso)
			b.set(serfArmsIndex, arms)
		})

		mask, img, err := s.GetSpriteParts(KindSerfTorso, 0)
		require.NoError(t, err)
		require.NotNil(t, mask)
		require.NotNil(t, img)

		// Pixel 0 was transparent in both variants until the arms
		// overlay replaced it; pixel 1 is the tinted torso pixel.
		assert.Equal(t, []byte{3, 3, 3, 0xff}, img.Pixels[0:4])
		assert.Equal(t, []byte{74, 74, 74, 0xff}, img.Pixels[4:8])

		assert.Equal(t, []byte{0, 0, 0, 0}, mask.Pixels[0:4])
		assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, mask.Pixels[4:8])
	})

	t.Run("MissingArmsDegrades", func(t *testing.T) {
		s := loadedSource(t, func(b *archiveBuilder) {
			b.set(2500, torso)
		})

		mask, img, err := s.GetSpriteParts(KindSerfTorso, 0)
		require.NoError(t, err)
		assert.NotNil(t, mask)
		require.NotNil(t, img)
		assert.Equal(t, []byte{0, 0, 0, 0}, img.Pixels[0:4], "no arms overlay applied")
	})

	t.Run("MissingTorso", func(t *testing.T) {
		s := loadedSource(t, nil)
		_, _, err := s.GetSpriteParts(KindSerfTorso, 0)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestGetSpritePartsFlagFrames(t *testing.T) {
	s := loadedSource(t, func(b *archiveBuilder) {
		// Flag index 130: frame 2, pair at 1250+130 and 1250+134.
		b.set(1250+130, rawSprite(1, 1, 0, 1, 10))
		b.set(1250+134, rawSprite(1, 1, 0, 1, 20))
	})

	mask, img, err := s.GetSpriteParts(KindMapObject, 130)
	require.NoError(t, err)
	require.NotNil(t, mask)
	require.NotNil(t, img)
	assert.Equal(t, []byte{10, 10, 10, 0xff}, img.Pixels)
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xff}, mask.Pixels)
}

func TestGetSound(t *testing.T) {
	s := loadedSource(t, func(b *archiveBuilder) {
		b.set(sfxBaseIndex+1, []byte{0x80, 0x90, 0x70})
	})

	t.Run("Convert", func(t *testing.T) {
		out, err := s.GetSound(1)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFF"), out[0:4])
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := s.GetSound(7)
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("ConverterFailure", func(t *testing.T) {
		failing := loadedSource(t, func(b *archiveBuilder) {
			b.set(sfxBaseIndex+1, []byte{0x80})
		}, WithSoundConverter(func([]byte, int) ([]byte, error) {
			return nil, audio.ErrConversion
		}))

		_, err := failing.GetSound(1)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestGetMusic(t *testing.T) {
	s := loadedSource(t, func(b *archiveBuilder) {
		b.set(musicGameIndex, []byte{0xaa, 0xbb})
	}, WithMusicConverter(func(raw []byte) ([]byte, error) {
		return append([]byte("MID:"), raw...), nil
	}))

	t.Run("Convert", func(t *testing.T) {
		out, err := s.GetMusic(0)
		require.NoError(t, err)
		assert.Equal(t, []byte("MID:\xaa\xbb"), out)
	})

	t.Run("Absent", func(t *testing.T) {
		_, err := s.GetMusic(5)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestNotLoaded(t *testing.T) {
	s := New()

	_, _, err := s.GetSpriteParts(KindIcon, 0)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.GetSound(0)
	assert.ErrorIs(t, err, ErrNotLoaded)

	_, err = s.GetMusic(0)
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind("map-object")
	require.True(t, ok)
	assert.Equal(t, KindMapObject, k)

	k, ok = ParseKind(" Serf-Torso ")
	require.True(t, ok)
	assert.Equal(t, KindSerfTorso, k)

	_, ok = ParseKind("no-such-kind")
	assert.False(t, ok)
}

func TestCatalogConstants(t *testing.T) {
	// Spot checks against the original layout.
	assert.Equal(t, uint32(2500), KindSerfTorso.Describe().FirstIndex)
	assert.Equal(t, uint32(3), KindSerfTorso.Describe().PaletteIndex)
	assert.Equal(t, EncodingTransparent, KindSerfTorso.Describe().Encoding)
	assert.Equal(t, uint32(1250), KindMapObject.Describe().FirstIndex)
	assert.Equal(t, uint32(3997), KindArtLandscape.Describe().PaletteIndex)
	assert.Equal(t, EncodingOverlay, KindMapShadow.Describe().Encoding)
	assert.Equal(t, EncodingMask, KindPathMask.Describe().Encoding)
}
