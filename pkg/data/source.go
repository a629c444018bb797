// Package data is the public entry point to the game's asset archive. A
// Source loads the data file once, then serves decoded sprites, sounds,
// music and the raw animation timing table on request.
//
// Requests never fail hard: an absent index entry, an unresolvable palette
// or a malformed sprite collapses to ErrUnavailable for that one request
// and leaves the loaded archive untouched. Only Load itself can fail the
// whole archive. After a successful Load the Source is immutable and safe
// for concurrent readers.
package data

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/serftools/spadata/pkg/archive"
	"github.com/serftools/spadata/pkg/audio"
	"github.com/serftools/spadata/pkg/index"
	"github.com/serftools/spadata/pkg/sprite"
)

var (
	// ErrUnavailable is returned for any request that cannot be served:
	// absent resource, unresolved palette, or a decode failure. It never
	// indicates a problem with the archive as a whole.
	ErrUnavailable = errors.New("data: resource unavailable")

	// ErrNotLoaded is returned when a Source is used before a successful
	// Load.
	ErrNotLoaded = errors.New("data: archive not loaded")
)

// sfxLevel is the sample bias handed to the sound converter, matching the
// original renderer.
const sfxLevel = -32

// SoundConverter turns a raw SFX resource into playable audio bytes.
type SoundConverter func(raw []byte, level int) ([]byte, error)

// MusicConverter turns a raw XMI resource into playable audio bytes.
type MusicConverter func(raw []byte) ([]byte, error)

// Source serves decoded assets from one loaded archive.
type Source struct {
	log   zerolog.Logger
	sound SoundConverter
	music MusicConverter

	arch      *archive.Archive
	table     *index.Table
	animation []byte
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Source) { s.log = log }
}

// WithSoundConverter replaces the default SFX→WAV converter.
func WithSoundConverter(c SoundConverter) Option {
	return func(s *Source) { s.sound = c }
}

// WithMusicConverter replaces the default XMI→MIDI converter.
func WithMusicConverter(c MusicConverter) Option {
	return func(s *Source) { s.music = c }
}

// New creates an unloaded Source.
func New(opts ...Option) *Source {
	s := &Source{
		log:   zerolog.Nop(),
		sound: audio.SFXToWAV,
		music: audio.XMIToMID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load opens the archive file, parses the index table and extracts the
// animation timing table. Any failure aborts the whole load; there is no
// partial-load state.
func (s *Source) Load(path string) error {
	arch, err := archive.Open(path)
	if err != nil {
		return err
	}
	return s.loadArchive(arch)
}

// LoadBytes loads an already-read archive buffer. Used by tests and by
// callers that locate the data file themselves.
func (s *Source) LoadBytes(raw []byte) error {
	return s.loadArchive(archive.FromBytes(raw))
}

func (s *Source) loadArchive(arch *archive.Archive) error {
	table, err := index.Parse(arch)
	if err != nil {
		return err
	}

	// The animation table is stored with a big-endian length prefix that
	// must match the remaining byte count exactly.
	anim, ok := table.Get(arch, animationTableIndex)
	if !ok || len(anim) < 4 {
		return fmt.Errorf("%w: animation table missing", index.ErrCorruptHeader)
	}
	declared := binary.BigEndian.Uint32(anim[:4])
	if int(declared) != len(anim)-4 {
		return fmt.Errorf("%w: animation table declares %d bytes, carries %d",
			index.ErrCorruptHeader, declared, len(anim)-4)
	}

	s.arch = arch
	s.table = table
	s.animation = anim[4:]
	s.log.Info().Int("size", arch.Len()).Int("entries", table.Len()).Msg("archive loaded")
	return nil
}

// Loaded reports whether a Load has succeeded.
func (s *Source) Loaded() bool {
	return s.table != nil
}

// EntryCount returns the number of index slots, including the reserved
// slot 0.
func (s *Source) EntryCount() int {
	if s.table == nil {
		return 0
	}
	return s.table.Len()
}

// AnimationTable returns the raw animation timing table bytes (without the
// length prefix), or nil before Load.
func (s *Source) AnimationTable() []byte {
	return s.animation
}

// object resolves an index table entry to its bytes.
func (s *Source) object(i uint32) ([]byte, bool) {
	if s.table == nil {
		return nil, false
	}
	return s.table.Get(s.arch, i)
}

// Palette resolves the palette resource at archive index i.
func (s *Source) Palette(i uint32) (*sprite.Palette, error) {
	data, ok := s.object(i)
	if !ok {
		return nil, fmt.Errorf("%w: palette %d", ErrUnavailable, i)
	}
	pal, err := sprite.ParsePalette(data)
	if err != nil {
		return nil, fmt.Errorf("%w: palette %d: %v", ErrUnavailable, i, err)
	}
	return pal, nil
}

// GetSpriteParts decodes the sprite at index within kind and returns its
// mask and image components. Depending on the kind either part may be nil:
// plain kinds yield only an image, mask kinds only a mask, and the
// composite kinds (serf torsos, flag frames) yield both.
func (s *Source) GetSpriteParts(kind Kind, idx uint32) (mask, img *sprite.Sprite, err error) {
	if s.table == nil {
		return nil, nil, ErrNotLoaded
	}

	desc := kind.Describe()
	if desc.PaletteIndex == 0 {
		return nil, nil, fmt.Errorf("%w: %s is not a sprite kind", ErrUnavailable, kind)
	}

	pal, err := s.Palette(desc.PaletteIndex)
	if err != nil {
		s.log.Error().Str("kind", kind.String()).Uint32("index", idx).Msg("palette unresolved")
		return nil, nil, err
	}

	switch {
	case kind == KindSerfTorso:
		return s.serfTorso(desc, idx, pal)
	case kind == KindMapObject && idx >= flagFrameFirst && idx <= flagFrameLast:
		return s.flagFrame(desc, idx, pal)
	case kind == KindFont || kind == KindFontShadow:
		img, err := s.decodeAt(desc.FirstIndex+idx, pal, EncodingTransparent, kind, idx)
		if err != nil {
			return nil, nil, err
		}
		return nil, img, nil
	}

	sp, err := s.decodeAt(desc.FirstIndex+idx, pal, desc.Encoding, kind, idx)
	if err != nil {
		return nil, nil, err
	}
	if desc.Encoding == EncodingMask {
		return sp, nil, nil
	}
	return nil, sp, nil
}

// serfTorso decodes the torso twice with the two player-color offsets,
// separates the tintable region into a mask, and sticks the matching arms
// overlay onto the torso image. A missing arms layer is tolerated: the
// torso still renders, just without arms.
func (s *Source) serfTorso(desc Descriptor, idx uint32, pal *sprite.Palette) (*sprite.Sprite, *sprite.Sprite, error) {
	raw, ok := s.object(desc.FirstIndex + idx)
	if !ok {
		return nil, nil, fmt.Errorf("%w: serf-torso %d", ErrUnavailable, idx)
	}

	torso, err := sprite.DecodeTransparent(raw, pal, torsoColorOffsetA)
	if err != nil {
		s.log.Error().Err(err).Uint32("index", idx).Msg("serf torso decode failed")
		return nil, nil, fmt.Errorf("%w: serf-torso %d", ErrUnavailable, idx)
	}
	torso2, err := sprite.DecodeTransparent(raw, pal, torsoColorOffsetB)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: serf-torso %d", ErrUnavailable, idx)
	}

	mask, img, err := sprite.Separate(torso, torso2)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: serf-torso %d: %v", ErrUnavailable, idx, err)
	}

	if armsRaw, ok := s.object(serfArmsIndex + idx); ok {
		if arms, err := sprite.DecodeTransparent(armsRaw, pal, 0); err == nil {
			img.Stick(arms, 0, 0)
		} else {
			s.log.Warn().Err(err).Uint32("index", idx).Msg("serf arms decode failed, torso kept without arms")
		}
	} else {
		s.log.Warn().Uint32("index", idx).Msg("serf arms missing, torso kept without arms")
	}

	return mask, img, nil
}

// flagFrame decodes one of the four flag animation frame pairs and
// separates the player-color region.
func (s *Source) flagFrame(desc Descriptor, idx uint32, pal *sprite.Palette) (*sprite.Sprite, *sprite.Sprite, error) {
	frame := (idx - flagFrameFirst) % flagFrameCount

	first, err := s.decodeAt(desc.FirstIndex+flagFrameFirst+frame, pal, EncodingTransparent, KindMapObject, idx)
	if err != nil {
		return nil, nil, err
	}
	second, err := s.decodeAt(desc.FirstIndex+flagFrameFirst+flagFrameCount+frame, pal, EncodingTransparent, KindMapObject, idx)
	if err != nil {
		return nil, nil, err
	}

	mask, img, err := sprite.Separate(first, second)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: map-object %d: %v", ErrUnavailable, idx, err)
	}
	return mask, img, nil
}

// decodeAt fetches the resource at archive index i and decodes it with the
// given encoding. All failures collapse to ErrUnavailable.
func (s *Source) decodeAt(i uint32, pal *sprite.Palette, enc Encoding, kind Kind, idx uint32) (*sprite.Sprite, error) {
	raw, ok := s.object(i)
	if !ok {
		return nil, fmt.Errorf("%w: %s %d", ErrUnavailable, kind, idx)
	}

	var (
		sp  *sprite.Sprite
		err error
	)
	switch enc {
	case EncodingSolid:
		sp, err = sprite.DecodeSolid(raw, pal)
	case EncodingTransparent:
		sp, err = sprite.DecodeTransparent(raw, pal, 0)
	case EncodingOverlay:
		sp, err = sprite.DecodeOverlay(raw, pal, shadowAlpha)
	case EncodingMask:
		sp, err = sprite.DecodeMask(raw)
	default:
		return nil, fmt.Errorf("%w: %s has no sprite encoding", ErrUnavailable, kind)
	}
	if err != nil {
		s.log.Error().Err(err).Str("kind", kind.String()).Uint32("index", idx).Msg("sprite decode failed")
		return nil, fmt.Errorf("%w: %s %d", ErrUnavailable, kind, idx)
	}
	return sp, nil
}

// GetSound converts the SFX clip at index into playable audio bytes.
func (s *Source) GetSound(idx uint32) ([]byte, error) {
	if s.table == nil {
		return nil, ErrNotLoaded
	}
	raw, ok := s.object(sfxBaseIndex + idx)
	if !ok {
		s.log.Error().Uint32("index", idx).Msg("could not extract sfx clip")
		return nil, fmt.Errorf("%w: sound %d", ErrUnavailable, idx)
	}
	out, err := s.sound(raw, sfxLevel)
	if err != nil {
		s.log.Error().Err(err).Uint32("index", idx).Msg("could not convert sfx clip")
		return nil, fmt.Errorf("%w: sound %d", ErrUnavailable, idx)
	}
	return out, nil
}

// GetMusic converts the music track at index into playable audio bytes.
// Index 0 is the in-game track block; the ending theme lives at
// musicEndingIndex-musicGameIndex.
func (s *Source) GetMusic(idx uint32) ([]byte, error) {
	if s.table == nil {
		return nil, ErrNotLoaded
	}
	raw, ok := s.object(musicGameIndex + idx)
	if !ok {
		s.log.Error().Uint32("index", idx).Msg("could not extract music track")
		return nil, fmt.Errorf("%w: music %d", ErrUnavailable, idx)
	}
	out, err := s.music(raw)
	if err != nil {
		s.log.Error().Err(err).Uint32("index", idx).Msg("could not convert music track")
		return nil, fmt.Errorf("%w: music %d", ErrUnavailable, idx)
	}
	return out, nil
}
