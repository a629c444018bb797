// Package audio converts the archive's raw sound resources into playable
// containers: 8-bit PCM sound effects into RIFF/WAVE files and XMI music
// tracks into Standard MIDI Files.
package audio

import (
	"encoding/binary"
	"errors"
)

// ErrConversion is returned when a raw audio resource cannot be converted.
var ErrConversion = errors.New("audio: conversion failed")

// SFX clips are 8-bit unsigned mono PCM at 8 kHz.
const (
	sfxSampleRate = 8000
	sfxChannels   = 1
	wavBitDepth   = 16
)

const wavHeaderSize = 44 // RIFF + fmt + data chunk headers

// SFXToWAV wraps a raw SFX resource in a 16-bit RIFF/WAVE container.
// level is added to every sample before widening; the game passes -32 to
// match the original mixer's bias.
func SFXToWAV(data []byte, level int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("audio: empty sfx resource")
	}

	dataSize := len(data) * 2
	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // PCM
	binary.LittleEndian.PutUint16(out[22:24], sfxChannels)
	binary.LittleEndian.PutUint32(out[24:28], sfxSampleRate)
	binary.LittleEndian.PutUint32(out[28:32], sfxSampleRate*sfxChannels*wavBitDepth/8)
	binary.LittleEndian.PutUint16(out[32:34], sfxChannels*wavBitDepth/8)
	binary.LittleEndian.PutUint16(out[34:36], wavBitDepth)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	for i, b := range data {
		sample := int(b) - 0x80 + level
		if sample < -0x80 {
			sample = -0x80
		} else if sample > 0x7f {
			sample = 0x7f
		}
		binary.LittleEndian.PutUint16(out[wavHeaderSize+2*i:], uint16(int16(sample)<<8))
	}

	return out, nil
}
