// Package archive provides access to the raw game data archive: whole-file
// loading, transparent decompression of the two known container wrappers,
// and bounds-checked random access to byte ranges.
//
// The data file may appear in three forms:
//  1. Uncompressed, exactly as shipped on the original install media.
//  2. Wrapped in the DOS-era TPWM compression container.
//  3. Wrapped in the zstd container produced by the repack tool.
//
// Open unwraps whichever form it finds; callers always see the raw
// uncompressed archive bytes.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

var (
	// ErrNotFound is returned by Open when the archive file does not exist.
	ErrNotFound = errors.New("archive: file not found")

	// ErrOutOfBounds is returned by Range when a requested byte range
	// exceeds the archive buffer. Callers treat this as "resource absent".
	ErrOutOfBounds = errors.New("archive: range out of bounds")

	// ErrNotCompressed signals that a buffer does not carry the container
	// wrapper a decoder was asked to remove. It is not a failure; it means
	// the buffer is already uncompressed.
	ErrNotCompressed = errors.New("archive: not compressed")
)

// Archive is an immutable in-memory copy of the uncompressed data file.
// It is safe for concurrent readers after construction.
type Archive struct {
	data []byte
}

// Open reads the archive file at path and unwraps any recognized
// compression container.
func Open(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read archive: %w", err)
	}
	return FromBytes(data), nil
}

// FromBytes builds an Archive from raw bytes, unwrapping any recognized
// compression container. Decompression failure is not an error; the bytes
// are then taken to be the uncompressed archive itself.
func FromBytes(data []byte) *Archive {
	if unwrapped, err := decodeContainer(bytes.NewReader(data)); err == nil {
		return &Archive{data: unwrapped}
	}
	if unwrapped, err := unpackTPWM(data); err == nil {
		return &Archive{data: unwrapped}
	}
	return &Archive{data: data}
}

// Len returns the size of the uncompressed archive in bytes.
func (a *Archive) Len() int {
	return len(a.data)
}

// Range returns a copy of size bytes starting at offset.
func (a *Archive) Range(offset, size uint32) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(a.data)) {
		return nil, fmt.Errorf("%w: offset %d size %d in %d byte archive",
			ErrOutOfBounds, offset, size, len(a.data))
	}
	out := make([]byte, size)
	copy(out, a.data[offset:end])
	return out, nil
}

// Bytes returns the uncompressed archive contents. The returned slice must
// not be modified.
func (a *Archive) Bytes() []byte {
	return a.data
}
