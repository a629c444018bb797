// Package index parses the archive's index table: a little-endian entry
// count followed by (size, offset) pairs, one per resource. Size precedes
// offset in the raw layout.
//
// Several index ranges are left zeroed in the shipped data file and share
// bytes with neighboring resources; fixup copies the canonical entries into
// those ranges once at parse time. The offsets involved are format
// constants of this one archive layout and are reproduced verbatim.
package index

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/serftools/spadata/pkg/archive"
)

// ErrCorruptHeader is returned when the entry count or the table records
// cannot be read from the archive.
var ErrCorruptHeader = errors.New("index: corrupt header")

// Entry identifies one resource's byte range within the archive.
// A zero offset denotes an absent resource, never a zero-length one.
type Entry struct {
	Offset uint32
	Size   uint32
}

// Table is the parsed index. Entry 0 is a reserved placeholder for the
// whole file and is never dereferenced. The table is immutable after Parse.
type Table struct {
	entries []Entry
}

const recordSize = 8 // u32 size + u32 offset

// Parse reads the index table from the start of the archive and applies
// the fixups.
func Parse(a *archive.Archive) (*Table, error) {
	head, err := a.Range(0, 4)
	if err != nil {
		return nil, fmt.Errorf("%w: missing entry count", ErrCorruptHeader)
	}
	count := binary.LittleEndian.Uint32(head)
	if uint64(count)*recordSize > uint64(a.Len()) {
		return nil, fmt.Errorf("%w: %d entries declared, table truncated", ErrCorruptHeader, count)
	}

	raw, err := a.Range(4, count*recordSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %d entries declared, table truncated", ErrCorruptHeader, count)
	}

	entries := make([]Entry, 0, count+1)
	entries = append(entries, Entry{}) // slot 0: the file itself
	for i := uint32(0); i < count; i++ {
		rec := raw[i*recordSize:]
		entries = append(entries, Entry{
			Size:   binary.LittleEndian.Uint32(rec[0:4]),
			Offset: binary.LittleEndian.Uint32(rec[4:8]),
		})
	}

	t := &Table{entries: entries}
	t.fixup()
	return t, nil
}

// fixup fills undefined index ranges from their canonical entries. Runs
// exactly once, from Parse. Each block is skipped if the table does not
// reach it; the genuine data file always does.
func (t *Table) fixup() {
	// 48 six-wide animation variant blocks share one underlying resource.
	if len(t.entries) > 3450+6*47+5 {
		for i := 0; i < 48; i++ {
			for j := 1; j < 6; j++ {
				t.entries[3450+6*i+j] = t.entries[3450+6*i]
			}
		}
	}

	if len(t.entries) > 3767 {
		for i := 0; i < 3; i++ {
			t.entries[3765+i] = t.entries[3762+i]
		}
	}

	if len(t.entries) > 1618 {
		for i := 0; i < 6; i++ {
			t.entries[1363+i] = t.entries[1352]
			t.entries[1613+i] = t.entries[1602]
		}
	}
}

// Len returns the number of table slots, including the reserved slot 0.
func (t *Table) Len() int {
	return len(t.entries)
}

// Lookup returns the entry at i. The second return is false when i is out
// of bounds or the entry's offset is zero (absent resource).
func (t *Table) Lookup(i uint32) (Entry, bool) {
	if i >= uint32(len(t.entries)) {
		return Entry{}, false
	}
	e := t.entries[i]
	if e.Offset == 0 {
		return Entry{}, false
	}
	return e, true
}

// Get resolves the entry at i to its byte range in the archive. It returns
// nil, false for absent resources or ranges outside the archive.
func (t *Table) Get(a *archive.Archive, i uint32) ([]byte, bool) {
	e, ok := t.Lookup(i)
	if !ok {
		return nil, false
	}
	data, err := a.Range(e.Offset, e.Size)
	if err != nil {
		return nil, false
	}
	return data, true
}
