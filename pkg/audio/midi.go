package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// XMI stores music as IFF chunks ("FORM XDIR", "CAT XMID" wrapping a
// "FORM XMID" with TIMB/RBRN/EVNT chunks). The EVNT stream differs from
// MIDI in two ways: delta times are plain byte sums (every byte below 0x80
// adds to the delay) and note-on events carry a variable-length duration
// instead of a paired note-off. Conversion replays the stream, schedules
// explicit note-offs and emits a format-0 Standard MIDI File.

// midiDivision is the tick resolution written to the MThd header; XMI
// timing is defined against 60 ticks per quarter note.
const midiDivision = 60

type midiEvent struct {
	tick uint64
	data []byte
}

// XMIToMID converts an XMI music resource into a Standard MIDI File.
func XMIToMID(data []byte) ([]byte, error) {
	evnt, err := findEVNT(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	events, err := convertEvents(evnt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].tick < events[j].tick
	})

	var track bytes.Buffer
	var last uint64
	for _, ev := range events {
		writeVLQ(&track, ev.tick-last)
		track.Write(ev.data)
		last = ev.tick
	}
	writeVLQ(&track, 0)
	track.Write([]byte{0xff, 0x2f, 0x00}) // end of track

	out := &bytes.Buffer{}
	out.WriteString("MThd")
	binary.Write(out, binary.BigEndian, uint32(6))
	binary.Write(out, binary.BigEndian, uint16(0)) // format 0
	binary.Write(out, binary.BigEndian, uint16(1)) // one track
	binary.Write(out, binary.BigEndian, uint16(midiDivision))
	out.WriteString("MTrk")
	binary.Write(out, binary.BigEndian, uint32(track.Len()))
	out.Write(track.Bytes())

	return out.Bytes(), nil
}

// findEVNT walks the IFF chunk tree and returns the first EVNT payload.
func findEVNT(data []byte) ([]byte, error) {
	pos := 0
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.BigEndian.Uint32(data[pos+4 : pos+8]))
		pos += 8
		if size < 0 || pos+size > len(data) {
			return nil, fmt.Errorf("chunk %q overruns buffer", id)
		}
		payload := data[pos : pos+size]

		switch id {
		case "FORM", "CAT ", "LIST":
			// Container chunks start with a four-byte subtype.
			if len(payload) >= 4 {
				if evnt, err := findEVNT(payload[4:]); err == nil {
					return evnt, nil
				}
			}
		case "EVNT":
			return payload, nil
		}

		pos += size
		if size%2 == 1 {
			pos++ // IFF chunks are word-aligned
		}
	}
	return nil, fmt.Errorf("no EVNT chunk")
}

// convertEvents replays an XMI event stream into absolute-tick MIDI
// events. Parsing stops at the end-of-track meta event.
func convertEvents(d []byte) ([]midiEvent, error) {
	var events []midiEvent
	var tick uint64
	pos := 0

	for pos < len(d) {
		b := d[pos]
		if b < 0x80 {
			tick += uint64(b)
			pos++
			continue
		}

		switch {
		case b == 0xff: // meta
			if pos+2 > len(d) {
				return nil, fmt.Errorf("truncated meta event at %d", pos)
			}
			metaType := d[pos+1]
			length, n, err := readVLQ(d[pos+2:])
			if err != nil {
				return nil, err
			}
			end := pos + 2 + n + int(length)
			if end > len(d) {
				return nil, fmt.Errorf("truncated meta event at %d", pos)
			}
			if metaType == 0x2f {
				return events, nil
			}
			events = append(events, midiEvent{tick: tick, data: append([]byte(nil), d[pos:end]...)})
			pos = end

		case b>>4 == 0x9: // note on, with XMI duration instead of note off
			if pos+3 > len(d) {
				return nil, fmt.Errorf("truncated note-on at %d", pos)
			}
			note, velocity := d[pos+1], d[pos+2]
			duration, n, err := readVLQ(d[pos+3:])
			if err != nil {
				return nil, err
			}
			events = append(events, midiEvent{tick: tick, data: []byte{b, note, velocity}})
			events = append(events, midiEvent{tick: tick + duration, data: []byte{0x80 | b&0x0f, note, 0}})
			pos += 3 + n

		case b>>4 == 0x8 || b>>4 == 0xa || b>>4 == 0xb || b>>4 == 0xe:
			if pos+3 > len(d) {
				return nil, fmt.Errorf("truncated channel event at %d", pos)
			}
			events = append(events, midiEvent{tick: tick, data: append([]byte(nil), d[pos:pos+3]...)})
			pos += 3

		case b>>4 == 0xc || b>>4 == 0xd:
			if pos+2 > len(d) {
				return nil, fmt.Errorf("truncated channel event at %d", pos)
			}
			events = append(events, midiEvent{tick: tick, data: append([]byte(nil), d[pos:pos+2]...)})
			pos += 2

		case b == 0xf0 || b == 0xf7: // sysex
			length, n, err := readVLQ(d[pos+1:])
			if err != nil {
				return nil, err
			}
			end := pos + 1 + n + int(length)
			if end > len(d) {
				return nil, fmt.Errorf("truncated sysex at %d", pos)
			}
			events = append(events, midiEvent{tick: tick, data: append([]byte(nil), d[pos:end]...)})
			pos = end

		default:
			return nil, fmt.Errorf("unexpected status byte %#02x at %d", b, pos)
		}
	}

	return events, nil
}

// readVLQ decodes a MIDI variable-length quantity and returns the value
// and the number of bytes consumed.
func readVLQ(d []byte) (uint64, int, error) {
	var v uint64
	for i := 0; i < len(d); i++ {
		v = v<<7 | uint64(d[i]&0x7f)
		if d[i]&0x80 == 0 {
			return v, i + 1, nil
		}
		if i == 3 {
			break
		}
	}
	return 0, 0, fmt.Errorf("malformed variable-length quantity")
}

// writeVLQ encodes v as a MIDI variable-length quantity.
func writeVLQ(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	n := 0
	for {
		tmp[n] = byte(v & 0x7f)
		v >>= 7
		n++
		if v == 0 {
			break
		}
	}
	for i := n - 1; i >= 0; i-- {
		b := tmp[i]
		if i > 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
	}
}
