package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrBadStringMarker is returned by Reader.ReadString when a string's
// marker byte is neither 0x00 (absent) nor 0x0B (present). Per §4.A the
// caller must abort only the current packet and continue the stream.
var ErrBadStringMarker = errors.New("protocol: malformed string marker")

// headerSize is id:u16, pad:u8, length:u32.
const headerSize = 7

// Packet is one decoded frame: a packet id plus its raw, not yet
// interpreted body.
type Packet struct {
	ID   uint16
	Data []byte
}

// WritePacket appends a complete frame (header + body) for id to w.
func WritePacket(w *Writer, id uint16, body []byte) {
	var hdr [headerSize]byte
	binary.LittleEndian.PutUint16(hdr[0:2], id)
	hdr[2] = 0
	binary.LittleEndian.PutUint32(hdr[3:7], uint32(len(body)))
	w.WriteRaw(hdr[:])
	w.WriteRaw(body)
}

// ReadPacket reads a single frame starting at buf[offset:], returning the
// packet and the offset of the byte following it. It never allocates: the
// returned Packet.Data aliases buf.
func ReadPacket(buf []byte, offset int) (Packet, int, error) {
	if len(buf)-offset < headerSize {
		return Packet{}, offset, fmt.Errorf("protocol: short header at offset %d", offset)
	}
	id := binary.LittleEndian.Uint16(buf[offset : offset+2])
	length := binary.LittleEndian.Uint32(buf[offset+3 : offset+7])
	start := offset + headerSize
	end := start + int(length)
	if end > len(buf) || end < start {
		return Packet{}, offset, fmt.Errorf("protocol: declared length %d overruns buffer at offset %d", length, offset)
	}
	return Packet{ID: id, Data: buf[start:end]}, end, nil
}

// DispatchFunc handles one decoded packet. Returning an error aborts
// further dispatch of the packets in the current request per §7 (the
// caller is expected to log and continue enqueueing the response).
type DispatchFunc func(Packet) error

// ReadAll decodes every frame in buf in order and invokes dispatch for
// each recognized one, skipping unrecognized ids by consuming their
// declared length (§4.A, §4.H). known reports whether id has a handler;
// when it does not, ReadAll skips the packet without calling dispatch.
// A malformed frame (bad header, truncated body) stops the stream.
func ReadAll(buf []byte, known func(id uint16) bool, dispatch DispatchFunc) error {
	offset := 0
	for offset < len(buf) {
		pkt, next, err := ReadPacket(buf, offset)
		if err != nil {
			return err
		}
		offset = next
		if known != nil && !known(pkt.ID) {
			continue
		}
		if err := dispatch(pkt); err != nil {
			return err
		}
	}
	return nil
}
