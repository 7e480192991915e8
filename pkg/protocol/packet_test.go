package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePacketReadPacketRoundTrip(t *testing.T) {
	w := NewWriter()
	WritePacket(w, 5, []byte("hello"))

	pkt, next, err := ReadPacket(w.Bytes(), 0)
	require.NoError(t, err)
	assert.Equal(t, len(w.Bytes()), next)
	assert.EqualValues(t, 5, pkt.ID)
	assert.Equal(t, []byte("hello"), pkt.Data)
}

func TestReadPacketShortHeader(t *testing.T) {
	_, _, err := ReadPacket([]byte{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestReadPacketDeclaredLengthOverrunsBuffer(t *testing.T) {
	w := NewWriter()
	WritePacket(w, 1, []byte("abc"))
	truncated := w.Bytes()[:len(w.Bytes())-1]

	_, _, err := ReadPacket(truncated, 0)
	assert.Error(t, err)
}

func TestReadAllSkipsUnknownPacketsAndDispatchesKnown(t *testing.T) {
	w := NewWriter()
	WritePacket(w, 1, []byte("a"))
	WritePacket(w, 99, []byte("skip me"))
	WritePacket(w, 2, []byte("b"))

	var dispatched []uint16
	known := func(id uint16) bool { return id == 1 || id == 2 }
	err := ReadAll(w.Bytes(), known, func(pkt Packet) error {
		dispatched = append(dispatched, pkt.ID)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, dispatched)
}

func TestReadAllStopsOnMalformedFrame(t *testing.T) {
	w := NewWriter()
	WritePacket(w, 1, []byte("a"))
	buf := append(w.Bytes(), 0xFF, 0xFF, 0xFF)

	err := ReadAll(buf, func(uint16) bool { return true }, func(Packet) error { return nil })
	assert.Error(t, err)
}
