package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{Sender: "cookiezi", Text: "hello world", Recipient: "#osu", SenderID: 1001}
	encoded := EncodeMessage(msg)

	pkt, next, err := ReadPacket(encoded, 0)
	require.NoError(t, err)
	assert.Equal(t, len(encoded), next)

	r := NewReader(pkt.Data)
	decoded, err := ReadMessage(r)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestMessageEmptyText(t *testing.T) {
	msg := Message{Sender: "cookiezi", Text: "", Recipient: "#osu", SenderID: 1001}
	encoded := EncodeMessage(msg)
	pkt, _, err := ReadPacket(encoded, 0)
	require.NoError(t, err)

	decoded, err := ReadMessage(NewReader(pkt.Data))
	require.NoError(t, err)
	assert.Equal(t, "", decoded.Text)
}
