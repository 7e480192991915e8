package protocol

// Message is the wire payload for SEND_PUBLIC_MESSAGE / SEND_PRIVATE_MESSAGE
// / SEND_MESSAGE: three strings (sender, text, recipient) plus the sender's
// numeric id (§4.A).
type Message struct {
	Sender    string
	Text      string
	Recipient string
	SenderID  int32
}

// ReadMessage decodes a Message from r.
func ReadMessage(r *Reader) (Message, error) {
	var m Message
	var err error
	if m.Sender, err = r.ReadString(); err != nil {
		return Message{}, err
	}
	if m.Text, err = r.ReadString(); err != nil {
		return Message{}, err
	}
	if m.Recipient, err = r.ReadString(); err != nil {
		return Message{}, err
	}
	if m.SenderID, err = r.ReadI32(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// WriteMessage encodes m to w.
func WriteMessage(w *Writer, m Message) {
	w.WriteString(m.Sender)
	w.WriteString(m.Text)
	w.WriteString(m.Recipient)
	w.WriteI32(m.SenderID)
}

// EncodeMessage builds a complete SEND_MESSAGE frame.
func EncodeMessage(m Message) []byte {
	w := NewWriter()
	WriteMessage(w, m)
	body := w.Bytes()
	out := NewWriter()
	WritePacket(out, SEND_MESSAGE, body)
	return out.Bytes()
}
