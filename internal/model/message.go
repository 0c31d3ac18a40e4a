// Package model defines the message type exchanged between producers and
// consumers through the shared queue, plus its integrity checksum.
package model

// MaxPayload is the largest payload a message can carry, in bytes.
const MaxPayload = 255

// Message is the unit of work moved through the queue. Each message is
// copied into and out of the queue storage; it is never shared between
// goroutines by reference.
type Message struct {
	Type     byte   `json:"type"`
	Checksum uint16 `json:"checksum"`
	Payload  []byte `json:"payload"`
}

// Size returns the payload length in bytes (0..MaxPayload).
func (m Message) Size() int {
	return len(m.Payload)
}

// Sum computes the 16-bit checksum over the message's type, size, and
// payload. The checksum field itself is not part of the hash, so Sum of a
// freshly built message and Sum of a received one agree.
func Sum(m Message) uint16 {
	var h uint16
	h = (h << 5) + h + uint16(m.Type)
	h = (h << 5) + h + uint16(byte(len(m.Payload)))
	for _, b := range m.Payload {
		h = (h << 5) + h + uint16(b)
	}
	return h
}

// Seal sets the message's checksum from its current contents and returns it.
func Seal(m Message) Message {
	m.Checksum = Sum(m)
	return m
}

// Verify reports whether the embedded checksum matches the message contents.
func (m Message) Verify() bool {
	return m.Checksum == Sum(m)
}
