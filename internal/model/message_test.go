package model

import "testing"

func TestSum_KnownValues(t *testing.T) {
	cases := []struct {
		name string
		msg  Message
		want uint16
	}{
		{"zero message", Message{}, 0},
		{"type only", Message{Type: 1}, 33},
		{"type and size", Message{Type: 1, Payload: []byte{0}}, 34 * 33},
	}
	for _, tc := range cases {
		if got := Sum(tc.msg); got != tc.want {
			t.Errorf("%s: Sum = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestSum_IgnoresChecksumField(t *testing.T) {
	m := Message{Type: 7, Payload: []byte{1, 2, 3}}
	base := Sum(m)
	m.Checksum = 0xBEEF
	if got := Sum(m); got != base {
		t.Fatalf("Sum changed with checksum field: %d vs %d", got, base)
	}
}

func TestSeal_Verify_RoundTrip(t *testing.T) {
	m := Seal(Message{Type: 42, Payload: []byte("hello, queue")})
	if !m.Verify() {
		t.Fatal("sealed message should verify")
	}

	// Recomputing after a round trip must reproduce the same value.
	if m.Checksum != Sum(m) {
		t.Fatalf("checksum %d does not survive recompute %d", m.Checksum, Sum(m))
	}
}

func TestVerify_DetectsCorruption(t *testing.T) {
	m := Seal(Message{Type: 3, Payload: []byte{10, 20, 30, 40}})

	corrupted := m
	corrupted.Payload = append([]byte(nil), m.Payload...)
	corrupted.Payload[2] ^= 0xFF
	if corrupted.Verify() {
		t.Error("flipped payload byte should fail verification")
	}

	wrongType := m
	wrongType.Type++
	if wrongType.Verify() {
		t.Error("changed type should fail verification")
	}
}

func TestSize(t *testing.T) {
	if got := (Message{}).Size(); got != 0 {
		t.Errorf("empty message size = %d, want 0", got)
	}
	m := Message{Payload: make([]byte, MaxPayload)}
	if got := m.Size(); got != MaxPayload {
		t.Errorf("size = %d, want %d", got, MaxPayload)
	}
}
