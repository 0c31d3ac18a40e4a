package worker

import (
	"context"
	"math"
	"time"

	"github.com/valyala/fastrand"

	"queue-systemv1/internal/model"
)

// randomMessage builds a message with a random type, a random payload of up
// to model.MaxPayload bytes, and a sealed checksum.
func randomMessage() model.Message {
	m := model.Message{
		Type:    byte(fastrand.Uint32n(256)),
		Payload: make([]byte, fastrand.Uint32n(model.MaxPayload+1)),
	}
	for i := range m.Payload {
		m.Payload[i] = byte(fastrand.Uint32n(256))
	}
	return model.Seal(m)
}

// randDelay picks a uniform delay in [min, max].
func randDelay(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := uint64(max-min) + 1
	if span > math.MaxUint32 {
		span = math.MaxUint32
	}
	return min + time.Duration(fastrand.Uint32n(uint32(span)))
}

// sleep waits for d or until ctx is cancelled. Returns false when cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
