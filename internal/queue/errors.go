package queue

import "errors"

var (
	// ErrCancelled is returned by Add, Remove, and Resize when process-wide
	// cancellation prevents the operation from completing. Callers must treat
	// it as "the system is shutting down" and stop retrying.
	ErrCancelled = errors.New("queue: operation cancelled")

	// ErrShrinkBelowOccupancy is returned by Resize when the requested
	// capacity would be smaller than the number of live messages. The queue
	// is left unchanged; a smaller delta may succeed later.
	ErrShrinkBelowOccupancy = errors.New("queue: cannot shrink below current occupancy")

	// ErrShrinkWaitTimeout is returned by Resize when a shrink could not
	// reclaim the removed slots within the configured wait. Capacity and
	// storage are left unchanged.
	ErrShrinkWaitTimeout = errors.New("queue: timed out reclaiming slots during shrink")

	// ErrInvalidMode is returned by New for an unknown synchronization mode.
	ErrInvalidMode = errors.New("queue: invalid synchronization mode")

	// errSlotWaitTimeout is the internal timeout sentinel from slotSem;
	// Resize maps it to ErrShrinkWaitTimeout.
	errSlotWaitTimeout = errors.New("queue: slot wait timed out")
)
