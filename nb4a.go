package atomreg

import (
	"sync/atomic"

	multierror "github.com/hashicorp/go-multierror"
)

// NB4a is the 4-slot register with a wait-free writer and a reader that
// claims its slot with one fetch-or (see Read for its progress bound).
//
// Ported from ART::NB_ARSS_1 (NB_ARSS_1.hpp). The source declares the
// writer's next-write candidate as a function-scoped static, which is a
// latent bug once more than one instance exists in the same process; here
// it is per-register state (nextWrite below).
//
// Buffer slots form two pairs: {0,1} and {2,3}. Control state (status) is
// a 3-bit word:
//
//	bits 0-1 (latest):      slot holding the most recent value
//	bit  2   (readActive):  set by the reader on every claim, cleared by
//	                        the writer on every write attempt
type NB4a[T any] struct {
	cb     Callbacks[T]
	buffer [4]cell[T]

	// status packs latest (bits 0-1) and readActive (bit 2). Accessed with
	// the fetch_and/fetch_or/CAS trio below, sequentially consistent.
	status atomic.Uint32

	// nextWrite is the writer's private candidate slot. Only the writer
	// goroutine touches it; it needs no synchronization of its own.
	nextWrite uint32

	writeAttempts uint64
	writeCASRetry uint64
	readAttempts  uint64
}

// atomicAnd32/atomicOr32 replicate atomic.Uint32.And/Or (stdlib since Go
// 1.23) via a CompareAndSwap loop, for toolchains that predate them. Each
// returns the value held by x immediately before the operation.
func atomicAnd32(x *atomic.Uint32, mask uint32) uint32 {
	for {
		old := x.Load()
		if x.CompareAndSwap(old, old&mask) {
			return old
		}
	}
}

func atomicOr32(x *atomic.Uint32, mask uint32) uint32 {
	for {
		old := x.Load()
		if x.CompareAndSwap(old, old|mask) {
			return old
		}
	}
}

// NewNB4a constructs an NB4a register with every slot prefilled with
// noValue, "latest" naming slot 0, and the first write directed at slot 1.
func NewNB4a[T any](noValue T, cb Callbacks[T]) *NB4a[T] {
	r := &NB4a[T]{cb: cb, nextWrite: 1}
	for i := range r.buffer {
		r.buffer[i] = cell[T]{obj: noValue, ts: NoValueTS, live: true}
	}
	return r
}

// NB4aStats reports the CAS behavior observed so far.
type NB4aStats struct {
	WriteAttempts uint64
	WriteCASRetry uint64
	ReadAttempts  uint64
}

// Stats returns a snapshot of the register's CAS counters.
func (r *NB4a[T]) Stats() NB4aStats {
	return NB4aStats{
		WriteAttempts: atomic.LoadUint64(&r.writeAttempts),
		WriteCASRetry: atomic.LoadUint64(&r.writeCASRetry),
		ReadAttempts:  atomic.LoadUint64(&r.readAttempts),
	}
}

// Write stores a copy of obj with timestamp ts. Wait-free: at most two CAS
// attempts.
func (r *NB4a[T]) Write(obj T, ts int64) error {
	atomic.AddUint64(&r.writeAttempts, 1)

	// Clear readActive and snapshot the previous status in one step.
	localStatus := atomicAnd32(&r.status, ^uint32(0x4))
	if localStatus>>2 != 0 {
		// Reader had claimed "latest"; pair-switch away from it.
		r.nextWrite = (r.nextWrite & 0x2) | (^localStatus & 0x1)
	}
	writeSlot := r.nextWrite

	var freeErr error
	if r.buffer[writeSlot].live {
		if err := r.cb.Free(r.buffer[writeSlot].obj); err != nil {
			freeErr = err
		}
		r.buffer[writeSlot].live = false
	}

	newObj, err := r.cb.Copy(obj)
	if err != nil {
		return err
	}
	r.buffer[writeSlot].obj = newObj
	r.buffer[writeSlot].ts = ts
	r.buffer[writeSlot].live = true

	newStatus := writeSlot
	r.nextWrite = writeSlot ^ 0x2
	expect := localStatus & 0x3
	if !r.status.CompareAndSwap(expect, newStatus) {
		atomic.AddUint64(&r.writeCASRetry, 1)
		cur := r.status.Load()
		r.nextWrite = (r.nextWrite & 0x2) | (^cur & 0x1)
		// Guaranteed to succeed: the reader performs no further control
		// transitions during a single Read.
		r.status.CompareAndSwap(cur, newStatus)
	}
	return freeErr
}

// Read populates out/outTS with the currently latest stored value.
// The fetch-or goes through atomicOr32, a CompareAndSwap loop that retries
// whenever the writer changes status between the load and the swap, so
// Read is lock-free, not wait-free.
func (r *NB4a[T]) Read(out *T, outTS *int64) error {
	atomic.AddUint64(&r.readAttempts, 1)

	prev := atomicOr32(&r.status, 0x4)
	readSlot := prev & 0x3

	if err := r.cb.Get(r.buffer[readSlot].obj, out); err != nil {
		return err
	}
	*outTS = r.buffer[readSlot].ts
	return nil
}

// Close releases every slot's currently-held value.
func (r *NB4a[T]) Close() error {
	var result *multierror.Error
	for i := range r.buffer {
		if !r.buffer[i].live {
			continue
		}
		if err := r.cb.Free(r.buffer[i].obj); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
