package atomreg

import (
	"sync/atomic"

	multierror "github.com/hashicorp/go-multierror"
)

// NB4b is the 4-slot, wait-free-writer/lock-free-reader register.
//
// Ported from ART::NB_ARSS_2 (NB_ARSS_2.hpp). Control state is a 4-bit
// word:
//
//	bits 0-1 (nextWrite): slot the writer will use next
//	bits 2-3 (latest):    slot containing the most recent value
type NB4b[T any] struct {
	cb     Callbacks[T]
	buffer [4]cell[T]

	status atomic.Uint32

	writeAttempts  uint64
	writeFallback  uint64
	readCASRetries uint64
}

// NewNB4b constructs an NB4b register: latest = 0, nextWrite = 1.
func NewNB4b[T any](noValue T, cb Callbacks[T]) *NB4b[T] {
	r := &NB4b[T]{cb: cb}
	for i := range r.buffer {
		r.buffer[i] = cell[T]{obj: noValue, ts: NoValueTS, live: true}
	}
	r.status.Store(1)
	return r
}

// NB4bStats reports the CAS behavior observed so far.
type NB4bStats struct {
	WriteAttempts  uint64
	WriteFallback  uint64
	ReadCASRetries uint64
}

// Stats returns a snapshot of the register's CAS counters.
func (r *NB4b[T]) Stats() NB4bStats {
	return NB4bStats{
		WriteAttempts:  atomic.LoadUint64(&r.writeAttempts),
		WriteFallback:  atomic.LoadUint64(&r.writeFallback),
		ReadCASRetries: atomic.LoadUint64(&r.readCASRetries),
	}
}

// Write stores a copy of obj with timestamp ts. Wait-free: O(1) stores
// plus at most one CAS retry (which, on failure, falls back to a plain
// store rather than looping).
func (r *NB4b[T]) Write(obj T, ts int64) error {
	atomic.AddUint64(&r.writeAttempts, 1)

	localStatus := r.status.Load()
	writeSlot := localStatus & 0x3

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

	newStatus := (writeSlot << 2) | (writeSlot ^ 0x2)
	if !r.status.CompareAndSwap(localStatus, newStatus) {
		atomic.AddUint64(&r.writeFallback, 1)
		// The reader intervened and moved nextWrite to the other pair;
		// reuse its choice, only advertise our own "latest".
		cur := r.status.Load()
		r.status.Store((writeSlot << 2) | (cur & 0x3))
	}
	return freeErr
}

// Read populates out/outTS with the currently latest stored value.
// Lock-free: a CAS-loop that moves nextWrite to the pair opposite
// "latest" without disturbing "latest" itself.
func (r *NB4b[T]) Read(out *T, outTS *int64) error {
	localStatus := r.status.Load()
	for {
		newStatus := (localStatus &^ 0x1) | ((^localStatus >> 2) & 0x1)
		if r.status.CompareAndSwap(localStatus, newStatus) {
			break
		}
		atomic.AddUint64(&r.readCASRetries, 1)
		localStatus = r.status.Load()
	}
	readSlot := localStatus >> 2

	if err := r.cb.Get(r.buffer[readSlot].obj, out); err != nil {
		return err
	}
	*outTS = r.buffer[readSlot].ts
	return nil
}

// Close releases every slot's currently-held value.
func (r *NB4b[T]) Close() error {
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
