package atomreg

import (
	"sync/atomic"

	multierror "github.com/hashicorp/go-multierror"
)

// NB3d is the three-slot, single-4-bit-control-word register: three
// slots (provably minimal for a value-copying lock-free SWSR
// register), one atomic word, one CAS per operation in the common
// case.
//
// Ported from ART::NB_ARSS_4 (NB_ARSS_4.hpp). Control state:
//
//	bits 0-1 (lastRead): slot the reader is using or has last used
//	bits 2-3 (latest):   slot with the most recent value
//
// writeSlot is the writer's private next-slot candidate; only the writer
// goroutine touches it, so it is not atomic.
type NB3d[T any] struct {
	cb     Callbacks[T]
	buffer [3]cell[T]

	status atomic.Uint32
	// writeSlot is writer-private, legitimate because only the writer
	// reads or writes it.
	writeSlot uint32

	writeCASRetry uint64
	readCASRetry  uint64
}

// NewNB3d constructs an NB3d register: latest = 0, lastRead = 0 (the
// reader's current/last slot), writeSlot = 0.
func NewNB3d[T any](noValue T, cb Callbacks[T]) *NB3d[T] {
	r := &NB3d[T]{cb: cb}
	for i := range r.buffer {
		r.buffer[i] = cell[T]{obj: noValue, ts: NoValueTS, live: true}
	}
	return r
}

// NB3dStats reports the CAS behavior observed so far.
type NB3dStats struct {
	WriteCASRetry uint64
	ReadCASRetry  uint64
}

// Stats returns a snapshot of the register's CAS counters.
func (r *NB3d[T]) Stats() NB3dStats {
	return NB3dStats{
		WriteCASRetry: atomic.LoadUint64(&r.writeCASRetry),
		ReadCASRetry:  atomic.LoadUint64(&r.readCASRetry),
	}
}

// Write stores a copy of obj with timestamp ts. Wait-free: bounded to two
// CAS attempts.
func (r *NB3d[T]) Write(obj T, ts int64) error {
	localStatus := r.status.Load()
	r.writeSlot = (r.writeSlot + 1) % 3
	if r.writeSlot == localStatus&0x3 {
		r.writeSlot = (r.writeSlot + 1) % 3
	}

	var freeErr error
	if r.buffer[r.writeSlot].live {
		if err := r.cb.Free(r.buffer[r.writeSlot].obj); err != nil {
			freeErr = err
		}
		r.buffer[r.writeSlot].live = false
	}

	newObj, err := r.cb.Copy(obj)
	if err != nil {
		return err
	}
	r.buffer[r.writeSlot].obj = newObj
	r.buffer[r.writeSlot].ts = ts
	r.buffer[r.writeSlot].live = true

	newStatus := (r.writeSlot << 2) | (localStatus & 0x3)
	if !r.status.CompareAndSwap(localStatus, newStatus) {
		atomic.AddUint64(&r.writeCASRetry, 1)
		// The reader's lastRead update is the only concurrent transition
		// and happens at most once per Read: this retry is guaranteed to
		// succeed.
		localStatus = r.status.Load()
		newStatus = (r.writeSlot << 2) | (localStatus & 0x3)
		r.status.CompareAndSwap(localStatus, newStatus)
	}
	return freeErr
}

// Read populates out/outTS with the currently latest stored value.
// Equivalent to ReadWithRetries with the retry count discarded.
func (r *NB3d[T]) Read(out *T, outTS *int64) error {
	var retries int64
	return r.ReadWithRetries(out, outTS, &retries)
}

// ReadWithRetries is Read plus the number of CAS-loop iterations
// performed, the observability hook ART::NB_ARSS_4's second read overload
// exposes for latency harnesses.
func (r *NB3d[T]) ReadWithRetries(out *T, outTS *int64, outRetries *int64) error {
	localStatus := r.status.Load()
	var retries int64 = 1
	for {
		newStatus := (localStatus & 0xC) | (localStatus >> 2)
		if r.status.CompareAndSwap(localStatus, newStatus) {
			break
		}
		atomic.AddUint64(&r.readCASRetry, 1)
		localStatus = r.status.Load()
		retries++
	}
	readSlot := localStatus >> 2
	*outRetries = retries

	if err := r.cb.Get(r.buffer[readSlot].obj, out); err != nil {
		return err
	}
	*outTS = r.buffer[readSlot].ts
	return nil
}

// Close releases every slot's currently-held value.
func (r *NB3d[T]) Close() error {
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
