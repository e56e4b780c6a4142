package atomreg

import (
	"sync/atomic"

	multierror "github.com/hashicorp/go-multierror"
)

// nb3cNext is the Chen & Burns transition table: nb3cNext[reading][latest]
// picks a write slot distinct from both reading (when reading != 3) and
// latest.
//
// Jing Chen and Alan Burns, "A three-slot asynchronous reader/writer
// mechanism for multiprocessor real-time systems", Report, University of
// York, 1997.
var nb3cNext = [4][3]uint32{
	{1, 2, 1},
	{2, 2, 0},
	{1, 0, 0},
	{1, 2, 0},
}

// NB3c is the Chen & Burns three-slot register: wait-free writer,
// lock-free reader, sentinel slot index 3 meaning "reader not currently
// pinned to a slot".
//
// Ported from ART::NB_ARSS_3 (NB_ARSS_3.hpp).
type NB3c[T any] struct {
	cb     Callbacks[T]
	buffer [3]cell[T]

	reading atomic.Uint32
	latest  atomic.Uint32

	writeCount uint64
	readCount  uint64
}

// NewNB3c constructs an NB3c register: latest = 0, reading = 3 (sentinel).
func NewNB3c[T any](noValue T, cb Callbacks[T]) *NB3c[T] {
	r := &NB3c[T]{cb: cb}
	for i := range r.buffer {
		r.buffer[i] = cell[T]{obj: noValue, ts: NoValueTS, live: true}
	}
	r.reading.Store(3)
	return r
}

// NB3cStats reports operation counts observed so far.
type NB3cStats struct {
	WriteCount uint64
	ReadCount  uint64
}

// Stats returns a snapshot of the register's operation counters.
func (r *NB3c[T]) Stats() NB3cStats {
	return NB3cStats{
		WriteCount: atomic.LoadUint64(&r.writeCount),
		ReadCount:  atomic.LoadUint64(&r.readCount),
	}
}

// Write stores a copy of obj with timestamp ts. Wait-free: no retry loop.
func (r *NB3c[T]) Write(obj T, ts int64) error {
	atomic.AddUint64(&r.writeCount, 1)

	widx1 := r.reading.Load()
	widx2 := r.latest.Load()
	windex := nb3cNext[widx1][widx2]

	var freeErr error
	if r.buffer[windex].live {
		if err := r.cb.Free(r.buffer[windex].obj); err != nil {
			freeErr = err
		}
		r.buffer[windex].live = false
	}

	newObj, err := r.cb.Copy(obj)
	if err != nil {
		return err
	}
	r.buffer[windex].obj = newObj
	r.buffer[windex].ts = ts
	r.buffer[windex].live = true

	r.latest.Store(windex)
	// Takes effect only if the reader has not yet captured a slot.
	r.reading.CompareAndSwap(3, windex)
	return freeErr
}

// Read populates out/outTS with the currently latest stored value.
// Lock-free: the reader and writer interlock on "reading" so the slot the
// reader settles on is never the one the writer will overwrite next.
func (r *NB3c[T]) Read(out *T, outTS *int64) error {
	atomic.AddUint64(&r.readCount, 1)

	r.reading.Store(3)
	rindex := r.latest.Load()
	// Takes effect only if the writer has not already written "reading".
	r.reading.CompareAndSwap(3, rindex)
	rindex = r.reading.Load()

	if err := r.cb.Get(r.buffer[rindex].obj, out); err != nil {
		return err
	}
	*outTS = r.buffer[rindex].ts
	return nil
}

// Close releases every slot's currently-held value.
func (r *NB3c[T]) Close() error {
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
