package atomreg

import "sync"

// BLK is the mutex-guarded reference register: one cell, one mutex.
//
// It is the semantic oracle the non-blocking variants are checked against
// in property_test.go — everything it does is correct by construction,
// nothing about it is wait-free or lock-free.
//
// Ported from ART::B_AR_1 (B_AR_1.hpp).
type BLK[T any] struct {
	mu  sync.Mutex
	cb  Callbacks[T]
	reg cell[T]
}

// NewBLK constructs a BLK register. noValue prefills the empty cell.
func NewBLK[T any](noValue T, cb Callbacks[T]) *BLK[T] {
	return &BLK[T]{
		cb:  cb,
		reg: cell[T]{obj: noValue, ts: NoValueTS, live: true},
	}
}

// Write stores a copy of obj with timestamp ts.
func (r *BLK[T]) Write(obj T, ts int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var freeErr error
	if r.reg.live {
		if err := r.cb.Free(r.reg.obj); err != nil {
			freeErr = err
		}
		r.reg.live = false
	}

	newObj, err := r.cb.Copy(obj)
	if err != nil {
		return err
	}
	r.reg.obj = newObj
	r.reg.ts = ts
	r.reg.live = true
	return freeErr
}

// Read populates out/outTS with the register's current content.
func (r *BLK[T]) Read(out *T, outTS *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.cb.Get(r.reg.obj, out); err != nil {
		return err
	}
	*outTS = r.reg.ts
	return nil
}

// Close releases the cell's currently-held value.
func (r *BLK[T]) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.reg.live {
		return nil
	}
	return r.cb.Free(r.reg.obj)
}
