package atomreg

// Package-wide value-management contract shared by every register variant.
//
// Ported from the Atomic Register Toolkit's ARContent<T>/COPY_FNC/GET_FNC/
// FREE_FNC triple (ART.hpp): a register never touches the user's value
// directly, it only ever copies it in, gets it out, or frees it.

// NoValueTS is the reserved timestamp meaning "this slot has never been
// written". It is the value every read returns before the first write.
const NoValueTS int64 = -1

// Callbacks is the value-management triple a register is constructed with.
//
// Copy produces an owned duplicate of obj; it is called exactly once per
// Write, before the control-state transition that publishes the new value
// (NB4a's Write clears its readActive bit earlier, before Copy). Get performs a deep read of
// src into the caller-owned *dst; it is called exactly once per Read. Free
// releases whatever Copy allocated; it is called whenever a stored copy is
// displaced by a later Write, and once per live slot on Close.
//
// A failing Get aborts the Read after the slot has been selected but before
// any value crosses into the caller. A failing Free during Write does not
// block the new value from being installed and published — see Close for
// the destruction-time policy.
//
// A failing Copy aborts the Write: the slot's previous value has already
// been passed to Free by the time Copy runs, so the slot is left holding
// no value (cell.live is cleared) rather than the freed one, and Write
// returns the error without installing anything.
type Callbacks[T any] struct {
	Copy func(obj T) (T, error)
	Get  func(src T, dst *T) error
	Free func(obj T) error
}

// Trivial returns the default callback triple for plain scalar value
// types: identity copy, assignment get, no-op free. It mirrors ART.hpp's
// COPY_FNC/GET_FNC/FREE_FNC defaults.
func Trivial[T any]() Callbacks[T] {
	return Callbacks[T]{
		Copy: func(obj T) (T, error) { return obj, nil },
		Get:  func(src T, dst *T) error { *dst = src; return nil },
		Free: func(T) error { return nil },
	}
}

// cell is one element of a register's buffer array: an object, the
// timestamp it was written with, and whether it currently holds a
// value that still needs to be passed to Free. live starts true (every
// slot holds the construction-time sentinel, and each slot frees it
// once, on that slot's first displacement or on Close) and is cleared the moment Free runs
// on the cell's object, before Copy is asked for a replacement — so a
// Copy failure leaves the cell empty instead of re-offering an
// already-freed object to the next Free call.
type cell[T any] struct {
	obj  T
	ts   int64
	live bool
}
