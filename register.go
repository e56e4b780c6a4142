package atomreg

// Register is the uniform single-writer/single-reader atomic register
// surface implemented by BLK, NB4a, NB4b, NB3c and NB3d.
//
// At most one goroutine may call Write and at most one goroutine may call
// Read concurrently; the caller is responsible for that precondition, the
// register does not enforce it. The caller also guarantees that successive
// ts arguments to Write are strictly increasing — the reader's
// non-decreasing-timestamp guarantee depends on it.
type Register[T any] interface {
	// Write stores a copy of obj with timestamp ts. ts must be strictly
	// greater than any timestamp previously passed to Write.
	Write(obj T, ts int64) error

	// Read populates *out with a Get-translated copy of the currently
	// latest stored value and writes its timestamp to *outTS. Before the
	// first Write, *outTS == NoValueTS and *out is populated from the
	// construction-time sentinel.
	Read(out *T, outTS *int64) error

	// Close releases every slot's currently-held value via Free. It is
	// not safe to call Write or Read concurrently with, or after, Close.
	Close() error
}
