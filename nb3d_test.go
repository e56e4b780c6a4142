package atomreg

import "testing"

func TestNB3dFreshRegister(t *testing.T) {
	r := NewNB3d(-1, Trivial[int]())

	var obj int
	var ts int64
	if err := r.Read(&obj, &ts); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ts != NoValueTS || obj != -1 {
		t.Fatalf("expected (sentinel=-1, ts=-1), got (%d, %d)", obj, ts)
	}
}

func TestNB3dWriteThenRead(t *testing.T) {
	r := NewNB3d(-1, Trivial[int]())

	if err := r.Write(42, 1); err != nil {
		t.Fatalf("write: %v", err)
	}

	var obj int
	var ts int64
	if err := r.Read(&obj, &ts); err != nil {
		t.Fatalf("read: %v", err)
	}
	if obj != 42 || ts != 1 {
		t.Fatalf("expected (42, 1), got (%d, %d)", obj, ts)
	}
}

func TestNB3dBackToBackWrites(t *testing.T) {
	r := NewNB3d(-1, Trivial[int]())

	for i := int64(1); i <= 5; i++ {
		if err := r.Write(int(i*10), i); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	var obj int
	var ts int64
	if err := r.Read(&obj, &ts); err != nil {
		t.Fatalf("read: %v", err)
	}
	if obj != 50 || ts != 5 {
		t.Fatalf("expected (50, 5), got (%d, %d)", obj, ts)
	}
}

func TestNB3dReadWithRetriesReportsCount(t *testing.T) {
	r := NewNB3d(-1, Trivial[int]())
	if err := r.Write(7, 1); err != nil {
		t.Fatalf("write: %v", err)
	}

	var obj int
	var ts, retries int64
	if err := r.ReadWithRetries(&obj, &ts, &retries); err != nil {
		t.Fatalf("read: %v", err)
	}
	if obj != 7 || ts != 1 {
		t.Fatalf("expected (7, 1), got (%d, %d)", obj, ts)
	}
	// Uncontended: exactly one CAS attempt, no retries.
	if retries != 1 {
		t.Fatalf("expected 1 CAS attempt uncontended, got %d", retries)
	}
}

func TestNB3dInterleavedWriterReader(t *testing.T) {
	r := NewNB3d(-1, Trivial[int]())
	runInterleavedSWSR(t, r, 200_000)
}
