package atomreg

import "testing"

func TestBLKFreshRegister(t *testing.T) {
	r := NewBLK(-1, Trivial[int]())

	var obj int
	var ts int64
	if err := r.Read(&obj, &ts); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ts != NoValueTS || obj != -1 {
		t.Fatalf("expected (sentinel=-1, ts=-1), got (%d, %d)", obj, ts)
	}
}

func TestBLKWriteThenRead(t *testing.T) {
	r := NewBLK(-1, Trivial[int]())

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

func TestBLKBackToBackWrites(t *testing.T) {
	r := NewBLK(-1, Trivial[int]())

	writes := []struct {
		obj int
		ts  int64
	}{
		{10, 1},
		{20, 2},
		{30, 3},
	}
	for _, w := range writes {
		if err := r.Write(w.obj, w.ts); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	var obj int
	var ts int64
	if err := r.Read(&obj, &ts); err != nil {
		t.Fatalf("read: %v", err)
	}
	if obj != 30 || ts != 3 {
		t.Fatalf("expected (30, 3), got (%d, %d)", obj, ts)
	}
}

func TestBLKCloseFreesCurrentValue(t *testing.T) {
	freed := 0
	cb := Callbacks[int]{
		Copy: func(v int) (int, error) { return v, nil },
		Get:  func(src int, dst *int) error { *dst = src; return nil },
		Free: func(int) error { freed++; return nil },
	}
	r := NewBLK(-1, cb)
	if err := r.Write(5, 1); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	// One Free for the sentinel displaced by Write, one for the final value.
	if freed != 2 {
		t.Fatalf("expected 2 frees, got %d", freed)
	}
}
