// ABOUTME: Tests for the PCM16 reader
// ABOUTME: Empty queue, partial reads and zero-length entries
package duplex

import "testing"

func TestReaderEmpty(t *testing.T) {
	r := NewReader(NewCacheQueue(2, DropOldest))
	if n := r.Read(make([]int16, 16)); n != 0 {
		t.Errorf("expected 0 from empty queue, got %d", n)
	}
}

func TestReaderConvertsOneEntryPerRead(t *testing.T) {
	q := NewCacheQueue(4, DropOldest)
	q.Push(NewCacheEntry([]float32{0.5, -0.5}))
	q.Push(NewCacheEntry([]float32{1, 0, -1}))
	r := NewReader(q)

	dst := make([]int16, 16)
	if n := r.Read(dst); n != 2 {
		t.Fatalf("first read = %d, want 2", n)
	}
	if dst[0] != 16384 || dst[1] != -16384 {
		t.Errorf("unexpected samples %v", dst[:2])
	}

	if n := r.Read(dst); n != 3 {
		t.Fatalf("second read = %d, want 3", n)
	}
	if dst[0] != 32767 || dst[1] != 0 || dst[2] != -32768 {
		t.Errorf("unexpected samples %v", dst[:3])
	}

	if n := r.Read(dst); n != 0 {
		t.Errorf("third read = %d, want 0", n)
	}
}

func TestReaderPartialReads(t *testing.T) {
	q := NewCacheQueue(4, DropOldest)
	src := make([]float32, 10)
	for i := range src {
		src[i] = float32(i) / 32768
	}
	q.Push(NewCacheEntry(src))
	q.Push(NewCacheEntry([]float32{0.5}))
	r := NewReader(q)

	dst := make([]int16, 4)
	var got []int16
	for _, want := range []int{4, 4, 2} {
		n := r.Read(dst)
		if n != want {
			t.Fatalf("read %d samples, want %d", n, want)
		}
		got = append(got, dst[:n]...)
	}
	for i, s := range got {
		if int(s) != i {
			t.Fatalf("sample %d = %d, want %d", i, s, i)
		}
	}
	if r.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", r.Pending())
	}

	if n := r.Read(dst); n != 1 || dst[0] != 16384 {
		t.Errorf("next entry read = %d (%d), want 1 (16384)", n, dst[0])
	}
}

func TestReaderZeroSampleEntry(t *testing.T) {
	q := NewCacheQueue(4, DropOldest)
	q.Push(NewCacheEntry(nil))
	q.Push(NewCacheEntry([]float32{0.25}))
	r := NewReader(q)

	dst := make([]int16, 4)
	if n := r.Read(dst); n != 0 {
		t.Fatalf("zero-sample entry read = %d, want 0", n)
	}
	if r.Pending() != 0 {
		t.Error("zero-sample entry left pending")
	}
	if n := r.Read(dst); n != 1 || dst[0] != 8192 {
		t.Errorf("read = %d (%d), want 1 (8192)", n, dst[0])
	}
}

func TestReaderClose(t *testing.T) {
	q := NewCacheQueue(4, DropOldest)
	q.Push(NewCacheEntry(make([]float32, 8)))
	r := NewReader(q)
	r.Read(make([]int16, 3))
	if r.Pending() != 5 {
		t.Fatalf("Pending = %d, want 5", r.Pending())
	}
	r.Close()
	if r.Pending() != 0 {
		t.Errorf("Pending after close = %d, want 0", r.Pending())
	}
}

func TestPassToReaderEndToEnd(t *testing.T) {
	q := NewCacheQueue(8, DropOldest)
	p := NewFullDuplexPass(q)
	p.SetEarReturn(true)
	r := NewReader(q)

	in := []float32{0.5, -0.5, 0.25, -0.25}
	out := make([]float32, 6)
	p.OnBothStreamsReady(in, 2, out, 3, 2)

	dst := make([]int16, 8)
	n := r.Read(dst)
	want := []int16{16384, -16384, 8192, -8192}
	if n != len(want) {
		t.Fatalf("read %d samples, want %d", n, len(want))
	}
	for i := range want {
		if dst[i] != want[i] {
			t.Errorf("dst[%d] = %d, want %d", i, dst[i], want[i])
		}
	}
}
