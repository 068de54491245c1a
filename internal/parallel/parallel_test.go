package parallel

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}

	var counter int64
	n := 1000

	For(n, func(_ int) {
		atomic.AddInt64(&counter, 1)
	}, cfg)

	if counter != int64(n) {
		t.Errorf("Expected %d, got %d", n, counter)
	}
}

func TestFor_Sequential(t *testing.T) {
	var order []int
	For(5, func(i int) {
		order = append(order, i)
	}, Sequential())

	for i, v := range order {
		if v != i {
			t.Fatalf("Expected in-order execution, got %v", order)
		}
	}
}

func TestFor_ZeroItems(t *testing.T) {
	For(0, func(_ int) {
		t.Error("f must not be called")
	}, DefaultConfig())
}

func TestMap(t *testing.T) {
	in := []int{1, 2, 3, 4, 5, 6, 7}
	boom := errors.New("boom")
	out, errs := Map(in, func(v int) (int, error) {
		if v == 4 {
			return 0, boom
		}
		return v * v, nil
	}, Config{Enabled: true, NumWorkers: 3, MinChunkSize: 1})

	for i, v := range in {
		if v == 4 {
			if !errors.Is(errs[i], boom) {
				t.Errorf("Expected error at %d, got %v", i, errs[i])
			}
			continue
		}
		if errs[i] != nil || out[i] != v*v {
			t.Errorf("Map(%d) = %d, %v", v, out[i], errs[i])
		}
	}
}
