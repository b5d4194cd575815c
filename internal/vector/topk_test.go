package vector

import (
	"math"
	"reflect"
	"testing"
)

func TestTopK_OrderAndTieBreak(t *testing.T) {
	scores := []float64{0.2, 0.9, 0.5, 0.9, 0.5}
	got := TopK(scores, 4)
	want := []Scored{{1, 0.9}, {3, 0.9}, {2, 0.5}, {4, 0.5}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopK() = %v, want %v", got, want)
	}
}

func TestTopK_NaNSortsLast(t *testing.T) {
	nan := math.NaN()
	scores := []float64{nan, 0.894, 0.707, nan, 0.981, 0.970, nan, 0.992}
	got := TopK(scores, len(scores))
	wantIdx := []int{7, 4, 5, 1, 2, 0, 3, 6}
	for i, s := range got {
		if s.Index != wantIdx[i] {
			t.Fatalf("TopK() order = %v, want indices %v", got, wantIdx)
		}
	}
	for i := 1; i < 5; i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v", i, got)
		}
	}
}

func TestTopK_Bounds(t *testing.T) {
	scores := []float64{0.1, 0.2}
	if got := TopK(scores, 5); len(got) != 2 {
		t.Errorf("k > len: got %d results, want 2", len(got))
	}
	if got := TopK(scores, 0); got != nil {
		t.Errorf("k = 0: got %v, want nil", got)
	}
	if got := TopK(nil, 3); got != nil {
		t.Errorf("no scores: got %v, want nil", got)
	}
}

func TestTopK_Deterministic(t *testing.T) {
	scores := []float64{0.3, 0.3, 0.3, 0.3}
	first := TopK(scores, 3)
	for i := 0; i < 10; i++ {
		if got := TopK(scores, 3); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: %v != %v", i, got, first)
		}
	}
	for i, s := range first {
		if s.Index != i {
			t.Errorf("equal scores must keep index order, got %v", first)
		}
	}
}
