// SPDX-License-Identifier: MIT
package hands

import (
	"math"
	"sync"
	"testing"
)

const tolerance = 1e-9

func dist(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func TestSmootherMovesThirtyPercent(t *testing.T) {
	s := NewSmoother(0.3)
	s.Update([]Point{{X: 100, Y: 100}, {X: 500, Y: 300}})

	raw := []Point{{X: 200, Y: 50}, {X: 400, Y: 400}}
	before := s.Positions()

	for step := range 5 {
		after := s.Update(raw)
		for i := range raw {
			want := 0.7 * dist(before[i], raw[i])
			got := dist(after[i], raw[i])
			if math.Abs(got-want) > tolerance {
				t.Fatalf("step %d slot %d: |smoothed-raw| = %v, want %v", step, i, got, want)
			}
		}
		before = after
	}
}

func TestSmootherSnapsWhenCountChanges(t *testing.T) {
	tests := []struct {
		name  string
		first []Point
		next  []Point
	}{
		{"appear", nil, []Point{{X: 10, Y: 20}}},
		{"second hand", []Point{{X: 10, Y: 20}}, []Point{{X: 300, Y: 40}, {X: 600, Y: 80}}},
		{"one leaves", []Point{{X: 10, Y: 20}, {X: 30, Y: 40}}, []Point{{X: 900, Y: 700}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSmoother(DefaultSmoothing)
			s.Update(tt.first)
			got := s.Update(tt.next)
			if len(got) != len(tt.next) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.next))
			}
			for i := range got {
				if got[i] != tt.next[i] {
					t.Errorf("slot %d = %+v, want raw %+v", i, got[i], tt.next[i])
				}
			}
		})
	}
}

func TestSmootherDropToZeroEmptiesImmediately(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	s.Update([]Point{{X: 1, Y: 2}, {X: 3, Y: 4}})
	s.Update([]Point{{X: 5, Y: 6}, {X: 7, Y: 8}})

	got := s.Update(nil)
	if len(got) != 0 {
		t.Fatalf("expected no smoothed hands, got %+v", got)
	}
	if got == nil {
		t.Error("Positions should be an empty slice, not nil")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}

func TestSmootherReturnsCopies(t *testing.T) {
	s := NewSmoother(DefaultSmoothing)
	raw := []Point{{X: 1, Y: 1}}
	out := s.Update(raw)

	raw[0].X = 99
	out[0].Y = 99
	if p := s.Positions()[0]; p.X != 1 || p.Y != 1 {
		t.Errorf("internal state aliased caller slices: %+v", p)
	}
}

func TestNewSmootherInvalidAlpha(t *testing.T) {
	for _, alpha := range []float64{0, -1, 1.5, math.NaN()} {
		s := NewSmoother(alpha)
		s.Update([]Point{{X: 0, Y: 0}})
		got := s.Update([]Point{{X: 10, Y: 0}})
		if math.Abs(got[0].X-3) > tolerance {
			t.Errorf("alpha %v: X = %v, want default factor result 3", alpha, got[0].X)
		}
	}
}

func TestFeedPoll(t *testing.T) {
	f := NewFeed(2, 640, 480)

	if _, _, ok := f.Poll(0); ok {
		t.Fatal("Poll on empty feed should report nothing new")
	}

	f.PublishNormalized([]Point{{X: 0.5, Y: 0.5}, {X: 0, Y: 1}, {X: 1, Y: 1}})
	pts, seq, ok := f.Poll(0)
	if !ok {
		t.Fatal("expected new detection")
	}
	if len(pts) != 2 {
		t.Fatalf("feed should cap at 2 hands, got %d", len(pts))
	}
	if pts[0] != (Point{X: 320, Y: 240}) || pts[1] != (Point{X: 0, Y: 480}) {
		t.Errorf("unexpected scaled points %+v", pts)
	}

	if _, _, ok := f.Poll(seq); ok {
		t.Error("second Poll with same seq should report nothing new")
	}

	f.Publish(nil)
	pts, _, ok = f.Poll(seq)
	if !ok || len(pts) != 0 {
		t.Errorf("empty detection should be delivered as zero hands, got %v %v", pts, ok)
	}
}

func TestFeedConcurrentPublish(t *testing.T) {
	f := NewFeed(0, 1, 1)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Publish([]Point{{X: float64(i), Y: float64(i)}})
		}()
	}

	var last uint64
	for range 100 {
		if _, seq, ok := f.Poll(last); ok {
			last = seq
		}
	}
	wg.Wait()

	if _, seq, _ := f.Poll(0); seq != 8 {
		t.Errorf("seq = %d, want 8", seq)
	}
}

func BenchmarkSmootherUpdate(b *testing.B) {
	s := NewSmoother(DefaultSmoothing)
	raw := []Point{{X: 100, Y: 200}, {X: 300, Y: 400}}
	s.Update(raw)
	b.ReportAllocs()
	for b.Loop() {
		s.Update(raw)
	}
}
