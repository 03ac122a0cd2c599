package vorbis

import "testing"

func TestRenderPoint(t *testing.T) {
	tests := []struct {
		x0, y0, x1, y1, x, want int
	}{
		{x0: 0, y0: 0, x1: 10, y1: 100, x: 5, want: 50},
		{x0: 0, y0: 100, x1: 10, y1: 0, x: 0, want: 100},
		{x0: 0, y0: 100, x1: 0, y1: 50, x: 0, want: 100}, // x1 == x0: no division by zero
	}
	for _, tt := range tests {
		got := renderPoint(tt.x0, tt.y0, tt.x1, tt.y1, tt.x)
		if got != tt.want {
			t.Errorf("renderPoint(%d,%d,%d,%d,%d) = %d, want %d", tt.x0, tt.y0, tt.x1, tt.y1, tt.x, got, tt.want)
		}
	}
}

func TestFloor1NeighborsFindsNearestKnown(t *testing.T) {
	xlist := []int{0, 64, 16, 32, 48}
	known := []bool{true, true, false, false, false}
	lo, hi := floor1Neighbors(xlist, known, 3) // x=32, neighbors among {0,64}
	if xlist[lo] != 0 || xlist[hi] != 64 {
		t.Fatalf("neighbors of x=32 = (%d,%d), want (0,64)", xlist[lo], xlist[hi])
	}
}

func TestInverseDBClampsRange(t *testing.T) {
	if v := inverseDB(-5); v != inverseDB(0) {
		t.Errorf("inverseDB(-5) should clamp to inverseDB(0)")
	}
	if v := inverseDB(300); v != inverseDB(255) {
		t.Errorf("inverseDB(300) should clamp to inverseDB(255), got %v", v)
	}
}
