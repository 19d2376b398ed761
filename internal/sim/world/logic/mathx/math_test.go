package mathx

import (
	"math"
	"testing"
)

func TestClampInt(t *testing.T) {
	cases := []struct{ v, lo, hi, want int }{
		{5, 1, 10, 5},
		{-3, 1, 10, 1},
		{42, 1, 10, 10},
	}
	for _, c := range cases {
		if got := ClampInt(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("ClampInt(%d,%d,%d)=%d want %d", c.v, c.lo, c.hi, got, c.want)
		}
	}
	if MinInt(3, 9) != 3 || MinInt(9, 3) != 3 {
		t.Fatalf("MinInt")
	}
}

func TestVec2_Normalize(t *testing.T) {
	v := Vec2{X: 3, Y: 4}.Normalize()
	if math.Abs(v.X-0.6) > 1e-12 || math.Abs(v.Y-0.8) > 1e-12 {
		t.Fatalf("Normalize(3,4)=%+v", v)
	}
	if z := (Vec2{}).Normalize(); !z.IsZero() {
		t.Fatalf("zero vector must stay zero, got %+v", z)
	}
}

func TestVec2_Arithmetic(t *testing.T) {
	a := V(1, 2)
	b := V(4, 6)
	if got := b.Sub(a); got != (Vec2{X: 3, Y: 4}) {
		t.Fatalf("Sub=%+v", got)
	}
	if got := a.Add(b).Scale(0.5); got != (Vec2{X: 2.5, Y: 4}) {
		t.Fatalf("Add/Scale=%+v", got)
	}
	if d := Dist(a, b); d != 5 {
		t.Fatalf("Dist=%v want 5", d)
	}
}
