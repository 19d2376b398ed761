package encoding

import (
	"errors"
	"testing"
)

func TestTerrain_RoundTrip(t *testing.T) {
	in := []uint8{0, 0, 0, 1, 1, 2}
	for i := 0; i < 300; i++ {
		in = append(in, 3)
	}
	in = append(in, 0, 2, 2)

	out, err := DecodeTerrain(EncodeTerrain(in), len(in))
	if err != nil {
		t.Fatalf("DecodeTerrain: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("len mismatch: got %d want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("mismatch at %d: got %d want %d", i, out[i], in[i])
		}
	}
}

func TestTerrain_Empty(t *testing.T) {
	if got := EncodeTerrain(nil); got != "" {
		t.Fatalf("EncodeTerrain(nil) = %q", got)
	}
	out, err := DecodeTerrain("", 0)
	if err != nil || len(out) != 0 {
		t.Fatalf("DecodeTerrain empty: %v %v", out, err)
	}
}

func TestTerrain_WrongCellCount(t *testing.T) {
	enc := EncodeTerrain([]uint8{1, 1, 1, 1})
	if _, err := DecodeTerrain(enc, 3); !errors.Is(err, ErrCellCount) {
		t.Fatalf("short grid: want ErrCellCount, got %v", err)
	}
	if _, err := DecodeTerrain(enc, 5); !errors.Is(err, ErrCellCount) {
		t.Fatalf("long grid: want ErrCellCount, got %v", err)
	}
}

func TestTerrain_BadBase64(t *testing.T) {
	if _, err := DecodeTerrain("!!", 1); err == nil {
		t.Fatalf("expected error")
	}
}
