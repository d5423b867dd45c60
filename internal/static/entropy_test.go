package static

import (
	"math"
	"math/rand"
	"testing"
)

func TestEntropyBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		buf := make([]byte, rng.Intn(4096))
		rng.Read(buf)
		h := Entropy(buf)
		if h < 0 || h > 8 {
			t.Fatalf("entropy %f out of [0,8] for buffer of %d bytes", h, len(buf))
		}
	}
}

func TestEntropyKnownValues(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want float64
	}{
		{"empty", nil, 0},
		{"single repeated byte", []byte{0x41, 0x41, 0x41, 0x41, 0x41}, 0},
		{"two symbols", []byte{0, 1, 0, 1}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Entropy(tt.data); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestEntropyUniform(t *testing.T) {
	buf := make([]byte, 256*16)
	for i := range buf {
		buf[i] = byte(i % 256)
	}
	if got := Entropy(buf); math.Abs(got-8.0) > 0.01 {
		t.Errorf("expected entropy close to 8, got %f", got)
	}
}
