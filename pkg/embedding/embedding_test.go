package embedding_test

import (
	"math"
	"testing"

	"github.com/haivivi/voicegate/pkg/embedding"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"scaled", []float32{2, 0}, []float32{5, 0}, 1},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, -1},
		{"empty", nil, nil, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := embedding.Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineRange(t *testing.T) {
	// Arbitrary vectors must stay within [-1, 1].
	a := []float32{0.3, -1.7, 2.2, 0.01}
	b := []float32{-0.4, 0.9, 1.1, -3.0}
	got := embedding.Cosine(a, b)
	if got < -1 || got > 1 {
		t.Fatalf("Cosine = %v, out of [-1, 1]", got)
	}
}

func TestMethodRoundTrip(t *testing.T) {
	for _, m := range []embedding.Method{embedding.MethodDeep, embedding.MethodSpectral} {
		got, err := embedding.ParseMethod(m.String())
		if err != nil {
			t.Fatalf("ParseMethod(%q): %v", m.String(), err)
		}
		if got != m {
			t.Fatalf("ParseMethod(%q) = %v, want %v", m.String(), got, m)
		}
	}

	if _, err := embedding.ParseMethod("mfcc"); err == nil {
		t.Fatal("expected error for unknown method name")
	}
	if embedding.MethodUnknown.Valid() {
		t.Fatal("MethodUnknown must not be valid")
	}
}
