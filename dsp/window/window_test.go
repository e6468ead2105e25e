package window

import (
	"math"
	"testing"
)

func TestWeightFormula(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		i      int
		offset int
		shape  float64
		want   float64
	}{
		{"half hann start", 8, 0, 0, 0.5, 0},
		{"half hann centre", 8, 4, 0, 0.5, 0.5},
		{"half hann quarter", 8, 2, 0, 0.5, 0.25},
		{"flat", 16, 5, 3, 1, 0.5},
		{"inverted cosine", 4, 0, 0, 0, -0.5},
		{"offset rotates", 8, 0, 4, 0.5, 0.5},
		{"offset wraps", 8, 6, 6, 0.5, 0.5},
		{"negative offset", 8, 0, -4, 0.5, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Weight(tt.size, tt.i, tt.offset, tt.shape)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Fatalf("Weight(%d, %d, %d, %v) = %v, want %v",
					tt.size, tt.i, tt.offset, tt.shape, got, tt.want)
			}
		})
	}
}

func TestOffsetIsRotation(t *testing.T) {
	const size = 32

	base, err := Generate(size, 0, 0.3)
	if err != nil {
		t.Fatal(err)
	}

	for _, offset := range []int{1, 7, size, size + 5, 3 * size} {
		rotated, err := Generate(size, offset, 0.3)
		if err != nil {
			t.Fatal(err)
		}

		for i := range size {
			want := base[(i+offset)%size]
			if math.Abs(rotated[i]-want) > 1e-12 {
				t.Fatalf("offset %d index %d: got %v want %v", offset, i, rotated[i], want)
			}
		}
	}
}

func TestGenerateValidation(t *testing.T) {
	if _, err := Generate(0, 0, 0.5); err == nil {
		t.Fatal("expected error for size=0")
	}

	if _, err := Generate(8, 0, -0.1); err == nil {
		t.Fatal("expected error for shape<0")
	}

	if _, err := Generate(8, 0, 1.1); err == nil {
		t.Fatal("expected error for shape>1")
	}
}

func TestFillMatchesWeight(t *testing.T) {
	dst := make([]float64, 64)
	Fill(dst, 9, 0.7)

	for i, v := range dst {
		if v != Weight(64, i, 9, 0.7) {
			t.Fatalf("Fill[%d] = %v, Weight = %v", i, v, Weight(64, i, 9, 0.7))
		}
	}
}

func TestAnalyzeOverlapGain(t *testing.T) {
	// For four-fold overlap the squared raised cosine sums to a constant
	// s^2 + (1-s)^2/2, independent of position.
	for _, shape := range []float64{0, 0.25, 0.5, 0.8, 1} {
		coeffs, err := Generate(256, 0, shape)
		if err != nil {
			t.Fatal(err)
		}

		a, err := Analyze(coeffs, 64)
		if err != nil {
			t.Fatal(err)
		}

		want := shape*shape + 0.5*(1-shape)*(1-shape)
		if math.Abs(a.OverlapGain-want) > 1e-12 {
			t.Fatalf("shape %v: OverlapGain = %v, want %v", shape, a.OverlapGain, want)
		}

		if a.OverlapRipple > 1e-12 {
			t.Fatalf("shape %v: OverlapRipple = %v, want 0", shape, a.OverlapRipple)
		}

		if math.Abs(a.CoherentGain-0.5*shape) > 1e-12 {
			t.Fatalf("shape %v: CoherentGain = %v, want %v", shape, a.CoherentGain, 0.5*shape)
		}
	}
}

func TestAnalyzeHalfHannENBW(t *testing.T) {
	coeffs, err := Generate(1024, 0, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	a, err := Analyze(coeffs, 256)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(a.ENBW-1.5) > 1e-9 {
		t.Fatalf("ENBW = %v, want 1.5", a.ENBW)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	if _, err := Analyze(nil, 1); err == nil {
		t.Fatal("expected error for empty coefficients")
	}

	if _, err := Analyze(make([]float64, 8), 3); err == nil {
		t.Fatal("expected error for hop not dividing size")
	}

	if _, err := Analyze(make([]float64, 8), 0); err == nil {
		t.Fatal("expected error for hop=0")
	}
}
