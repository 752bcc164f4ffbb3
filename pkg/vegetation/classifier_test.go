package vegetation

import (
	"math"
	"testing"
)

func TestNewClassifier(t *testing.T) {
	c := NewClassifier()
	if c == nil {
		t.Fatal("NewClassifier() returned nil")
	}

	if c.config.HueMin != 60 || c.config.HueMax != 180 {
		t.Errorf("Expected hue band 60-180, got %f-%f", c.config.HueMin, c.config.HueMax)
	}

	if c.config.ExcessThreshold != 0.05 {
		t.Errorf("Expected excess threshold 0.05, got %f", c.config.ExcessThreshold)
	}
}

func TestRGBToHSV(t *testing.T) {
	tests := []struct {
		name    string
		r, g, b float64
		h, s, v float64
	}{
		{"red", 1, 0, 0, 0, 1, 1},
		{"green", 0, 1, 0, 120, 1, 1},
		{"blue", 0, 0, 1, 240, 1, 1},
		{"yellow", 1, 1, 0, 60, 1, 1},
		{"cyan", 0, 1, 1, 180, 1, 1},
		{"magenta", 1, 0, 1, 300, 1, 1},
		{"black", 0, 0, 0, 0, 0, 0},
		{"grey", 0.5, 0.5, 0.5, 0, 0, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, s, v := RGBToHSV(tt.r, tt.g, tt.b)
			if math.Abs(h-tt.h) > 1e-9 || math.Abs(s-tt.s) > 1e-9 || math.Abs(v-tt.v) > 1e-9 {
				t.Errorf("RGBToHSV(%v, %v, %v) = (%v, %v, %v), want (%v, %v, %v)",
					tt.r, tt.g, tt.b, h, s, v, tt.h, tt.s, tt.v)
			}
		})
	}
}

func TestIsVegetation(t *testing.T) {
	c := NewClassifier()

	tests := []struct {
		name    string
		r, g, b float64
		want    bool
	}{
		{"pure green", 0, 1, 0, true},
		{"leaf green", 0.2, 0.6, 0.1, true},
		{"yellow edge of band", 1, 1, 0, true},
		{"cyan edge of band", 0, 1, 1, true},
		{"dark desaturated green", 0.10, 0.16, 0.10, true},
		{"green excess below threshold", 0.50, 0.54, 0.50, false},
		{"black", 0, 0, 0, false},
		{"white", 1, 1, 1, false},
		{"grey", 0.5, 0.5, 0.5, false},
		{"soil brown", 0.45, 0.30, 0.15, false},
		{"sky blue", 0.4, 0.6, 0.9, false},
		{"red", 0.9, 0.1, 0.1, false},
		{"very dark green hue", 0.0, 0.10, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsVegetation(tt.r, tt.g, tt.b); got != tt.want {
				t.Errorf("IsVegetation(%v, %v, %v) = %v, want %v", tt.r, tt.g, tt.b, got, tt.want)
			}
		})
	}
}

func TestIsVegetationGreenDominance(t *testing.T) {
	c := NewClassifier()

	// Any sample where green beats both channels by at least 0.05 is vegetation,
	// whatever its hue.
	for r := 0; r <= 255; r += 15 {
		for b := 0; b <= 255; b += 15 {
			for g := 0; g <= 255; g += 5 {
				rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255
				if gf > rf && gf > bf && gf-math.Max(rf, bf) >= 0.05 {
					if !c.IsVegetation(rf, gf, bf) {
						t.Fatalf("expected vegetation for (%d, %d, %d)", r, g, b)
					}
				}
			}
		}
	}
}

func TestIsVegetationNaN(t *testing.T) {
	c := NewClassifier()
	nan := math.NaN()

	if c.IsVegetation(nan, nan, nan) {
		t.Error("NaN input should not be vegetation")
	}
	if c.IsVegetation(0, nan, 0) {
		t.Error("NaN green channel should not be vegetation")
	}
}

func TestIsVegetationCustomConfig(t *testing.T) {
	cfg := DefaultClassifierConfig()
	cfg.ExcessThreshold = 0.5
	cfg.SaturationThreshold = 0.9
	c := NewClassifierWithConfig(cfg)

	if c.IsVegetation(0.2, 0.6, 0.1) {
		t.Error("Leaf green should fail the stricter thresholds")
	}
	if !c.IsVegetation(0, 1, 0) {
		t.Error("Pure green should still pass")
	}
}

func BenchmarkIsVegetation(b *testing.B) {
	c := NewClassifier()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.IsVegetation8(uint8(i), uint8(i>>3), uint8(i>>6))
	}
}
