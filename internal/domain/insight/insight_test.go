package insight

import (
	"math"
	"strings"
	"testing"

	"fluxo/internal/domain/analytics"
)

func TestProfitVariation(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		last    float64
		want    *float64
	}{
		{"growth", 1500, 1000, f(50)},
		{"decline", 500, 1000, f(-50)},
		{"negative baseline uses absolute value", 0, -1000, f(100)},
		{"zero baseline nonzero current is undefined", 100, 0, nil},
		{"both zero is undefined", 0, 0, nil},
		{"unchanged", 1000, 1000, f(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ProfitVariation(tt.current, tt.last)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("ProfitVariation(%v, %v) = %v, want %v", tt.current, tt.last, deref(got), deref(tt.want))
			}
			if got != nil && *got != *tt.want {
				t.Errorf("ProfitVariation(%v, %v) = %v, want %v", tt.current, tt.last, *got, *tt.want)
			}
		})
	}
}

func TestProfitVariation_NeverNonFinite(t *testing.T) {
	for _, pair := range [][2]float64{{100, 0}, {0, 0}, {math.MaxFloat64, 1e-300}} {
		if v := ProfitVariation(pair[0], pair[1]); v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			t.Errorf("ProfitVariation(%v, %v) leaked non-finite %v", pair[0], pair[1], *v)
		}
	}
}

func TestEvaluateGoal_Clamped(t *testing.T) {
	tests := []struct {
		name     string
		achieved float64
		goal     float64
		wantPct  float64
	}{
		{"halfway", 2500, 5000, 50},
		{"exactly met", 5000, 5000, 100},
		{"exceeded clamps to 100", 12000, 5000, 100},
		{"nothing achieved", 0, 5000, 0},
		{"zero goal", 1000, 0, 0},
		{"negative achieved clamps to 0", -100, 5000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := EvaluateGoal(tt.achieved, tt.goal, 0, 0)
			if g.Percentage != tt.wantPct {
				t.Errorf("Percentage = %v, want %v", g.Percentage, tt.wantPct)
			}
			if g.Percentage < 0 || g.Percentage > 100 {
				t.Errorf("Percentage %v outside [0, 100]", g.Percentage)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	th := DefaultThresholds()
	suppliers := []analytics.Entity{{Name: "Fornecedor Alfa", TotalAmount: 900}}

	tests := []struct {
		name         string
		current      float64
		last         float64
		suppliers    []analytics.Entity
		wantCount    int
		wantContains string
	}{
		{"increase fires", 1300, 1000, suppliers, 2, "aumentaram 30%"},
		{"decrease fires", 700, 1000, suppliers, 2, "diminuíram 30%"},
		{"within band only supplier insight", 1100, 1000, suppliers, 1, "Fornecedor Alfa"},
		{"baseline too small guards both rules", 100, 5, suppliers, 1, "Fornecedor Alfa"},
		{"no suppliers no supplier insight", 1000, 1000, nil, 0, ""},
		{"increase without suppliers", 1300, 1000, nil, 1, "aumentaram"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Generate(tt.current, tt.last, tt.suppliers, th)
			if len(got) != tt.wantCount {
				t.Fatalf("got %d insights %v, want %d", len(got), got, tt.wantCount)
			}
			if tt.wantContains != "" {
				found := false
				for _, in := range got {
					if strings.Contains(in, tt.wantContains) {
						found = true
					}
				}
				if !found {
					t.Errorf("no insight contains %q: %v", tt.wantContains, got)
				}
			}
		})
	}
}

func f(v float64) *float64 { return &v }

func deref(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}
