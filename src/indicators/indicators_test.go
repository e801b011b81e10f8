package indicators

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestPctChange(t *testing.T) {
	tests := []struct {
		name string
		curr float64
		prev float64
		want float64
	}{
		{"up 10 percent", 110, 100, 0.10},
		{"down 50 percent", 50, 100, -0.50},
		{"flat", 42, 42, 0},
		{"zero previous", 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PctChange(tt.curr, tt.prev)
			if !almostEqual(got, tt.want) {
				t.Fatalf("PctChange(%v,%v)=%v want %v", tt.curr, tt.prev, got, tt.want)
			}
		})
	}
}

func TestEMA_SeedAndLength(t *testing.T) {
	in := []float64{10, 11, 12, 13, 14, 15}
	out := EMA(in, 3)

	if len(out) != len(in) {
		t.Fatalf("expected len=%d got=%d", len(in), len(out))
	}
	if !almostEqual(out[0], in[0]) {
		t.Fatalf("expected first element to echo input, got %v", out[0])
	}

	// k = 2/(3+1) = 0.5 -> out[1] = 11*0.5 + 10*0.5 = 10.5
	if !almostEqual(out[1], 10.5) {
		t.Fatalf("expected out[1]=10.5 got %v", out[1])
	}
}

func TestEMA_Empty(t *testing.T) {
	if out := EMA(nil, 10); len(out) != 0 {
		t.Fatalf("expected empty output, got %v", out)
	}
}

func TestRSI_ShortSeriesIsNeutral(t *testing.T) {
	in := []float64{100, 101, 102}
	out := RSI(in, 14)

	if len(out) != len(in) {
		t.Fatalf("expected len=%d got=%d", len(in), len(out))
	}
	for i, v := range out {
		if v != 50.0 {
			t.Fatalf("expected neutral 50 at %d, got %v", i, v)
		}
	}
}

func TestRSI_NeutralPrefixAndBounds(t *testing.T) {
	in := make([]float64, 60)
	for i := range in {
		in[i] = 100 + 3*math.Sin(float64(i)/3)
	}
	out := RSI(in, 14)

	if len(out) != len(in) {
		t.Fatalf("expected len=%d got=%d", len(in), len(out))
	}
	for i := 0; i < 14; i++ {
		if out[i] != 50.0 {
			t.Fatalf("expected neutral 50 before period at %d, got %v", i, out[i])
		}
	}
	for i, v := range out {
		if v < 0 || v > 100 {
			t.Fatalf("rsi out of bounds at %d: %v", i, v)
		}
	}
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	in := make([]float64, 30)
	for i := range in {
		in[i] = float64(100 + i)
	}
	out := RSI(in, 14)

	if got := out[len(out)-1]; got != 100.0 {
		t.Fatalf("expected rsi=100 on a loss-free series, got %v", got)
	}
}

func TestATRFromCloses_LengthMatchesInput(t *testing.T) {
	for _, n := range []int{1, 5, 14, 15, 50, 250} {
		in := make([]float64, n)
		for i := range in {
			in[i] = 100 + float64(i%7)
		}
		out := ATRFromCloses(in, 14)
		if len(out) != n {
			t.Fatalf("n=%d expected len=%d got=%d", n, n, len(out))
		}
	}
}

func TestATRFromCloses_ConstantSeriesIsZero(t *testing.T) {
	in := []float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5}
	out := ATRFromCloses(in, 14)
	for i, v := range out {
		if v != 0 {
			t.Fatalf("expected zero atr at %d, got %v", i, v)
		}
	}
}

func TestATRFromCloses_FrontPadRepeatsFirstValue(t *testing.T) {
	in := make([]float64, 40)
	for i := range in {
		in[i] = 100 + float64(i)*2 // constant abs change of 2
	}
	out := ATRFromCloses(in, 14)

	for i := 1; i < len(out); i++ {
		if !almostEqual(out[i], out[0]) {
			t.Fatalf("expected uniform atr=2 series, got out[%d]=%v", i, out[i])
		}
	}
	if !almostEqual(out[0], 2.0) {
		t.Fatalf("expected atr=2, got %v", out[0])
	}
}

func TestLastClose(t *testing.T) {
	if got := LastClose(nil); got != 0 {
		t.Fatalf("expected 0 for empty series, got %v", got)
	}
	if got := LastClose([]float64{1, 2, 3}); got != 3 {
		t.Fatalf("expected 3, got %v", got)
	}
}
