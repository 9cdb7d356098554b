package money

import "testing"

func TestRound(t *testing.T) {
	tests := []struct {
		in   float64
		want Cents
	}{
		{0, 0},
		{0.4, 0},
		{0.5, 1},
		{1.49, 1},
		{-0.5, -1},
		{999.999, 1000},
	}
	for _, tt := range tests {
		if got := Round(tt.in); got != tt.want {
			t.Errorf("Round(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want Cents
	}{
		{9.99, 999},
		{0.1, 10},
		{12.345, 1235},
		{0, 0},
	}
	for _, tt := range tests {
		if got := FromFloat(tt.in); got != tt.want {
			t.Errorf("FromFloat(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRateAmount(t *testing.T) {
	// 30.00 at 8% tax = 2.40
	if got := RateAmount(3000, 0.08); got != 240 {
		t.Errorf("RateAmount(3000, 0.08) = %v, want 240", got)
	}
	// 30.00 at 20% tip = 6.00
	if got := RateAmount(3000, 0.20); got != 600 {
		t.Errorf("RateAmount(3000, 0.20) = %v, want 600", got)
	}
	if got := RateAmount(0, 0.08); got != 0 {
		t.Errorf("RateAmount(0, 0.08) = %v, want 0", got)
	}
}

func TestProrate(t *testing.T) {
	// Subtotal 100.00, absolute tax 8.00, party subtotal 25.00:
	// party tax share must be exactly 2.00.
	if got := Prorate(800, 2500, 10000); got != 200 {
		t.Errorf("Prorate(800, 2500, 10000) = %v, want 200", got)
	}
	// Whole bill gets the whole override.
	if got := Prorate(800, 10000, 10000); got != 800 {
		t.Errorf("Prorate(800, 10000, 10000) = %v, want 800", got)
	}
	// Zero total subtotal: pro-ration undefined, contribution is zero.
	if got := Prorate(800, 0, 0); got != 0 {
		t.Errorf("Prorate(800, 0, 0) = %v, want 0", got)
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   Cents
		want string
	}{
		{1234, "12.34"},
		{5, "0.05"},
		{0, "0.00"},
		{-250, "-2.50"},
		{100000, "1000.00"},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("Cents(%d).String() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
