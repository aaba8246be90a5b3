package utils

import "testing"

func TestRound2(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{12.344, 12.34},
		{12.346, 12.35},
		{99.999, 100},
		{-2.346, -2.35},
		{0.1 + 0.2, 0.3},
	}
	for _, tc := range cases {
		if got := Round2(tc.in); got != tc.want {
			t.Errorf("Round2(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestToPaise(t *testing.T) {
	cases := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{1, 100},
		{19.99, 1999},
		{826, 82600},
		{0.01, 1},
		{1234.56, 123456},
	}
	for _, tc := range cases {
		if got := ToPaise(tc.in); got != tc.want {
			t.Errorf("ToPaise(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}
