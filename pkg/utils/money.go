package utils

import "math"

// Round2 rounds x to 2 decimal places (banking-style simple round).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ToPaise converts a rupee amount to integer paise. Rounded, not truncated:
// 19.99 carries the float representation 19.9899..., and truncation would
// lose a paisa.
func ToPaise(amount float64) int {
	return int(math.Round(amount * 100))
}
