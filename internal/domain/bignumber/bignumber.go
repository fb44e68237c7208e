// Package bignumber renders in-game magnitudes as compact strings.
// This package is PURE: no state beyond the optional memo cache in Formatter.
package bignumber

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
)

// Mode selects the rendering style.
type Mode int

const (
	Standard Mode = iota
	Scientific
)

// Sentinels returned for non-finite input.
const (
	NotANumber       = "NaN"
	PositiveInfinity = "Infinity"
	NegativeInfinity = "-Infinity"
)

// suffixes holds one entry per factor-of-1000 tier; index 0 is unused.
var suffixes = [...]string{"", "k", "M", "B", "T", "q", "Q", "s"}

// overflow is the first magnitude past the last suffix tier (1000^8).
var overflow = math.Pow10(3 * len(suffixes))

// pow10 caches 10^0..10^24 so tier scaling never calls math.Pow.
var pow10 = func() [3*len(suffixes) + 1]float64 {
	var t [3*len(suffixes) + 1]float64
	for i := range t {
		t[i] = math.Pow10(i)
	}
	return t
}()

// Format renders value in the given mode.
func Format(value float64, mode Mode) string {
	if s, ok := nonFinite(value); ok {
		return s
	}
	if mode == Scientific {
		return Precision3(value)
	}

	u := math.Abs(value)
	var out string
	switch {
	case u < 100 && u != math.Trunc(u):
		out = strconv.FormatFloat(u, 'f', 2, 64)
	case u < 10000:
		out = strconv.FormatFloat(math.Floor(u+0.5), 'f', 0, 64)
	case u >= overflow:
		out = Precision3(u)
	default:
		p := decimalExponent(u)
		scaled := math.Floor(u/pow10[p-p%3-2]) / 100
		out = humanize.FtoaWithDigits(scaled, 2) + suffixes[p/3]
	}

	if value < 0 {
		return "-" + out
	}
	return out
}

// Precision3 renders value with exactly three significant digits using the
// same layout as JavaScript's Number.prototype.toPrecision(3): positional for
// exponents in [-6, 3), exponential ("1.23e+4") otherwise.
func Precision3(value float64) string {
	if s, ok := nonFinite(value); ok {
		return s
	}
	if value == 0 {
		return "0.00"
	}

	e := strconv.FormatFloat(value, 'e', 2, 64)
	mantissa, exp := splitExponent(e)
	if exp < -6 || exp >= 3 {
		sign := "+"
		if exp < 0 {
			sign = "-"
			exp = -exp
		}
		return mantissa + "e" + sign + strconv.Itoa(exp)
	}
	return strconv.FormatFloat(value, 'f', 2-exp, 64)
}

// decimalExponent returns floor(log10(u)) for u >= 1, corrected for the
// rounding error of math.Log10 at exact powers of ten.
func decimalExponent(u float64) int {
	p := int(math.Floor(math.Log10(u)))
	if p+1 < len(pow10) && u >= pow10[p+1] {
		p++
	}
	if p > 0 && p < len(pow10) && u < pow10[p] {
		p--
	}
	return p
}

// splitExponent splits the output of FormatFloat(v, 'e', ...) into the
// mantissa text and the integer exponent.
func splitExponent(s string) (string, int) {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == 'e' {
			exp, _ := strconv.Atoi(s[i+1:])
			return s[:i], exp
		}
	}
	return s, 0
}

func nonFinite(v float64) (string, bool) {
	switch {
	case math.IsNaN(v):
		return NotANumber, true
	case math.IsInf(v, 1):
		return PositiveInfinity, true
	case math.IsInf(v, -1):
		return NegativeInfinity, true
	}
	return "", false
}
