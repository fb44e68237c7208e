package bignumber

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatStandardTiers(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.5, "0.50"},
		{99.999, "100.00"},
		{12.345, "12.35"},
		{100.4, "100"},
		{150.5, "151"},
		{999, "999"},
		{9999, "9999"},
		{10000, "10k"},
		{12345, "12.34k"},
		{123456, "123.45k"},
		{999999, "999.99k"},
		{1000000, "1M"},
		{1500000, "1.5M"},
		{2.5e9, "2.5B"},
		{7.891e12, "7.89T"},
		{1e15, "1q"},
		{4.2e18, "4.2Q"},
		{9.99e23, "999s"},
		{1e24, "1.00e+24"},
		{3.14159e30, "3.14e+30"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.in, Standard), "Format(%v)", tt.in)
	}
}

func TestFormatNegativeTruncates(t *testing.T) {
	assert.Equal(t, "-12.34k", Format(-12345, Standard))
	assert.Equal(t, "-12.34k", Format(-12349.99, Standard))
	assert.Equal(t, "-0.25", Format(-0.25, Standard))
	assert.Equal(t, "-1.5M", Format(-1500000, Standard))
	assert.Equal(t, "-1.00e+24", Format(-1e24, Standard))
}

func TestFormatScientificThreeDigits(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{1, "1.00"},
		{12.345, "12.3"},
		{123.4, "123"},
		{1234, "1.23e+3"},
		{-1234, "-1.23e+3"},
		{0.00123, "0.00123"},
		{1.5e-7, "1.50e-7"},
		{6.02e23, "6.02e+23"},
		{1e300, "1.00e+300"},
	}

	for _, tt := range tests {
		got := Format(tt.in, Scientific)
		assert.Equal(t, tt.want, got, "Format(%v, Scientific)", tt.in)
		assert.Equal(t, 3, significantDigits(got), "significant digits of %q", got)
	}
}

func TestFormatNonFinite(t *testing.T) {
	for _, mode := range []Mode{Standard, Scientific} {
		assert.Equal(t, NotANumber, Format(math.NaN(), mode))
		assert.Equal(t, PositiveInfinity, Format(math.Inf(1), mode))
		assert.Equal(t, NegativeInfinity, Format(math.Inf(-1), mode))
	}
}

func TestFormatPowerBoundaries(t *testing.T) {
	// Exact powers of ten sit on the edge of math.Log10's rounding error.
	for p := 4; p < 24; p++ {
		got := Format(math.Pow10(p), Standard)
		want := []string{"1", "10", "100"}[p%3] + suffixes[p/3]
		assert.Equal(t, want, got, "10^%d", p)
	}
}

func TestFormatterCacheAndMode(t *testing.T) {
	f := NewFormatter(8)
	assert.Equal(t, "1.5M", f.Format(1500000))
	assert.Equal(t, "1.5M", f.Format(1500000))

	f.SetScientific(true)
	assert.True(t, f.Scientific())
	assert.Equal(t, "1.50e+6", f.Format(1500000))
	assert.Equal(t, NotANumber, f.Format(math.NaN()))

	uncached := NewFormatter(0)
	assert.Equal(t, "10k", uncached.Format(10000))
}

func significantDigits(s string) int {
	s = strings.TrimPrefix(s, "-")
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		s = s[:i]
	}
	s = strings.Replace(s, ".", "", 1)
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return 3 // "0.00"
	}
	return len(s)
}
