// Package effects derives the human-readable effect and tooltip text shown
// for pills, furniture, land and equipment. Everything here is a pure
// function of its inputs.
package effects

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/MRamiBalles/idlekernel/internal/domain/bignumber"
	"github.com/MRamiBalles/idlekernel/internal/domain/character"
	"github.com/MRamiBalles/idlekernel/internal/domain/home"
)

// LongevityView describes what a longevity pill would do right now.
type LongevityView struct {
	Nominal   float64  `json:"nominal"`
	Effective float64  `json:"effective"`
	Lines     []string `json:"lines"`
}

// Longevity computes the nominal and capped gain of a pill with the given
// power for a character whose alchemy lifespan is current.
func Longevity(power, current float64) LongevityView {
	eff := character.LongevityGain(power, current)
	return LongevityView{
		Nominal:   power,
		Effective: eff,
		Lines: []string{
			fmt.Sprintf("+%s alchemy lifespan (max 100 years).", FormatDays(power)),
			fmt.Sprintf("The effective value of taking this pill will be +%s.", FormatDays(eff)),
		},
	}
}

// FormatDays renders a day count as "N year(s) M day(s)", or "0 days".
func FormatDays(days float64) string {
	if math.IsNaN(days) || days < 1 {
		return "0 days"
	}
	total := int64(days)
	years, rest := total/365, total%365

	parts := make([]string, 0, 2)
	if years > 0 {
		parts = append(parts, plural(years, "year"))
	}
	if rest > 0 {
		parts = append(parts, plural(rest, "day"))
	}
	return strings.Join(parts, " ")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return strconv.FormatInt(n, 10) + " " + unit + "s"
}

// EmpowermentView summarizes the empowerment factor.
type EmpowermentView struct {
	Pills      float64 `json:"pills"`
	Multiplier float64 `json:"multiplier"`
	Percent    float64 `json:"percent"`
	Line       string  `json:"line"`
}

// Empowerment derives pill count, multiplier and bonus percentage.
func Empowerment(factor float64, f *bignumber.Formatter) EmpowermentView {
	v := EmpowermentView{
		Pills:      character.EmpowermentPills(factor),
		Multiplier: character.EmpowermentMultiplier(factor),
	}
	v.Percent = (v.Multiplier - 1) * 100
	v.Line = fmt.Sprintf("You have taken %s empowerment pills, multiplying attribute gains by %s (+%s%%).",
		format(f, v.Pills), format(f, v.Multiplier), format(f, v.Percent))
	return v
}

var numberPattern = regexp.MustCompile(`\d+(?:\.\d+)?`)

// ScaleEffectText multiplies every number in a furniture bonus by count,
// the number of identical pieces placed.
func ScaleEffectText(text string, count int) string {
	if count <= 1 {
		return text
	}
	return numberPattern.ReplaceAllStringFunc(text, func(s string) string {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return s
		}
		// At most two decimals, trailing zeros dropped.
		return strconv.FormatFloat(math.Round(v*float64(count)*100)/100, 'f', -1, 64)
	})
}

// LandQuoteView prices a land purchase.
type LandQuoteView struct {
	Count          int     `json:"count"`
	Cost           float64 `json:"cost"`
	Affordable     int     `json:"affordable"`
	HalfAffordable int     `json:"half_affordable"`
	CostText       string  `json:"cost_text"`
}

// LandQuote prices count acres at the current land price and reports how
// many acres money can buy.
func LandQuote(price float64, count int, money float64, f *bignumber.Formatter) LandQuoteView {
	n := home.AffordableLand(price, money)
	cost := home.LandCost(price, count)
	return LandQuoteView{
		Count:          count,
		Cost:           cost,
		Affordable:     n,
		HalfAffordable: n / 2,
		CostText:       format(f, cost),
	}
}

// ParseEffects splits a use description into bullet lines. Sentences are
// split on periods and comma lists into separate effects, except for
// chance-based sentences which stay whole.
func ParseEffects(desc string) []string {
	var out []string
	for _, part := range strings.Split(desc, ".") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.Contains(part, "% chance:") {
			out = append(out, part+".")
			continue
		}
		for _, e := range strings.Split(part, ",") {
			if e = strings.TrimSpace(e); e != "" {
				out = append(out, e+".")
			}
		}
	}
	return out
}

func format(f *bignumber.Formatter, v float64) string {
	if f == nil {
		return bignumber.Format(v, bignumber.Standard)
	}
	return f.Format(v)
}
