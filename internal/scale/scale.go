// Package scale picks a display divisor and unit suffix for chart axes
// from a summary statistic of the plotted values.
package scale

import (
	"math"
	"sort"
	"strconv"
)

// Tier maps an open interval (Lower, Upper) of the statistic to a scale.
type Tier struct {
	Lower   float64
	Upper   float64
	Divisor float64
	Suffix  string
}

// Scale is the selected divisor and suffix.
type Scale struct {
	Divisor float64
	Suffix  string
}

// Default is used when the statistic falls in no tier, including exact boundaries.
var Default = Scale{Divisor: 1, Suffix: ""}

// LowEndCount is the number of smallest values averaged by LowEndMean.
const LowEndCount = 3

var (
	thousand = Scale{Divisor: 1_000, Suffix: "k"}
	lakh     = Scale{Divisor: 100_000, Suffix: "L"}
	million  = Scale{Divisor: 1_000_000, Suffix: "M"}
)

func tier(lo, hi float64, s Scale) Tier {
	return Tier{Lower: lo, Upper: hi, Divisor: s.Divisor, Suffix: s.Suffix}
}

// ViewTiers scales charts whose statistic is the mean of all plotted views.
var ViewTiers = []Tier{
	tier(1_000, 50_000, thousand),
	tier(50_000, 1_000_000, lakh),
	tier(1_000_000, math.Inf(1), million),
}

// LowViewTiers scales the lowest-viewed chart by its low-end mean.
var LowViewTiers = []Tier{
	tier(math.Inf(-1), 10_000, Default),
	tier(10_000, 40_000, thousand),
	tier(40_000, 500_000, lakh),
	tier(500_000, math.Inf(1), million),
}

// LowLikeTiers scales the least-liked chart by its low-end mean.
var LowLikeTiers = []Tier{
	tier(math.Inf(-1), 10_000, Default),
	tier(10_000, 50_000, thousand),
	tier(50_000, 300_000, lakh),
}

// Thousands is the fixed scale of the most-liked chart.
var Thousands = thousand

// Select returns the scale of the first tier with Lower < stat < Upper.
// A statistic outside every tier, NaN included, yields Default.
func Select(stat float64, tiers []Tier) Scale {
	for _, t := range tiers {
		if stat > t.Lower && stat < t.Upper {
			return Scale{Divisor: t.Divisor, Suffix: t.Suffix}
		}
	}
	return Default
}

// Mean returns the arithmetic mean, or NaN for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// LowEndMean returns the mean of the n smallest values (all of them when fewer than n).
func LowEndMean(values []float64, n int) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return Mean(sorted)
}

// ForViews selects the scale for a views chart from the mean of values.
func ForViews(values []float64) Scale {
	return Select(Mean(values), ViewTiers)
}

// ForLowViews selects the scale for the lowest-viewed chart.
func ForLowViews(values []float64) Scale {
	return Select(LowEndMean(values, LowEndCount), LowViewTiers)
}

// ForLowLikes selects the scale for the least-liked chart.
func ForLowLikes(values []float64) Scale {
	return Select(LowEndMean(values, LowEndCount), LowLikeTiers)
}

// Apply divides v by the divisor.
func (s Scale) Apply(v float64) float64 {
	if s.Divisor == 0 {
		return v
	}
	return v / s.Divisor
}

// Format renders v scaled with its suffix, e.g. 1.5M or 42k.
func (s Scale) Format(v float64) string {
	return strconv.FormatFloat(s.Apply(v), 'f', -1, 64) + s.Suffix
}

// Label appends the suffix to an axis name, e.g. "Views (k)".
func (s Scale) Label(name string) string {
	if s.Suffix == "" {
		return name
	}
	return name + " (" + s.Suffix + ")"
}
