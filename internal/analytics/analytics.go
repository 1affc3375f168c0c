// Package analytics computes the dashboard statistics over derived video records.
package analytics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/hitoshi/tubedash/internal/model"
)

// TopN is the row count of the highest/lowest charts.
const TopN = 10

// ErrInvalidWindow is returned when the window start is after its end.
var ErrInvalidWindow = errors.New("window start is after window end")

// SortByPublished returns a copy of records ordered oldest first. Ties keep input order.
func SortByPublished(records []model.VideoRecord) []model.VideoRecord {
	out := append([]model.VideoRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PublishedDate.Equal(b.PublishedDate) {
			return a.PublishedDate.Before(b.PublishedDate)
		}
		return a.PublishedTime < b.PublishedTime
	})
	return out
}

// Window returns records[from:to+1]. Indices are clamped to the slice bounds.
func Window(records []model.VideoRecord, from, to int) ([]model.VideoRecord, error) {
	if from > to {
		return nil, fmt.Errorf("%w: %d > %d", ErrInvalidWindow, from, to)
	}
	if len(records) == 0 {
		return []model.VideoRecord{}, nil
	}
	from = max(from, 0)
	to = min(to, len(records)-1)
	if from > to {
		return []model.VideoRecord{}, nil
	}
	return records[from : to+1], nil
}

// Averages holds rounded per-video means. A metric with no values is missing.
type Averages struct {
	Views    model.Optional[int64]
	Likes    model.Optional[int64]
	Comments model.Optional[int64]
}

// ComputeAverages averages each metric, skipping missing values.
func ComputeAverages(records []model.VideoRecord) Averages {
	return Averages{
		Views:    roundedMean(Values(records, model.MetricViews)),
		Likes:    roundedMean(Values(records, model.MetricLikes)),
		Comments: roundedMean(Values(records, model.MetricComments)),
	}
}

func roundedMean(values []float64) model.Optional[int64] {
	if len(values) == 0 {
		return model.None[int64]()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return model.Some(int64(math.Round(sum / float64(len(values)))))
}

// Values returns the present values of metric, in record order.
func Values(records []model.VideoRecord, metric model.Metric) []float64 {
	out := make([]float64, 0, len(records))
	for _, r := range records {
		if v, ok := r.MetricValue(metric).Get(); ok {
			out = append(out, float64(v))
		}
	}
	return out
}

// Top returns up to n records ordered by metric. Missing values sort last
// in both directions.
func Top(records []model.VideoRecord, metric model.Metric, n int, descending bool) []model.VideoRecord {
	out := append([]model.VideoRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].MetricValue(metric).Get()
		b, bok := out[j].MetricValue(metric).Get()
		switch {
		case aok != bok:
			return aok
		case !aok:
			return false
		case descending:
			return a > b
		default:
			return a < b
		}
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// OverlapPercent is the share of a whose title also appears in b, rounded to
// a whole percent. An empty a yields 0.
func OverlapPercent(a, b []model.VideoRecord) int {
	if len(a) == 0 {
		return 0
	}
	titles := make(map[string]struct{}, len(b))
	for _, r := range b {
		titles[r.Title.Or("")] = struct{}{}
	}
	matched := 0
	for _, r := range a {
		if _, ok := titles[r.Title.Or("")]; ok {
			matched++
		}
	}
	return int(math.Round(float64(matched) / float64(len(a)) * 100))
}

// Insight holds the top/bottom overlap percentages shown under the like charts.
type Insight struct {
	TopPercent    int // top-viewed videos that are also most liked
	BottomPercent int // bottom-viewed videos that are also least liked
}

// ComputeInsight compares the top-n viewed and liked sets at both ends.
func ComputeInsight(records []model.VideoRecord, n int) Insight {
	return Insight{
		TopPercent: OverlapPercent(
			Top(records, model.MetricViews, n, true),
			Top(records, model.MetricLikes, n, true)),
		BottomPercent: OverlapPercent(
			Top(records, model.MetricViews, n, false),
			Top(records, model.MetricLikes, n, false)),
	}
}

// WeekdayCounts counts uploads per Monday-based day index.
func WeekdayCounts(records []model.VideoRecord) [7]int {
	var counts [7]int
	for _, r := range records {
		if r.DayOfWeek >= 0 && r.DayOfWeek < 7 {
			counts[r.DayOfWeek]++
		}
	}
	return counts
}

// HourCount is the number of uploads in one adjusted hour.
type HourCount struct {
	Hour  int
	Count int
}

// HourCounts counts uploads per adjusted publish hour, ordered by hour.
// Only hours with uploads are returned; hours may exceed 23.
func HourCounts(records []model.VideoRecord) []HourCount {
	m := make(map[int]int)
	for _, r := range records {
		m[r.PublishedHourAdjusted]++
	}
	out := make([]HourCount, 0, len(m))
	for h, c := range m {
		out = append(out, HourCount{Hour: h, Count: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out
}

// Box is a five-number summary.
type Box struct {
	Min    float64
	Q1     float64
	Median float64
	Q3     float64
	Max    float64
}

// Slice returns the summary in box-plot order.
func (b Box) Slice() []float64 {
	return []float64{b.Min, b.Q1, b.Median, b.Q3, b.Max}
}

// BoxStats summarizes values. ok is false for an empty input.
func BoxStats(values []float64) (Box, bool) {
	if len(values) == 0 {
		return Box{}, false
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Box{
		Min:    sorted[0],
		Q1:     Quantile(sorted, 0.25),
		Median: Quantile(sorted, 0.5),
		Q3:     Quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}, true
}

// Quantile interpolates linearly between the closest ranks of sorted.
func Quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	pos := p * float64(len(sorted)-1)
	lo, hi := math.Floor(pos), math.Ceil(pos)
	if lo == hi {
		return sorted[int(pos)]
	}
	frac := pos - lo
	return sorted[int(lo)] + frac*(sorted[int(hi)]-sorted[int(lo)])
}

// Bin is one histogram bucket covering [Start, End).
type Bin struct {
	Start float64
	End   float64
	Count int
}

// DurationBins is the bucket count of the duration histogram.
const DurationBins = 30

// Histogram buckets values into bins equal-width bins spanning min..max.
// The maximum value lands in the last bin.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if lo == hi {
		return []Bin{{Start: lo, End: hi, Count: len(values)}}
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Start = lo + float64(i)*width
		out[i].End = lo + float64(i+1)*width
	}
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}
