package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/hitoshi/tubedash/internal/analytics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/normalize"
	"github.com/hitoshi/tubedash/internal/scale"
)

const wordCloudLimit = 100

// labelReplacer swaps angle brackets for their fullwidth forms. go-echarts
// writes chart options into an inline script without HTML escaping, so a
// label must never carry "</script" or "<!--".
var labelReplacer = strings.NewReplacer("<", "\uFF1C", ">", "\uFF1E")

// chartLabel makes untrusted text safe to embed as a chart label.
func chartLabel(s string) string {
	return labelReplacer.Replace(s)
}

// Chart titles.
const (
	TitleHighestViewed  = "Highest Viewed Videos"
	TitleLowestViewed   = "Lowest Viewed Videos"
	TitleMostLiked      = "Most Liked Videos"
	TitleLeastLiked     = "Least Liked Videos"
	TitleByDay          = "Video uploads by Day"
	TitleByHour         = "Video uploads by Time"
	TitleViewsBox       = "Box Plot of Views"
	TitleLikesViews     = "Likes vs Views"
	TitleCommentsViews  = "Comments vs Views"
	TitleDurationViews  = "Duration vs Views"
	TitleWeekdayViews   = "WeekDay vs Views"
	TitleTagsViews      = "Tags vs Views"
	TitleDurationHist   = "Histogram of Duration"
	TitleTitleWordCloud = "Word Cloud of Title"
	TitleTagWordCloud   = "Word Cloud of Tags"
)

// RenderCharts writes the interactive chart page for v. An empty view
// renders a page without charts.
func RenderCharts(w io.Writer, v *View) error {
	page := components.NewPage()
	page.PageTitle = v.Channel.Name
	if !v.Empty() {
		page.AddCharts(BuildCharts(v.Records)...)
	}
	if err := page.Render(w); err != nil {
		return fmt.Errorf("render charts: %w", err)
	}
	return nil
}

// BuildCharts builds every dashboard chart over records.
func BuildCharts(records []model.VideoRecord) []components.Charter {
	views := analytics.Values(records, model.MetricViews)
	likes := analytics.Values(records, model.MetricLikes)

	viewScale := scale.ForViews(views)

	out := []components.Charter{
		rankedBar(TitleHighestViewed, "Views", records, model.MetricViews, true, viewScale),
		rankedBar(TitleLowestViewed, "Views", records, model.MetricViews, false, scale.ForLowViews(views)),
		rankedBar(TitleMostLiked, "Likes", records, model.MetricLikes, true, scale.Thousands),
		rankedBar(TitleLeastLiked, "Likes", records, model.MetricLikes, false, scale.ForLowLikes(likes)),
		weekdayBar(records),
		hourBar(records),
	}
	if box, ok := analytics.BoxStats(views); ok {
		out = append(out, viewsBox(box, viewScale))
	}
	out = append(out,
		viewsScatter(TitleLikesViews, "Likes", records, viewScale, func(r model.VideoRecord) (float64, bool) {
			n, ok := r.LikeCount.Get()
			return float64(n), ok
		}),
		viewsScatter(TitleCommentsViews, "Comments", records, viewScale, func(r model.VideoRecord) (float64, bool) {
			n, ok := r.CommentCount.Get()
			return float64(n), ok
		}),
		viewsScatter(TitleDurationViews, "Duration (mins)", records, viewScale, func(r model.VideoRecord) (float64, bool) {
			return r.DurationMinutes, true
		}),
		viewsScatter(TitleWeekdayViews, "Day of Week (0=Mon)", records, viewScale, func(r model.VideoRecord) (float64, bool) {
			return float64(r.DayOfWeek), true
		}),
		viewsScatter(TitleTagsViews, "Tag Count", records, viewScale, func(r model.VideoRecord) (float64, bool) {
			return float64(r.TagCount), true
		}),
		durationHistogram(records),
		wordCloud(TitleTitleWordCloud, analytics.WordFrequencies(analytics.TitleTexts(records), wordCloudLimit)),
		wordCloud(TitleTagWordCloud, analytics.WordFrequencies(analytics.TagTexts(records), wordCloudLimit)),
	)
	return out
}

// BarSeries is the label/value data of one ranked bar chart, already scaled.
type BarSeries struct {
	Labels []string
	Values []float64
}

// RankedSeries returns the top analytics.TopN records by metric, scaled by s.
// Records missing the metric are left out.
func RankedSeries(records []model.VideoRecord, metric model.Metric, descending bool, s scale.Scale) BarSeries {
	var bs BarSeries
	for _, r := range analytics.Top(records, metric, analytics.TopN, descending) {
		n, ok := r.MetricValue(metric).Get()
		if !ok {
			continue
		}
		bs.Labels = append(bs.Labels, chartLabel(r.DisplayTitle()))
		bs.Values = append(bs.Values, s.Apply(float64(n)))
	}
	return bs
}

func rankedBar(title, yName string, records []model.VideoRecord, metric model.Metric, descending bool, s scale.Scale) *charts.Bar {
	bs := RankedSeries(records, metric, descending, s)
	return newBar(title, "Title", s.Label(yName), bs.Labels, bs.Values)
}

func weekdayBar(records []model.VideoRecord) *charts.Bar {
	counts := analytics.WeekdayCounts(records)
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i] = normalize.WeekdayLabel(i)
		values[i] = float64(c)
	}
	return newBar(TitleByDay, "Published Day", "Count", labels, values)
}

func hourBar(records []model.VideoRecord) *charts.Bar {
	counts := analytics.HourCounts(records)
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, hc := range counts {
		labels[i] = strconv.Itoa(hc.Hour)
		values[i] = float64(hc.Count)
	}
	return newBar(TitleByHour, "Published Hour (IST)", "Count", labels, values)
}

func durationHistogram(records []model.VideoRecord) *charts.Bar {
	mins := make([]float64, len(records))
	for i, r := range records {
		mins[i] = r.DurationMinutes
	}
	bins := analytics.Histogram(mins, analytics.DurationBins)
	labels := make([]string, len(bins))
	values := make([]float64, len(bins))
	for i, b := range bins {
		labels[i] = strconv.FormatFloat(b.Start, 'f', 1, 64)
		values[i] = float64(b.Count)
	}
	return newBar(TitleDurationHist, "Duration (mins)", "Count", labels, values)
}

func newBar(title, xName, yName string, labels []string, values []float64) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName}),
		charts.WithYAxisOpts(opts.YAxis{Name: yName}),
	)
	data := make([]opts.BarData, len(values))
	for i, v := range values {
		data[i] = opts.BarData{Name: labels[i], Value: v}
	}
	bar.SetXAxis(labels).AddSeries(yName, data)
	return bar
}

func viewsBox(box analytics.Box, s scale.Scale) *charts.BoxPlot {
	bp := charts.NewBoxPlot()
	bp.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: TitleViewsBox}),
		charts.WithYAxisOpts(opts.YAxis{Name: s.Label("Views")}),
	)
	values := box.Slice()
	for i := range values {
		values[i] = s.Apply(values[i])
	}
	bp.SetXAxis([]string{"Views"}).AddSeries("Views", []opts.BoxPlotData{{Name: "Views", Value: values}})
	return bp
}

func viewsScatter(title, xName string, records []model.VideoRecord, s scale.Scale, x func(model.VideoRecord) (float64, bool)) *charts.Scatter {
	sc := charts.NewScatter()
	sc.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithXAxisOpts(opts.XAxis{Name: xName, Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: s.Label("Views")}),
	)
	var data []opts.ScatterData
	for _, r := range records {
		views, ok := r.ViewCount.Get()
		if !ok {
			continue
		}
		xv, ok := x(r)
		if !ok {
			continue
		}
		data = append(data, opts.ScatterData{Name: chartLabel(r.DisplayTitle()), Value: []interface{}{xv, s.Apply(float64(views))}})
	}
	sc.AddSeries("Views", data)
	return sc
}

func wordCloud(title string, words []analytics.WordCount) *charts.WordCloud {
	wc := charts.NewWordCloud()
	wc.SetGlobalOptions(charts.WithTitleOpts(opts.Title{Title: title}))
	data := make([]opts.WordCloudData, len(words))
	for i, w := range words {
		data[i] = opts.WordCloudData{Name: chartLabel(w.Word), Value: w.Count}
	}
	wc.AddSeries("words", data)
	return wc
}
