// Package report renders an analysis result for the terminal and as a PNG chart.
package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/hitoshi/tubedash/internal/analytics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/pipeline"
	"github.com/hitoshi/tubedash/internal/scale"
)

// ErrNoVideos is returned by WriteViewsPNG when there is nothing to plot.
var ErrNoVideos = errors.New("no videos with a view count")

const labelLength = 24

// WriteSummary writes the channel metrics and the top viewed videos as tables.
func WriteSummary(w io.Writer, result *pipeline.Result) error {
	ch := table.NewWriter()
	ch.SetOutputMirror(w)
	ch.SetTitle(result.Channel.Name)
	ch.AppendHeader(table.Row{"Metric", "Value"})
	ch.AppendRows([]table.Row{
		{"Channel ID", result.Channel.ID},
		{"Subscribers", count(result.Channel.SubscriberCount)},
		{"Total Views", count(result.Channel.ViewCount)},
		{"Total Videos", count(result.Channel.VideoCount)},
		{"Analyzed Videos", humanize.Comma(int64(len(result.Videos)))},
	})
	avg := analytics.ComputeAverages(result.Videos)
	ch.AppendSeparator()
	ch.AppendRows([]table.Row{
		{"Average Views", count(avg.Views)},
		{"Average Likes", count(avg.Likes)},
		{"Average Comments", count(avg.Comments)},
	})
	ch.SetStyle(table.StyleLight)
	ch.Render()

	if len(result.Videos) == 0 {
		_, err := fmt.Fprintln(w, "No videos found")
		return err
	}

	top := table.NewWriter()
	top.SetOutputMirror(w)
	top.SetTitle("Highest Viewed Videos")
	top.AppendHeader(table.Row{"#", "Published", "Title", "Views", "Likes", "Comments", "Minutes"})
	for i, v := range analytics.Top(result.Videos, model.MetricViews, analytics.TopN, true) {
		top.AppendRow(table.Row{
			i + 1,
			v.PublishedDate.Format("2006-01-02"),
			v.DisplayTitle(),
			count(v.ViewCount),
			count(v.LikeCount),
			count(v.CommentCount),
			strconv.FormatFloat(v.DurationMinutes, 'f', 1, 64),
		})
	}
	top.SetStyle(table.StyleLight)
	top.Render()
	return nil
}

// WriteViewsPNG renders the top viewed videos as a PNG bar chart.
func WriteViewsPNG(w io.Writer, result *pipeline.Result) error {
	views := analytics.Values(result.Videos, model.MetricViews)
	if len(views) == 0 {
		return ErrNoVideos
	}
	s := scale.ForViews(views)

	var bars []chart.Value
	maxVal := 0.0
	for _, v := range analytics.Top(result.Videos, model.MetricViews, analytics.TopN, true) {
		n, ok := v.ViewCount.Get()
		if !ok {
			continue
		}
		val := s.Apply(float64(n))
		maxVal = max(maxVal, val)
		bars = append(bars, chart.Value{
			Value: val,
			Label: shorten(v.DisplayTitle()),
		})
	}
	if maxVal == 0 {
		maxVal = 1
	}

	graph := chart.BarChart{
		Title: result.Channel.Name + ": Highest Viewed Videos",
		Background: chart.Style{
			FillColor: drawing.ColorWhite,
			Padding:   chart.Box{Top: 40, Bottom: 20},
		},
		Height:     768,
		Width:      1600,
		BarWidth:   60,
		BarSpacing: 40,
		Bars:       bars,
		YAxis: chart.YAxis{
			Name:  s.Label("Views"),
			Range: &chart.ContinuousRange{Min: 0, Max: maxVal * 1.1},
		},
	}

	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render views chart: %w", err)
	}
	return nil
}

func count(o model.Optional[int64]) string {
	n, ok := o.Get()
	if !ok {
		return "n/a"
	}
	return humanize.Comma(n)
}

func shorten(s string) string {
	r := []rune(s)
	if len(r) <= labelLength {
		return s
	}
	return string(r[:labelLength-1]) + "…"
}
