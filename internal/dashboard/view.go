// Package dashboard builds the dashboard view model and renders it as an
// HTML page and an interactive chart page.
package dashboard

import (
	"errors"
	"html"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/tubedash/internal/analytics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/normalize"
	"github.com/hitoshi/tubedash/internal/pipeline"
)

// Unbounded as the window end selects the newest video.
const Unbounded = -1

const (
	recentCount   = 5
	excerptLength = 160
	notAvailable  = "n/a"
	dateLayout    = "2006-01-02"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func stripPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// ChannelView is the formatted channel header.
type ChannelView struct {
	ID          string
	Name        string
	Subscribers string
	Views       string
	Videos      string
}

// AverageView holds the formatted per-video averages of the window.
type AverageView struct {
	Views    string
	Likes    string
	Comments string
}

// VideoRow is one row of the recent-uploads table.
type VideoRow struct {
	ID        string
	Title     string
	Published string
	Views     string
	Likes     string
	Excerpt   string
}

// View is everything the page and chart renderers need.
type View struct {
	SessionID string
	Channel   ChannelView
	Total     int // videos in the session, before windowing
	From      int
	To        int
	FromDate  string
	ToDate    string
	Records   []model.VideoRecord // windowed, oldest first
	Averages  AverageView
	Insight   analytics.Insight
	Recent    []VideoRow
}

// Empty reports whether the window holds no videos.
func (v *View) Empty() bool {
	return len(v.Records) == 0
}

// BuildView sorts the result by publish time and narrows it to the inclusive
// index window [from, to]. to == Unbounded selects the newest video.
// A channel with no videos yields an empty view, not an error.
func BuildView(result *pipeline.Result, from, to int) (*View, error) {
	sorted := analytics.SortByPublished(result.Videos)

	v := &View{
		Channel: ChannelView{
			ID:          result.Channel.ID,
			Name:        result.Channel.Name,
			Subscribers: formatCount(result.Channel.SubscriberCount),
			Views:       formatCount(result.Channel.ViewCount),
			Videos:      formatCount(result.Channel.VideoCount),
		},
		Total:    len(sorted),
		Records:  []model.VideoRecord{},
		Averages: AverageView{Views: notAvailable, Likes: notAvailable, Comments: notAvailable},
	}
	if len(sorted) == 0 {
		return v, nil
	}

	if to == Unbounded {
		to = len(sorted) - 1
	}
	window, err := analytics.Window(sorted, from, to)
	if err != nil {
		if errors.Is(err, analytics.ErrInvalidWindow) {
			return nil, model.NewInvalidWindowError(err.Error())
		}
		return nil, err
	}
	v.Records = window
	v.From = max(from, 0)
	v.To = min(to, len(sorted)-1)
	if len(window) == 0 {
		return v, nil
	}

	v.FromDate = window[0].PublishedDate.Format(dateLayout)
	v.ToDate = window[len(window)-1].PublishedDate.Format(dateLayout)

	avg := analytics.ComputeAverages(window)
	v.Averages = AverageView{
		Views:    formatCount(avg.Views),
		Likes:    formatCount(avg.Likes),
		Comments: formatCount(avg.Comments),
	}
	v.Insight = analytics.ComputeInsight(window, analytics.TopN)

	for i := len(window) - 1; i >= 0 && len(v.Recent) < recentCount; i-- {
		r := window[i]
		v.Recent = append(v.Recent, VideoRow{
			ID:        r.ID,
			Title:     r.Title.Or(r.ID),
			Published: r.PublishedDate.Format(dateLayout),
			Views:     formatCount(r.ViewCount),
			Likes:     formatCount(r.LikeCount),
			Excerpt:   Excerpt(r.Description.Or("")),
		})
	}
	return v, nil
}

func formatCount(o model.Optional[int64]) string {
	n, ok := o.Get()
	if !ok {
		return notAvailable
	}
	return humanize.Comma(n)
}

// Excerpt strips markup from a description and shortens it to one line.
func Excerpt(desc string) string {
	text := html.UnescapeString(stripPolicy().Sanitize(desc))
	text = strings.Join(strings.Fields(text), " ")
	short := normalize.ShortTitle(text, excerptLength)
	if short != text {
		short += "..."
	}
	return short
}
