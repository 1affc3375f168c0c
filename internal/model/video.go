package model

import "time"

// VideoRecord is one shaped and derived video row.
// The raw ISO-8601 duration and publish timestamp are not kept;
// only the fields derived from them are.
type VideoRecord struct {
	ID string `json:"video_id"`

	ChannelTitle Optional[string]   `json:"channel_title"`
	Title        Optional[string]   `json:"title"`
	Description  Optional[string]   `json:"description"`
	Tags         Optional[[]string] `json:"tags"`
	ShortTitle   string             `json:"short_title"`
	TagCount     int                `json:"tags_count"`

	ViewCount    Optional[int64] `json:"view_count"`
	LikeCount    Optional[int64] `json:"like_count"`
	CommentCount Optional[int64] `json:"comment_count"`

	DurationSeconds int64            `json:"duration_secs"`
	DurationMinutes float64          `json:"duration_mins"`
	Definition      Optional[string] `json:"definition"`
	Caption         Optional[string] `json:"caption"`

	PublishedDate         time.Time `json:"published_date"`
	PublishedTime         string    `json:"published_time"`
	DayOfWeek             int       `json:"day_of_week"` // 0=Monday .. 6=Sunday
	Weekday               string    `json:"weekday"`
	PublishedHour         int       `json:"published_in_hr"`
	PublishedHourAdjusted int       `json:"published_hr_adjusted"` // not wrapped, may exceed 23
}

// Metric selects one of the numeric metric fields of a VideoRecord.
type Metric string

const (
	MetricViews    Metric = "views"
	MetricLikes    Metric = "likes"
	MetricComments Metric = "comments"
)

// MetricValue returns the selected metric of the record.
func (v VideoRecord) MetricValue(m Metric) Optional[int64] {
	switch m {
	case MetricViews:
		return v.ViewCount
	case MetricLikes:
		return v.LikeCount
	case MetricComments:
		return v.CommentCount
	default:
		return None[int64]()
	}
}

// DisplayTitle returns the short title, or the video id when the title is missing.
func (v VideoRecord) DisplayTitle() string {
	if v.ShortTitle != "" {
		return v.ShortTitle
	}
	return v.ID
}
