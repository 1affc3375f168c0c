package pipeline

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/normalize"
	"github.com/hitoshi/tubedash/internal/record"
)

// Derive converts a shaped record into a VideoRecord. A missing or malformed
// duration or publish timestamp, or a non-numeric count, is an error.
// Missing text fields and counts stay missing.
func Derive(f record.Flat, hourOffset int) (model.VideoRecord, error) {
	if f.ID == "" {
		return model.VideoRecord{}, model.NewProtocolError(errors.New("video detail item without id"))
	}

	v := model.VideoRecord{
		ID:           f.ID,
		ChannelTitle: optString(f.Get("channelTitle")),
		Title:        optString(f.Get("title")),
		Description:  optString(f.Get("description")),
		Definition:   optString(f.Get("definition")),
		Caption:      optString(f.Get("caption")),
	}

	if tags, ok := f.Get("tags").Strings(); ok {
		v.Tags = model.Some(tags)
		v.TagCount = len(tags)
	}
	v.ShortTitle = normalize.ShortTitle(v.Title.Or(""), normalize.ShortTitleLength)

	var err error
	for _, c := range []struct {
		field string
		dst   *model.Optional[int64]
	}{
		{"viewCount", &v.ViewCount},
		{"likeCount", &v.LikeCount},
		{"commentCount", &v.CommentCount},
	} {
		if *c.dst, err = parseCount(f.Get(c.field)); err != nil {
			return model.VideoRecord{}, model.NewInvalidDataError(model.ErrCodeInvalidCount, f.ID,
				fmt.Errorf("%s: %w", c.field, err))
		}
	}

	iso, _ := f.Get("duration").String()
	secs, err := normalize.ParseDurationSeconds(iso)
	if err != nil {
		return model.VideoRecord{}, model.NewInvalidDataError(model.ErrCodeInvalidDuration, f.ID, err)
	}
	v.DurationSeconds = secs
	v.DurationMinutes = normalize.DurationMinutes(secs)

	ts, ok := f.Get("publishedAt").String()
	if !ok {
		return model.VideoRecord{}, model.NewInvalidDataError(model.ErrCodeInvalidTimestamp, f.ID,
			fmt.Errorf("%w: publishedAt missing", normalize.ErrInvalidTimestamp))
	}
	date, tod, err := normalize.SplitTimestamp(ts)
	if err != nil {
		return model.VideoRecord{}, model.NewInvalidDataError(model.ErrCodeInvalidTimestamp, f.ID, err)
	}
	hour, err := normalize.Hour(tod)
	if err != nil {
		return model.VideoRecord{}, model.NewInvalidDataError(model.ErrCodeInvalidTimestamp, f.ID, err)
	}

	v.PublishedDate = date
	v.PublishedTime = tod
	v.DayOfWeek, v.Weekday = normalize.WeekdayOf(date)
	v.PublishedHour = hour
	v.PublishedHourAdjusted = normalize.AdjustHour(hour, hourOffset)

	return v, nil
}

func optString(v record.Value) model.Optional[string] {
	if s, ok := v.String(); ok {
		return model.Some(s)
	}
	return model.None[string]()
}

// parseCount reads a count the API encodes as a decimal string.
func parseCount(v record.Value) (model.Optional[int64], error) {
	if v.Missing() {
		return model.None[int64](), nil
	}
	switch raw := v.Raw().(type) {
	case string:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return model.None[int64](), err
		}
		if n < 0 {
			return model.None[int64](), fmt.Errorf("negative count %d", n)
		}
		return model.Some(n), nil
	case float64:
		if raw < 0 || raw != float64(int64(raw)) {
			return model.None[int64](), fmt.Errorf("invalid count %v", raw)
		}
		return model.Some(int64(raw)), nil
	default:
		return model.None[int64](), fmt.Errorf("unexpected count type %T", raw)
	}
}
