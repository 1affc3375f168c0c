// Package youtube is a minimal YouTube Data API v3 client covering the
// channel, upload-playlist and video-detail lookups used by the pipeline.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/tubedash/internal/metrics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/pagination"
	"github.com/hitoshi/tubedash/internal/record"
)

const (
	// DefaultEndpoint is the Data API v3 base URL.
	DefaultEndpoint = "https://www.googleapis.com/youtube/v3"
	// MaxIDsPerRequest is the id limit of one videos call, also the page size limit.
	MaxIDsPerRequest = 50

	userAgent = "tubedash/1.0"
)

// API operation names, used as metric labels.
const (
	OpChannels      = "channels"
	OpPlaylistItems = "playlistItems"
	OpVideos        = "videos"
)

// ClientOptions holds optional client settings.
type ClientOptions struct {
	Endpoint string                   // empty means DefaultEndpoint
	QPS      float64                  // outbound request rate; 0 means unlimited
	Metrics  metrics.MetricsCollector // nil means no metrics
}

// Client calls the Data API with a caller-supplied key.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiKey     string
	endpoint   string
	limiter    *rate.Limiter
	metrics    metrics.MetricsCollector
}

// NewClient creates a Client for apiKey.
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string, opts ClientOptions) *Client {
	c := &Client{
		httpClient: httpClient,
		logger:     logger,
		apiKey:     apiKey,
		endpoint:   strings.TrimRight(opts.Endpoint, "/"),
		metrics:    opts.Metrics,
	}
	if c.endpoint == "" {
		c.endpoint = DefaultEndpoint
	}
	if c.metrics == nil {
		c.metrics = metrics.Nop{}
	}
	if opts.QPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.QPS), 1)
	}
	return c
}

type channelResponse struct {
	Items []struct {
		ID      string `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
		ContentDetails struct {
			RelatedPlaylists struct {
				Uploads string `json:"uploads"`
			} `json:"relatedPlaylists"`
		} `json:"contentDetails"`
		Statistics struct {
			ViewCount       *string `json:"viewCount"`
			SubscriberCount *string `json:"subscriberCount"`
			VideoCount      *string `json:"videoCount"`
		} `json:"statistics"`
	} `json:"items"`
}

type playlistItemsResponse struct {
	NextPageToken string `json:"nextPageToken"`
	Items         []struct {
		ContentDetails struct {
			VideoID string `json:"videoId"`
		} `json:"contentDetails"`
	} `json:"items"`
}

type videosResponse struct {
	Items []record.RawItem `json:"items"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}

// FetchChannelSummary looks up one channel. A lookup with no rows returns
// an error wrapping model.ErrChannelNotFound. When several rows come back the
// first is used.
func (c *Client) FetchChannelSummary(ctx context.Context, channelID string) (*model.ChannelSummary, error) {
	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", channelID)

	var resp channelResponse
	if err := c.get(ctx, OpChannels, params, &resp); err != nil {
		return nil, err
	}

	if len(resp.Items) == 0 {
		return nil, model.NewChannelNotFoundError(channelID)
	}
	if len(resp.Items) > 1 {
		c.logger.Warn("channel lookup returned multiple rows, using the first",
			slog.String("channel_id", channelID),
			slog.Int("rows", len(resp.Items)),
		)
	}

	item := resp.Items[0]
	summary := &model.ChannelSummary{
		ID:                item.ID,
		Name:              item.Snippet.Title,
		UploadsPlaylistID: item.ContentDetails.RelatedPlaylists.Uploads,
	}

	var err error
	if summary.SubscriberCount, err = parseCount(item.Statistics.SubscriberCount); err != nil {
		return nil, model.NewInvalidDataError(model.ErrCodeInvalidCount, channelID, fmt.Errorf("subscriberCount: %w", err))
	}
	if summary.ViewCount, err = parseCount(item.Statistics.ViewCount); err != nil {
		return nil, model.NewInvalidDataError(model.ErrCodeInvalidCount, channelID, fmt.Errorf("viewCount: %w", err))
	}
	if summary.VideoCount, err = parseCount(item.Statistics.VideoCount); err != nil {
		return nil, model.NewInvalidDataError(model.ErrCodeInvalidCount, channelID, fmt.Errorf("videoCount: %w", err))
	}

	return summary, nil
}

// ListPlaylistItemIDs returns one page of video ids from a playlist.
func (c *Client) ListPlaylistItemIDs(ctx context.Context, playlistID string, pageSize int, pageToken string) (pagination.Page[string], error) {
	if pageSize <= 0 || pageSize > MaxIDsPerRequest {
		pageSize = MaxIDsPerRequest
	}

	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(pageSize))
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	var resp playlistItemsResponse
	if err := c.get(ctx, OpPlaylistItems, params, &resp); err != nil {
		return pagination.Page[string]{}, err
	}
	c.metrics.RecordPagesListed(1)

	ids := make([]string, 0, len(resp.Items))
	for _, it := range resp.Items {
		ids = append(ids, it.ContentDetails.VideoID)
	}
	return pagination.Page[string]{Items: ids, NextToken: resp.NextPageToken}, nil
}

// FetchVideoDetails returns the raw detail items for up to MaxIDsPerRequest ids.
// Ids unknown to the API are silently absent from the result.
func (c *Client) FetchVideoDetails(ctx context.Context, ids []string) ([]record.RawItem, error) {
	if len(ids) == 0 {
		return []record.RawItem{}, nil
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, fmt.Errorf("too many video ids: %d > %d", len(ids), MaxIDsPerRequest)
	}

	params := url.Values{}
	params.Set("part", "snippet,contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))
	params.Set("maxResults", strconv.Itoa(MaxIDsPerRequest))

	var resp videosResponse
	if err := c.get(ctx, OpVideos, params, &resp); err != nil {
		return nil, err
	}
	if resp.Items == nil {
		resp.Items = []record.RawItem{}
	}
	return resp.Items, nil
}

// get performs one GET on endpoint/operation and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, operation string, params url.Values, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.NewFetchFailedError(operation, 0, "", err)
		}
	}

	reqURL, err := url.Parse(c.endpoint + "/" + operation)
	if err != nil {
		return fmt.Errorf("parse endpoint URL: %w", err)
	}
	params.Set("key", c.apiKey)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordAPILatency(operation, time.Since(start))
	if err != nil {
		c.metrics.RecordAPICall(operation, 0)
		// url.Error carries the request URL, which includes the key
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		c.logger.Error("YouTube API call failed",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return model.NewFetchFailedError(operation, 0, "", err)
	}
	defer resp.Body.Close()
	c.metrics.RecordAPICall(operation, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.NewFetchFailedError(operation, resp.StatusCode, "", fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		reason := errorReason(body)
		c.logger.Error("YouTube API returned an error status",
			slog.String("operation", operation),
			slog.Int("http_status", resp.StatusCode),
			slog.String("reason", reason),
		)
		return model.NewFetchFailedError(operation, resp.StatusCode, reason,
			fmt.Errorf("%s: status %d", operation, resp.StatusCode))
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("failed to decode YouTube API response",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
		return model.NewProtocolError(fmt.Errorf("decode %s response: %w", operation, err))
	}
	return nil
}

// errorReason extracts "reason: message" from the Google error envelope.
func errorReason(body []byte) string {
	var env errorResponse
	if err := json.Unmarshal(body, &env); err != nil {
		return ""
	}
	reason := ""
	if len(env.Error.Errors) > 0 {
		reason = env.Error.Errors[0].Reason
	}
	switch {
	case reason != "" && env.Error.Message != "":
		return reason + ": " + env.Error.Message
	case reason != "":
		return reason
	default:
		return env.Error.Message
	}
}

// parseCount converts a decimal count string. Absent stays missing.
func parseCount(s *string) (model.Optional[int64], error) {
	if s == nil {
		return model.None[int64](), nil
	}
	n, err := strconv.ParseInt(*s, 10, 64)
	if err != nil {
		return model.None[int64](), err
	}
	if n < 0 {
		return model.None[int64](), fmt.Errorf("negative count %d", n)
	}
	return model.Some(n), nil
}
