// Package pipeline turns a channel id into the filtered set of derived video
// records: fetch channel, list upload ids, fetch details in batches, shape,
// derive and drop zero-view rows.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/tubedash/internal/metrics"
	"github.com/hitoshi/tubedash/internal/model"
	"github.com/hitoshi/tubedash/internal/normalize"
	"github.com/hitoshi/tubedash/internal/pagination"
	"github.com/hitoshi/tubedash/internal/record"
)

// Source is the remote capability the pipeline drives.
type Source interface {
	FetchChannelSummary(ctx context.Context, channelID string) (*model.ChannelSummary, error)
	ListPlaylistItemIDs(ctx context.Context, playlistID string, pageSize int, pageToken string) (pagination.Page[string], error)
	FetchVideoDetails(ctx context.Context, ids []string) ([]record.RawItem, error)
}

// Options tunes a pipeline run.
type Options struct {
	// PageSize is the playlist page size (default 50).
	PageSize int
	// BatchSize is the number of ids per detail call (default 50).
	BatchSize int
	// BatchConcurrency bounds in-flight detail calls (default 1, sequential).
	BatchConcurrency int
	// HourOffset is added to the UTC publish hour (default 5).
	HourOffset int
}

// DefaultOptions returns the default run options.
func DefaultOptions() Options {
	return Options{
		PageSize:         50,
		BatchSize:        50,
		BatchConcurrency: 1,
		HourOffset:       normalize.DefaultHourOffset,
	}
}

// Result is the output of one run. Videos holds only records with a
// non-zero (or missing) view count, in listing order.
type Result struct {
	Channel     model.ChannelSummary `json:"channel"`
	Videos      []model.VideoRecord  `json:"videos"`
	CollectedAt time.Time            `json:"collected_at"`
}

// Pipeline runs the channel/video data flow against a Source.
type Pipeline struct {
	source  Source
	logger  *slog.Logger
	metrics metrics.MetricsCollector
	opts    Options
}

// New creates a Pipeline. Non-positive option values take their defaults.
func New(source Source, logger *slog.Logger, m metrics.MetricsCollector, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.PageSize <= 0 {
		opts.PageSize = def.PageSize
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = def.BatchSize
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = def.BatchConcurrency
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Pipeline{source: source, logger: logger, metrics: m, opts: opts}
}

// Run executes every stage in order. Any failure aborts the run and no
// partial result is returned. Zero videos is a valid result.
func (p *Pipeline) Run(ctx context.Context, channelID string) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, channelID)
	if err != nil {
		p.metrics.RecordPipelineRun(metrics.OutcomeFailure)
		p.logger.Error("pipeline run failed",
			slog.String("channel_id", channelID),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", time.Since(start)),
		)
		return nil, err
	}

	p.metrics.RecordPipelineRun(metrics.OutcomeSuccess)
	p.metrics.RecordVideosCollected(len(res.Videos))
	p.logger.Info("pipeline run completed",
		slog.String("channel_id", channelID),
		slog.Int("videos", len(res.Videos)),
		slog.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, channelID string) (*Result, error) {
	if channelID == "" {
		return nil, model.NewMissingChannelIDError()
	}

	channel, err := p.source.FetchChannelSummary(ctx, channelID)
	if err != nil {
		return nil, err
	}
	p.logger.Info("channel fetched",
		slog.String("channel_id", channel.ID),
		slog.String("uploads_playlist_id", channel.UploadsPlaylistID),
	)

	ids, err := p.ListVideoIDs(ctx, channel.UploadsPlaylistID)
	if err != nil {
		return nil, err
	}
	p.logger.Info("video ids listed", slog.Int("count", len(ids)))

	raw, err := p.FetchDetails(ctx, ids)
	if err != nil {
		return nil, err
	}

	shaped := ShapeAll(raw)
	derived, err := DeriveAll(shaped, p.opts.HourOffset)
	if err != nil {
		return nil, err
	}

	videos := FilterZeroViews(derived)
	p.logger.Info("video records derived",
		slog.Int("shaped", len(shaped)),
		slog.Int("kept", len(videos)),
	)

	return &Result{Channel: *channel, Videos: videos, CollectedAt: time.Now().UTC()}, nil
}

// ListVideoIDs drains the uploads playlist. Repeated ids keep their first position.
func (p *Pipeline) ListVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	if playlistID == "" {
		return []string{}, nil
	}

	list := func(ctx context.Context, pageSize int, token string) (pagination.Page[string], error) {
		return p.source.ListPlaylistItemIDs(ctx, playlistID, pageSize, token)
	}
	ids, err := pagination.CollectAll(ctx, list, p.opts.PageSize)
	if err != nil {
		if errors.Is(err, pagination.ErrRepeatedToken) {
			return nil, model.NewProtocolError(err)
		}
		return nil, err
	}

	unique := Dedupe(ids)
	if dropped := len(ids) - len(unique); dropped > 0 {
		p.logger.Warn("duplicate video ids dropped", slog.Int("dropped", dropped))
	}
	return unique, nil
}

// FetchDetails requests details in batches and returns the items in
// batch order, then in response order within each batch.
func (p *Pipeline) FetchDetails(ctx context.Context, ids []string) ([]record.RawItem, error) {
	batches := Batches(ids, p.opts.BatchSize)
	results := make([][]record.RawItem, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.BatchConcurrency)
	for i, batch := range batches {
		g.Go(func() error {
			items, err := p.source.FetchVideoDetails(gctx, batch)
			if err != nil {
				return fmt.Errorf("fetch details batch %d/%d: %w", i+1, len(batches), err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []record.RawItem
	for _, items := range results {
		all = append(all, items...)
	}
	p.logger.Info("video details fetched",
		slog.Int("batches", len(batches)),
		slog.Int("items", len(all)),
	)
	return all, nil
}

// Batches splits ids into consecutive chunks of at most size.
func Batches(ids []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}

// Dedupe removes repeated ids, keeping the first occurrence.
func Dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// ShapeAll shapes every raw item with the video field spec.
func ShapeAll(raw []record.RawItem) []record.Flat {
	out := make([]record.Flat, 0, len(raw))
	for _, r := range raw {
		out = append(out, record.Shape(r, record.VideoFieldSpec))
	}
	return out
}

// DeriveAll derives every record, stopping at the first malformed one.
func DeriveAll(flats []record.Flat, hourOffset int) ([]model.VideoRecord, error) {
	out := make([]model.VideoRecord, 0, len(flats))
	for _, f := range flats {
		v, err := Derive(f, hourOffset)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// FilterZeroViews drops records whose view count is exactly zero.
// Records with a missing view count are kept.
func FilterZeroViews(videos []model.VideoRecord) []model.VideoRecord {
	out := make([]model.VideoRecord, 0, len(videos))
	for _, v := range videos {
		if n, ok := v.ViewCount.Get(); ok && n == 0 {
			continue
		}
		out = append(out, v)
	}
	return out
}
