package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/anatolykoptev/go_tube/internal/engine"
)

// continuationPageCap bounds Innertube paging per run. 20 pages at ~30
// tiles each comfortably covers the 500-video input ceiling.
const continuationPageCap = 20

// PageFetcher retrieves raw documents. Satisfied by *engine.Fetcher;
// tests substitute canned pages through it.
type PageFetcher interface {
	GetPage(ctx context.Context, url string) ([]byte, error)
	PostJSON(ctx context.Context, endpoint string, headers map[string]string, payload any) ([]byte, error)
}

// Analyzer runs the channel analysis pipeline: resolve identity, check
// the cache, fetch pages through the rate limiter, extract, filter,
// sort, aggregate, store. Instances are safe for concurrent use and
// share nothing with each other.
type Analyzer struct {
	cfg     engine.Config
	cache   *engine.Cache
	limiter *engine.RateLimiter
	fetcher PageFetcher
	metrics *engine.Metrics
	now     func() time.Time
}

type Option func(*Analyzer)

// WithFetcher replaces the HTTP fetch layer.
func WithFetcher(f PageFetcher) Option {
	return func(a *Analyzer) { a.fetcher = f }
}

// WithClock fixes the reference time used to resolve relative dates.
func WithClock(clock func() time.Time) Option {
	return func(a *Analyzer) { a.now = clock }
}

// New builds an analyzer from cfg. Zero-valued config fields take
// production defaults.
func New(cfg engine.Config, opts ...Option) *Analyzer {
	cfg.Defaults()
	m := &engine.Metrics{}
	a := &Analyzer{
		cfg:     cfg,
		cache:   engine.NewCache(cfg.CacheEnabled, cfg.RedisURL, cfg.CacheTTL, cfg.CacheMaxEntries, cfg.CacheCleanupInterval),
		limiter: engine.NewRateLimiter(cfg.RateLimit, cfg.RateWindow, cfg.RateMaxWait),
		fetcher: engine.NewFetcher(cfg, m),
		metrics: m,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Cache exposes the analyzer's cache for maintenance operations.
func (a *Analyzer) Cache() *engine.Cache { return a.cache }

// Close releases background resources. The analyzer stays usable.
func (a *Analyzer) Close() { a.cache.Close() }

// Stats merges the analyzer's counters into one snapshot.
func (a *Analyzer) Stats() map[string]int64 {
	snap := a.metrics.Snapshot()
	hits, misses := a.cache.Stats()
	snap["cache_hits"] = hits
	snap["cache_misses"] = misses
	snap["cache_entries"] = int64(a.cache.Len())
	snap["rate_limit_waits"] = a.limiter.Waits()
	return snap
}

// Run performs one full analysis.
func (a *Analyzer) Run(ctx context.Context, in Input) (*AnalysisResult, error) {
	a.metrics.Runs.Add(1)
	result, err := a.run(ctx, in)
	if err != nil {
		a.metrics.RunErrors.Add(1)
		return nil, err
	}
	return result, nil
}

func (a *Analyzer) run(ctx context.Context, in Input) (*AnalysisResult, error) {
	start := time.Now()

	dateFrom, err := validateInput(&in)
	if err != nil {
		return nil, err
	}
	if in.IncludeComments {
		slog.Debug("include_comments requested; comment extraction is not implemented")
	}

	channelID, err := a.resolveIdentity(ctx, in)
	if err != nil {
		return nil, err
	}

	key := engine.CacheKey("analysis", channelID, strconv.Itoa(in.MaxVideos), in.SortBy, in.DateFrom)
	if cached, ok := engine.CacheLoadJSON[*AnalysisResult](ctx, a.cache, key); ok {
		slog.Info("analysis served from cache",
			slog.String("channel", channelID), slog.Int("videos", len(cached.Videos)))
		cached.CacheHit = true
		return cached, nil
	}

	now := a.now()

	page, err := a.fetchPage(ctx, aboutURL(channelID))
	if err != nil {
		return nil, err
	}
	data, err := ExtractInitialData(page)
	if err != nil {
		return nil, fmt.Errorf("channel page %s: %w", channelID, err)
	}
	if err := channelUnavailable(data, channelID); err != nil {
		return nil, err
	}
	info, warns := parseChannelInfo(channelID, data)

	videos, vwarns, err := a.listVideos(ctx, channelID, in, now)
	if err != nil {
		return nil, err
	}
	warns = append(warns, vwarns...)

	videos = filterByDate(videos, dateFrom)
	if len(videos) > in.MaxVideos {
		videos = videos[:in.MaxVideos]
	}
	SortVideos(videos, in.SortBy)

	result := &AnalysisResult{Channel: info, Videos: videos, Warnings: warns}
	Aggregate(result)
	a.metrics.ParseWarnings.Add(int64(len(warns)))

	engine.CacheStoreJSON(ctx, a.cache, key, result, 0)

	slog.Info("analysis complete",
		slog.String("channel", channelID),
		slog.Int("videos", len(videos)),
		slog.Int("warnings", len(warns)),
		slog.Duration("took", time.Since(start)))
	return result, nil
}

// listVideos walks the videos tab plus Innertube continuations until
// max_videos tiles are collected or the listing runs out.
func (a *Analyzer) listVideos(ctx context.Context, channelID string, in Input, now time.Time) ([]Video, []engine.ParseWarning, error) {
	page, err := a.fetchPage(ctx, videosURL(channelID, in.SortBy))
	if err != nil {
		return nil, nil, err
	}
	data, err := ExtractInitialData(page)
	if err != nil {
		return nil, nil, fmt.Errorf("videos page %s: %w", channelID, err)
	}

	videos, warns := collectVideos(data, now)
	seen := make(map[string]bool, len(videos))
	for _, v := range videos {
		seen[v.VideoID] = true
	}

	token := continuationToken(data)
	visitor := generateVisitorData()
	for pages := 0; token != "" && len(videos) < in.MaxVideos && pages < continuationPageCap; pages++ {
		payload, headers := browseRequest(token, visitor)
		body, err := a.postJSON(ctx, innertubeBrowseURL, headers, payload)
		if err != nil {
			return nil, nil, err
		}

		more, w := collectVideos(body, now)
		warns = append(warns, w...)
		added := 0
		for _, v := range more {
			if !seen[v.VideoID] {
				seen[v.VideoID] = true
				videos = append(videos, v)
				added++
			}
		}
		slog.Debug("continuation page fetched",
			slog.String("channel", channelID), slog.Int("added", added), slog.Int("total", len(videos)))
		if added == 0 {
			break
		}
		token = continuationToken(body)
	}
	return videos, warns, nil
}

// resolveIdentity turns the input identity into a channel id. A direct
// id is taken as-is; /channel/ URLs are parsed locally; vanity forms
// cost one page fetch.
func (a *Analyzer) resolveIdentity(ctx context.Context, in Input) (string, error) {
	if id := strings.TrimSpace(in.ChannelID); id != "" {
		return id, nil
	}
	normalized, err := NormalizeChannelURL(in.ChannelURL)
	if err != nil {
		return "", err
	}
	if id := ChannelIDFromURL(normalized); id != "" {
		return id, nil
	}
	page, err := a.fetchPage(ctx, normalized)
	if err != nil {
		return "", err
	}
	id := ExtractChannelID(page)
	if id == "" {
		return "", &engine.ChannelNotFoundError{Identity: in.ChannelURL}
	}
	slog.Debug("resolved channel id", slog.String("url", normalized), slog.String("channel", id))
	return id, nil
}

// fetchPage gates one page fetch through the rate limiter.
func (a *Analyzer) fetchPage(ctx context.Context, url string) ([]byte, error) {
	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return a.fetcher.GetPage(ctx, url)
}

// postJSON gates one API call through the rate limiter.
func (a *Analyzer) postJSON(ctx context.Context, endpoint string, headers map[string]string, payload any) ([]byte, error) {
	if err := a.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	return a.fetcher.PostJSON(ctx, endpoint, headers, payload)
}

// validateInput applies defaults and bounds. The input is rejected
// before any network activity when invalid.
func validateInput(in *Input) (time.Time, error) {
	hasURL := strings.TrimSpace(in.ChannelURL) != ""
	hasID := strings.TrimSpace(in.ChannelID) != ""
	switch {
	case hasURL && hasID:
		return time.Time{}, &engine.InputError{Field: "channel_url", Reason: "channel_url and channel_id are mutually exclusive"}
	case !hasURL && !hasID:
		return time.Time{}, &engine.InputError{Field: "channel_url", Reason: "one of channel_url or channel_id is required"}
	}

	if in.MaxVideos == 0 {
		in.MaxVideos = DefaultMaxVideos
	}
	if in.MaxVideos < 1 || in.MaxVideos > MaxVideosLimit {
		return time.Time{}, &engine.InputError{Field: "max_videos", Reason: fmt.Sprintf("must be between 1 and %d", MaxVideosLimit)}
	}

	if in.MaxCommentsPerVideo == 0 {
		in.MaxCommentsPerVideo = DefaultMaxComments
	}
	if in.MaxCommentsPerVideo < 0 || in.MaxCommentsPerVideo > MaxCommentsLimit {
		return time.Time{}, &engine.InputError{Field: "max_comments_per_video", Reason: fmt.Sprintf("must be between 0 and %d", MaxCommentsLimit)}
	}

	switch in.SortBy {
	case "":
		in.SortBy = SortNewest
	case SortNewest, SortPopular, SortOldest:
	default:
		return time.Time{}, &engine.InputError{Field: "sort_by", Reason: fmt.Sprintf("unknown sort %q", in.SortBy)}
	}

	var dateFrom time.Time
	if in.DateFrom != "" {
		t, err := time.Parse("2006-01-02", in.DateFrom)
		if err != nil {
			return time.Time{}, &engine.InputError{Field: "date_from", Reason: "must be YYYY-MM-DD"}
		}
		dateFrom = t
	}
	return dateFrom, nil
}
