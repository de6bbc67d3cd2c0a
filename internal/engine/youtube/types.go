package youtube

import (
	"time"

	"github.com/anatolykoptev/go_tube/internal/engine"
)

// Sort modes accepted in Input.SortBy.
const (
	SortNewest  = "newest"
	SortPopular = "popular"
	SortOldest  = "oldest"
)

// Input bounds.
const (
	DefaultMaxVideos   = 30
	MaxVideosLimit     = 500
	DefaultMaxComments = 50
	MaxCommentsLimit   = 200
)

// --- Input ---

// Input selects the channel and shapes the analysis. Exactly one of
// ChannelURL and ChannelID must be set.
type Input struct {
	ChannelURL string `json:"channel_url,omitempty"`
	ChannelID  string `json:"channel_id,omitempty"`
	MaxVideos  int    `json:"max_videos,omitempty"`

	// Comment extraction is not implemented; both fields are accepted and
	// validated but currently change nothing in the result.
	IncludeComments     bool `json:"include_comments,omitempty"`
	MaxCommentsPerVideo int  `json:"max_comments_per_video,omitempty"`

	DateFrom string `json:"date_from,omitempty"` // YYYY-MM-DD, inclusive lower bound
	SortBy   string `json:"sort_by,omitempty"`   // newest | popular | oldest
}

// --- Entities ---

// ChannelInfo describes one channel. Metric fields hold approximated
// values as published on the page and default to zero when missing.
type ChannelInfo struct {
	ChannelID    string   `json:"channel_id"`
	Name         string   `json:"channel_name"`
	Handle       string   `json:"channel_handle,omitempty"`
	Description  string   `json:"description"`
	Subscribers  int64    `json:"subscribers"`
	TotalViews   int64    `json:"total_views"`
	VideoCount   int64    `json:"video_count"`
	JoinedDate   string   `json:"joined_date,omitempty"`
	Country      string   `json:"country,omitempty"`
	CustomURL    string   `json:"custom_url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	BannerURL    string   `json:"banner_url,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Video is one extracted video. PublishedAt keeps the page's display
// text; PublishedDate is the resolved absolute time and stays zero when
// the text could not be resolved.
type Video struct {
	VideoID       string    `json:"video_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	PublishedAt   string    `json:"published_at"`
	PublishedDate time.Time `json:"published_date,omitzero"`
	Duration      string    `json:"duration"`
	DurationSecs  int       `json:"duration_seconds"`
	Views         int64     `json:"views"`
	Likes         int64     `json:"likes"`
	CommentsCount int64     `json:"comments_count"`
	ThumbnailURL  string    `json:"thumbnail_url,omitempty"`
	URL           string    `json:"url"`
	Tags          []string  `json:"tags,omitempty"`
	Category      string    `json:"category,omitempty"`
	IsLive        bool      `json:"is_live"`
	IsShort       bool      `json:"is_short"`
}

// --- Result ---

// AnalysisResult is the complete output of one run. It is built once,
// cached verbatim, and never mutated after return; the summary scalars
// cover exactly the videos in the final, sorted slice.
type AnalysisResult struct {
	Channel             ChannelInfo           `json:"channel"`
	Videos              []Video               `json:"videos"`
	TotalVideosAnalyzed int                   `json:"total_videos_analyzed"`
	AverageViews        float64               `json:"average_views"`
	AverageLikes        float64               `json:"average_likes"`
	TotalEngagement     int64                 `json:"total_engagement"`
	Warnings            []engine.ParseWarning `json:"warnings,omitempty"`

	// CacheHit marks a result served from the cache. Not part of the
	// output document.
	CacheHit bool `json:"-"`
}
