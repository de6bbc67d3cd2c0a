package youtube

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/anatolykoptev/go_tube/internal/engine"
)

// ShortMaxSeconds caps how long a vertical video can run and still be
// classified as a Short.
const ShortMaxSeconds = 180

// videosURL builds the channel videos-tab URL. The sort parameter is a
// server hint only; listings are re-sorted client-side either way.
func videosURL(channelID, sortBy string) string {
	code := "dd"
	switch sortBy {
	case SortPopular:
		code = "p"
	case SortOldest:
		code = "da"
	}
	return channelURL(channelID) + "/videos?view=0&sort=" + code + "&flow=grid"
}

// --- Video tiles ---

type videoRenderer struct {
	VideoID            string        `json:"videoId"`
	Title              runsText      `json:"title"`
	DescriptionSnippet runsText      `json:"descriptionSnippet"`
	PublishedTimeText  runsText      `json:"publishedTimeText"`
	LengthText         runsText      `json:"lengthText"`
	ViewCountText      runsText      `json:"viewCountText"`
	Thumbnail          thumbnailList `json:"thumbnail"`
	Badges             []struct {
		MetadataBadgeRenderer struct {
			Style string `json:"style"`
			Label string `json:"label"`
		} `json:"metadataBadgeRenderer"`
	} `json:"badges"`
	ThumbnailOverlays []struct {
		TimeStatus *struct {
			Style string   `json:"style"`
			Text  runsText `json:"text"`
		} `json:"thumbnailOverlayTimeStatusRenderer"`
	} `json:"thumbnailOverlays"`
	NavigationEndpoint struct {
		CommandMetadata struct {
			WebCommandMetadata struct {
				URL string `json:"url"`
			} `json:"webCommandMetadata"`
		} `json:"commandMetadata"`
	} `json:"navigationEndpoint"`
}

func (vr *videoRenderer) navURL() string {
	return vr.NavigationEndpoint.CommandMetadata.WebCommandMetadata.URL
}

// durationText prefers lengthText and falls back to the tile's time
// status overlay, which some layouts use instead.
func (vr *videoRenderer) durationText() string {
	if s := vr.LengthText.text(); s != "" {
		return s
	}
	for _, o := range vr.ThumbnailOverlays {
		if o.TimeStatus != nil && o.TimeStatus.Style == "DEFAULT" {
			return o.TimeStatus.Text.text()
		}
	}
	return ""
}

func (vr *videoRenderer) live() bool {
	for _, b := range vr.Badges {
		if strings.Contains(strings.ToUpper(b.MetadataBadgeRenderer.Label), "LIVE") ||
			strings.Contains(b.MetadataBadgeRenderer.Style, "LIVE") {
			return true
		}
	}
	for _, o := range vr.ThumbnailOverlays {
		if o.TimeStatus != nil && o.TimeStatus.Style == "LIVE" {
			return true
		}
	}
	return false
}

// short classifies Shorts. A /shorts/ link or SHORTS overlay is
// decisive on its own; a portrait thumbnail only counts for clips
// within the Shorts length cap.
func (vr *videoRenderer) short(durationSecs int) bool {
	if strings.Contains(vr.navURL(), "/shorts/") {
		return true
	}
	for _, o := range vr.ThumbnailOverlays {
		if o.TimeStatus != nil && o.TimeStatus.Style == "SHORTS" {
			return true
		}
	}
	return durationSecs > 0 && durationSecs <= ShortMaxSeconds && vr.Thumbnail.vertical()
}

// parseVideo converts one tile into a Video. Missing fields degrade to
// defaults; present-but-unparseable text is recorded as a warning.
func parseVideo(raw []byte, now time.Time) (Video, []engine.ParseWarning, bool) {
	var vr videoRenderer
	if err := json.Unmarshal(raw, &vr); err != nil || vr.VideoID == "" {
		return Video{}, []engine.ParseWarning{{Field: "video", Raw: engine.Truncate(string(raw), 120)}}, false
	}

	var warns []engine.ParseWarning
	durText := vr.durationText()
	v := Video{
		VideoID:      vr.VideoID,
		Title:        vr.Title.text(),
		Description:  vr.DescriptionSnippet.joined(" "),
		PublishedAt:  vr.PublishedTimeText.text(),
		Duration:     durText,
		DurationSecs: ParseDuration(durText),
		ThumbnailURL: vr.Thumbnail.last(),
		URL:          baseURL + "/watch?v=" + vr.VideoID,
		// Likes and comment counts are not exposed on list tiles.
	}
	if v.Duration == "" {
		v.Duration = "0:00"
	}
	v.Views = parseCountField("views", vr.ViewCountText.text(), &warns)
	if v.PublishedAt != "" {
		if ts, ok := ParseDate(v.PublishedAt, now); ok {
			v.PublishedDate = ts
		} else {
			warns = append(warns, engine.ParseWarning{Field: "published_date", Raw: v.PublishedAt})
		}
	}
	v.IsLive = vr.live()
	v.IsShort = vr.short(v.DurationSecs)
	return v, warns, true
}

// collectVideos parses every video tile in a videos-tab payload or
// browse response, preserving page order. Older grid markup keys tiles
// as gridVideoRenderer; that shape is only consulted when no modern
// tiles are present.
func collectVideos(data []byte, now time.Time) ([]Video, []engine.ParseWarning) {
	raws := collectRenderers(data, "videoRenderer")
	if len(raws) == 0 {
		raws = collectRenderers(data, "gridVideoRenderer")
	}
	videos := make([]Video, 0, len(raws))
	var warns []engine.ParseWarning
	for _, raw := range raws {
		v, w, ok := parseVideo(raw, now)
		warns = append(warns, w...)
		if ok {
			videos = append(videos, v)
		}
	}
	return videos, warns
}

// filterByDate keeps videos published on or after from, inclusive.
// Videos whose date never resolved are kept rather than silently
// dropped behind a parse gap.
func filterByDate(videos []Video, from time.Time) []Video {
	if from.IsZero() {
		return videos
	}
	kept := make([]Video, 0, len(videos))
	for _, v := range videos {
		if v.PublishedDate.IsZero() || !v.PublishedDate.Before(from) {
			kept = append(kept, v)
		}
	}
	return kept
}
