package youtube

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/anatolykoptev/go_tube/internal/engine"
)

const baseURL = "https://www.youtube.com"

var (
	channelIDRe  = regexp.MustCompile(`"channelId":"(UC[\w-]{22})"`)
	externalIDRe = regexp.MustCompile(`"externalId":"(UC[\w-]{22})"`)
	strictIDRe   = regexp.MustCompile(`^UC[\w-]{22}$`)
)

// IsChannelID reports whether s is a canonical 24-char channel id.
func IsChannelID(s string) bool {
	return strictIDRe.MatchString(s)
}

// NormalizeChannelURL validates raw and rewrites shorthand forms (a bare
// id, "@handle", host-less paths) into a canonical https URL.
func NormalizeChannelURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &engine.InputError{Field: "channel_url", Reason: "empty"}
	}
	if IsChannelID(s) {
		return baseURL + "/channel/" + s, nil
	}
	if strings.HasPrefix(s, "@") {
		return baseURL + "/" + s, nil
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return "", &engine.InputError{Field: "channel_url", Reason: fmt.Sprintf("unparseable url %q", raw)}
	}
	host := strings.ToLower(u.Hostname())
	if host != "youtube.com" && !strings.HasSuffix(host, ".youtube.com") {
		return "", &engine.InputError{Field: "channel_url", Reason: fmt.Sprintf("host %q is not youtube", host)}
	}
	u.Scheme = "https"
	u.Host = "www.youtube.com"
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimSuffix(u.String(), "/"), nil
}

// ChannelIDFromURL extracts the id from /channel/<id> URLs without a
// network round trip. Empty when the URL uses a vanity form.
func ChannelIDFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "channel" && IsChannelID(parts[1]) {
		return parts[1]
	}
	return ""
}

// ExtractChannelID finds the canonical channel id inside a fetched
// vanity page. The ytInitialData markers are tried first; pages served
// without them (consent walls, degraded renders) fall back to the meta
// tags. Empty when nothing matches.
func ExtractChannelID(page []byte) string {
	if m := channelIDRe.FindSubmatch(page); len(m) >= 2 {
		return string(m[1])
	}
	if m := externalIDRe.FindSubmatch(page); len(m) >= 2 {
		return string(m[1])
	}
	return channelIDFromMeta(page)
}

// channelIDFromMeta walks the page head for a canonical link, og:url or
// identifier meta tag carrying the channel id.
func channelIDFromMeta(page []byte) string {
	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	var id string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if id != "" {
			return
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "link":
				if getAttr(n, "rel") == "canonical" {
					id = ChannelIDFromURL(getAttr(n, "href"))
				}
			case "meta":
				if getAttr(n, "itemprop") == "identifier" && IsChannelID(getAttr(n, "content")) {
					id = getAttr(n, "content")
				} else if getAttr(n, "property") == "og:url" {
					id = ChannelIDFromURL(getAttr(n, "content"))
				}
			}
			if id != "" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return id
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func channelURL(id string) string { return baseURL + "/channel/" + id }
func aboutURL(id string) string   { return channelURL(id) + "/about" }

// --- Renderer fragments ---

// runsText covers the two shapes YouTube uses for display text.
type runsText struct {
	SimpleText string `json:"simpleText"`
	Runs       []struct {
		Text string `json:"text"`
	} `json:"runs"`
}

func (r runsText) text() string { return r.joined("") }

// joined concatenates run fragments with sep; simpleText wins when set.
func (r runsText) joined(sep string) string {
	if r.SimpleText != "" {
		return r.SimpleText
	}
	parts := make([]string, 0, len(r.Runs))
	for _, run := range r.Runs {
		parts = append(parts, run.Text)
	}
	return strings.Join(parts, sep)
}

type thumbnailList struct {
	Thumbnails []struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"thumbnails"`
}

// last returns the largest variant; YouTube orders thumbnails
// smallest-first.
func (t thumbnailList) last() string {
	if len(t.Thumbnails) == 0 {
		return ""
	}
	return t.Thumbnails[len(t.Thumbnails)-1].URL
}

// vertical reports a portrait aspect ratio, the Shorts tile shape.
func (t thumbnailList) vertical() bool {
	if len(t.Thumbnails) == 0 {
		return false
	}
	th := t.Thumbnails[len(t.Thumbnails)-1]
	return th.Width > 0 && th.Height > th.Width
}

type c4Header struct {
	SubscriberCountText runsText      `json:"subscriberCountText"`
	VideosCountText     runsText      `json:"videosCountText"`
	Banner              thumbnailList `json:"banner"`
}

type channelMetadata struct {
	Title            string        `json:"title"`
	Description      string        `json:"description"`
	Keywords         string        `json:"keywords"`
	ExternalID       string        `json:"externalId"`
	VanityChannelURL string        `json:"vanityChannelUrl"`
	Country          string        `json:"country"`
	Avatar           thumbnailList `json:"avatar"`
}

// aboutViewModel is the modern about-tab metadata block.
type aboutViewModel struct {
	JoinedDateText struct {
		Content string `json:"content"`
	} `json:"joinedDateText"`
	Country             string `json:"country"`
	SubscriberCountText string `json:"subscriberCountText"`
	VideoCountText      string `json:"videoCountText"`
	ViewCountText       string `json:"viewCountText"`
}

// contentMetadataViewModel is the modern header's metadata row block.
type contentMetadataViewModel struct {
	MetadataRows []struct {
		MetadataParts []struct {
			Text struct {
				Content string `json:"content"`
			} `json:"text"`
		} `json:"metadataParts"`
	} `json:"metadataRows"`
}

// --- Availability ---

// channelUnavailable inspects page alerts and maps error alerts to the
// not-found / private taxonomy. Nil when the channel renders normally.
func channelUnavailable(data []byte, identity string) error {
	for _, key := range []string{"alertRenderer", "alertWithButtonRenderer"} {
		for _, raw := range collectRenderers(data, key) {
			var alert struct {
				Type string   `json:"type"`
				Text runsText `json:"text"`
			}
			if err := json.Unmarshal(raw, &alert); err != nil || alert.Type != "ERROR" {
				continue
			}
			if strings.Contains(strings.ToLower(alert.Text.text()), "private") {
				return &engine.PrivateChannelError{Identity: identity}
			}
			return &engine.ChannelNotFoundError{Identity: identity}
		}
	}
	return nil
}

// --- Channel info ---

// parseCountField parses a display count, recording a warning when text
// was present but unparseable. Missing text and "No views" / "No
// videos" phrasing are simply the zero default.
func parseCountField(field, raw string, warns *[]engine.ParseWarning) int64 {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" || strings.HasPrefix(trimmed, "no ") {
		return 0
	}
	n, ok := ParseCount(raw)
	if !ok {
		*warns = append(*warns, engine.ParseWarning{Field: field, Raw: raw})
		return 0
	}
	return n
}

// parseChannelInfo assembles ChannelInfo from a channel page's
// ytInitialData. Every field degrades to its zero value when its
// renderer is missing; only present-but-unparseable text warns.
func parseChannelInfo(channelID string, data []byte) (ChannelInfo, []engine.ParseWarning) {
	info := ChannelInfo{ChannelID: channelID}
	var warns []engine.ParseWarning

	var meta channelMetadata
	if raw := findRenderer(data, "channelMetadataRenderer"); raw != nil {
		if err := json.Unmarshal(raw, &meta); err != nil {
			warns = append(warns, engine.ParseWarning{Field: "channel_metadata", Raw: engine.Truncate(string(raw), 120)})
		}
	}
	info.Name = meta.Title
	info.Description = meta.Description
	info.Country = meta.Country
	info.CustomURL = meta.VanityChannelURL
	info.ThumbnailURL = meta.Avatar.last()
	if meta.Keywords != "" {
		info.Keywords = strings.Fields(meta.Keywords)
	}
	if seg := lastPathSegment(meta.VanityChannelURL); strings.HasPrefix(seg, "@") {
		info.Handle = seg
	}
	if info.ChannelID == "" {
		info.ChannelID = meta.ExternalID
	}

	var header c4Header
	if raw := findRenderer(data, "c4TabbedHeaderRenderer"); raw != nil && json.Unmarshal(raw, &header) == nil {
		info.Subscribers = parseCountField("subscribers", header.SubscriberCountText.text(), &warns)
		info.VideoCount = parseCountField("video_count", header.VideosCountText.text(), &warns)
		info.BannerURL = header.Banner.last()
	}

	var about aboutViewModel
	if raw := findRenderer(data, "aboutChannelViewModel"); raw != nil && json.Unmarshal(raw, &about) == nil {
		info.JoinedDate = strings.TrimSpace(strings.TrimPrefix(about.JoinedDateText.Content, "Joined"))
		if info.Country == "" {
			info.Country = about.Country
		}
		if info.Subscribers == 0 {
			info.Subscribers = parseCountField("subscribers", about.SubscriberCountText, &warns)
		}
		if info.VideoCount == 0 {
			info.VideoCount = parseCountField("video_count", about.VideoCountText, &warns)
		}
		info.TotalViews = parseCountField("total_views", about.ViewCountText, &warns)
	}

	// Newer pages replace the c4 header with view-model metadata rows.
	if info.Subscribers == 0 || info.VideoCount == 0 {
		var cm contentMetadataViewModel
		if raw := findRenderer(data, "contentMetadataViewModel"); raw != nil && json.Unmarshal(raw, &cm) == nil {
			for _, row := range cm.MetadataRows {
				for _, part := range row.MetadataParts {
					text := part.Text.Content
					lower := strings.ToLower(text)
					switch {
					case info.Subscribers == 0 && strings.Contains(lower, "subscriber"):
						info.Subscribers = parseCountField("subscribers", text, &warns)
					case info.VideoCount == 0 && strings.Contains(lower, "video"):
						info.VideoCount = parseCountField("video_count", text, &warns)
					}
				}
			}
		}
	}

	return info, warns
}

func lastPathSegment(s string) string {
	s = strings.TrimSuffix(s, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
