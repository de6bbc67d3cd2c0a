package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anatolykoptev/go_tube/internal/engine"
)

// stubFetcher serves canned pages keyed by URL and canned browse
// responses keyed by continuation token.
type stubFetcher struct {
	mu        sync.Mutex
	pages     map[string][]byte
	browse    map[string][]byte
	getCalls  int
	postCalls int
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		pages:  make(map[string][]byte),
		browse: make(map[string][]byte),
	}
}

func (s *stubFetcher) GetPage(_ context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	page, ok := s.pages[url]
	if !ok {
		return nil, fmt.Errorf("no stub page for %s", url)
	}
	return page, nil
}

func (s *stubFetcher) PostJSON(_ context.Context, _ string, _ map[string]string, payload any) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.postCalls++
	token, _ := payload.(map[string]any)["continuation"].(string)
	resp, ok := s.browse[token]
	if !ok {
		return nil, fmt.Errorf("no stub continuation %q", token)
	}
	return resp, nil
}

func (s *stubFetcher) calls() (gets, posts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls, s.postCalls
}

var testClock = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestAnalyzer(t *testing.T, stub *stubFetcher) *Analyzer {
	t.Helper()
	a := New(engine.Config{
		CacheEnabled: true,
		RateLimit:    100,
		RateWindow:   time.Minute,
	}, WithFetcher(stub), WithClock(func() time.Time { return testClock }))
	t.Cleanup(a.Close)
	return a
}

// --- Page builders ---

func videoTile(id string, views int, published string) string {
	return fmt.Sprintf(`{"richItemRenderer": {"content": {"videoRenderer": {
		"videoId": %q,
		"title": {"runs": [{"text": "Title %s"}]},
		"publishedTimeText": {"simpleText": %q},
		"lengthText": {"simpleText": "10:00"},
		"viewCountText": {"simpleText": "%d views"}
	}}}}`, id, id, published, views)
}

func continuationItem(token string) string {
	return fmt.Sprintf(`{"continuationItemRenderer": {"continuationEndpoint": {"continuationCommand": {"token": %q}}}}`, token)
}

func gridDoc(items ...string) string {
	return `{"contents": {"twoColumnBrowseResultsRenderer": {"tabs": [{"tabRenderer": {"selected": true,
		"content": {"richGridRenderer": {"contents": [` + strings.Join(items, ",") + `]}}}}]}}}`
}

func htmlPage(doc string) []byte {
	return []byte(`<html><script>var ytInitialData = ` + doc + `;</script></html>`)
}

func aboutPage(channelID string) []byte {
	return htmlPage(`{
		"metadata": {"channelMetadataRenderer": {
			"title": "Test Channel",
			"description": "A channel for tests.",
			"externalId": "` + channelID + `",
			"vanityChannelUrl": "http://www.youtube.com/@TestChannel"
		}},
		"header": {"c4TabbedHeaderRenderer": {
			"subscriberCountText": {"simpleText": "1K subscribers"},
			"videosCountText": {"runs": [{"text": "6"}, {"text": " videos"}]}
		}}
	}`)
}

// --- Tests ---

func TestRunEndToEnd(t *testing.T) {
	const id = "UCabc"
	stub := newStubFetcher()
	stub.pages[aboutURL(id)] = aboutPage(id)
	stub.pages[videosURL(id, SortPopular)] = htmlPage(gridDoc(
		videoTile("v1", 100, "1 day ago"),
		videoTile("v2", 200, "2 days ago"),
	))
	a := newTestAnalyzer(t, stub)

	result, err := a.Run(context.Background(), Input{ChannelID: id, MaxVideos: 2, SortBy: SortPopular})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if result.Channel.ChannelID != id {
		t.Errorf("Channel.ChannelID = %q, want %q", result.Channel.ChannelID, id)
	}
	if result.Channel.Name != "Test Channel" {
		t.Errorf("Channel.Name = %q", result.Channel.Name)
	}
	if result.Channel.Subscribers != 1000 {
		t.Errorf("Channel.Subscribers = %d, want 1000", result.Channel.Subscribers)
	}
	if len(result.Videos) != 2 {
		t.Fatalf("len(Videos) = %d, want 2", len(result.Videos))
	}
	if result.Videos[0].VideoID != "v2" || result.Videos[1].VideoID != "v1" {
		t.Errorf("popular order = [%s %s], want [v2 v1]", result.Videos[0].VideoID, result.Videos[1].VideoID)
	}
	if result.TotalVideosAnalyzed != 2 || result.AverageViews != 150.0 {
		t.Errorf("aggregate = %d/%v, want 2/150.0", result.TotalVideosAnalyzed, result.AverageViews)
	}
	if result.AverageLikes != 0 || result.TotalEngagement != 0 {
		t.Errorf("likes/engagement = %v/%d, want zeros from list tiles", result.AverageLikes, result.TotalEngagement)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", result.Warnings)
	}
	if result.CacheHit {
		t.Error("CacheHit = true on first run")
	}
	if gets, posts := stub.calls(); gets != 2 || posts != 0 {
		t.Errorf("fetches = %d get / %d post, want 2/0", gets, posts)
	}
}

func TestRunWarmCache(t *testing.T) {
	const id = "UCabc"
	stub := newStubFetcher()
	stub.pages[aboutURL(id)] = aboutPage(id)
	stub.pages[videosURL(id, SortNewest)] = htmlPage(gridDoc(videoTile("v1", 100, "1 day ago")))
	a := newTestAnalyzer(t, stub)
	in := Input{ChannelID: id}

	first, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	second, err := a.Run(context.Background(), in)
	if err != nil {
		t.Fatalf("second Run() error: %v", err)
	}

	if !second.CacheHit {
		t.Error("second run: CacheHit = false, want true")
	}
	if gets, _ := stub.calls(); gets != 2 {
		t.Errorf("warm run refetched: %d gets, want 2", gets)
	}
	if len(second.Videos) != len(first.Videos) || second.AverageViews != first.AverageViews {
		t.Errorf("cached result differs: %+v vs %+v", second, first)
	}

	stats := a.Stats()
	if stats["runs"] != 2 {
		t.Errorf("stats runs = %d, want 2", stats["runs"])
	}
	if stats["cache_hits"] != 1 {
		t.Errorf("stats cache_hits = %d, want 1", stats["cache_hits"])
	}
}

func TestRunInputValidation(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"neither identity", Input{}},
		{"both identities", Input{ChannelURL: "@x", ChannelID: "UCabc"}},
		{"max_videos too large", Input{ChannelID: "UCabc", MaxVideos: 501}},
		{"max_videos negative", Input{ChannelID: "UCabc", MaxVideos: -1}},
		{"unknown sort", Input{ChannelID: "UCabc", SortBy: "views"}},
		{"bad date_from", Input{ChannelID: "UCabc", DateFrom: "15-03-2025"}},
		{"max_comments too large", Input{ChannelID: "UCabc", MaxCommentsPerVideo: 201}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := newStubFetcher()
			a := newTestAnalyzer(t, stub)
			_, err := a.Run(context.Background(), tt.in)
			var inputErr *engine.InputError
			if !errors.As(err, &inputErr) {
				t.Fatalf("Run() error = %v, want InputError", err)
			}
			if gets, posts := stub.calls(); gets != 0 || posts != 0 {
				t.Errorf("invalid input reached the network: %d/%d calls", gets, posts)
			}
		})
	}
}

func TestRunResolvesVanityURL(t *testing.T) {
	stub := newStubFetcher()
	stub.pages["https://www.youtube.com/@TestChannel"] = []byte(`<script>{"channelId":"` + testChannelID + `"}</script>`)
	stub.pages[aboutURL(testChannelID)] = aboutPage(testChannelID)
	stub.pages[videosURL(testChannelID, SortNewest)] = htmlPage(gridDoc(videoTile("v1", 10, "1 day ago")))
	a := newTestAnalyzer(t, stub)

	result, err := a.Run(context.Background(), Input{ChannelURL: "@TestChannel"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if result.Channel.ChannelID != testChannelID {
		t.Errorf("ChannelID = %q, want %q", result.Channel.ChannelID, testChannelID)
	}
	if gets, _ := stub.calls(); gets != 3 {
		t.Errorf("gets = %d, want 3 (vanity + about + videos)", gets)
	}
}

func TestRunChannelURLSkipsResolutionFetch(t *testing.T) {
	stub := newStubFetcher()
	stub.pages[aboutURL(testChannelID)] = aboutPage(testChannelID)
	stub.pages[videosURL(testChannelID, SortNewest)] = htmlPage(gridDoc(videoTile("v1", 10, "1 day ago")))
	a := newTestAnalyzer(t, stub)

	_, err := a.Run(context.Background(), Input{ChannelURL: "https://www.youtube.com/channel/" + testChannelID})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if gets, _ := stub.calls(); gets != 2 {
		t.Errorf("gets = %d, want 2 (/channel/ URL resolves locally)", gets)
	}
}

func TestRunChannelNotFound(t *testing.T) {
	const id = "UCgone"
	stub := newStubFetcher()
	stub.pages[aboutURL(id)] = htmlPage(`{"alerts":[{"alertRenderer":{"type":"ERROR","text":{"simpleText":"This channel does not exist."}}}]}`)
	a := newTestAnalyzer(t, stub)

	_, err := a.Run(context.Background(), Input{ChannelID: id})
	var nf *engine.ChannelNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("Run() error = %v, want ChannelNotFoundError", err)
	}
	if nf.Identity != id {
		t.Errorf("Identity = %q, want %q", nf.Identity, id)
	}

	stats := a.Stats()
	if stats["run_errors"] != 1 {
		t.Errorf("stats run_errors = %d, want 1", stats["run_errors"])
	}
}

func TestRunContinuationPaging(t *testing.T) {
	const id = "UCabc"
	stub := newStubFetcher()
	stub.pages[aboutURL(id)] = aboutPage(id)
	stub.pages[videosURL(id, SortNewest)] = htmlPage(gridDoc(
		videoTile("a", 10, "1 day ago"),
		videoTile("b", 10, "1 day ago"),
		continuationItem("t1"),
	))
	stub.browse["t1"] = []byte(gridDoc(
		videoTile("b", 10, "1 day ago"), // server repeats the page edge
		videoTile("c", 10, "1 day ago"),
		videoTile("d", 10, "1 day ago"),
		continuationItem("t2"),
	))
	stub.browse["t2"] = []byte(gridDoc(
		videoTile("e", 10, "1 day ago"),
		videoTile("f", 10, "1 day ago"),
	))
	a := newTestAnalyzer(t, stub)

	result, err := a.Run(context.Background(), Input{ChannelID: id, MaxVideos: 5})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Videos) != 5 {
		t.Fatalf("len(Videos) = %d, want 5", len(result.Videos))
	}
	want := []string{"a", "b", "c", "d", "e"}
	for i, w := range want {
		if result.Videos[i].VideoID != w {
			t.Errorf("Videos[%d] = %q, want %q", i, result.Videos[i].VideoID, w)
		}
	}
	if _, posts := stub.calls(); posts != 2 {
		t.Errorf("posts = %d, want 2 continuation fetches", posts)
	}
}

func TestRunDateFromFilter(t *testing.T) {
	const id = "UCabc"
	stub := newStubFetcher()
	stub.pages[aboutURL(id)] = aboutPage(id)
	stub.pages[videosURL(id, SortNewest)] = htmlPage(gridDoc(
		videoTile("recent", 10, "1 day ago"),
		videoTile("ancient", 999, "3 years ago"),
	))
	a := newTestAnalyzer(t, stub)

	result, err := a.Run(context.Background(), Input{ChannelID: id, DateFrom: "2025-01-01"})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(result.Videos) != 1 || result.Videos[0].VideoID != "recent" {
		t.Fatalf("Videos = %+v, want only the recent one", result.Videos)
	}
	if result.AverageViews != 10 {
		t.Errorf("AverageViews = %v, want 10 (aggregates after filtering)", result.AverageViews)
	}
}
