package youtube

import (
	"testing"
	"time"
)

func sortedIDs(videos []Video, sortBy string) []string {
	SortVideos(videos, sortBy)
	ids := make([]string, len(videos))
	for i, v := range videos {
		ids[i] = v.VideoID
	}
	return ids
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestSortVideosNewest(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := []Video{
		{VideoID: "mid", PublishedDate: base.AddDate(0, 1, 0)},
		{VideoID: "unresolved"},
		{VideoID: "new", PublishedDate: base.AddDate(0, 2, 0)},
		{VideoID: "old", PublishedDate: base},
	}
	assertOrder(t, sortedIDs(videos, SortNewest), []string{"new", "mid", "old", "unresolved"})
}

func TestSortVideosOldest(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := []Video{
		{VideoID: "mid", PublishedDate: base.AddDate(0, 1, 0)},
		{VideoID: "unresolved"},
		{VideoID: "new", PublishedDate: base.AddDate(0, 2, 0)},
		{VideoID: "old", PublishedDate: base},
	}
	assertOrder(t, sortedIDs(videos, SortOldest), []string{"old", "mid", "new", "unresolved"})
}

func TestSortVideosStableTies(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	videos := []Video{
		{VideoID: "first", PublishedDate: base},
		{VideoID: "second", PublishedDate: base},
		{VideoID: "third", PublishedDate: base},
	}
	assertOrder(t, sortedIDs(videos, SortNewest), []string{"first", "second", "third"})
}

func TestSortVideosPopular(t *testing.T) {
	videos := []Video{
		{VideoID: "tie-a", Views: 100, Likes: 2},
		{VideoID: "top", Views: 500},
		{VideoID: "tie-b", Views: 100, Likes: 9},
		{VideoID: "tie-c", Views: 100, Likes: 2},
	}
	assertOrder(t, sortedIDs(videos, SortPopular), []string{"top", "tie-b", "tie-a", "tie-c"})
}

func TestSortAndAggregatePopular(t *testing.T) {
	result := &AnalysisResult{Videos: []Video{
		{VideoID: "v1", Views: 100, Likes: 10, CommentsCount: 5},
		{VideoID: "v2", Views: 200, Likes: 1, CommentsCount: 1},
	}}
	SortVideos(result.Videos, SortPopular)
	Aggregate(result)

	if result.Videos[0].VideoID != "v2" || result.Videos[1].VideoID != "v1" {
		t.Errorf("popular order = [%s %s], want [v2 v1]", result.Videos[0].VideoID, result.Videos[1].VideoID)
	}
	if result.TotalVideosAnalyzed != 2 {
		t.Errorf("TotalVideosAnalyzed = %d, want 2", result.TotalVideosAnalyzed)
	}
	if result.AverageViews != 150.0 {
		t.Errorf("AverageViews = %v, want 150.0", result.AverageViews)
	}
	if result.AverageLikes != 5.5 {
		t.Errorf("AverageLikes = %v, want 5.5", result.AverageLikes)
	}
	if result.TotalEngagement != 17 {
		t.Errorf("TotalEngagement = %d, want 17", result.TotalEngagement)
	}
}

func TestAggregateRounds(t *testing.T) {
	result := &AnalysisResult{Videos: []Video{
		{Views: 100}, {Views: 100}, {Views: 101},
	}}
	Aggregate(result)
	if result.AverageViews != 100.33 {
		t.Errorf("AverageViews = %v, want 100.33", result.AverageViews)
	}
}

func TestAggregateEmpty(t *testing.T) {
	result := &AnalysisResult{
		AverageViews:    99,
		TotalEngagement: 99,
	}
	Aggregate(result)
	if result.TotalVideosAnalyzed != 0 || result.AverageViews != 0 || result.AverageLikes != 0 || result.TotalEngagement != 0 {
		t.Errorf("empty aggregate = %+v, want zeros", result)
	}
}
