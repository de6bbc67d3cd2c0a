package youtube

import (
	"math"
	"sort"
)

// SortVideos orders videos in place. Sorting is stable, so page order
// breaks every tie. Videos with an unresolved date sink to the end of
// the date sorts instead of masquerading as epoch uploads.
func SortVideos(videos []Video, sortBy string) {
	switch sortBy {
	case SortPopular:
		sort.SliceStable(videos, func(i, j int) bool {
			if videos[i].Views != videos[j].Views {
				return videos[i].Views > videos[j].Views
			}
			return videos[i].Likes > videos[j].Likes
		})
	case SortOldest:
		sort.SliceStable(videos, func(i, j int) bool {
			di, dj := videos[i].PublishedDate, videos[j].PublishedDate
			if di.IsZero() || dj.IsZero() {
				return !di.IsZero() && dj.IsZero()
			}
			return di.Before(dj)
		})
	default: // newest
		sort.SliceStable(videos, func(i, j int) bool {
			di, dj := videos[i].PublishedDate, videos[j].PublishedDate
			if di.IsZero() || dj.IsZero() {
				return !di.IsZero() && dj.IsZero()
			}
			return di.After(dj)
		})
	}
}

// Aggregate fills the summary scalars from the final video slice. An
// empty slice yields zeros rather than NaN averages.
func Aggregate(result *AnalysisResult) {
	result.TotalVideosAnalyzed = len(result.Videos)
	result.AverageViews = 0
	result.AverageLikes = 0
	result.TotalEngagement = 0
	if len(result.Videos) == 0 {
		return
	}

	var views, likes, comments int64
	for _, v := range result.Videos {
		views += v.Views
		likes += v.Likes
		comments += v.CommentsCount
	}
	n := float64(len(result.Videos))
	result.AverageViews = round2(float64(views) / n)
	result.AverageLikes = round2(float64(likes) / n)
	result.TotalEngagement = likes + comments
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
