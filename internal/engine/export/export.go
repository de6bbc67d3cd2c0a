package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/anatolykoptev/go_tube/internal/engine/youtube"
)

// Writers for analysis results. Filenames carry the channel id and a
// timestamp so repeated runs never clobber earlier exports.

const timestampLayout = "20060102_150405"

func exportPath(dir, channelID, ext string, now time.Time) string {
	name := fmt.Sprintf("analysis_%s_%s.%s", sanitize(channelID), now.Format(timestampLayout), ext)
	return filepath.Join(dir, name)
}

// sanitize keeps filename-safe characters from a channel identity.
func sanitize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	if len(out) == 0 {
		return "channel"
	}
	return string(out)
}

// WriteJSON writes the full result as indented JSON and returns the
// file path.
func WriteJSON(dir string, result *youtube.AnalysisResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	path := exportPath(dir, result.Channel.ChannelID, "json", time.Now())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// csvHeader shapes one row per video with the channel columns repeated.
var csvHeader = []string{
	"channel_id", "channel_name", "video_id", "title", "published_at",
	"published_date", "duration", "duration_seconds", "views", "likes",
	"comments_count", "is_live", "is_short", "url",
}

// WriteCSV writes one row per video and returns the file path.
func WriteCSV(dir string, result *youtube.AnalysisResult) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := exportPath(dir, result.Channel.ChannelID, "csv", time.Now())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, v := range result.Videos {
		published := ""
		if !v.PublishedDate.IsZero() {
			published = v.PublishedDate.Format(time.RFC3339)
		}
		row := []string{
			result.Channel.ChannelID,
			result.Channel.Name,
			v.VideoID,
			v.Title,
			v.PublishedAt,
			published,
			v.Duration,
			strconv.Itoa(v.DurationSecs),
			strconv.FormatInt(v.Views, 10),
			strconv.FormatInt(v.Likes, 10),
			strconv.FormatInt(v.CommentsCount, 10),
			strconv.FormatBool(v.IsLive),
			strconv.FormatBool(v.IsShort),
			v.URL,
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return path, nil
}
