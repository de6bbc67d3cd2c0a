// go_tube — YouTube channel analytics CLI.
//
// Resolves a channel identity (@handle, /c/, /channel/ URL or bare UC id),
// scrapes the channel and videos pages, aggregates per-channel statistics
// and optionally exports the result as JSON/CSV. Scraping-based: no
// YouTube Data API key required.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go-kit/env"
	"github.com/dustin/go-humanize"

	"github.com/anatolykoptev/go_tube/internal/engine"
	"github.com/anatolykoptev/go_tube/internal/engine/export"
	"github.com/anatolykoptev/go_tube/internal/engine/history"
	"github.com/anatolykoptev/go_tube/internal/engine/youtube"
)

var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	var (
		flagURL     = flag.String("url", "", "channel URL (@handle, /c/ or /channel/ form)")
		flagID      = flag.String("id", "", "channel id (UC...)")
		flagMax     = flag.Int("max", 0, "max videos to analyze (default 30, cap 500)")
		flagSort    = flag.String("sort", "", "sort order: newest, popular or oldest")
		flagFrom    = flag.String("from", "", "only videos published on or after this date (YYYY-MM-DD)")
		flagExport  = flag.String("export", "", "write result files: json, csv or both")
		flagInput   = flag.String("input", "", "read the analysis request from a JSON file")
		flagJSON    = flag.Bool("json", false, "print the raw result JSON instead of a report")
		flagHistory = flag.Int("history", 0, "print the last N recorded runs and exit")
		flagVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	initLogger()

	if *flagVersion {
		fmt.Println("go_tube " + version)
		return 0
	}

	cfg := loadConfig()

	if *flagHistory > 0 {
		return printHistory(cfg.HistoryDB, *flagHistory)
	}

	in, err := buildInput(*flagInput, *flagURL, *flagID, *flagMax, *flagSort, *flagFrom)
	if err != nil {
		slog.Error("bad invocation", slog.Any("error", err))
		return 2
	}
	switch *flagExport {
	case "", "json", "csv", "both":
	default:
		slog.Error("bad invocation", slog.String("export", *flagExport),
			slog.String("reason", "must be json, csv or both"))
		return 2
	}

	initBrowser(&cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer := youtube.New(cfg)
	defer analyzer.Close()

	var store *history.Store
	if cfg.HistoryDB != "" {
		store, err = history.Open(cfg.HistoryDB)
		if err != nil {
			slog.Warn("run history disabled", slog.Any("error", err))
		} else {
			defer store.Close()
		}
	}

	start := time.Now()
	result, err := analyzer.Run(ctx, in)
	recordRun(store, in, result, err, time.Since(start))
	if err != nil {
		slog.Error("analysis failed", slog.Any("error", err))
		return exitCode(err)
	}

	if *flagJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			slog.Error("encode result", slog.Any("error", err))
			return 1
		}
	} else {
		printReport(result)
	}

	if code := writeExports(*flagExport, cfg.OutputDir, result); code != 0 {
		return code
	}

	slog.Debug("run stats", slog.Any("stats", analyzer.Stats()))
	return 0
}

// initLogger configures the default slog logger from YT_LOG_LEVEL.
func initLogger() {
	level := slog.LevelInfo
	switch strings.ToLower(env.Str("YT_LOG_LEVEL", "info")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func loadConfig() engine.Config {
	return engine.Config{
		RateLimit:            env.Int("YT_RATE_LIMIT", 30),
		RateWindow:           env.Duration("YT_RATE_WINDOW", time.Minute),
		RateMaxWait:          env.Duration("YT_RATE_MAX_WAIT", 0),
		CacheEnabled:         env.Str("YT_CACHE_ENABLED", "true") == "true",
		CacheTTL:             env.Duration("YT_CACHE_TTL", time.Hour),
		CacheMaxEntries:      env.Int("YT_CACHE_MAX_ENTRIES", 1000),
		CacheCleanupInterval: env.Duration("YT_CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		RedisURL:             env.Str("YT_REDIS_URL", ""),
		HTTPTimeout:          env.Duration("YT_HTTP_TIMEOUT", 15*time.Second),
		ProxyEnabled:         env.Str("YT_PROXY_ENABLED", "false") == "true",
		ProxyServers:         env.List("YT_PROXY_SERVERS", ""),
		ProxyUsername:        env.Str("YT_PROXY_USERNAME", ""),
		ProxyPassword:        env.Str("YT_PROXY_PASSWORD", ""),
		OutputDir:            env.Str("YT_OUTPUT_DIR", "output"),
		HistoryDB:            env.Str("YT_HISTORY_DB", ""),
	}
}

// initBrowser attaches the Chrome-fingerprint client, with the proxy
// pool when configured. Failures degrade to the plain HTTP client.
func initBrowser(cfg *engine.Config) {
	var pool *engine.ProxyPool
	if cfg.ProxyEnabled {
		p, err := engine.NewProxyPool(cfg.ProxyServers, cfg.ProxyUsername, cfg.ProxyPassword)
		if err != nil {
			slog.Warn("proxy pool init failed, running without proxy", slog.Any("error", err))
		} else {
			pool = p
			slog.Info("proxy pool initialized", slog.Int("proxies", pool.Len()))
		}
	}
	bc, err := engine.NewBrowserClient(cfg.HTTPTimeout, pool)
	if err != nil {
		slog.Warn("browser client init failed, using plain http", slog.Any("error", err))
		return
	}
	cfg.BrowserClient = bc
	slog.Debug("browser client initialized")
}

// buildInput assembles the request from the optional JSON file, then
// lets explicit flags override individual fields.
func buildInput(path, channelURL, channelID string, maxVideos int, sortBy, dateFrom string) (youtube.Input, error) {
	var in youtube.Input
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return in, fmt.Errorf("read input file: %w", err)
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return in, fmt.Errorf("parse input file %s: %w", path, err)
		}
	}
	if channelURL != "" {
		in.ChannelURL = channelURL
	}
	if channelID != "" {
		in.ChannelID = channelID
	}
	if maxVideos != 0 {
		in.MaxVideos = maxVideos
	}
	if sortBy != "" {
		in.SortBy = sortBy
	}
	if dateFrom != "" {
		in.DateFrom = dateFrom
	}
	return in, nil
}

// recordRun appends the run to the history store when one is open.
// Recording uses a fresh context so interrupted runs still land.
func recordRun(store *history.Store, in youtube.Input, result *youtube.AnalysisResult, runErr error, took time.Duration) {
	if store == nil {
		return
	}
	rec := history.Run{
		ChannelID:  strings.TrimSpace(in.ChannelID),
		SortBy:     in.SortBy,
		DurationMS: took.Milliseconds(),
	}
	if rec.ChannelID == "" {
		rec.ChannelID = strings.TrimSpace(in.ChannelURL)
	}
	if result != nil {
		rec.ChannelID = result.Channel.ChannelID
		rec.ChannelName = result.Channel.Name
		rec.Videos = result.TotalVideosAnalyzed
		rec.CacheHit = result.CacheHit
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	if _, err := store.Record(context.Background(), rec); err != nil {
		slog.Warn("history record failed", slog.Any("error", err))
	}
}

// printHistory lists recent runs and the all-time totals.
func printHistory(dbPath string, limit int) int {
	if dbPath == "" {
		slog.Error("run history disabled", slog.String("reason", "YT_HISTORY_DB is not set"))
		return 2
	}
	store, err := history.Open(dbPath)
	if err != nil {
		slog.Error("open history", slog.Any("error", err))
		return 1
	}
	defer store.Close()

	ctx := context.Background()
	runs, err := store.List(ctx, limit)
	if err != nil {
		slog.Error("list history", slog.Any("error", err))
		return 1
	}
	for _, r := range runs {
		name := r.ChannelName
		if name == "" {
			name = r.ChannelID
		}
		line := fmt.Sprintf("#%-4d %-40s %4d videos  %-8s %6dms", r.ID, engine.TruncateAtWord(name, 40), r.Videos, r.SortBy, r.DurationMS)
		if r.CacheHit {
			line += "  cached"
		}
		if r.Error != "" {
			line += "  FAILED: " + engine.TruncateAtWord(r.Error, 60)
		}
		if created, err := time.Parse(time.RFC3339, r.CreatedAt); err == nil {
			line += "  " + humanize.Time(created)
		}
		fmt.Println(line)
	}

	stats, err := store.Aggregate(ctx)
	if err != nil {
		slog.Error("history stats", slog.Any("error", err))
		return 1
	}
	fmt.Printf("\n%d runs, %d channels, %d cache hits, %d failures\n",
		stats.TotalRuns, stats.DistinctChannels, stats.CacheHits, stats.Failures)
	return 0
}

// printReport renders the human-readable summary to stdout.
func printReport(result *youtube.AnalysisResult) {
	ch := result.Channel
	title := ch.Name
	if ch.Handle != "" {
		title += " (" + ch.Handle + ")"
	}
	fmt.Println(title)
	fmt.Printf("  %s subscribers, %s videos, %s total views\n",
		humanize.Comma(ch.Subscribers), humanize.Comma(ch.VideoCount), humanize.Comma(ch.TotalViews))
	if ch.JoinedDate != "" || ch.Country != "" {
		fmt.Printf("  joined %s  %s\n", ch.JoinedDate, ch.Country)
	}

	fmt.Printf("\nVideos analyzed: %d\n", result.TotalVideosAnalyzed)
	for i, v := range result.Videos {
		age := v.PublishedAt
		if !v.PublishedDate.IsZero() {
			age = humanize.Time(v.PublishedDate)
		}
		marker := ""
		switch {
		case v.IsLive:
			marker = " [live]"
		case v.IsShort:
			marker = " [short]"
		}
		fmt.Printf("%3d. %-60s %12s views  %s%s\n",
			i+1, engine.TruncateAtWord(v.Title, 60), humanize.Comma(v.Views), age, marker)
	}

	fmt.Printf("\nAverage views: %.2f  Average likes: %.2f  Engagement: %s\n",
		result.AverageViews, result.AverageLikes, humanize.Comma(result.TotalEngagement))
	if n := len(result.Warnings); n > 0 {
		slog.Warn("extraction degraded on some fields", slog.Int("warnings", n))
	}
	if result.CacheHit {
		fmt.Println("(served from cache)")
	}
}

// writeExports writes the requested result files under dir.
func writeExports(mode, dir string, result *youtube.AnalysisResult) int {
	if mode == "" {
		return 0
	}
	if mode == "json" || mode == "both" {
		path, err := export.WriteJSON(dir, result)
		if err != nil {
			slog.Error("json export failed", slog.Any("error", err))
			return 1
		}
		slog.Info("json written", slog.String("path", path))
	}
	if mode == "csv" || mode == "both" {
		path, err := export.WriteCSV(dir, result)
		if err != nil {
			slog.Error("csv export failed", slog.Any("error", err))
			return 1
		}
		slog.Info("csv written", slog.String("path", path))
	}
	return 0
}

// exitCode maps the error taxonomy to process exit codes: 2 for bad
// input, 3 for unavailable channels, 4 for throttling, 1 otherwise.
func exitCode(err error) int {
	var inputErr *engine.InputError
	var notFound *engine.ChannelNotFoundError
	var private *engine.PrivateChannelError
	var throttled *engine.ThrottledError
	switch {
	case errors.As(err, &inputErr):
		return 2
	case errors.As(err, &notFound), errors.As(err, &private):
		return 3
	case errors.As(err, &throttled):
		return 4
	default:
		return 1
	}
}
