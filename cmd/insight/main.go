package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/ClaudioL888/empathia/config"
	"github.com/ClaudioL888/empathia/internal/clients"
	"github.com/ClaudioL888/empathia/internal/db"
	"github.com/ClaudioL888/empathia/internal/events"
	"github.com/ClaudioL888/empathia/internal/logging"
	"github.com/ClaudioL888/empathia/internal/pipeline"
	"github.com/ClaudioL888/empathia/internal/search"
)

// insight aggregates recent analysis results for a keyword into an event
// snapshot. -search instead pages through previously stored snapshots, and
// -suggest derives candidate event keywords from the argument texts.
func main() {
	keyword := flag.String("keyword", "", "keyword to aggregate results for")
	hours := flag.Int("hours", 24, "size of the aggregation window in hours")
	useCache := flag.Bool("cache", false, "use the Valkey snapshot cache")
	doSearch := flag.Bool("search", false, "search stored snapshots instead of aggregating")
	page := flag.Int("page", 1, "result page when searching")
	pageSize := flag.Int("page-size", 10, "results per page when searching")
	doSuggest := flag.Bool("suggest", false, "suggest event keywords for the argument texts")
	maxKeywords := flag.Int("max-keywords", 3, "keyword cap when suggesting")
	flag.Parse()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	var cache *clients.ValkeyClient
	if *useCache {
		cache = clients.InitValkey()
		defer clients.CloseValkey()
	}

	snapshots := db.NewEventSnapshotStore(cache)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var payload any
	switch {
	case *doSuggest:
		suggester := pipeline.NewKeywordSuggester(pipeline.ClassifierConfigFromEnv())
		payload = map[string][]string{
			"keywords": suggester.SuggestForTexts(ctx, flag.Args(), *maxKeywords),
		}
	case *doSearch:
		response, err := search.NewService(snapshots).Search(ctx, search.Request{
			Keyword:  *keyword,
			Page:     *page,
			PageSize: *pageSize,
		})
		if err != nil {
			slog.Error("[Main] Snapshot search failed",
				slog.String("keyword", *keyword),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		payload = response
	default:
		aggregator := events.NewAggregator(db.NewAnalysisLogStore(), snapshots)
		snapshot, err := aggregator.AnalyzeEvent(ctx, *keyword, *hours)
		if err != nil {
			slog.Error("[Main] Event aggregation failed",
				slog.String("keyword", *keyword),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		payload = snapshot
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(payload); err != nil {
		slog.Error("[Main] Failed to encode output",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}
