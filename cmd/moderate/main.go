package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ClaudioL888/empathia/config"
	"github.com/ClaudioL888/empathia/internal/db"
	"github.com/ClaudioL888/empathia/internal/filter"
	"github.com/ClaudioL888/empathia/internal/logging"
	"github.com/ClaudioL888/empathia/internal/pipeline"
	"github.com/ClaudioL888/empathia/internal/registry"
	"github.com/ClaudioL888/empathia/internal/rules"
)

// moderate runs one text through the full filter path (analysis + content
// rules) and prints the decision as JSON.
func main() {
	rulesPath := flag.String("rules", "", "rules directory (default RULES_PATH or ./rules)")
	flag.Parse()

	text := strings.Join(flag.Args(), " ")
	if strings.TrimSpace(text) == "" {
		slog.Error("[Main] No text given to moderate")
		os.Exit(1)
	}

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)
	logging.InitLogger()

	classifier := pipeline.NewClassifier(pipeline.ClassifierConfigFromEnv())
	analysisPipeline, err := pipeline.New(registry.New(""), classifier)
	if err != nil {
		slog.Error("[Main] Failed to build analysis pipeline",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
	analyzer := pipeline.NewService(analysisPipeline, db.NewAnalysisLogStore())
	svc := filter.NewService(analyzer, rules.NewMatcher(*rulesPath), db.NewFilterAuditStore())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	outcome, err := svc.FilterText(ctx, text)
	if err != nil {
		slog.Warn("[Main] Filter finished with error",
			slog.String("error", err.Error()))
	}
	if outcome == nil {
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(outcome); err != nil {
		slog.Error("[Main] Failed to encode outcome",
			slog.String("error", err.Error()))
		os.Exit(1)
	}
}
