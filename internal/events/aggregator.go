// Package events buckets a sliding window of analysis results into emotion
// time series, crisis summaries, representative quotes, and a co-occurrence
// graph, with snapshot caching.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
)

const maxQuotes = 5

// ResultSource enumerates persisted analysis results inside a window,
// optionally filtered by keyword substring against the result text.
type ResultSource interface {
	ResultsSince(ctx context.Context, since time.Time, keyword string) ([]models.AnalysisResult, error)
}

// SnapshotStore is the append-only snapshot cache. Latest returns (nil, nil)
// when no snapshot exists for the keyword.
type SnapshotStore interface {
	Latest(ctx context.Context, keyword string) (*models.EventSnapshot, error)
	Save(ctx context.Context, snapshot *models.EventSnapshot) error
}

type Aggregator struct {
	source    ResultSource
	snapshots SnapshotStore
	now       func() time.Time
}

func NewAggregator(source ResultSource, snapshots SnapshotStore) *Aggregator {
	return &Aggregator{source: source, snapshots: snapshots, now: time.Now}
}

// AnalyzeEvent aggregates the window [now-hours, now) for a keyword. With no
// fresh data it falls back to the most recent snapshot, else to an empty
// insight; with data it computes and appends a new snapshot. A failed
// snapshot write does not void the computed insight: it is returned together
// with the error.
func (a *Aggregator) AnalyzeEvent(ctx context.Context, keyword string, hours int) (*models.EventSnapshot, error) {
	windowEnd := a.now()
	windowStart := windowEnd.Add(-time.Duration(hours) * time.Hour)

	results, err := a.source.ResultsSince(ctx, windowStart, keyword)
	if err != nil {
		return nil, fmt.Errorf("[EventAggregator] Window query failed: %w", err)
	}

	if len(results) == 0 {
		prior, err := a.snapshots.Latest(ctx, keyword)
		if err != nil {
			return nil, fmt.Errorf("[EventAggregator] Latest snapshot lookup failed: %w", err)
		}
		if prior != nil {
			slog.Info("[EventAggregator] No fresh data, serving cached snapshot",
				slog.String("keyword", keyword),
				slog.Time("window_end", prior.WindowEnd))
			return prior, nil
		}
		return emptyInsight(keyword, windowStart, windowEnd), nil
	}

	quotes := buildRepresentativeQuotes(results)
	snapshot := &models.EventSnapshot{
		Keyword:              keyword,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		EmotionSeries:        buildEmotionSeries(results, windowStart),
		CrisisSummary:        buildCrisisSummary(results),
		RepresentativeQuotes: quotes,
		NetworkGraph:         BuildSentimentGraph(quotes),
		CreatedAt:            windowEnd,
	}

	if err := a.snapshots.Save(ctx, snapshot); err != nil {
		slog.Warn("[EventAggregator] Failed to persist snapshot",
			slog.String("keyword", keyword),
			slog.String("error", err.Error()))
		return snapshot, err
	}
	return snapshot, nil
}

func emptyInsight(keyword string, windowStart, windowEnd time.Time) *models.EventSnapshot {
	return &models.EventSnapshot{
		Keyword:              keyword,
		WindowStart:          windowStart,
		WindowEnd:            windowEnd,
		EmotionSeries:        []models.EmotionPoint{},
		CrisisSummary:        models.CrisisSummary{},
		RepresentativeQuotes: []models.RepresentativeQuote{},
		NetworkGraph:         models.NetworkGraph{Nodes: []models.GraphNode{}, Edges: []models.GraphEdge{}},
	}
}

// buildEmotionSeries buckets results by hour and converts label counts into
// fractional shares, sorted by bucket time ascending.
func buildEmotionSeries(results []models.AnalysisResult, windowStart time.Time) []models.EmotionPoint {
	type bucket struct {
		positive, neutral, negative int
	}
	buckets := make(map[time.Time]*bucket)
	for _, result := range results {
		key := result.CreatedAt.Truncate(time.Hour)
		b := buckets[key]
		if b == nil {
			b = &bucket{}
			buckets[key] = b
		}
		switch result.Sentiment.Label {
		case models.LabelPositive:
			b.positive++
		case models.LabelNegative:
			b.negative++
		default:
			b.neutral++
		}
	}

	times := make([]time.Time, 0, len(buckets))
	for t := range buckets {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	points := make([]models.EmotionPoint, 0, len(times))
	for _, t := range times {
		b := buckets[t]
		total := float64(b.positive + b.neutral + b.negative)
		if total == 0 {
			total = 1
		}
		points = append(points, models.EmotionPoint{
			Timestamp: t,
			Positive:  float64(b.positive) / total,
			Neutral:   float64(b.neutral) / total,
			Negative:  float64(b.negative) / total,
		})
	}
	if len(points) == 0 {
		// A synthetic neutral point keeps the series shape valid.
		points = append(points, models.EmotionPoint{Timestamp: windowStart, Neutral: 1})
	}
	return points
}

func buildCrisisSummary(results []models.AnalysisResult) models.CrisisSummary {
	var summary models.CrisisSummary
	var sum float64
	for _, result := range results {
		p := result.Crisis.Probability
		sum += p
		if p > summary.MaxProbability {
			summary.MaxProbability = p
		}
		if p >= 0.7 {
			summary.HighRiskCount++
		}
	}
	summary.AvgProbability = sum / float64(len(results))
	return summary
}

// buildRepresentativeQuotes takes the top results by crisis probability
// descending.
func buildRepresentativeQuotes(results []models.AnalysisResult) []models.RepresentativeQuote {
	sorted := make([]models.AnalysisResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Crisis.Probability > sorted[j].Crisis.Probability
	})

	quotes := make([]models.RepresentativeQuote, 0, maxQuotes)
	for _, result := range sorted {
		quotes = append(quotes, models.RepresentativeQuote{
			Text:              result.Text,
			Label:             result.Sentiment.Label,
			CrisisProbability: result.Crisis.Probability,
			Timestamp:         result.CreatedAt,
		})
		if len(quotes) == maxQuotes {
			break
		}
	}
	return quotes
}
