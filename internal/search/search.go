// Package search serves paged keyword search over persisted event snapshots.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
)

// SnapshotSearcher queries snapshots by keyword substring, newest first.
type SnapshotSearcher interface {
	Search(ctx context.Context, keyword string, limit, offset int) ([]models.EventSnapshot, error)
	Count(ctx context.Context, keyword string) (int, error)
}

type Request struct {
	Keyword  string `json:"keyword"`
	Page     int    `json:"page"`
	PageSize int    `json:"page_size"`
}

type ResultItem struct {
	Keyword             string             `json:"keyword"`
	WindowStart         time.Time          `json:"window_start"`
	WindowEnd           time.Time          `json:"window_end"`
	RiskLevel           string             `json:"risk_level"`
	EmotionDistribution map[string]float64 `json:"emotion_distribution"`
	RepresentativeQuote string             `json:"representative_quote,omitempty"`
}

type Response struct {
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"page_size"`
	Results  []ResultItem `json:"results"`
}

type Service struct {
	snapshots SnapshotSearcher
}

func NewService(snapshots SnapshotSearcher) *Service {
	return &Service{snapshots: snapshots}
}

func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 {
		req.PageSize = 10
	}
	offset := (req.Page - 1) * req.PageSize

	snapshots, err := s.snapshots.Search(ctx, req.Keyword, req.PageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("[SearchService] Snapshot search failed: %w", err)
	}

	items := make([]ResultItem, 0, len(snapshots))
	for _, snapshot := range snapshots {
		item := ResultItem{
			Keyword:             snapshot.Keyword,
			WindowStart:         snapshot.WindowStart,
			WindowEnd:           snapshot.WindowEnd,
			RiskLevel:           riskLevel(snapshot.CrisisSummary),
			EmotionDistribution: map[string]float64{"positive": 0, "neutral": 0, "negative": 0},
		}
		if len(snapshot.EmotionSeries) > 0 {
			first := snapshot.EmotionSeries[0]
			item.EmotionDistribution["positive"] = first.Positive
			item.EmotionDistribution["neutral"] = first.Neutral
			item.EmotionDistribution["negative"] = first.Negative
		}
		if len(snapshot.RepresentativeQuotes) > 0 {
			item.RepresentativeQuote = snapshot.RepresentativeQuotes[0].Text
		}
		items = append(items, item)
	}

	total, err := s.snapshots.Count(ctx, req.Keyword)
	if err != nil {
		return nil, fmt.Errorf("[SearchService] Snapshot count failed: %w", err)
	}

	return &Response{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Results:  items,
	}, nil
}

func riskLevel(summary models.CrisisSummary) string {
	if summary.MaxProbability >= 0.7 {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}
