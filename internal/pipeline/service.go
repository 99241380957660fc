package pipeline

import (
	"context"
	"log/slog"

	"github.com/ClaudioL888/empathia/internal/models"
)

// AnalysisStore is the persistence contract for analysis results.
type AnalysisStore interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	ResultByRequestID(ctx context.Context, requestID string) (*models.AnalysisResult, error)
}

// Service runs the pipeline and logs each result to the store. The derived
// value is still useful when the audit write fails, so the result is returned
// regardless and the store error surfaced alongside it.
type Service struct {
	pipeline *Pipeline
	store    AnalysisStore
}

func NewService(pipeline *Pipeline, store AnalysisStore) *Service {
	return &Service{pipeline: pipeline, store: store}
}

func (s *Service) AnalyzeText(ctx context.Context, text string) (*models.AnalysisResult, error) {
	result := s.pipeline.Analyze(ctx, text)
	if s.store == nil {
		return result, nil
	}
	if err := s.store.SaveResult(ctx, result); err != nil {
		slog.Warn("[AnalyzerService] Failed to persist analysis result",
			slog.String("request_id", result.RequestID),
			slog.String("error", err.Error()))
		return result, err
	}
	return result, nil
}
