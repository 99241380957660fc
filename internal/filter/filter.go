// Package filter combines pipeline analysis with rule matching into a single
// allow/review/block decision, persisting an audit record per decision.
package filter

import (
	"context"
	"fmt"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/rules"
)

type Decision string

const (
	DecisionAllow  Decision = "allow"
	DecisionReview Decision = "review"
	DecisionBlock  Decision = "block"
)

type Analyzer interface {
	AnalyzeText(ctx context.Context, text string) (*models.AnalysisResult, error)
}

type AuditStore interface {
	SaveAudit(ctx context.Context, audit *models.FilterAudit) error
	AuditByRequestID(ctx context.Context, requestID string) (*models.FilterAudit, error)
}

// Outcome is the full decision bundle for one filtered text.
type Outcome struct {
	Decision Decision               `json:"decision"`
	Allow    bool                   `json:"allow"`
	Reason   string                 `json:"reason"`
	Matches  []models.RuleMatch     `json:"matches"`
	Result   *models.AnalysisResult `json:"result"`
}

type Service struct {
	analyzer Analyzer
	matcher  *rules.Matcher
	audits   AuditStore
}

func NewService(analyzer Analyzer, matcher *rules.Matcher, audits AuditStore) *Service {
	return &Service{analyzer: analyzer, matcher: matcher, audits: audits}
}

// FilterText analyzes and rule-matches the text. Any rule match forces
// review; otherwise crisis probability above 0.7 blocks; else the text is
// allowed.
func (s *Service) FilterText(ctx context.Context, text string) (*Outcome, error) {
	result, err := s.analyzer.AnalyzeText(ctx, text)
	if result == nil {
		return nil, fmt.Errorf("[FilterService] Analysis failed: %w", err)
	}

	matches := s.matcher.Match(text)
	crisisProb := result.Crisis.Probability

	outcome := &Outcome{Matches: matches, Result: result}
	switch {
	case len(matches) > 0:
		outcome.Decision = DecisionReview
		outcome.Reason = "Matched content rules"
	case crisisProb > 0.7:
		outcome.Decision = DecisionBlock
		outcome.Reason = "High crisis probability"
	default:
		outcome.Decision = DecisionAllow
		outcome.Allow = true
		outcome.Reason = "Clean"
	}

	if s.audits != nil {
		audit := &models.FilterAudit{
			RequestID:    result.RequestID,
			TextHash:     result.TextHash,
			Decision:     string(outcome.Decision),
			Reason:       outcome.Reason,
			Allow:        outcome.Allow,
			MatchedRules: matches,
			Analyzer: models.AnalyzerSnapshot{
				Label:             result.Sentiment.Label,
				Confidence:        result.Sentiment.Confidence,
				EmpathyScore:      result.Empathy.Score,
				CrisisProbability: crisisProb,
				ModelVersion:      result.ModelVersion,
				RuleVersion:       result.RuleVersion,
			},
			CreatedAt: time.Now().UTC(),
		}
		if err := s.audits.SaveAudit(ctx, audit); err != nil {
			return outcome, fmt.Errorf("[FilterService] Failed to persist audit: %w", err)
		}
	}
	return outcome, nil
}
