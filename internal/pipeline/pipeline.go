// Package pipeline orchestrates the multi-signal analysis of one text:
// external classifier first, local keyword scorers as fallback, with an
// identical output shape on both paths.
package pipeline

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/registry"
	"github.com/ClaudioL888/empathia/internal/scoring"
)

type Pipeline struct {
	sentiment  *scoring.SentimentClassifier
	empathy    *scoring.EmpathyScorer
	crisis     *scoring.CrisisDetector
	classifier *Classifier
	now        func() time.Time
}

// New wires the pipeline from a manifest registry and an optional external
// classifier (nil means local-only).
func New(reg *registry.ModelRegistry, classifier *Classifier) (*Pipeline, error) {
	sentiment, err := scoring.NewSentimentClassifier(reg)
	if err != nil {
		return nil, err
	}
	empathy, err := scoring.NewEmpathyScorer(reg)
	if err != nil {
		return nil, err
	}
	crisis, err := scoring.NewCrisisDetector(reg)
	if err != nil {
		return nil, err
	}
	if classifier == nil {
		classifier = NewClassifier(ClassifierConfig{})
	}
	return &Pipeline{
		sentiment:  sentiment,
		empathy:    empathy,
		crisis:     crisis,
		classifier: classifier,
		now:        time.Now,
	}, nil
}

// Analyze produces the immutable AnalysisResult for one non-empty text. It
// never fails: classifier trouble silently falls back to the local scorers.
func (p *Pipeline) Analyze(ctx context.Context, text string) *models.AnalysisResult {
	start := p.now()

	var (
		sentiment models.SentimentResult
		crisis    models.RuleMatch
	)
	llmResult := p.classifier.Classify(ctx, text)

	if llmResult != nil {
		// Confidence peaks at a mid-range crisis estimate; downstream
		// consumers calibrate against this exact curve.
		sentiment = models.SentimentResult{
			Label:      llmResult.Label,
			Confidence: 1.0 - math.Abs(0.5-llmResult.CrisisProbability),
			Scores:     oneHotScores(llmResult.Label),
		}
		action := models.ActionAllow
		if llmResult.CrisisProbability > 0.3 {
			action = models.ActionReview
		}
		severity := models.SeverityMedium
		if llmResult.CrisisProbability > 0.7 {
			severity = models.SeverityHigh
		}
		crisis = models.RuleMatch{
			RuleID:      "llm_crisis",
			Description: "LLM-evaluated crisis probability",
			Action:      action,
			Severity:    severity,
			Tags:        []string{"crisis", "llm"},
			Evidence:    []string{},
			Metadata: map[string]any{
				"probability": llmResult.CrisisProbability,
				"rationale":   llmResult.Rationale,
			},
		}
	} else {
		sentiment = p.sentiment.Predict(text)
		crisis = p.crisis.Predict(text)
	}
	// The external classifier does not score empathy; always local.
	empathy := p.empathy.Score(text)

	result := &models.AnalysisResult{
		RequestID:    models.NewRequestID(),
		Text:         text,
		TextHash:     models.HashText(text),
		Sentiment:    sentiment,
		Empathy:      empathy,
		Crisis:       crisisToResult(crisis),
		Evidence:     p.extractEvidence(text),
		ModelVersion: p.modelVersion(),
		CreatedAt:    start,
	}
	result.LatencyMS = math.Round(float64(p.now().Sub(start))/float64(time.Millisecond)*100) / 100

	shadowScore, shadowLabel := scoring.ShadowScore(text)
	slog.Debug("[Pipeline] Analyzed text",
		slog.String("request_id", result.RequestID),
		slog.String("label", string(sentiment.Label)),
		slog.Float64("empathy", empathy.Score),
		slog.Float64("crisis_prob", result.Crisis.Probability),
		slog.Float64("shadow_vader", shadowScore),
		slog.String("shadow_label", shadowLabel),
		slog.Bool("llm_used", llmResult != nil))
	return result
}

// extractEvidence tags whitespace tokens that hit the sentiment keyword union
// (weight 0.5) or the crisis keyword list (weight 1.0). A token may land in
// both.
func (p *Pipeline) extractEvidence(text string) []models.EvidenceChunk {
	sentimentWords := make(map[string]struct{})
	for _, label := range []string{"positive", "negative"} {
		for _, kw := range p.sentiment.Manifest().LabelKeywords[label] {
			sentimentWords[strings.ToLower(kw)] = struct{}{}
		}
	}
	crisisWords := make(map[string]struct{})
	for _, kw := range p.crisis.Manifest().Keywords {
		crisisWords[strings.ToLower(kw)] = struct{}{}
	}

	var evidence []models.EvidenceChunk
	for _, token := range strings.Fields(text) {
		lower := strings.ToLower(token)
		if _, ok := sentimentWords[lower]; ok {
			evidence = append(evidence, models.EvidenceChunk{Text: token, Label: "sentiment", Weight: 0.5})
		}
		if _, ok := crisisWords[lower]; ok {
			evidence = append(evidence, models.EvidenceChunk{Text: token, Label: "crisis", Weight: 1.0})
		}
	}
	return evidence
}

func (p *Pipeline) modelVersion() string {
	if v := p.sentiment.Manifest().Version; v != "" {
		return v
	}
	return scoring.ModelVersion
}

func oneHotScores(label models.SentimentLabel) map[models.SentimentLabel]float64 {
	scores := map[models.SentimentLabel]float64{
		models.LabelPositive: 0,
		models.LabelNeutral:  0,
		models.LabelNegative: 0,
	}
	scores[label] = 1
	return scores
}

func crisisToResult(match models.RuleMatch) models.CrisisResult {
	probability, _ := match.Metadata["probability"].(float64)
	indicators := match.Evidence
	if indicators == nil {
		indicators = []string{}
	}
	return models.CrisisResult{
		Probability: models.Clamp(probability),
		Indicators:  indicators,
	}
}
