// Package scoring holds the manifest-driven keyword scorers. They are pure
// functions of (text, manifest); identical input always yields identical
// output.
package scoring

import (
	"strings"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/registry"
)

const (
	SentimentModelName = "demo-sentiment"
	ModelVersion       = "1.0.0"
)

func defaultSentimentManifest() *models.ModelManifest {
	return &models.ModelManifest{
		Name:    SentimentModelName,
		Version: ModelVersion,
		Labels:  []string{"positive", "neutral", "negative"},
		LabelKeywords: map[string][]string{
			"positive": {"great", "love", "awesome", "good", "开心", "感激"},
			"negative": {"hate", "angry", "terrible", "bad", "伤心", "愤怒"},
		},
	}
}

type SentimentClassifier struct {
	manifest *models.ModelManifest
}

func NewSentimentClassifier(reg *registry.ModelRegistry) (*SentimentClassifier, error) {
	manifest, _, err := reg.Manifest(SentimentModelName, ModelVersion, defaultSentimentManifest())
	if err != nil {
		return nil, err
	}
	return &SentimentClassifier{manifest: manifest}, nil
}

func (c *SentimentClassifier) Manifest() *models.ModelManifest { return c.manifest }

// Predict scores text against the manifest keyword lists. Every label starts
// at a 0.1 floor, +1.0 per contained keyword, neutral gets +0.5 when positive
// and negative tie, then scores normalize to sum 1. The winning label's
// normalized value is the confidence.
func (c *SentimentClassifier) Predict(text string) models.SentimentResult {
	textLower := strings.ToLower(text)
	scores := map[models.SentimentLabel]float64{
		models.LabelPositive: 0.1,
		models.LabelNeutral:  0.1,
		models.LabelNegative: 0.1,
	}
	for labelName, keywords := range c.manifest.LabelKeywords {
		if !models.ValidLabel(labelName) {
			continue
		}
		label := models.SentimentLabel(labelName)
		for _, kw := range keywords {
			if strings.Contains(textLower, strings.ToLower(kw)) {
				scores[label] += 1.0
			}
		}
	}
	if scores[models.LabelPositive] == scores[models.LabelNegative] {
		scores[models.LabelNeutral] += 0.5
	}

	normalized := models.NormalizeScores(scores)
	label := argmax(normalized)
	return models.SentimentResult{
		Label:      label,
		Confidence: normalized[label],
		Scores:     normalized,
	}
}

func argmax(scores map[models.SentimentLabel]float64) models.SentimentLabel {
	// Fixed iteration order keeps ties deterministic.
	order := []models.SentimentLabel{models.LabelPositive, models.LabelNeutral, models.LabelNegative}
	best := order[0]
	for _, label := range order[1:] {
		if scores[label] > scores[best] {
			best = label
		}
	}
	return best
}
