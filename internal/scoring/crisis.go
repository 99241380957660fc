package scoring

import (
	"strings"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/registry"
)

const CrisisModelName = "demo-crisis"

func defaultCrisisManifest() *models.ModelManifest {
	return &models.ModelManifest{
		Name:     CrisisModelName,
		Version:  ModelVersion,
		Keywords: []string{"suicide", "kill myself", "暴力", "恐吓", "爆炸", "伤害"},
		Boost:    []string{"now", "immediately", "立刻"},
	}
}

type CrisisDetector struct {
	manifest *models.ModelManifest
}

func NewCrisisDetector(reg *registry.ModelRegistry) (*CrisisDetector, error) {
	manifest, _, err := reg.Manifest(CrisisModelName, ModelVersion, defaultCrisisManifest())
	if err != nil {
		return nil, err
	}
	return &CrisisDetector{manifest: manifest}, nil
}

func (d *CrisisDetector) Manifest() *models.ModelManifest { return d.manifest }

// Predict counts manifest indicators in the text; any boost term multiplies
// the count by 1.5 before dividing by 3 and clamping. Action flips to review
// above 0.3, severity to high above 0.7.
func (d *CrisisDetector) Predict(text string) models.RuleMatch {
	textLower := strings.ToLower(text)
	var indicators []string
	for _, kw := range d.manifest.Keywords {
		if strings.Contains(textLower, strings.ToLower(kw)) {
			indicators = append(indicators, kw)
		}
	}
	boost := 1.0
	for _, term := range d.manifest.Boost {
		if strings.Contains(textLower, term) {
			boost = 1.5
			break
		}
	}
	probability := models.Clamp(float64(len(indicators)) * boost / 3.0)

	action := models.ActionAllow
	if probability > 0.3 {
		action = models.ActionReview
	}
	severity := models.SeverityMedium
	if probability > 0.7 {
		severity = models.SeverityHigh
	}
	return models.RuleMatch{
		RuleID:      "crisis_model",
		Description: "Keyword-based crisis detector",
		Action:      action,
		Severity:    severity,
		Tags:        []string{"crisis"},
		Evidence:    indicators,
		Metadata:    map[string]any{"probability": probability},
	}
}
