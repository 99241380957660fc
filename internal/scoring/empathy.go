package scoring

import (
	"strings"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/registry"
)

const EmpathyModelName = "demo-empathy"

func defaultEmpathyManifest() *models.ModelManifest {
	return &models.ModelManifest{
		Name:     EmpathyModelName,
		Version:  ModelVersion,
		Keywords: []string{"sorry", "理解", "care", "support", "抱歉", "感谢", "empathy"},
	}
}

type EmpathyScorer struct {
	manifest *models.ModelManifest
}

func NewEmpathyScorer(reg *registry.ModelRegistry) (*EmpathyScorer, error) {
	manifest, _, err := reg.Manifest(EmpathyModelName, ModelVersion, defaultEmpathyManifest())
	if err != nil {
		return nil, err
	}
	return &EmpathyScorer{manifest: manifest}, nil
}

// Score is min(1, matched/3); the rationale names the matched cues or states
// the neutral-tone fallback.
func (s *EmpathyScorer) Score(text string) models.EmpathyResult {
	textLower := strings.ToLower(text)
	var matches []string
	for _, kw := range s.manifest.Keywords {
		if strings.Contains(textLower, strings.ToLower(kw)) {
			matches = append(matches, kw)
		}
	}
	score := models.Clamp(float64(len(matches)) / 3.0)
	rationale := "Neutral tone"
	if len(matches) > 0 {
		rationale = "Detected empathic cues: " + strings.Join(matches, ", ")
	}
	return models.EmpathyResult{Score: score, Rationale: rationale}
}
