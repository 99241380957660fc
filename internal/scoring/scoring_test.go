package scoring

import (
	"math"
	"strings"
	"testing"

	"github.com/ClaudioL888/empathia/internal/models"
	"github.com/ClaudioL888/empathia/internal/registry"
)

func newRegistry(t *testing.T) *registry.ModelRegistry {
	t.Helper()
	return registry.New(t.TempDir())
}

func TestSentimentScoresSumToOne(t *testing.T) {
	classifier, err := NewSentimentClassifier(newRegistry(t))
	if err != nil {
		t.Fatalf("NewSentimentClassifier: %v", err)
	}

	texts := []string{
		"I love this, it is great",
		"I hate everything",
		"the sky is blue",
		"",
	}
	for _, text := range texts {
		result := classifier.Predict(text)
		var total float64
		for _, score := range result.Scores {
			total += score
		}
		if math.Abs(total-1.0) > 1e-9 {
			t.Errorf("Predict(%q): scores sum to %v, want 1.0", text, total)
		}
		if result.Confidence != result.Scores[result.Label] {
			t.Errorf("Predict(%q): confidence %v does not equal winning score %v",
				text, result.Confidence, result.Scores[result.Label])
		}
	}
}

func TestSentimentLabelling(t *testing.T) {
	classifier, err := NewSentimentClassifier(newRegistry(t))
	if err != nil {
		t.Fatalf("NewSentimentClassifier: %v", err)
	}

	tests := []struct {
		text string
		want models.SentimentLabel
	}{
		{"I love this, it is great", models.LabelPositive},
		{"I hate this terrible thing", models.LabelNegative},
		{"the sky is blue today", models.LabelNeutral},
		{"今天很开心", models.LabelPositive},
		{"我很伤心", models.LabelNegative},
	}
	for _, tt := range tests {
		result := classifier.Predict(tt.text)
		if result.Label != tt.want {
			t.Errorf("Predict(%q): label %q, want %q", tt.text, result.Label, tt.want)
		}
	}
}

func TestSentimentTieBreaking(t *testing.T) {
	classifier, err := NewSentimentClassifier(newRegistry(t))
	if err != nil {
		t.Fatalf("NewSentimentClassifier: %v", err)
	}

	// No keywords at all: the tie bonus lifts neutral above the floors.
	result := classifier.Predict("completely unremarkable text")
	if result.Label != models.LabelNeutral {
		t.Errorf("keywordless text labelled %q, want neutral", result.Label)
	}
	if result.Scores[models.LabelNeutral] <= result.Scores[models.LabelPositive] {
		t.Errorf("neutral score %v not above positive %v",
			result.Scores[models.LabelNeutral], result.Scores[models.LabelPositive])
	}

	// One keyword each side still ties positive and negative; the fixed
	// argmax order resolves it to positive.
	mixed := classifier.Predict("I love it and I hate it")
	if mixed.Label != models.LabelPositive {
		t.Errorf("mixed text labelled %q, want positive", mixed.Label)
	}
}

func TestSentimentDeterminism(t *testing.T) {
	classifier, err := NewSentimentClassifier(newRegistry(t))
	if err != nil {
		t.Fatalf("NewSentimentClassifier: %v", err)
	}

	first := classifier.Predict("good but also bad, somehow")
	for i := 0; i < 10; i++ {
		again := classifier.Predict("good but also bad, somehow")
		if again.Label != first.Label || again.Confidence != first.Confidence {
			t.Fatalf("run %d differs: %+v vs %+v", i, again, first)
		}
	}
}

func TestEmpathyScoreBounds(t *testing.T) {
	scorer, err := NewEmpathyScorer(newRegistry(t))
	if err != nil {
		t.Fatalf("NewEmpathyScorer: %v", err)
	}

	tests := []struct {
		text string
		want float64
	}{
		{"nothing relevant here", 0},
		{"I am sorry", 1.0 / 3.0},
		{"sorry, I care and support you", 1},
		{"sorry sorry sorry", 1.0 / 3.0}, // repeated cue counts once
	}
	for _, tt := range tests {
		result := scorer.Score(tt.text)
		if math.Abs(result.Score-tt.want) > 1e-9 {
			t.Errorf("Score(%q) = %v, want %v", tt.text, result.Score, tt.want)
		}
	}
}

func TestEmpathyRationale(t *testing.T) {
	scorer, err := NewEmpathyScorer(newRegistry(t))
	if err != nil {
		t.Fatalf("NewEmpathyScorer: %v", err)
	}

	neutral := scorer.Score("a plain sentence")
	if neutral.Rationale != "Neutral tone" {
		t.Errorf("neutral rationale = %q", neutral.Rationale)
	}

	matched := scorer.Score("I am sorry and I care")
	if !strings.HasPrefix(matched.Rationale, "Detected empathic cues: ") {
		t.Errorf("matched rationale = %q", matched.Rationale)
	}
	if !strings.Contains(matched.Rationale, "sorry") || !strings.Contains(matched.Rationale, "care") {
		t.Errorf("rationale missing cues: %q", matched.Rationale)
	}
}

func TestCrisisProbability(t *testing.T) {
	detector, err := NewCrisisDetector(newRegistry(t))
	if err != nil {
		t.Fatalf("NewCrisisDetector: %v", err)
	}

	tests := []struct {
		text         string
		wantProb     float64
		wantAction   string
		wantSeverity string
	}{
		{"a calm ordinary message", 0, models.ActionAllow, models.SeverityMedium},
		{"thinking about suicide", 1.0 / 3.0, models.ActionReview, models.SeverityMedium},
		{"I feel overwhelmed and think about suicide now", 0.5, models.ActionReview, models.SeverityMedium},
		{"suicide 暴力 恐吓 immediately", 1, models.ActionReview, models.SeverityHigh},
	}
	for _, tt := range tests {
		match := detector.Predict(tt.text)
		prob, ok := match.Metadata["probability"].(float64)
		if !ok {
			t.Fatalf("Predict(%q): probability metadata missing", tt.text)
		}
		if math.Abs(prob-tt.wantProb) > 1e-9 {
			t.Errorf("Predict(%q): probability %v, want %v", tt.text, prob, tt.wantProb)
		}
		if match.Action != tt.wantAction {
			t.Errorf("Predict(%q): action %q, want %q", tt.text, match.Action, tt.wantAction)
		}
		if match.Severity != tt.wantSeverity {
			t.Errorf("Predict(%q): severity %q, want %q", tt.text, match.Severity, tt.wantSeverity)
		}
	}
}

func TestCrisisEvidenceListsIndicators(t *testing.T) {
	detector, err := NewCrisisDetector(newRegistry(t))
	if err != nil {
		t.Fatalf("NewCrisisDetector: %v", err)
	}

	match := detector.Predict("I want to kill myself")
	if len(match.Evidence) != 1 || match.Evidence[0] != "kill myself" {
		t.Errorf("evidence = %v, want [kill myself]", match.Evidence)
	}
	if match.RuleID != "crisis_model" {
		t.Errorf("rule id = %q", match.RuleID)
	}
}
