package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNeutral  SentimentLabel = "neutral"
	LabelNegative SentimentLabel = "negative"
)

// ValidLabel reports whether s is one of the three sentiment labels.
func ValidLabel(s string) bool {
	switch SentimentLabel(s) {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

type SentimentResult struct {
	Label      SentimentLabel             `json:"label"`
	Confidence float64                    `json:"confidence"`
	Scores     map[SentimentLabel]float64 `json:"scores"`
}

type EmpathyResult struct {
	Score     float64 `json:"score"`
	Rationale string  `json:"rationale"`
}

type CrisisResult struct {
	Probability float64  `json:"probability"`
	Indicators  []string `json:"indicators"`
}

// EvidenceChunk is a single token of supporting evidence, tagged with the
// signal it supports ("sentiment" or "crisis").
type EvidenceChunk struct {
	Text   string  `json:"text"`
	Label  string  `json:"label"`
	Weight float64 `json:"weight"`
}

// AnalysisResult is the unified output of one pipeline run. It is never
// mutated after construction.
type AnalysisResult struct {
	RequestID    string          `json:"request_id"`
	Text         string          `json:"text"`
	TextHash     string          `json:"text_hash"`
	Sentiment    SentimentResult `json:"sentiment"`
	Empathy      EmpathyResult   `json:"empathy"`
	Crisis       CrisisResult    `json:"crisis"`
	Evidence     []EvidenceChunk `json:"evidence"`
	ModelVersion string          `json:"model_version"`
	RuleVersion  string          `json:"rule_version,omitempty"`
	LatencyMS    float64         `json:"latency_ms"`
	CreatedAt    time.Time       `json:"created_at"`
}

// HashText returns the sha256 hex digest of the trimmed text. Used for
// dedup/audit correlation, not security.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(text)))
	return hex.EncodeToString(sum[:])
}

// NewRequestID builds a short globally unique request id.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

// Clamp bounds v into [0,1].
func Clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeScores divides every score by the total so the values sum to 1.
func NormalizeScores(scores map[SentimentLabel]float64) map[SentimentLabel]float64 {
	var total float64
	for _, v := range scores {
		total += v
	}
	if total == 0 {
		total = 1
	}
	normalized := make(map[SentimentLabel]float64, len(scores))
	for label, v := range scores {
		normalized[label] = v / total
	}
	return normalized
}
