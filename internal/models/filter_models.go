package models

import "time"

// AnalyzerSnapshot is the condensed view of an AnalysisResult stored with an
// audit record.
type AnalyzerSnapshot struct {
	Label             SentimentLabel `json:"label"`
	Confidence        float64        `json:"confidence"`
	EmpathyScore      float64        `json:"empathy_score"`
	CrisisProbability float64        `json:"crisis_probability"`
	ModelVersion      string         `json:"model_version"`
	RuleVersion       string         `json:"rule_version,omitempty"`
}

// FilterAudit is the persisted record of one filter decision.
type FilterAudit struct {
	RequestID    string           `json:"request_id"`
	TextHash     string           `json:"text_hash"`
	Decision     string           `json:"decision"`
	Reason       string           `json:"reason"`
	Allow        bool             `json:"allow"`
	MatchedRules []RuleMatch      `json:"matched_rules"`
	Analyzer     AnalyzerSnapshot `json:"analyzer_snapshot"`
	CreatedAt    time.Time        `json:"created_at"`
}
