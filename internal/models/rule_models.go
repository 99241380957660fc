package models

const (
	ActionAllow  = "allow"
	ActionReview = "review"
	ActionBlock  = "block"

	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

type RulePattern struct {
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// RuleDefinition is one content rule as written in a rule document.
type RuleDefinition struct {
	ID          string        `json:"id" yaml:"id"`
	Description string        `json:"description" yaml:"description"`
	Action      string        `json:"action" yaml:"action"`
	Severity    string        `json:"severity" yaml:"severity"`
	Tags        []string      `json:"tags" yaml:"tags"`
	Patterns    []RulePattern `json:"patterns" yaml:"patterns"`

	// SourceFile is stamped at load time; not part of the document format.
	SourceFile string `json:"-" yaml:"-"`
}

// RuleDocument is the on-disk shape of a rule file: a flat rules array.
type RuleDocument struct {
	Rules []RuleDefinition `json:"rules" yaml:"rules"`
}

// RuleMatch is one firing of a rule against a text. Evidence is never empty.
type RuleMatch struct {
	RuleID      string         `json:"rule_id"`
	Description string         `json:"description"`
	Action      string         `json:"action"`
	Severity    string         `json:"severity"`
	Tags        []string       `json:"tags"`
	Evidence    []string       `json:"evidence"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
