package models

import "time"

// EmotionPoint is one hour bucket of the emotion time series. The three
// shares are fractions of that bucket's results and sum to 1.
type EmotionPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Positive  float64   `json:"positive"`
	Neutral   float64   `json:"neutral"`
	Negative  float64   `json:"negative"`
}

type CrisisSummary struct {
	MaxProbability float64 `json:"max_probability"`
	AvgProbability float64 `json:"avg_probability"`
	HighRiskCount  int     `json:"high_risk_count"`
}

type RepresentativeQuote struct {
	Text              string         `json:"text"`
	Label             SentimentLabel `json:"label"`
	CrisisProbability float64        `json:"crisis_probability"`
	Timestamp         time.Time      `json:"timestamp"`
}

type GraphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Size  int    `json:"size"`
}

type GraphEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

type NetworkGraph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

// EventSnapshot is a windowed aggregation of analysis results for a keyword.
// The window is half-open: [WindowStart, WindowEnd). Snapshots are append
// only; "latest" is determined by window end time.
type EventSnapshot struct {
	Keyword              string                `json:"keyword"`
	WindowStart          time.Time             `json:"window_start"`
	WindowEnd            time.Time             `json:"window_end"`
	EmotionSeries        []EmotionPoint        `json:"emotion_series"`
	CrisisSummary        CrisisSummary         `json:"crisis_summary"`
	RepresentativeQuotes []RepresentativeQuote `json:"representative_quotes"`
	NetworkGraph         NetworkGraph          `json:"network_graph"`
	CreatedAt            time.Time             `json:"created_at,omitempty"`
}
