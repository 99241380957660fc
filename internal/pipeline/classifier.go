package pipeline

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ClaudioL888/empathia/internal/models"
)

const classifierPrompt = "You are a sentiment and crisis risk classifier. " +
	"Given a message, respond with a strict JSON object containing: " +
	`{"label": "positive|neutral|negative", ` +
	`"crisis_probability": float between 0 and 1, ` +
	`"rationale": "short reason"}`

// ClassifierConfig configures the outbound chat-completion endpoint.
type ClassifierConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	Enabled bool
}

func ClassifierConfigFromEnv() ClassifierConfig {
	timeout := 6 * time.Second
	if v := os.Getenv("LLM_TIMEOUT_SECONDS"); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 1 {
			timeout = time.Duration(secs * float64(time.Second))
		}
	}
	model := os.Getenv("LLM_MODEL")
	if model == "" {
		model = "gpt-4o-mini"
	}
	return ClassifierConfig{
		BaseURL: os.Getenv("LLM_BASE_URL"),
		APIKey:  os.Getenv("LLM_API_KEY"),
		Model:   model,
		Timeout: timeout,
		Enabled: os.Getenv("LLM_ENABLED") != "false",
	}
}

// Classification is the external classifier's verdict for one text.
type Classification struct {
	Label             models.SentimentLabel
	CrisisProbability float64
	Rationale         string
}

// Classifier calls the remote chat-completion endpoint. Every failure mode
// degrades to "no result"; it never errors outward.
type Classifier struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	enabled bool
}

func NewClassifier(cfg ClassifierConfig) *Classifier {
	enabled := cfg.Enabled && cfg.BaseURL != "" && cfg.APIKey != ""
	c := &Classifier{model: cfg.Model, timeout: cfg.Timeout, enabled: enabled}
	if !enabled {
		return c
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	c.client = openai.NewClientWithConfig(clientCfg)
	slog.Info("[Classifier] External classifier enabled",
		slog.String("model", cfg.Model),
		slog.Duration("timeout", cfg.Timeout))
	return c
}

func (c *Classifier) Enabled() bool { return c.enabled }

// Classify returns nil when the classifier is disabled or anything along the
// call fails; the caller falls back to local scoring.
func (c *Classifier) Classify(ctx context.Context, text string) *Classification {
	if !c.enabled {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifierPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Warn("[Classifier] Classification call failed",
			slog.String("error", err.Error()))
		return nil
	}
	if len(resp.Choices) == 0 {
		slog.Warn("[Classifier] Empty completion response")
		return nil
	}

	var payload struct {
		Label             string  `json:"label"`
		CrisisProbability float64 `json:"crisis_probability"`
		Rationale         string  `json:"rationale"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		slog.Warn("[Classifier] Malformed classifier payload",
			slog.String("error", err.Error()))
		return nil
	}

	label := payload.Label
	if !models.ValidLabel(label) {
		label = string(models.LabelNeutral)
	}
	return &Classification{
		Label:             models.SentimentLabel(label),
		CrisisProbability: models.Clamp(payload.CrisisProbability),
		Rationale:         payload.Rationale,
	}
}

// Ping performs a lightweight reachability probe, used by the health monitor.
func (c *Classifier) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.client.ListModels(ctx)
	return err
}
