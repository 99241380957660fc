package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

var keywordTokenPattern = regexp.MustCompile(`[a-z]{4,}`)

// KeywordSuggester derives short event keywords from text: classifier first,
// local token heuristic as fallback.
type KeywordSuggester struct {
	client  *openai.Client
	model   string
	enabled bool
}

func NewKeywordSuggester(cfg ClassifierConfig) *KeywordSuggester {
	s := &KeywordSuggester{
		model:   cfg.Model,
		enabled: cfg.Enabled && cfg.BaseURL != "" && cfg.APIKey != "",
	}
	if !s.enabled {
		return s
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	s.client = openai.NewClientWithConfig(clientCfg)
	return s
}

// Suggest returns up to maxKeywords short keywords. Never empty: the fallback
// produces at least ["general"].
func (s *KeywordSuggester) Suggest(ctx context.Context, text string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		maxKeywords = 3
	}
	if s.enabled {
		if keywords := s.suggestWithLLM(ctx, text, maxKeywords); len(keywords) > 0 {
			return keywords
		}
	}
	return fallbackKeywords(text, maxKeywords)
}

// SuggestForTexts merges the suggestions for several texts into one list,
// deduplicated in first-seen order and capped at maxKeywords.
func (s *KeywordSuggester) SuggestForTexts(ctx context.Context, texts []string, maxKeywords int) []string {
	if maxKeywords <= 0 {
		maxKeywords = 3
	}
	seen := make(map[string]struct{})
	var merged []string
	for _, text := range texts {
		for _, kw := range s.Suggest(ctx, text, maxKeywords) {
			if _, ok := seen[kw]; ok {
				continue
			}
			seen[kw] = struct{}{}
			merged = append(merged, kw)
		}
	}
	if len(merged) > maxKeywords {
		merged = merged[:maxKeywords]
	}
	return merged
}

func (s *KeywordSuggester) suggestWithLLM(ctx context.Context, text string, maxKeywords int) []string {
	prompt := fmt.Sprintf("Extract concise event keywords (1-3 words each) from the USER content. "+
		"Return up to %d keywords that best summarize the main event/topic. "+
		`Respond strictly as JSON: {"keywords": ["..."]}`, maxKeywords)

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Warn("[KeywordSuggester] LLM suggestion failed",
			slog.String("error", err.Error()))
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	var payload struct {
		Keywords []string `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		slog.Warn("[KeywordSuggester] Malformed suggestion payload",
			slog.String("error", err.Error()))
		return nil
	}

	var cleaned []string
	for _, kw := range payload.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			cleaned = append(cleaned, kw)
		}
		if len(cleaned) == maxKeywords {
			break
		}
	}
	return cleaned
}

func fallbackKeywords(text string, maxKeywords int) []string {
	tokens := keywordTokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{})
	var keywords []string
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		keywords = append(keywords, token)
		if len(keywords) == maxKeywords {
			break
		}
	}
	if len(keywords) == 0 {
		return []string{"general"}
	}
	return keywords
}
