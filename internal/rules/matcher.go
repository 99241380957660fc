// Package rules loads content rules from a directory of YAML/JSON documents
// and matches text against them. The directory is the source of truth; the
// in-memory list is a cache invalidated by file modification time.
package rules

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ClaudioL888/empathia/internal/models"
)

type Matcher struct {
	path string

	mu          sync.RWMutex
	rules       []models.RuleDefinition
	fingerprint map[string]time.Time
}

func NewMatcher(path string) *Matcher {
	if path == "" {
		path = os.Getenv("RULES_PATH")
	}
	if path == "" {
		path = "./rules"
	}
	m := &Matcher{path: path}
	m.Reload()
	return m
}

func ruleFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}

// Reload rebuilds the whole rule list from disk and swaps it in atomically;
// concurrent matches keep reading the previous list until the swap. A missing
// rules directory degrades to an empty rule set with a warning.
func (m *Matcher) Reload() {
	var rules []models.RuleDefinition
	fingerprint := make(map[string]time.Time)

	if _, err := os.Stat(m.path); err != nil {
		slog.Warn("[RuleMatcher] Rules path missing, running with empty rule set",
			slog.String("path", m.path))
		m.mu.Lock()
		m.rules, m.fingerprint = nil, fingerprint
		m.mu.Unlock()
		return
	}

	filepath.WalkDir(m.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !ruleFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			slog.Warn("[RuleMatcher] Failed to read rule file",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		var doc models.RuleDocument
		if strings.EqualFold(filepath.Ext(path), ".json") {
			err = json.Unmarshal(data, &doc)
		} else {
			err = yaml.Unmarshal(data, &doc)
		}
		if err != nil {
			slog.Warn("[RuleMatcher] Skipping unparsable rule file",
				slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}

		for _, rule := range doc.Rules {
			rule.SourceFile = path
			rules = append(rules, rule)
		}
		fingerprint[path] = info.ModTime()
		return nil
	})

	m.mu.Lock()
	m.rules, m.fingerprint = rules, fingerprint
	m.mu.Unlock()

	slog.Info("[RuleMatcher] Rules loaded",
		slog.Int("count", len(rules)),
		slog.String("path", m.path))
}

// reloadIfChanged re-stats the rule files and triggers a full reload when any
// fingerprint differs. Reload is all-or-nothing, never per-file incremental.
func (m *Matcher) reloadIfChanged() {
	if _, err := os.Stat(m.path); err != nil {
		return
	}

	m.mu.RLock()
	fingerprint := m.fingerprint
	m.mu.RUnlock()

	changed := false
	filepath.WalkDir(m.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || changed || d.IsDir() || !ruleFile(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if !fingerprint[path].Equal(info.ModTime()) {
			changed = true
		}
		return nil
	})

	if changed {
		m.Reload()
	}
}

// Match tests text against every rule in definition order. A rule fires when
// at least one pattern matches; all matching pattern values become its
// evidence, so a firing rule never has empty evidence.
func (m *Matcher) Match(text string) []models.RuleMatch {
	m.reloadIfChanged()

	m.mu.RLock()
	rules := m.rules
	m.mu.RUnlock()

	textLower := strings.ToLower(text)
	var matches []models.RuleMatch
	for _, rule := range rules {
		var evidence []string
		for _, pattern := range rule.Patterns {
			value := pattern.Value
			if value == "" {
				continue
			}
			ptype := pattern.Type
			if ptype == "" {
				ptype = "contains"
			}
			switch ptype {
			case "contains":
				if strings.Contains(textLower, strings.ToLower(value)) {
					evidence = append(evidence, value)
				}
			case "regex":
				re, err := regexp.Compile("(?i)" + value)
				if err != nil {
					slog.Warn("[RuleMatcher] Invalid regex pattern",
						slog.String("rule_id", rule.ID), slog.String("pattern", value))
					continue
				}
				if re.MatchString(text) {
					evidence = append(evidence, value)
				}
			}
		}
		if len(evidence) > 0 {
			action := rule.Action
			if action == "" {
				action = models.ActionReview
			}
			severity := rule.Severity
			if severity == "" {
				severity = models.SeverityMedium
			}
			matches = append(matches, models.RuleMatch{
				RuleID:      rule.ID,
				Description: rule.Description,
				Action:      action,
				Severity:    severity,
				Tags:        rule.Tags,
				Evidence:    evidence,
				Metadata:    map[string]any{"source_file": rule.SourceFile},
			})
		}
	}
	return matches
}
