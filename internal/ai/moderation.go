// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ModerationResult contains the outcome of a prompt safety check.
type ModerationResult struct {
	Safe       bool     // true if the prompt passes moderation
	Categories []string // flagged category names, sorted; empty when safe
}

// Moderator checks free-text instructions before they reach a provider.
type Moderator interface {
	CheckSafety(ctx context.Context, text string) (*ModerationResult, error)
}

// openAIModerator uses POST {base}/moderations, which is free for OpenAI
// key holders.
type openAIModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newOpenAIModerator(apiKey, baseURL string) *openAIModerator {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &openAIModerator{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient(15 * time.Second)}
}

func (m *openAIModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var result moderationResponse
	err := postJSON(ctx, m.client, "openai moderation", m.baseURL+"/moderations",
		map[string]string{"Authorization": "Bearer " + m.apiKey},
		moderationRequest{Model: "omni-moderation-latest", Input: text}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 || !result.Results[0].Flagged {
		return &ModerationResult{Safe: true}, nil
	}
	return &ModerationResult{Safe: false, Categories: flaggedCategories(result.Results[0].Categories)}, nil
}

// mistralModerator uses Mistral's paid POST /v1/moderations endpoint.
type mistralModerator struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func newMistralModerator(apiKey, baseURL string) *mistralModerator {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai"
	}
	baseURL = strings.TrimSuffix(baseURL, "/v1")
	return &mistralModerator{apiKey: apiKey, baseURL: baseURL, client: newHTTPClient(15 * time.Second)}
}

func (m *mistralModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	var result moderationResponse
	err := postJSON(ctx, m.client, "mistral moderation", m.baseURL+"/v1/moderations",
		map[string]string{"Authorization": "Bearer " + m.apiKey},
		moderationRequest{Model: "mistral-moderation-latest", Input: text}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Results) == 0 {
		return &ModerationResult{Safe: true}, nil
	}
	// Mistral has no top-level flag; any flagged category counts.
	flagged := flaggedCategories(result.Results[0].Categories)
	return &ModerationResult{Safe: len(flagged) == 0, Categories: flagged}, nil
}

// fallbackModerator asks the secondary moderator when the primary fails,
// e.g. when a project-scoped OpenAI key is refused by /moderations.
type fallbackModerator struct {
	primary   Moderator
	secondary Moderator
}

func (m *fallbackModerator) CheckSafety(ctx context.Context, text string) (*ModerationResult, error) {
	res, err := m.primary.CheckSafety(ctx, text)
	if err == nil {
		return res, nil
	}
	slog.Warn("primary moderation failed, using fallback", "error", err)
	return m.secondary.CheckSafety(ctx, text)
}

// flaggedCategories turns "hate/threatening" into "hate (threatening)" and
// underscores into spaces.
func flaggedCategories(cats map[string]bool) []string {
	var out []string
	for cat, flagged := range cats {
		if !flagged {
			continue
		}
		display := cat
		if head, tail, ok := strings.Cut(cat, "/"); ok {
			display = head + " (" + tail + ")"
		}
		out = append(out, strings.ReplaceAll(display, "_", " "))
	}
	sort.Strings(out)
	return out
}

// --- moderation wire types, shared by both APIs ---

type moderationRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type moderationResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

type moderationResponse struct {
	Results []moderationResult `json:"results"`
}
