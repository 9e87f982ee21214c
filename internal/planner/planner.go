// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package planner generates and edits template plans with the configured
// LLM provider. It is the local stand-in for the hosted plan and edit
// functions.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"mailsmithery/internal/ai"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
	"mailsmithery/internal/plan"
)

var (
	// ErrInvalidRequest is returned for requests the planner cannot act on.
	ErrInvalidRequest = errors.New("invalid plan request")
	// ErrUnsafePrompt is returned when moderation flags the instruction.
	ErrUnsafePrompt = errors.New("prompt rejected by moderation")
)

// LLM is the subset of ai.Registry the planner needs.
type LLM interface {
	Complete(ctx context.Context, req ai.Request) (string, error)
	CheckPrompt(ctx context.Context, prompt string) (*ai.ModerationResult, error)
}

// AI plans templates by prompting an LLM for MJML.
type AI struct {
	llm        LLM
	schema     *gojsonschema.Schema
	editSchema *gojsonschema.Schema
}

// New compiles the answer schemas and returns a planner backed by llm.
func New(llm LLM) (*AI, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(planSchema))
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	edit, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(editSchema))
	if err != nil {
		return nil, fmt.Errorf("compile edit schema: %w", err)
	}
	return &AI{llm: llm, schema: schema, editSchema: edit}, nil
}

// Plan generates a normalized plan for req. The returned plan's brand is
// always the requested tokens, whatever the model echoed back.
func (a *AI) Plan(ctx context.Context, req models.PlanRequest) (_ *models.TemplatePlan, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("planner", started, err) }()

	if strings.TrimSpace(req.EmailType) == "" {
		return nil, fmt.Errorf("%w: email type is required", ErrInvalidRequest)
	}
	brand := models.DefaultBrandTokens()
	if req.Brand != nil {
		brand = *req.Brand
	}
	if err := brand.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	if prompt := strings.TrimSpace(req.Prompt); prompt != "" {
		res, err := a.llm.CheckPrompt(ctx, prompt)
		switch {
		case err != nil:
			slog.Warn("prompt moderation unavailable", "error", err)
		case !res.Safe:
			return nil, fmt.Errorf("%w: %s", ErrUnsafePrompt, strings.Join(res.Categories, ", "))
		}
	}

	text, err := a.llm.Complete(ctx, ai.Request{
		System: systemPrompt,
		User:   userPrompt(req, brand),
		JSON:   true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &functions.Error{Function: functions.FuncPlan, Code: "provider", Message: err.Error(), Status: 502}
	}

	raw := extractJSON(text)
	result, err := a.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return nil, badOutput("response is not JSON")
	}
	if !result.Valid() {
		var msgs []string
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, badOutput("response does not match the plan shape: " + strings.Join(msgs, "; "))
	}

	var p models.TemplatePlan
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, badOutput("response does not match the plan shape")
	}
	p.Brand = brand
	p.Meta.EmailType = req.EmailType
	if req.Subject != "" {
		p.Meta.Subject = req.Subject
	}
	if req.Tone != "" {
		p.Meta.Tone = req.Tone
	}

	out, err := plan.Normalize(&p)
	if err != nil {
		return nil, badOutput(err.Error())
	}
	return out, nil
}

func badOutput(msg string) error {
	return &functions.Error{Function: functions.FuncPlan, Code: "bad_output", Message: msg, Status: 502}
}

// extractJSON strips markdown code fences and any prose around the outermost
// JSON object.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if nl := strings.Index(s, "\n"); nl != -1 {
			s = s[nl+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
	if start == -1 || end < start {
		return strings.TrimSpace(s)
	}
	return s[start : end+1]
}
