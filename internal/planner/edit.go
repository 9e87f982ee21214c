// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"mailsmithery/internal/ai"
	"mailsmithery/internal/editops"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
)

const editSystemPrompt = `You edit MJML email templates by emitting edit operations.

Answer with one JSON object and nothing else:
{"ops": [operation, ...], "notes": string}

Operations address elements by their data-id:
- {"op":"update-attr","targetId":id,"path":"mj-button.href","value":string}
- {"op":"update-style","targetId":id,"path":"mj-text.font-size","value":string}
- {"op":"replace-text","targetId":id,"value":string}
- {"op":"insert-after"|"insert-before","targetId":id,"nodeMjml":string}
- {"op":"replace-node","targetId":id,"nodeMjml":string}
- {"op":"remove","targetId":id}
- {"op":"reorder","targetId":id,"index":number}
- {"op":"apply-theme","theme":{"primary","secondary","text","background","fontStack","radius"}}

Rules:
- Only use data-ids that exist in the template.
- New nodes in nodeMjml are a single element and carry fresh, unique data-ids.
- Make the smallest set of operations that fulfils the instruction.
- "notes" is one sentence describing the change for the user.`

// Edit turns a free-text instruction into edit operations and applies
// them to req.Plan. Operations in req.Ops are applied first.
func (a *AI) Edit(ctx context.Context, req models.EditRequest) (_ *models.TemplateEdit, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("ai-editor", started, err) }()

	if req.Plan == nil {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidRequest)
	}
	base := req.Plan
	if len(req.Ops) > 0 {
		if base, err = editops.Apply(base, req.Ops); err != nil {
			return nil, err
		}
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return &models.TemplateEdit{TargetTemplateID: req.TemplateID.String(), Ops: req.Ops, MJML: base.MJML}, nil
	}

	res, err := a.llm.CheckPrompt(ctx, prompt)
	if err == nil && !res.Safe {
		return nil, fmt.Errorf("%w: %s", ErrUnsafePrompt, strings.Join(res.Categories, ", "))
	}

	text, err := a.llm.Complete(ctx, ai.Request{
		System: editSystemPrompt,
		User:   fmt.Sprintf("Template:\n%s\n\nInstruction:\n%s\n", base.MJML, prompt),
		JSON:   true,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &functions.Error{Function: functions.FuncEdit, Code: "provider", Message: err.Error(), Status: 502}
	}

	raw := extractJSON(text)
	result, err := a.editSchema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil || !result.Valid() {
		return nil, editOutput("response is not a list of edit operations")
	}
	var answer struct {
		Ops   []models.EditOperation `json:"ops"`
		Notes string                 `json:"notes"`
	}
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return nil, editOutput("response is not a list of edit operations")
	}

	out, err := editops.Apply(base, answer.Ops)
	if err != nil {
		return nil, editOutput("proposed edits could not be applied: " + err.Error())
	}
	return &models.TemplateEdit{
		TargetTemplateID: req.TemplateID.String(),
		Ops:              append(append([]models.EditOperation{}, req.Ops...), answer.Ops...),
		MJML:             out.MJML,
		Notes:            answer.Notes,
	}, nil
}

func editOutput(msg string) error {
	return &functions.Error{Function: functions.FuncEdit, Code: "bad_output", Message: msg, Status: 502}
}

const editSchema = `{
  "type": "object",
  "required": ["ops"],
  "properties": {
    "ops": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["op"],
        "properties": {
          "op": {"enum": ["update-attr", "update-style", "replace-text", "insert-after", "insert-before", "remove", "replace-node", "reorder", "apply-theme"]},
          "targetId": {"type": "string"},
          "path": {"type": "string"},
          "value": {"type": "string"},
          "nodeMjml": {"type": "string"},
          "index": {"type": "integer"},
          "theme": {"type": "object"}
        }
      }
    },
    "notes": {"type": "string"}
  }
}`
