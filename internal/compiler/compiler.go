// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package compiler turns MJML into email HTML in-process.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Boostport/mjml-go"

	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
)

// MJML compiles with the embedded mjml runtime.
type MJML struct {
	minify bool
}

// New returns a compiler. Output is minified unless minify is false.
func New(minify bool) *MJML {
	return &MJML{minify: minify}
}

// Compile renders src. MJML validation findings become warnings when HTML
// was still produced; otherwise they fail the call.
func (c *MJML) Compile(ctx context.Context, src string) (_ *models.CompileResult, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("compiler", started, err) }()

	if strings.TrimSpace(src) == "" {
		return nil, compileError("mjml is empty")
	}

	html, err := mjml.ToHTML(ctx, src, mjml.WithMinify(c.minify))
	var mjmlErr mjml.Error
	switch {
	case err == nil:
	case errors.As(err, &mjmlErr) && html != "":
		return &models.CompileResult{HTML: html, Size: len(html), Warnings: details(mjmlErr)}, nil
	case errors.As(err, &mjmlErr):
		msg := mjmlErr.Message
		if d := details(mjmlErr); len(d) > 0 {
			msg += ": " + strings.Join(d, "; ")
		}
		return nil, compileError(msg)
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, fmt.Errorf("compile mjml: %w", err)
	}

	return &models.CompileResult{HTML: html, Size: len(html), Warnings: []string{}}, nil
}

func details(e mjml.Error) []string {
	out := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		if d.TagName != "" {
			out = append(out, fmt.Sprintf("line %d <%s>: %s", d.Line, d.TagName, d.Message))
		} else {
			out = append(out, fmt.Sprintf("line %d: %s", d.Line, d.Message))
		}
	}
	return out
}

func compileError(msg string) error {
	return &functions.Error{Function: functions.FuncCompile, Code: "invalid_mjml", Message: msg, Status: 422}
}
