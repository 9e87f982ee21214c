package compiler

import (
	"context"
	"errors"
	"strings"
	"testing"

	"mailsmithery/internal/functions"
)

const welcome = `<mjml>
  <mj-body background-color="#FFFFFF">
    <mj-section data-id="hero-1">
      <mj-column>
        <mj-text data-id="hero-1-title" color="#111111">Welcome aboard</mj-text>
        <mj-button data-id="hero-1-cta" href="https://example.com">Get started</mj-button>
      </mj-column>
    </mj-section>
  </mj-body>
</mjml>`

func TestCompileProducesHTML(t *testing.T) {
	res, err := New(true).Compile(context.Background(), welcome)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if !strings.Contains(strings.ToLower(res.HTML), "<!doctype html>") {
		t.Errorf("html does not look like a document: %.80s", res.HTML)
	}
	if !strings.Contains(res.HTML, "Welcome aboard") || !strings.Contains(res.HTML, "https://example.com") {
		t.Error("content missing from html")
	}
	if res.Size != len(res.HTML) {
		t.Errorf("size: got %d, want %d", res.Size, len(res.HTML))
	}
	if res.Warnings == nil {
		t.Error("warnings should be an empty list, not nil")
	}
}

func TestCompileEmpty(t *testing.T) {
	_, err := New(true).Compile(context.Background(), "  ")
	var fe *functions.Error
	if !errors.As(err, &fe) || fe.Code != "invalid_mjml" {
		t.Fatalf("got %v", err)
	}
}
