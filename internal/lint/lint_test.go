package lint

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsmithery/internal/functions"
	"mailsmithery/internal/models"
)

const goodMJML = `<mjml>
  <mj-head><mj-preview>Your account is ready</mj-preview></mj-head>
  <mj-body background-color="#ffffff">
    <mj-section data-id="hero-1">
      <mj-column>
        <mj-image data-id="logo" src="https://cdn.test/logo.png" alt="Acme" width="120px" />
        <mj-text data-id="title" color="#111111"><h1>Welcome</h1><h2>Next steps</h2></mj-text>
        <mj-button data-id="cta" href="https://acme.test" background-color="#0C7C59" color="#ffffff">Start</mj-button>
      </mj-column>
    </mj-section>
    <mj-section data-id="footer-1">
      <mj-column><mj-text color="#555555"><a href="{{unsubscribe}}">Unsubscribe</a></mj-text></mj-column>
    </mj-section>
  </mj-body>
</mjml>`

const goodHTML = `<!doctype html><html><body><div style="color:#111"><h1>Welcome</h1><h2>Next steps</h2><a href="x">Unsubscribe</a></div></body></html>`

func TestLintCleanTemplate(t *testing.T) {
	res, err := New(nil).Lint(context.Background(), models.LintRequest{
		MJML: goodMJML, HTML: goodHTML, Subject: "Welcome to Acme",
	})
	require.NoError(t, err)

	assert.Empty(t, res.Errors)
	assert.Empty(t, res.Warnings)
	assert.Empty(t, res.Suggestions)
	assert.Equal(t, 100.0, res.Accessibility.AltTextCoverage)
	assert.Empty(t, res.Accessibility.ContrastIssues)
	assert.Empty(t, res.Accessibility.HeadingStructure)
	assert.True(t, res.Deliverability.HasUnsubscribe)
	assert.True(t, res.Deliverability.InlineStyles)
	assert.Equal(t, "A", res.Performance.SizeGrade)
}

func TestLintSizeMatchesHTMLLength(t *testing.T) {
	tests := []struct {
		kb    int
		grade string
	}{
		{10, "A"}, {60, "B"}, {90, "C"}, {110, "D"},
	}
	for _, tc := range tests {
		html := goodHTML + strings.Repeat("x", tc.kb*1024-len(goodHTML)+7)
		res, err := New(nil).Lint(context.Background(), models.LintRequest{MJML: goodMJML, HTML: html, Subject: "Hi"})
		require.NoError(t, err)

		want := float64(len(html)) / 1024
		assert.LessOrEqual(t, math.Abs(res.Performance.SizeKB-want), 0.005, "sizeKB for %d KB", tc.kb)
		assert.Equal(t, tc.grade, res.Performance.SizeGrade)
	}
}

func TestLintGmailClipIsAnError(t *testing.T) {
	html := goodHTML + strings.Repeat("x", 103*1024)
	res, err := New(nil).Lint(context.Background(), models.LintRequest{MJML: goodMJML, HTML: html, Subject: "Hi"})
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "size", res.Errors[0].Type)
}

func TestLintFindsProblems(t *testing.T) {
	src := `<mjml><mj-body background-color="#ffffff">
  <mj-section data-id="hero-1" background-color="#eeeeee">
    <mj-column>
      <mj-image data-id="banner" src="http://cdn.test/banner.gif" />
      <mj-image data-id="spacer" src="https://cdn.test/s.png" alt="" width="1px" />
      <mj-text data-id="faint" color="#cccccc"><h2>Sale</h2><h4>Details</h4><img src="x.png"></mj-text>
      <mj-button data-id="go">Buy</mj-button>
    </mj-column>
  </mj-section>
</mj-body></mjml>`
	html := `<html><head><style>.a{color:red}</style></head><body><h2>Sale</h2><h4>Details</h4></body></html>`

	res, err := New(nil).Lint(context.Background(), models.LintRequest{
		MJML: src, HTML: html, Subject: "FREE stuff!! Act now, this is a very long subject line that keeps going",
	})
	require.NoError(t, err)

	types := map[string]int{}
	for _, e := range res.Errors {
		types[e.Type]++
	}
	assert.Equal(t, 2, types["accessibility"], "missing alt on mj-image and inline img")
	assert.Equal(t, 1, types["link"], "button without href")
	assert.Equal(t, 1, types["deliverability"], "no unsubscribe")

	assert.Equal(t, 0.0, res.Accessibility.AltTextCoverage)
	require.Len(t, res.Accessibility.ContrastIssues, 1)
	assert.Equal(t, "mj-text#faint", res.Accessibility.ContrastIssues[0].Element)
	assert.Less(t, res.Accessibility.ContrastIssues[0].Ratio, 4.5)

	var headingIssues []string
	for _, h := range res.Accessibility.HeadingStructure {
		headingIssues = append(headingIssues, h.Issue)
	}
	assert.Contains(t, headingIssues, "Missing <h1>")
	assert.Contains(t, headingIssues, "Heading level skips from h2 to h4")

	assert.Len(t, res.Performance.ImageOptimization, 3, "width, https and gif notes for the banner")
	assert.False(t, res.Deliverability.HasUnsubscribe)
	assert.False(t, res.Deliverability.InlineStyles)
	assert.GreaterOrEqual(t, len(res.Deliverability.Issues), 4)

	var suggestionTypes []string
	for _, s := range res.Suggestions {
		suggestionTypes = append(suggestionTypes, s.Type)
	}
	assert.ElementsMatch(t, []string{"subject", "preheader"}, suggestionTypes)
}

type fakeCompiler struct{ html string }

func (f fakeCompiler) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	return &models.CompileResult{HTML: f.html, Size: len(f.html)}, nil
}

func TestLintCompilesWhenHTMLMissing(t *testing.T) {
	res, err := New(fakeCompiler{html: goodHTML}).Lint(context.Background(), models.LintRequest{MJML: goodMJML, Subject: "Hi"})
	require.NoError(t, err)
	assert.True(t, res.Deliverability.InlineStyles)
	assert.Greater(t, res.Performance.SizeKB, 0.0)
}

func TestLintMalformedMJML(t *testing.T) {
	_, err := New(nil).Lint(context.Background(), models.LintRequest{MJML: "<mjml><mj-body>"})
	assert.True(t, errors.Is(err, functions.ErrCollaborator))
}

func TestLintParsesInlineHTML(t *testing.T) {
	src := `<mjml><mj-body>
  <mj-section data-id="hero-1"><mj-column>
    <mj-text data-id="copy"><h1>Hi</h1><img src=x.png alt=Logo><!-- <img src="old.png"> --><IMG SRC="y.png" ALT='Chart'></mj-text>
    <mj-text data-id="legal"><a href="https://acme.test/prefs?opt-out=1">Email preferences</a></mj-text>
  </mj-column></mj-section>
</mj-body></mjml>`

	res, err := New(nil).Lint(context.Background(), models.LintRequest{MJML: src, Subject: "Hi", Preheader: "Hello"})
	require.NoError(t, err)

	for _, e := range res.Errors {
		assert.NotEqual(t, "accessibility", e.Type, "unexpected: %s", e.Message)
	}
	assert.Equal(t, 100.0, res.Accessibility.AltTextCoverage, "commented-out images do not count")
	assert.Empty(t, res.Accessibility.HeadingStructure, "headings come from the inline markup without compiled html")
	assert.True(t, res.Deliverability.HasUnsubscribe, "opt-out link found by its target")
	assert.False(t, res.Deliverability.InlineStyles)
}

func TestContrastRatio(t *testing.T) {
	black, _ := parseColor("#000")
	white, _ := parseColor("rgb(255, 255, 255)")
	assert.InDelta(t, 21.0, contrastRatio(black, white), 0.01)
	assert.InDelta(t, 1.0, contrastRatio(white, white), 0.001)

	_, ok := parseColor("papayawhip")
	assert.False(t, ok)
	_, ok = parseColor("#12345")
	assert.False(t, ok)
}
