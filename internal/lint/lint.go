// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package lint checks compiled templates for accessibility, size and
// deliverability problems. It is the local stand-in for the hosted lint
// function and works from the MJML tree plus the compiled HTML.
package lint

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/mjml"
	"mailsmithery/internal/models"
)

// Size thresholds in KB. Gmail clips messages above 102KB.
const (
	gradeA   = 50
	gradeB   = 75
	gmailCap = 102

	maxSubjectLen   = 60
	maxPreheaderLen = 100
)

// Compiler produces HTML when a lint request carries none.
type Compiler interface {
	Compile(ctx context.Context, mjml string) (*models.CompileResult, error)
}

// Linter derives a LintResult from a template.
type Linter struct {
	compiler Compiler // optional
}

// New returns a linter. compiler may be nil.
func New(compiler Compiler) *Linter {
	return &Linter{compiler: compiler}
}

var (
	unsubscribeRe = regexp.MustCompile(`(?i)unsubscribe|opt[- ]?out`)
	spamWordsRe   = regexp.MustCompile(`(?i)\b(free|act now|limited time|winner|guaranteed|100% off|click here)\b`)
)

const headingSelector = "h1, h2, h3, h4, h5, h6"

// Lint analyses req. Malformed MJML is reported as a failed call; every
// other finding ends up in the result.
func (l *Linter) Lint(ctx context.Context, req models.LintRequest) (_ *models.LintResult, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("linter", started, err) }()

	root, err := mjml.Parse(req.MJML)
	if err != nil {
		return nil, &functions.Error{Function: functions.FuncLint, Code: "invalid_mjml", Message: err.Error(), Status: 422}
	}

	html := req.HTML
	if html == "" && l.compiler != nil {
		compiled, err := l.compiler.Compile(ctx, req.MJML)
		if err != nil {
			return nil, err
		}
		html = compiled.HTML
	}

	// inline holds the raw HTML authored inside mj-text and friends; page
	// is the compiled document, or inline when there is none.
	inline, err := goquery.NewDocumentFromReader(strings.NewReader(rawContent(root)))
	if err != nil {
		return nil, fmt.Errorf("parse inline html: %w", err)
	}
	page := inline
	if html != "" {
		if page, err = goquery.NewDocumentFromReader(strings.NewReader(html)); err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
	}

	r := &report{res: &models.LintResult{
		Errors:      []models.LintIssue{},
		Warnings:    []models.LintIssue{},
		Suggestions: []models.LintIssue{},
		Accessibility: models.AccessibilityReport{
			ContrastIssues:   []models.ContrastIssue{},
			HeadingStructure: []models.HeadingIssue{},
		},
		Performance:    models.PerformanceReport{ImageOptimization: []string{}},
		Deliverability: models.DeliverabilityReport{Issues: []string{}},
	}}

	r.images(root, inline)
	r.contrast(root)
	r.headings(page)
	r.links(root)
	r.size(html)
	r.deliverability(req, inline, page, html != "")
	r.copy(req, root)
	return r.res, nil
}

type report struct {
	res *models.LintResult
}

func (r *report) errorf(typ, loc, fix, format string, args ...any) {
	r.res.Errors = append(r.res.Errors, models.LintIssue{Type: typ, Message: fmt.Sprintf(format, args...), Location: loc, Fix: fix})
}

func (r *report) warnf(typ, loc, fix, format string, args ...any) {
	r.res.Warnings = append(r.res.Warnings, models.LintIssue{Type: typ, Message: fmt.Sprintf(format, args...), Location: loc, Fix: fix})
}

func (r *report) suggest(typ, loc, msg string) {
	r.res.Suggestions = append(r.res.Suggestions, models.LintIssue{Type: typ, Message: msg, Location: loc})
}

// location names a node for humans: its data-id when present.
func location(n *mjml.Node) string {
	if id := n.ID(); id != "" {
		return n.Tag + "#" + id
	}
	return n.Tag
}

// rawContent concatenates the inner markup of every ending tag.
func rawContent(root *mjml.Node) string {
	var b strings.Builder
	root.Walk(func(n *mjml.Node) bool {
		if n.IsElement() && mjml.IsEndingTag(n.Tag) {
			b.WriteString(n.Content)
			b.WriteByte('\n')
		}
		return true
	})
	return b.String()
}

func (r *report) images(root *mjml.Node, inline *goquery.Document) {
	total, covered := 0, 0
	for _, img := range root.FindAll("mj-image") {
		total++
		loc := location(img)
		alt, ok := img.Attr("alt")
		switch {
		case !ok:
			r.errorf("accessibility", loc, `add alt="..." describing the image`, "Image is missing alt text")
		case strings.TrimSpace(alt) == "":
			r.warnf("accessibility", loc, "describe the image unless it is purely decorative", "Image has empty alt text")
		default:
			covered++
		}

		src, _ := img.Attr("src")
		if _, ok := img.Attr("width"); !ok {
			r.res.Performance.ImageOptimization = append(r.res.Performance.ImageOptimization,
				fmt.Sprintf("%s: set an explicit width to avoid layout shifts in Outlook", loc))
		}
		if src != "" && strings.HasPrefix(strings.ToLower(src), "http://") {
			r.res.Performance.ImageOptimization = append(r.res.Performance.ImageOptimization,
				fmt.Sprintf("%s: serve the image over https", loc))
		}
		if strings.HasSuffix(strings.ToLower(strings.SplitN(src, "?", 2)[0]), ".gif") {
			r.res.Performance.ImageOptimization = append(r.res.Performance.ImageOptimization,
				fmt.Sprintf("%s: animated GIFs are heavy; keep them under 1MB", loc))
		}
	}

	// Raw <img> tags inside mj-text and mj-raw.
	inline.Find("img").Each(func(_ int, img *goquery.Selection) {
		total++
		alt, ok := img.Attr("alt")
		if !ok {
			r.errorf("accessibility", "img", `add alt="..." describing the image`, "Inline image is missing alt text")
			return
		}
		if strings.TrimSpace(alt) != "" {
			covered++
		}
	})

	r.res.Accessibility.AltTextCoverage = 100
	if total > 0 {
		r.res.Accessibility.AltTextCoverage = round2(float64(covered) / float64(total) * 100)
	}
}

// background walks up from n to the nearest ancestor declaring a
// background color.
func background(n *mjml.Node) string {
	for p := n.Parent(); p != nil; p = p.Parent() {
		switch p.Tag {
		case "mj-column", "mj-section", "mj-wrapper", "mj-hero", "mj-body":
			if bg, ok := p.Attr("background-color"); ok && bg != "" {
				return bg
			}
		}
	}
	return "#ffffff"
}

func (r *report) contrast(root *mjml.Node) {
	check := func(n *mjml.Node, fg, bg string) {
		fc, ok1 := parseColor(fg)
		bc, ok2 := parseColor(bg)
		if !ok1 || !ok2 {
			return
		}
		ratio := round2(contrastRatio(fc, bc))
		if ratio >= minContrast {
			return
		}
		loc := location(n)
		rec := fmt.Sprintf("Increase contrast between %s and %s to at least %.1f:1", fg, bg, minContrast)
		r.res.Accessibility.ContrastIssues = append(r.res.Accessibility.ContrastIssues,
			models.ContrastIssue{Element: loc, Ratio: ratio, Recommendation: rec})
		r.warnf("contrast", loc, rec, "Text contrast ratio %.2f:1 is below %.1f:1", ratio, minContrast)
	}

	for _, n := range root.FindAll("mj-text") {
		fg, ok := n.Attr("color")
		if !ok {
			fg = "#000000"
		}
		check(n, fg, background(n))
	}
	for _, n := range root.FindAll("mj-button") {
		fg, ok := n.Attr("color")
		if !ok {
			fg = "#ffffff"
		}
		bg, ok := n.Attr("background-color")
		if !ok {
			bg = "#414141"
		}
		check(n, fg, bg)
	}
}

func (r *report) headings(page *goquery.Document) {
	var levels []int
	page.Find(headingSelector).Each(func(_ int, h *goquery.Selection) {
		levels = append(levels, int(goquery.NodeName(h)[1]-'0'))
	})

	add := func(issue, rec string) {
		r.res.Accessibility.HeadingStructure = append(r.res.Accessibility.HeadingStructure,
			models.HeadingIssue{Issue: issue, Recommendation: rec})
	}
	if len(levels) == 0 {
		add("No headings found", "Use an <h1> for the main message so screen readers can navigate")
		return
	}
	h1 := 0
	for _, l := range levels {
		if l == 1 {
			h1++
		}
	}
	switch {
	case h1 == 0:
		add("Missing <h1>", "Mark the main headline as <h1>")
	case h1 > 1:
		add(fmt.Sprintf("%d <h1> elements", h1), "Keep a single <h1> and demote the rest")
	}
	for i := 1; i < len(levels); i++ {
		if levels[i] > levels[i-1]+1 {
			add(fmt.Sprintf("Heading level skips from h%d to h%d", levels[i-1], levels[i]),
				fmt.Sprintf("Use h%d before h%d", levels[i-1]+1, levels[i]))
		}
	}
}

func (r *report) links(root *mjml.Node) {
	for _, n := range root.FindAll("mj-button") {
		href, _ := n.Attr("href")
		switch strings.TrimSpace(href) {
		case "":
			r.errorf("link", location(n), "set href on the button", "Button has no link")
		case "#":
			r.warnf("link", location(n), "replace the placeholder with a real URL", "Button links to a placeholder")
		}
	}
}

func (r *report) size(html string) {
	kb := round2(float64(len(html)) / 1024)
	perf := &r.res.Performance
	perf.SizeKB = kb
	switch {
	case kb < gradeA:
		perf.SizeGrade = "A"
	case kb < gradeB:
		perf.SizeGrade = "B"
	case kb < gmailCap:
		perf.SizeGrade = "C"
	default:
		perf.SizeGrade = "D"
	}
	switch {
	case kb >= gmailCap:
		r.errorf("size", "", "remove sections or compress copy", "Email is %.2fKB; Gmail clips messages over %dKB", kb, gmailCap)
	case kb >= gradeB:
		r.warnf("size", "", "trim markup to stay clear of Gmail's clipping limit", "Email is %.2fKB, close to Gmail's %dKB limit", kb, gmailCap)
	}
}

func (r *report) deliverability(req models.LintRequest, inline, page *goquery.Document, compiled bool) {
	d := &r.res.Deliverability
	d.HasUnsubscribe = hasUnsubscribe(page) || hasUnsubscribe(inline)
	if !d.HasUnsubscribe {
		d.Issues = append(d.Issues, "No unsubscribe link")
		r.errorf("deliverability", "footer", "add an unsubscribe link to the footer", "Email has no unsubscribe link")
	}

	if compiled {
		page.Find("[style]").EachWithBreak(func(_ int, el *goquery.Selection) bool {
			style, _ := el.Attr("style")
			d.InlineStyles = strings.TrimSpace(style) != ""
			return !d.InlineStyles
		})
	}
	if compiled && !d.InlineStyles && page.Find("style").Length() > 0 {
		d.Issues = append(d.Issues, "Styles only in <style> blocks")
		r.warnf("deliverability", "", "inline critical styles", "Some clients strip <style> blocks; styling relies on them alone")
	}

	if m := spamWordsRe.FindString(req.Subject); m != "" {
		d.Issues = append(d.Issues, fmt.Sprintf("Subject contains spam-trigger phrase %q", m))
	}
	if strings.Count(req.Subject, "!") > 1 {
		d.Issues = append(d.Issues, "Subject uses multiple exclamation marks")
	}
}

// hasUnsubscribe looks for an opt-out link by its text or its target.
func hasUnsubscribe(doc *goquery.Document) bool {
	found := false
	doc.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		found = unsubscribeRe.MatchString(a.Text()) || unsubscribeRe.MatchString(href)
		return !found
	})
	return found
}

func (r *report) copy(req models.LintRequest, root *mjml.Node) {
	subject := strings.TrimSpace(req.Subject)
	switch {
	case subject == "":
		r.suggest("subject", "", "Add a subject line")
	case len([]rune(subject)) > maxSubjectLen:
		r.suggest("subject", "", fmt.Sprintf("Shorten the subject to %d characters or fewer so it is not truncated on mobile", maxSubjectLen))
	}

	preheader := strings.TrimSpace(req.Preheader)
	if preheader == "" {
		if p := root.FindTag("mj-preview"); p != nil {
			preheader = p.InnerText()
		}
	}
	switch {
	case preheader == "":
		r.suggest("preheader", "mj-head", "Add a preheader (mj-preview) to control the inbox preview text")
	case len([]rune(preheader)) > maxPreheaderLen:
		r.suggest("preheader", "mj-preview", fmt.Sprintf("Keep the preheader under %d characters", maxPreheaderLen))
	}
}
