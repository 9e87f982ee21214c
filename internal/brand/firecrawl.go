// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package brand

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
)

// funcExtract names brand extraction failures for callers and metrics.
const funcExtract = "extract-brand"

// Page is what a scrape returns.
type Page struct {
	HTML     string
	Markdown string
	Metadata models.PageMetadata // Domain is left empty
}

// Firecrawl scrapes pages with the Firecrawl v1 API.
type Firecrawl struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewFirecrawl creates a scraper. An empty baseURL uses the public API.
func NewFirecrawl(apiKey, baseURL string) *Firecrawl {
	if baseURL == "" {
		baseURL = "https://api.firecrawl.dev"
	}
	return &Firecrawl{
		apiKey:  apiKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type scrapeRequest struct {
	URL               string   `json:"url"`
	OnlyMainContent   bool     `json:"onlyMainContent"`
	Mobile            bool     `json:"mobile"`
	IncludeTags       []string `json:"includeTags"`
	WaitFor           int      `json:"waitFor"`
	RemoveBase64Image bool     `json:"removeBase64Images"`
	BlockAds          bool     `json:"blockAds"`
	Timeout           int      `json:"timeout"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Data    struct {
		HTML     string   `json:"html"`
		Markdown string   `json:"markdown"`
		Metadata models.PageMetadata `json:"metadata"`
	} `json:"data"`
}

// Scrape fetches url through Firecrawl.
func (f *Firecrawl) Scrape(ctx context.Context, url string) (_ *Page, err error) {
	started := time.Now()
	defer func() { metrics.ObserveCollaborator("firecrawl", started, err) }()

	payload, err := json.Marshal(scrapeRequest{
		URL:         url,
		IncludeTags: []string{"title", "meta", "h1", "h2", "h3", "img", "a", "p", "div", "nav", "header", "footer"},
		WaitFor:     3000,
		BlockAds:    true,
		Timeout:     30000,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal scrape request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/v1/scrape", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build scrape request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, scrapeError(0, err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, scrapeError(0, err.Error())
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, scrapeError(resp.StatusCode, "Firecrawl API error: "+strings.TrimSpace(string(body)))
	}

	var sr scrapeResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, scrapeError(resp.StatusCode, "Firecrawl returned malformed JSON")
	}
	if !sr.Success {
		msg := sr.Error
		if msg == "" {
			msg = "Unknown error"
		}
		return nil, scrapeError(resp.StatusCode, "Firecrawl scraping failed: "+msg)
	}
	return &Page{HTML: sr.Data.HTML, Markdown: sr.Data.Markdown, Metadata: sr.Data.Metadata}, nil
}

func scrapeError(status int, msg string) error {
	return &functions.Error{Function: funcExtract, Code: "BRAND_EXTRACTION_FAILED", Message: msg, Status: status}
}
