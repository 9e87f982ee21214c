package planner

import (
	"fmt"
	"strings"

	"mailsmithery/internal/models"
)

const systemPrompt = `You design marketing and transactional emails in MJML 4.

Answer with one JSON object and nothing else:
{
  "meta": {"subject": string, "preheader": string, "tone": string},
  "sections": [{"id": string, "type": string, "props": object}],
  "mjml": string
}

Rules:
- "mjml" is a complete <mjml> document with <mj-head> and <mj-body>.
- Every direct child of <mj-body> is an mj-section, mj-wrapper or mj-hero
  carrying data-id and data-type attributes.
- data-type is one of: header, hero, content, products, footer, testimonial, cta.
- data-id is "<type>-<n>", unique in the document, and matches the
  corresponding entry of "sections" in the same order.
- Put a data-id on every mj-text, mj-button and mj-image as well.
- "props" holds the section's editable copy (headline, body, cta label, urls).
- Use only the brand colors, font stack and radius you are given.
- Every mj-image has a meaningful alt attribute and an explicit width.
- The footer contains an unsubscribe link.
- Keep the compiled email well under 100KB.`

func userPrompt(req models.PlanRequest, brand models.BrandTokens) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Email type: %s\n", req.EmailType)
	if req.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	}
	if req.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", req.Tone)
	}
	b.WriteString("\nBrand:\n")
	fmt.Fprintf(&b, "- primary color: %s\n", brand.Primary)
	fmt.Fprintf(&b, "- secondary color: %s\n", brand.Secondary)
	fmt.Fprintf(&b, "- text color: %s\n", brand.Text)
	fmt.Fprintf(&b, "- background color: %s\n", brand.Background)
	fmt.Fprintf(&b, "- font stack: %s\n", brand.FontStack)
	fmt.Fprintf(&b, "- corner radius: %s\n", brand.RadiusPx())
	if brand.LogoLight != "" {
		fmt.Fprintf(&b, "- logo: %s\n", brand.LogoLight)
	}
	if p := strings.TrimSpace(req.Prompt); p != "" {
		fmt.Fprintf(&b, "\nInstructions:\n%s\n", p)
	}
	return b.String()
}

// planSchema is the shape a model answer must have before it is decoded.
const planSchema = `{
  "type": "object",
  "required": ["mjml"],
  "properties": {
    "meta": {
      "type": "object",
      "properties": {
        "emailType": {"type": "string"},
        "subject": {"type": "string"},
        "preheader": {"type": "string"},
        "tone": {"type": "string"}
      }
    },
    "sections": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "type": {"enum": ["header", "hero", "content", "products", "footer", "testimonial", "cta"]},
          "props": {"type": "object"}
        }
      }
    },
    "mjml": {"type": "string", "minLength": 1, "pattern": "<mjml"}
  }
}`
