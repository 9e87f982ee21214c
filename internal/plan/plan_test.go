package plan

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mailsmithery/internal/models"
)

func TestNormalizeAssignsIDsFromPlannerSections(t *testing.T) {
	p := &models.TemplatePlan{
		Meta: models.PlanMeta{Subject: "Hi"},
		Sections: []models.TemplateSection{
			{ID: "top", Type: models.SectionHeader, Props: map[string]any{"logo": true}},
			{ID: "bottom", Type: models.SectionFooter},
		},
		MJML: `<mjml><mj-body><mj-section /><mj-section /></mj-body></mjml>`,
	}

	out, err := Normalize(p)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := []models.TemplateSection{
		{ID: "top", Type: models.SectionHeader, Props: map[string]any{"logo": true}},
		{ID: "bottom", Type: models.SectionFooter, Props: map[string]any{}},
	}
	if diff := cmp.Diff(want, out.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.MJML, `data-id="top" data-type="header"`) {
		t.Errorf("ids not written into mjml:\n%s", out.MJML)
	}
}

func TestNormalizeGeneratesAndDedupesIDs(t *testing.T) {
	p := &models.TemplatePlan{
		MJML: `<mjml><mj-body>
			<mj-hero />
			<mj-section data-id="promo" />
			<mj-section data-id="promo" />
			<mj-section data-type="footer" />
		</mj-body></mjml>`,
	}

	out, err := Normalize(p)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	got := strings.Join(out.SectionIDs(), ",")
	if got != "hero-1,promo,promo-2,footer-1" {
		t.Errorf("ids: got %s", got)
	}
	if out.Sections[0].Type != models.SectionHero || out.Sections[3].Type != models.SectionFooter {
		t.Errorf("types: got %s, %s", out.Sections[0].Type, out.Sections[3].Type)
	}
	if out.Sections[1].Type != models.SectionContent {
		t.Errorf("unknown prefix should default to content, got %s", out.Sections[1].Type)
	}
	if err := CheckConsistent(out); err != nil {
		t.Errorf("normalized plan not consistent: %v", err)
	}
}

func TestNormalizeRejectsUnusableMarkup(t *testing.T) {
	for _, src := range []string{
		"",
		`<mjml><mj-body></mj-body></mjml>`,
		`<mjml><mj-body>`,
	} {
		if _, err := Normalize(&models.TemplatePlan{MJML: src}); !errors.Is(err, ErrInvalidPlan) {
			t.Errorf("Normalize(%q): got %v, want ErrInvalidPlan", src, err)
		}
	}
}

func TestSyncSectionsFollowsAuthoritativeMarkup(t *testing.T) {
	p := &models.TemplatePlan{
		Sections: []models.TemplateSection{
			{ID: "hero-1", Type: models.SectionHero, Props: map[string]any{"headline": "Hello"}},
			{ID: "footer-1", Type: models.SectionFooter, Props: map[string]any{}},
		},
		MJML: `<mjml><mj-body><mj-section data-id="hero-1" /><mj-section data-id="footer-1" /></mj-body></mjml>`,
	}
	edited := `<mjml><mj-body>
		<mj-section data-id="cta-7" background-color="#000" />
		<mj-section data-id="hero-1" />
	</mj-body></mjml>`

	out, err := SyncSections(p, edited)
	if err != nil {
		t.Fatalf("SyncSections: %v", err)
	}
	want := []models.TemplateSection{
		{ID: "cta-7", Type: models.SectionCTA, Props: map[string]any{"background-color": "#000"}},
		{ID: "hero-1", Type: models.SectionHero, Props: map[string]any{"headline": "Hello"}},
	}
	if diff := cmp.Diff(want, out.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if len(p.Sections) != 2 || p.Sections[1].ID != "footer-1" {
		t.Error("input plan was modified")
	}

	dup := `<mjml><mj-body><mj-section data-id="a" /><mj-section data-id="a" /></mj-body></mjml>`
	if _, err := SyncSections(p, dup); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("duplicate ids: got %v, want ErrInvalidPlan", err)
	}
}

func TestCheckConsistentDetectsDrift(t *testing.T) {
	p := &models.TemplatePlan{
		Sections: []models.TemplateSection{{ID: "a"}, {ID: "b"}},
		MJML:     `<mjml><mj-body><mj-section data-id="b" /><mj-section data-id="a" /></mj-body></mjml>`,
	}
	if err := CheckConsistent(p); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("got %v, want ErrInvalidPlan", err)
	}
}

func TestSyncSectionsNamesBlocksWithoutID(t *testing.T) {
	p := &models.TemplatePlan{
		Sections: []models.TemplateSection{
			{ID: "hero-1", Type: models.SectionHero, Props: map[string]any{"headline": "Hello", "background-color": "#000"}},
		},
		MJML: `<mjml><mj-body><mj-section data-id="hero-1" background-color="#000" /></mj-body></mjml>`,
	}
	edited := `<mjml><mj-body>
		<mj-section data-id="hero-1" background-color="#f00" />
		<mj-section data-type="cta" />
		<mj-section />
	</mj-body></mjml>`

	out, err := SyncSections(p, edited)
	if err != nil {
		t.Fatalf("SyncSections: %v", err)
	}
	want := []models.TemplateSection{
		{ID: "hero-1", Type: models.SectionHero, Props: map[string]any{"headline": "Hello", "background-color": "#f00"}},
		{ID: "cta-1", Type: models.SectionCTA, Props: map[string]any{}},
		{ID: "content-1", Type: models.SectionContent, Props: map[string]any{}},
	}
	if diff := cmp.Diff(want, out.Sections); diff != "" {
		t.Errorf("sections mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out.MJML, `data-id="content-1"`) {
		t.Errorf("generated id missing from mjml:\n%s", out.MJML)
	}
	if err := CheckConsistent(out); err != nil {
		t.Errorf("synced plan not consistent: %v", err)
	}
}

func TestCheckConsistentRejectsUnnamedBlocks(t *testing.T) {
	p := &models.TemplatePlan{
		Sections: []models.TemplateSection{{ID: "a"}},
		MJML:     `<mjml><mj-body><mj-section data-id="a" /><mj-section /></mj-body></mjml>`,
	}
	if err := CheckConsistent(p); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("got %v, want ErrInvalidPlan", err)
	}
}
