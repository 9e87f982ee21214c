package editor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mailsmithery/internal/editops"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/models"
	"mailsmithery/internal/store"
)

// memStore is an in-memory stand-in for the project, template and version
// stores with the same ownership rules.
type memStore struct {
	mu        sync.Mutex
	projects  map[uuid.UUID]*models.Project
	templates map[uuid.UUID]*models.Template
	versions  []*models.Version
	seq       int64
}

func newMemStore() *memStore {
	return &memStore{projects: map[uuid.UUID]*models.Project{}, templates: map[uuid.UUID]*models.Template{}}
}

func (m *memStore) addProject(userID uuid.UUID) *models.Project {
	p := &models.Project{ID: uuid.New(), UserID: userID, Name: "Acme", BrandTokens: models.DefaultBrandTokens()}
	m.projects[p.ID] = p
	return p
}

type projectRepo struct{ *memStore }

func (r projectRepo) Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	if p, ok := r.projects[id]; ok && p.UserID == userID {
		return p, nil
	}
	return nil, nil
}

type templateRepo struct{ *memStore }

func (r templateRepo) Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error) {
	if t, ok := r.templates[id]; ok && t.UserID == userID {
		return t, nil
	}
	return nil, nil
}

func (r templateRepo) SaveTemplate(ctx context.Context, userID, projectID uuid.UUID, name, typ string, p *models.TemplatePlan, mjml, html string) (*models.SavedTemplate, error) {
	if proj, ok := r.projects[projectID]; !ok || proj.UserID != userID {
		return nil, store.ErrNotFound
	}
	t := &models.Template{ID: uuid.New(), ProjectID: projectID, Name: name, Type: typ, UserID: userID}
	r.templates[t.ID] = t
	v, err := versionRepo(r).RecordVersion(ctx, userID, t.ID, p, mjml, html)
	if err != nil {
		return nil, err
	}
	return &models.SavedTemplate{TemplateID: t.ID, VersionID: v.ID}, nil
}

type versionRepo struct{ *memStore }

func (r versionRepo) RecordVersion(ctx context.Context, userID, templateID uuid.UUID, p *models.TemplatePlan, mjml, html string) (*models.Version, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	r.seq++
	v := &models.Version{ID: uuid.New(), TemplateID: templateID, IRJSON: *p, MJML: mjml, HTML: html, Seq: r.seq, CreatedAt: time.Now()}
	r.versions = append(r.versions, v)
	t.LatestVersionID = &v.ID
	return v, nil
}

func (r versionRepo) List(ctx context.Context, userID, templateID uuid.UUID) ([]*models.Version, error) {
	t, ok := r.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	var out []*models.Version
	for i := len(r.versions) - 1; i >= 0; i-- {
		if r.versions[i].TemplateID == templateID {
			out = append(out, r.versions[i])
		}
	}
	return out, nil
}

func (r versionRepo) Latest(ctx context.Context, userID, templateID uuid.UUID) (*models.Version, error) {
	list, _ := r.List(ctx, userID, templateID)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r versionRepo) Get(ctx context.Context, userID, id uuid.UUID) (*models.Version, error) {
	for _, v := range r.versions {
		if v.ID == id && r.templates[v.TemplateID].UserID == userID {
			return v, nil
		}
	}
	return nil, nil
}

type stubPlanner struct{ last models.PlanRequest }

func (p *stubPlanner) Plan(ctx context.Context, req models.PlanRequest) (*models.TemplatePlan, error) {
	p.last = req
	return &models.TemplatePlan{
		Meta:  models.PlanMeta{EmailType: req.EmailType, Subject: "Welcome to Acme"},
		Brand: *req.Brand,
		Sections: []models.TemplateSection{
			{ID: "header-1", Type: models.SectionHeader},
			{ID: "hero-1", Type: models.SectionHero, Props: map[string]any{"headline": "Hi"}},
			{ID: "footer-1", Type: models.SectionFooter},
		},
		MJML: `<mjml><mj-body>` +
			`<mj-section><mj-column><mj-text data-id="logo">Acme</mj-text></mj-column></mj-section>` +
			`<mj-section><mj-column><mj-text data-id="headline">Hi</mj-text></mj-column></mj-section>` +
			`<mj-section><mj-column><mj-text data-id="legal"><a href="#">Unsubscribe</a></mj-text></mj-column></mj-section>` +
			`</mj-body></mjml>`,
	}, nil
}

type fakeCompiler struct{ calls int }

func (c *fakeCompiler) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	c.calls++
	html := "<html>" + mjml + "</html>"
	return &models.CompileResult{HTML: html, Size: len(html), Warnings: []string{}}, nil
}

type fakeLinter struct{}

func (fakeLinter) Lint(ctx context.Context, req models.LintRequest) (*models.LintResult, error) {
	return &models.LintResult{Performance: models.PerformanceReport{SizeKB: float64(len(req.HTML)) / 1024}}, nil
}

type scriptedEditor struct {
	mjml string
	got  models.EditRequest
}

func (e *scriptedEditor) Edit(ctx context.Context, req models.EditRequest) (*models.TemplateEdit, error) {
	e.got = req
	return &models.TemplateEdit{TargetTemplateID: req.TemplateID.String(), MJML: e.mjml, Notes: "done"}, nil
}

type fakePublisher struct{ key string }

func (p *fakePublisher) Publish(ctx context.Context, key string, html []byte) (string, error) {
	p.key = key
	return "https://cdn.test/" + key, nil
}

func newService(m *memStore) (*Service, *fakeCompiler) {
	c := &fakeCompiler{}
	return New(Deps{
		Projects:  projectRepo{m},
		Templates: templateRepo{m},
		Versions:  versionRepo{m},
		Planner:   &stubPlanner{},
		Compiler:  c,
		Linter:    fakeLinter{},
	}), c
}

func TestGenerateSaveEditScenario(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	project := m.addProject(user)
	svc, _ := newService(m)
	ctx := context.Background()

	gen, err := svc.Generate(ctx, user, project.ID, models.PlanRequest{EmailType: "welcome", Prompt: "welcome new users"})
	require.NoError(t, err)
	assert.Equal(t, []string{"header-1", "hero-1", "footer-1"}, gen.Plan.SectionIDs())
	assert.Equal(t, project.BrandTokens, gen.Plan.Brand)
	require.NotNil(t, gen.Lint)

	preview, err := svc.Preview(ctx, gen.Plan, []models.EditOperation{{Op: models.OpRemove, TargetID: "footer-1"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"header-1", "hero-1"}, preview.Plan.SectionIDs())
	assert.Len(t, gen.Plan.Sections, 3, "preview must not touch the input plan")

	saved, err := svc.Save(ctx, user, SaveRequest{ProjectID: project.ID, Name: "Welcome", Plan: preview.Plan})
	require.NoError(t, err)
	assert.Equal(t, "welcome", m.templates[saved.TemplateID].Type)

	value := "Hello there"
	res, err := svc.Edit(ctx, user, saved.TemplateID, EditRequest{Ops: []models.EditOperation{
		{Op: models.OpReplaceText, TargetID: "headline", Value: &value},
	}})
	require.NoError(t, err)
	assert.Contains(t, res.Version.MJML, "Hello there")
	assert.Contains(t, res.Compile.HTML, "Hello there")

	history, err := svc.History(ctx, user, saved.TemplateID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, res.Version.ID, history[0].ID)
	assert.Equal(t, saved.VersionID, history[1].ID)

	latest, err := svc.Latest(ctx, user, saved.TemplateID)
	require.NoError(t, err)
	assert.Equal(t, res.Version.ID, latest.ID)
	assert.Equal(t, res.Version.ID, *m.templates[saved.TemplateID].LatestVersionID)
}

func TestEditUnknownTargetRecordsNothing(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	svc, _ := newService(m)
	ctx := context.Background()
	saved := saveGenerated(t, svc, m, user)

	_, err := svc.Edit(ctx, user, saved.TemplateID, EditRequest{Ops: []models.EditOperation{
		{Op: models.OpRemove, TargetID: "footer-1"},
		{Op: models.OpRemove, TargetID: "nope"},
	}})
	var be *editops.BatchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, 1, be.Index)
	assert.ErrorIs(t, err, editops.ErrTargetNotFound)

	history, _ := svc.History(ctx, user, saved.TemplateID)
	assert.Len(t, history, 1)
}

func TestOwnershipIsolation(t *testing.T) {
	m := newMemStore()
	owner, stranger := uuid.New(), uuid.New()
	svc, _ := newService(m)
	ctx := context.Background()
	saved := saveGenerated(t, svc, m, owner)

	_, err := svc.Edit(ctx, stranger, saved.TemplateID, EditRequest{Ops: []models.EditOperation{{Op: models.OpRemove, TargetID: "hero-1"}}})
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.History(ctx, stranger, saved.TemplateID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Version(ctx, stranger, saved.VersionID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.Generate(ctx, stranger, m.templates[saved.TemplateID].ProjectID, models.PlanRequest{EmailType: "x"})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPromptEditUsesAuthoritativeMJML(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	svc, _ := newService(m)
	saved := saveGenerated(t, svc, m, user)

	_, err := svc.Edit(context.Background(), user, saved.TemplateID, EditRequest{Prompt: "shorter"})
	assert.ErrorIs(t, err, ErrInvalidInput, "no editor configured")

	ed := &scriptedEditor{mjml: `<mjml><mj-body><mj-section data-id="cta-1"><mj-column><mj-button data-id="go" href="https://x.test">Go</mj-button></mj-column></mj-section></mj-body></mjml>`}
	svc.Editor = ed
	res, err := svc.Edit(context.Background(), user, saved.TemplateID, EditRequest{Prompt: "just a button"})
	require.NoError(t, err)
	assert.Equal(t, []string{"cta-1"}, res.Version.IRJSON.SectionIDs())
	assert.Equal(t, models.SectionCTA, res.Version.IRJSON.Sections[0].Type)
	assert.Equal(t, "done", res.Notes)
	assert.Equal(t, saved.TemplateID, ed.got.TemplateID)
	require.NotNil(t, ed.got.Plan)
}

func TestPromptEditRejectsUnusableMarkup(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	svc, _ := newService(m)
	saved := saveGenerated(t, svc, m, user)

	svc.Editor = &scriptedEditor{mjml: `<mjml><mj-body><mj-section data-id="a" /><mj-section data-id="a" /></mj-body></mjml>`}
	_, err := svc.Edit(context.Background(), user, saved.TemplateID, EditRequest{Prompt: "twice"})

	var fe *functions.Error
	require.True(t, errors.As(err, &fe), "got %v", err)
	assert.Equal(t, functions.FuncEdit, fe.Function)
	assert.Equal(t, "bad_output", fe.Code)

	history, err := svc.History(context.Background(), user, saved.TemplateID)
	require.NoError(t, err)
	assert.Len(t, history, 1, "nothing recorded")
}

func TestEditRequiresSomething(t *testing.T) {
	svc, _ := newService(newMemStore())
	_, err := svc.Edit(context.Background(), uuid.New(), uuid.New(), EditRequest{Prompt: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSaveRejectsInconsistentPlan(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	project := m.addProject(user)
	svc, c := newService(m)

	bad := &models.TemplatePlan{
		Sections: []models.TemplateSection{{ID: "hero-1"}, {ID: "ghost"}},
		MJML:     `<mjml><mj-body><mj-section data-id="hero-1" /></mj-body></mjml>`,
	}
	_, err := svc.Save(context.Background(), user, SaveRequest{ProjectID: project.ID, Name: "x", Plan: bad})
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Zero(t, c.calls)
	assert.Empty(t, m.templates)
}

func TestExportAndPublish(t *testing.T) {
	m := newMemStore()
	user := uuid.New()
	svc, _ := newService(m)
	saved := saveGenerated(t, svc, m, user)
	ctx := context.Background()

	exp, err := svc.Export(ctx, user, saved.VersionID)
	require.NoError(t, err)
	assert.Equal(t, "welcome-to-acme.html", exp.Filename)
	assert.True(t, strings.HasPrefix(exp.HTML, "<html>"))

	_, err = svc.Publish(ctx, user, saved.VersionID)
	assert.True(t, errors.Is(err, ErrPublishDisabled))

	pub := &fakePublisher{}
	svc.Publisher = pub
	out, err := svc.Publish(ctx, user, saved.VersionID)
	require.NoError(t, err)
	assert.Equal(t, "exports/"+saved.TemplateID.String()+"/"+saved.VersionID.String()+"/welcome-to-acme.html", out.Key)
	assert.Equal(t, "https://cdn.test/"+out.Key, out.URL)
}

func saveGenerated(t *testing.T, svc *Service, m *memStore, user uuid.UUID) *models.SavedTemplate {
	t.Helper()
	project := m.addProject(user)
	gen, err := svc.Generate(context.Background(), user, project.ID, models.PlanRequest{EmailType: "welcome"})
	require.NoError(t, err)
	saved, err := svc.Save(context.Background(), user, SaveRequest{ProjectID: project.ID, Name: "Welcome", Plan: gen.Plan})
	require.NoError(t, err)
	return saved
}
