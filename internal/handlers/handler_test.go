// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for the API tests:
// in-memory stores with the same ownership rules as the PostgreSQL ones and
// scripted collaborators.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailsmithery/internal/brand"
	"mailsmithery/internal/editor"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/lint"
	"mailsmithery/internal/middleware"
	"mailsmithery/internal/models"
	"mailsmithery/internal/store"
)

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

// projects implements ProjectStore and editor.ProjectRepo.
type projects struct{ *memStore }

func (s projects) Create(ctx context.Context, userID uuid.UUID, name string, tokens models.BrandTokens) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &models.Project{ID: uuid.New(), UserID: userID, Name: name, BrandTokens: tokens, CreatedAt: time.Now()}
	s.projects[p.ID] = p
	return p, nil
}

func (s projects) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Project
	for _, p := range s.projects {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s projects) Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[id]; ok && p.UserID == userID {
		return p, nil
	}
	return nil, nil
}

func (s projects) UpdateBrandTokens(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok || p.UserID != userID {
		return store.ErrNotFound
	}
	p.BrandTokens = tokens
	return nil
}

// templates implements TemplateStore and editor.TemplateRepo.
type templates struct{ *memStore }

func (s templates) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Template
	for _, t := range s.templates {
		if t.ProjectID == projectID && t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s templates) Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.templates[id]; ok && t.UserID == userID {
		return t, nil
	}
	return nil, nil
}

func (s templates) SaveTemplate(ctx context.Context, userID, projectID uuid.UUID, name, typ string, p *models.TemplatePlan, mjml, html string) (*models.SavedTemplate, error) {
	s.mu.Lock()
	proj, ok := s.projects[projectID]
	if !ok || proj.UserID != userID {
		s.mu.Unlock()
		return nil, store.ErrNotFound
	}
	t := &models.Template{ID: uuid.New(), ProjectID: projectID, Name: name, Type: typ, UserID: userID}
	s.templates[t.ID] = t
	s.mu.Unlock()

	v, err := versions(s).RecordVersion(ctx, userID, t.ID, p, mjml, html)
	if err != nil {
		return nil, err
	}
	return &models.SavedTemplate{TemplateID: t.ID, VersionID: v.ID}, nil
}

// versions implements editor.VersionRepo.
type versions struct{ *memStore }

func (s versions) RecordVersion(ctx context.Context, userID, templateID uuid.UUID, p *models.TemplatePlan, mjml, html string) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, store.ErrNotFound
	}
	s.seq++
	v := &models.Version{ID: uuid.New(), TemplateID: templateID, IRJSON: *p, MJML: mjml, HTML: html, Seq: s.seq, CreatedAt: time.Now()}
	s.versions = append(s.versions, v)
	t.LatestVersionID = &v.ID
	return v, nil
}

func (s versions) List(ctx context.Context, userID, templateID uuid.UUID) ([]*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[templateID]
	if !ok || t.UserID != userID {
		return nil, nil
	}
	var out []*models.Version
	for i := len(s.versions) - 1; i >= 0; i-- {
		if s.versions[i].TemplateID == templateID {
			out = append(out, s.versions[i])
		}
	}
	return out, nil
}

func (s versions) Latest(ctx context.Context, userID, templateID uuid.UUID) (*models.Version, error) {
	list, _ := s.List(ctx, userID, templateID)
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s versions) Get(ctx context.Context, userID, id uuid.UUID) (*models.Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.versions {
		if v.ID == id && s.templates[v.TemplateID].UserID == userID {
			return v, nil
		}
	}
	return nil, nil
}

// stubPlanner returns a fixed three-section welcome email, or err. A
// non-empty mjml replaces the markup.
type stubPlanner struct {
	err  error
	mjml string
}

func (p *stubPlanner) Plan(ctx context.Context, req models.PlanRequest) (*models.TemplatePlan, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := &models.TemplatePlan{
		Meta:  models.PlanMeta{EmailType: req.EmailType, Subject: "Welcome to Acme"},
		Brand: *req.Brand,
		Sections: []models.TemplateSection{
			{ID: "header-1", Type: models.SectionHeader},
			{ID: "hero-1", Type: models.SectionHero},
			{ID: "footer-1", Type: models.SectionFooter},
		},
		MJML: `<mjml><mj-body>` +
			`<mj-section><mj-column><mj-text data-id="logo">Acme</mj-text></mj-column></mj-section>` +
			`<mj-section><mj-column><mj-text data-id="headline">Hi</mj-text></mj-column></mj-section>` +
			`<mj-section><mj-column><mj-text data-id="legal"><a href="https://acme.test/unsubscribe">Unsubscribe</a></mj-text></mj-column></mj-section>` +
			`</mj-body></mjml>`,
	}
	if p.mjml != "" {
		out.MJML = p.mjml
	}
	return out, nil
}

// echoCompiler wraps the MJML so tests can see which source was compiled.
type echoCompiler struct{}

func (echoCompiler) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	html := "<html><body>" + mjml + "</body></html>"
	return &models.CompileResult{HTML: html, Size: len(html), Warnings: []string{}}, nil
}

type stubExtractor struct {
	gotURL string
	err    error
}

func (e *stubExtractor) Extract(ctx context.Context, userID, projectID uuid.UUID, rawURL string) (*brand.Result, error) {
	e.gotURL = rawURL
	if e.err != nil {
		return nil, e.err
	}
	return &brand.Result{ExtractionID: uuid.New(), Status: "completed", BrandTokens: models.DefaultBrandTokens()}, nil
}

type testEnv struct {
	store     *memStore
	planner   *stubPlanner
	extractor *stubExtractor
	svc       *editor.Service
	router    chi.Router
}

// newTestEnv wires the API against in-memory stores. Requests carry the
// user id in the X-Test-User header instead of a bearer token.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	m := newMemStore()
	pl := &stubPlanner{}
	ex := &stubExtractor{}
	svc := editor.New(editor.Deps{
		Projects:  projects{m},
		Templates: templates{m},
		Versions:  versions{m},
		Planner:   pl,
		Compiler:  echoCompiler{},
		Linter:    lint.New(nil),
	})
	api := NewAPI(projects{m}, templates{m}, svc, ex)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if id, err := uuid.Parse(req.Header.Get("X-Test-User")); err == nil {
				req = req.WithContext(middleware.WithUserID(req.Context(), id))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Get("/projects", api.ListProjects)
	r.Post("/projects", api.CreateProject)
	r.Get("/projects/{id}", api.GetProject)
	r.Put("/projects/{id}/brand", api.UpdateBrand)
	r.Post("/projects/{id}/extract-brand", api.ExtractBrand)
	r.Get("/projects/{id}/templates", api.ListTemplates)
	r.Post("/projects/{id}/plan", api.GeneratePlan)
	r.Post("/templates", api.SaveTemplate)
	r.Get("/templates/{id}", api.GetTemplate)
	r.Post("/templates/{id}/edits", api.EditTemplate)
	r.Get("/templates/{id}/versions", api.ListVersions)
	r.Post("/templates/{id}/versions", api.CommitVersion)
	r.Get("/templates/{id}/versions/latest", api.LatestVersion)
	r.Get("/versions/{id}", api.GetVersion)
	r.Get("/versions/{id}/export", api.ExportVersion)
	r.Post("/versions/{id}/publish", api.PublishVersion)
	r.Post("/plans/apply", api.ApplyOps)
	r.Post("/compile", api.Compile)
	r.Post("/lint", api.Lint)

	return &testEnv{store: m, planner: pl, extractor: ex, svc: svc, router: r}
}

// do sends a request as user and returns the recorder.
func (e *testEnv) do(t *testing.T, user uuid.UUID, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", user.String())
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// decodeBody unmarshals a JSON response.
func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

// collaboratorDown is what a failed remote function looks like.
var collaboratorDown = &functions.Error{Function: functions.FuncPlan, Code: "unavailable", Message: "planner is overloaded", Status: http.StatusServiceUnavailable}
