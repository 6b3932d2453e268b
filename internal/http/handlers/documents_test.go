package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"server/internal/domain"
	"server/internal/enhance"
	"server/internal/pipeline"
	"server/internal/tasklock"
)

// The handler tests run against the real pipeline over in-memory
// collaborators, exercising the full accept path.

type memRepo struct {
	mu   sync.Mutex
	docs map[string]*domain.Document
}

func newMemRepo() *memRepo { return &memRepo{docs: make(map[string]*domain.Document)} }

func (r *memRepo) Create(_ context.Context, doc *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt
	cp := *doc
	r.docs[doc.ID] = &cp
	return nil
}

func (r *memRepo) MarkProcessing(_ context.Context, id string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status != domain.StatusDraft {
		return nil, domain.ErrNotFound
	}
	doc.Status = domain.StatusProcessing
	cp := *doc
	return &cp, nil
}

func (r *memRepo) SaveRenderedContent(_ context.Context, id, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		doc.RenderedContent = content
		return nil
	}
	return domain.ErrNotFound
}

func (r *memRepo) Complete(_ context.Context, id string, artifact *domain.Artifact, completedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status.Terminal() {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusComplete
	doc.Artifact = artifact
	doc.CompletedAt = &completedAt
	return nil
}

func (r *memRepo) MarkError(_ context.Context, id, message, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.Status.Terminal() {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusError
	doc.ErrorMessage = message
	doc.ErrorCode = code
	doc.RetryCount++
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id, ownerID string) (*domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok || doc.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (r *memRepo) List(_ context.Context, ownerID string, limit, offset int) ([]domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []domain.Document
	for _, doc := range r.docs {
		if doc.OwnerID == ownerID {
			docs = append(docs, *doc)
		}
	}
	if offset < len(docs) {
		docs = docs[offset:]
	} else {
		docs = nil
	}
	if limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

func (r *memRepo) ClaimQueued(context.Context) (*domain.Document, error) {
	return nil, domain.ErrNotFound
}

func (r *memRepo) FailStale(context.Context, time.Time) (int64, error) { return 0, nil }

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, s *domain.Draft) (string, error) {
	return "<html>" + s.Profile.FullName + "</html>", nil
}

type stubRasterizer struct{}

func (stubRasterizer) Produce(context.Context, string) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

type stubStore struct{}

func (stubStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return key, nil
}

func (stubStore) RetrievalURL(_ context.Context, key string) (string, error) {
	return "https://files.example.com/" + key, nil
}

func newTestApp() (*App, *memRepo) {
	logger := zerolog.New(io.Discard)
	repo := newMemRepo()
	p := pipeline.New(pipeline.Options{
		Repo:       repo,
		Enhancer:   enhance.NewOrchestrator(enhance.NoopEnhancer{}, logger),
		Renderer:   stubRenderer{},
		Rasterizer: stubRasterizer{},
		Store:      stubStore{},
		Locker:     tasklock.NewMemoryLocker(),
		Logger:     logger,
	})
	return NewApp(p, nil, logger), repo
}

func draftBody(t *testing.T, mutate func(*domain.Draft)) *bytes.Buffer {
	t.Helper()
	draft := &domain.Draft{
		Profile: domain.Profile{FullName: "Ada Lovelace"},
	}
	if mutate != nil {
		mutate(draft)
	}
	body, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("marshal draft: %v", err)
	}
	return bytes.NewBuffer(body)
}

func TestCreateDocumentAccepted(t *testing.T) {
	app, repo := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", draftBody(t, nil))
	req.Header.Set("X-Owner-ID", "owner-1")
	rec := httptest.NewRecorder()
	app.CreateDocument(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body %s", rec.Code, rec.Body.String())
	}
	var res struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ID == "" || res.Status != "processing" {
		t.Fatalf("response = %+v, want processing status", res)
	}
	if _, err := repo.GetByID(context.Background(), res.ID, "owner-1"); err != nil {
		t.Fatalf("document not persisted: %v", err)
	}
}

func TestCreateDocumentValidationFailure(t *testing.T) {
	app, repo := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", draftBody(t, func(d *domain.Draft) {
		d.Profile.FullName = ""
	}))
	req.Header.Set("X-Owner-ID", "owner-1")
	rec := httptest.NewRecorder()
	app.CreateDocument(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	var res struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Field != "full_name" {
		t.Fatalf("field = %q, want full_name", res.Field)
	}
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.docs) != 0 {
		t.Fatalf("repo has %d documents after rejection", len(repo.docs))
	}
}

func TestCreateDocumentMissingOwner(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", draftBody(t, nil))
	rec := httptest.NewRecorder()
	app.CreateDocument(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateDocumentBadJSON(t *testing.T) {
	app, _ := newTestApp()

	req := httptest.NewRequest(http.MethodPost, "/v1/documents", strings.NewReader("{not json"))
	req.Header.Set("X-Owner-ID", "owner-1")
	rec := httptest.NewRecorder()
	app.CreateDocument(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetDocumentOwnerScoped(t *testing.T) {
	app, repo := newTestApp()
	seed := &domain.Document{
		ID:      "doc-1",
		OwnerID: "owner-1",
		Status:  domain.StatusComplete,
		Artifact: &domain.Artifact{
			StorageKey:   "documents/owner-1/doc-1.pdf",
			RetrievalURL: "https://files.example.com/doc-1.pdf",
			Size:         8,
		},
	}
	if err := repo.Create(context.Background(), seed); err != nil {
		t.Fatalf("seed: %v", err)
	}

	get := func(owner string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1", nil)
		req.Header.Set("X-Owner-ID", owner)
		req = withChiParam(req, "id", "doc-1")
		rec := httptest.NewRecorder()
		app.GetDocument(rec, req)
		return rec
	}

	if rec := get("owner-2"); rec.Code != http.StatusNotFound {
		t.Fatalf("foreign owner status = %d, want 404", rec.Code)
	}

	rec := get("owner-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var view struct {
		Status   string           `json:"status"`
		Artifact *domain.Artifact `json:"artifact"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Status != "complete" || view.Artifact == nil || view.Artifact.RetrievalURL == "" {
		t.Fatalf("view = %+v, want complete with retrieval url", view)
	}
}

func TestListDocuments(t *testing.T) {
	app, _ := newTestApp()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/documents", draftBody(t, nil))
		req.Header.Set("X-Owner-ID", "owner-1")
		rec := httptest.NewRecorder()
		app.CreateDocument(rec, req)
		if rec.Code != http.StatusAccepted {
			t.Fatalf("seed create %d status = %d", i, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/documents?limit=10", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	rec := httptest.NewRecorder()
	app.ListDocuments(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var res struct {
		Documents []json.RawMessage `json:"documents"`
		Limit     int               `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Documents) != 2 {
		t.Fatalf("documents = %d, want 2", len(res.Documents))
	}
	if res.Limit != 10 {
		t.Fatalf("limit = %d, want 10", res.Limit)
	}
}

func TestGetDocumentErroredView(t *testing.T) {
	app, repo := newTestApp()
	if err := repo.Create(context.Background(), &domain.Document{ID: "doc-err", OwnerID: "owner-1", Status: domain.StatusDraft}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := repo.MarkError(context.Background(), "doc-err", "rasterizer exploded", domain.CodeProduce); err != nil {
		t.Fatalf("mark error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-err", nil)
	req.Header.Set("X-Owner-ID", "owner-1")
	req = withChiParam(req, "id", "doc-err")
	rec := httptest.NewRecorder()
	app.GetDocument(rec, req)

	var view documentView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.ErrorCode != domain.CodeProduce || view.RetryCount != 1 {
		t.Fatalf("view = %+v, want produce_error with retry count 1", view)
	}
	if view.Artifact != nil {
		t.Fatal("errored document exposes an artifact")
	}
}

// withChiParam injects a URL parameter the way the router would.
func withChiParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
