package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/engine"
	"github.com/jonathan/outreach-agent/internal/types"
)

// --- fakes ---

type fakeCampaignStore struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*db.Campaign
}

func newFakeCampaignStore(campaigns ...*db.Campaign) *fakeCampaignStore {
	s := &fakeCampaignStore{campaigns: make(map[uuid.UUID]*db.Campaign)}
	for _, c := range campaigns {
		s.campaigns[c.ID] = c
	}
	return s
}

func (s *fakeCampaignStore) CreateCampaign(ctx context.Context, c *db.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	c.Status = db.StatusPending
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *fakeCampaignStore) GetCampaign(ctx context.Context, id, ownerID uuid.UUID) (*db.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *fakeCampaignStore) ListCampaigns(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]db.Campaign, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []db.Campaign
	for _, c := range s.campaigns {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	return out, len(out), nil
}

func (s *fakeCampaignStore) DeleteCampaign(ctx context.Context, id, ownerID uuid.UUID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.OwnerID != ownerID {
		return "", &db.ErrNotFound{Entity: "campaign", ID: id}
	}
	delete(s.campaigns, id)
	return c.DocumentPath, nil
}

func (s *fakeCampaignStore) ListFollowUps(ctx context.Context, campaignID, ownerID uuid.UUID) ([]db.FollowUp, error) {
	return nil, nil
}

func (s *fakeCampaignStore) UpsertTenantCredentials(ctx context.Context, ownerID uuid.UUID, sendEmail string, encSecret, encGenKey []byte) error {
	return nil
}

func (s *fakeCampaignStore) Ping(ctx context.Context) error { return nil }

func (s *fakeCampaignStore) has(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.campaigns[id]
	return ok
}

type fakeDocStore struct {
	mu    sync.Mutex
	saved map[string][]byte
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{saved: make(map[string][]byte)}
}

func (d *fakeDocStore) Save(filename string, data []byte) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	path := "resumes/" + filename
	d.saved[path] = data
	return path, nil
}

func (d *fakeDocStore) Delete(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.saved[path]; !ok {
		return fmt.Errorf("document %s does not exist", path)
	}
	delete(d.saved, path)
	return nil
}

func (d *fakeDocStore) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.saved)
}

type fakeRunner struct {
	mu       sync.Mutex
	campaign *db.Campaign
	retryErr error
	retried  []uuid.UUID
}

func (r *fakeRunner) Retry(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.Campaign, error) {
	if r.retryErr != nil {
		return nil, r.retryErr
	}
	r.mu.Lock()
	r.retried = append(r.retried, campaignID)
	r.mu.Unlock()
	cp := *r.campaign
	cp.Status = db.StatusPending
	cp.ErrorMessage = ""
	return &cp, nil
}

func (r *fakeRunner) SendFollowUp(ctx context.Context, campaignID, ownerID uuid.UUID) (*db.FollowUp, error) {
	return nil, fmt.Errorf("not used in this test")
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []uuid.UUID
	full bool
}

func (q *fakeQueue) Enqueue(campaignID, ownerID uuid.UUID) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.jobs = append(q.jobs, campaignID)
	return true
}

// --- helpers ---

func newTestServer(t *testing.T, deps Deps) *Server {
	t.Helper()
	deps.JWT = NewJWTService(&config.JWTConfig{Secret: "unit-test-secret", ExpirationHours: 1})
	s := New(0, deps)
	t.Cleanup(s.rateLimiter.Stop)
	return s
}

func authHeader(t *testing.T, s *Server, ownerID uuid.UUID) string {
	t.Helper()
	token, err := s.deps.JWT.GenerateToken(ownerID)
	require.NoError(t, err)
	return "Bearer " + token
}

func serveRequest(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

// multipartCampaign builds a campaign intake form with a résumé file attached.
func multipartCampaign(t *testing.T, fields map[string]string, filename string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	fw, err := w.CreateFormFile("resume", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte("Ada Lovelace\nBackend Engineer\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func campaignFields() map[string]string {
	return map[string]string{
		"recipient_email": "grace@acme.test",
		"recipient_name":  "Grace",
		"company_name":    "Acme",
		"job_title":       "Backend Engineer",
	}
}

// --- tests ---

func TestCreateCampaign_AcceptedAsPending(t *testing.T) {
	store := newFakeCampaignStore()
	docs := newFakeDocStore()
	queue := &fakeQueue{}
	s := newTestServer(t, Deps{DB: store, Docs: docs, Dispatcher: queue})

	body, contentType := multipartCampaign(t, campaignFields(), "resume.pdf")
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t, s, uuid.New()))

	rec := serveRequest(s, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp types.CampaignResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, db.StatusPending, resp.Status)
	assert.Equal(t, "Acme", resp.CompanyName)
	assert.True(t, store.has(resp.ID))

	// Intake hands the campaign straight to the workers
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, resp.ID, queue.jobs[0])
	assert.Equal(t, 1, docs.count())
}

func TestCreateCampaign_QueueFullStillAccepted(t *testing.T) {
	store := newFakeCampaignStore()
	s := newTestServer(t, Deps{DB: store, Docs: newFakeDocStore(), Dispatcher: &fakeQueue{full: true}})

	body, contentType := multipartCampaign(t, campaignFields(), "resume.txt")
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t, s, uuid.New()))

	// The row is persisted as pending either way; the watchdog re-enqueues it
	rec := serveRequest(s, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp types.CampaignResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, db.StatusPending, resp.Status)
	assert.True(t, store.has(resp.ID))
}

func TestCreateCampaign_RejectsUnsupportedFileType(t *testing.T) {
	store := newFakeCampaignStore()
	docs := newFakeDocStore()
	s := newTestServer(t, Deps{DB: store, Docs: docs, Dispatcher: &fakeQueue{}})

	body, contentType := multipartCampaign(t, campaignFields(), "resume.exe")
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", authHeader(t, s, uuid.New()))

	rec := serveRequest(s, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, docs.count())
}

func TestCreateCampaign_RequiresAuth(t *testing.T) {
	s := newTestServer(t, Deps{DB: newFakeCampaignStore(), Docs: newFakeDocStore(), Dispatcher: &fakeQueue{}})

	body, contentType := multipartCampaign(t, campaignFields(), "resume.pdf")
	req := httptest.NewRequest(http.MethodPost, "/campaigns", body)
	req.Header.Set("Content-Type", contentType)

	rec := serveRequest(s, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRetryCampaign_Requeues(t *testing.T) {
	ownerID := uuid.New()
	c := &db.Campaign{
		ID:           uuid.New(),
		OwnerID:      ownerID,
		Status:       db.StatusFailed,
		ErrorMessage: "smtp: connection refused",
		CompanyName:  "Acme",
	}
	runner := &fakeRunner{campaign: c}
	queue := &fakeQueue{}
	s := newTestServer(t, Deps{DB: newFakeCampaignStore(c), Engine: runner, Dispatcher: queue})

	req := httptest.NewRequest(http.MethodPost, "/campaigns/"+c.ID.String()+"/retry", nil)
	req.Header.Set("Authorization", authHeader(t, s, ownerID))

	rec := serveRequest(s, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp types.CampaignResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, db.StatusPending, resp.Status)
	assert.Empty(t, resp.ErrorMessage)

	assert.Equal(t, []uuid.UUID{c.ID}, runner.retried)
	assert.Equal(t, []uuid.UUID{c.ID}, queue.jobs)
}

func TestRetryCampaign_WrongStateConflicts(t *testing.T) {
	ownerID := uuid.New()
	id := uuid.New()
	runner := &fakeRunner{retryErr: &engine.StateError{CampaignID: id, Status: db.StatusSent, Op: "retry"}}
	queue := &fakeQueue{}
	s := newTestServer(t, Deps{DB: newFakeCampaignStore(), Engine: runner, Dispatcher: queue})

	req := httptest.NewRequest(http.MethodPost, "/campaigns/"+id.String()+"/retry", nil)
	req.Header.Set("Authorization", authHeader(t, s, ownerID))

	rec := serveRequest(s, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, queue.jobs)
}

func TestDeleteCampaign_RemovesStoredDocument(t *testing.T) {
	ownerID := uuid.New()
	docs := newFakeDocStore()
	docPath, err := docs.Save("resume.pdf", []byte("Ada Lovelace"))
	require.NoError(t, err)

	c := &db.Campaign{ID: uuid.New(), OwnerID: ownerID, DocumentPath: docPath, Status: db.StatusSent}
	store := newFakeCampaignStore(c)
	s := newTestServer(t, Deps{DB: store, Docs: docs})

	req := httptest.NewRequest(http.MethodDelete, "/campaigns/"+c.ID.String(), nil)
	req.Header.Set("Authorization", authHeader(t, s, ownerID))

	rec := serveRequest(s, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.False(t, store.has(c.ID))
	assert.Equal(t, 0, docs.count(), "the stored resume must go with the campaign")
}

func TestDeleteCampaign_UnknownCampaign(t *testing.T) {
	s := newTestServer(t, Deps{DB: newFakeCampaignStore(), Docs: newFakeDocStore()})

	req := httptest.NewRequest(http.MethodDelete, "/campaigns/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", authHeader(t, s, uuid.New()))

	rec := serveRequest(s, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
