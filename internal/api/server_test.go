package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vidsheet/vidsheet-processing-service/internal/api"
	"github.com/vidsheet/vidsheet-processing-service/internal/domain/entity"
)

type memRepo struct {
	jobs map[uuid.UUID]*entity.Job
}

func (r *memRepo) Create(_ context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *memRepo) Update(_ context.Context, job *entity.Job) error {
	r.jobs[job.ID] = job
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s not found", id)
	}
	return job, nil
}

type memPublisher struct {
	published []entity.SheetRequestMessage
	err       error
}

func (p *memPublisher) PublishRequest(_ context.Context, msg []byte) error {
	if p.err != nil {
		return p.err
	}
	var req entity.SheetRequestMessage
	if err := json.Unmarshal(msg, &req); err != nil {
		return err
	}
	p.published = append(p.published, req)
	return nil
}

type memStorage struct{}

func (memStorage) UploadSheet(context.Context, string, io.Reader, int64) error { return nil }

func (memStorage) PresignedSheetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.local/sheets/" + key + "?sig=abc", nil
}

func newTestServer() (*memRepo, *memPublisher, http.Handler) {
	repo := &memRepo{jobs: map[uuid.UUID]*entity.Job{}}
	pub := &memPublisher{}
	srv := api.NewServer(repo, pub, memStorage{}, zap.NewNop(), api.ServerConfig{})
	return repo, pub, srv.Routes()
}

func postSheet(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/sheets", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateSheetAccepted(t *testing.T) {
	repo, pub, handler := newTestServer()

	rec := postSheet(t, handler, `{"source_url": "https://example.com/v/abc", "sample_rate": 4, "user_id": "u1"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		JobID      uuid.UUID        `json:"job_id"`
		Status     entity.JobStatus `json:"status"`
		SampleRate int              `json:"sample_rate"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.JobStatusPending, resp.Status)
	assert.Equal(t, 4, resp.SampleRate)

	require.Contains(t, repo.jobs, resp.JobID)
	require.Len(t, pub.published, 1)
	assert.Equal(t, resp.JobID, pub.published[0].JobID)
	assert.Equal(t, "https://example.com/v/abc", pub.published[0].SourceURL)
}

func TestCreateSheetDefaultsSampleRate(t *testing.T) {
	_, pub, handler := newTestServer()

	rec := postSheet(t, handler, `{"source_url": "https://example.com/v/abc"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, pub.published, 1)
	assert.Equal(t, 2, pub.published[0].SampleRate)
}

func TestCreateSheetValidation(t *testing.T) {
	_, pub, handler := newTestServer()

	cases := []struct {
		name string
		body string
	}{
		{"missing source_url", `{"sample_rate": 2}`},
		{"blank source_url", `{"source_url": "   "}`},
		{"rate too high", `{"source_url": "https://example.com/v", "sample_rate": 31}`},
		{"rate negative", `{"source_url": "https://example.com/v", "sample_rate": -1}`},
		{"bad json", `{`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postSheet(t, handler, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, pub.published, "invalid requests never reach the broker")
}

func TestCreateSheetEnqueueFailure(t *testing.T) {
	repo, pub, handler := newTestServer()
	pub.err = fmt.Errorf("broker down")

	rec := postSheet(t, handler, `{"source_url": "https://example.com/v/abc"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	require.Len(t, repo.jobs, 1)
	for _, job := range repo.jobs {
		assert.Equal(t, entity.JobStatusFailed, job.Status)
	}
}

func TestGetSheet(t *testing.T) {
	repo, _, handler := newTestServer()
	job := entity.NewJob("u1", "https://example.com/v/abc", 2, 5)
	job.MarkProcessing()
	repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/sheets/"+job.ID.String(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status entity.JobStatus `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.JobStatusProcessing, resp.Status)
}

func TestGetSheetNotFound(t *testing.T) {
	_, _, handler := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/sheets/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/sheets/not-a-uuid", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadSheet(t *testing.T) {
	repo, _, handler := newTestServer()
	job := entity.NewJob("u1", "https://example.com/v/abc", 2, 5)
	job.MarkProcessing()
	job.MarkCompleted("u1/contact_sheet_abc_2fps.jpg", 20, 20, 1)
	repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/sheets/"+job.ID.String()+"/download", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "contact_sheet_abc_2fps.jpg")
}

func TestDownloadSheetNotReady(t *testing.T) {
	repo, _, handler := newTestServer()
	job := entity.NewJob("u1", "https://example.com/v/abc", 2, 5)
	repo.jobs[job.ID] = job

	req := httptest.NewRequest(http.MethodGet, "/api/sheets/"+job.ID.String()+"/download", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
