package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/vaultimport/ai/mock"
	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/envelope"
	"github.com/poiesic/vaultimport/extraction"
	"github.com/poiesic/vaultimport/ingestion"
	"github.com/poiesic/vaultimport/progress"
	"github.com/poiesic/vaultimport/storage"
	"github.com/poiesic/vaultimport/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testOwner = "user-123"

func setupPipeline(t *testing.T, responses ...string) (*ingestion.Pipeline, storage.CredentialRepository) {
	t.Helper()
	repo, err := badger.NewMemoryRepository()
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	cipher, err := envelope.New("master-secret", envelope.WithIterations(1000))
	require.NoError(t, err)

	extractor, err := extraction.New(mock.NewMockStreamer(responses...))
	require.NoError(t, err)

	p, err := ingestion.NewPipeline(repo, cipher, extractor)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p, repo
}

func postImport(t *testing.T, srv *httptest.Server, kind, owner, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/imports?kind="+kind, strings.NewReader(body))
	require.NoError(t, err)
	if owner != "" {
		req.Header.Set(OwnerHeader, owner)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func readEvents(t *testing.T, resp *http.Response) []progress.Event {
	t.Helper()
	var events []progress.Event
	scanner := progress.NewScanner(resp.Body)
	for scanner.Next() {
		events = append(events, scanner.Event())
	}
	require.NoError(t, scanner.Err())
	return events
}

func TestHealth(t *testing.T) {
	p, _ := setupPipeline(t)
	srv := httptest.NewServer(NewServeMux(NewHandler(p)))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestImport_MissingOwner(t *testing.T) {
	p, _ := setupPipeline(t)
	srv := httptest.NewServer(NewServeMux(NewHandler(p)))
	defer srv.Close()

	resp := postImport(t, srv, "text", "", "anything")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestImport_StreamsToSuccess(t *testing.T) {
	p, repo := setupPipeline(t, `[{"name":"Gmail","password":"abc123"},{"name":"Yahoo","password":"xyz789"}]`)
	srv := httptest.NewServer(NewServeMux(NewHandler(p)))
	defer srv.Close()

	resp := postImport(t, srv, "csv", testOwner, "name,password\nGmail,abc123\nYahoo,xyz789")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, progress.ContentType, resp.Header.Get("Content-Type"))

	events := readEvents(t, resp)
	require.NotEmpty(t, events)
	assert.Equal(t, progress.KindProgress, events[0].Kind)
	assert.Equal(t, "starting", events[0].Message)

	final := events[len(events)-1]
	assert.Equal(t, progress.KindSuccess, final.Kind)
	assert.Equal(t, 2, final.SavedCount)
	require.NotNil(t, final.Result)
	for _, r := range final.Result.Records {
		assert.Empty(t, r.Secret, "secrets never leave the server")
	}

	count, err := repo.Count(context.Background(), testOwner, storage.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestImport_InputErrorIsSingleEvent(t *testing.T) {
	p, _ := setupPipeline(t)
	srv := httptest.NewServer(NewServeMux(NewHandler(p)))
	defer srv.Close()

	resp := postImport(t, srv, "docx", testOwner, "some document")
	events := readEvents(t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, progress.KindError, events[0].Kind)
}

// capturingImporter records what it was asked to import and fails the run.
type capturingImporter struct {
	mu      sync.Mutex
	content core.RawContent
	owner   string
}

func (c *capturingImporter) Submit(ctx context.Context, content core.RawContent, owner string, sink progress.Sink, done func(*core.ImportResult, error)) error {
	c.mu.Lock()
	c.content, c.owner = content, owner
	c.mu.Unlock()
	go sink.Emit(progress.Error("rejected"))
	return nil
}

func (c *capturingImporter) captured() (core.RawContent, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.content, c.owner
}

func (c *capturingImporter) Running() int { return 0 }

func TestImport_BodyHandling(t *testing.T) {
	t.Run("oversized body is cut one byte past the cap", func(t *testing.T) {
		importer := &capturingImporter{}
		srv := httptest.NewServer(NewServeMux(NewHandler(importer, WithMaxBodyBytes(8))))
		defer srv.Close()

		readEvents(t, postImport(t, srv, "TEXT", testOwner, strings.Repeat("x", 100)))
		content, owner := importer.captured()
		assert.Equal(t, core.SourceKindText, content.Kind)
		assert.Len(t, content.Text, 9)
		assert.Equal(t, testOwner, owner)
	})

	t.Run("images travel as bytes", func(t *testing.T) {
		importer := &capturingImporter{}
		srv := httptest.NewServer(NewServeMux(NewHandler(importer)))
		defer srv.Close()

		readEvents(t, postImport(t, srv, "image", testOwner, "\x89PNG"))
		content, _ := importer.captured()
		assert.Equal(t, core.SourceKindImage, content.Kind)
		assert.Equal(t, []byte("\x89PNG"), content.Data)
		assert.Empty(t, content.Text)
	})
}

// gatedImporter emits one event, waits for release, then finishes the run.
type gatedImporter struct {
	release  chan struct{}
	finished chan struct{}
	err      error
}

func (g *gatedImporter) Submit(ctx context.Context, content core.RawContent, owner string, sink progress.Sink, done func(*core.ImportResult, error)) error {
	if g.err != nil {
		return g.err
	}
	go func() {
		sink.Emit(progress.Progress(0, 1, 0, "starting"))
		<-g.release
		sink.Emit(progress.Progress(1, 1, 1, "Processed chunk 1 of 1"))
		sink.Emit(progress.Success("done", 1, nil, &core.ImportResult{SuccessCount: 1}))
		close(g.finished)
	}()
	return nil
}

func (g *gatedImporter) Running() int { return 0 }

func TestImport_ClientDisconnectDoesNotStopRun(t *testing.T) {
	importer := &gatedImporter{release: make(chan struct{}), finished: make(chan struct{})}
	srv := httptest.NewServer(NewServeMux(NewHandler(importer, WithStreamBuffer(0))))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/api/v1/imports?kind=text", strings.NewReader("x"))
	require.NoError(t, err)
	req.Header.Set(OwnerHeader, testOwner)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)

	scanner := progress.NewScanner(resp.Body)
	require.True(t, scanner.Next())
	assert.Equal(t, "starting", scanner.Event().Message)

	cancel()
	resp.Body.Close()

	// The producer must not block on the unbuffered stream once the client is gone
	close(importer.release)
	select {
	case <-importer.finished:
	case <-time.After(5 * time.Second):
		t.Fatal("run blocked after client disconnected")
	}
}

func TestImport_SubmitFailure(t *testing.T) {
	importer := &gatedImporter{err: errors.New("pool released")}
	srv := httptest.NewServer(NewServeMux(NewHandler(importer)))
	defer srv.Close()

	resp := postImport(t, srv, "text", testOwner, "x")
	events := readEvents(t, resp)
	require.Len(t, events, 1)
	assert.Equal(t, progress.KindError, events[0].Kind)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(NewHandler(&gatedImporter{}).logger, http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
