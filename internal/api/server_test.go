package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docent-ai/docent/internal/chat"
	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/ingest"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/store"
)

type fakeIngestor struct {
	result       *ingest.Result
	dirFailures  []ingest.Failure
	dirErr       error
	ingestedDirs []string
}

func (f *fakeIngestor) LoadReferences(ctx context.Context) *ingest.Result {
	if f.result != nil {
		return f.result
	}
	return &ingest.Result{}
}

func (f *fakeIngestor) IngestDirectory(ctx context.Context, dir string) ([]ingest.Failure, error) {
	f.ingestedDirs = append(f.ingestedDirs, dir)
	return f.dirFailures, f.dirErr
}

type fakeDataStore struct {
	info         store.Info
	infoErr      error
	provisionErr error
	provisioned  int
}

func (f *fakeDataStore) Provision(ctx context.Context) error {
	f.provisioned++
	return f.provisionErr
}

func (f *fakeDataStore) Info(ctx context.Context) (store.Info, error) {
	return f.info, f.infoErr
}

type fakeResponder struct {
	turns []*chat.Turn
	reply string
	err   error
}

func (f *fakeResponder) Respond(ctx context.Context, turn *chat.Turn) (*chat.Message, error) {
	f.turns = append(f.turns, turn)
	if f.err != nil {
		return nil, f.err
	}
	msg := chat.Message{Role: chat.RoleAssistant, Content: f.reply, CreatedAt: time.Now()}
	turn.Conversation.Append(chat.Message{Role: chat.RoleUser, Content: turn.Text})
	turn.Conversation.Append(msg)
	return &msg, nil
}

type fakeResolver struct {
	user *identity.User
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, hint identity.Hint) (*identity.User, error) {
	return f.user, f.err
}

func newTestServer(t *testing.T, cfg ServerConfig) http.Handler {
	t.Helper()
	if cfg.Ingestor == nil {
		cfg.Ingestor = &fakeIngestor{}
	}
	if cfg.Store == nil {
		cfg.Store = &fakeDataStore{}
	}
	if cfg.IngestLockPath == "" {
		cfg.IngestLockPath = filepath.Join(t.TempDir(), "ingest.lock")
	}
	cfg.Logger = log.NewNop()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(ServerConfig{Store: &fakeDataStore{}})
	require.Error(t, err)

	_, err = NewServer(ServerConfig{Ingestor: &fakeIngestor{}})
	require.Error(t, err)
}

func TestHealth(t *testing.T) {
	handler := newTestServer(t, ServerConfig{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStats(t *testing.T) {
	ds := &fakeDataStore{info: store.Info{DocumentCount: 3, ChunkCount: 41, ContentElementCount: 120}}
	handler := newTestServer(t, ServerConfig{Store: ds})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"documentCount":3,"chunkCount":41,"contentElementCount":120}`, rec.Body.String())
}

func TestStatsError(t *testing.T) {
	ds := &fakeDataStore{infoErr: errors.New("db down")}
	handler := newTestServer(t, ServerConfig{Store: ds})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/stats", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "stats_failed", body["error"])
}

func TestLoadReferences(t *testing.T) {
	ing := &fakeIngestor{result: &ingest.Result{
		LoadedURLs: []string{"https://a.test/doc"},
		FailedURLs: []ingest.Failure{{Source: "https://b.test/doc", Reason: "connection refused"}},
		Elapsed:    90 * time.Second,
	}}
	handler := newTestServer(t, ServerConfig{Ingestor: ing})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/data/load-references", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		LoadedURLs          []string         `json:"loadedUrls"`
		FailedURLs          []ingest.Failure `json:"failedUrls"`
		IngestedDirectories []string         `json:"ingestedDirectories"`
		ElapsedSeconds      float64          `json:"elapsedSeconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"https://a.test/doc"}, body.LoadedURLs)
	require.Len(t, body.FailedURLs, 1)
	assert.Equal(t, "connection refused", body.FailedURLs[0].Reason)
	assert.NotNil(t, body.IngestedDirectories, "empty lists serialize as []")
	assert.InDelta(t, 90.0, body.ElapsedSeconds, 0.001)

	// Empty lists are [] in the raw payload, never null.
	assert.NotContains(t, rec.Body.String(), "null")
}

func TestIngestDirectory(t *testing.T) {
	ing := &fakeIngestor{dirFailures: []ingest.Failure{{Source: "bad.md", Reason: "empty document"}}}
	handler := newTestServer(t, ServerConfig{Ingestor: ing})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/ingest-directory",
		strings.NewReader(`{"path":"/srv/docs"}`))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"/srv/docs"}, ing.ingestedDirs)

	var body ingestDirectoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "/srv/docs", body.Path)
	require.Len(t, body.FailedDocuments, 1)
	assert.Equal(t, "bad.md", body.FailedDocuments[0].Source)
}

func TestIngestDirectoryValidation(t *testing.T) {
	handler := newTestServer(t, ServerConfig{})

	tests := []struct {
		name string
		body string
	}{
		{"missing path", `{}`},
		{"not json", `path=/srv/docs`},
		{"empty body", ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/data/ingest-directory",
				strings.NewReader(tt.body))
			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestIngestDirectoryError(t *testing.T) {
	ing := &fakeIngestor{dirErr: errors.New("open /nope: no such file or directory")}
	handler := newTestServer(t, ServerConfig{Ingestor: ing})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/data/ingest-directory",
		strings.NewReader(`{"path":"/nope"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestIngestionEndpointsConflictWithRunningIngestion(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "ingest.lock")
	handler := newTestServer(t, ServerConfig{IngestLockPath: lockPath})

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- ingest.WithLock(lockPath, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/data/load-references", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "ingestion_in_progress")

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/data/ingest-directory",
		strings.NewReader(`{"path":"/srv/docs"}`)))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	require.NoError(t, <-done)

	// Released lock lets the next request through.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/data/load-references", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProvision(t *testing.T) {
	ds := &fakeDataStore{}
	handler := newTestServer(t, ServerConfig{Store: ds})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/data/provision", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ds.provisioned)
}

func TestChatDisabledWithoutResponder(t *testing.T) {
	handler := newTestServer(t, ServerConfig{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChatTurn(t *testing.T) {
	responder := &fakeResponder{reply: "Use the CLI."}
	resolver := &fakeResolver{user: &identity.User{ID: "u1", DisplayName: "Sam"}}
	handler := newTestServer(t, ServerConfig{Responder: responder, Resolver: resolver})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
		strings.NewReader(`{"message":"how do I install?","user":{"kind":"web","externalId":"abc"}}`))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body chatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Use the CLI.", body.Reply)
	assert.NotEmpty(t, body.ConversationID)

	require.Len(t, responder.turns, 1)
	assert.Equal(t, "Sam", responder.turns[0].User.DisplayName)
}

func TestChatReusesConversation(t *testing.T) {
	responder := &fakeResponder{reply: "ok"}
	handler := newTestServer(t, ServerConfig{Responder: responder})

	send := func(body string) chatResponse {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(body)))
		require.Equal(t, http.StatusOK, rec.Code)
		var resp chatResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := send(`{"message":"first"}`)
	second := send(`{"conversationId":"` + first.ConversationID + `","message":"second"}`)

	assert.Equal(t, first.ConversationID, second.ConversationID)
	require.Len(t, responder.turns, 2)
	assert.Same(t, responder.turns[0].Conversation, responder.turns[1].Conversation)
	assert.Len(t, responder.turns[1].Conversation.Messages, 4)
}

func TestChatConcurrentTurnsShareOneHistory(t *testing.T) {
	responder := &fakeResponder{reply: "ok"}
	ch := newChatHandler(responder, nil, log.NewNop())
	handler := http.HandlerFunc(ch.send)

	const turns = 16
	var wg sync.WaitGroup
	codes := make([]int, turns)
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/chat",
				strings.NewReader(`{"conversationId":"conv-1","message":"hello"}`))
			handler.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	// Every turn landed on the same serialized history.
	entry, ok := ch.conversations["conv-1"]
	require.True(t, ok)
	assert.Len(t, entry.conv.Messages, 2*turns)
	assert.Len(t, responder.turns, turns)
}

func TestChatConversationEviction(t *testing.T) {
	ch := newChatHandler(&fakeResponder{reply: "ok"}, nil, log.NewNop())
	ch.capacity = 2

	a := ch.conversation("a")
	a.lastUsed = time.Now().Add(-time.Hour)
	ch.conversation("b")
	ch.conversation("c")

	assert.Len(t, ch.conversations, 2)
	assert.NotContains(t, ch.conversations, "a")
	assert.Contains(t, ch.conversations, "b")
	assert.Contains(t, ch.conversations, "c")

	// A request for the evicted ID starts over with a fresh history.
	revived := ch.conversation("a")
	assert.NotSame(t, a, revived)
	assert.Empty(t, revived.conv.Messages)
}

func TestChatResolverFailureStaysAnonymous(t *testing.T) {
	responder := &fakeResponder{reply: "ok"}
	resolver := &fakeResolver{err: errors.New("repo down")}
	handler := newTestServer(t, ServerConfig{Responder: responder, Resolver: resolver})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"hi"}`))
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, responder.turns, 1)
	assert.Nil(t, responder.turns[0].User)
}

func TestChatValidation(t *testing.T) {
	handler := newTestServer(t, ServerConfig{Responder: &fakeResponder{reply: "ok"}})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader(`{"message":"   "}`))
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIDHeader(t *testing.T) {
	handler := newTestServer(t, ServerConfig{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/data/stats", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	handler := recoveryMiddleware(log.NewNop())(panicking)

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
