// Package api exposes the ingestion and chat surfaces over a JSON HTTP API.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/docent-ai/docent/internal/chat"
	"github.com/docent-ai/docent/internal/identity"
	"github.com/docent-ai/docent/internal/ingest"
	"github.com/docent-ai/docent/internal/log"
	"github.com/docent-ai/docent/internal/store"
)

// Ingestor runs reference loads and single-directory ingestion.
type Ingestor interface {
	LoadReferences(ctx context.Context) *ingest.Result
	IngestDirectory(ctx context.Context, dir string) ([]ingest.Failure, error)
}

// DataStore provisions storage and reports counts.
type DataStore interface {
	Provision(ctx context.Context) error
	Info(ctx context.Context) (store.Info, error)
}

// Responder answers one conversation turn.
type Responder interface {
	Respond(ctx context.Context, turn *chat.Turn) (*chat.Message, error)
}

// UserResolver maps transport identity hints to users.
type UserResolver interface {
	Resolve(ctx context.Context, hint identity.Hint) (*identity.User, error)
}

// ServerConfig contains the dependencies for the API server.
type ServerConfig struct {
	Logger    log.Logger
	Ingestor  Ingestor     // Required
	Store     DataStore    // Required
	Responder Responder    // Optional: nil disables /api/v1/chat
	Resolver  UserResolver // Optional: nil leaves chat turns anonymous

	// IngestLockPath is the file lock serializing ingestion with the CLI.
	// Empty selects ingest.DefaultLockPath().
	IngestLockPath string
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Ingestor == nil {
		return nil, errors.New("ingestor is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("data store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()

	lockPath := cfg.IngestLockPath
	if lockPath == "" {
		lockPath = ingest.DefaultLockPath()
	}

	dh := &dataHandler{ingestor: cfg.Ingestor, store: cfg.Store, lockPath: lockPath, logger: logger}
	mux.HandleFunc("GET /api/v1/data/stats", dh.stats)
	mux.HandleFunc("POST /api/v1/data/load-references", dh.loadReferences)
	mux.HandleFunc("POST /api/v1/data/ingest-directory", dh.ingestDirectory)
	mux.HandleFunc("POST /api/v1/data/provision", dh.provision)

	if cfg.Responder != nil {
		ch := newChatHandler(cfg.Responder, cfg.Resolver, logger)
		mux.HandleFunc("POST /api/v1/chat", ch.send)
	}

	// Recovery → RequestID → Logging → Routes. RequestID sits before
	// Logging so request_id is available in log attributes.
	var handler http.Handler = mux
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, logger)
	})
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
