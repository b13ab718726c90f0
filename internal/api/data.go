package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/docent-ai/docent/internal/ingest"
	"github.com/docent-ai/docent/internal/log"
)

// dataHandler serves the operator-facing data management endpoints.
// Ingestion endpoints run under the same file lock as the CLI commands,
// so an HTTP-triggered reload and a manual load never run concurrently.
type dataHandler struct {
	ingestor Ingestor
	store    DataStore
	lockPath string
	logger   log.Logger
}

type statsResponse struct {
	DocumentCount       int `json:"documentCount"`
	ChunkCount          int `json:"chunkCount"`
	ContentElementCount int `json:"contentElementCount"`
}

// ingestionResponse mirrors the run summary with non-null lists and the
// elapsed time in seconds.
type ingestionResponse struct {
	LoadedURLs          []string         `json:"loadedUrls"`
	FailedURLs          []ingest.Failure `json:"failedUrls"`
	IngestedDirectories []string         `json:"ingestedDirectories"`
	FailedDirectories   []ingest.Failure `json:"failedDirectories"`
	FailedDocuments     []ingest.Failure `json:"failedDocuments"`
	ElapsedSeconds      float64          `json:"elapsedSeconds"`
}

func ingestionResponseFrom(r *ingest.Result) ingestionResponse {
	resp := ingestionResponse{
		LoadedURLs:          r.LoadedURLs,
		FailedURLs:          r.FailedURLs,
		IngestedDirectories: r.IngestedDirectories,
		FailedDirectories:   r.FailedDirectories,
		FailedDocuments:     r.FailedDocuments,
		ElapsedSeconds:      r.Elapsed.Seconds(),
	}
	// Empty lists serialize as [] rather than null.
	if resp.LoadedURLs == nil {
		resp.LoadedURLs = []string{}
	}
	if resp.FailedURLs == nil {
		resp.FailedURLs = []ingest.Failure{}
	}
	if resp.IngestedDirectories == nil {
		resp.IngestedDirectories = []string{}
	}
	if resp.FailedDirectories == nil {
		resp.FailedDirectories = []ingest.Failure{}
	}
	if resp.FailedDocuments == nil {
		resp.FailedDocuments = []ingest.Failure{}
	}
	return resp
}

func (h *dataHandler) stats(w http.ResponseWriter, r *http.Request) {
	info, err := h.store.Info(r.Context())
	if err != nil {
		h.logger.Error("reading store stats", "error", err)
		writeError(w, http.StatusInternalServerError, "stats_failed", "could not read store stats", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		DocumentCount:       info.DocumentCount,
		ChunkCount:          info.ChunkCount,
		ContentElementCount: info.ContentElementCount,
	}, h.logger)
}

func (h *dataHandler) loadReferences(w http.ResponseWriter, r *http.Request) {
	var result *ingest.Result
	err := ingest.WithLock(h.lockPath, func() error {
		result = h.ingestor.LoadReferences(r.Context())
		return nil
	})
	if errors.Is(err, ingest.ErrLocked) {
		writeError(w, http.StatusConflict, "ingestion_in_progress", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("reference load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "load_failed", "could not load references", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, ingestionResponseFrom(result), h.logger)
}

type ingestDirectoryRequest struct {
	Path string `json:"path"`
}

type ingestDirectoryResponse struct {
	Path            string           `json:"path"`
	FailedDocuments []ingest.Failure `json:"failedDocuments"`
}

func (h *dataHandler) ingestDirectory(w http.ResponseWriter, r *http.Request) {
	var req ingestDirectoryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "request body must be JSON with a path field", h.logger)
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path_required", "path is required", h.logger)
		return
	}

	var failures []ingest.Failure
	err := ingest.WithLock(h.lockPath, func() error {
		var ingestErr error
		failures, ingestErr = h.ingestor.IngestDirectory(r.Context(), req.Path)
		return ingestErr
	})
	if errors.Is(err, ingest.ErrLocked) {
		writeError(w, http.StatusConflict, "ingestion_in_progress", err.Error(), h.logger)
		return
	}
	if err != nil {
		h.logger.Error("directory ingestion failed", "path", req.Path, "error", err)
		writeError(w, http.StatusUnprocessableEntity, "ingest_failed", err.Error(), h.logger)
		return
	}
	if failures == nil {
		failures = []ingest.Failure{}
	}
	writeJSON(w, http.StatusOK, ingestDirectoryResponse{Path: req.Path, FailedDocuments: failures}, h.logger)
}

func (h *dataHandler) provision(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Provision(r.Context()); err != nil {
		h.logger.Error("provisioning store", "error", err)
		writeError(w, http.StatusInternalServerError, "provision_failed", "could not provision the store", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "provisioned"}, h.logger)
}
