// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/vaultimport/core"
	"github.com/poiesic/vaultimport/ingestion"
	"github.com/poiesic/vaultimport/progress"
)

// OwnerHeader carries the authenticated subject supplied by the identity provider.
const OwnerHeader = "X-Owner-ID"

// DefaultStreamBuffer is how many progress events may queue ahead of a slow client.
const DefaultStreamBuffer = 64

// Importer schedules import runs. *ingestion.Pipeline implements it.
type Importer interface {
	Submit(ctx context.Context, content core.RawContent, owner string, sink progress.Sink, done func(*core.ImportResult, error)) error
	Running() int
}

// Handler serves the import API.
type Handler struct {
	importer     Importer
	maxBodyBytes int64
	streamBuffer int
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithMaxBodyBytes caps how much of a request body is read.
// Bodies over the cap are cut one byte past it, so the pipeline's own size
// check still rejects them. Default is ingestion.DefaultMaxInputBytes.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// WithStreamBuffer sets the per-request progress buffer.
func WithStreamBuffer(n int) Option {
	return func(h *Handler) {
		if n >= 0 {
			h.streamBuffer = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a Handler that submits runs to importer.
func NewHandler(importer Importer, opts ...Option) *Handler {
	h := &Handler{
		importer:     importer,
		maxBodyBytes: ingestion.DefaultMaxInputBytes,
		streamBuffer: DefaultStreamBuffer,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("component", "server")
	return h
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/imports", h.Import)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(h.logger, mux)
	wrapped = loggingMiddleware(h.logger, wrapped)

	return wrapped
}

// NewServer returns an http.Server for addr serving h.
func NewServer(addr string, h *Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewServeMux(h),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Import accepts a document and streams the run's progress back as SSE.
//
// The run is detached from the request: if the client goes away, events stop
// flowing but the import still finishes and its records are still stored.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	owner := r.Header.Get(OwnerHeader)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "missing "+OwnerHeader+" header")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodyBytes+1))
	if err != nil {
		h.logger.Warn("failed to read upload", "err", err)
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}

	content := core.RawContent{Kind: core.SourceKind(r.URL.Query().Get("kind"))}
	if kind, err := core.ParseSourceKind(string(content.Kind)); err == nil {
		content.Kind = kind
	}
	if content.Kind == core.SourceKindImage {
		content.Data = body
	} else {
		content.Text = string(body)
	}

	w.Header().Set("Content-Type", progress.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	writer := progress.NewWriter(w)

	stream := progress.NewStream(h.streamBuffer)
	defer stream.Detach()

	if err := h.importer.Submit(context.WithoutCancel(r.Context()), content, owner, stream, nil); err != nil {
		h.logger.Error("failed to schedule import", "err", err)
		_ = writer.WriteEvent(progress.Error("Import could not be scheduled"))
		return
	}

	for {
		select {
		case event, ok := <-stream.Events():
			if !ok {
				return
			}
			if err := writer.WriteEvent(event); err != nil {
				h.logger.Info("client stopped reading progress", "err", err)
				return
			}
		case <-r.Context().Done():
			h.logger.Info("client disconnected, import continues", "owner", owner)
			return
		}
	}
}

// Health reports liveness and the number of imports in flight.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", RunningJobs: h.importer.Running()})
}
