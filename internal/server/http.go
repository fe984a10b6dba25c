// Package server exposes stored blotters and digests over HTTP and gRPC.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/blotter-tracker/internal/common"
	"github.com/joseph-ayodele/blotter-tracker/internal/entity"
	"github.com/joseph-ayodele/blotter-tracker/internal/pipeline"
)

const requestIDHeader = "X-Request-ID"

type PostReader interface {
	ListPosts(ctx context.Context, f entity.PostFilter) ([]*entity.Post, int, error)
	GetPost(ctx context.Context, id uuid.UUID) (*entity.Post, error)
	Counties(ctx context.Context) ([]entity.CountyCount, error)
	Agencies(ctx context.Context) ([]entity.AgencyCount, error)
}

type BatchReader interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*entity.Batch, error)
	ListRecords(ctx context.Context, batchID uuid.UUID) ([]entity.Record, error)
}

type Exporter interface {
	ExportBatchXLSX(ctx context.Context, batchID uuid.UUID) ([]byte, error)
}

// DocumentProcessor runs uploaded documents through the pipeline.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, path, countyOverride string) (*pipeline.Result, error)
	ProcessText(ctx context.Context, doc pipeline.TextDocument) (*pipeline.Result, error)
}

type HTTPConfig struct {
	PublicBaseURL  string
	MaxUploadBytes int64
	UploadDir      string
}

// API serves the public read endpoints and the ingestion endpoints.
type API struct {
	cfg       HTTPConfig
	posts     PostReader
	batches   BatchReader
	exporter  Exporter
	processor DocumentProcessor
	logger    *slog.Logger
	now       func() time.Time
}

func NewAPI(cfg HTTPConfig, posts PostReader, batches BatchReader, exporter Exporter, processor DocumentProcessor, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	return &API{
		cfg:       cfg,
		posts:     posts,
		batches:   batches,
		exporter:  exporter,
		processor: processor,
		logger:    logger,
		now:       time.Now,
	}
}

// Router builds the chi router for the API.
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(a.requestContext)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/feed.xml", a.handleFeed)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", a.handleListPosts)
		r.Get("/posts/{id}", a.handleGetPost)
		r.Get("/counties", a.handleCounties)
		r.Get("/agencies", a.handleAgencies)

		r.Post("/blotters", a.handleUpload)
		r.Post("/blotters/text", a.handleIngestText)
		r.Get("/blotters/{id}/incidents", a.handleIncidents)
		r.Get("/blotters/{id}/export.xlsx", a.handleExport)
	})
	return r
}

// requestContext tags each request with an ID and a logger carrying it.
func (a *API) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = common.NewRequestID()
		}
		w.Header().Set(requestIDHeader, id)

		logger := a.logger.With("req_id", id)
		ctx := common.WithLogger(common.WithRequestID(r.Context(), id), a.logger)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Info("http.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes {"error": msg}. Server errors
// are logged and their detail withheld.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := common.HTTPStatus(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		common.LoggerFromContext(r.Context(), a.logger).Error("http.error", "path", r.URL.Path, "error", err)
		msg = http.StatusText(status)
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, common.NewAppError("BAD_ID", "id must be a UUID", common.ErrInvalidInput)
	}
	return id, nil
}
