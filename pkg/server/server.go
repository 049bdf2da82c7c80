// Package server exposes the pipeline over HTTP: the JSON upload endpoint,
// a health check and the review pages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Nephrolytics-ai/study-notes/pkg/logging"
	"github.com/Nephrolytics-ai/study-notes/pkg/pipeline"
	"github.com/Nephrolytics-ai/study-notes/pkg/review"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	uploadField     = "file"
	shutdownTimeout = 10 * time.Second
)

type Options struct {
	MaxUploadBytes int64
	CORSOrigins    []string
	// Review is mounted at / when set.
	Review *review.Handler
}

// UploadResponse is the success body of POST /upload/. Sqa holds the
// validated quiz serialized as a JSON string.
type UploadResponse struct {
	Filename   string `json:"filename"`
	Transcript string `json:"transcript"`
	Notes      string `json:"notes"`
	Sqa        string `json:"sqa"`
}

type uploadHandler struct {
	processor      review.Processor
	maxUploadBytes int64
}

func NewRouter(processor review.Processor, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(opts.CORSOrigins)))

	maxBytes := opts.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 500 << 20
	}
	upload := &uploadHandler{processor: processor, maxUploadBytes: maxBytes}

	r.Get("/healthz", healthz)
	r.Post("/upload", upload.ServeHTTP)
	r.Post("/upload/", upload.ServeHTTP)

	if opts.Review != nil {
		opts.Review.Routes(r)
	}
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *uploadHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logging.NewLogger(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		log.Warnf("invalid upload: %v", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "upload exceeds the size limit", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	result, err := h.processor.Process(r.Context(), header.Filename, file)
	if err != nil {
		jsonError(w, pipeline.Message(err), pipeline.StatusCode(err))
		return
	}

	sqa, err := json.Marshal(result.Quiz)
	if err != nil {
		log.Errorf("error: %v", err)
		jsonError(w, "could not encode quiz", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, UploadResponse{
		Filename:   result.Filename,
		Transcript: result.Transcript,
		Notes:      result.Notes,
		Sqa:        string(sqa),
	}, http.StatusOK)
}

func jsonResponse(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResponse(w, map[string]string{"error": msg}, status)
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	log := logging.NewLogger(ctx)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Infof("server listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
