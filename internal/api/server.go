package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/soochol/docsum/internal/extract"
)

const defaultMaxUploadSize = 200 << 20 // 200MB per request

type Server struct {
	pipeline      *extract.Pipeline
	maxUploadSize int64
}

func NewServer(pipeline *extract.Pipeline) *Server {
	return &Server{
		pipeline:      pipeline,
		maxUploadSize: defaultMaxUploadSize,
	}
}

// SetMaxUploadSize bounds the total size of one upload request.
func (s *Server) SetMaxUploadSize(n int64) {
	if n > 0 {
		s.maxUploadSize = n
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Post("/upload", s.uploadFiles)
	r.Get("/formats", s.listFormats)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

// listFormats returns every MIME type with a dedicated extraction strategy.
func (s *Server) listFormats(w http.ResponseWriter, r *http.Request) {
	type format struct {
		MimeType string           `json:"mime_type"`
		Strategy extract.Strategy `json:"strategy"`
	}

	var result []format
	for _, m := range extract.SupportedMIMETypes() {
		result = append(result, format{MimeType: m, Strategy: extract.Route(m)})
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
