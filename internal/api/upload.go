package api

import (
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/soochol/docsum/internal/extract"
)

// uploadResponse wraps one document summary with its outcome.
type uploadResponse struct {
	Status string         `json:"status"`
	Data   extract.Result `json:"data"`
}

// uploadFiles summarizes every part of the repeated "file" form field. The
// uploads are processed in memory or multipart temp files and never stored.
func (s *Server) uploadFiles(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files uploaded"})
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No files uploaded"})
		return
	}

	docs := make([]extract.Document, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			slog.Warn("upload: open part failed", "file", h.Filename, "err", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable file part"})
			return
		}
		files = append(files, f)
		docs = append(docs, extract.Document{Name: h.Filename, Content: f})
	}

	results := s.pipeline.ProcessBatch(r.Context(), docs)
	resp := make([]uploadResponse, len(results))
	for i, res := range results {
		resp[i] = uploadResponse{Status: res.Status(), Data: res}
	}
	writeJSON(w, http.StatusOK, resp)
}
