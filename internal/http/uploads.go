package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/media-catalog/internal/blob"
)

const (
	uploadField     = "file"
	uploadKeyPrefix = "posters"
	// multipart framing on top of the file itself
	uploadOverhead = 64 << 10
)

type uploadResponse struct {
	URL string `json:"url"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.UploadMaxBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+uploadOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Expected multipart/form-data body")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > limit {
		s.respondError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File too large")
		return
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Unable to read file")
		return
	}
	contentType := http.DetectContentType(sniff[:n])
	if !strings.HasPrefix(contentType, "image/") {
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Only image uploads are accepted")
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		s.respondError(w, http.StatusBadRequest, "INVALID_ARGUMENT", "Unable to read file")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.StoreTimeout())
	defer cancel()

	key := blob.NewKey(uploadKeyPrefix, header.Filename, s.now())
	url, err := s.blobs.Put(ctx, key, file, contentType)
	if err != nil {
		s.logger.Error("upload poster failed", "error", err, "key", key, "request_id", middleware.GetReqID(r.Context()))
		s.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to upload file")
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{URL: url})
}
