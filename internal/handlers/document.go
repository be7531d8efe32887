package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/repository"
	"docchat/internal/services"
)

type documentService interface {
	Ingest(ctx context.Context, up services.Upload) (*models.Document, error)
	Active(ctx context.Context) (*models.Document, error)
	StoragePath() string
}

type DocumentHandler struct {
	docs     documentService
	maxBytes int64
	logger   *zap.Logger
}

func NewDocumentHandler(docs documentService, maxUploadMB int, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		docs:     docs,
		maxBytes: int64(maxUploadMB) * 1024 * 1024,
		logger:   logger,
	}
}

func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File size exceeds upload limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file part", r))
		return
	}
	defer file.Close()

	if strings.TrimSpace(header.Filename) == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No selected file", r))
		return
	}

	// Read first 512 bytes for magic byte check
	buf := make([]byte, 512)
	n, _ := io.ReadFull(file, buf)
	mimeType := http.DetectContentType(buf[:n])
	if !isAllowedUpload(mimeType, header.Filename) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to read upload", r))
		return
	}

	doc, err := h.docs.Ingest(r.Context(), services.Upload{
		Filename: header.Filename,
		MimeType: mimeType,
		Body:     file,
	})
	if err != nil {
		h.logger.Error("upload failed", zap.String("filename", header.Filename), zap.Error(err))
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.UploadResponse{
		Success:    true,
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Chunks:     doc.ChunkCount,
	})
}

func (h *DocumentHandler) Active(w http.ResponseWriter, r *http.Request) {
	doc, err := h.docs.Active(r.Context())
	if errors.Is(err, repository.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No document has been uploaded yet", r))
		return
	}
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ServeFile returns a stored upload by its stored name.
func (h *DocumentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "filename")
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid file name", r))
		return
	}

	path := filepath.Join(h.docs.StoragePath(), name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "File not found", r))
		return
	}
	http.ServeFile(w, r, path)
}

func (h *DocumentHandler) SupportedFormats(w http.ResponseWriter, r *http.Request) {
	formats := make([]map[string]string, 0, len(services.SupportedExtensions))
	for _, ext := range []string{".pdf", ".docx", ".txt", ".md"} {
		formats = append(formats, map[string]string{"extension": ext, "mime_type": services.SupportedExtensions[ext]})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"formats": formats})
}

func isAllowedUpload(mime, filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := services.SupportedExtensions[ext]; !ok {
		return false
	}
	switch {
	case mime == "application/pdf":
		return ext == ".pdf"
	case strings.HasPrefix(mime, "text/plain"):
		return ext == ".txt" || ext == ".md"
	case mime == "application/zip", mime == "application/octet-stream":
		// docx is a zip container; sniffing cannot tell it apart
		return ext == ".docx" || ext == ".pdf"
	}
	return false
}
