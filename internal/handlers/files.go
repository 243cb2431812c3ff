package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/diewo77/solodesk/httpx"
	"github.com/diewo77/solodesk/internal/apperr"
	"github.com/diewo77/solodesk/internal/models"
	"github.com/diewo77/solodesk/internal/storage"
	"github.com/diewo77/solodesk/validation"
)

// DefaultMaxUpload is used when no limit is configured.
const DefaultMaxUpload = 10 << 20

type FileHandler struct {
	store     storage.Storage
	maxUpload int64
	now       func() time.Time
}

func NewFileHandler(store storage.Storage, maxUpload int64) *FileHandler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &FileHandler{store: store, maxUpload: maxUpload, now: func() time.Time { return time.Now().UTC() }}
}

// Upload stores the multipart "file" field and returns attachment metadata
// ready to be put on a client or project.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	// Multipart framing needs a little room on top of the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.Error(w, apperr.Invalid("File too large", validation.Violations{"file": "too_large"}))
			return
		}
		httpx.Error(w, apperr.Invalid("Invalid multipart body", err.Error()))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Error(w, apperr.Invalid("No file uploaded", validation.Violations{"file": "required"}))
		return
	}
	defer file.Close()
	if header.Size > h.maxUpload {
		httpx.Error(w, apperr.Invalid("File too large", validation.Violations{"file": "too_large"}))
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	obj, err := h.store.Put(r.Context(), storage.NewKey(uid, header.Filename), file, header.Size, contentType)
	if err != nil {
		httpx.Error(w, apperr.Dependency("failed to store file", err))
		return
	}
	httpx.OK(w, http.StatusCreated, models.Attachment{
		Name:       header.Filename,
		URL:        obj.URL,
		Size:       obj.Size,
		MimeType:   obj.ContentType,
		UploadedAt: h.now(),
	}, map[string]any{"filename": storage.FileName(obj.Key)})
}

// Delete removes one of the caller's files by the name returned from Upload.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, err := currentUser(r)
	if err != nil {
		httpx.Error(w, err)
		return
	}
	key, err := storage.KeyFor(uid, r.PathValue("filename"))
	if err != nil {
		httpx.Error(w, apperr.Invalid("Invalid file name", validation.Violations{"filename": "invalid_value"}))
		return
	}
	if err := h.store.Delete(r.Context(), key); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.Error(w, apperr.NotFound("File not found"))
			return
		}
		httpx.Error(w, apperr.Dependency("failed to delete file", err))
		return
	}
	httpx.OK(w, http.StatusOK, nil, map[string]any{"message": "File deleted"})
}
