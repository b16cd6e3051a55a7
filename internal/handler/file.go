package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/nzoschke/studyvault/internal/ctxkeys"
	"github.com/nzoschke/studyvault/internal/model"
	"github.com/nzoschke/studyvault/internal/service"
	"github.com/nzoschke/studyvault/internal/validation"
)

// multipartOverhead leaves room for boundaries and part headers around the file
const multipartOverhead = 1 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

type fileResponse struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	SizeBytes    int64     `json:"sizeBytes"`
	UploadedAt   time.Time `json:"uploadedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func toFileResponse(f *model.File) fileResponse {
	return fileResponse{
		ID:           f.ID,
		OriginalName: f.OriginalName,
		StoredName:   f.StoredName,
		SizeBytes:    f.SizeBytes,
		UploadedAt:   f.UploadedAt,
		UpdatedAt:    f.UpdatedAt,
	}
}

// Upload handles POST /api/files/upload with multipart field "file".
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	record, err := h.fileService.Store(r.Context(), ctxkeys.Identity(r.Context()), header.Filename, file, header.Size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toFileResponse(record))
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	files, err := h.fileService.List(r.Context(), ctxkeys.Identity(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := make([]fileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, toFileResponse(f))
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": resp})
}

// Download streams the blob as an attachment named after the original upload.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	storedName := r.PathValue("storedName")

	record, content, err := h.fileService.Open(r.Context(), ctxkeys.Identity(r.Context()), storedName)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer content.Close()

	contentType := mime.TypeByExtension(validation.Extension(record.StoredName))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(record.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": record.OriginalName}))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	_, err = io.Copy(w, content)
	if err != nil {
		// Headers are already sent
		slog.Warn("download interrupted", "stored_name", storedName, "error", err)
	}
}

// Replace handles PUT /api/files/{storedName}; the response carries the new stored name.
func (h *FileHandler) Replace(w http.ResponseWriter, r *http.Request) {
	file, header, ok := formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	record, err := h.fileService.Replace(r.Context(), ctxkeys.Identity(r.Context()), r.PathValue("storedName"), file, header.Size)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toFileResponse(record))
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.fileService.Delete(r.Context(), ctxkeys.Identity(r.Context()), r.PathValue("storedName"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// formFile reads the "file" part of a size-bounded multipart body.
// It writes the error response itself and reports false on failure.
func formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, validation.MaxFileSize+multipartOverhead)

	err := r.ParseMultipartForm(1 << 20)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file size exceeds maximum allowed size", Field: "size"})
			return nil, nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return nil, nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file is required", Field: "file"})
		return nil, nil, false
	}

	return file, header, true
}
