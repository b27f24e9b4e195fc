package api

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/drawing-thumbnailer/internal/failure"
	"github.com/tendant/drawing-thumbnailer/internal/storage"
	"github.com/tendant/drawing-thumbnailer/internal/store"
	"github.com/tendant/drawing-thumbnailer/internal/thumbnail"
	"github.com/tendant/drawing-thumbnailer/pkg/schema"
)

// Fetcher downloads a source file by URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

type Handler struct {
	svc            *thumbnail.Service
	fetcher        Fetcher
	logger         *slog.Logger
	maxUploadBytes int64
}

func NewHandler(svc *thumbnail.Service, fetcher Fetcher, logger *slog.Logger, maxUploadBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, fetcher: fetcher, logger: logger, maxUploadBytes: maxUploadBytes}
}

type generateRequest struct {
	FileURL  string `json:"fileUrl"`
	FileType string `json:"fileType"`
}

type generateResponse struct {
	Success   bool   `json:"success"`
	Thumbnail string `json:"thumbnail"`
	MimeType  string `json:"mimeType"`
	Size      int    `json:"size"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// GenerateThumbnail derives a preview of the file at fileUrl and returns it
// inline as base64. Nothing is stored.
func (h *Handler) GenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request", "body must be JSON")
		return
	}
	if req.FileURL == "" || req.FileType == "" {
		writeMessage(w, r, http.StatusBadRequest, "Missing fileUrl or fileType", "")
		return
	}
	if !schema.ParseMediaKind(req.FileType).Supported() {
		writeMessage(w, r, http.StatusBadRequest, "Unsupported file type: "+req.FileType, "")
		return
	}

	logger := h.logger.With("file_url", req.FileURL, "file_type", req.FileType)
	data, err := h.fetcher.Fetch(r.Context(), req.FileURL)
	if err != nil {
		logger.Error("fetch source failed", "err", err)
		writeError(w, r, err)
		return
	}

	preview, err := h.svc.Deriver().Derive(r.Context(), data, req.FileType)
	if err != nil {
		logger.Error("generate thumbnail failed", "kind", failure.KindOf(err), "err", err)
		writeError(w, r, err)
		return
	}
	logger.Info("thumbnail generated", "bytes", preview.Size(), "width", preview.Width, "height", preview.Height)

	render.JSON(w, r, generateResponse{
		Success:   true,
		Thumbnail: base64.StdEncoding.EncodeToString(preview.Data),
		MimeType:  preview.MimeType,
		Size:      preview.Size(),
		Width:     preview.Width,
		Height:    preview.Height,
	})
}

type drawingRequest struct {
	BucketPath string `json:"bucketPath"`
	DrawingID  string `json:"drawingId"`
}

type drawingResponse struct {
	Success       bool   `json:"success"`
	ThumbnailPath string `json:"thumbnailPath"`
	ThumbnailURL  string `json:"thumbnailUrl,omitempty"`
	DrawingID     string `json:"drawingId"`
	MimeType      string `json:"mimeType"`
	Size          int    `json:"size"`
	Width         int    `json:"width"`
	Height        int    `json:"height"`
}

// GenerateForDrawing previews an object already in the bucket and attaches
// it to the drawing.
func (h *Handler) GenerateForDrawing(w http.ResponseWriter, r *http.Request) {
	var req drawingRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid request", "body must be JSON")
		return
	}

	preview, ref, err := h.svc.GenerateForPath(r.Context(), req.BucketPath, req.DrawingID)
	if err != nil {
		h.logger.Error("generate thumbnail for drawing failed", "drawing_id", req.DrawingID, "bucket_path", req.BucketPath, "kind", failure.KindOf(err), "err", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, drawingResponse{
		Success:       true,
		ThumbnailPath: ref.Key,
		ThumbnailURL:  ref.URL,
		DrawingID:     req.DrawingID,
		MimeType:      preview.MimeType,
		Size:          preview.Size(),
		Width:         preview.Width,
		Height:        preview.Height,
	})
}

type drawingView struct {
	*store.SourceDocument
	ThumbnailURL   string `json:"thumbnail_url,omitempty"`
	FallbackIcon   string `json:"fallback_icon,omitempty"`
	ThumbnailError string `json:"thumbnail_error,omitempty"`
}

func (h *Handler) view(doc *store.SourceDocument) drawingView {
	v := drawingView{SourceDocument: doc}
	if doc.HasPreview() {
		v.ThumbnailURL = h.svc.Association().PublicURL(*doc.PreviewKey)
	} else {
		v.FallbackIcon = schema.FallbackIcon(doc.FileType)
	}
	return v
}

// UploadDrawing accepts a multipart "file" field, stores it and creates the
// drawing. A failed preview does not fail the upload.
func (h *Handler) UploadDrawing(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Missing file", err.Error())
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeMessage(w, r, http.StatusBadRequest, "Invalid upload", err.Error())
		return
	}

	doc, previewErr, err := h.svc.Upload(r.Context(), thumbnail.UploadRequest{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	v := h.view(doc)
	if previewErr != nil {
		v.ThumbnailError = failure.KindOf(previewErr).Summary()
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, v)
}

// ListDrawings returns the newest drawings, limit 100 unless ?limit= says
// otherwise.
func (h *Handler) ListDrawings(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeMessage(w, r, http.StatusBadRequest, "Invalid limit", s)
			return
		}
		limit = n
	}

	docs, err := h.svc.Documents().List(r.Context(), limit)
	if err != nil {
		h.logger.Error("list drawings failed", "err", err)
		writeError(w, r, err)
		return
	}
	views := make([]drawingView, len(docs))
	for i, doc := range docs {
		views[i] = h.view(doc)
	}
	render.JSON(w, r, views)
}

// GetThumbnail streams the stored preview.
func (h *Handler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	doc, err := h.svc.Documents().Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := h.svc.Association().FetchPreview(r.Context(), doc)
	if errors.Is(err, storage.ErrNotFound) {
		writeMessage(w, r, http.StatusNotFound, "No thumbnail", schema.FallbackIcon(doc.FileType))
		return
	}
	if err != nil {
		writeError(w, r, failure.New(failure.UpstreamFetchError, "fetch preview", err))
		return
	}

	w.Header().Set("Content-Type", schema.PreviewMimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Cache-Control", "public, max-age=300")
	_, _ = w.Write(data)
}

type regenerateResponse struct {
	Success bool `json:"success"`
	schema.ThumbnailDone
}

// RegenerateThumbnail derives the preview of an existing drawing again.
func (h *Handler) RegenerateThumbnail(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Regenerate(r.Context(), strings.TrimSpace(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, regenerateResponse{Success: true, ThumbnailDone: res.Done()})
}
