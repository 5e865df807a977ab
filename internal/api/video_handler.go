package api

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/api/shared"
	"github.com/entropic-labs/recall-api/internal/search"
	"github.com/entropic-labs/recall-api/internal/service"
)

// defaultMaxUploadBytes caps multipart uploads at 2 GiB.
const defaultMaxUploadBytes = 2 << 30

// VideoHandler handles video upload, listing, status and clip requests.
type VideoHandler struct {
	videoService  service.VideoService
	searchService *search.Service
	uploadDir     string
	maxUploadSize int64
	logger        *slog.Logger
}

// NewVideoHandler creates a new VideoHandler.
func NewVideoHandler(
	videoService service.VideoService,
	searchService *search.Service,
	uploadDir string,
	logger *slog.Logger,
) *VideoHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &VideoHandler{
		videoService:  videoService,
		searchService: searchService,
		uploadDir:     uploadDir,
		maxUploadSize: defaultMaxUploadBytes,
		logger:        logger.With("component", "video_handler"),
	}
}

// Upload handles POST /api/videos. It stores the uploaded file and
// registers the video; indexing starts in the background, so the reply
// is 202 Accepted with the video in uploaded status.
func (h *VideoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Missing or invalid file field")
		return
	}
	defer func() { _ = file.Close() }()

	if header.Filename == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Uploaded file must have a name")
		return
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store upload", err)
		return
	}

	// Store under a fresh name so concurrent uploads of the same file
	// cannot collide.
	storedName := fmt.Sprintf("%s_%s", uuid.New(), filepath.Base(header.Filename))
	uploadPath := filepath.Join(h.uploadDir, storedName)

	dst, err := os.Create(uploadPath)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store upload", err)
		return
	}

	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(uploadPath)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store upload", err)
		return
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(uploadPath)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError,
			"Failed to store upload", err)
		return
	}

	video, err := h.videoService.CreateVideo(r.Context(), header.Filename, uploadPath)
	if err != nil {
		_ = os.Remove(uploadPath)
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	h.logger.Info("video upload accepted",
		"video_id", video.ID,
		"filename", header.Filename,
		"size_bytes", header.Size)

	shared.RespondWithJSON(w, r, http.StatusAccepted, NewVideoResponse(video))
}

// List handles GET /api/videos.
func (h *VideoHandler) List(w http.ResponseWriter, r *http.Request) {
	videos, err := h.videoService.ListVideos(r.Context())
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	out := make([]VideoResponse, 0, len(videos))
	for _, video := range videos {
		out = append(out, NewVideoResponse(video))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Get handles GET /api/videos/{id}, reporting the indexing status.
func (h *VideoHandler) Get(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoIDFromURL(w, r)
	if !ok {
		return
	}

	video, err := h.videoService.GetVideo(r.Context(), videoID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewVideoResponse(video))
}

// Clips handles GET /api/videos/{id}/clips, returning the indexed
// chunks of a video in playback order.
func (h *VideoHandler) Clips(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoIDFromURL(w, r)
	if !ok {
		return
	}

	// A clip listing for an unknown video should 404, not return an
	// empty list.
	if _, err := h.videoService.GetVideo(r.Context(), videoID); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	chunks, err := h.searchService.ClipsByVideo(r.Context(), videoID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	out := make([]ClipResponse, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, NewClipResponse(chunk))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// ServeClip handles GET /api/clips/{id}/{index}, streaming the chunk
// media file so a client can play the moment a search result points at.
func (h *VideoHandler) ServeClip(w http.ResponseWriter, r *http.Request) {
	videoID, ok := h.videoIDFromURL(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid clip index")
		return
	}

	chunk, err := h.searchService.Clip(r.Context(), videoID, index)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	if _, err := os.Stat(chunk.Path); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusNotFound,
			"Clip media not available", err)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, chunk.Path)
}

// videoIDFromURL parses the {id} URL parameter, writing a 400 response
// and returning false when it is not a valid UUID.
func (h *VideoHandler) videoIDFromURL(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	videoID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid video ID")
		return uuid.Nil, false
	}
	return videoID, true
}
