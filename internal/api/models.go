package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/entropic-labs/recall-api/internal/domain"
)

// VideoResponse is the API representation of a video.
type VideoResponse struct {
	ID        uuid.UUID `json:"id"`
	Filename  string    `json:"filename"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewVideoResponse converts a domain video to its API representation.
// The upload path stays server-side.
func NewVideoResponse(video *domain.Video) VideoResponse {
	return VideoResponse{
		ID:        video.ID,
		Filename:  video.Filename,
		Status:    string(video.Status),
		CreatedAt: video.CreatedAt,
		UpdatedAt: video.UpdatedAt,
	}
}

// ClipResponse is the API representation of one indexed chunk.
type ClipResponse struct {
	VideoID    uuid.UUID `json:"video_id"`
	Index      int       `json:"index"`
	StartS     float64   `json:"start_s"`
	EndS       float64   `json:"end_s"`
	Transcript string    `json:"transcript"`
}

// NewClipResponse converts a domain chunk to its API representation.
// Embeddings and file paths are internal and never serialized.
func NewClipResponse(chunk *domain.Chunk) ClipResponse {
	return ClipResponse{
		VideoID:    chunk.VideoID,
		Index:      chunk.Index,
		StartS:     chunk.StartS,
		EndS:       chunk.EndS,
		Transcript: chunk.Transcript,
	}
}

// SearchResultResponse is one search hit. ClipURL points at the
// endpoint serving the matching chunk's media.
type SearchResultResponse struct {
	VideoID    uuid.UUID `json:"video_id"`
	Index      int       `json:"index"`
	StartS     float64   `json:"start_s"`
	EndS       float64   `json:"end_s"`
	Transcript string    `json:"transcript"`
	Score      float64   `json:"score"`
	ClipURL    string    `json:"clip_url"`
}

// SearchResponse is the body of a search reply.
type SearchResponse struct {
	Query   string                 `json:"query"`
	Results []SearchResultResponse `json:"results"`
}

// FailedJobResponse describes one quarantined chunk job.
type FailedJobResponse struct {
	JobID    string `json:"job_id"`
	Attempts int    `json:"attempts"`
	Error    string `json:"error"`
}

// FailedJobsResponse lists the quarantined jobs.
type FailedJobsResponse struct {
	Jobs []FailedJobResponse `json:"jobs"`
}

// RetryJobsRequest selects which quarantined jobs to replay. An empty
// or absent list replays all of them.
type RetryJobsRequest struct {
	JobIDs []string `json:"job_ids"`
}

// RetryJobsResponse reports how many jobs were resubmitted.
type RetryJobsResponse struct {
	Retried int `json:"retried"`
}
