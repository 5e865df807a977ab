package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// VideoStatus represents the processing state of an uploaded video.
type VideoStatus string

// Possible video status values
const (
	VideoStatusUploaded   VideoStatus = "uploaded"
	VideoStatusProcessing VideoStatus = "processing"
	VideoStatusReady      VideoStatus = "ready"
	VideoStatusFailed     VideoStatus = "failed"
)

// Common validation errors for Video
var (
	ErrEmptyVideoID         = errors.New("video ID cannot be empty")
	ErrEmptyVideoFilename   = errors.New("video filename cannot be empty")
	ErrEmptyVideoUploadPath = errors.New("video upload path cannot be empty")
)

// Video represents an uploaded recording and tracks its indexing state.
// Chunks are derived from it by the media segmenter and indexed in the
// background; the status field reflects how far that pipeline has gotten.
type Video struct {
	ID         uuid.UUID   `json:"id"`
	Filename   string      `json:"filename"`
	UploadPath string      `json:"upload_path"`
	Status     VideoStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// NewVideo creates a new Video with the given original filename and the
// path the upload was stored at. It generates a new UUID for the video ID,
// sets the status to uploaded, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewVideo(filename, uploadPath string) (*Video, error) {
	video := &Video{
		ID:         uuid.New(),
		Filename:   filename,
		UploadPath: uploadPath,
		Status:     VideoStatusUploaded,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := video.Validate(); err != nil {
		return nil, err
	}

	return video, nil
}

// Validate checks if the Video has valid data.
// Returns an error if any field fails validation.
func (v *Video) Validate() error {
	if v.ID == uuid.Nil {
		return ErrEmptyVideoID
	}

	if v.Filename == "" {
		return ErrEmptyVideoFilename
	}

	if v.UploadPath == "" {
		return ErrEmptyVideoUploadPath
	}

	if !isValidVideoStatus(v.Status) {
		return ErrInvalidVideoStatus
	}

	return nil
}

// UpdateStatus updates the video's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (v *Video) UpdateStatus(status VideoStatus) error {
	if !isValidVideoStatus(status) {
		return ErrInvalidVideoStatus
	}

	v.Status = status
	v.UpdatedAt = time.Now().UTC()
	return nil
}

// isValidVideoStatus checks if the given status is a valid VideoStatus.
func isValidVideoStatus(status VideoStatus) bool {
	switch status {
	case VideoStatusUploaded, VideoStatusProcessing, VideoStatusReady, VideoStatusFailed:
		return true
	default:
		return false
	}
}
