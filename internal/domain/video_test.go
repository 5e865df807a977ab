package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVideo(t *testing.T) {
	t.Parallel()

	t.Run("valid video", func(t *testing.T) {
		t.Parallel()

		video, err := NewVideo("holiday.mp4", "/data/uploads/abc_holiday.mp4")
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, video.ID)
		assert.Equal(t, "holiday.mp4", video.Filename)
		assert.Equal(t, VideoStatusUploaded, video.Status)
		assert.False(t, video.CreatedAt.IsZero())
	})

	t.Run("empty filename", func(t *testing.T) {
		t.Parallel()

		_, err := NewVideo("", "/data/uploads/abc.mp4")
		assert.ErrorIs(t, err, ErrEmptyVideoFilename)
	})

	t.Run("empty upload path", func(t *testing.T) {
		t.Parallel()

		_, err := NewVideo("holiday.mp4", "")
		assert.ErrorIs(t, err, ErrEmptyVideoUploadPath)
	})
}

func TestVideo_UpdateStatus(t *testing.T) {
	t.Parallel()

	video, err := NewVideo("holiday.mp4", "/data/uploads/abc_holiday.mp4")
	require.NoError(t, err)

	previousUpdate := video.UpdatedAt

	err = video.UpdateStatus(VideoStatusReady)
	require.NoError(t, err)
	assert.Equal(t, VideoStatusReady, video.Status)
	assert.True(t, !video.UpdatedAt.Before(previousUpdate))

	err = video.UpdateStatus(VideoStatus("bogus"))
	assert.ErrorIs(t, err, ErrInvalidVideoStatus)
	assert.Equal(t, VideoStatusReady, video.Status)
}

func TestChunk_Validate(t *testing.T) {
	t.Parallel()

	valid := Chunk{
		VideoID: uuid.New(),
		Index:   0,
		StartS:  0,
		EndS:    10,
		Path:    "/data/chunks/vid/chunk_00000.mp4",
	}

	tests := []struct {
		name    string
		mutate  func(c *Chunk)
		wantErr error
	}{
		{"valid", func(c *Chunk) {}, nil},
		{"missing video ID", func(c *Chunk) { c.VideoID = uuid.Nil }, ErrEmptyChunkVideoID},
		{"negative index", func(c *Chunk) { c.Index = -1 }, ErrNegativeChunkIndex},
		{"end before start", func(c *Chunk) { c.EndS = c.StartS - 1 }, ErrInvalidChunkTiming},
		{"missing path", func(c *Chunk) { c.Path = "" }, ErrEmptyChunkPath},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			chunk := valid
			tc.mutate(&chunk)

			err := chunk.Validate()
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}
