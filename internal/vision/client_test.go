package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropic-labs/recall-api/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTestFrames creates n tiny JPEG stand-ins on disk and returns them
// as ordered frames.
func writeTestFrames(t *testing.T, n int) []domain.Frame {
	t.Helper()

	dir := t.TempDir()
	frames := make([]domain.Frame, 0, n)
	for i := 0; i < n; i++ {
		path := filepath.Join(dir, fmt.Sprintf("frame_%05d.jpg", i))
		require.NoError(t, os.WriteFile(path, []byte{0xFF, 0xD8, byte(i)}, 0o644))
		frames = append(frames, domain.Frame{
			Index:      i,
			TimestampS: float64(i) * 2.0,
			JPEGPath:   path,
		})
	}
	return frames
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	t.Parallel()

	_, err := NewClient(ClientConfig{}, testLogger())
	assert.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestClient_SendBatch(t *testing.T) {
	t.Parallel()

	var received batchPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		results := make([]map[string]any, len(received.Meta))
		for i, meta := range received.Meta {
			results[i] = map[string]any{
				"frame_index": meta.FrameIndex,
				"timestamp_s": meta.TimestampS,
				"caption":     "a desk with a laptop",
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{EndpointURL: server.URL}, testLogger())
	require.NoError(t, err)

	frames := writeTestFrames(t, 3)
	results, err := client.SendBatch(context.Background(), frames)
	require.NoError(t, err)
	require.Len(t, results, 3)

	first := results[0]
	require.NotNil(t, first.FrameIndex)
	assert.Equal(t, 0, *first.FrameIndex)
	assert.Equal(t, "a desk with a laptop", first.Caption)

	assert.Len(t, received.ImagesB64, 3)
	assert.Equal(t, defaultPrompt, received.Prompt)
	assert.Equal(t, 2, received.Meta[2].FrameIndex)
	assert.Equal(t, 4.0, received.Meta[2].TimestampS)

	require.NotNil(t, results[1].FrameIndex)
	assert.Equal(t, 1, *results[1].FrameIndex)
	assert.Equal(t, "a desk with a laptop", results[1].Caption)
}

func TestClient_SendBatch_MissingResultsField(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"outputs": []any{}})
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{EndpointURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = client.SendBatch(context.Background(), writeTestFrames(t, 1))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestClient_SendBatch_HTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{EndpointURL: server.URL}, testLogger())
	require.NoError(t, err)

	_, err = client.SendBatch(context.Background(), writeTestFrames(t, 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
