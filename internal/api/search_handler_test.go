package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entropic-labs/recall-api/internal/api"
	"github.com/entropic-labs/recall-api/internal/domain"
	"github.com/entropic-labs/recall-api/internal/search"
)

func newSearchRouter(t *testing.T, chunks *stubChunkStore) http.Handler {
	t.Helper()

	searchSvc, err := search.NewService(chunks, &constEmbedder{vector: []float32{1, 0}}, testLogger())
	require.NoError(t, err)

	handler := api.NewSearchHandler(searchSvc, testLogger())

	r := chi.NewRouter()
	r.Get("/api/search", handler.Search)
	return r
}

func TestSearchHandler_Search(t *testing.T) {
	t.Parallel()

	videoID := uuid.New()
	chunks := &stubChunkStore{
		ready: []*domain.Chunk{
			{VideoID: videoID, Index: 0, StartS: 0, EndS: 10, Path: "c0.mp4",
				Transcript: "sprint planning", Embedding: []float32{1, 0}},
			{VideoID: videoID, Index: 1, StartS: 10, EndS: 20, Path: "c1.mp4",
				Transcript: "lunch break", Embedding: []float32{0, 1}},
		},
	}
	router := newSearchRouter(t, chunks)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=planning&limit=1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "planning", resp.Query)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "sprint planning", resp.Results[0].Transcript)
	assert.InDelta(t, 1.0, resp.Results[0].Score, 1e-9)
	assert.Equal(t, "/api/clips/"+videoID.String()+"/0", resp.Results[0].ClipURL)
}

func TestSearchHandler_Search_DefaultTopK(t *testing.T) {
	t.Parallel()

	router := newSearchRouter(t, &stubChunkStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=anything", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp api.SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Empty(t, resp.Results)
}

func TestSearchHandler_Search_BadInput(t *testing.T) {
	t.Parallel()

	router := newSearchRouter(t, &stubChunkStore{})

	tests := []struct {
		name string
		url  string
	}{
		{"missing query", "/api/search"},
		{"empty query", "/api/search?q="},
		{"non-numeric limit", "/api/search?q=x&limit=ten"},
		{"zero limit", "/api/search?q=x&limit=0"},
		{"negative limit", "/api/search?q=x&limit=-3"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
