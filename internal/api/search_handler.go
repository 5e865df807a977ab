package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/entropic-labs/recall-api/internal/api/shared"
	"github.com/entropic-labs/recall-api/internal/search"
)

// defaultTopK is how many results a search returns when the caller
// does not ask for a specific count.
const defaultTopK = 5

// SearchHandler handles semantic search requests.
type SearchHandler struct {
	searchService *search.Service
	logger        *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(searchService *search.Service, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &SearchHandler{
		searchService: searchService,
		logger:        logger.With("component", "search_handler"),
	}
}

// Search handles GET /api/search?q=...&limit=... over the indexed corpus.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	topK := defaultTopK
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter limit must be a positive integer")
			return
		}
		topK = parsed
	}

	matches, err := h.searchService.Search(r.Context(), query, topK)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err),
			GetSafeErrorMessage(err), err)
		return
	}

	results := make([]SearchResultResponse, 0, len(matches))
	for _, match := range matches {
		results = append(results, SearchResultResponse{
			VideoID:    match.VideoID,
			Index:      match.Index,
			StartS:     match.StartS,
			EndS:       match.EndS,
			Transcript: match.Transcript,
			Score:      match.Score,
			ClipURL:    fmt.Sprintf("/api/clips/%s/%d", match.VideoID, match.Index),
		})
	}

	shared.RespondWithJSON(w, r, http.StatusOK, SearchResponse{
		Query:   query,
		Results: results,
	})
}
