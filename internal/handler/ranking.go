package handler

import (
	"log/slog"
	"net/http"

	"github.com/yeogida/yeogida-backend/internal/service"
)

type RankingHandler struct {
	rankings *service.RankingService
	logger   *slog.Logger
}

func NewRankingHandler(rankings *service.RankingService, logger *slog.Logger) *RankingHandler {
	return &RankingHandler{rankings: rankings, logger: logger}
}

// HTTP: GET /rankings?sortBy=level|reviewCount|likeCount&order=asc|desc&limit=N
func (h *RankingHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	ranked, err := h.rankings.List(r.Context(), service.RankingQuery{
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ranked)
}
