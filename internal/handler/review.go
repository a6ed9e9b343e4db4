package handler

import (
	"log/slog"
	"net/http"

	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// ReviewHandler serves /reviews. Reads are public; writes need a token,
// except comments, which may be anonymous in dev mode (see
// service.ReviewService).
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// HTTP: GET /reviews?searchType=title|author&keyword=&region=&sortBy=likes&order=desc
func (h *ReviewHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	reviews, err := h.reviews.List(r.Context(), service.ReviewQuery{
		SearchType: q.Get("searchType"),
		Keyword:    q.Get("keyword"),
		Region:     q.Get("region"),
		SortBy:     q.Get("sortBy"),
		Order:      q.Get("order"),
		Page:       page,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

// HandleGet returns a review and counts the view.
//
// HTTP: GET /reviews/{id}
func (h *ReviewHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.View(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

type reviewRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Region  string `json:"region"`
	Place   string `json:"place"`
}

// HTTP: POST /reviews
func (h *ReviewHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	author, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Create(r.Context(), author, service.ReviewInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

type reviewPatchRequest struct {
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Region  *string `json:"region"`
	Place   *string `json:"place"`
}

// HTTP: PATCH /reviews/{id}
func (h *ReviewHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	review, err := h.reviews.Update(r.Context(), id, caller, service.ReviewPatch(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// HTTP: DELETE /reviews/{id}
func (h *ReviewHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.reviews.Delete(r.Context(), id, caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: POST /reviews/{id}/likes
func (h *ReviewHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, h.reviews.Like, "review liked")
}

// HTTP: DELETE /reviews/{id}/likes
func (h *ReviewHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, h.reviews.Unlike, "review like removed")
}

func (h *ReviewHandler) adjustLikes(w http.ResponseWriter, r *http.Request, adjust likeFunc, message string) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	likes, err := adjust(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, likesResponse{Message: message, Likes: likes})
}

// HTTP: GET /reviews/{id}/comments
func (h *ReviewHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.reviews.ListComments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

// HandleAddComment posts a comment. The route uses OptionalAuth, so the
// caller may be anonymous; the service decides whether that is allowed.
//
// HTTP: POST /reviews/{id}/comments
func (h *ReviewHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req commentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	caller, _ := auth.AccountIDFromContext(r.Context())
	comment, err := h.reviews.AddComment(r.Context(), id, caller, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}
