package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yeogida/yeogida-backend/internal/service"
)

// CarpoolHandler serves /carpools, their likes and comments.
type CarpoolHandler struct {
	carpools *service.CarpoolService
	logger   *slog.Logger
}

func NewCarpoolHandler(carpools *service.CarpoolService, logger *slog.Logger) *CarpoolHandler {
	return &CarpoolHandler{carpools: carpools, logger: logger}
}

// HandleList lists carpools.
//
// HTTP: GET /carpools?departure=&destination=&sort=-departure_time&limit=&offset=
func (h *CarpoolHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	carpools, err := h.carpools.List(r.Context(), service.CarpoolQuery{
		Departure:   q.Get("departure"),
		Destination: q.Get("destination"),
		Sort:        q.Get("sort"),
		Page:        page,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, carpools)
}

// HTTP: GET /carpools/{id}
func (h *CarpoolHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	carpool, err := h.carpools.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, carpool)
}

type carpoolRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Departure      string `json:"departure"`
	Destination    string `json:"destination"`
	DepartureTime  string `json:"departureTime"`
	SeatsAvailable int    `json:"seatsAvailable"`
}

// HandleCreate posts a carpool with the caller as driver.
//
// HTTP: POST /carpools
// REQUEST BODY: {"title":"...","departure":"Seoul","destination":"Busan",
// "departureTime":"2025-05-01T09:00:00+09:00","seatsAvailable":3}
func (h *CarpoolHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	driverID, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req carpoolRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	carpool, err := h.carpools.Create(r.Context(), driverID, service.CarpoolInput(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, carpool)
}

type carpoolPatchRequest struct {
	Title          *string `json:"title"`
	Description    *string `json:"description"`
	Departure      *string `json:"departure"`
	Destination    *string `json:"destination"`
	DepartureTime  *string `json:"departureTime"`
	SeatsAvailable *int    `json:"seatsAvailable"`
}

// HTTP: PATCH /carpools/{id}
func (h *CarpoolHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
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
	var req carpoolPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	carpool, err := h.carpools.Update(r.Context(), id, caller, service.CarpoolPatch(req))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, carpool)
}

// HTTP: DELETE /carpools/{id}
func (h *CarpoolHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.carpools.Delete(r.Context(), id, caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// likeFunc is the shape of the Like/Unlike service methods.
type likeFunc func(ctx context.Context, id int64) (int, error)

type likesResponse struct {
	Message string `json:"message,omitempty"`
	Likes   int    `json:"likes"`
}

// HTTP: POST /carpools/{id}/likes
func (h *CarpoolHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, h.carpools.Like)
}

// HTTP: DELETE /carpools/{id}/likes
func (h *CarpoolHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	h.adjustLikes(w, r, h.carpools.Unlike)
}

func (h *CarpoolHandler) adjustLikes(w http.ResponseWriter, r *http.Request, adjust likeFunc) {
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
	writeJSON(w, http.StatusOK, likesResponse{Likes: likes})
}

// HTTP: GET /carpools/{id}/comments
func (h *CarpoolHandler) HandleListComments(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	comments, err := h.carpools.ListComments(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	Content string `json:"content"`
}

// HTTP: POST /carpools/{id}/comments
func (h *CarpoolHandler) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	author, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
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

	comment, err := h.carpools.AddComment(r.Context(), id, author, req.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// HTTP: DELETE /carpools/{id}/comments/{commentId}
func (h *CarpoolHandler) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
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
	commentID, err := parseID(r, "commentId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.carpools.DeleteComment(r.Context(), id, commentID, caller); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
