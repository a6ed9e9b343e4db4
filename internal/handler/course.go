package handler

import (
	"log/slog"
	"net/http"

	"github.com/yeogida/yeogida-backend/internal/model"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// CourseHandler serves the course catalogue and favorites. All routes
// require a token.
type CourseHandler struct {
	courses *service.CourseService
	logger  *slog.Logger
}

func NewCourseHandler(courses *service.CourseService, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{courses: courses, logger: logger}
}

// HTTP: GET /courses?location=&keyword=&sortBy=rating&order=desc&limit=&offset=
func (h *CourseHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pageFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()

	courses, err := h.courses.List(r.Context(), service.CourseQuery{
		Location: q.Get("location"),
		Keyword:  q.Get("keyword"),
		SortBy:   q.Get("sortBy"),
		Order:    q.Get("order"),
		Page:     page,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

// HTTP: GET /courses/{id}
func (h *CourseHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	course, err := h.courses.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

// HandleCreate adds a course. Staff only; the body is a course without id.
//
// HTTP: POST /courses
func (h *CourseHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req model.Course
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	course, err := h.courses.Create(r.Context(), caller, req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// HTTP: POST /courses/{id}/favorite
func (h *CourseHandler) HandleFavorite(w http.ResponseWriter, r *http.Request) {
	caller, courseID, ok := h.favoriteTarget(w, r)
	if !ok {
		return
	}
	if err := h.courses.Favorite(r.Context(), caller, courseID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "course added to favorites"})
}

// HTTP: DELETE /courses/{id}/favorite
func (h *CourseHandler) HandleUnfavorite(w http.ResponseWriter, r *http.Request) {
	caller, courseID, ok := h.favoriteTarget(w, r)
	if !ok {
		return
	}
	if err := h.courses.Unfavorite(r.Context(), caller, courseID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CourseHandler) favoriteTarget(w http.ResponseWriter, r *http.Request) (string, int64, bool) {
	caller, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return "", 0, false
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, err)
		return "", 0, false
	}
	return caller, id, true
}
