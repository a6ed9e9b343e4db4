package handler

import (
	"log/slog"
	"net/http"

	"github.com/yeogida/yeogida-backend/internal/service"
)

// UserHandler serves /users/me. Every route sits behind RequireAuth.
type UserHandler struct {
	accounts *service.AccountService
	logger   *slog.Logger
}

func NewUserHandler(accounts *service.AccountService, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// HTTP: GET /users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Me(r.Context(), id)
	if err != nil {
		h.logger.Warn("HandleMe: account lookup failed", slog.String("accountID", id))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// updateProfileRequest uses pointers so an omitted field stays untouched.
// Any field outside this allow-list is rejected by decodeJSON.
type updateProfileRequest struct {
	Nickname     *string `json:"nickname"`
	ProfileImage *string `json:"profileImage"`
}

// HTTP: PATCH /users/me
func (h *UserHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateProfileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	account, err := h.accounts.Update(r.Context(), id, service.ProfilePatch{
		Nickname:     req.Nickname,
		ProfileImage: req.ProfileImage,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// HTTP: DELETE /users/me
func (h *UserHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HTTP: GET /users/me/favorites?limit=N
func (h *UserHandler) HandleFavorites(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	favorites, err := h.accounts.Favorites(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, favorites)
}

// HTTP: GET /users/me/visited-regions
func (h *UserHandler) HandleVisitedRegions(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	regions, err := h.accounts.VisitedRegions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, regions)
}

type recordVisitRequest struct {
	RegionCode string `json:"regionCode"`
}

// HandleRecordVisit counts one visit and returns the updated tally.
//
// HTTP: POST /users/me/visited-regions
// REQUEST BODY: {"regionCode": "11"}
func (h *UserHandler) HandleRecordVisit(w http.ResponseWriter, r *http.Request) {
	id, err := callerID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req recordVisitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.accounts.RecordVisit(r.Context(), id, req.RegionCode); err != nil {
		writeError(w, err)
		return
	}
	regions, err := h.accounts.VisitedRegions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, regions)
}
