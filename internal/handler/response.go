package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON and writeError, so every error
// body has the same shape:
//
//	{"error": "NotFound", "detail": "carpool not found with id 7"}
//
// "error" is the apperror.Code, "detail" the human-readable message.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yeogida/yeogida-backend/internal/apperror"
	"github.com/yeogida/yeogida-backend/internal/auth"
	"github.com/yeogida/yeogida-backend/internal/service"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// ErrorResponse is the error body returned by every endpoint.
type ErrorResponse struct {
	Error  string `json:"error"`  // apperror.Code, e.g. "ProviderTimeout"
	Detail string `json:"detail"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once Encode
// writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// statusOf maps an error class to its HTTP status.
//
// errors.Is walks the whole chain, so an AppError wrapped any number of
// times with fmt.Errorf("...: %w", err) still maps correctly.
func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrTimeout):
		return http.StatusRequestTimeout // 408
	case errors.Is(err, apperror.ErrValidation), errors.Is(err, apperror.ErrUpstream):
		return http.StatusBadRequest // 400
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized // 401
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden // 403
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound // 404
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict // 409
	}
	return http.StatusInternalServerError
}

// writeError maps a domain error to its HTTP status and sends it.
//
// The service layer never knows about status codes; this is the one place
// errors get translated to HTTP.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := statusOf(err)
		if status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="yeogida"`)
		}
		writeJSON(w, status, ErrorResponse{
			Error:  string(appErr.Code),
			Detail: appErr.Message,
		})
		return
	}

	// Unknown error: never expose SQL, paths or upstream bodies to the client.
	slog.Error("unhandled error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:  "InternalError",
		Detail: "An internal error occurred",
	})
}

// decodeJSON reads the request body into dst. Unknown fields and trailing
// data are rejected; the body is capped at maxBodyBytes.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperror.ValidationFailed("body", "request body is required")
		case errors.As(err, &maxErr):
			return apperror.ValidationFailed("body", "request body is too large")
		default:
			return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
		}
	}
	if dec.More() {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}

// parseID reads a positive integer URL parameter.
func parseID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed(param, fmt.Sprintf("%s must be a positive integer", param))
	}
	return id, nil
}

// queryInt reads an optional integer query parameter. A missing value is 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}

// pageFrom reads the limit/offset query pair. The service clamps the values.
func pageFrom(r *http.Request) (service.Page, error) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.Page{}, err
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		return service.Page{}, err
	}
	return service.Page{Limit: limit, Offset: offset}, nil
}

// callerID returns the account id RequireAuth put in the context. On a
// protected route it is always present.
func callerID(r *http.Request) (string, error) {
	id, ok := auth.AccountIDFromContext(r.Context())
	if !ok {
		return "", apperror.Unauthorized("valid authentication required")
	}
	return id, nil
}
