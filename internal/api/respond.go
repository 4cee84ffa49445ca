package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/auth"
)

const maxBodyBytes = 1 << 20

const badBodyMessage = "Invalid request body"

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error string      `json:"error"`
	Code  apperr.Code `json:"code"`
}

// JSONResponse writes payload as JSON with the given status.
func JSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// ErrorResponse writes err with the status its code maps to. Internal
// causes are logged, never sent.
func (h *Handler) ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	JSONResponse(w, status, ErrorBody{Error: apperr.MessageOf(err), Code: apperr.CodeOf(err)})
}

// authFailed is handed to the auth middleware.
func (h *Handler) authFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrRevokedToken):
		h.logger.Debug("unauthenticated request", zap.String("path", r.URL.Path), zap.Error(err))
		h.ErrorResponse(w, r, apperr.Wrap(err, apperr.CodeUnauthorized, "Unauthorized"))
	default:
		h.ErrorResponse(w, r, apperr.Wrap(err, apperr.CodeUnavailable, "Session check unavailable"))
	}
}

// decodeJSON reads the request body into v. An empty body leaves v alone
// when allowEmpty is set.
func decodeJSON(r *http.Request, v any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Wrap(err, apperr.CodeInvalidInput, badBodyMessage)
	}
	return nil
}

// claims returns the session claims set by the auth middleware.
func claims(r *http.Request) *auth.Claims {
	c, _ := auth.ClaimsFrom(r.Context())
	return c
}
