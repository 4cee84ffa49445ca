package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/accounts"
	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Token string `json:"token"`
}

type deleteAccountRequest struct {
	UserID string `json:"userId"`
}

// Signup handles POST /api/users/signup.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req accounts.SignupInput
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	a, err := h.accounts.Signup(r.Context(), req)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusCreated, map[string]any{
		"message":   "User created successfully",
		"success":   true,
		"savedUser": a,
	})
}

// Login handles POST /api/users/login and sets the token cookie.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	sess, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	auth.SetTokenCookie(w, sess.Token, sess.Expires, h.secureCookie)
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"success": true,
	})
}

// Logout handles /api/users/logout. A valid token is revoked; the cookie is
// cleared either way.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := h.issuer.Parse(auth.TokenFromRequest(r)); err == nil {
		if err := h.accounts.Logout(r.Context(), c); err != nil {
			h.ErrorResponse(w, r, err)
			return
		}
	}
	auth.ClearTokenCookie(w, h.secureCookie)
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "Logout successful",
		"success": true,
	})
}

// Me handles GET /api/users/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	a, err := h.accounts.Me(r.Context(), claims(r).UserID)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "User found",
		"data":    a,
	})
}

// VerifyEmail handles POST /api/users/verifyemail.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	if _, err := h.accounts.VerifyEmail(r.Context(), req.Token); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"success": true,
	})
}

// DeleteAccount handles DELETE /api/users/deleteAccount. Only the session's
// own account can be deleted.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	var req deleteAccountRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	c := claims(r)
	if req.UserID != "" && req.UserID != c.UserID {
		h.ErrorResponse(w, r, apperr.New(apperr.CodeForbidden, "Cannot delete another user's account"))
		return
	}
	if err := h.accounts.Delete(r.Context(), c.UserID); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	// the account is gone; a token that could not be revoked only lives
	// until it expires and finds no account behind it
	if err := h.accounts.Logout(r.Context(), c); err != nil {
		h.logger.Warn("token not revoked after account deletion",
			zap.String("account", c.UserID), zap.Error(err))
	}
	auth.ClearTokenCookie(w, h.secureCookie)
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "Account successfully deleted",
		"success": true,
	})
}
