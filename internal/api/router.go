// Package api exposes the account, device and color operations over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/luminosity-leds/luminosity/internal/accounts"
	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/auth"
	"github.com/luminosity-leds/luminosity/internal/color"
	"github.com/luminosity-leds/luminosity/internal/devices"
	"github.com/luminosity-leds/luminosity/internal/logging"
)

// Handler holds what the route handlers need.
type Handler struct {
	accounts     *accounts.Service
	devices      *devices.Service
	palette      color.Palette
	issuer       *auth.Issuer
	revoker      auth.Revoker
	secureCookie bool
	logger       *zap.Logger
}

type Deps struct {
	Accounts     *accounts.Service
	Devices      *devices.Service
	Palette      color.Palette
	Issuer       *auth.Issuer
	Revoker      auth.Revoker // may be nil
	SecureCookie bool
	Logger       *zap.Logger
}

func NewHandler(d Deps) *Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		accounts:     d.Accounts,
		devices:      d.Devices,
		palette:      d.Palette,
		issuer:       d.Issuer,
		revoker:      d.Revoker,
		secureCookie: d.SecureCookie,
		logger:       logger,
	}
}

// NewRouter registers every route on a new mux router.
func NewRouter(d Deps) *mux.Router {
	h := NewHandler(d)
	r := mux.NewRouter()
	r.Use(middleware.RequestID, logging.Middleware(h.logger), middleware.Recoverer)

	authed := auth.Middleware(h.issuer, h.revoker, h.authFailed)
	protect := func(f http.HandlerFunc) http.Handler { return authed(f) }

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprintln(w, "OK")
	}).Methods(http.MethodGet)
	r.HandleFunc("/time", GetTimeHandler).Methods(http.MethodGet)

	users := r.PathPrefix("/api/users").Subrouter()
	users.HandleFunc("/signup", h.Signup).Methods(http.MethodPost)
	users.HandleFunc("/login", h.Login).Methods(http.MethodPost)
	users.HandleFunc("/logout", h.Logout).Methods(http.MethodGet, http.MethodPost)
	users.HandleFunc("/verifyemail", h.VerifyEmail).Methods(http.MethodPost)
	users.Handle("/me", protect(h.Me)).Methods(http.MethodGet)
	users.Handle("/deleteAccount", protect(h.DeleteAccount)).Methods(http.MethodDelete)
	users.Handle("/devices", protect(h.RegisterDevice)).Methods(http.MethodPost)
	users.Handle("/dashboard", protect(h.Dashboard)).Methods(http.MethodGet)
	users.Handle("/dashboard", protect(h.DashboardUpdate)).Methods(http.MethodPut)
	users.Handle("/dashboard", protect(h.DashboardDelete)).Methods(http.MethodDelete)

	devs := r.PathPrefix("/api/devices").Subrouter()
	devs.Handle("", protect(h.Dashboard)).Methods(http.MethodGet)
	devs.Handle("/new", protect(h.RegisterDevice)).Methods(http.MethodPost)
	devs.Handle("/connect/{uuid}", protect(h.ConnectDevice)).Methods(http.MethodPut)
	devs.Handle("/disconnect/{uuid}", protect(h.DisconnectDevice)).Methods(http.MethodPut)
	devs.Handle("/{uuid}/output", protect(h.DeviceOutput)).Methods(http.MethodGet)
	devs.Handle("/{uuid}", protect(h.GetDevice)).Methods(http.MethodGet)
	devs.Handle("/{uuid}", protect(h.UpdateDevice)).Methods(http.MethodPut)
	devs.Handle("/{uuid}", protect(h.DeleteDevice)).Methods(http.MethodDelete)

	r.HandleFunc("/api/colors", h.Colors).Methods(http.MethodGet)
	r.HandleFunc("/api/colors/match", h.MatchColor).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		h.ErrorResponse(w, req, apperr.NotFound("Route not found"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		JSONResponse(w, http.StatusMethodNotAllowed, ErrorBody{Error: "Method not allowed", Code: apperr.CodeInvalidInput})
	})
	return r
}

// GetTimeHandler returns the current server time in RFC3339 format.
func GetTimeHandler(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{"time": time.Now().Format(time.RFC3339)})
}
