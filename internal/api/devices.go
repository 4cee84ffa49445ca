package api

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/devices"
	"github.com/luminosity-leds/luminosity/internal/models"
)

type dashboardUpdateRequest struct {
	ID string `json:"id"`
	models.DeviceUpdate
}

type dashboardDeleteRequest struct {
	DeviceID string `json:"deviceId"`
}

var errDeviceIDRequired = apperr.Invalid("Device ID is required")

// RegisterDevice handles POST /api/users/devices and POST /api/devices/new.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	var req devices.RegisterInput
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	d, err := h.devices.Register(r.Context(), claims(r).UserID, req)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusCreated, map[string]any{
		"message": "Device registered successfully",
		"device":  d,
	})
}

// Dashboard handles GET /api/users/dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.devices.List(r.Context(), claims(r).UserID)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"devices": list})
}

// DashboardUpdate handles PUT /api/users/dashboard.
func (h *Handler) DashboardUpdate(w http.ResponseWriter, r *http.Request) {
	var req dashboardUpdateRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		h.ErrorResponse(w, r, errDeviceIDRequired)
		return
	}
	h.update(w, r, req.ID, req.DeviceUpdate)
}

// DashboardDelete handles DELETE /api/users/dashboard.
func (h *Handler) DashboardDelete(w http.ResponseWriter, r *http.Request) {
	var req dashboardDeleteRequest
	if err := decodeJSON(r, &req, true); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	if strings.TrimSpace(req.DeviceID) == "" {
		h.ErrorResponse(w, r, errDeviceIDRequired)
		return
	}
	h.delete(w, r, req.DeviceID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, ref string, u models.DeviceUpdate) {
	d, err := h.devices.Update(r.Context(), claims(r).UserID, ref, u)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{
		"message": "Device updated",
		"device":  d,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request, ref string) {
	if err := h.devices.Delete(r.Context(), claims(r).UserID, ref); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"message": "Device deleted successfully"})
}

// GetDevice handles GET /api/devices/{uuid}.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.devices.Get(r.Context(), claims(r).UserID, mux.Vars(r)["uuid"])
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"device": d})
}

// UpdateDevice handles PUT /api/devices/{uuid}.
func (h *Handler) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var u models.DeviceUpdate
	if err := decodeJSON(r, &u, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	h.update(w, r, mux.Vars(r)["uuid"], u)
}

// DeleteDevice handles DELETE /api/devices/{uuid}.
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	h.delete(w, r, mux.Vars(r)["uuid"])
}

func (h *Handler) ConnectDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.devices.Connect(r.Context(), claims(r).UserID, mux.Vars(r)["uuid"])
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"message": "Device connected", "device": d})
}

func (h *Handler) DisconnectDevice(w http.ResponseWriter, r *http.Request) {
	d, err := h.devices.Disconnect(r.Context(), claims(r).UserID, mux.Vars(r)["uuid"])
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"message": "Device disconnected", "device": d})
}

// DeviceOutput handles GET /api/devices/{uuid}/output.
func (h *Handler) DeviceOutput(w http.ResponseWriter, r *http.Request) {
	ref := mux.Vars(r)["uuid"]
	f, err := h.devices.Output(r.Context(), claims(r).UserID, ref)
	if err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, map[string]any{"uuid": ref, "frame": f})
}
