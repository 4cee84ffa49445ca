package api

import (
	"net/http"

	"github.com/luminosity-leds/luminosity/internal/apperr"
	"github.com/luminosity-leds/luminosity/internal/color"
)

type matchRequest struct {
	Hex string `json:"hex"`
	R   *int   `json:"r"`
	G   *int   `json:"g"`
	B   *int   `json:"b"`
}

// Colors handles GET /api/colors.
func (h *Handler) Colors(w http.ResponseWriter, r *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]any{"colors": h.palette})
}

// MatchColor handles POST /api/colors/match. It takes either a hex string
// or all three channels and answers with the synced picker state.
func (h *Handler) MatchColor(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := decodeJSON(r, &req, false); err != nil {
		h.ErrorResponse(w, r, err)
		return
	}
	p := color.NewPicker(h.palette)
	switch {
	case req.Hex != "":
		if err := p.SetHex(req.Hex); err != nil {
			h.ErrorResponse(w, r, apperr.Wrap(err, apperr.CodeInvalidInput, "Invalid hex color"))
			return
		}
	case req.R != nil && req.G != nil && req.B != nil:
		p.SetRGB(*req.R, *req.G, *req.B)
	default:
		h.ErrorResponse(w, r, apperr.Invalid("Provide hex or r, g and b"))
		return
	}
	JSONResponse(w, http.StatusOK, p)
}
