package handler

import (
	"net/http"
)

func (h *Handler) discountSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.settings.Discounts(r.Context()))
}

// updateSettings upserts a batch of configuration values. Values are stored
// as strings and parsed on read, so bad values fall back to defaults rather
// than breaking pricing.
func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if !decodeBody(w, r, &values) {
		return
	}
	if len(values) == 0 {
		respondError(w, http.StatusBadRequest, "no settings provided")
		return
	}
	if err := h.settings.UpdateAll(r.Context(), values); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.settings.Discounts(r.Context()))
}
