package handler

import "net/http"

// handleSlots handles GET /api/v1/slots.
func (h *Handler) handleSlots(w http.ResponseWriter, r *http.Request) {
	resp, err := h.engine.List(r.Context())
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	view := slotListView{
		Slots:        make([]slotView, 0, len(resp.Slots)),
		HasQuicksave: resp.HasQuicksave,
	}
	for _, info := range resp.Slots {
		view.Slots = append(view.Slots, newSlotView(info))
	}

	h.writeJSON(w, r, http.StatusOK, view)
}

// handleSlot handles GET /api/v1/slots/{slot}.
func (h *Handler) handleSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.pathSlot(w, r)
	if !ok {
		return
	}

	info, err := h.engine.Slot(r.Context(), slot)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, newSlotView(*info))
}

// handleSlotBackups handles GET /api/v1/slots/{slot}/backups.
func (h *Handler) handleSlotBackups(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.pathSlot(w, r)
	if !ok {
		return
	}

	infos, err := h.engine.Backups(r.Context(), slot)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	view := backupListView{
		Slot:    slot,
		Backups: make([]backupView, 0, len(infos)),
	}
	for _, info := range infos {
		view.Backups = append(view.Backups, newBackupView(info))
	}

	h.writeJSON(w, r, http.StatusOK, view)
}
