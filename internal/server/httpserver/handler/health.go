package handler

import (
	"net/http"
	"time"

	"github.com/calderhale/keepsake-go/internal/infra/buildinfo"
)

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, healthView{
		Status:  "ok",
		Version: buildinfo.Version,
		Time:    time.Now().UTC(),
	})
}
