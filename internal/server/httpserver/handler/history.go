package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/history"
)

// defaultHistoryLimit bounds GET /api/v1/history when the client does
// not pass one. The journal serves newest-first, so the default still
// covers recent activity.
const defaultHistoryLimit = 50

// handleHistory handles GET /api/v1/history. Only registered when the
// server was assembled with a journal.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, http.StatusBadRequest, codeBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.journal.Recent(r.Context(), limit)
	if err != nil {
		if errors.Is(err, history.ErrClosed) {
			h.writeError(w, r, http.StatusServiceUnavailable, domain.ErrClosed.Code, "history journal closed")
			return
		}
		h.serviceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}

	h.writeJSON(w, r, http.StatusOK, historyView{Entries: entries})
}
