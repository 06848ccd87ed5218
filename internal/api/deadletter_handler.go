package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

const (
	defaultDeadLetterLimit = 50
	maxDeadLetterLimit     = 1000
)

// ListDeadLetters возвращает последние dead-letter записи.
// GET /api/v1/dead-letters?limit=50
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadLetterLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxDeadLetterLimit)
	}

	objects, err := h.store.List(r.Context(), h.bucket, limit)
	if HandleStoreError(w, h.logger, err, "") {
		return
	}

	result := make([]DeadLetterResponse, len(objects))
	for i, o := range objects {
		result[i] = DeadLetterFromObject(o)
	}

	List(w, result, len(result))
}

// GetDeadLetter возвращает тело dead-letter записи как есть.
// GET /api/v1/dead-letters/{key}
func (h *Handler) GetDeadLetter(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	body, err := h.store.Get(r.Context(), h.bucket, key)
	if HandleStoreError(w, h.logger, err, "dead letter not found") {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
