package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"cinescout/services/search"
	"cinescout/services/session"
)

const suggestMinLength = session.DefaultSuggestMinLength

// SearchHandler exposes the incremental result session operations over HTTP.
// Each client drives its own session, addressed by the id returned from the
// first submit.
type SearchHandler struct {
	Registry *session.Registry
	Suggest  session.Autocompleter
}

func NewSearchHandler(registry *session.Registry, suggest session.Autocompleter) *SearchHandler {
	return &SearchHandler{Registry: registry, Suggest: suggest}
}

type submitRequest struct {
	SessionID string            `json:"sessionId,omitempty"`
	Query     string            `json:"query"`
	Filters   map[string]string `json:"filters,omitempty"`
}

type sessionRequest struct {
	SessionID string            `json:"sessionId"`
	Filters   map[string]string `json:"filters,omitempty"`
}

// Submit handles POST /api/search: start (or restart) a query cycle. Reuses
// the caller's session when a known sessionId is supplied, otherwise creates
// one.
func (h *SearchHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	sess, err := h.Registry.Get(req.SessionID)
	if err != nil {
		sess = h.Registry.Create()
	}

	if err := sess.SubmitQuery(r.Context(), req.Query, req.Filters); err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The session is in its error state; return the snapshot with it.
		log.Printf("[handlers] search failed for %q: %v", req.Query, err)
		writeJSON(w, http.StatusBadGateway, sess.Snapshot())
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// More handles POST /api/search/more: fetch and append the next page.
func (h *SearchHandler) More(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.Registry.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	// A failed or gated load is silent: the snapshot simply has no new hits.
	_ = sess.LoadMore(r.Context())
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// Filters handles POST /api/search/filters: re-run the active query with a
// new filter set, replacing the result batch.
func (h *SearchHandler) Filters(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sess, err := h.Registry.Get(req.SessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	if err := sess.SetFilters(r.Context(), req.Filters); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// State handles GET /api/search/state?sessionId=: return the session snapshot.
func (h *SearchHandler) State(w http.ResponseWriter, r *http.Request) {
	sess, err := h.Registry.Get(r.URL.Query().Get("sessionId"))
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

// SuggestTitles handles GET /api/suggest?q=: direct autocomplete passthrough.
// Inputs under the minimum length return an empty list without calling out;
// the debounce itself lives client-side with the typing stream.
func (h *SearchHandler) SuggestTitles(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if len([]rune(q)) < suggestMinLength {
		writeJSON(w, http.StatusOK, map[string]any{"suggestions": []any{}})
		return
	}
	size := 10
	if v := r.URL.Query().Get("size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			size = n
		}
	}
	suggestions, err := h.Suggest.Autocomplete(r.Context(), "title", q, size)
	if err != nil {
		log.Printf("[handlers] suggest failed for %q: %v", q, err)
		writeError(w, http.StatusBadGateway, "autocomplete unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[handlers] encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
