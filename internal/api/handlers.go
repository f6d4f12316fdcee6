package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/samber/lo"

	"github.com/starford/diagreplay/internal/apperr"
	"github.com/starford/diagreplay/internal/checksum"
	"github.com/starford/diagreplay/internal/metrics"
	"github.com/starford/diagreplay/internal/replay"
	"github.com/starford/diagreplay/internal/routeindex"
	"github.com/starford/diagreplay/internal/sse"
)

// Handler holds the replay route handlers.
type Handler struct {
	svc     *replay.Service
	broker  *sse.Broker
	metrics *metrics.Metrics
}

// NewHandler creates a new Handler. broker and m may be nil.
func NewHandler(svc *replay.Service, broker *sse.Broker, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, broker: broker, metrics: m}
}

// Summary handles GET /.
//
//	@Summary		Describe the loaded bundle
//	@Tags			replay
//	@Produce		json
//	@Success		200	{object}	SummaryResponse
//	@Router			/ [get]
func (h *Handler) Summary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Summary())
}

// Routes handles GET /-/routes.
func (h *Handler) Routes(w http.ResponseWriter, _ *http.Request) {
	entries := h.svc.Entries()
	writeJSON(w, http.StatusOK, RouteListResponse{
		Routes: lo.Map(entries, func(e routeindex.Entry, _ int) RouteItem { return routeItem(e) }),
		Total:  len(entries),
	})
}

// Replay handles every other GET and serves the captured payload for the
// request path.
//
//	@Summary		Replay a captured API response
//	@Tags			replay
//	@Produce		json,plain
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Failure		500	{object}	errResponse
//	@Router			/{path} [get]
func (h *Handler) Replay(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	resp, err := h.svc.Resolve(r.Context(), path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			h.observe(sse.Lookup{Path: path}, metrics.OutcomeMiss)
			writeJSON(w, http.StatusNotFound, notFoundBody(path))
			return
		}
		h.observe(sse.Lookup{Path: path}, metrics.OutcomeError)
		slog.Error("replay failed", slog.String("path", path), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}

	h.observe(sse.Lookup{Path: path, Route: resp.Entry.Route, Match: string(resp.Match)}, string(resp.Match))

	etag := checksum.ETag(resp.Body)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", resp.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Body)
}

func (h *Handler) observe(l sse.Lookup, outcome string) {
	h.metrics.Observe(outcome)
	if h.broker != nil {
		h.broker.PublishLookup(l)
	}
}
