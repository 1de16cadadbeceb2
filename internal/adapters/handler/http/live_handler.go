package http

import (
	"context"
	"log/slog"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/vncsmyrnk/livepoll/internal/adapters/live"
)

// LiveHub is the part of live.Hub the websocket endpoint needs.
type LiveHub interface {
	Register(ctx context.Context, pollID string, c live.Client)
	Unregister(ctx context.Context, pollID string, c live.Client)
	Send(ctx context.Context, pollID string, c live.Client, u live.Update) error
	Snapshot(ctx context.Context, pollID string) (live.Update, error)
}

type LiveHandler struct {
	hub      LiveHub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewLiveHandler(hub LiveHub, allowedOrigins []string, logger *slog.Logger) *LiveHandler {
	return &LiveHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		logger: logger,
	}
}

// Watch godoc
// @Summary      Streams poll results
// @Description  Upgrades to a websocket that receives the current results at once and again after every vote.
// @Tags         polls
// @Produce      json
// @Param        id   path      string  true  "Poll ID"
// @Success      101  {object}  domain.Results
// @Failure      404
// @Router       /polls/{id}/live [get]
func (h *LiveHandler) Watch(w http.ResponseWriter, r *http.Request) {
	pollID := chi.URLParam(r, "id")

	if _, err := h.hub.Snapshot(r.Context(), pollID); err != nil {
		errorResponse(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "poll_id", pollID, "error", err)
		return
	}

	client := live.NewWebsocketClient(conn)
	ctx := context.WithoutCancel(r.Context())

	// Registered before the initial results are read, so no vote falls in
	// between. The hub drops whichever of the two updates is older.
	h.hub.Register(ctx, pollID, client)
	defer h.hub.Unregister(ctx, pollID, client)

	snapshot, err := h.hub.Snapshot(ctx, pollID)
	if err != nil {
		h.logger.Warn("failed to load live results", "poll_id", pollID, "error", err)
		return
	}
	if err := h.hub.Send(ctx, pollID, client, snapshot); err != nil {
		return
	}

	// Inbound frames are ignored; reading only detects the close.
	for {
		if _, _, err := client.ReadMessage(); err != nil {
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}
