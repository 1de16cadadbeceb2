package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

type RouterOptions struct {
	Logger         *slog.Logger
	AllowedOrigins []string
	VoteRateLimit  rate.Limit
	VoteRateBurst  int
	// Ready backs /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// NewHandler wires the API routes. sessionHandler and liveHandler are optional.
func NewHandler(
	opts RouterOptions,
	pollHandler *PollHandler,
	voteHandler *VoteHandler,
	sessionHandler *SessionHandler,
	liveHandler *LiveHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(opts.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", voterTokenHeader},
		ExposedHeaders:   []string{"X-Total-Votes"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(opts.Ready))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/polls", func(r chi.Router) {
			r.Post("/", pollHandler.CreatePoll)
			r.Get("/", pollHandler.ListPolls)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", pollHandler.GetPoll)
				r.With(RateLimitVotes(opts.VoteRateLimit, opts.VoteRateBurst)).Post("/votes", voteHandler.CastVote)
				r.Get("/results", pollHandler.GetResults)
				if liveHandler != nil {
					r.Get("/live", liveHandler.Watch)
				}
			})
		})

		if sessionHandler != nil {
			r.Post("/session", sessionHandler.CreateSession)
		}
	})

	return r
}

func readyHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			if err := ready(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"error":   "not_ready",
					"message": "storage not ready",
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
