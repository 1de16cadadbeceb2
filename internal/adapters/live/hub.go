// Package live pushes fresh poll results to websocket subscribers after every
// recorded vote.
package live

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/metrics"
)

const sendBuffer = 16

// Update is one encoded results message. TotalVotes orders updates: votes are
// append-only, so a smaller total is always older.
type Update struct {
	TotalVotes int64
	Payload    []byte
}

type subscription struct {
	pollID string
	client Client
}

type message struct {
	pollID string
	// client set means the update goes to that subscriber only.
	client Client
	update Update
}

// subscriber owns the writes to one client. Only its writer goroutine touches
// the connection.
type subscriber struct {
	client Client
	send   chan Update
}

func (h *Hub) writeLoop(pollID string, s *subscriber) {
	defer s.client.Close()

	last := int64(-1)
	for u := range s.send {
		if u.TotalVotes < last {
			continue
		}
		last = u.TotalVotes
		if err := s.client.WriteMessage(websocket.TextMessage, u.Payload); err != nil {
			h.logger.Debug("live subscriber write failed", "poll_id", pollID, "error", err)
			h.Unregister(context.Background(), pollID, s.client)
			return
		}
	}
}

// Hub owns the subscriber rooms. Rooms are only touched by the Run goroutine.
type Hub struct {
	rooms      map[string]map[Client]*subscriber
	register   chan subscription
	unregister chan subscription
	broadcast  chan message
	done       chan struct{}

	mu      sync.RWMutex
	watched map[string]int

	results ports.ResultsAggregator
	logger  *slog.Logger
}

func NewHub(results ports.ResultsAggregator, logger *slog.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[Client]*subscriber),
		register:   make(chan subscription),
		unregister: make(chan subscription),
		broadcast:  make(chan message, 64),
		done:       make(chan struct{}),
		watched:    make(map[string]int),
		results:    results,
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for pollID, room := range h.rooms {
				for c := range room {
					h.drop(pollID, c)
				}
			}
			return
		case sub := <-h.register:
			room, ok := h.rooms[sub.pollID]
			if !ok {
				room = make(map[Client]*subscriber)
				h.rooms[sub.pollID] = room
			}
			if _, dup := room[sub.client]; dup {
				continue
			}
			s := &subscriber{client: sub.client, send: make(chan Update, sendBuffer)}
			room[sub.client] = s
			go h.writeLoop(sub.pollID, s)
			h.setWatched(sub.pollID, len(room))
			metrics.AddLiveSubscribers(1)
		case sub := <-h.unregister:
			if _, ok := h.rooms[sub.pollID][sub.client]; ok {
				h.drop(sub.pollID, sub.client)
			}
		case msg := <-h.broadcast:
			if msg.client != nil {
				if s, ok := h.rooms[msg.pollID][msg.client]; ok {
					h.enqueue(msg.pollID, s, msg.update)
				}
				continue
			}
			for _, s := range h.rooms[msg.pollID] {
				h.enqueue(msg.pollID, s, msg.update)
			}
		}
	}
}

// enqueue never blocks the hub. A subscriber whose buffer is full is too slow
// to keep up and gets disconnected.
func (h *Hub) enqueue(pollID string, s *subscriber, u Update) {
	select {
	case s.send <- u:
	default:
		h.logger.Debug("dropping slow live subscriber", "poll_id", pollID)
		h.drop(pollID, s.client)
	}
}

// Register subscribes c to the poll. Once it returns, every later vote on the
// poll reaches c.
func (h *Hub) Register(ctx context.Context, pollID string, c Client) {
	select {
	case h.register <- subscription{pollID: pollID, client: c}:
	case <-h.done:
		c.Close()
	case <-ctx.Done():
	}
}

func (h *Hub) Unregister(ctx context.Context, pollID string, c Client) {
	select {
	case h.unregister <- subscription{pollID: pollID, client: c}:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Send queues an update for one registered subscriber.
func (h *Hub) Send(ctx context.Context, pollID string, c Client, u Update) error {
	return h.queue(ctx, message{pollID: pollID, client: c, update: u})
}

// HandleEvent recomputes results for the voted poll and queues them for its
// subscribers. Polls nobody watches are skipped.
func (h *Hub) HandleEvent(ctx context.Context, ev domain.Event) error {
	if ev.Type != domain.EventVoteRecorded || !h.IsWatched(ev.PollID) {
		return nil
	}

	u, err := h.Snapshot(ctx, ev.PollID)
	if err != nil {
		return err
	}
	return h.queue(ctx, message{pollID: ev.PollID, update: u})
}

func (h *Hub) queue(ctx context.Context, msg message) error {
	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the encoded current results of a poll.
func (h *Hub) Snapshot(ctx context.Context, pollID string) (Update, error) {
	results, err := h.results.Compute(ctx, pollID)
	if err != nil {
		return Update{}, fmt.Errorf("failed to compute live results: %w", err)
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return Update{}, fmt.Errorf("failed to encode live results: %w", err)
	}
	return Update{TotalVotes: results.TotalVotes, Payload: payload}, nil
}

// drop closes the subscriber's queue; its writer then closes the client.
func (h *Hub) drop(pollID string, c Client) {
	room := h.rooms[pollID]
	s, ok := room[c]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, pollID)
	}
	close(s.send)
	h.setWatched(pollID, len(room))
	metrics.AddLiveSubscribers(-1)
}

func (h *Hub) setWatched(pollID string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.watched, pollID)
		return
	}
	h.watched[pollID] = n
}

// IsWatched reports whether the poll has at least one live subscriber.
func (h *Hub) IsWatched(pollID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.watched[pollID] > 0
}
