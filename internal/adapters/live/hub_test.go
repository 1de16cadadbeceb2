package live

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/livepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/services"
)

type fakeClient struct {
	mu       sync.Mutex
	messages [][]byte
	closed   bool
	failing  bool
}

func (c *fakeClient) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, data)
	return nil
}

func (c *fakeClient) ReadMessage() (int, []byte, error) {
	return 0, nil, io.EOF
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func TestHub_BroadcastsResultsToPollSubscribers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollRepo := memory.NewPollRepository()
	ledger := services.NewVoteLedger(pollRepo, memory.NewVoteRepository(), false)
	aggregator := services.NewResultsAggregator(pollRepo, ledger)
	store := services.NewPollStore(pollRepo)

	poll, err := store.Create(ctx, "Best color?", []string{"Red", "Blue"})
	require.NoError(t, err)
	other, err := store.Create(ctx, "Best animal?", []string{"Cat", "Dog"})
	require.NoError(t, err)

	hub := NewHub(aggregator, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	watcher := &fakeClient{}
	bystander := &fakeClient{}
	hub.Register(ctx, poll.ID, watcher)
	hub.Register(ctx, other.ID, bystander)
	require.Eventually(t, func() bool { return hub.IsWatched(poll.ID) }, time.Second, 5*time.Millisecond)

	vote, err := ledger.Record(ctx, poll.ID, "Red", "")
	require.NoError(t, err)
	require.NoError(t, hub.HandleEvent(ctx, domain.VoteRecorded(vote)))

	require.Eventually(t, func() bool { return len(watcher.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, bystander.received())

	var results domain.Results
	require.NoError(t, json.Unmarshal(watcher.received()[0], &results))
	assert.Equal(t, int64(1), results.TotalVotes)
	assert.Equal(t, []domain.ResultTally{
		{Option: "Red", Votes: 1, Percentage: 100},
		{Option: "Blue", Votes: 0, Percentage: 0},
	}, results.Tallies)
}

func TestHub_DropsFailingClients(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollRepo := memory.NewPollRepository()
	ledger := services.NewVoteLedger(pollRepo, memory.NewVoteRepository(), false)
	poll, err := services.NewPollStore(pollRepo).Create(ctx, "Q?", []string{"A", "B"})
	require.NoError(t, err)

	hub := NewHub(services.NewResultsAggregator(pollRepo, ledger), slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	broken := &fakeClient{failing: true}
	hub.Register(ctx, poll.ID, broken)
	require.Eventually(t, func() bool { return hub.IsWatched(poll.ID) }, time.Second, 5*time.Millisecond)

	require.NoError(t, hub.HandleEvent(ctx, domain.Event{Type: domain.EventVoteRecorded, PollID: poll.ID}))

	require.Eventually(t, broken.isClosed, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !hub.IsWatched(poll.ID) }, time.Second, 5*time.Millisecond)
}

func TestHub_IgnoresUnwatchedPolls(t *testing.T) {
	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	// A nil aggregator would panic if the hub tried to compute results.
	err := hub.HandleEvent(context.Background(), domain.Event{Type: domain.EventVoteRecorded, PollID: "nobody"})
	assert.NoError(t, err)
}

// stalledClient blocks every write until released.
type stalledClient struct {
	fakeClient
	release chan struct{}
}

func (c *stalledClient) WriteMessage(messageType int, data []byte) error {
	<-c.release
	return c.fakeClient.WriteMessage(messageType, data)
}

func TestHub_StalledClientDoesNotBlockOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollRepo := memory.NewPollRepository()
	ledger := services.NewVoteLedger(pollRepo, memory.NewVoteRepository(), false)
	poll, err := services.NewPollStore(pollRepo).Create(ctx, "Q?", []string{"A", "B"})
	require.NoError(t, err)

	hub := NewHub(services.NewResultsAggregator(pollRepo, ledger), slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	stalled := &stalledClient{release: make(chan struct{})}
	fast := &fakeClient{}
	hub.Register(ctx, poll.ID, stalled)
	hub.Register(ctx, poll.ID, fast)
	require.Eventually(t, func() bool { return hub.IsWatched(poll.ID) }, time.Second, 5*time.Millisecond)

	events := sendBuffer + 5
	for i := 0; i < events; i++ {
		i := i
		require.NoError(t, hub.HandleEvent(ctx, domain.Event{Type: domain.EventVoteRecorded, PollID: poll.ID}))
		require.Eventually(t, func() bool { return len(fast.received()) == i+1 }, time.Second, time.Millisecond)
	}
	assert.False(t, stalled.isClosed())

	close(stalled.release)
	require.Eventually(t, stalled.isClosed, time.Second, 5*time.Millisecond)
	assert.Less(t, len(stalled.received()), events)
	assert.True(t, hub.IsWatched(poll.ID))
}

func TestHub_SkipsStaleUpdates(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	client := &fakeClient{}
	hub.Register(ctx, "poll", client)

	require.NoError(t, hub.Send(ctx, "poll", client, Update{TotalVotes: 2, Payload: []byte("two")}))
	require.NoError(t, hub.Send(ctx, "poll", client, Update{TotalVotes: 1, Payload: []byte("one")}))
	require.NoError(t, hub.Send(ctx, "poll", client, Update{TotalVotes: 3, Payload: []byte("three")}))

	require.Eventually(t, func() bool { return len(client.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, [][]byte{[]byte("two"), []byte("three")}, client.received())
}

func TestHub_SendToUnknownSubscriberIsIgnored(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run(ctx)

	stranger := &fakeClient{}
	require.NoError(t, hub.Send(ctx, "poll", stranger, Update{Payload: []byte("x")}))

	known := &fakeClient{}
	hub.Register(ctx, "poll", known)
	require.NoError(t, hub.Send(ctx, "poll", known, Update{Payload: []byte("y")}))
	require.Eventually(t, func() bool { return len(known.received()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, stranger.received())
}
