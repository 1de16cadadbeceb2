package domain

import "time"

type EventType string

const (
	EventPollCreated  EventType = "poll.created"
	EventVoteRecorded EventType = "vote.recorded"
)

// Event is emitted after a write has been durably accepted.
type Event struct {
	Type       EventType `json:"type"`
	PollID     string    `json:"poll_id"`
	Option     string    `json:"option,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func PollCreated(poll *Poll) Event {
	return Event{Type: EventPollCreated, PollID: poll.ID, OccurredAt: poll.CreatedAt}
}

func VoteRecorded(vote *Vote) Event {
	return Event{Type: EventVoteRecorded, PollID: vote.PollID, Option: vote.Option, OccurredAt: vote.CreatedAt}
}
