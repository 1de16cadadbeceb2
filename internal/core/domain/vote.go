package domain

import (
	"time"
)

type Vote struct {
	ID        string    `json:"id"`
	PollID    string    `json:"poll_id"`
	Option    string    `json:"option"`
	VoterID   string    `json:"voter_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
