package domain

import (
	"math"
	"time"
)

type ResultTally struct {
	Option     string  `json:"option"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

type Results struct {
	PollID     string        `json:"poll_id"`
	TotalVotes int64         `json:"total_votes"`
	Tallies    []ResultTally `json:"tallies"`
}

// ResultSnapshot is a persisted copy of one tally, written by the summary job.
type ResultSnapshot struct {
	PollID        string
	Option        string
	VoteCount     int64
	Percentage    float64
	LastUpdatedAt time.Time
}

// Percentage returns votes as a share of total, rounded to one decimal place.
// A zero total yields 0 for every option.
func Percentage(votes, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(votes)/float64(total)*1000) / 10
}
