package domain

import (
	"strings"
	"time"
)

const MinPollOptions = 2

type Poll struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Options   []string  `json:"options"`
	CreatedAt time.Time `json:"created_at"`
}

type PollSummary struct {
	ID       string `json:"id"`
	Question string `json:"question"`
}

func (p *Poll) Summary() PollSummary {
	return PollSummary{ID: p.ID, Question: p.Question}
}

// HasOption reports whether label is one of the poll's options, compared verbatim.
func (p *Poll) HasOption(label string) bool {
	for _, opt := range p.Options {
		if opt == label {
			return true
		}
	}
	return false
}

// ValidatePoll checks a question and option list exactly as given. Options are
// not trimmed here; a whitespace-only option is rejected.
func ValidatePoll(question string, options []string) error {
	if strings.TrimSpace(question) == "" {
		return ErrEmptyQuestion
	}
	if len(options) < MinPollOptions {
		return ErrTooFewOptions
	}

	seen := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if strings.TrimSpace(opt) == "" {
			return ErrEmptyOption
		}
		if _, dup := seen[opt]; dup {
			return ErrDuplicateOption
		}
		seen[opt] = struct{}{}
	}
	return nil
}
