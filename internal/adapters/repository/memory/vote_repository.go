package memory

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

type pollVotes struct {
	log    []domain.Vote
	counts map[string]int64
	voters map[string]struct{}
}

type voteRepository struct {
	mu    sync.RWMutex
	polls map[string]*pollVotes
}

func NewVoteRepository() ports.VoteRepository {
	return &voteRepository{
		polls: make(map[string]*pollVotes),
	}
}

func (r *voteRepository) Append(ctx context.Context, vote *domain.Vote, unique bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pv, ok := r.polls[vote.PollID]
	if !ok {
		pv = &pollVotes{
			counts: make(map[string]int64),
			voters: make(map[string]struct{}),
		}
		r.polls[vote.PollID] = pv
	}

	if vote.VoterID != "" {
		if _, voted := pv.voters[vote.VoterID]; voted && unique {
			return domain.ErrDuplicateVote
		}
		pv.voters[vote.VoterID] = struct{}{}
	}

	pv.log = append(pv.log, *vote)
	pv.counts[vote.Option]++
	return nil
}

func (r *voteRepository) CountByOption(ctx context.Context, pollID string) (map[string]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int64)
	if pv, ok := r.polls[pollID]; ok {
		for opt, n := range pv.counts {
			counts[opt] = n
		}
	}
	return counts, nil
}
