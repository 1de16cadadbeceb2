// Package redis stores the vote ledger in Redis. Counts live in one hash per
// poll so a results read is a single HGETALL.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
	"github.com/vncsmyrnk/livepoll/internal/retry"
)

const (
	retryAttempts = 3
	retryDelay    = 50 * time.Millisecond
)

// KEYS: counts hash, voters set, vote log.
// ARGV: option, voter id, unique flag, encoded vote.
var appendScript = redis.NewScript(`
if ARGV[2] ~= '' then
	local added = redis.call('SADD', KEYS[2], ARGV[2])
	if added == 0 and ARGV[3] == '1' then
		return 0
	end
end
redis.call('HINCRBY', KEYS[1], ARGV[1], 1)
redis.call('RPUSH', KEYS[3], ARGV[4])
return 1
`)

// Connect returns a client once the server answers PING.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	err := retry.Do(ctx, 5, 200*time.Millisecond, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

type voteRepository struct {
	client *redis.Client
	prefix string
}

func NewVoteRepository(client *redis.Client, prefix string) ports.VoteRepository {
	if prefix == "" {
		prefix = "livepoll"
	}
	return &voteRepository{
		client: client,
		prefix: prefix,
	}
}

// Keys share a hash tag so a poll's keys land on one cluster slot.
func (r *voteRepository) keys(pollID string) []string {
	return []string{
		fmt.Sprintf("%s:{%s}:counts", r.prefix, pollID),
		fmt.Sprintf("%s:{%s}:voters", r.prefix, pollID),
		fmt.Sprintf("%s:{%s}:votes", r.prefix, pollID),
	}
}

func (r *voteRepository) Append(ctx context.Context, vote *domain.Vote, unique bool) error {
	encoded, err := json.Marshal(vote)
	if err != nil {
		return fmt.Errorf("failed to encode vote: %w", err)
	}

	uniqueFlag := "0"
	if unique {
		uniqueFlag = "1"
	}

	var added int64
	err = r.run(ctx, func() error {
		var err error
		added, err = appendScript.Run(ctx, r.client, r.keys(vote.PollID),
			vote.Option, vote.VoterID, uniqueFlag, encoded).Int64()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save vote: %w", err)
	}
	if added == 0 {
		return domain.ErrDuplicateVote
	}
	return nil
}

func (r *voteRepository) CountByOption(ctx context.Context, pollID string) (map[string]int64, error) {
	var raw map[string]string
	err := r.run(ctx, func() error {
		var err error
		raw, err = r.client.HGetAll(ctx, r.keys(pollID)[0]).Result()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	counts := make(map[string]int64, len(raw))
	for option, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("corrupt counter for option %q: %w", option, err)
		}
		counts[option] = n
	}
	return counts, nil
}

func (r *voteRepository) run(ctx context.Context, fn func() error) error {
	err := retry.Do(ctx, retryAttempts, retryDelay, func() error {
		err := fn()
		if err != nil && !isTransient(err) {
			return retry.Permanent(err)
		}
		return err
	})
	if err != nil && isTransient(err) {
		return fmt.Errorf("%w: %w", domain.ErrStorage, err)
	}
	return err
}

func isTransient(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
