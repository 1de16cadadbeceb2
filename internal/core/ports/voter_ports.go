package ports

import "context"

// VoterTokenService issues and verifies anonymous voter session tokens. A
// token only carries a random voter id used for the one-vote-per-voter policy.
type VoterTokenService interface {
	Issue(ctx context.Context) (token string, voterID string, err error)
	VoterID(ctx context.Context, token string) (string, error)
}
