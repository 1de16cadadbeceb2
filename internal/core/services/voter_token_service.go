package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/livepoll/internal/core/domain"
	"github.com/vncsmyrnk/livepoll/internal/core/ports"
)

const voterTokenIssuer = "livepoll"

type voterTokenService struct {
	secret []byte
	ttl    time.Duration
}

func NewVoterTokenService(secret string, ttl time.Duration) (ports.VoterTokenService, error) {
	if secret == "" {
		return nil, errors.New("voter token secret is required")
	}
	return &voterTokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

func (s *voterTokenService) Issue(ctx context.Context) (string, string, error) {
	voterID := uuid.NewString()
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Subject:   voterID,
		Issuer:    voterTokenIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to sign voter token: %w", err)
	}
	return signed, voterID, nil
}

func (s *voterTokenService) VoterID(ctx context.Context, token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(voterTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidVoterToken, err)
	}
	if claims.Subject == "" {
		return "", domain.ErrInvalidVoterToken
	}
	return claims.Subject, nil
}
