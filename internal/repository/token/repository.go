package token

import (
	"context"
	"time"
)

// Token is an opaque bearer credential. Kind is "access" or "refresh".
type Token struct {
	Token      string
	CustomerID string
	Kind       string
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

type Repository interface {
	Create(ctx context.Context, token Token) error
	Get(ctx context.Context, token string) (*Token, error)
	Delete(ctx context.Context, token string) error
	// DeleteExpired removes tokens that expired before cutoff and reports how many.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}
