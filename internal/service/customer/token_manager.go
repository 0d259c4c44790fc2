package customer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"storefront/internal/domain"
	tokenrepo "storefront/internal/repository/token"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// tokenPair is what a successful login or refresh hands back.
type tokenPair struct {
	Access  string
	Refresh string
}

// tokenManager issues opaque tokens and resolves them back to customers.
// Refresh tokens are single use: rotating one deletes it.
type tokenManager struct {
	repo       tokenrepo.Repository
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func newTokenManager(repo tokenrepo.Repository, accessTTL, refreshTTL time.Duration) *tokenManager {
	return &tokenManager{
		repo:       repo,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *tokenManager) IssuePair(ctx context.Context, customerID string) (tokenPair, error) {
	access, err := m.issue(ctx, customerID, kindAccess, m.accessTTL)
	if err != nil {
		return tokenPair{}, err
	}
	refresh, err := m.issue(ctx, customerID, kindRefresh, m.refreshTTL)
	if err != nil {
		_ = m.repo.Delete(ctx, access)
		return tokenPair{}, err
	}
	return tokenPair{Access: access, Refresh: refresh}, nil
}

func (m *tokenManager) issue(ctx context.Context, customerID, kind string, ttl time.Duration) (string, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:      token,
			CustomerID: customerID,
			Kind:       kind,
			ExpiresAt:  expiresAt,
		})
		if err == nil {
			return token, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", err
	}
	return "", errors.New("token collision")
}

// Resolve returns the customer id behind a live token of the given kind.
// Expired tokens are removed on sight.
func (m *tokenManager) Resolve(ctx context.Context, token, kind string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}
	t, err := m.repo.Get(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if t.Kind != kind || t.CustomerID == "" {
		return "", ErrInvalidToken
	}
	if m.now().After(t.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return "", ErrInvalidToken
	}
	return t.CustomerID, nil
}

// Rotate trades a refresh token for a fresh pair.
func (m *tokenManager) Rotate(ctx context.Context, refresh string) (string, tokenPair, error) {
	customerID, err := m.Resolve(ctx, refresh, kindRefresh)
	if err != nil {
		return "", tokenPair{}, err
	}
	if err := m.repo.Delete(ctx, refresh); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// lost a race with another rotation
			return "", tokenPair{}, ErrInvalidToken
		}
		return "", tokenPair{}, err
	}
	pair, err := m.IssuePair(ctx, customerID)
	return customerID, pair, err
}

// Revoke deletes tokens; unknown ones are ignored.
func (m *tokenManager) Revoke(ctx context.Context, tokens ...string) error {
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if err := m.repo.Delete(ctx, t); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

// Purge drops every token already past its expiry.
func (m *tokenManager) Purge(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now())
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
