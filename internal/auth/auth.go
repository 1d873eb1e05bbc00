// Package auth turns bearer tokens into catalog identities.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/Clark-Hu/media-catalog/internal/domain"
	"github.com/Clark-Hu/media-catalog/internal/repository"
)

// ErrInvalidCredential covers malformed, badly signed and expired tokens as
// well as tokens whose subject no longer exists.
var ErrInvalidCredential = errors.New("auth: invalid credential")

// Provider resolves a raw bearer token into an identity.
type Provider interface {
	Identify(ctx context.Context, token string) (*domain.Identity, error)
}

// UserLookup is the slice of the users repository the provider needs.
type UserLookup interface {
	GetByID(ctx context.Context, id int64) (domain.User, error)
}

// Options tunes the role cache.
type Options struct {
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// JWTProvider verifies HS256 tokens and looks up the subject's current role.
type JWTProvider struct {
	secret  []byte
	users   UserLookup
	cache   *roleCache
	timeout time.Duration
	sf      singleflight.Group
}

// NewJWTProvider builds a provider signing-checked against secret.
func NewJWTProvider(secret string, users UserLookup, opts Options) (*JWTProvider, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: empty secret")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	cache, err := newRoleCache(opts.CacheSize, opts.CacheTTL)
	if err != nil {
		return nil, err
	}
	return &JWTProvider{
		secret:  []byte(secret),
		users:   users,
		cache:   cache,
		timeout: opts.Timeout,
	}, nil
}

// Identify verifies token and returns the caller's identity.
func (p *JWTProvider) Identify(ctx context.Context, token string) (*domain.Identity, error) {
	userID, err := p.subject(token)
	if err != nil {
		return nil, err
	}

	if role, ok := p.cache.Get(userID); ok {
		return &domain.Identity{UserID: userID, Role: role}, nil
	}

	key := strconv.FormatInt(userID, 10)
	v, err, _ := p.sf.Do(key, func() (interface{}, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		user, err := p.users.GetByID(lookupCtx, userID)
		if err != nil {
			return nil, err
		}
		p.cache.Set(userID, user.Role)
		return user.Role, nil
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredential
	}
	if err != nil {
		return nil, fmt.Errorf("auth: resolve user %d: %w", userID, err)
	}
	return &domain.Identity{UserID: userID, Role: v.(domain.Role)}, nil
}

func (p *JWTProvider) subject(raw string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidCredential
	}

	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCredential
	}
	return id, nil
}
