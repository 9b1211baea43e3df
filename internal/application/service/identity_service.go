package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/voucher-sync/internal/application/port"
	"github.com/garyjia/voucher-sync/internal/domain/entity"
)

// Resolution is the outcome of resolving a request's credentials.
// NewSession is set when a bearer exchange established a session.
type Resolution struct {
	Identity   entity.Identity
	Session    *entity.Session
	NewSession bool
}

// IdentityService resolves callers to verified identities
type IdentityService interface {
	Resolve(ctx context.Context, sessionToken, bearer string) (*Resolution, error)
	CheckSession(ctx context.Context, sessionToken string) (*entity.Identity, error)
	Logout(ctx context.Context, sessionToken string)
}

type identityServiceImpl struct {
	provider port.IdentityProvider
	sessions port.SessionStore
	ttl      time.Duration
	now      func() time.Time
	logger   Logger
}

// NewIdentityService creates a new IdentityService. Sessions live for ttl.
func NewIdentityService(provider port.IdentityProvider, sessions port.SessionStore, ttl time.Duration, logger Logger) IdentityService {
	return &identityServiceImpl{
		provider: provider,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// Resolve returns the cached identity for a live session, or exchanges the
// bearer credential with the identity provider and opens a session.
func (s *identityServiceImpl) Resolve(ctx context.Context, sessionToken, bearer string) (*Resolution, error) {
	if sess := s.lookup(sessionToken); sess != nil {
		return &Resolution{Identity: sess.Identity, Session: sess}, nil
	}

	if bearer == "" {
		return nil, fmt.Errorf("%w: no session or bearer credential", ErrUnauthenticated)
	}

	identity, err := s.provider.UserInfo(ctx, bearer)
	if err != nil {
		s.logger.Info("Bearer credential rejected", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	if identity == nil || identity.Email == "" {
		return nil, fmt.Errorf("%w: identity provider returned no email", ErrUnauthenticated)
	}

	sess := &entity.Session{
		Token:     uuid.NewString(),
		Identity:  *identity,
		ExpiresAt: s.now().Add(s.ttl),
	}
	s.sessions.Put(sess)

	s.logger.Info("Session established", "email", identity.Email)

	return &Resolution{Identity: *identity, Session: sess, NewSession: true}, nil
}

// CheckSession returns the identity cached under sessionToken
func (s *identityServiceImpl) CheckSession(ctx context.Context, sessionToken string) (*entity.Identity, error) {
	sess := s.lookup(sessionToken)
	if sess == nil {
		return nil, fmt.Errorf("%w: no active session", ErrUnauthenticated)
	}
	identity := sess.Identity
	return &identity, nil
}

// Logout destroys the session. Unknown tokens are ignored.
func (s *identityServiceImpl) Logout(ctx context.Context, sessionToken string) {
	if sessionToken == "" {
		return
	}
	s.sessions.Delete(sessionToken)
}

func (s *identityServiceImpl) lookup(token string) *entity.Session {
	if token == "" {
		return nil
	}
	sess, ok := s.sessions.Get(token)
	if !ok {
		return nil
	}
	if sess.Expired(s.now()) {
		s.sessions.Delete(token)
		return nil
	}
	return sess
}
