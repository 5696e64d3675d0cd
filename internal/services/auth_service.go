package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"techypad/internal/domain"
	"techypad/internal/identity"
	applog "techypad/internal/log"
	"techypad/internal/repos"
)

var (
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type SignUpResult struct {
	Err               error
	NeedsVerification bool
	Session           *identity.Session
}

// AuthService wraps the identity provider and mirrors its live sessions for
// the life of the process.
type AuthService struct {
	Provider identity.Provider
	Ordered  *repos.OrderedUsersRepo
	Now      func() time.Time

	mu          sync.RWMutex
	sessions    map[string]*identity.Session
	unsubscribe func()
}

func NewAuthService(p identity.Provider, ordered *repos.OrderedUsersRepo) *AuthService {
	s := &AuthService{Provider: p, Ordered: ordered, sessions: map[string]*identity.Session{}}
	s.unsubscribe = p.OnAuthStateChange(s.onAuthStateChange)
	return s
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *AuthService) onAuthStateChange(ev identity.AuthEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Type {
	case identity.SignedIn:
		s.sweepLocked(s.now())
		if ev.Session != nil {
			s.sessions[ev.AccessToken] = ev.Session
		}
	case identity.SignedOut:
		delete(s.sessions, ev.AccessToken)
	}
}

// Close stops following the provider's notifications.
func (s *AuthService) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *AuthService) SignUp(ctx context.Context, email, password, name string) SignUpResult {
	res, err := s.Provider.SignUp(ctx, email, password, identity.Profile{FullName: name})
	if err != nil {
		return SignUpResult{Err: err}
	}
	return SignUpResult{NeedsVerification: res.Session == nil, Session: res.Session}
}

// SignIn maps the provider's unconfirmed and bad-credential messages to
// ErrEmailNotConfirmed and ErrInvalidCredentials. Other errors pass through.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*identity.Session, error) {
	sess, err := s.Provider.SignIn(ctx, email, password)
	if err != nil {
		msg := err.Error()
		switch {
		case strings.Contains(msg, "Email not confirmed"):
			return nil, ErrEmailNotConfirmed
		case strings.Contains(msg, "Invalid login credentials"):
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	return sess, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	err := s.Provider.SignOut(ctx, token)
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	return err
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) (*identity.Session, error) {
	return s.Provider.ConfirmEmail(ctx, token)
}

// CurrentUser resolves an access token. A mirror miss asks the provider once.
func (s *AuthService) CurrentUser(ctx context.Context, token string) (*domain.User, error) {
	if token == "" {
		return nil, nil
	}
	now := s.now()

	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()
	if ok {
		if now.Before(sess.ExpiresAt) {
			u := sess.User
			return &u, nil
		}
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, nil
	}

	sess, err := s.Provider.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil || !now.Before(sess.ExpiresAt) {
		return nil, nil
	}
	s.mu.Lock()
	s.sweepLocked(now)
	s.sessions[token] = sess
	s.mu.Unlock()
	u := sess.User
	return &u, nil
}

// MirroredSessions reports how many sessions the mirror holds.
func (s *AuthService) MirroredSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// sweepLocked drops sessions that expired without a sign-out.
func (s *AuthService) sweepLocked(now time.Time) {
	for tok, sess := range s.sessions {
		if !now.Before(sess.ExpiresAt) {
			delete(s.sessions, tok)
		}
	}
}

func (s *AuthService) HasOrdered(ctx context.Context, u *domain.User) bool {
	if u == nil || s.Ordered == nil {
		return false
	}
	ok, err := s.Ordered.Has(ctx, u.Email)
	if err != nil {
		applog.Error(nil, "ordered_users.read.fail", err, nil)
		return false
	}
	return ok
}

func (s *AuthService) MarkOrdered(ctx context.Context, email string) error {
	return s.Ordered.Add(ctx, email)
}

// ForgetOrdered removes email from the ordered set.
func (s *AuthService) ForgetOrdered(ctx context.Context, email string) (bool, error) {
	return s.Ordered.Remove(ctx, email)
}
