package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	applog "techypad/internal/log"
	"techypad/internal/repos"
)

const minPasswordLen = 6

// LocalProvider keeps accounts in the users table and sessions in auth_sessions.
// Access tokens are JWTs whose jti is the session row, so sign-out revokes them.
type LocalProvider struct {
	Users  *repos.UserRepo
	Tokens *TokenManager
	TTL    time.Duration
	// RequireConfirmation withholds a session at sign-up until the e-mail link is followed.
	RequireConfirmation bool
	// Deliver sends the confirmation token. The default writes the link to the log.
	Deliver func(ctx context.Context, email, token string)
	Now     func() time.Time

	mu        sync.RWMutex
	nextID    int
	listeners map[int]func(AuthEvent)
}

func NewLocalProvider(users *repos.UserRepo, tokens *TokenManager, ttl time.Duration, requireConfirmation bool) *LocalProvider {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &LocalProvider{
		Users:               users,
		Tokens:              tokens,
		TTL:                 ttl,
		RequireConfirmation: requireConfirmation,
		listeners:           map[int]func(AuthEvent){},
	}
}

var validate = validator.New()

func (p *LocalProvider) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p *LocalProvider) SignUp(ctx context.Context, email, password string, profile Profile) (*SignUpResult, error) {
	email = strings.TrimSpace(email)
	if validate.Var(email, "required,email") != nil {
		return nil, ErrInvalidEmail
	}
	if len(password) < minPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	at := p.now()
	row := repos.UserRow{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(profile.FullName),
		Hash:      string(hash),
		CreatedAt: at,
	}
	if p.RequireConfirmation {
		row.ConfirmToken = sql.NullString{String: uuid.NewString(), Valid: true}
	} else {
		row.ConfirmedAt = sql.NullTime{Time: at, Valid: true}
	}
	if err := p.Users.Create(ctx, row); err != nil {
		if errors.Is(err, repos.ErrEmailTaken) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	res := &SignUpResult{User: row.User()}
	if p.RequireConfirmation {
		p.deliver(ctx, row.Email, row.ConfirmToken.String)
		return res, nil
	}
	if res.Session, err = p.issue(ctx, row); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (*Session, error) {
	row, err := p.Users.ByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(row.Hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}
	if !row.Confirmed() {
		return nil, ErrEmailNotConfirmed
	}
	return p.issue(ctx, *row)
}

// SignOut revokes the session behind accessToken. Unknown tokens are not an error.
func (p *LocalProvider) SignOut(ctx context.Context, accessToken string) error {
	claims, err := p.Tokens.Validate(accessToken)
	if err == nil {
		if err := p.Users.UnbindSession(ctx, claims.ID, p.now()); err != nil {
			return err
		}
	}
	p.emit(AuthEvent{Type: SignedOut, AccessToken: accessToken})
	return nil
}

func (p *LocalProvider) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	if accessToken == "" {
		return nil, nil
	}
	claims, err := p.Tokens.Validate(accessToken)
	if err != nil {
		return nil, nil
	}
	row, err := p.Users.SessionUser(ctx, claims.ID, p.now())
	if errors.Is(err, repos.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &Session{AccessToken: accessToken, User: row.User(), ExpiresAt: claims.ExpiresAt.Time}, nil
}

// ConfirmEmail burns the token and signs the user in.
func (p *LocalProvider) ConfirmEmail(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrConfirmToken
	}
	row, err := p.Users.ByConfirmToken(ctx, token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConfirmToken
	}
	if err != nil {
		return nil, err
	}
	at := p.now()
	if err := p.Users.Confirm(ctx, row.ID, at); err != nil {
		return nil, err
	}
	row.ConfirmedAt = sql.NullTime{Time: at, Valid: true}
	return p.issue(ctx, *row)
}

func (p *LocalProvider) OnAuthStateChange(fn func(AuthEvent)) func() {
	p.mu.Lock()
	if p.listeners == nil {
		p.listeners = map[int]func(AuthEvent){}
	}
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

func (p *LocalProvider) issue(ctx context.Context, row repos.UserRow) (*Session, error) {
	sid := uuid.NewString()
	at := p.now()
	exp := at.Add(p.TTL)
	if err := p.Users.BindSession(ctx, sid, row.ID, at, exp); err != nil {
		return nil, fmt.Errorf("bind session: %w", err)
	}
	u := row.User()
	tok, err := p.Tokens.Generate(u, sid, at, exp)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	s := &Session{AccessToken: tok, User: u, ExpiresAt: exp}
	p.emit(AuthEvent{Type: SignedIn, AccessToken: tok, Session: s})
	return s, nil
}

func (p *LocalProvider) emit(ev AuthEvent) {
	p.mu.RLock()
	fns := make([]func(AuthEvent), 0, len(p.listeners))
	for _, fn := range p.listeners {
		fns = append(fns, fn)
	}
	p.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (p *LocalProvider) deliver(ctx context.Context, email, token string) {
	if p.Deliver != nil {
		p.Deliver(ctx, email, token)
		return
	}
	applog.Info(nil, "auth.confirm.issued", map[string]any{"email": email, "link": "/auth/confirm?token=" + token})
}
