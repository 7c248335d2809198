package session

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/pictura/internal/imagehost"
)

// errSuperseded is returned when the token changed while its profile was loading.
var errSuperseded = errors.New("token changed while loading profile")

// State is the lifecycle state of a Store.
type State int

const (
	// Uninitialized means Initialize has not been called yet.
	Uninitialized State = iota
	// Loading means the stored token is being exchanged for a profile.
	Loading
	// Ready means the session is resolved, with or without a user.
	Ready
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// API is the part of the image hosting API the store needs.
// Implementations authenticate with the store's TokenStore.
type API interface {
	Login(ctx context.Context, creds imagehost.Credentials, asAdmin bool) (*imagehost.AuthToken, error)
	Register(ctx context.Context, reg imagehost.Registration, asAdmin bool) (*imagehost.AuthToken, error)
	Profile(ctx context.Context) (*imagehost.User, error)
}

// Store holds who is logged in: the token in durable storage and the loaded user.
type Store struct {
	api    API
	tokens TokenStore

	once sync.Once

	mu     sync.RWMutex
	state  State
	user   *imagehost.User
	errMsg string
}

// New creates a store. api must authenticate its requests with tokens.
func New(api API, tokens TokenStore) *Store {
	return &Store{
		api:    api,
		tokens: tokens,
	}
}

// Initialize loads the profile if a token is stored. It only does work on the first call;
// concurrent callers block until the first call has finished.
func (s *Store) Initialize(ctx context.Context) {
	s.once.Do(func() {
		s.mu.Lock()
		s.state = Loading
		s.mu.Unlock()

		token, err := s.tokens.Token()
		if err != nil {
			log.Error("Failed to read stored token", "error", err)
		}

		if err == nil && token != "" {
			if err := s.loadProfile(ctx, token); err != nil {
				log.Warn("Stored token rejected, starting logged out", "error", err)
			}
		}

		s.mu.Lock()
		s.state = Ready
		s.mu.Unlock()
	})
}

// loadProfile fetches the profile for token. Any failure clears the token and the user.
// Nothing is changed if another token was stored in the meantime.
func (s *Store) loadProfile(ctx context.Context, token string) error {
	user, err := s.api.Profile(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if current, terr := s.tokens.Token(); terr != nil || current != token {
		return errSuperseded
	}
	if err != nil {
		s.clearLocked()
		return err
	}
	s.user = user
	return nil
}

// Login authenticates with the admin or the regular login endpoint.
// A restore still in progress is waited for first.
// On failure the message is recorded and the current session stays as it is.
func (s *Store) Login(ctx context.Context, email, password string, asAdmin bool) bool {
	s.Initialize(ctx)
	s.setErr("")

	resp, err := s.api.Login(ctx, imagehost.Credentials{Email: email, Password: password}, asAdmin)
	if err != nil {
		log.Debug("Login failed", "email", email, "admin", asAdmin, "error", err)
		s.setErr(imagehost.Message(err, "Failed to login"))
		return false
	}

	return s.startSession(ctx, resp, "Failed to login")
}

// Register creates an account. With asAdmin the account is created for someone else
// through the admin endpoint and the caller's session is left alone; otherwise the
// caller is logged in as the new account.
func (s *Store) Register(ctx context.Context, reg imagehost.Registration, asAdmin bool) bool {
	s.Initialize(ctx)
	s.setErr("")

	resp, err := s.api.Register(ctx, reg, asAdmin)
	if err != nil {
		log.Debug("Register failed", "email", reg.Email, "admin", asAdmin, "error", err)
		s.setErr(imagehost.Message(err, "Failed to register"))
		if asAdmin {
			// the admin endpoint runs with the caller's token
			s.HandleError(err)
		}
		return false
	}

	if asAdmin {
		return true
	}
	return s.startSession(ctx, resp, "Failed to register")
}

func (s *Store) startSession(ctx context.Context, resp *imagehost.AuthToken, fallback string) bool {
	token, err := resp.RequireToken()
	if err != nil {
		s.setErr(imagehost.Message(err, fallback))
		return false
	}

	if err := s.tokens.SetToken(token); err != nil {
		log.Error("Failed to store token", "error", err)
		s.setErr(fallback)
		return false
	}

	if err := s.loadProfile(ctx, token); err != nil {
		log.Error("Failed to fetch user profile", "error", err)
		s.setErr(imagehost.Message(err, "Failed to load profile"))
		return false
	}
	return true
}

// Refresh fetches the profile again, e.g. after it was edited.
// Only an unauthorized response ends the session.
func (s *Store) Refresh(ctx context.Context) error {
	user, err := s.api.Profile(ctx)
	if err != nil {
		s.HandleError(err)
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user != nil {
		s.user = user
	}
	return nil
}

// Logout clears the token and the user.
func (s *Store) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked()
}

func (s *Store) clearLocked() error {
	s.user = nil
	if err := s.tokens.ClearToken(); err != nil {
		log.Error("Failed to clear stored token", "error", err)
		return err
	}
	return nil
}

// HandleError ends the session if err is an unauthorized response and reports whether it did.
// Callers redirect to the login view when it returns true.
func (s *Store) HandleError(err error) bool {
	if !imagehost.IsUnauthorized(err) {
		return false
	}
	log.Info("Session rejected by the API, logging out")
	_ = s.Logout()
	return true
}

// User returns a copy of the logged in user or nil.
func (s *Store) User() *imagehost.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// IsAdmin reports whether a user is logged in and has the admin role.
func (s *Store) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user.IsAdmin()
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the message of the last failed login or registration.
func (s *Store) Err() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) setErr(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
}
