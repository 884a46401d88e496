// Package auth holds the authentication context of the process: who is logged in and what they may do. It is
// resolved once at start from the stored access token and again after every login, registration or logout.
package auth

//go:generate mockgen -source=auth.go -destination=../mocks/backend.go -package=mocks Backend

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Backend is the part of service.Service the session depends on.
type Backend interface {
	HasToken(ctx context.Context) (bool, error)
	CurrentUser(ctx context.Context) (domain.User, error)
	Permissions(ctx context.Context) (domain.PermissionSet, error)
	Login(ctx context.Context, c domain.Credentials) (domain.LoginResponse, error)
	Register(ctx context.Context, r domain.Registration) (domain.LoginResponse, error)
	Logout(ctx context.Context) error
}

// State is a snapshot of the authentication context. IsAuthenticated holds iff the current user could be
// fetched; Permissions is nil if they could not be.
type State struct {
	User            *domain.User
	Permissions     *domain.PermissionSet
	IsLoading       bool
	IsAuthenticated bool
}

// Session resolves and holds the authentication state. Resolutions are numbered, and only the latest one
// started may publish its result, so a logout is never undone by a resolution that was already in flight.
type Session struct {
	backend Backend

	mu      sync.RWMutex
	state   State
	gen     uint64
	pending bool
	done    chan struct{}
}

// New returns a session in the loading state. Call Start to resolve it.
func New(backend Backend) *Session {
	return &Session{
		backend: backend,
		state:   State{IsLoading: true},
		pending: true,
		done:    make(chan struct{}),
	}
}

// Start resolves the session in the background.
func (s *Session) Start(ctx context.Context) {
	gen := s.begin()
	go s.resolve(context.WithoutCancel(ctx), gen)
}

// Refresh resolves the session again and returns the result.
func (s *Session) Refresh(ctx context.Context) State {
	gen := s.begin()
	s.resolve(ctx, gen)
	return s.State()
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Wait blocks until the session is resolved or ctx is done.
func (s *Session) Wait(ctx context.Context) (State, error) {
	s.mu.RLock()
	pending, done := s.pending, s.done
	s.mu.RUnlock()

	if pending {
		select {
		case <-done:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
	return s.State(), nil
}

func (s *Session) Login(ctx context.Context, c domain.Credentials) (State, error) {
	if _, err := s.backend.Login(ctx, c); err != nil {
		return s.State(), err
	}
	return s.Refresh(ctx), nil
}

func (s *Session) Register(ctx context.Context, r domain.Registration) (State, error) {
	res, err := s.backend.Register(ctx, r)
	if err != nil {
		return s.State(), err
	}
	if res.AccessToken == "" {
		// The account awaits confirmation; nobody is logged in yet.
		return s.State(), nil
	}
	return s.Refresh(ctx), nil
}

// Logout ends the session on the server and resets the state. The state is reset even if the server could
// not be reached; the returned error only reports that.
func (s *Session) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	s.Reset()
	return err
}

// Reset marks the session as logged out without contacting the server. It is meant for requests rejected
// with 401, whose token is already gone.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.state = State{}
	s.finish()
}

// begin starts a new resolution and returns its number.
func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	if !s.pending {
		s.pending = true
		s.done = make(chan struct{})
	}
	s.state.IsLoading = true
	return s.gen
}

// finish wakes the waiters. Callers hold mu.
func (s *Session) finish() {
	if s.pending {
		s.pending = false
		close(s.done)
	}
}

// resolve fetches the current user and their permissions concurrently. Any failure resolves to "not
// authenticated"; there is no retry.
func (s *Session) resolve(ctx context.Context, gen uint64) {
	var st State

	ok, err := s.backend.HasToken(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to read the stored access token")
	}

	if ok {
		var (
			g     errgroup.Group
			user  domain.User
			perms domain.PermissionSet
		)
		g.Go(func() (err error) {
			if user, err = s.backend.CurrentUser(ctx); err != nil {
				log.Info().Err(err).Msg("could not fetch the current user")
				return err
			}
			st.User = &user
			return nil
		})
		g.Go(func() (err error) {
			if perms, err = s.backend.Permissions(ctx); err != nil {
				log.Info().Err(err).Msg("could not fetch permissions")
				return nil
			}
			st.Permissions = &perms
			return nil
		})
		err = g.Wait()
		st.IsAuthenticated = err == nil && st.User != nil
		if errors.Is(err, context.Canceled) {
			log.Debug().Msg("session resolution cancelled")
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.state = st
	s.finish()
	log.Debug().Bool("authenticated", st.IsAuthenticated).Msg("session resolved")
}
