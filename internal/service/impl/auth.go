package impl

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/domain"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

func (s *AppService) HasToken(ctx context.Context) (bool, error) {
	token, err := storage.Token(ctx, s.Store)
	return token != "", err
}

func (s *AppService) Login(ctx context.Context, c domain.Credentials) (res domain.LoginResponse, err error) {
	c.Username = strings.TrimSpace(c.Username)
	if c.Username == "" || c.Password == "" {
		return res, fmt.Errorf("%w: username and password are required", service.ErrInvalidInput)
	}

	if err = s.API.Post(ctx, "/auth/login", c, &res); err != nil {
		return
	}
	if err = s.storeToken(ctx, res.AccessToken); err != nil {
		return
	}
	s.settle(login, vars{})
	return
}

// Register creates an account. If the server answers with a token the new user is logged in right away.
func (s *AppService) Register(ctx context.Context, r domain.Registration) (res domain.LoginResponse, err error) {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))

	if err = s.API.Post(ctx, "/auth/register", r, &res); err != nil {
		return
	}
	if res.AccessToken == "" {
		return
	}
	if err = s.storeToken(ctx, res.AccessToken); err != nil {
		return
	}
	s.settle(login, vars{})
	return
}

func (s *AppService) Logout(ctx context.Context) error {
	apiErr := s.API.Post(ctx, "/auth/logout", nil, nil)
	if apiErr != nil {
		log.Warn().Err(apiErr).Msg("server side logout failed, clearing local session anyway")
	}

	err := storage.ClearToken(ctx, s.Store)
	s.settle(logout, vars{})
	if errors.Is(apiErr, service.ErrUnauthenticated) {
		// The token was already rejected; there was no session to end.
		apiErr = nil
	}
	return errors.Join(apiErr, err)
}

func (s *AppService) SessionExpired() {
	s.settle(logout, vars{})
}

func (s *AppService) storeToken(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("server returned no access token")
	}
	if err := s.Store.Set(ctx, storage.TokenKey, token); err != nil {
		log.Error().Err(err).Msg("failed to store access token")
		return err
	}
	return nil
}
