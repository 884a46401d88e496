// Package state wires together the long-lived parts of the frontend: the local storage, the API client, the
// query cache, the service and the authentication session.
package state

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/auth"
	"github.com/sidereusnuntius/wikifront/internal/client"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/initialization"
	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/service/impl"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

type State struct {
	Config  config.Configuration
	Storage storage.Storage
	Client  *client.HttpClient
	Cache   *query.Client
	Service service.Service
	Session *auth.Session

	closeStorage func() error
}

// New opens the configured storage and builds everything on top of it. The session is not resolved yet;
// call Session.Start or Session.Refresh.
func New(cfg config.Configuration) (*State, error) {
	store, closeStorage, err := initialization.OpenStorage(&cfg)
	if err != nil {
		return nil, err
	}
	return FromStorage(cfg, store, client.FromConfig(&cfg, store), closeStorage), nil
}

// FromStorage builds the state on an already opened storage and client.
func FromStorage(cfg config.Configuration, store storage.Storage, c *client.HttpClient, closeStorage func() error) *State {
	cache := query.New(query.Options{GCTime: cfg.GCTime})
	svc := impl.New(c, cache, store)
	session := auth.New(svc)

	c.OnUnauthorized(func(ctx context.Context) {
		log.Info().Msg("access token rejected, logging out")
		svc.SessionExpired()
		session.Reset()
	})

	return &State{
		Config:       cfg,
		Storage:      store,
		Client:       c,
		Cache:        cache,
		Service:      svc,
		Session:      session,
		closeStorage: closeStorage,
	}
}

// Close closes the cache, waiting for its background loads, then releases the storage.
func (s *State) Close() error {
	s.Cache.Close()
	if s.closeStorage == nil {
		return nil
	}
	if err := s.closeStorage(); err != nil {
		return errors.Join(errors.New("closing storage"), err)
	}
	return nil
}
