package impl

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/sidereusnuntius/wikifront/internal/query"
	"github.com/sidereusnuntius/wikifront/internal/service"
	"github.com/sidereusnuntius/wikifront/internal/storage"
)

// API is the part of client.HttpClient used by the service.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string) error
	Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error
}

type AppService struct {
	API   API
	Cache *query.Client
	Store storage.Storage
	// Now stamps generated commit messages.
	Now func() time.Time
}

func New(api API, cache *query.Client, store storage.Storage) service.Service {
	return &AppService{
		API:   api,
		Cache: cache,
		Store: store,
		Now:   time.Now,
	}
}
