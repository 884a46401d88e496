package client

//go:generate mockgen -source=client.go -destination=../mocks/doer.go -package=mocks Doer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sidereusnuntius/wikifront/internal/config"
	"github.com/sidereusnuntius/wikifront/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/sidereusnuntius/wikifront/internal/client")

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HttpClient talks to the wiki REST API. Every request carries the stored access token, if there is one, as a
// bearer token. A 401 response removes the token and fires the hook registered with OnUnauthorized.
type HttpClient struct {
	base  *url.URL
	doer  Doer
	store storage.Storage

	hookMu         sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

func New(base *url.URL, doer Doer, store storage.Storage) *HttpClient {
	return &HttpClient{
		base:  base,
		doer:  doer,
		store: store,
	}
}

// FromConfig builds a client for the configured API, aborting requests that exceed the configured timeout.
func FromConfig(cfg *config.Configuration, store storage.Storage) *HttpClient {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeout
	}
	return New(cfg.ApiUrl, &http.Client{Timeout: timeout}, store)
}

// OnUnauthorized registers f to be called after the API rejected the access token. Only one hook is kept.
func (c *HttpClient) OnUnauthorized(f func(ctx context.Context)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onUnauthorized = f
}

func (c *HttpClient) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *HttpClient) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *HttpClient) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *HttpClient) Delete(ctx context.Context, path string) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, nil)
}

// Do sends a JSON request and decodes the JSON response into out, unless out is nil.
func (c *HttpClient) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var reader io.Reader
	if body != nil {
		content, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(content)
	}

	req, err := c.newRequest(ctx, method, path, query, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(ctx, req, out)
}

// Upload sends content as the single file of a multipart form, under the given field name.
func (c *HttpClient) Upload(ctx context.Context, path, field, filename string, content io.Reader, out any) error {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	if _, err = io.Copy(part, content); err != nil {
		return fmt.Errorf("reading upload: %w", err)
	}
	if err = form.Close(); err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, nil, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	return c.send(ctx, req, out)
}

func (c *HttpClient) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.base.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	token, err := storage.Token(ctx, c.store)
	if err != nil {
		log.Error().Err(err).Msg("failed to read access token")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *HttpClient) send(ctx context.Context, req *http.Request, out any) (err error) {
	ctx, span := tracer.Start(ctx, req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", req.Method),
			attribute.String("url.full", req.URL.String()),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	start := time.Now()
	res, err := c.doer.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", req.Method).Str("url", req.URL.String()).Msg("request failed")
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer res.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", res.StatusCode))
	log.Debug().
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api request")

	if res.StatusCode == http.StatusUnauthorized {
		c.unauthorized(ctx)
	}

	if res.StatusCode >= http.StatusBadRequest {
		content, _ := io.ReadAll(res.Body)
		apiErr := &APIError{
			Status: res.StatusCode,
			Detail: parseDetail(content),
		}
		if res.StatusCode >= http.StatusInternalServerError {
			log.Error().Int("code", res.StatusCode).Bytes("response body", content).Msg("api error")
		}
		return apiErr
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}
	if err = json.NewDecoder(res.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		log.Error().Err(err).Msg("response body unmarshaling error")
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func (c *HttpClient) unauthorized(ctx context.Context) {
	if err := storage.ClearToken(ctx, c.store); err != nil {
		log.Error().Err(err).Msg("failed to remove rejected access token")
	}

	c.hookMu.RLock()
	hook := c.onUnauthorized
	c.hookMu.RUnlock()
	if hook != nil {
		hook(ctx)
	}
}
