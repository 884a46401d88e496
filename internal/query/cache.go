// Package query keeps a disposable cache of server resources, keyed by Key. Reads go through Fetch, which
// serves cached values while they are fresh, shares one load between concurrent readers of the same key and
// refreshes expired values in the background. Mutations mark entries stale with Invalidate, and the next read
// of such an entry waits for a new load.
package query

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"codeberg.org/gruf/go-mutexes"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const DefaultGCTime = 5 * time.Minute

// Loader fetches the value of a key. It receives a context that is not cancelled when the reader that
// triggered the load goes away.
type Loader[T any] func(ctx context.Context) (T, error)

type Options struct {
	// GCTime is how long an entry may go unread before it is discarded. Zero means DefaultGCTime.
	GCTime time.Duration
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Client is the cache. The map of entries is guarded by mu, while the fields of each entry are guarded by the
// lock of its key in locks. No lock is held while a loader runs.
type Client struct {
	mu      sync.RWMutex
	entries map[string]*entry
	locks   mutexes.MutexMap
	flight  singleflight.Group
	seq     atomic.Uint64
	pending sync.WaitGroup
	bgMu    sync.Mutex
	closed  bool
	gcTime  time.Duration
	now     func() time.Time
}

type entry struct {
	key        Key
	value      any
	hasValue   bool
	updatedAt  time.Time
	accessedAt time.Time
	staleTime  time.Duration
	// invalidated entries are reloaded before being served again.
	invalidated bool
	// generation changes whenever the entry is invalidated or overwritten; loads that started under an older
	// generation do not store their result.
	generation uint64
	removed    bool
}

func New(opts Options) *Client {
	c := &Client{
		entries: make(map[string]*entry),
		gcTime:  opts.GCTime,
		now:     opts.Now,
	}
	if c.gcTime <= 0 {
		c.gcTime = DefaultGCTime
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type fetchOptions struct {
	staleTime time.Duration
	waitFresh bool
}

type FetchOption func(*fetchOptions)

// StaleTime sets how long a loaded value is served without being refetched. The default is zero: every read
// after the first triggers a background refetch.
func StaleTime(d time.Duration) FetchOption {
	return func(o *fetchOptions) {
		o.staleTime = d
	}
}

// WaitFresh makes the read wait for a new load instead of serving an expired value.
func WaitFresh() FetchOption {
	return func(o *fetchOptions) {
		o.waitFresh = true
	}
}

// Fetch returns the value of key, loading it with load when there is no usable cached value. An expired value
// is returned at once while a background load refreshes it, unless WaitFresh is given. Invalidated entries
// and entries that never loaded successfully are always loaded before returning.
//
// A failed load returns its error and leaves any previous value in place; errors are never cached.
func Fetch[T any](ctx context.Context, c *Client, key Key, load Loader[T], opts ...FetchOption) (T, error) {
	var o fetchOptions
	for _, opt := range opts {
		opt(&o)
	}

	e, unlock := c.acquire(key)
	now := c.now()
	e.accessedAt = now
	e.staleTime = o.staleTime
	cached, ok := e.value.(T)
	ok = ok && e.hasValue && !e.invalidated
	fresh := ok && now.Sub(e.updatedAt) < e.staleTime
	gen := e.generation
	unlock()

	erased := func(ctx context.Context) (any, error) {
		return load(ctx)
	}

	switch {
	case fresh:
		recordHit(ctx, key.Kind())
		return cached, nil
	case ok && !o.waitFresh:
		recordRefetch(ctx, key.Kind())
		bg := context.WithoutCancel(ctx)
		c.background(func() {
			c.load(bg, e, gen, erased)
		})
		return cached, nil
	}

	recordMiss(ctx, key.Kind())
	v, err := c.load(ctx, e, gen, erased)
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

// Get returns the cached value of key without loading it, whether fresh or not.
func Get[T any](c *Client, key Key) (value T, ok bool) {
	ks := key.String()
	c.mu.RLock()
	e, found := c.entries[ks]
	c.mu.RUnlock()
	if !found {
		return
	}

	unlock := c.locks.Lock(ks)
	defer unlock()
	if !e.hasValue || e.removed {
		return
	}
	value, ok = e.value.(T)
	return
}

// Set stores value under key as freshly loaded. Loads of the key already in flight will not overwrite it.
func (c *Client) Set(key Key, value any) {
	e, unlock := c.acquire(key)
	defer unlock()

	now := c.now()
	e.value = value
	e.hasValue = true
	e.updatedAt = now
	e.accessedAt = now
	e.invalidated = false
	e.generation = c.seq.Add(1)
}

// Invalidate marks every entry whose key has the given prefix as stale, so that its next read waits for a
// new load. Cached values stay available to Get. It returns the number of entries marked.
func (c *Client) Invalidate(prefix Key) int {
	n := 0
	for _, e := range c.matching(prefix) {
		unlock := c.locks.Lock(e.key.String())
		if !e.removed {
			e.invalidated = true
			e.generation = c.seq.Add(1)
			n++
		}
		unlock()
	}

	recordInvalidations(context.Background(), prefix.Kind(), n)
	log.Debug().Str("prefix", prefix.String()).Int("entries", n).Msg("invalidated queries")
	return n
}

// Remove drops every entry whose key has the given prefix. Loads of those keys already in flight are
// discarded when they complete.
func (c *Client) Remove(prefix Key) int {
	n := 0
	for _, e := range c.matching(prefix) {
		if c.drop(e, func(*entry) bool { return true }) {
			n++
		}
	}
	log.Debug().Str("prefix", prefix.String()).Int("entries", n).Msg("removed queries")
	return n
}

// Collect discards the entries that were not read nor written for longer than the GC time.
func (c *Client) Collect() int {
	cutoff := c.now().Add(-c.gcTime)
	idle := func(e *entry) bool {
		return e.accessedAt.Before(cutoff)
	}

	c.mu.RLock()
	all := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		all = append(all, e)
	}
	c.mu.RUnlock()

	n := 0
	for _, e := range all {
		if c.drop(e, idle) {
			n++
		}
	}
	recordEvictions(context.Background(), n)
	return n
}

// Run collects unused entries periodically until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(max(c.gcTime/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := c.Collect(); n > 0 {
				log.Debug().Int("entries", n).Msg("discarded unused queries")
			}
		}
	}
}

// background runs f in a goroutine counted by Wait. Once the cache is closed, f runs in the caller instead.
func (c *Client) background(f func()) {
	c.bgMu.Lock()
	if c.closed {
		c.bgMu.Unlock()
		f()
		return
	}
	c.pending.Add(1)
	c.bgMu.Unlock()
	go func() {
		defer c.pending.Done()
		f()
	}()
}

// Wait blocks until every background refetch started so far has finished. It must not race with Fetch; use
// Close when requests may still be running.
func (c *Client) Wait() {
	c.pending.Wait()
}

// Close stops starting background refetches and waits for the running ones. Stale reads after Close refetch
// in the caller, so handlers still in flight keep working until the storage goes away.
func (c *Client) Close() {
	c.bgMu.Lock()
	c.closed = true
	c.bgMu.Unlock()
	c.pending.Wait()
}

func (c *Client) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// acquire returns the entry of key, creating an empty one if needed, with the key's lock held.
func (c *Client) acquire(key Key) (*entry, func()) {
	ks := key.String()
	for {
		c.mu.Lock()
		e, ok := c.entries[ks]
		if !ok {
			e = &entry{key: key, generation: c.seq.Add(1)}
			c.entries[ks] = e
		}
		c.mu.Unlock()

		unlock := c.locks.Lock(ks)
		if !e.removed {
			return e, unlock
		}
		// Dropped between the lookup and the lock.
		unlock()
	}
}

func (c *Client) matching(prefix Key) []*entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var matched []*entry
	for _, e := range c.entries {
		if e.key.HasPrefix(prefix) {
			matched = append(matched, e)
		}
	}
	return matched
}

// drop removes e from the map if cond holds for it under its key's lock.
func (c *Client) drop(e *entry, cond func(*entry) bool) bool {
	ks := e.key.String()
	unlock := c.locks.Lock(ks)
	defer unlock()
	if e.removed || !cond(e) {
		return false
	}

	c.mu.Lock()
	if c.entries[ks] == e {
		delete(c.entries, ks)
	}
	c.mu.Unlock()
	e.removed = true
	return true
}

// load runs fn for e, sharing the run with every other load of the same entry generation. The caller stops
// waiting when ctx is done, but the load goes on and its result is still stored.
func (c *Client) load(ctx context.Context, e *entry, gen uint64, fn func(context.Context) (any, error)) (any, error) {
	ks := e.key.String()
	ch := c.flight.DoChan(ks+"#"+strconv.FormatUint(gen, 10), func() (any, error) {
		lctx, span := startLoadSpan(context.WithoutCancel(ctx), e.key)
		defer span.End()

		start := time.Now()
		v, err := fn(lctx)
		recordLoad(lctx, e.key.Kind(), time.Since(start), err)
		if err != nil {
			span.RecordError(err)
			log.Warn().Err(err).Str("key", ks).Msg("query load failed")
			return nil, err
		}
		c.store(e, gen, v)
		return v, nil
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Client) store(e *entry, gen uint64, v any) {
	unlock := c.locks.Lock(e.key.String())
	defer unlock()
	if e.removed || e.generation != gen {
		return
	}

	e.value = v
	e.hasValue = true
	e.updatedAt = c.now()
	e.invalidated = false
}
