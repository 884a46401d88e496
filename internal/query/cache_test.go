package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

var ctx = context.Background()

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 9, 25, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counter returns a loader yielding successive values, and the number of times it ran.
func counter(prefix string) (Loader[string], *atomic.Int32) {
	var calls atomic.Int32
	return func(context.Context) (string, error) {
		n := calls.Add(1)
		return prefix + string(rune('0'+n)), nil
	}, &calls
}

func newCache() (*Client, *clock) {
	clk := newClock()
	return New(Options{Now: clk.Now, GCTime: time.Minute}), clk
}

func TestFetchFresh(t *testing.T) {
	c, clk := newCache()
	load, calls := counter("v")
	key := NewKey("articles", 0, 10, "", "")

	for range 3 {
		v, err := Fetch(ctx, c, key, load, StaleTime(5*time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if v != "v1" {
			t.Errorf("expected v1, got %s", v)
		}
		clk.Advance(time.Minute)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected a single load, got %d", n)
	}
}

func TestFetchCoalesces(t *testing.T) {
	c, _ := newCache()
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (int, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 10)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := Fetch(ctx, c, NewKey("article", "a", "main"), load)
			if err != nil {
				t.Error(err)
			}
			results[i] = v
		}()
	}

	// Give every reader time to join the load before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := calls.Load(); n != 1 {
		t.Errorf("expected concurrent reads to share one load, got %d", n)
	}
	for i, v := range results {
		if v != 42 {
			t.Errorf("reader %d got %d", i, v)
		}
	}
}

func TestStaleWhileRevalidate(t *testing.T) {
	c, clk := newCache()
	load, calls := counter("v")
	key := NewKey("branches", "a", false)
	opt := StaleTime(2 * time.Minute)

	if _, err := Fetch(ctx, c, key, load, opt); err != nil {
		t.Fatal(err)
	}
	clk.Advance(3 * time.Minute)

	v, err := Fetch(ctx, c, key, load, opt)
	if err != nil {
		t.Fatal(err)
	}
	if v != "v1" {
		t.Errorf("expected the stale value v1 to be served, got %s", v)
	}

	c.Wait()
	if n := calls.Load(); n != 2 {
		t.Errorf("expected a background load, got %d loads", n)
	}
	if v, _ = Get[string](c, key); v != "v2" {
		t.Errorf("expected the refreshed value v2, got %s", v)
	}
}

func TestCloseRefetchesInline(t *testing.T) {
	c, clk := newCache()
	load, calls := counter("v")
	key := NewKey("branches", "a", false)
	opt := StaleTime(time.Minute)

	if _, err := Fetch(ctx, c, key, load, opt); err != nil {
		t.Fatal(err)
	}
	clk.Advance(2 * time.Minute)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := Fetch(ctx, c, key, load, opt); err != nil {
				t.Error(err)
			}
		}()
	}
	c.Close()
	wg.Wait()

	n := calls.Load()
	clk.Advance(2 * time.Minute)
	if _, err := Fetch(ctx, c, key, load, opt); err != nil {
		t.Fatal(err)
	}
	if got := calls.Load(); got != n+1 {
		t.Errorf("expected a stale read after Close to load before returning, got %d loads after %d", got, n)
	}
	c.Close()
}

func TestWaitFresh(t *testing.T) {
	c, clk := newCache()
	load, _ := counter("v")
	key := NewKey("current-user")

	Fetch(ctx, c, key, load)
	clk.Advance(time.Second)

	v, err := Fetch(ctx, c, key, load, WaitFresh())
	if err != nil {
		t.Fatal(err)
	}
	if v != "v2" {
		t.Errorf("expected a fresh value, got %s", v)
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := newCache()
	opt := StaleTime(time.Hour)

	branchesA, loadA := NewKey("branches", "a", false), 0
	branchesB, loadB := NewKey("branches", "b", true), 0
	article, loadArticle := NewKey("article", "a", "main"), 0

	fetch := func(key Key, n *int) int {
		v, err := Fetch(ctx, c, key, func(context.Context) (int, error) {
			*n++
			return *n, nil
		}, opt)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}

	fetch(branchesA, &loadA)
	fetch(branchesB, &loadB)
	fetch(article, &loadArticle)

	if n := c.Invalidate(NewKey("branches")); n != 2 {
		t.Errorf("expected 2 invalidated entries, got %d", n)
	}

	if v := fetch(branchesA, &loadA); v != 2 {
		t.Errorf("expected the invalidated entry to be reloaded before returning, got %d", v)
	}
	if v := fetch(branchesB, &loadB); v != 2 {
		t.Errorf("expected the invalidated entry to be reloaded before returning, got %d", v)
	}
	if v := fetch(article, &loadArticle); v != 1 {
		t.Errorf("entries outside the prefix must be untouched, got %d loads", v)
	}
}

func TestFailedLoad(t *testing.T) {
	c, _ := newCache()
	key := NewKey("article", "a", "main")
	boom := errors.New("boom")

	c.Set(key, "old")
	c.Invalidate(key)

	_, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		return "", boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %s, got %v", boom, err)
	}

	if v, ok := Get[string](c, key); !ok || v != "old" {
		t.Errorf("expected the previous value to be kept, got %q, %t", v, ok)
	}

	retried := false
	v, err := Fetch(ctx, c, key, func(context.Context) (string, error) {
		retried = true
		return "new", nil
	})
	if err != nil || !retried || v != "new" {
		t.Errorf("expected the next read to retry, got %q, %v, retried=%t", v, err, retried)
	}
}

func TestSetWinsOverLoadInFlight(t *testing.T) {
	c, _ := newCache()
	key := NewKey("profile", "me")
	started, release := make(chan struct{}), make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		Fetch(ctx, c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "loaded", nil
		})
	}()

	<-started
	c.Set(key, "written")
	close(release)
	<-done

	if v, _ := Get[string](c, key); v != "written" {
		t.Errorf("expected the written value to survive the load, got %q", v)
	}
}

func TestRemove(t *testing.T) {
	c, _ := newCache()
	c.Set(NewKey("current-user"), "galileo")
	c.Set(NewKey("permissions"), "all")
	c.Set(NewKey("profile", "me"), "bio")

	if n := c.Remove(NewKey("current-user")); n != 1 {
		t.Errorf("expected 1 removed entry, got %d", n)
	}
	if _, ok := Get[string](c, NewKey("current-user")); ok {
		t.Error("removed entry is still readable")
	}
	if c.Len() != 2 {
		t.Errorf("expected 2 remaining entries, got %d", c.Len())
	}
}

func TestRemoveDiscardsLoadInFlight(t *testing.T) {
	c, _ := newCache()
	key := NewKey("permissions")
	started, release := make(chan struct{}), make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		Fetch(ctx, c, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "stale permissions", nil
		})
	}()

	<-started
	c.Remove(key)
	close(release)
	<-done

	if _, ok := Get[string](c, key); ok {
		t.Error("a load started before removal must not repopulate the cache")
	}
}

func TestCancelledReader(t *testing.T) {
	c, _ := newCache()
	key := NewKey("commit", "c1")
	release := make(chan struct{})
	loaded := make(chan struct{})

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := Fetch(cctx, c, key, func(lctx context.Context) (string, error) {
		defer close(loaded)
		<-release
		return "content", lctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected the reader to give up, got %v", err)
	}

	close(release)
	<-loaded
	// The load finishes storing right after the loader returns.
	for range 100 {
		if _, ok := Get[string](c, key); ok {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if v, ok := Get[string](c, key); !ok || v != "content" {
		t.Errorf("expected the load to complete despite the cancellation, got %q, %t", v, ok)
	}
}

func TestCollect(t *testing.T) {
	c, clk := newCache()
	c.Set(NewKey("article", "old"), 1)
	clk.Advance(45 * time.Second)
	c.Set(NewKey("article", "recent"), 2)
	clk.Advance(30 * time.Second)

	if n := c.Collect(); n != 1 {
		t.Errorf("expected 1 collected entry, got %d", n)
	}
	if _, ok := Get[int](c, NewKey("article", "old")); ok {
		t.Error("unused entry was not collected")
	}
	if _, ok := Get[int](c, NewKey("article", "recent")); !ok {
		t.Error("recently used entry was collected")
	}
}
