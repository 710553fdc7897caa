// Package loader downloads widget resource bundles. Downloads run
// concurrently with no ordering guarantee between them; a load batch
// completes only when every requested entry reports its defining symbol
// present, or failed.
package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/R3E-Network/widget_layer/pkg/logger"
)

// Entry is one resource to load. Ready reports whether the resource's
// defining symbol is present after the download; the loader polls it until
// it turns true.
type Entry struct {
	URL   string
	Ready func() bool
}

// FetchFunc retrieves a single resource.
type FetchFunc func(ctx context.Context, url string) error

// Loader loads resource batches.
type Loader struct {
	fetch        FetchFunc
	pollInterval time.Duration
	log          logger.Logger
}

// Option customises the loader.
type Option func(*Loader)

// WithFetch replaces the transport used to retrieve resources.
func WithFetch(fetch FetchFunc) Option {
	return func(l *Loader) { l.fetch = fetch }
}

// WithPollInterval sets the ready-predicate polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(l *Loader) { l.pollInterval = d }
}

// New creates a Loader. The default transport issues a GET and discards the
// body; hosts that evaluate bundles supply their own FetchFunc.
func New(log logger.Logger, opts ...Option) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	l := &Loader{
		fetch:        httpFetch(&http.Client{Timeout: 30 * time.Second}),
		pollInterval: 25 * time.Millisecond,
		log:          log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load retrieves every entry concurrently and returns per-entry results,
// index-aligned with entries. Load returns once all entries have settled.
// There is no built-in timeout; cancel ctx to abort.
func (l *Loader) Load(ctx context.Context, entries []Entry) []error {
	results := make([]error, len(entries))
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		go func(i int, entry Entry) {
			defer wg.Done()
			results[i] = l.loadOne(ctx, entry)
		}(i, entry)
	}

	wg.Wait()
	return results
}

func (l *Loader) loadOne(ctx context.Context, entry Entry) error {
	if err := l.fetch(ctx, entry.URL); err != nil {
		return fmt.Errorf("fetch %s: %w", entry.URL, err)
	}
	if entry.Ready == nil {
		return nil
	}

	ticker := time.NewTicker(l.pollInterval)
	defer ticker.Stop()
	for !entry.Ready() {
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", entry.URL, ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

func httpFetch(client *http.Client) FetchFunc {
	return func(ctx context.Context, url string) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		_, err = io.Copy(io.Discard, resp.Body)
		return err
	}
}
