package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrFetchExhausted means every transport in the fallback chain failed
// for a source ref.
var ErrFetchExhausted = errors.New("all fetch transports failed")

// Fetcher resolves a source ref to the asset's raw bytes.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, sourceRef string) ([]byte, error)
}

// FetchWithFallback tries each fetcher in order and returns the first
// success. Failures before the last are logged and swallowed; if every
// transport fails the result wraps ErrFetchExhausted.
func FetchWithFallback(ctx context.Context, sourceRef string, fetchers []Fetcher) ([]byte, error) {
	if len(fetchers) == 0 {
		return nil, fmt.Errorf("%w: no fetchers configured for %s", ErrFetchExhausted, sourceRef)
	}
	var lastErr error
	for _, f := range fetchers {
		data, err := f.Fetch(ctx, sourceRef)
		if err == nil {
			return data, nil
		}
		lastErr = err
		log.Printf("Fetch via %s failed for %s: %v", f.Name(), sourceRef, err)
	}
	return nil, fmt.Errorf("%w: %s: %v", ErrFetchExhausted, sourceRef, lastErr)
}

// DirectFetcher fetches the source ref as a URL with a plain GET.
type DirectFetcher struct {
	Client *http.Client
}

func (f *DirectFetcher) Name() string { return "direct" }

func (f *DirectFetcher) Fetch(ctx context.Context, sourceRef string) ([]byte, error) {
	return httpGet(ctx, f.Client, sourceRef)
}

// ProxyFetcher routes the fetch through a proxy endpoint that forwards
// the original URL, for assets the direct transport cannot reach.
type ProxyFetcher struct {
	Client *http.Client
	Base   string // e.g. "http://localhost:8080/proxy?url="
}

func (f *ProxyFetcher) Name() string { return "proxy" }

func (f *ProxyFetcher) Fetch(ctx context.Context, sourceRef string) ([]byte, error) {
	if f.Base == "" {
		return nil, errors.New("no proxy configured")
	}
	return httpGet(ctx, f.Client, f.Base+url.QueryEscape(sourceRef))
}

// FileFetcher resolves source refs against a local asset directory,
// the last-resort transport for uploaded files already on disk.
type FileFetcher struct {
	Dir string
}

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) Fetch(ctx context.Context, sourceRef string) ([]byte, error) {
	name := filepath.Base(sourceRef)
	if u, err := url.Parse(sourceRef); err == nil && u.Path != "" {
		name = filepath.Base(u.Path)
	}
	return os.ReadFile(filepath.Join(f.Dir, name))
}

func httpGet(ctx context.Context, client *http.Client, rawURL string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
