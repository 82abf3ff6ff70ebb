package fetch

import (
	"context"
	"fmt"
	"io"
	"net/url"
)

// Ensure MultiFetcher implements Fetcher interface.
var _ Fetcher = (*MultiFetcher)(nil)

// Dispatches on the URL scheme. Paths without a scheme are read from disk.
type MultiFetcher struct {
	schemes map[string]Fetcher
}

func NewMultiFetcher(schemes map[string]Fetcher) *MultiFetcher {
	m := &MultiFetcher{schemes: map[string]Fetcher{
		"":     NewFileFetcher(),
		"file": NewFileFetcher(),
	}}
	for scheme, f := range schemes {
		m.schemes[scheme] = f
	}

	return m
}

func (m *MultiFetcher) Fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	scheme := ""
	if u, err := url.Parse(rawURL); err == nil {
		scheme = u.Scheme
	}

	f, ok := m.schemes[scheme]
	if !ok {
		return nil, fmt.Errorf("no fetcher for scheme %q in %s", scheme, rawURL)
	}

	return f.Fetch(ctx, rawURL)
}
