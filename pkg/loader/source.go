package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
)

// ErrAccessDenied is the cause of load failures for URIs whose scheme is
// not allowed, or for files outside the loader's root.
var ErrAccessDenied = errors.New("access denied")

// fetch reads the raw content at uri. It returns the content type
// reported by the source, if any.
func (l *Loader) fetch(ctx context.Context, uri string) ([]byte, string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, "", err
	}
	switch u.Scheme {
	case "", "file":
		if !l.allows("file") {
			return nil, "", fmt.Errorf("%w: file access is disabled", ErrAccessDenied)
		}
		p := u.Path
		switch {
		case u.Scheme == "":
			p = uri
		case p == "":
			p = u.Opaque
		}
		data, err := l.readFile(ctx, p)
		return data, "", err
	case "http", "https":
		if !l.allows(u.Scheme) {
			return nil, "", fmt.Errorf("%w: %s access is disabled", ErrAccessDenied, u.Scheme)
		}
		return l.fetchHTTP(ctx, u.String())
	}
	return nil, "", fmt.Errorf("unsupported URI scheme %q", u.Scheme)
}

func (l *Loader) allows(scheme string) bool {
	return l.schemes == nil || l.schemes[scheme]
}

// readFile reads the file at p. With a root set, p must name a file below
// the root, and relative paths are taken from the root.
func (l *Loader) readFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name := filepath.FromSlash(p)
	var f *os.File
	var err error
	if l.root == "" {
		f, err = os.Open(name)
	} else {
		rel := name
		if filepath.IsAbs(name) {
			if rel, err = filepath.Rel(l.root, name); err != nil {
				rel = ""
			}
		}
		if !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("%w: %s is outside %s", ErrAccessDenied, p, l.root)
		}
		f, err = os.OpenInRoot(l.root, rel)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAll(f, l.maxBytes)
}

func (l *Loader) fetchHTTP(ctx context.Context, uri string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Accept", "application/json, application/yaml, application/ion;q=0.9, */*;q=0.5")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("GET %s: %s", uri, resp.Status)
	}
	data, err := readAll(resp.Body, l.maxBytes)
	return data, resp.Header.Get("Content-Type"), err
}

// readAll reads r, failing when it holds more than limit bytes.
func readAll(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("document exceeds %d bytes", limit)
	}
	return data, nil
}
