package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/smartstudy/internal/apperr"
)

// DecodeDataURI parses a base64 data:<mime>;base64,<data> URI and returns
// the payload and the extension of its MIME type.
func DecodeDataURI(uri string) ([]byte, string, error) {
	meta, encoded, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("data URI: missing comma separator: %w", apperr.ErrValidation)
	}
	meta, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", fmt.Errorf("data URI: only base64 payloads are supported: %w", apperr.ErrValidation)
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(encoded); err != nil {
			return nil, "", fmt.Errorf("data URI: %v: %w", err, apperr.ErrValidation)
		}
	}
	ext := ExtForMIME(meta)
	if ext == "" {
		return nil, "", fmt.Errorf("data URI: unsupported MIME type %q: %w", meta, apperr.ErrValidation)
	}
	return data, ext, nil
}

// Fetcher downloads files from http(s) URLs. Hosts that resolve to
// loopback, link-local (including cloud metadata) or unspecified addresses
// are refused, on the first request and on every redirect.
type Fetcher struct {
	client  *http.Client
	blocked func(net.IP) bool
	lookup  func(host string) ([]net.IP, error)
}

// NewFetcher returns a Fetcher with a 30 second timeout.
func NewFetcher() *Fetcher {
	f := &Fetcher{blocked: blockedIP, lookup: net.LookupIP}
	f.client = &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return f.checkHost(req.URL.Hostname())
		},
	}
	return f
}

func blockedIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

func (f *Fetcher) checkHost(host string) error {
	if host == "metadata.google.internal" || host == "localhost" {
		return fmt.Errorf("blocked host %s: %w", host, apperr.ErrValidation)
	}
	ips := []net.IP{net.ParseIP(host)}
	if ips[0] == nil {
		var err error
		if ips, err = f.lookup(host); err != nil {
			// The request itself reports DNS failures.
			return nil
		}
	}
	for _, ip := range ips {
		if f.blocked(ip) {
			return fmt.Errorf("blocked host %s (%s): %w", host, ip, apperr.ErrValidation)
		}
	}
	return nil
}

// Fetch downloads rawURL and returns the payload and the extension implied
// by the response Content-Type ("" if unknown).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %v: %w", err, apperr.ErrValidation)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, "", fmt.Errorf("fetch: unsupported scheme %q: %w", u.Scheme, apperr.ErrValidation)
	}
	if err := f.checkHost(u.Hostname()); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("fetch: read body: %w", err)
	}
	if len(data) > MaxSize {
		return nil, "", fmt.Errorf("fetch: exceeds %d bytes: %w", MaxSize, ErrTooLarge)
	}
	return data, ExtForMIME(resp.Header.Get("Content-Type")), nil
}

// NameFromURL picks a file name for a fetched or inline payload: the last
// path segment when it has an extension, else a random name with ext.
func NameFromURL(rawURL, ext string) string {
	if ext == "" {
		ext = ".bin"
	}
	if !strings.HasPrefix(rawURL, "data:") {
		if u, err := url.Parse(rawURL); err == nil {
			if base := path.Base(u.Path); strings.Contains(base, ".") && base != "." {
				return base
			}
		}
	}
	return uuid.NewString() + ext
}
