package provider

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/sha3"

	servpack "github.com/servpack/servpack"
)

const defaultRetries = 3

// StatusError is a non-2xx response that survived retrying.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.URL, e.Code)
}

// Client is the HTTP plumbing shared by all providers: a per-call
// timeout on the underlying http.Client, a bounded retry on transient
// failures (connection errors and 5xx), and multi-hash downloads.
// Semantic failures (404, auth rejection) are never retried.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	// Retries is the total attempt count per request. Zero means the
	// default of 3.
	Retries int
}

func (c *Client) retries() int {
	if c.Retries > 0 {
		return c.Retries
	}
	return defaultRetries
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// Do performs one request with retry. The caller owns the response
// body.
func (c *Client) Do(ctx context.Context, method, url string, headers map[string]string) (*http.Response, error) {
	retries := c.retries()
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, nil)
		if err != nil {
			return nil, err
		}
		if c.UserAgent != "" {
			req.Header.Set("User-Agent", c.UserAgent)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := c.httpClient().Do(req)
		if err != nil {
			if attempt+1 < retries && ctx.Err() == nil {
				if werr := backoff(ctx, attempt); werr != nil {
					return nil, werr
				}
				continue
			}
			return nil, err
		}
		if resp.StatusCode >= 500 && attempt+1 < retries {
			resp.Body.Close()
			if werr := backoff(ctx, attempt); werr != nil {
				return nil, werr
			}
			continue
		}
		return resp, nil
	}
}

func backoff(ctx context.Context, attempt int) error {
	d := time.Duration(attempt+1) * 500 * time.Millisecond
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// GetJSON fetches url and decodes the response body into v.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v interface{}) error {
	resp, err := c.Do(ctx, http.MethodGet, url, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, URL: url}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %q: %w", url, err)
	}
	return nil
}

var sumNames = []string{"md5", "sha1", "sha256", "keccak256"}

func newHashes() []hash.Hash {
	return []hash.Hash{md5.New(), sha1.New(), sha256.New(), sha3.New256()}
}

// Download fetches url into t.Folder/name, hashing the payload on the
// way through. Returns the written path (relative to the server root)
// and the "algo:hex" digests.
func (c *Client) Download(ctx context.Context, url string, headers map[string]string, t Target, name string) (string, []string, error) {
	resp, err := c.Do(ctx, http.MethodGet, url, headers)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, &StatusError{Code: resp.StatusCode, URL: url}
	}
	return writeHashed(t, name, resp.Body)
}

// writeHashed streams r into t.Folder/name, hashing the payload on the
// way through.
func writeHashed(t Target, name string, r io.Reader) (string, []string, error) {
	if t.Folder != "" {
		if err := t.Fs.MkdirAll(t.Folder, 0755); err != nil {
			return "", nil, err
		}
	}
	fpath := t.path(name)
	f, err := t.Fs.Create(fpath)
	if err != nil {
		return "", nil, err
	}
	hashes := newHashes()
	ww := make([]io.Writer, len(hashes)+1)
	for i, h := range hashes {
		ww[i] = h
	}
	ww[len(hashes)] = f
	if _, err := io.Copy(io.MultiWriter(ww...), r); err != nil {
		f.Close()
		return "", nil, err
	}
	if err := f.Close(); err != nil {
		return "", nil, err
	}
	sums := make([]string, len(hashes))
	for i, name := range sumNames {
		sums[i] = fmt.Sprintf("%s:%x", name, hashes[i].Sum(nil))
	}
	return fpath, sums, nil
}

// VerifySums checks that every expected "algo:hex" digest appears in
// the computed set.
func VerifySums(expected []string, computed map[string][]string) error {
	if len(expected) == 0 {
		return nil
	}
	have := make(map[string]struct{})
	for _, sums := range computed {
		for _, s := range sums {
			have[s] = struct{}{}
		}
	}
	for _, want := range expected {
		if _, ok := have[want]; !ok {
			return fmt.Errorf("%w: missing %s", servpack.ErrSumsMismatch, want)
		}
	}
	return nil
}

// FindSum returns the recorded digest for the given algorithm, if any.
func FindSum(sums []string, algo string) string {
	prefix := algo + ":"
	for _, s := range sums {
		if len(s) > len(prefix) && s[:len(prefix)] == prefix {
			return s[len(prefix):]
		}
	}
	return ""
}
