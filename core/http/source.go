// Package http serves archive bytes from a remote URL through HTTP range
// requests, so an archive can be listed and read without downloading it.
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strconv"
	"strings"
)

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("range requests not supported")

// Source implements random access reads via HTTP range requests.
// It satisfies darc.ByteSource (io.ReaderAt plus Size).
type Source struct {
	ctx     context.Context
	url     string
	client  *nethttp.Client
	headers nethttp.Header
	size    int64
	etag    string

	pinned bool
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithPinnedETag sends If-Match with every range read so that an archive
// replaced on the server mid-read fails instead of mixing two versions.
func WithPinnedETag() Option {
	return func(s *Source) {
		s.pinned = true
	}
}

// NewSource probes url for its size and returns a Source reading from it.
// ctx bounds the probe and every later read.
func NewSource(ctx context.Context, url string, opts ...Option) (*Source, error) {
	s := &Source{
		ctx:    ctx,
		url:    url,
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}

	size, etag, err := s.probe()
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", url, err)
	}
	s.size = size
	s.etag = etag
	return s, nil
}

// Size returns the total size of the remote archive.
func (s *Source) Size() int64 {
	return s.size
}

// URL returns the address the source reads from.
func (s *Source) URL() string {
	return s.url
}

// ReadAt reads len(p) bytes at off with a single range request. It
// implements [io.ReaderAt]: a short read at the end returns io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}

	end := off + int64(len(p)) - 1
	expected := len(p)
	if end >= s.size {
		end = s.size - 1
		expected = int(end - off + 1)
	}

	resp, err := s.get(fmt.Sprintf("bytes=%d-%d", off, end), s.pinned)
	if err != nil {
		return 0, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	case nethttp.StatusPreconditionFailed:
		return 0, fmt.Errorf("%s changed while reading", s.url)
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:expected])
	if err != nil {
		return n, err
	}
	if expected < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe requests the first byte and reads the total size from Content-Range.
func (s *Source) probe() (size int64, etag string, err error) {
	resp, err := s.get("bytes=0-0", false)
	if err != nil {
		return 0, "", err
	}
	defer drain(resp)

	if resp.StatusCode != nethttp.StatusPartialContent {
		if resp.StatusCode == nethttp.StatusOK {
			return 0, "", ErrRangeUnsupported
		}
		return 0, "", fmt.Errorf("range probe failed: %s", resp.Status)
	}

	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return 0, "", errors.New("range probe missing Content-Range")
	}
	size, err = parseContentRange(crange)
	if err != nil {
		return 0, "", err
	}
	return size, resp.Header.Get("ETag"), nil
}

func (s *Source) get(rng string, conditional bool) (*nethttp.Response, error) {
	req, err := nethttp.NewRequestWithContext(s.ctx, nethttp.MethodGet, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if conditional && s.etag != "" {
		req.Header.Set("If-Match", s.etag)
	}
	req.Header.Set("Range", rng)
	return s.client.Do(req)
}

// drain empties and closes the body so the connection can be reused.
func drain(resp *nethttp.Response) {
	_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
	_ = resp.Body.Close()
}

// parseContentRange extracts the total size from "bytes start-end/size".
func parseContentRange(value string) (int64, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}
