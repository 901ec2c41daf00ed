// Package source opens CSV inputs from files, URLs and streams.
//
// Every source is normalized the same way before tokenizing:
//
//   - gzip and zstd payloads are decompressed (detected by magic bytes)
//   - text is decoded from the configured charset to UTF-8
//   - byte order marks are removed and invalid UTF-8 becomes U+FFFD
//   - raw bytes are counted for progress reporting
package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Options control how raw bytes are turned into text.
type Options struct {
	Charset string // WHATWG encoding label; empty means UTF-8
}

// Source is a normalized text stream. Close releases the underlying file or
// response body together with any decompressor.
type Source struct {
	io.Reader

	Counter *CountingReader // Raw (still compressed) bytes consumed
	closers []func() error
}

// Close releases every resource held by the source. It is safe to call more
// than once.
func (s *Source) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

// New wraps r. size is the raw length when known, 0 otherwise.
func New(r io.Reader, size int64, opts Options) (*Source, error) {
	counter := NewCountingReader(r, size)
	s := &Source{Counter: counter}

	decompressed, closeFn, err := decompress(counter)
	if err != nil {
		return nil, err
	}
	if closeFn != nil {
		s.closers = append(s.closers, closeFn)
	}

	decoded, err := Decode(decompressed, opts.Charset)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Reader = decoded
	return s, nil
}

// Open opens the file at path.
func Open(path string, opts Options) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	s, err := New(f, size, opts)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	s.closers = append([]func() error{f.Close}, s.closers...)
	return s, nil
}

// StatusError reports a non-2xx response when fetching a URL.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// OpenURL issues a GET for url. A nil client uses http.DefaultClient.
func OpenURL(ctx context.Context, client *http.Client, url string, opts Options) (*Source, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	size := max(resp.ContentLength, 0)
	s, err := New(resp.Body, size, opts)
	if err != nil {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	s.closers = append([]func() error{resp.Body.Close}, s.closers...)
	return s, nil
}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// decompress sniffs the stream header and unwraps gzip or zstd payloads.
func decompress(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	head, _ := br.Peek(len(zstdMagic))

	switch {
	case bytes.HasPrefix(head, gzipMagic):
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return gz, gz.Close, nil

	case bytes.HasPrefix(head, zstdMagic):
		decoder, err := zstd.NewReader(br)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		return decoder, func() error { decoder.Close(); return nil }, nil
	}
	return br, nil, nil
}
