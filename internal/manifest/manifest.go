// Package manifest loads slide-graphics manifests: JSON documents that list
// the media clips shown beside a split slide.
package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"postdeck/internal/logging"
)

// Clip is one playable media asset. Clip i belongs to segment i of its slide.
type Clip struct {
	File     string `json:"file"`
	Loop     bool   `json:"loop"`
	AutoNext bool   `json:"auto_next"`
}

// Manifest is the decoded document.
type Manifest struct {
	Slides []Clip `json:"slides"`
}

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("manifest: unexpected HTTP status")

// maxBody caps manifest size; manifests are a handful of entries.
const maxBody = 1 << 20

// Client fetches manifests over HTTP.
type Client struct {
	HTTP    *http.Client
	Timeout time.Duration
}

// NewClient returns a client with the given per-request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{}, Timeout: timeout}
}

// Fetch downloads and decodes the manifest at url. There is no retry.
func (c *Client) Fetch(ctx context.Context, url string) (*Manifest, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s from %s", ErrStatus, resp.Status, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", url, err)
	}
	m, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", url, err)
	}
	logging.Manifest("fetched %s: %d clips", url, len(m.Slides))
	return m, nil
}

// Decode parses a manifest document.
func Decode(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for i, c := range m.Slides {
		if c.File == "" {
			return nil, fmt.Errorf("failed to parse manifest: clip %d has no file", i)
		}
	}
	return &m, nil
}

// Clip returns clip i, if present.
func (m *Manifest) Clip(i int) (Clip, bool) {
	if m == nil || i < 0 || i >= len(m.Slides) {
		return Clip{}, false
	}
	return m.Slides[i], true
}
