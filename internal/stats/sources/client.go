// Package sources implements the tracked item variants on top of their
// upstream HTTP APIs.
package sources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"rankbot/internal/config"
	"rankbot/internal/stats"
)

const (
	defaultSteamBase     = "https://api.steampowered.com"
	defaultOpenDotaBase  = "https://api.opendota.com"
	defaultRiotBaseFmt   = "https://%s.api.riotgames.com"
	defaultOsuBase       = "https://osu.ppy.sh"
	defaultOverwatchBase = "https://owapi.net"

	maxBody   = 1 << 20
	userAgent = "rankbot/1.0 (+https://github.com/rankbot)"
)

var ErrInvalidJSON = errors.New("upstream returned invalid json")

// Client is the shared HTTP client of every source.
type Client struct {
	http *http.Client
	cfg  config.SourcesConfig
	now  func() time.Time
}

func NewClient(cfg config.SourcesConfig, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	return &Client{
		http: &http.Client{Timeout: timeout},
		cfg:  cfg,
		now:  time.Now,
	}
}

func (c *Client) getJSON(ctx context.Context, rawURL string, hdr http.Header) (gjson.Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return gjson.Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("get %s: %w", redact(rawURL), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return gjson.Result{}, fmt.Errorf("read %s: %w", redact(rawURL), err)
	}
	if resp.StatusCode >= 400 {
		return gjson.Result{}, &stats.HTTPError{Status: resp.StatusCode, Body: string(body), URL: redact(rawURL)}
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w from %s", ErrInvalidJSON, redact(rawURL))
	}
	return gjson.ParseBytes(body), nil
}

// redact drops the query string, where API keys travel.
func redact(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i]
	}
	return rawURL
}

func base(v, def string) string {
	v = strings.TrimRight(strings.TrimSpace(v), "/")
	if v == "" {
		return def
	}
	return v
}
