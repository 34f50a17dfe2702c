package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
)

const RSSContentType = "application/rss+xml"

type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
	}
}

// Fetch retrieves url and parses it into a Channel. The response is
// validated before the body is read: anything but a 200 is
// ErrUpstreamUnavailable, anything but application/rss+xml is
// ErrInvalidContentType.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Channel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", RSSContentType)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected response code %d from %s", ErrUpstreamUnavailable, resp.StatusCode, url)
	}

	contentType := MediaType(resp.Header.Get("Content-Type"))
	if contentType != RSSContentType {
		return nil, fmt.Errorf("%w: unexpected response type %q from %s", ErrInvalidContentType, contentType, url)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", ErrUpstreamUnavailable, err)
	}

	channel, err := f.parser.Run(data)
	if err != nil {
		return nil, err
	}

	slog.Debug("Feed fetched", "url", url, "title", channel.Title, "items", len(channel.Items))

	return channel, nil
}

// MediaType strips parameters such as charset from a Content-Type value
// and lowercases the result.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
		return strings.ToLower(strings.TrimSpace(mt))
	}
	return mt
}
