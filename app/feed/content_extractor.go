package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	nurl "net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

type ContentExtractor struct {
	httpClient *http.Client
	userAgent  string
}

func NewContentExtractor(httpClient *http.Client, userAgent string) *ContentExtractor {
	return &ContentExtractor{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

func (e *ContentExtractor) Run(data []byte, pageURL *nurl.URL) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	article, err := readability.FromReader(strings.NewReader(string(data)), pageURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.Content))

	return article.Content, nil
}

// FillMissing returns a copy of channel in which every item that has a link
// but neither content nor description carries the readable content of its
// article page. Items that cannot be extracted are left untouched.
func (e *ContentExtractor) FillMissing(ctx context.Context, channel *Channel) *Channel {
	filled := *channel
	filled.Items = make([]Item, len(channel.Items))
	copy(filled.Items, channel.Items)

	successCount := 0
	errorCount := 0

	for i := range filled.Items {
		item := &filled.Items[i]
		if item.Content != "" || item.Description != "" || item.Link == "" {
			continue
		}

		if ctx.Err() != nil {
			break
		}

		content, err := e.extractItem(ctx, item.Link)
		if err != nil {
			slog.Warn("Failed to extract content for item", "index", i, "url", item.Link, "error", err)
			errorCount++
			continue
		}

		item.Content = content
		successCount++
	}

	if successCount > 0 || errorCount > 0 {
		slog.Debug("Content extraction completed", "feed", channel.Title, "success", successCount, "errors", errorCount)
	}

	return &filled
}

func (e *ContentExtractor) extractItem(ctx context.Context, link string) (string, error) {
	pageURL, err := nurl.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}

	data, err := e.fetchArticle(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch article content: %w", err)
	}

	return e.Run(data, pageURL)
}

func (e *ContentExtractor) fetchArticle(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	contentType := MediaType(resp.Header.Get("Content-Type"))
	if contentType != "text/html" {
		return nil, fmt.Errorf("content type is not HTML: %s", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
