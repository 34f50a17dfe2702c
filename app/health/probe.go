// Package health reports on the reachability of an upstream feed.
package health

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lysyi3m/wp2line/app/feed"
)

type Report struct {
	URL          string `json:"url"`
	ResponseCode int    `json:"response_code"`
	ResponseType string `json:"response_type"`
	ResponseTime int64  `json:"response_time"` // milliseconds
	Health       bool   `json:"health"`
	Error        string `json:"error,omitempty"`
}

type Prober struct {
	httpClient *http.Client
	userAgent  string
}

func NewProber(httpClient *http.Client, userAgent string) *Prober {
	return &Prober{
		httpClient: httpClient,
		userAgent:  userAgent,
	}
}

// Probe times a HEAD request to url. The upstream is healthy when it answers
// with anything below 400. A transport failure is returned together with a
// report carrying the elapsed time and Health=false.
func (p *Prober) Probe(ctx context.Context, url string) (*Report, error) {
	report := &Report{URL: url}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)

	start := time.Now()
	resp, err := p.httpClient.Do(req)
	report.ResponseTime = time.Since(start).Milliseconds()
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("failed to probe %s: %w", url, err)
	}
	defer resp.Body.Close()

	report.ResponseCode = resp.StatusCode
	report.ResponseType = feed.MediaType(resp.Header.Get("Content-Type"))
	report.Health = resp.StatusCode/100 < 4

	return report, nil
}
