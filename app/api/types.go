package api

import (
	"context"

	"github.com/lysyi3m/wp2line/app/feed"
	"github.com/lysyi3m/wp2line/app/health"
	"github.com/lysyi3m/wp2line/app/linetoday"
)

type FetcherInterface interface {
	Fetch(ctx context.Context, url string) (*feed.Channel, error)
}

type ExtractorInterface interface {
	FillMissing(ctx context.Context, channel *feed.Channel) *feed.Channel
}

type TransformerInterface interface {
	Run(channel *feed.Channel, profile *feed.Profile) (*linetoday.Result, error)
}

type ProberInterface interface {
	Probe(ctx context.Context, url string) (*health.Report, error)
}

var (
	_ FetcherInterface     = (*feed.Fetcher)(nil)
	_ ExtractorInterface   = (*feed.ContentExtractor)(nil)
	_ TransformerInterface = (*linetoday.Transformer)(nil)
	_ ProberInterface      = (*health.Prober)(nil)
)

type Handler struct {
	fetcher        FetcherInterface
	extractor      ExtractorInterface
	transformer    TransformerInterface
	prober         ProberInterface
	profileCache   *feed.ProfileCache
	defaultProfile *feed.Profile
	metrics        *Metrics
}
