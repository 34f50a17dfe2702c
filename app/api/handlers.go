package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/wp2line/app/feed"
	"github.com/lysyi3m/wp2line/app/linetoday"
	"github.com/samber/lo"
)

// statusClientClosedRequest is logged and counted when the client goes away
// before the upstream answered.
const statusClientClosedRequest = 499

func NewHandler(fetcher FetcherInterface, extractor ExtractorInterface, transformer TransformerInterface,
	prober ProberInterface, profileCache *feed.ProfileCache, defaultProfile *feed.Profile,
	metrics *Metrics) *Handler {
	return &Handler{
		fetcher:        fetcher,
		extractor:      extractor,
		transformer:    transformer,
		prober:         prober,
		profileCache:   profileCache,
		defaultProfile: defaultProfile,
		metrics:        metrics,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	c.String(http.StatusOK, "pong")
}

func (h *Handler) GetHealth(c *gin.Context) {
	report, err := h.prober.Probe(c.Request.Context(), h.defaultProfile.URL)
	if err != nil {
		requestLogger(c).Error("Health probe failed", "url", h.defaultProfile.URL, "error", err)
		c.JSON(http.StatusServiceUnavailable, report)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *Handler) GetLineFeed(c *gin.Context) {
	h.serveProfile(c, h.defaultProfile)
}

func (h *Handler) GetProfileFeed(c *gin.Context) {
	name := strings.TrimSuffix(c.Param("name"), ".xml")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	profile, err := h.profileCache.GetProfile(name)
	if err != nil {
		requestLogger(c).Error("Profile not found", "feed", name, "error", err)
		c.Status(http.StatusNotFound)
		return
	}

	h.serveProfile(c, profile)
}

func (h *Handler) serveProfile(c *gin.Context, profile *feed.Profile) {
	ctx := c.Request.Context()
	logger := requestLogger(c).With("feed", profile.Name)

	start := time.Now()
	channel, err := h.fetcher.Fetch(ctx, profile.URL)
	h.metrics.ObserveFetch(profile.Name, time.Since(start))
	if err != nil {
		h.abortWithError(c, logger, profile, err)
		return
	}

	if profile.ExtractContent {
		channel = h.extractor.FillMissing(ctx, channel)
	}

	result, err := h.transformer.Run(channel, profile)
	if err != nil {
		h.abortWithError(c, logger, profile, err)
		return
	}

	for _, skipped := range result.Skipped {
		logger.Warn("Article skipped", "index", skipped.Index, "link", skipped.Link, "error", skipped.Err)
	}
	h.metrics.ObserveSkipped(profile.Name, len(result.Skipped))
	h.metrics.ObserveRequest(profile.Name, outcomeOK)

	logger.Debug("Feed transformed", "articles", result.Articles, "skipped", len(result.Skipped), "duration", time.Since(start))

	c.Header("X-Feed-Articles", strconv.Itoa(result.Articles))
	c.Header("X-Feed-Skipped", strconv.Itoa(len(result.Skipped)))
	c.Header("X-Feed-Name", profile.Name)

	c.Data(http.StatusOK, linetoday.ContentType+"; charset=utf-8", result.Document)
}

func (h *Handler) abortWithError(c *gin.Context, logger *slog.Logger, profile *feed.Profile, err error) {
	if errors.Is(err, context.Canceled) && c.Request.Context().Err() != nil {
		logger.Debug("Request canceled by client", "url", profile.URL)
		h.metrics.ObserveRequest(profile.Name, outcomeCanceled)
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}

	status := statusForError(err)
	if status == http.StatusBadGateway {
		h.metrics.ObserveRequest(profile.Name, outcomeUpstream)
	} else {
		h.metrics.ObserveRequest(profile.Name, outcomeInternal)
	}

	logger.Error("Feed generation error", "url", profile.URL, "status", status, "error", err)
	c.AbortWithStatus(status)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, feed.ErrUpstreamUnavailable),
		errors.Is(err, feed.ErrInvalidContentType),
		errors.Is(err, feed.ErrFeedParse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) APIListProfiles(c *gin.Context) {
	profiles := append([]*feed.Profile{h.defaultProfile}, h.profileCache.GetProfiles()...)

	c.JSON(http.StatusOK, gin.H{
		"profiles": lo.Map(profiles, func(p *feed.Profile, _ int) gin.H {
			return profileInfo(p, p == h.defaultProfile)
		}),
		"total": len(profiles),
	})
}

func (h *Handler) APIReloadProfile(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing profile name parameter"})
		return
	}

	if name == h.defaultProfile.Name {
		c.JSON(http.StatusBadRequest, gin.H{"error": "The default profile is configured through the environment"})
		return
	}

	if _, err := h.profileCache.GetProfile(name); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Profile not found"})
		return
	}

	profile, err := h.profileCache.LoadProfile(name)
	if err != nil {
		requestLogger(c).Error("Error reloading profile", "feed", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to reload profile",
			"details": err.Error(),
		})
		return
	}

	requestLogger(c).Info("Profile reloaded", "feed", name)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"profile": profileInfo(profile, false),
	})
}

func profileInfo(p *feed.Profile, isDefault bool) gin.H {
	info := gin.H{
		"name":             p.Name,
		"url":              p.URL,
		"native_country":   p.NativeCountry,
		"language":         p.Language,
		"publish_duration": p.PublishDuration().String(),
		"default_category": p.DefaultCategory,
		"extract_content":  p.ExtractContent,
		"default":          isDefault,
	}
	if p.PublishCountries != nil {
		info["publish_countries"] = *p.PublishCountries
	}
	if p.ExcludedCountries != nil {
		info["excluded_countries"] = *p.ExcludedCountries
	}
	if isDefault {
		info["path"] = "/line.xml"
	} else {
		info["path"] = "/feeds/" + p.Name + ".xml"
	}
	return info
}
