package feed

import (
	"time"
)

// Feed model types

// Channel is an upstream RSS channel as parsed from the wire. Optional
// string fields are empty when the element was absent.
type Channel struct {
	Title         string
	Link          string
	Language      string
	LastBuildDate string // raw RFC-2822 value, unparsed
	Items         []Item
}

type Item struct {
	Title       string
	Link        string
	Author      string
	PubDate     string // raw RFC-2822 value, unparsed
	Content     string // content:encoded
	Description string
	Categories  []string
}

// Profile types

const DefaultPublishDurationWeeks = 144

// Profile is the per-request transformation configuration. Pointer fields
// distinguish an explicitly empty value from an absent one.
type Profile struct {
	Name                 string  // Derived from filename (without .yml extension)
	URL                  string  `yaml:"url"`
	NativeCountry        string  `yaml:"native_country"`
	PublishCountries     *string `yaml:"publish_countries"`
	ExcludedCountries    *string `yaml:"excluded_countries"`
	Language             string  `yaml:"language"`
	PublishDurationWeeks *int    `yaml:"publish_duration_weeks"`
	DefaultCategory      string  `yaml:"default_category"`
	ExtractContent       bool    `yaml:"extract_content"`
}

func (p *Profile) PublishDuration() time.Duration {
	weeks := DefaultPublishDurationWeeks
	if p.PublishDurationWeeks != nil {
		weeks = *p.PublishDurationWeeks
	}
	return time.Duration(weeks) * 7 * 24 * time.Hour
}
