package cfg

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/lysyi3m/wp2line/app/feed"
)

// Version is set at build time via -ldflags
var Version = "dev"

var ErrConfigurationMissing = errors.New("configuration missing")

const DefaultProfileName = "line"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Server configuration
	Host     string `long:"host" env:"HOST" default:"0.0.0.0" description:"HTTP server host"`
	Port     string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	CertFile string `long:"cert-file" env:"CERT_FILE" description:"TLS certificate file (TLS is enabled when both cert and key are set)"`
	KeyFile  string `long:"key-file" env:"KEY_FILE" description:"TLS private key file"`

	// Default profile
	FeedURL              string  `long:"feed-url" env:"WP_FEED_URL" description:"Upstream RSS feed URL (required)" required:"true"`
	NativeCountry        string  `long:"native-country" env:"LINE_NATIVE_COUNTRY" description:"Native country code of the articles (required)" required:"true"`
	PublishCountries     *string `long:"publish-countries" env:"LINE_PUB_TO_COUNTRY" description:"Comma separated country codes to publish to"`
	ExcludedCountries    *string `long:"excluded-countries" env:"LINE_EXCL_FROM_COUNTRY" description:"Comma separated country codes to exclude"`
	Language             string  `long:"language" env:"LINE_LANG" description:"Article language override (two letter code)"`
	PublishDurationWeeks *int    `long:"publish-weeks" env:"PUBLISH_DURATION_IN_WEEKS" description:"Publish duration in weeks (default 144)"`
	DefaultCategory      string  `long:"default-category" env:"LINE_DEFAULT_CATEGORY" description:"Category for items without one (items are skipped when unset)"`
	ExtractContent       bool    `long:"extract-content" env:"EXTRACT_CONTENT" description:"Extract article pages for items without content"`

	// Application configuration
	ProfilesDir string `long:"profiles-dir" env:"PROFILES_DIR" default:"./profiles" description:"Directory containing additional feed profiles"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Asia/Taipei)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

func Load() (*Cfg, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs parses args and the environment. It returns nil, nil when help
// was requested.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			switch flagsErr.Type {
			case flags.ErrHelp:
				return nil, nil
			case flags.ErrRequired:
				return nil, fmt.Errorf("%w: %w", ErrConfigurationMissing, err)
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	version := GetVersion()

	cfg := &Cfg{
		Host:                 raw.Host,
		Port:                 raw.Port,
		CertFile:             raw.CertFile,
		KeyFile:              raw.KeyFile,
		FeedURL:              raw.FeedURL,
		NativeCountry:        raw.NativeCountry,
		PublishCountries:     raw.PublishCountries,
		ExcludedCountries:    raw.ExcludedCountries,
		Language:             raw.Language,
		PublishDurationWeeks: raw.PublishDurationWeeks,
		DefaultCategory:      raw.DefaultCategory,
		ExtractContent:       raw.ExtractContent,
		ProfilesDir:          raw.ProfilesDir,
		UserAgent:            cmp.Or(raw.UserAgent, "wp2line/"+version),
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              version,
	}

	if cfg.FeedURL == "" || cfg.NativeCountry == "" {
		return nil, fmt.Errorf("%w: feed URL and native country must not be empty", ErrConfigurationMissing)
	}

	if err := feed.ValidateProfile(cfg.DefaultProfile()); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

// DefaultProfile is the profile served at /line.xml.
func (c *Cfg) DefaultProfile() *feed.Profile {
	return &feed.Profile{
		Name:                 DefaultProfileName,
		URL:                  c.FeedURL,
		NativeCountry:        c.NativeCountry,
		PublishCountries:     c.PublishCountries,
		ExcludedCountries:    c.ExcludedCountries,
		Language:             c.Language,
		PublishDurationWeeks: c.PublishDurationWeeks,
		DefaultCategory:      c.DefaultCategory,
		ExtractContent:       c.ExtractContent,
	}
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
