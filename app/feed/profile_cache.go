package feed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

const MaxPublishDurationWeeks = 255

type ProfileCache struct {
	profilesDir string
	cache       map[string]*Profile
	mu          sync.RWMutex
}

func NewProfileCache(profilesDir string) *ProfileCache {
	return &ProfileCache{
		profilesDir: profilesDir,
		cache:       make(map[string]*Profile),
	}
}

func (pc *ProfileCache) Run() error {
	if pc.profilesDir == "" {
		return nil
	}
	if _, err := os.Stat(pc.profilesDir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(pc.profilesDir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		profile, err := pc.LoadProfile(name)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Profile loaded", "profile", name, "url", profile.URL, "native_country", profile.NativeCountry)
	}

	return nil
}

func (pc *ProfileCache) LoadProfile(name string) (*Profile, error) {
	profileFile := pc.getProfileFilePath(name)
	profile, err := pc.parseProfile(profileFile)
	if err != nil {
		return nil, err
	}

	profile.Name = name

	if err := ValidateProfile(profile); err != nil {
		return nil, fmt.Errorf("invalid profile %s: %w", profileFile, err)
	}

	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.cache[profile.Name] = profile

	return profile, nil
}

func (pc *ProfileCache) GetProfile(name string) (*Profile, error) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profile, ok := pc.cache[name]
	if !ok {
		return nil, fmt.Errorf("profile with name '%s' not found", name)
	}
	return profile, nil
}

// GetProfiles returns the loaded profiles sorted by name.
func (pc *ProfileCache) GetProfiles() []*Profile {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	profiles := make([]*Profile, 0, len(pc.cache))
	for _, v := range pc.cache {
		profiles = append(profiles, v)
	}
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Name < profiles[j].Name
	})
	return profiles
}

func (pc *ProfileCache) GetProfileCount() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return len(pc.cache)
}

func (pc *ProfileCache) parseProfile(profileFile string) (*Profile, error) {
	data, err := os.ReadFile(profileFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var profile Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &profile, nil
}

// ValidateProfile checks the fields every transformation depends on.
func ValidateProfile(profile *Profile) error {
	if profile == nil {
		return fmt.Errorf("profile is nil")
	}

	requiredFields := []struct {
		name  string
		value string
	}{
		{"profile name", profile.Name},
		{"feed URL", profile.URL},
		{"native country", profile.NativeCountry},
	}

	for _, field := range requiredFields {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s is required", field.name)
		}
	}

	if weeks := profile.PublishDurationWeeks; weeks != nil {
		if *weeks < 0 || *weeks > MaxPublishDurationWeeks {
			return fmt.Errorf("publish duration must be between 0 and %d weeks, got %d", MaxPublishDurationWeeks, *weeks)
		}
	}

	if profile.Language != "" {
		// Well-formed but unregistered codes are accepted
		var unknown language.ValueError
		if _, err := language.ParseBase(profile.Language); err != nil && !errors.As(err, &unknown) {
			return fmt.Errorf("invalid language %q: %w", profile.Language, err)
		}
	}

	return nil
}

func (pc *ProfileCache) getProfileFilePath(name string) string {
	return filepath.Join(pc.profilesDir, name+".yml")
}
