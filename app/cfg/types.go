package cfg

type Cfg struct {
	// Server configuration
	Host     string
	Port     string
	CertFile string
	KeyFile  string

	// Default profile
	FeedURL              string
	NativeCountry        string
	PublishCountries     *string
	ExcludedCountries    *string
	Language             string
	PublishDurationWeeks *int
	DefaultCategory      string
	ExtractContent       bool

	// Application configuration
	ProfilesDir string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) Addr() string {
	return c.Host + ":" + c.Port
}

func (c *Cfg) TLSEnabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}
