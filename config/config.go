// Package config loads the immutable settings handed to every component
// at construction time.
package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Range is an inclusive duration window a random pause is drawn from.
type Range struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// Between is shorthand for building a Range.
func Between(min, max time.Duration) Range {
	return Range{Min: min, Max: max}
}

type Site struct {
	BaseURL string `yaml:"base_url"`
}

type Browser struct {
	Headless       bool          `yaml:"headless"`
	ExecPath       string        `yaml:"exec_path"`
	ProfileDir     string        `yaml:"profile_dir"`
	WorkDir        string        `yaml:"work_dir"`
	UserAgents     []string      `yaml:"user_agents"`
	LaunchAttempts int           `yaml:"launch_attempts"`
	LaunchTimeout  time.Duration `yaml:"launch_timeout"`
	// LockWait bounds how long Acquire waits for a persistent profile
	// held by another session.
	LockWait time.Duration `yaml:"lock_wait"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
	// NavigationsPerMinute paces page loads within one session.
	NavigationsPerMinute float64 `yaml:"navigations_per_minute"`
	WindowWidth          int     `yaml:"window_width"`
	WindowHeight         int     `yaml:"window_height"`
}

// Interaction holds the humanization timings and probabilities.
type Interaction struct {
	Keystroke       Range `yaml:"keystroke"`
	AfterTyping     Range `yaml:"after_typing"`
	FieldFocus      Range `yaml:"field_focus"`
	PointerSettle   Range `yaml:"pointer_settle"`
	LoginPage       Range `yaml:"login_page"`
	BeforeSubmit    Range `yaml:"before_submit"`
	AfterSubmit     Range `yaml:"after_submit"`
	PageSettle      Range `yaml:"page_settle"`
	ScrollStep      Range `yaml:"scroll_step"`
	Reading         Range `yaml:"reading"`
	Idle            Range `yaml:"idle"`
	ResultsGlance   Range `yaml:"results_glance"`
	LaunchSettle    Range `yaml:"launch_settle"`
	LaunchRetry     Range `yaml:"launch_retry"`
	BetweenRequests Range `yaml:"between_requests"`
	BetweenBatches  Range `yaml:"between_batches"`
	FeedWarmUp      Range `yaml:"feed_warm_up"`
	AfterDetour     Range `yaml:"after_detour"`

	ScrollAfterLoad float64 `yaml:"scroll_after_load"`
	ScrollBack      float64 `yaml:"scroll_back"`
	TabToNextField  float64 `yaml:"tab_to_next_field"`
	DetourBrowse    float64 `yaml:"detour_browse"`
}

type Batch struct {
	Size              int           `yaml:"size"`
	ResolutionTimeout time.Duration `yaml:"resolution_timeout"`
}

type Disambiguation struct {
	CandidateLimit  int  `yaml:"candidate_limit"`
	ContainerLevels int  `yaml:"container_levels"`
	StrictDefault   bool `yaml:"strict_default"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type Store struct {
	Path string `yaml:"path"`
}

type Debug struct {
	Dir string `yaml:"dir"`
}

type Server struct {
	Addr        string `yaml:"addr"`
	MaxSessions int    `yaml:"max_sessions"`
}

type Config struct {
	Site           Site           `yaml:"site"`
	Browser        Browser        `yaml:"browser"`
	Interaction    Interaction    `yaml:"interaction"`
	Batch          Batch          `yaml:"batch"`
	Disambiguation Disambiguation `yaml:"disambiguation"`
	Redis          Redis          `yaml:"redis"`
	Store          Store          `yaml:"store"`
	Debug          Debug          `yaml:"debug"`
	Server         Server         `yaml:"server"`
}

// DefaultInteraction mirrors the pacing of a person browsing by hand.
func DefaultInteraction() Interaction {
	return Interaction{
		Keystroke:       Between(50*time.Millisecond, 250*time.Millisecond),
		AfterTyping:     Between(300*time.Millisecond, 700*time.Millisecond),
		FieldFocus:      Between(300*time.Millisecond, 800*time.Millisecond),
		PointerSettle:   Between(100*time.Millisecond, 500*time.Millisecond),
		LoginPage:       Between(2*time.Second, 4*time.Second),
		BeforeSubmit:    Between(500*time.Millisecond, 1200*time.Millisecond),
		AfterSubmit:     Between(3*time.Second, 5*time.Second),
		PageSettle:      Between(2*time.Second, 3500*time.Millisecond),
		ScrollStep:      Between(200*time.Millisecond, time.Second),
		Reading:         Between(time.Second, 2500*time.Millisecond),
		Idle:            Between(1500*time.Millisecond, 4*time.Second),
		ResultsGlance:   Between(1500*time.Millisecond, 3500*time.Millisecond),
		LaunchSettle:    Between(time.Second, 3*time.Second),
		LaunchRetry:     Between(2*time.Second, 5*time.Second),
		BetweenRequests: Between(30*time.Second, 120*time.Second),
		BetweenBatches:  Between(300*time.Second, 600*time.Second),
		FeedWarmUp:      Between(5*time.Second, 15*time.Second),
		AfterDetour:     Between(3*time.Second, 10*time.Second),

		ScrollAfterLoad: 0.7,
		ScrollBack:      0.3,
		TabToNextField:  0.5,
		DetourBrowse:    0.3,
	}
}

// Defaults returns a configuration usable without any file.
func Defaults() Config {
	agents := make([]string, 0, len(ClientProfiles))
	for _, p := range ClientProfiles {
		agents = append(agents, p.UserAgent)
	}
	sort.Strings(agents)

	return Config{
		Site: Site{BaseURL: "https://www.linkedin.com"},
		Browser: Browser{
			Headless:             true,
			UserAgents:           agents,
			LaunchAttempts:       3,
			LaunchTimeout:        45 * time.Second,
			LockWait:             2 * time.Minute,
			NavTimeout:           30 * time.Second,
			NavigationsPerMinute: 12,
			WindowWidth:          1920,
			WindowHeight:         1080,
		},
		Interaction: DefaultInteraction(),
		Batch: Batch{
			Size:              2,
			ResolutionTimeout: 5 * time.Minute,
		},
		Disambiguation: Disambiguation{
			CandidateLimit:  5,
			ContainerLevels: 5,
		},
		Redis: Redis{TTL: 24 * time.Hour},
		Store: Store{Path: "results.db"},
		Debug: Debug{Dir: "debug"},
		Server: Server{
			Addr:        ":8000",
			MaxSessions: 1,
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, eris.Wrapf(err, "read config %s", path)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, eris.Wrapf(err, "parse config %s", path)
		}
	}
	applyEnv(&cfg)
	return cfg, Validate(cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Addr = ":" + v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CHROME_PATH"); v != "" {
		cfg.Browser.ExecPath = v
	}
	if v := os.Getenv("BROWSER_PROFILE_DIR"); v != "" {
		cfg.Browser.ProfileDir = v
	}
	if v := os.Getenv("HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Browser.Headless = b
		}
	}
}

// Validate reports every invalid setting at once.
func Validate(cfg Config) error {
	var errs []string

	if strings.TrimSpace(cfg.Site.BaseURL) == "" {
		errs = append(errs, "site.base_url is required")
	}
	if cfg.Browser.LaunchAttempts < 1 {
		errs = append(errs, "browser.launch_attempts must be >= 1")
	}
	if cfg.Browser.LockWait < 0 {
		errs = append(errs, "browser.lock_wait must be >= 0")
	}
	if cfg.Browser.NavigationsPerMinute < 0 {
		errs = append(errs, "browser.navigations_per_minute must be >= 0")
	}
	if cfg.Batch.Size < 1 {
		errs = append(errs, "batch.size must be >= 1")
	}
	if cfg.Batch.ResolutionTimeout < 0 {
		errs = append(errs, "batch.resolution_timeout must be >= 0")
	}
	if cfg.Disambiguation.CandidateLimit < 1 {
		errs = append(errs, "disambiguation.candidate_limit must be >= 1")
	}
	if cfg.Server.MaxSessions < 1 {
		errs = append(errs, "server.max_sessions must be >= 1")
	}

	for name, r := range cfg.Interaction.ranges() {
		if r.Min < 0 || r.Max < r.Min {
			errs = append(errs, "interaction."+name+" must satisfy 0 <= min <= max")
		}
	}
	for name, p := range map[string]float64{
		"scroll_after_load": cfg.Interaction.ScrollAfterLoad,
		"scroll_back":       cfg.Interaction.ScrollBack,
		"tab_to_next_field": cfg.Interaction.TabToNextField,
		"detour_browse":     cfg.Interaction.DetourBrowse,
	} {
		if p < 0 || p > 1 {
			errs = append(errs, "interaction."+name+" must be within [0,1]")
		}
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return eris.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (i Interaction) ranges() map[string]Range {
	return map[string]Range{
		"keystroke":        i.Keystroke,
		"after_typing":     i.AfterTyping,
		"field_focus":      i.FieldFocus,
		"pointer_settle":   i.PointerSettle,
		"login_page":       i.LoginPage,
		"before_submit":    i.BeforeSubmit,
		"after_submit":     i.AfterSubmit,
		"page_settle":      i.PageSettle,
		"scroll_step":      i.ScrollStep,
		"reading":          i.Reading,
		"idle":             i.Idle,
		"results_glance":   i.ResultsGlance,
		"launch_settle":    i.LaunchSettle,
		"launch_retry":     i.LaunchRetry,
		"between_requests": i.BetweenRequests,
		"between_batches":  i.BetweenBatches,
		"feed_warm_up":     i.FeedWarmUp,
		"after_detour":     i.AfterDetour,
	}
}
