package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPrefix is used when command_prefix is absent from the file.
const DefaultPrefix = "!"

// Config holds all bot configuration
type Config struct {
	Nick       string   `yaml:"nick"`
	NickPass   string   `yaml:"nick_pass"`
	Alternate  string   `yaml:"alternate"`
	Server     string   `yaml:"server"`
	Port       int      `yaml:"port"`
	ServerPass string   `yaml:"server_pass"`
	IRCName    string   `yaml:"irc_name"`
	Username   string   `yaml:"username"`
	UseTLS     bool     `yaml:"use_tls"`
	OperNick   string   `yaml:"oper_nick"`
	OperPass   string   `yaml:"oper_pass"`
	AdminPass  string   `yaml:"admin_pass"`
	DataDir    string   `yaml:"data_dir"`
	Channels   []string `yaml:"channels"`
	UserModes  []string `yaml:"user_modes"`

	// Prefix is a pointer so an explicit empty string ("no prefix required")
	// can be told apart from an absent key.
	Prefix           *string  `yaml:"command_prefix"`
	Ticks            int      `yaml:"ticks"`
	DisabledCommands []string `yaml:"disabled_commands"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
	HTTPAddr string `yaml:"http_addr"`
	Pprof    bool   `yaml:"pprof"`

	SendRate  float64       `yaml:"send_rate"`
	SendBurst int           `yaml:"send_burst"`
	WhoisTTL  time.Duration `yaml:"whois_ttl"`

	Timers []Timer `yaml:"timers"`
}

// Timer is a message registered with the scheduler at startup.
type Timer struct {
	Every     time.Duration `yaml:"every"`
	At        time.Time     `yaml:"at"`
	Immediate bool          `yaml:"immediate"`
	Count     int           `yaml:"count"`
	Target    string        `yaml:"target"`
	Message   string        `yaml:"message"`
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.Port == 0 {
		c.Port = 6667
	}
	if c.Username == "" {
		c.Username = c.Nick
	}
	if c.IRCName == "" {
		c.IRCName = c.Nick
	}
	if c.Prefix == nil {
		p := DefaultPrefix
		c.Prefix = &p
	}
	if c.Ticks == 0 {
		c.Ticks = 10
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.SendRate == 0 {
		c.SendRate = 2
	}
	if c.SendBurst == 0 {
		c.SendBurst = 4
	}
	if c.WhoisTTL == 0 {
		c.WhoisTTL = 10 * time.Minute
	}
}

func (c *Config) validate() error {
	var errs []error
	if c.Nick == "" {
		errs = append(errs, errors.New("nick is required"))
	}
	if c.Server == "" {
		errs = append(errs, errors.New("server is required"))
	}
	if c.Ticks < 0 {
		errs = append(errs, fmt.Errorf("ticks must be positive, got %d", c.Ticks))
	} else if c.Ticks > 0 && c.TickInterval() <= 0 {
		errs = append(errs, fmt.Errorf("ticks must be at most %d, got %d", int(time.Second), c.Ticks))
	}
	if c.SendRate < 0 {
		errs = append(errs, fmt.Errorf("send_rate must be positive, got %v", c.SendRate))
	}
	for i, t := range c.Timers {
		if t.Every <= 0 && t.At.IsZero() {
			errs = append(errs, fmt.Errorf("timers[%d]: one of every or at is required", i))
		}
		if t.Target == "" || t.Message == "" {
			errs = append(errs, fmt.Errorf("timers[%d]: target and message are required", i))
		}
	}
	return errors.Join(errs...)
}

// CommandPrefix is the text chat commands must start with. Empty means
// commands are matched without a prefix.
func (c *Config) CommandPrefix() string {
	if c.Prefix == nil {
		return DefaultPrefix
	}
	return *c.Prefix
}

// Disabled reports whether a handler id was switched off, either by its own
// id ("builtin.links") or by one of its dotted parents ("builtin").
func (c *Config) Disabled(id string) bool {
	for _, d := range c.DisabledCommands {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if id == d || strings.HasPrefix(id, d+".") {
			return true
		}
	}
	return false
}

// TickInterval is the sleep between two iterations of the dispatch loop.
func (c *Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.Ticks)
}
