// Package config provides Viper-based configuration loading for the slot machine.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Frontend modes.
const (
	ModeTerminal = "terminal"
	ModeTelnet   = "telnet"
)

// MachineConfig holds the game's dimensions and economics.
type MachineConfig struct {
	Reels     int   `mapstructure:"reels"`
	Rows      int   `mapstructure:"rows"`
	SpinCost  int64 `mapstructure:"spin_cost"`
	WinReward int64 `mapstructure:"win_reward"`
	// WinChanceBP is the win probability in basis points (500 = 5%).
	WinChanceBP int `mapstructure:"win_chance_bp"`
	// StartingBalance is used when no valid balance is stored.
	StartingBalance int64 `mapstructure:"starting_balance"`
	// BalanceKey is the storage key holding the balance.
	BalanceKey string        `mapstructure:"balance_key"`
	RampSteps  int           `mapstructure:"ramp_steps"`
	RampTick   time.Duration `mapstructure:"ramp_tick"`
	// SymbolsFile is an optional YAML symbol table; empty uses the built-in set.
	SymbolsFile string `mapstructure:"symbols_file"`
	// Seed makes every random stream deterministic when non-zero.
	Seed uint64 `mapstructure:"seed"`
}

// AnimationConfig holds the reel animation cadence.
type AnimationConfig struct {
	Stagger    time.Duration `mapstructure:"stagger"`
	Tick       time.Duration `mapstructure:"tick"`
	Window     time.Duration `mapstructure:"window"`
	WindowStep time.Duration `mapstructure:"window_step"`
}

// AssetsConfig locates symbol images and sound cues.
type AssetsConfig struct {
	Dir       string `mapstructure:"dir"`
	SpinSound string `mapstructure:"spin_sound"`
	WinSound  string `mapstructure:"win_sound"`
	// Bell rings the terminal bell for each cue.
	Bell bool `mapstructure:"bell"`
}

// StorageConfig selects where the balance is persisted.
type StorageConfig struct {
	// Backend is one of "memory", "file", "postgres" or "redis".
	Backend string `mapstructure:"backend"`
	// Path is the JSON document used by the file backend.
	Path string `mapstructure:"path"`
	// Timeout bounds each storage operation.
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig locates the PostgreSQL database used by the postgres backend.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN renders d as a postgres:// URL, escaping the credentials.
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	// Addrs is one address for a single node, several for a cluster.
	Addrs        []string      `mapstructure:"addrs"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// KeyPrefix namespaces every key written by the store.
	KeyPrefix string `mapstructure:"key_prefix"`
}

// FrontendConfig selects and tunes the presentation layer.
type FrontendConfig struct {
	// Mode is "terminal" (stdin/stdout) or "telnet".
	Mode string `mapstructure:"mode"`
	// Locale drives digit grouping of the balance, e.g. "en-US" or "id-ID".
	Locale string `mapstructure:"locale"`
	// Currency is the prefix shown before amounts.
	Currency string `mapstructure:"currency"`
	// Color enables ANSI colours.
	Color bool `mapstructure:"color"`
}

// TelnetConfig tunes the remote-player frontend.
type TelnetConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout disconnects a player idle at the prompt this long.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// MaxSessions caps concurrent players; the machine has a single balance.
	MaxSessions int `mapstructure:"max_sessions"`
}

// Addr returns the listen address in host:port form.
func (t TelnetConfig) Addr() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
	// Console writes logs to stderr. Disable it when the terminal frontend owns the screen.
	Console bool `mapstructure:"console"`
	// File, when set, receives logs through a rotating writer.
	File string `mapstructure:"file"`
	// MaxSizeMB is the size at which the log file rotates.
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of rotated files kept.
	MaxBackups int `mapstructure:"max_backups"`
	// MaxAgeDays is how long rotated files are kept.
	MaxAgeDays int `mapstructure:"max_age_days"`
}

// MetricsConfig holds the Prometheus endpoint settings.
type MetricsConfig struct {
	// Addr is the listen address; empty disables the endpoint.
	Addr string `mapstructure:"addr"`
	Path string `mapstructure:"path"`
}

// Config is the top-level application configuration.
type Config struct {
	Machine   MachineConfig   `mapstructure:"machine"`
	Animation AnimationConfig `mapstructure:"animation"`
	Assets    AssetsConfig    `mapstructure:"assets"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Frontend  FrontendConfig  `mapstructure:"frontend"`
	Telnet    TelnetConfig    `mapstructure:"telnet"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate checks all configuration invariants. Database, Redis and Telnet
// settings are only checked when the selected backend or mode uses them.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var p problems

	check := func(err error) {
		if err != nil {
			p = append(p, err.Error())
		}
	}
	check(validateMachine(c.Machine))
	check(validateAnimation(c.Animation))
	check(validateStorage(c.Storage))
	if c.Storage.Backend == BackendPostgres {
		check(validateDatabase(c.Database))
	}
	if c.Storage.Backend == BackendRedis {
		check(validateRedis(c.Redis))
	}
	check(validateFrontend(c.Frontend))
	if c.Frontend.Mode == ModeTelnet {
		check(validateTelnet(c.Telnet))
	}
	check(validateLogging(c.Logging))

	if err := p.err(); err != nil {
		return fmt.Errorf("invalid slot configuration: %w", err)
	}
	return nil
}

// problems collects every violation found in one section.
type problems []string

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Sprintf(format, args...))
}

func (p problems) err() error {
	if len(p) == 0 {
		return nil
	}
	return errors.New(strings.Join(p, "; "))
}

func validateMachine(m MachineConfig) error {
	var p problems
	if m.Reels < 1 {
		p.addf("machine.reels must be >= 1, got %d", m.Reels)
	}
	if m.Rows < 1 {
		p.addf("machine.rows must be >= 1, got %d", m.Rows)
	}
	if m.SpinCost < 0 {
		p.addf("machine.spin_cost must be >= 0, got %d", m.SpinCost)
	}
	if m.WinReward < 0 {
		p.addf("machine.win_reward must be >= 0, got %d", m.WinReward)
	}
	if m.WinChanceBP < 0 || m.WinChanceBP > 10000 {
		p.addf("machine.win_chance_bp must be 0-10000, got %d", m.WinChanceBP)
	}
	if m.StartingBalance < 0 {
		p.addf("machine.starting_balance must be >= 0, got %d", m.StartingBalance)
	}
	if m.BalanceKey == "" {
		p.addf("machine.balance_key must not be empty")
	}
	if m.RampSteps < 1 {
		p.addf("machine.ramp_steps must be >= 1, got %d", m.RampSteps)
	}
	if m.RampTick <= 0 {
		p.addf("machine.ramp_tick must be positive")
	}
	return p.err()
}

func validateAnimation(a AnimationConfig) error {
	var p problems
	if a.Tick <= 0 {
		p.addf("animation.tick must be positive")
	}
	if a.Stagger < 0 {
		p.addf("animation.stagger must not be negative")
	}
	if a.Window < 0 {
		p.addf("animation.window must not be negative")
	}
	if a.WindowStep < 0 {
		p.addf("animation.window_step must not be negative")
	}
	return p.err()
}

func validateStorage(s StorageConfig) error {
	validBackends := map[string]bool{BackendMemory: true, BackendFile: true, BackendPostgres: true, BackendRedis: true}
	if !validBackends[s.Backend] {
		return fmt.Errorf("storage.backend must be one of [memory, file, postgres, redis], got %q", s.Backend)
	}
	if s.Backend == BackendFile && s.Path == "" {
		return errors.New("storage.path must not be empty for the file backend")
	}
	if s.Timeout <= 0 {
		return errors.New("storage.timeout must be positive")
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var p problems
	if d.Host == "" {
		p.addf("database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		p.addf("database.port must be 1-65535, got %d", d.Port)
	}
	if d.User == "" {
		p.addf("database.user must not be empty")
	}
	if d.Name == "" {
		p.addf("database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		p.addf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode)
	}
	if d.MaxConns < 1 {
		p.addf("database.max_conns must be >= 1, got %d", d.MaxConns)
	}
	if d.MinConns < 0 {
		p.addf("database.min_conns must be >= 0, got %d", d.MinConns)
	}
	if d.MinConns > d.MaxConns {
		p.addf("database.min_conns must not exceed database.max_conns")
	}
	return p.err()
}

func validateRedis(r RedisConfig) error {
	var p problems
	if len(r.Addrs) == 0 {
		p.addf("redis.addrs must not be empty")
	}
	for _, addr := range r.Addrs {
		if addr == "" {
			p.addf("redis.addrs must not contain empty addresses")
			break
		}
	}
	if r.DB < 0 {
		p.addf("redis.db must be >= 0, got %d", r.DB)
	}
	return p.err()
}

func validateFrontend(f FrontendConfig) error {
	if f.Mode != ModeTerminal && f.Mode != ModeTelnet {
		return fmt.Errorf("frontend.mode must be one of [terminal, telnet], got %q", f.Mode)
	}
	if f.Locale == "" {
		return errors.New("frontend.locale must not be empty")
	}
	return nil
}

func validateTelnet(t TelnetConfig) error {
	var p problems
	if t.Port < 1 || t.Port > 65535 {
		p.addf("telnet.port must be 1-65535, got %d", t.Port)
	}
	if t.ReadTimeout < 0 {
		p.addf("telnet.read_timeout must not be negative")
	}
	if t.WriteTimeout < 0 {
		p.addf("telnet.write_timeout must not be negative")
	}
	if t.MaxSessions < 1 {
		p.addf("telnet.max_sessions must be >= 1, got %d", t.MaxSessions)
	}
	return p.err()
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	if l.File != "" && (l.MaxSizeMB < 1 || l.MaxBackups < 0 || l.MaxAgeDays < 0) {
		return errors.New("logging rotation requires max_size_mb >= 1 and non-negative max_backups and max_age_days")
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path uses defaults and the
// environment only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with SLOT_ prefix
	v.SetEnvPrefix("SLOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("machine.reels", 6)
	v.SetDefault("machine.rows", 5)
	v.SetDefault("machine.spin_cost", 10000)
	v.SetDefault("machine.win_reward", 50000)
	v.SetDefault("machine.win_chance_bp", 500)
	v.SetDefault("machine.starting_balance", 90000)
	v.SetDefault("machine.balance_key", "slot_balance")
	v.SetDefault("machine.ramp_steps", 25)
	v.SetDefault("machine.ramp_tick", "40ms")
	v.SetDefault("machine.symbols_file", "")
	v.SetDefault("machine.seed", 0)

	v.SetDefault("animation.stagger", "150ms")
	v.SetDefault("animation.tick", "80ms")
	v.SetDefault("animation.window", "600ms")
	v.SetDefault("animation.window_step", "180ms")

	v.SetDefault("assets.dir", "assets")
	v.SetDefault("assets.spin_sound", "spin.mp3")
	v.SetDefault("assets.win_sound", "win.mp3")
	v.SetDefault("assets.bell", true)

	v.SetDefault("storage.backend", BackendFile)
	v.SetDefault("storage.path", "data/balance.json")
	v.SetDefault("storage.timeout", "5s")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "slot")
	v.SetDefault("database.password", "slot")
	v.SetDefault("database.name", "slot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.addrs", []string{"localhost:6379"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.key_prefix", "slot:")

	v.SetDefault("frontend.mode", ModeTerminal)
	v.SetDefault("frontend.locale", "en-US")
	v.SetDefault("frontend.currency", "Rp")
	v.SetDefault("frontend.color", true)

	v.SetDefault("telnet.host", "0.0.0.0")
	v.SetDefault("telnet.port", 4000)
	v.SetDefault("telnet.read_timeout", "5m")
	v.SetDefault("telnet.write_timeout", "30s")
	v.SetDefault("telnet.max_sessions", 1)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", "logs/slot.log")
	v.SetDefault("logging.max_size_mb", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 7)

	v.SetDefault("metrics.addr", "")
	v.SetDefault("metrics.path", "/metrics")
}
