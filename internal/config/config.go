package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrProfileNotFound is returned when the requested profile is not in the file.
var ErrProfileNotFound = errors.New("configuration profile not found")

const (
	Inherited       = "inherited"
	ProfileSpecific = "profile-specific"
)

// RootConfig is the on-disk layout: a set of named profiles and the one in use.
type RootConfig struct {
	ActiveConfig string                    `mapstructure:"active_config" yaml:"active_config"`
	Configs      map[string]*ConfigProfile `mapstructure:"configs" yaml:"configs"`
}

// ConfigProfile is one named profile. Unset fields fall back to the default
// profile, then to built-in defaults.
type ConfigProfile struct {
	Catalog string       `mapstructure:"catalog" yaml:"catalog,omitempty"`
	Audio   AudioConfig  `mapstructure:"audio" yaml:"audio,omitempty"`
	Fetch   FetchConfig  `mapstructure:"fetch" yaml:"fetch,omitempty"`
	Server  ServerConfig `mapstructure:"server" yaml:"server,omitempty"`
	Quiz    QuizConfig   `mapstructure:"quiz" yaml:"quiz,omitempty"`
}

// Config is the resolved configuration used by the application.
type Config struct {
	Profile string       `mapstructure:"-" yaml:"profile"`
	Catalog string       `mapstructure:"catalog" yaml:"catalog"`
	Audio   AudioConfig  `mapstructure:"audio" yaml:"audio"`
	Fetch   FetchConfig  `mapstructure:"fetch" yaml:"fetch"`
	Server  ServerConfig `mapstructure:"server" yaml:"server"`
	Quiz    QuizConfig   `mapstructure:"quiz" yaml:"quiz"`

	// Internal field to track inheritance information for info command
	Inheritance *InheritanceInfo `mapstructure:"-" yaml:"-"`
}

type InheritanceInfo struct {
	Catalog string
	Audio   struct {
		Backend         string
		SampleRate      string
		BufferMs        string
		InitialVolume   string
		ResampleQuality string
	}
	Fetch struct {
		TimeoutMs string
	}
	Server struct {
		Port string
	}
	Quiz struct {
		RevealDelayMs string
		Debug         string
	}
}

type AudioConfig struct {
	Backend         string   `mapstructure:"backend" yaml:"backend,omitempty"` // "auto", "speaker", "oto", "portaudio"
	SampleRate      int      `mapstructure:"sample_rate" yaml:"sample_rate,omitempty"`
	BufferMs        int      `mapstructure:"buffer_ms" yaml:"buffer_ms,omitempty"`
	InitialVolume   *float64 `mapstructure:"initial_volume" yaml:"initial_volume,omitempty"`
	ResampleQuality int      `mapstructure:"resample_quality" yaml:"resample_quality,omitempty"`
}

type FetchConfig struct {
	TimeoutMs int `mapstructure:"timeout_ms" yaml:"timeout_ms,omitempty"`
}

type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port,omitempty"`
}

type QuizConfig struct {
	// RevealDelayMs overrides the catalog's delayResult when set and >= 0.
	RevealDelayMs *int  `mapstructure:"reveal_delay_ms" yaml:"reveal_delay_ms,omitempty"`
	Debug         *bool `mapstructure:"debug" yaml:"debug,omitempty"`
}

func floatPtr(v float64) *float64 { return &v }

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Profile: "default",
		Catalog: "songlist.json",
		Audio: AudioConfig{
			Backend:         "auto",
			SampleRate:      44100,
			BufferMs:        100,
			InitialVolume:   floatPtr(0.5),
			ResampleQuality: 4,
		},
		Fetch:  FetchConfig{TimeoutMs: 10000},
		Server: ServerConfig{Port: 8080},
	}
}

// BufferSize returns the output buffer length.
func (c *Config) BufferSize() time.Duration {
	return time.Duration(c.Audio.BufferMs) * time.Millisecond
}

// FetchTimeout returns the HTTP timeout for catalog and clip downloads.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutMs) * time.Millisecond
}

// Volume returns the initial playback volume.
func (c *Config) Volume() float64 {
	if c.Audio.InitialVolume == nil {
		return 0.5
	}
	return *c.Audio.InitialVolume
}

// RevealDelay returns the configured reveal delay and whether it overrides the catalog.
func (c *Config) RevealDelay() (time.Duration, bool) {
	if c.Quiz.RevealDelayMs == nil || *c.Quiz.RevealDelayMs < 0 {
		return 0, false
	}
	return time.Duration(*c.Quiz.RevealDelayMs) * time.Millisecond, true
}

// Debug reports whether explicit song selection is forced on.
func (c *Config) Debug() bool {
	return c.Quiz.Debug != nil && *c.Quiz.Debug
}

// LoadWithProfile resolves profile from configFile. An empty profile means the
// file's active_config, then "default". A missing file yields the built-in
// defaults.
func LoadWithProfile(configFile, profile string) (*Config, error) {
	if configFile == "" {
		return finalize(Default())
	}
	if _, err := os.Stat(configFile); errors.Is(err, os.ErrNotExist) {
		if profile != "" && profile != "default" {
			return nil, fmt.Errorf("%w: '%s' (no config file at %s)", ErrProfileNotFound, profile, configFile)
		}
		return finalize(Default())
	}

	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	configName := profile
	if configName == "" {
		configName = rootConfig.ActiveConfig
	}
	if configName == "" {
		configName = "default"
	}

	selectedProfile, exists := rootConfig.Configs[configName]
	if !exists {
		if configName != "default" {
			return nil, fmt.Errorf("%w: '%s'", ErrProfileNotFound, configName)
		}
		selectedProfile = &ConfigProfile{}
	}

	// Built-in defaults, then the default profile, then the selected one.
	base := mergeConfigs(Default(), profileToConfig(rootConfig.Configs["default"]))
	var selectedConfig *Config
	if configName == "default" {
		selectedConfig = base
	} else {
		selectedConfig = mergeConfigs(base, profileToConfig(selectedProfile))
	}
	selectedConfig.Profile = configName

	return finalize(selectedConfig)
}

func finalize(cfg *Config) (*Config, error) {
	applyEnv(cfg)
	cfg.Catalog = expandPath(cfg.Catalog)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Inheritance == nil {
		cfg.Inheritance = mergeConfigs(cfg, nil).Inheritance
	}
	return cfg, nil
}

// applyEnv lets SONGQUIZ_* variables override resolved values, for example
// SONGQUIZ_AUDIO_BACKEND=oto or SONGQUIZ_CATALOG=https://host/songlist.json.
func applyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix("SONGQUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.IsSet("catalog") {
		cfg.Catalog = v.GetString("catalog")
	}
	if v.IsSet("audio.backend") {
		cfg.Audio.Backend = v.GetString("audio.backend")
	}
	if v.IsSet("audio.sample_rate") {
		cfg.Audio.SampleRate = v.GetInt("audio.sample_rate")
	}
	if v.IsSet("audio.buffer_ms") {
		cfg.Audio.BufferMs = v.GetInt("audio.buffer_ms")
	}
	if v.IsSet("audio.initial_volume") {
		cfg.Audio.InitialVolume = floatPtr(v.GetFloat64("audio.initial_volume"))
	}
	if v.IsSet("audio.resample_quality") {
		cfg.Audio.ResampleQuality = v.GetInt("audio.resample_quality")
	}
	if v.IsSet("fetch.timeout_ms") {
		cfg.Fetch.TimeoutMs = v.GetInt("fetch.timeout_ms")
	}
	if v.IsSet("server.port") {
		cfg.Server.Port = v.GetInt("server.port")
	}
	if v.IsSet("quiz.reveal_delay_ms") {
		delay := v.GetInt("quiz.reveal_delay_ms")
		cfg.Quiz.RevealDelayMs = &delay
	}
	if v.IsSet("quiz.debug") {
		debug := v.GetBool("quiz.debug")
		cfg.Quiz.Debug = &debug
	}
}

// UpdateActiveConfig updates the active_config field in the config file
func UpdateActiveConfig(configFile, newActiveConfig string) error {
	if configFile == "" {
		return fmt.Errorf("no config file specified")
	}

	// Create a new viper instance to avoid interfering with the global one
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if _, ok := rootConfig.Configs[newActiveConfig]; !ok && newActiveConfig != "default" {
		return fmt.Errorf("%w: '%s'", ErrProfileNotFound, newActiveConfig)
	}

	v.Set("active_config", newActiveConfig)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configFile, err)
	}

	return nil
}

// GetAvailableProfiles lists the profile names in configFile, sorted.
func GetAvailableProfiles(configFile string) ([]string, error) {
	rootConfig, err := ValidateConfigurationFormat(configFile)
	if err != nil {
		return nil, err
	}
	profiles := make([]string, 0, len(rootConfig.Configs))
	for name := range rootConfig.Configs {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles, nil
}

func profileToConfig(profile *ConfigProfile) *Config {
	if profile == nil {
		return &Config{}
	}
	return &Config{
		Catalog: profile.Catalog,
		Audio:   profile.Audio,
		Fetch:   profile.Fetch,
		Server:  profile.Server,
		Quiz:    profile.Quiz,
	}
}

// mergeConfigs implements the fallback model: every field the profile sets
// wins, everything else comes from base. With a nil profile the result is a
// copy of base with every field marked inherited.
func mergeConfigs(base, profile *Config) *Config {
	result := &Config{Inheritance: &InheritanceInfo{}}
	inh := result.Inheritance

	if base != nil {
		result.Profile = base.Profile
		result.Catalog = base.Catalog
		result.Audio = base.Audio
		result.Fetch = base.Fetch
		result.Server = base.Server
		result.Quiz = base.Quiz
	}

	inh.Catalog = Inherited
	inh.Audio.Backend = Inherited
	inh.Audio.SampleRate = Inherited
	inh.Audio.BufferMs = Inherited
	inh.Audio.InitialVolume = Inherited
	inh.Audio.ResampleQuality = Inherited
	inh.Fetch.TimeoutMs = Inherited
	inh.Server.Port = Inherited
	inh.Quiz.RevealDelayMs = Inherited
	inh.Quiz.Debug = Inherited

	if profile == nil {
		return result
	}

	if profile.Catalog != "" {
		result.Catalog = profile.Catalog
		inh.Catalog = ProfileSpecific
	}
	if profile.Audio.Backend != "" {
		result.Audio.Backend = profile.Audio.Backend
		inh.Audio.Backend = ProfileSpecific
	}
	if profile.Audio.SampleRate != 0 {
		result.Audio.SampleRate = profile.Audio.SampleRate
		inh.Audio.SampleRate = ProfileSpecific
	}
	if profile.Audio.BufferMs != 0 {
		result.Audio.BufferMs = profile.Audio.BufferMs
		inh.Audio.BufferMs = ProfileSpecific
	}
	if profile.Audio.InitialVolume != nil {
		result.Audio.InitialVolume = profile.Audio.InitialVolume
		inh.Audio.InitialVolume = ProfileSpecific
	}
	if profile.Audio.ResampleQuality != 0 {
		result.Audio.ResampleQuality = profile.Audio.ResampleQuality
		inh.Audio.ResampleQuality = ProfileSpecific
	}
	if profile.Fetch.TimeoutMs != 0 {
		result.Fetch.TimeoutMs = profile.Fetch.TimeoutMs
		inh.Fetch.TimeoutMs = ProfileSpecific
	}
	if profile.Server.Port != 0 {
		result.Server.Port = profile.Server.Port
		inh.Server.Port = ProfileSpecific
	}
	if profile.Quiz.RevealDelayMs != nil {
		result.Quiz.RevealDelayMs = profile.Quiz.RevealDelayMs
		inh.Quiz.RevealDelayMs = ProfileSpecific
	}
	if profile.Quiz.Debug != nil {
		result.Quiz.Debug = profile.Quiz.Debug
		inh.Quiz.Debug = ProfileSpecific
	}

	return result
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

var validBackends = map[string]bool{"": true, "auto": true, "speaker": true, "oto": true, "portaudio": true}

// Validate checks a resolved configuration.
func Validate(cfg *Config) error {
	if cfg.Catalog == "" {
		return fmt.Errorf("'catalog' is required")
	}
	return validateProfile(profileFromConfig(cfg), "config")
}

func profileFromConfig(cfg *Config) *ConfigProfile {
	return &ConfigProfile{
		Catalog: cfg.Catalog,
		Audio:   cfg.Audio,
		Fetch:   cfg.Fetch,
		Server:  cfg.Server,
		Quiz:    cfg.Quiz,
	}
}

// ValidateConfigurationFormat validates the configuration file format and returns parsed config
func ValidateConfigurationFormat(configFile string) (*RootConfig, error) {
	v := viper.New()
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	var rootConfig RootConfig
	if err := v.Unmarshal(&rootConfig); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	names := make([]string, 0, len(rootConfig.Configs))
	for name := range rootConfig.Configs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := validateProfile(rootConfig.Configs[name], fmt.Sprintf("configs.%s", name)); err != nil {
			return nil, fmt.Errorf("invalid config '%s': %w", name, err)
		}
	}

	if rootConfig.ActiveConfig != "" && rootConfig.ActiveConfig != "default" {
		if _, ok := rootConfig.Configs[rootConfig.ActiveConfig]; !ok {
			return nil, fmt.Errorf("active_config references undefined profile '%s'", rootConfig.ActiveConfig)
		}
	}

	return &rootConfig, nil
}

// validateProfile checks the fields a profile sets. Zero values mean unset.
func validateProfile(p *ConfigProfile, prefix string) error {
	if p == nil {
		return nil
	}

	if !validBackends[strings.ToLower(p.Audio.Backend)] {
		return fmt.Errorf("%s.audio: 'backend' must be one of auto, speaker, oto, portaudio, got: %s", prefix, p.Audio.Backend)
	}
	if p.Audio.SampleRate < 0 || (p.Audio.SampleRate > 0 && (p.Audio.SampleRate < 8000 || p.Audio.SampleRate > 192000)) {
		return fmt.Errorf("%s.audio: 'sample_rate' must be between 8000 and 192000, got: %d", prefix, p.Audio.SampleRate)
	}
	if p.Audio.BufferMs < 0 {
		return fmt.Errorf("%s.audio: 'buffer_ms' must be > 0, got: %d", prefix, p.Audio.BufferMs)
	}
	if v := p.Audio.InitialVolume; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%s.audio: 'initial_volume' must be between 0 and 1, got: %.2f", prefix, *v)
	}
	if q := p.Audio.ResampleQuality; q < 0 || q > 6 {
		return fmt.Errorf("%s.audio: 'resample_quality' must be between 1 and 6, got: %d", prefix, q)
	}
	if p.Fetch.TimeoutMs < 0 {
		return fmt.Errorf("%s.fetch: 'timeout_ms' must be >= 0, got: %d", prefix, p.Fetch.TimeoutMs)
	}
	if p.Server.Port < 0 || p.Server.Port > 65535 {
		return fmt.Errorf("%s.server: 'port' must be between 1 and 65535, got: %d", prefix, p.Server.Port)
	}

	return nil
}
