// Copyright (c) 2025 neisii
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/neisii/chatgpt-cli/internal/model"
	"github.com/neisii/chatgpt-cli/internal/util"
)

// DefaultModel is used when neither config nor environment names a model.
const DefaultModel = "gpt-4o-mini"

// Session storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete gptcli configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	API     APIConfig     `toml:"api" json:"api"`
	Chat    ChatConfig    `toml:"chat" json:"chat"`
	Session SessionConfig `toml:"session" json:"session"`
	UI      UIConfig      `toml:"ui" json:"ui"`
}

// APIConfig configures the completion endpoint.
type APIConfig struct {
	// Key is the API key. Prefer the OPENAI_API_KEY environment variable.
	Key string `toml:"key" json:"key,omitempty"`
	// BaseURL is the API root of an OpenAI-compatible server.
	BaseURL string `toml:"base_url" json:"base_url"`
	// MaxRetries is the number of attempts made to open a request.
	MaxRetries int `toml:"max_retries" json:"max_retries"`
	// RateLimit is the maximum number of requests opened per second (0 = unlimited).
	RateLimit float64 `toml:"rate_limit" json:"rate_limit"`
	// RateBurst is the rate limiter burst size.
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
}

// ChatConfig configures conversations.
type ChatConfig struct {
	Model        string `toml:"model" json:"model"`
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`
	// Preset, when set, supplies the system prompt at startup.
	Preset string `toml:"preset" json:"preset,omitempty"`
	// IncludeTime appends a "Current local time" hint to each request.
	IncludeTime bool `toml:"include_time" json:"include_time"`
	// PasteGuardMs is the Enter debounce used by the TUI.
	PasteGuardMs int `toml:"paste_guard_ms" json:"paste_guard_ms"`
}

// SessionConfig configures conversation persistence.
type SessionConfig struct {
	Persist bool `toml:"persist" json:"persist"`
	// Backend is "json" or "sqlite".
	Backend string `toml:"backend" json:"backend"`
	// Path overrides the session file location.
	Path string `toml:"path" json:"path,omitempty"`
}

// UIConfig configures rendering.
type UIConfig struct {
	// Theme is "dark", "light" or "auto".
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders finished replies with glamour.
	Markdown  bool `toml:"markdown" json:"markdown"`
	WordWrap  int  `toml:"word_wrap" json:"word_wrap"`
	AltScreen bool `toml:"alt_screen" json:"alt_screen"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Version: "1",
		API: APIConfig{
			BaseURL:    "https://api.openai.com/v1",
			MaxRetries: 3,
			RateLimit:  2,
			RateBurst:  4,
		},
		Chat: ChatConfig{
			Model:        DefaultModel,
			SystemPrompt: model.DefaultSystemPrompt,
			IncludeTime:  true,
			PasteGuardMs: 60,
		},
		Session: SessionConfig{
			Persist: true,
			Backend: BackendJSON,
		},
		UI: UIConfig{
			Theme:     "auto",
			Markdown:  true,
			WordWrap:  100,
			AltScreen: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the gptcli configuration directory. GPTCLI_HOME
// overrides the default of ~/.gptcli.
func ConfigDir() (string, error) {
	if dir := os.Getenv("GPTCLI_HOME"); dir != "" {
		return util.ExpandHome(dir), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".gptcli"), nil
}

func pathInConfigDir(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return pathInConfigDir("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return pathInConfigDir("config.json") }

// PresetsPath returns the path to the presets file.
func PresetsPath() (string, error) { return pathInConfigDir("presets.yaml") }

// HistoryPath returns the path to the REPL line history.
func HistoryPath() (string, error) { return pathInConfigDir("chat_history") }

// LogPath returns the path to the debug log.
func LogPath() (string, error) { return pathInConfigDir("debug.log") }

// ClipPath returns the default path for saving the last reply.
func ClipPath() (string, error) { return pathInConfigDir("clip.txt") }

// SessionPath returns where the session is persisted for this config.
func (c *Config) SessionPath() (string, error) {
	if c.Session.Path != "" {
		return util.ExpandHome(c.Session.Path), nil
	}
	if c.Session.Backend == BackendSQLite {
		return pathInConfigDir("session.db")
	}
	return pathInConfigDir("session.json")
}

// EnsureConfigDir creates the config directory if needed.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens config files to 0600; they may hold an API key.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load reads the config file, trying TOML and then JSON, and falls back to
// defaults. Environment overrides are applied last. A file that fails to
// parse is reported together with the default config.
func Load() (*Config, error) {
	var loadErr error

	if path, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadFromPath(path)
			if err == nil {
				return cfg, nil
			}
			loadErr = err
		}
	}

	if path, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			cfg, err := LoadFromPath(path)
			if err == nil {
				return cfg, nil
			}
			loadErr = errors.Join(loadErr, err)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return Default(), errors.Join(loadErr, fmt.Errorf("invalid config: %w", err))
	}
	return cfg, loadErr
}

// LoadFromPath loads a specific file (JSON by extension, TOML otherwise),
// then applies environment overrides and validates.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(strings.ToLower(path), ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// the values cfg already holds.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	fillDefaults(cfg)
	return nil
}

// fillDefaults restores values a file explicitly blanked out.
func fillDefaults(cfg *Config) {
	d := Default()
	if cfg.Version == "" {
		cfg.Version = d.Version
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = d.API.BaseURL
	}
	if cfg.API.MaxRetries == 0 {
		cfg.API.MaxRetries = d.API.MaxRetries
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = d.Chat.Model
	}
	if cfg.Chat.SystemPrompt == "" {
		cfg.Chat.SystemPrompt = d.Chat.SystemPrompt
	}
	if cfg.Chat.PasteGuardMs == 0 {
		cfg.Chat.PasteGuardMs = d.Chat.PasteGuardMs
	}
	if cfg.Session.Backend == "" {
		cfg.Session.Backend = d.Session.Backend
	}
	if cfg.UI.Theme == "" {
		cfg.UI.Theme = d.UI.Theme
	}
	if cfg.UI.WordWrap == 0 {
		cfg.UI.WordWrap = d.UI.WordWrap
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML path.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveFile writes cfg to path, as JSON when path ends in .json and as TOML
// otherwise.
func SaveFile(cfg *Config, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return SaveJSON(cfg, path)
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes cfg as TOML with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# gptcli configuration file\n")
	buf.WriteString("# The API key is best supplied through OPENAI_API_KEY instead of this file.\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes cfg as indented JSON with 0600 permissions.
func SaveJSON(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.WriteFileAtomic(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError is one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors collects every invalid field.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if u, err := url.Parse(c.API.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "api.base_url",
			Message: fmt.Sprintf("invalid URL %q, must be http(s)://host[/path]", c.API.BaseURL),
		})
	}
	if c.API.MaxRetries < 1 || c.API.MaxRetries > 10 {
		errs = append(errs, ValidationError{Field: "api.max_retries", Message: "must be between 1 and 10"})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_limit", Message: "must not be negative"})
	}
	if c.API.RateBurst < 0 {
		errs = append(errs, ValidationError{Field: "api.rate_burst", Message: "must not be negative"})
	}

	if strings.TrimSpace(c.Chat.Model) == "" {
		errs = append(errs, ValidationError{Field: "chat.model", Message: "must not be empty"})
	}
	if c.Chat.PasteGuardMs < 0 || c.Chat.PasteGuardMs > 1000 {
		errs = append(errs, ValidationError{Field: "chat.paste_guard_ms", Message: "must be between 0 and 1000"})
	}

	switch c.Session.Backend {
	case BackendJSON, BackendSQLite:
	default:
		errs = append(errs, ValidationError{
			Field:   "session.backend",
			Message: fmt.Sprintf("invalid backend %q, must be one of: json, sqlite", c.Session.Backend),
		})
	}

	switch strings.ToLower(c.UI.Theme) {
	case "dark", "light", "auto":
	default:
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		})
	}
	if c.UI.WordWrap < 0 || c.UI.WordWrap > 1000 {
		errs = append(errs, ValidationError{Field: "ui.word_wrap", Message: "must be between 0 and 1000"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// APIKeyEnvVars are checked in order; the first non-empty one wins.
var APIKeyEnvVars = []string{"OPENAI_API_KEY", "OPENAI_KEY", "OPENAI_APIKEY"}

// ApplyEnvOverrides applies environment variables:
//   - OPENAI_API_KEY, OPENAI_KEY, OPENAI_APIKEY: api.key
//   - OPENAI_BASE_URL: api.base_url
//   - MODEL, GPTCLI_MODEL: chat.model (GPTCLI_MODEL wins)
//   - GPTCLI_SYSTEM_PROMPT: chat.system_prompt
//   - GPTCLI_INCLUDE_TIME: chat.include_time
//   - GPTCLI_PASTE_GUARD_MS: chat.paste_guard_ms
//   - GPTCLI_SESSION_BACKEND: session.backend
func (c *Config) ApplyEnvOverrides() {
	for _, name := range APIKeyEnvVars {
		if key := strings.TrimSpace(os.Getenv(name)); key != "" {
			c.API.Key = key
			break
		}
	}

	if u := os.Getenv("OPENAI_BASE_URL"); u != "" {
		c.API.BaseURL = u
	}

	if m := os.Getenv("MODEL"); m != "" {
		c.Chat.Model = m
	}
	if m := os.Getenv("GPTCLI_MODEL"); m != "" {
		c.Chat.Model = m
	}

	if p := os.Getenv("GPTCLI_SYSTEM_PROMPT"); p != "" {
		c.Chat.SystemPrompt = p
	}

	if v := os.Getenv("GPTCLI_INCLUDE_TIME"); v != "" {
		c.Chat.IncludeTime = parseBool(v)
	}

	if v := os.Getenv("GPTCLI_PASTE_GUARD_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.Chat.PasteGuardMs = ms
		}
	}

	if b := os.Getenv("GPTCLI_SESSION_BACKEND"); b != "" {
		c.Session.Backend = strings.ToLower(b)
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get returns a value by dotted key, e.g. "chat.model".
func (c *Config) Get(key string) (interface{}, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by dotted key. String values are converted to the
// field's type.
func (c *Config) Set(key string, value interface{}) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by TOML tag name.
func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(key, ".")
	if key == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("%s is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	name = strings.ReplaceAll(strings.ToLower(name), "-", "_")
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		tag := strings.Split(t.Field(i).Tag.Get("toml"), ",")[0]
		if tag == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// setFieldValue assigns value to field, converting from string when needed.
func setFieldValue(field reflect.Value, value interface{}) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			field.SetBool(parseBool(s))
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Keys lists every settable key in dotted form.
func Keys() []string {
	var keys []string
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		section := t.Field(i)
		sectionTag := strings.Split(section.Tag.Get("toml"), ",")[0]
		if section.Type.Kind() != reflect.Struct {
			keys = append(keys, sectionTag)
			continue
		}
		for j := 0; j < section.Type.NumField(); j++ {
			tag := strings.Split(section.Type.Field(j).Tag.Get("toml"), ",")[0]
			keys = append(keys, sectionTag+"."+tag)
		}
	}
	return keys
}

// Clone returns an independent copy.
func (c *Config) Clone() *Config {
	out := *c
	return &out
}

// String renders the config as JSON with the API key redacted.
func (c *Config) String() string {
	safe := *c
	if safe.API.Key != "" {
		safe.API.Key = "[REDACTED]"
	}
	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
