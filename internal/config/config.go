// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/jeranaias/ragdesk/internal/util"
)

// CurrentVersion is the config schema version written by SaveTOML.
const CurrentVersion = "1"

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragdesk configuration.
type Config struct {
	Version string       `toml:"version" json:"version"`
	Server  ServerConfig `toml:"server" json:"server"`
	Upload  UploadConfig `toml:"upload" json:"upload"`
	Chat    ChatConfig   `toml:"chat" json:"chat"`
	UI      UIConfig     `toml:"ui" json:"ui"`
	Log     LogConfig    `toml:"log" json:"log"`
	Watch   WatchConfig  `toml:"watch" json:"watch"`
}

// ServerConfig locates the RAG backend.
type ServerConfig struct {
	// BaseURL is the backend root, e.g. http://127.0.0.1:8000
	BaseURL string `toml:"base_url" json:"base_url"`

	// TimeoutSecs bounds every request, uploads included
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`

	// RequestsPerSecond paces outgoing requests (0 = unlimited)
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second"`
}

// UploadConfig controls batch uploads.
type UploadConfig struct {
	// Policy is "sequential" or "parallel"
	Policy string `toml:"policy" json:"policy"`

	// Parallelism is the in-flight limit for the parallel policy
	Parallelism int `toml:"parallelism" json:"parallelism"`

	// AllowedExtensions restricts selectable files (empty = accept all)
	AllowedExtensions []string `toml:"allowed_extensions" json:"allowed_extensions"`
}

// ChatConfig controls the chat session.
type ChatConfig struct {
	TenantID string `toml:"tenant_id" json:"tenant_id"`

	// Welcome shows the assistant greeting at the top of a new transcript
	Welcome bool `toml:"welcome" json:"welcome"`

	// Refinement sends the previous answer along with each question
	Refinement bool `toml:"refinement" json:"refinement"`

	// PersistHistory stores transcripts in the local history database
	PersistHistory bool `toml:"persist_history" json:"persist_history"`
}

// UIConfig controls terminal rendering.
type UIConfig struct {
	// WordWrap is the markdown wrap width (0 = terminal width)
	WordWrap int `toml:"word_wrap" json:"word_wrap"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level string `toml:"level" json:"level"`
	File  string `toml:"file" json:"file"`
}

// WatchConfig controls the drop folder watcher.
type WatchConfig struct {
	// Dir is the default drop folder for "ragdesk watch"
	Dir string `toml:"dir" json:"dir"`

	// DebounceMs waits for writes to settle before uploading
	DebounceMs int `toml:"debounce_ms" json:"debounce_ms"`
}

// Default returns a Config with all built-in defaults.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Server: ServerConfig{
			BaseURL:     "http://127.0.0.1:8000",
			TimeoutSecs: 120,
		},
		Upload: UploadConfig{
			Policy:            "sequential",
			Parallelism:       4,
			AllowedExtensions: []string{".pdf", ".doc", ".docx", ".txt", ".md"},
		},
		Chat: ChatConfig{
			Welcome:        true,
			PersistHistory: true,
		},
		UI: UIConfig{
			WordWrap: 80,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
	}
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// Debounce returns the drop folder settle time as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragdesk state directory. RAGDESK_HOME overrides the
// default of ~/.ragdesk.
func ConfigDir() (string, error) {
	if dir := os.Getenv("RAGDESK_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragdesk"), nil
}

// PathIn joins name onto ConfigDir.
func PathIn(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	return PathIn("config.toml")
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	return PathIn("config.json")
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults. .env files are
// read before environment overrides are applied.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	loaded := false
	if tomlPath, err := ConfigPathTOML(); err == nil && fileExists(tomlPath) {
		if err := LoadTOML(cfg, tomlPath); err != nil {
			loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			cfg = Default()
		} else {
			loaded = true
		}
	}
	if !loaded {
		if jsonPath, err := ConfigPathJSON(); err == nil && fileExists(jsonPath) {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = errors.Join(loadErr, fmt.Errorf("failed to load JSON config: %w", err))
				cfg = Default()
			}
		}
	}

	if err := finish(cfg); err != nil {
		return nil, err
	}
	// Defaults with any load error for informational purposes.
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file path with full validation.
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

	if err := finish(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		fmt.Fprintf(os.Stderr, "Warning: unknown config keys in %s: %s\n", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// finish runs the steps shared by every load path.
func finish(cfg *Config) error {
	LoadDotEnv()
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv reads .env from the working directory and the config
// directory. Variables already set in the environment win; missing files
// are ignored.
func LoadDotEnv() {
	candidates := []string{".env"}
	if p, err := PathIn(".env"); err == nil {
		candidates = append(candidates, p)
	}
	for _, p := range candidates {
		if !fileExists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not read %s: %v\n", p, err)
		}
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// SetDefaults fills zero values that have no meaningful zero.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	c.Server.BaseURL = strings.TrimRight(strings.TrimSpace(c.Server.BaseURL), "/")
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Upload.Policy == "" {
		c.Upload.Policy = defaults.Upload.Policy
	}
	c.Upload.Policy = strings.ToLower(c.Upload.Policy)
	if c.Upload.Parallelism == 0 {
		c.Upload.Parallelism = defaults.Upload.Parallelism
	}
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Watch.DebounceMs == 0 {
		c.Watch.DebounceMs = defaults.Watch.DebounceMs
	}
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML writes the configuration atomically with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	var buf bytes.Buffer
	buf.WriteString("# ragdesk configuration file\n")
	buf.WriteString("# Generated by ragdesk - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
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

// Validate checks every setting and returns all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		add("server.base_url", "invalid URL '%s', must be an absolute http or https URL", c.Server.BaseURL)
	}
	if c.Server.TimeoutSecs < 1 || c.Server.TimeoutSecs > 3600 {
		add("server.timeout_secs", "must be between 1 and 3600, got %d", c.Server.TimeoutSecs)
	}
	if c.Server.RequestsPerSecond < 0 {
		add("server.requests_per_second", "must not be negative, got %g", c.Server.RequestsPerSecond)
	}

	// Upload
	switch c.Upload.Policy {
	case "sequential", "parallel":
	default:
		add("upload.policy", "invalid policy '%s', must be one of: sequential, parallel", c.Upload.Policy)
	}
	if c.Upload.Parallelism < 1 || c.Upload.Parallelism > 16 {
		add("upload.parallelism", "must be between 1 and 16, got %d", c.Upload.Parallelism)
	}
	for _, ext := range c.Upload.AllowedExtensions {
		e := strings.TrimSpace(ext)
		if e == "" || e == "." || strings.ContainsAny(e, `/\ `) {
			add("upload.allowed_extensions", "invalid extension '%s'", ext)
		}
	}

	// UI
	if c.UI.WordWrap != 0 && (c.UI.WordWrap < 20 || c.UI.WordWrap > 400) {
		add("ui.word_wrap", "must be 0 or between 20 and 400, got %d", c.UI.WordWrap)
	}

	// Log
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		add("log.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Log.Level)
	}

	// Watch
	if c.Watch.DebounceMs < 0 || c.Watch.DebounceMs > 60000 {
		add("watch.debounce_ms", "must be between 0 and 60000, got %d", c.Watch.DebounceMs)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGDESK_SERVER_URL: overrides server.base_url
//   - RAGDESK_TIMEOUT: overrides server.timeout_secs
//   - RAGDESK_TENANT_ID: overrides chat.tenant_id
//   - RAGDESK_UPLOAD_POLICY: overrides upload.policy
//   - RAGDESK_UPLOAD_PARALLELISM: overrides upload.parallelism
//   - RAGDESK_LOG_LEVEL: overrides log.level
//   - RAGDESK_LOG_FILE: overrides log.file
//   - RAGDESK_NO_HISTORY: set to "1" or "true" to disable transcript storage
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("RAGDESK_SERVER_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("RAGDESK_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Server.TimeoutSecs = n
		}
	}
	if v := os.Getenv("RAGDESK_TENANT_ID"); v != "" {
		c.Chat.TenantID = v
	}
	if v := os.Getenv("RAGDESK_UPLOAD_POLICY"); v != "" {
		c.Upload.Policy = v
	}
	if v := os.Getenv("RAGDESK_UPLOAD_PARALLELISM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Upload.Parallelism = n
		}
	}
	if v := os.Getenv("RAGDESK_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("RAGDESK_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("RAGDESK_NO_HISTORY"); v != "" {
		if v == "1" || strings.EqualFold(v, "true") {
			c.Chat.PersistHistory = false
		}
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a value by its TOML key path (e.g. "server.base_url").
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set assigns a value by its TOML key path. String input is converted to
// the field's type; list fields take a comma-separated string.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

func (c *Config) lookup(key string) (reflect.Value, error) {
	parts := strings.Split(strings.TrimSpace(key), ".")
	if len(parts) == 0 || parts[0] == "" {
		return reflect.Value{}, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		field, ok := fieldByTag(v, part)
		if !ok {
			return reflect.Value{}, fmt.Errorf("unknown key: %s", strings.Join(parts[:i+1], "."))
		}
		if i == len(parts)-1 {
			if field.Kind() == reflect.Struct {
				return reflect.Value{}, fmt.Errorf("key '%s' is a section, not a value", key)
			}
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("key '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(v reflect.Value, name string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == name {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func tomlName(f reflect.StructField) string {
	tag := f.Tag.Get("toml")
	if tag == "" {
		return strings.ToLower(f.Name)
	}
	return strings.Split(tag, ",")[0]
}

// setFieldValue sets a reflect.Value from an any value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if s, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(s)
			return nil
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(n)
			return nil
		case reflect.Float64:
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(f)
			return nil
		case reflect.Bool:
			b, err := strconv.ParseBool(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("invalid boolean value: %v", err)
			}
			field.SetBool(b)
			return nil
		case reflect.Slice:
			if field.Type().Elem().Kind() == reflect.String {
				var items []string
				for _, item := range strings.Split(s, ",") {
					if item = strings.TrimSpace(item); item != "" {
						items = append(items, item)
					}
				}
				field.Set(reflect.ValueOf(items))
				return nil
			}
		}
	}

	val := reflect.ValueOf(value)
	if val.IsValid() && val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.IsValid() && val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// AllKeys returns every settable key in dot notation, in declaration order.
func AllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := prefix + tomlName(f)
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, name+".")
				continue
			}
			keys = append(keys, name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// String returns the config as indented JSON.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
		}
		if cfg == nil {
			cfg = Default()
		}
		globalConfigMu.Lock()
		if globalConfig == nil {
			globalConfig = cfg
		}
		globalConfigMu.Unlock()
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
