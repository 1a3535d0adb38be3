package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"go.yaml.in/yaml/v3"

	"readlet/internal/chord"
)

const (
	maxConfigFileBytes int64 = 1 << 20 // 1MB
	maxRenameRetry           = 10
	// Windows file lock releases (antivirus/indexing) typically settle quickly.
	renameRetryBaseDelay = 10 * time.Millisecond
	// maxValidPort is the highest TCP port number. Port 0 means "OS auto-assign".
	maxValidPort = 65535
)

// Shortcut action names as persisted in the shortcuts map.
const (
	ActionNextLine          = "next_line_shortcut"
	ActionPrevLine          = "prev_line_shortcut"
	ActionNextChapter       = "next_chapter_shortcut"
	ActionPrevChapter       = "prev_chapter_shortcut"
	ActionBossKey           = "boss_key_shortcut"
	ActionToggleReadingMode = "toggle_reading_mode_shortcut"
)

// Actions lists the known actions in settings-form order.
func Actions() []string {
	return []string{
		ActionNextLine,
		ActionPrevLine,
		ActionNextChapter,
		ActionPrevChapter,
		ActionBossKey,
		ActionToggleReadingMode,
	}
}

// IsKnownAction reports whether action is one of Actions().
func IsKnownAction(action string) bool {
	return slices.Contains(Actions(), action)
}

// defaultConfigDirFn is a test seam; tests override it to simulate
// directory-resolution failures in validateConfigPath.
var defaultConfigDirFn = defaultConfigDir
var userHomeDirFn = os.UserHomeDir
var currentPlatformFn = chord.CurrentPlatform
var defaultPathWarningState struct {
	mu       sync.Mutex
	messages []string
}

func recordDefaultPathWarning(message string) {
	trimmed := strings.TrimSpace(message)
	if trimmed == "" {
		return
	}
	defaultPathWarningState.mu.Lock()
	defaultPathWarningState.messages = append(defaultPathWarningState.messages, trimmed)
	defaultPathWarningState.mu.Unlock()
}

// ConsumeDefaultPathWarnings returns and clears path-resolution warnings
// accumulated during DefaultPath() calls.
func ConsumeDefaultPathWarnings() []string {
	defaultPathWarningState.mu.Lock()
	defer defaultPathWarningState.mu.Unlock()
	if len(defaultPathWarningState.messages) == 0 {
		return nil
	}
	out := make([]string, len(defaultPathWarningState.messages))
	copy(out, defaultPathWarningState.messages)
	defaultPathWarningState.messages = nil
	return out
}

// Config is the persisted reader settings owned by the shortcut engine.
// An empty shortcut value means the action is unbound.
type Config struct {
	// Platform overrides the detected platform family ("windows", "macos",
	// "linux"). Empty means detect at runtime.
	Platform              string            `yaml:"platform,omitempty" json:"platform"`
	Shortcuts             map[string]string `yaml:"shortcuts" json:"shortcuts"`
	AllowBareFunctionKeys bool              `yaml:"allow_bare_function_keys" json:"allow_bare_function_keys"`
	KeyStreamPort         int               `yaml:"key_stream_port" json:"key_stream_port"`
}

// DefaultShortcuts returns the stock bindings for platform p. macOS adds Alt
// so the chords stay clear of Control+arrow space switching.
func DefaultShortcuts(p chord.Platform) map[string]string {
	prefix := chord.Control
	if p == chord.PlatformMac {
		prefix = chord.Control + chord.Separator + chord.Alt
	}
	bind := func(key string) string { return prefix + chord.Separator + key }
	return map[string]string{
		ActionNextLine:          bind("ArrowRight"),
		ActionPrevLine:          bind("ArrowLeft"),
		ActionNextChapter:       bind("ArrowDown"),
		ActionPrevChapter:       bind("ArrowUp"),
		ActionBossKey:           bind("Enter"),
		ActionToggleReadingMode: bind("Backslash"),
	}
}

// DefaultConfig returns default values for the detected platform.
func DefaultConfig() Config {
	return Config{
		Shortcuts: DefaultShortcuts(currentPlatformFn()),
	}
}

// ResolvePlatform returns the platform family cfg applies to. Unknown
// spellings fall back to the detected platform.
func ResolvePlatform(cfg Config) chord.Platform {
	if strings.TrimSpace(cfg.Platform) == "" {
		return currentPlatformFn()
	}
	p, err := chord.ParsePlatform(cfg.Platform)
	if err != nil {
		return currentPlatformFn()
	}
	return p
}

// DefaultPath resolves the config file path, preferring LOCALAPPDATA over
// APPDATA, falling back to ~/.config when both are unset, and then to
// os.TempDir() if the home directory cannot be resolved.
func DefaultPath() string {
	base := strings.TrimSpace(os.Getenv("LOCALAPPDATA"))
	if base == "" {
		base = strings.TrimSpace(os.Getenv("APPDATA"))
	}
	if base == "" {
		home, err := userHomeDirFn()
		if err != nil {
			slog.Warn("[WARN-CONFIG] using temp dir as config path fallback", "error", err)
			recordDefaultPathWarning(
				"Config path fallback: failed to resolve LOCALAPPDATA/APPDATA/home directory. Using temp directory; shortcut changes may not persist.",
			)
			base = os.TempDir()
		} else {
			base = filepath.Join(home, ".config")
		}
	}
	return filepath.Join(base, "readlet", "config.yaml")
}

// Load reads the config file. A missing or empty file yields defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, errors.New("config path required")
	}

	raw, err := readLimitedFile(path, maxConfigFileBytes)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}
	// Decode into a zero Config so an explicit shortcuts map replaces the
	// defaults instead of merging into them.
	var parsed Config
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		slog.Warn("[WARN-CONFIG] failed to parse config, using defaults", "path", path, "error", err)
		return DefaultConfig(), err
	}
	if err := applyDefaultsAndValidate(&parsed); err != nil {
		return parsed, err
	}
	return parsed, nil
}

// EnsureFile writes default config if missing and returns loaded config.
func EnsureFile(path string) (Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if _, err := Save(path, cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// Clone returns a deep copy of src.
func Clone(src Config) Config {
	dst := src
	if src.Shortcuts != nil {
		dst.Shortcuts = maps.Clone(src.Shortcuts)
	}
	return dst
}

// Save validates cfg and writes it atomically.
// Returns the normalized config that was actually written to disk.
func Save(path string, cfg Config) (Config, error) {
	normalizedPath, err := validateConfigPath(path)
	if err != nil {
		return cfg, err
	}
	cfg = Clone(cfg)
	if err := applyDefaultsAndValidate(&cfg); err != nil {
		return cfg, fmt.Errorf("save config: %w", err)
	}

	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return cfg, fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(normalizedPath, raw); err != nil {
		return cfg, err
	}
	slog.Debug("[DEBUG-CONFIG] config saved", "path", path)
	return cfg, nil
}

// atomicWrite writes config data using temp-file + rename to avoid partial
// writes and retries rename on Windows to tolerate transient file locks.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[WARN-CONFIG] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[WARN-CONFIG] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if err = tmpFile.Chmod(0o600); err != nil {
		return fmt.Errorf("save config: chmod temp: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	err = tmpFile.Close()
	tmpFile = nil
	if err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}

	if err = renameFileWithRetry(tmpPath, path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}

// validateConfigPath normalizes path and enforces that config writes stay
// inside the default config directory.
func validateConfigPath(path string) (string, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return "", errors.New("config path required")
	}
	absolutePath, err := filepath.Abs(trimmedPath)
	if err != nil {
		return "", fmt.Errorf("save config: resolve path: %w", err)
	}

	expectedDir, err := defaultConfigDirFn()
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	absoluteExpectedDir, err := filepath.Abs(expectedDir)
	if err != nil {
		return "", fmt.Errorf("save config: resolve config dir: %w", err)
	}
	if !pathWithinDir(absolutePath, absoluteExpectedDir) {
		return "", fmt.Errorf("save config: path outside config directory: %q", absolutePath)
	}

	return absolutePath, nil
}

func defaultConfigDir() (string, error) {
	return filepath.Dir(DefaultPath()), nil
}

// pathWithinDir blocks directory traversal by ensuring path is under dir.
// It also rejects Windows cross-drive escapes because filepath.Rel returns
// an absolute path when roots differ.
func pathWithinDir(path string, dir string) bool {
	relativePath, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	if relativePath == "." {
		return true
	}
	if relativePath == ".." || strings.HasPrefix(relativePath, ".."+string(os.PathSeparator)) {
		return false
	}
	return !filepath.IsAbs(relativePath)
}

// applyDefaultsAndValidate fills missing defaults and validates cfg in-place.
// MUTATES: cfg is directly modified.
// Used by both Load and Save to ensure consistent normalization.
func applyDefaultsAndValidate(cfg *Config) error {
	if isZeroConfig(*cfg) {
		*cfg = DefaultConfig()
		return nil
	}
	validatePlatform(cfg)
	validateKeyStreamPort(cfg)
	sanitizeShortcuts(cfg, ResolvePlatform(*cfg))
	return validateUniqueShortcuts(cfg.Shortcuts)
}

// validatePlatform rewrites a recognised platform to its canonical spelling
// and clears unknown values with a warning.
func validatePlatform(cfg *Config) {
	trimmed := strings.TrimSpace(cfg.Platform)
	if trimmed == "" {
		cfg.Platform = ""
		return
	}
	p, err := chord.ParsePlatform(trimmed)
	if err != nil {
		slog.Warn("[WARN-CONFIG] unknown platform, falling back to detection", "configured", cfg.Platform)
		cfg.Platform = ""
		return
	}
	cfg.Platform = p.String()
}

// validateKeyStreamPort resets an out-of-range port to 0 (auto-assign).
// Non-fatal: a bad port must not prevent startup.
func validateKeyStreamPort(cfg *Config) {
	if cfg.KeyStreamPort < 0 || cfg.KeyStreamPort > maxValidPort {
		slog.Warn("[WARN-CONFIG] key_stream_port out of valid range (0-65535), falling back to 0 (auto-assign)",
			"configured", cfg.KeyStreamPort, "max", maxValidPort)
		cfg.KeyStreamPort = 0
	}
}

// sanitizeShortcuts canonicalises every chord string in place.
// Missing known actions get their platform default; an explicit empty value
// keeps the action unbound. Unparsable values fall back to the default for
// known actions and are dropped for unknown ones.
func sanitizeShortcuts(cfg *Config, p chord.Platform) {
	defaults := DefaultShortcuts(p)
	out := make(map[string]string, len(cfg.Shortcuts)+len(defaults))
	for action, spec := range cfg.Shortcuts {
		name := strings.TrimSpace(action)
		if name == "" {
			slog.Warn("[WARN-CONFIG] dropping shortcut with blank action name", "binding", spec)
			continue
		}
		known := IsKnownAction(name)
		c, err := chord.Parse(spec)
		switch {
		case err != nil && known:
			slog.Warn("[WARN-CONFIG] invalid shortcut, restoring default",
				"action", name, "binding", spec, "default", defaults[name], "error", err)
			out[name] = defaults[name]
		case err != nil:
			slog.Warn("[WARN-CONFIG] dropping invalid shortcut", "action", name, "binding", spec, "error", err)
		case len(c) == 0 && !known:
			slog.Debug("[DEBUG-CONFIG] dropping empty shortcut for unknown action", "action", name)
		default:
			out[name] = c.String()
		}
	}
	for action, spec := range defaults {
		if _, ok := out[action]; ok {
			continue
		}
		if _, explicit := cfg.Shortcuts[action]; explicit {
			continue
		}
		out[action] = spec
	}
	cfg.Shortcuts = out
}

// validateUniqueShortcuts rejects two actions bound to the same keys. Key
// order is ignored: dispatch cannot tell "Shift+Control+A" from
// "Control+Shift+A".
func validateUniqueShortcuts(shortcuts map[string]string) error {
	owner := make(map[string]string, len(shortcuts))
	for _, action := range slices.Sorted(maps.Keys(shortcuts)) {
		spec := shortcuts[action]
		if spec == "" {
			continue
		}
		key := keySetOf(spec)
		if other, ok := owner[key]; ok {
			return fmt.Errorf("shortcuts %s and %s are both bound to %s", other, action, spec)
		}
		owner[key] = action
	}
	return nil
}

// keySetOf returns an order-insensitive, case-insensitive identity for spec.
func keySetOf(spec string) string {
	c, err := chord.Parse(spec)
	if err != nil {
		return strings.ToLower(spec)
	}
	tokens := c.Tokens()
	for i, token := range tokens {
		tokens[i] = strings.ToLower(token)
	}
	slices.Sort(tokens)
	return strings.Join(tokens, "+")
}

func readLimitedFile(path string, maxBytes int64) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	limited := io.LimitReader(file, maxBytes+1)
	raw, err := io.ReadAll(limited)
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > maxBytes {
		return nil, fmt.Errorf("config file exceeds %d bytes", maxBytes)
	}
	return raw, nil
}

func isZeroConfig(cfg Config) bool {
	// reflect.DeepEqual guards against field-addition drift that manual checks miss.
	return reflect.DeepEqual(cfg, Config{})
}

func renameFileWithRetry(sourcePath string, targetPath string) error {
	var lastErr error
	for attempt := range maxRenameRetry {
		err := os.Rename(sourcePath, targetPath)
		if err == nil {
			return nil
		}
		lastErr = err
		if runtime.GOOS != "windows" {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * renameRetryBaseDelay)
	}
	return lastErr
}
