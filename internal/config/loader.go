package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Loader loads a configuration file and optionally hot-reloads it.
type Loader struct {
	path     string
	logger   *slog.Logger
	mu       sync.RWMutex
	config   *Config
	watcher  *fsnotify.Watcher
	onChange []func(*Config)
	ctx      context.Context
	cancel   context.CancelFunc
	errChan  chan error
	done     chan struct{}
}

// NewLoader creates a loader for path. An empty path searches the
// standard locations on every load.
func NewLoader(path string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Loader{
		path:    path,
		logger:  logger.With("component", "config"),
		errChan: make(chan error, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Path returns the file being loaded, resolving the search when the
// loader was created without one.
func (l *Loader) Path() string {
	if l.path != "" {
		return l.path
	}
	if found := FindConfigFile(); found != "" {
		return found
	}
	return ConfigPath()
}

// Load reads, validates and stores the configuration.
func (l *Loader) Load() (*Config, error) {
	cfg, err := Load(l.path)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()
	return cfg, nil
}

// Config returns a copy of the last successfully loaded configuration,
// or nil before the first Load.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.config == nil {
		return nil
	}
	return l.config.Clone()
}

// OnChange registers a callback invoked after every successful reload.
// Callbacks must be registered before Watch.
func (l *Loader) OnChange(cb func(*Config)) {
	l.onChange = append(l.onChange, cb)
}

// Errors returns reload and watcher errors. A failed reload keeps the
// previous configuration.
func (l *Loader) Errors() <-chan error {
	return l.errChan
}

// Watch reloads the configuration whenever its file is written or
// replaced. The containing directory is watched so atomic renames by
// editors are seen.
func (l *Loader) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	path := l.Path()
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop(filepath.Base(path))
	l.logger.Debug("watching configuration", "path", path)
	return nil
}

func (l *Loader) watchLoop(base string) {
	defer close(l.done)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-l.ctx.Done():
			return

		case event, ok := <-l.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, l.reload)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return
			}
			l.report(fmt.Errorf("watch config: %w", err))
		}
	}
}

func (l *Loader) reload() {
	cfg, err := Load(l.path)
	if err != nil {
		l.report(fmt.Errorf("reload config: %w", err))
		return
	}

	l.mu.Lock()
	l.config = cfg
	l.mu.Unlock()

	l.logger.Info("configuration reloaded")
	for _, cb := range l.onChange {
		cb(cfg)
	}
}

func (l *Loader) report(err error) {
	l.logger.Warn("configuration error", "error", err)
	select {
	case l.errChan <- err:
	default:
	}
}

// Close stops watching.
func (l *Loader) Close() error {
	l.cancel()
	if l.watcher == nil {
		return nil
	}
	err := l.watcher.Close()
	<-l.done
	return err
}

type format int

const (
	formatTOML format = iota
	formatJSON
	formatYAML
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return formatJSON
	case ".yaml", ".yml":
		return formatYAML
	default:
		return formatTOML
	}
}

// ErrDecode is returned when a configuration file cannot be parsed.
var ErrDecode = errors.New("config: decode failed")

// loadConfigFromFile decodes path on top of the defaults. A missing
// file yields the defaults. The document is checked against the schema
// before it is decoded into Config.
func loadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var doc map[string]any
	cfg := DefaultConfig()

	switch formatOf(path) {
	case formatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: JSON: %v", ErrDecode, err)
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: JSON: %v", ErrDecode, err)
		}
	case formatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: YAML: %v", ErrDecode, err)
		}
		if doc == nil {
			doc = map[string]any{}
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: YAML: %v", ErrDecode, err)
		}
	default:
		if _, err := toml.Decode(string(data), &doc); err != nil {
			return nil, fmt.Errorf("%w: TOML: %v", ErrDecode, err)
		}
		if err := ValidateDocument(doc); err != nil {
			return nil, err
		}
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("%w: TOML: %v", ErrDecode, err)
		}
	}

	return cfg, nil
}

// SaveConfig writes cfg to path in the format implied by its extension,
// with owner-only permissions.
func SaveConfig(cfg *Config, path string) error {
	var (
		data []byte
		err  error
	)
	switch formatOf(path) {
	case formatJSON:
		data, err = json.MarshalIndent(cfg, "", "  ")
	case formatYAML:
		data, err = yaml.Marshal(cfg)
	default:
		data, err = cfg.EncodeTOML()
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
