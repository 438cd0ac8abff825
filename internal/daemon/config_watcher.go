package daemon

import (
	"bytes"
	"context"
	"crypto/sha256"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/legistrack/internal/config"
	ferrors "git.home.luguber.info/inful/legistrack/internal/foundation/errors"
	"git.home.luguber.info/inful/legistrack/internal/logfields"
)

// ConfigWatcher monitors the configuration file and hands every valid new
// version to apply. Invalid files are logged and ignored.
type ConfigWatcher struct {
	configPath   string
	apply        func(*config.Config)
	logger       *slog.Logger
	watcher      *fsnotify.Watcher
	stopOnce     sync.Once
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration

	mu      sync.Mutex
	lastSum []byte
}

// NewConfigWatcher creates a new configuration file watcher.
func NewConfigWatcher(configPath string, apply func(*config.Config), logger *slog.Logger) (*ConfigWatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.DaemonError("failed to create file watcher").WithCause(err).Build()
	}

	// Resolve absolute path for consistent watching
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, ferrors.ConfigError("failed to resolve config path").WithCause(err).Build()
	}

	return &ConfigWatcher{
		configPath:   absPath,
		apply:        apply,
		logger:       logger,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: 2 * time.Second,
	}, nil
}

// Start begins monitoring the configuration file.
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	// Editors replace files by rename, so the directory is watched.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return ferrors.DaemonError("failed to watch config directory").WithCause(err).WithContext("path", configDir).Build()
	}

	if data, err := os.ReadFile(cw.configPath); err == nil {
		cw.remember(data)
	}
	cw.logger.Info("Starting configuration watcher", logfields.Path(cw.configPath))
	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

// Stop stops the configuration watcher. It is safe to call more than once.
func (cw *ConfigWatcher) Stop() {
	cw.stopOnce.Do(func() {
		cw.logger.Info("Stopping configuration watcher")
		close(cw.stopChan)
		if err := cw.watcher.Close(); err != nil {
			cw.logger.Error("Error closing file watcher", logfields.Error(err))
		}
	})
}

func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Write), event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Rename):
				cw.logger.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				cw.triggerReload()
			case event.Op.Has(fsnotify.Remove):
				cw.logger.Warn("Config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop debounces bursts of file events into one reload.
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stop := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-cw.stopChan:
			stop()
			return
		case <-cw.reloadChan:
			stop()
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				if err := cw.performReload(); err != nil {
					ferrors.Log(ctx, cw.logger, "Failed to reload configuration", err, logfields.Path(cw.configPath))
				}
			})
		}
	}
}

func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
	}
}

// remember records data's digest and reports whether it differs from the
// previous one.
func (cw *ConfigWatcher) remember(data []byte) bool {
	sum := sha256.Sum256(data)
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if bytes.Equal(cw.lastSum, sum[:]) {
		return false
	}
	cw.lastSum = sum[:]
	return true
}

func (cw *ConfigWatcher) performReload() error {
	data, err := os.ReadFile(cw.configPath)
	if err != nil {
		return ferrors.ConfigError("failed to read config file").WithCause(err).WithContext("path", cw.configPath).Build()
	}
	if !cw.remember(data) {
		cw.logger.Debug("Config file unchanged, skipping reload", logfields.Path(cw.configPath))
		return nil
	}
	cw.logger.Info("Reloading configuration", logfields.Path(cw.configPath))
	newConfig, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	cw.apply(newConfig)
	cw.logger.Info("Configuration reloaded")
	return nil
}
