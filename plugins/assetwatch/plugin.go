// Package assetwatch re-draws the cube model when its asset file changes.
// It watches the asset's directory, so editors that replace the file on save
// are picked up too.
package assetwatch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/toiopose/internal/domain"
	"github.com/bft-labs/toiopose/internal/ports"
	"github.com/bft-labs/toiopose/pkg/toiopose"
)

// Plugin implements asset watching functionality.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	assetPath string
	entity    string
	renderer  toiopose.Renderer
	logger    toiopose.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	debounce  *time.Timer
	reloads   int
}

// Config holds configuration options for the asset watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before
	// re-drawing. Default: 100 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 100 * time.Millisecond}
}

// New creates a new asset watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "assetwatch"
}

// Initialize starts watching the asset's directory. A directory that cannot
// be watched disables the plugin without failing the run.
func (p *Plugin) Initialize(ctx context.Context, cfg toiopose.PluginConfig) error {
	p.mu.Lock()
	p.assetPath = cfg.AssetPath
	p.entity = cfg.Entity
	p.renderer = cfg.Renderer
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.assetPath == "" || p.renderer == nil {
		p.logger.Warn("asset watcher disabled: no asset or renderer")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		p.logger.Warn("asset watcher disabled", ports.Err(err))
		return nil
	}
	dir := filepath.Dir(p.assetPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		p.logger.Warn("asset watcher disabled",
			ports.String("dir", dir),
			ports.Err(err))
		return nil
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	p.logger.Debug("watching asset", ports.String("asset", p.assetPath))
	return nil
}

// Shutdown stops the watcher and any pending re-draw.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns how many times the asset was re-drawn.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.assetPath)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("asset watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.reload()
	})
}

func (p *Plugin) reload() {
	if err := p.renderer.Log(p.entity, domain.Asset3D{Path: p.assetPath}); err != nil {
		p.logger.Warn("asset reload failed", ports.String("asset", p.assetPath), ports.Err(err))
		return
	}
	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()
	p.logger.Info("asset reloaded", ports.String("asset", p.assetPath))
}

// Ensure Plugin implements toiopose.Plugin.
var _ toiopose.Plugin = (*Plugin)(nil)
