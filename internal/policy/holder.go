package policy

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"fluxao-backend-go/internal/logging"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Holder publishes the active policy to concurrent readers.
type Holder struct {
	current atomic.Pointer[Policy]
}

func NewHolder(p *Policy) *Holder {
	h := &Holder{}
	h.current.Store(p)
	return h
}

func (h *Holder) Get() *Policy {
	return h.current.Load()
}

// Reload replaces the active policy with the one at path.
// On error the previous policy stays in force.
func (h *Holder) Reload(path string) error {
	p, err := Load(path)
	if err != nil {
		return err
	}
	h.current.Store(p)
	return nil
}

// Watch reloads the policy whenever the file at path is written or replaced.
// It watches the parent directory so editors that rename over the file are seen.
func (h *Holder) Watch(ctx context.Context, path string, logger *zap.Logger) error {
	logger = logging.OrNop(logger)
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("policy watcher: %w", err)
	}
	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("policy watcher: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				if err := h.Reload(target); err != nil {
					logger.Warn("policy reload failed, keeping previous policy", zap.String("path", target), zap.Error(err))
					continue
				}
				logger.Info("policy reloaded", zap.String("path", target))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("policy watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
