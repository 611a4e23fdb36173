package provider

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
)

var ErrNotConfigured = errors.New("provider not configured")

type Completion struct {
	Provider       string `json:"provider"`
	Text           string `json:"text"`
	TokensUsed     int    `json:"tokensUsed"`
	ResponseTimeMs int    `json:"responseTimeMs"`
	Cached         bool   `json:"cached"`
}

// Provider is one upstream language-model backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (Completion, error)
}

// Registry maps provider names to clients and carries the failover flag
// raised by auto-remediation when the primary keeps failing.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	primary   string
	backup    string
	failover  atomic.Bool
}

func NewRegistry(primary, backup string) *Registry {
	return &Registry{
		providers: map[string]Provider{},
		primary:   normalize(primary),
		backup:    normalize(backup),
	}
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[normalize(p.Name())] = p
}

// Resolve returns the named provider, or the default one when name is empty.
func (r *Registry) Resolve(name string) (Provider, error) {
	key := normalize(name)
	if key == "" {
		key = r.DefaultName()
	}
	r.mu.RLock()
	p, ok := r.providers[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, key)
	}
	return p, nil
}

// DefaultName is the primary, or the backup while failover is raised.
func (r *Registry) DefaultName() string {
	if r.failover.Load() && r.backup != "" {
		return r.backup
	}
	return r.primary
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RaiseFailover reports whether the flag changed.
func (r *Registry) RaiseFailover() bool {
	return r.failover.CompareAndSwap(false, true)
}

func (r *Registry) ClearFailover() bool {
	return r.failover.CompareAndSwap(true, false)
}

func (r *Registry) FailoverActive() bool {
	return r.failover.Load()
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
