package config

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"FlowHunter/pkg/logger"
)

// Store holds the active configuration. Readers take a snapshot per cycle
// so a reload never changes values mid-computation.
type Store struct {
	cur atomic.Pointer[Config]

	mu        sync.Mutex
	listeners []func(*Config)
}

func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.cur.Store(cfg)
	return s
}

func (s *Store) Current() *Config { return s.cur.Load() }

// OnChange registers fn to run after each accepted reload.
func (s *Store) OnChange(fn func(*Config)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Update swaps in next after validating it. Sections that need a restart
// (venues, symbols, transports) keep their running values.
func (s *Store) Update(next *Config) error {
	if err := next.Validate(); err != nil {
		return err
	}
	prev := s.cur.Load()
	merged := *prev
	merged.Logging = next.Logging
	merged.Aggregator = next.Aggregator
	merged.Manipulation = next.Manipulation
	merged.Structure = next.Structure
	merged.Hologram = next.Hologram
	merged.Pipeline = next.Pipeline
	merged.Sessions = next.Sessions
	s.cur.Store(&merged)

	s.mu.Lock()
	ls := append([]func(*Config){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range ls {
		fn(&merged)
	}
	return nil
}

// Watcher polls a config file's mtime and reloads it on change.
type Watcher struct {
	path     string
	interval time.Duration
	store    *Store
	log      *logger.Logger
	modTime  time.Time
}

func NewWatcher(path string, interval time.Duration, store *Store, log *logger.Logger) *Watcher {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	w := &Watcher{path: path, interval: interval, store: store, log: log}
	if fi, err := os.Stat(path); err == nil {
		w.modTime = fi.ModTime()
	}
	return w
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	fi, err := os.Stat(w.path)
	if err != nil {
		w.log.Warn("config watcher stat failed", logger.String("path", w.path), logger.Error(err))
		return
	}
	if !fi.ModTime().After(w.modTime) {
		return
	}
	w.modTime = fi.ModTime()
	next, err := Load(w.path)
	if err != nil {
		w.log.Error("config reload rejected", logger.String("path", w.path), logger.Error(err))
		return
	}
	if err := w.store.Update(next); err != nil {
		w.log.Error("config reload rejected", logger.String("path", w.path), logger.Error(err))
		return
	}
	w.log.Info("config reloaded", logger.String("path", w.path))
}
