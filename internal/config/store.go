package config

import "sync/atomic"

// Store holds the active configuration. Readers take a snapshot with Current;
// Swap replaces it atomically.
type Store struct {
	current atomic.Pointer[Config]
}

// NewStore creates a store holding cfg.
func NewStore(cfg *Config) *Store {
	s := &Store{}
	s.current.Store(cfg)
	return s
}

// Current returns the active configuration.
func (s *Store) Current() *Config {
	return s.current.Load()
}

// Adapter returns a value copy of the active adapter settings.
func (s *Store) Adapter() AdapterConfig {
	if cfg := s.current.Load(); cfg != nil {
		return cfg.Adapter
	}
	return AdapterConfig{}
}

// Swap installs cfg and returns the previous configuration.
func (s *Store) Swap(cfg *Config) *Config {
	return s.current.Swap(cfg)
}
