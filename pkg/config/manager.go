package config

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
)

// Manager owns the process's resolved Config, loaded once at startup from a
// layered set of Providers and served to the rest of the process through
// Get/FromContext.
type Manager struct {
	validate *validator.Validate
	current  atomic.Pointer[Config]
}

// NewManager constructs a Manager. A nil validate argument builds a default
// validator.
func NewManager(validate *validator.Validate) *Manager {
	if validate == nil {
		validate = validator.New()
	}
	return &Manager{validate: validate}
}

// Load applies providers in order (each overriding keys set by the one
// before it), unmarshals the result into a Config, validates it, and stores
// it for subsequent Get calls.
func (m *Manager) Load(_ context.Context, providers ...Provider) (*Config, error) {
	k := koanf.New(".")
	for _, p := range providers {
		if err := p.Apply(k); err != nil {
			return nil, fmt.Errorf("config: apply provider: %w", err)
		}
	}
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := m.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	m.current.Store(cfg)
	return cfg, nil
}

// Get returns the most recently loaded Config, or nil if Load has not run.
func (m *Manager) Get() *Config {
	return m.current.Load()
}

// Close releases any resources held by the Manager. Miniflow's configuration
// is load-once-at-startup, so there is nothing to stop; Close exists to keep
// the call symmetric with components that do hold background resources.
func (m *Manager) Close(_ context.Context) error {
	return nil
}
