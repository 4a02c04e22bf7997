package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/spf13/viper"
)

// ErrUnknownField is returned by Manager.Merge when an update references a
// key Config does not recognize.
var ErrUnknownField = errors.New("config: unknown field")

// knownKeys is the set of mapstructure tags Config declares, computed once
// via reflection so Merge can reject unrecognized POST /config fields.
var knownKeys = func() map[string]bool {
	keys := make(map[string]bool)
	t := reflect.TypeOf(Config{})
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("mapstructure"); tag != "" {
			keys[tag] = true
		}
	}
	return keys
}()

// Manager serves the live, mutable application configuration behind
// GET/POST /config: reads return the current merged Config, writes merge
// a partial update in after rejecting any unrecognized field.
type Manager struct {
	mu sync.RWMutex
	v  *viper.Viper
	c  Config
}

// NewManager wraps an already-loaded Viper instance.
func NewManager(v *viper.Viper) (*Manager, error) {
	c, err := Load(v)
	if err != nil {
		return nil, err
	}
	return &Manager{v: v, c: c}, nil
}

// Current returns a copy of the current configuration.
func (m *Manager) Current() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.c
}

// Merge validates that every key in updates is a recognized field, then
// applies the update and re-derives Config. On validation failure the
// existing configuration is left untouched.
func (m *Manager) Merge(updates map[string]any) (Config, error) {
	for key := range updates {
		if !knownKeys[key] {
			return Config{}, fmt.Errorf("%w: %q", ErrUnknownField, key)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, val := range updates {
		m.v.Set(key, val)
	}
	c, err := Load(m.v)
	if err != nil {
		return Config{}, err
	}
	m.c = c
	return m.c, nil
}
