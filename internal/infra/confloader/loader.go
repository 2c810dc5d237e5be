package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the environment variable prefix.
const DefaultEnvPrefix = "KEEPSAKE_"

// Loader merges configuration from a YAML file and the environment into
// one key space and unmarshals it into a target struct.
type Loader struct {
	k         *koanf.Koanf
	envPrefix string
	filePath  string
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix overrides the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the configuration file loaded by Load. Empty means
// environment only.
func WithConfigFile(path string) Option {
	return func(l *Loader) {
		l.filePath = path
	}
}

// NewLoader returns a Loader with an empty key space.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load merges the configuration file (when set) and the environment,
// then unmarshals the result into target. Fields absent from every
// source keep the values target already carries, which is how defaults
// survive the merge.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath); err != nil {
			return err
		}
	}
	if err := l.LoadEnv(); err != nil {
		return err
	}
	return l.Unmarshal(target)
}

// LoadFile merges a YAML file into the key space.
func (l *Loader) LoadFile(path string) error {
	if path == "" {
		return nil
	}
	if err := l.k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("confloader: load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges prefixed environment variables into the key space.
// The first underscore after the prefix separates section from key;
// later underscores stay part of the key name, so
// KEEPSAKE_BACKUP_MAX_PER_SLOT becomes backup.max_per_slot.
func (l *Loader) LoadEnv() error {
	transform := func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, l.envPrefix))
		return strings.Join(strings.SplitN(s, "_", 2), ".")
	}
	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("confloader: load env: %w", err)
	}
	return nil
}

// LoadMap merges literal key/value pairs into the key space. Dotted
// keys are unflattened on the way in, so "backup.max_per_slot" lands
// under the backup section. Used by the legacy alias pass.
func (l *Loader) LoadMap(values map[string]any) error {
	if err := l.k.Load(confmap.Provider(values, "."), nil); err != nil {
		return fmt.Errorf("confloader: load map: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged key space into target via koanf tags.
func (l *Loader) Unmarshal(target any) error {
	if err := l.k.Unmarshal("", target); err != nil {
		return fmt.Errorf("confloader: unmarshal: %w", err)
	}
	return nil
}

// Has reports whether a key is present in any loaded source.
func (l *Loader) Has(key string) bool {
	return l.k.Exists(key)
}

// Get returns the raw merged value of a key, or nil when absent.
func (l *Loader) Get(key string) any {
	return l.k.Get(key)
}

// All returns the merged key space as a flat map.
func (l *Loader) All() map[string]any {
	return l.k.All()
}
