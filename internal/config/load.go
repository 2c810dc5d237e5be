package config

import (
	"github.com/calderhale/keepsake-go/internal/core/domain"
	"github.com/calderhale/keepsake-go/internal/infra/confloader"
)

// Load assembles the effective configuration: defaults, then the YAML
// file at path (empty skips the file), then KEEPSAKE_ environment
// variables, with the legacy alias pass applied before unmarshaling.
// Callers run Verify separately so tooling can inspect a configuration
// it would reject.
func Load(path string) (*Config, error) {
	l := confloader.NewLoader()

	if path != "" {
		if err := l.LoadFile(path); err != nil {
			return nil, domain.ErrConfigInvalid.WithDetailsf("config file %s", path).WithCause(err)
		}
	}
	if err := l.LoadEnv(); err != nil {
		return nil, domain.ErrConfigInvalid.WithDetails("environment").WithCause(err)
	}
	if err := applyLegacy(l); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := l.Unmarshal(cfg); err != nil {
		return nil, domain.ErrConfigInvalid.WithDetails("unmarshal").WithCause(err)
	}
	return cfg, nil
}
