// Package buildinfo exposes the version stamped into the keepsake
// binary at build time.
//
// Values are injected via ldflags:
//
//	go build -ldflags "-X github.com/calderhale/keepsake-go/internal/infra/buildinfo.Version=v1.2.0"
//
// The version doubles as the default save format version: artifacts
// written by a build carry it unless the configuration overrides
// saves.format_version.
package buildinfo
