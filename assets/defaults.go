package assets

import (
	"embed"
)

// DefaultConfigYAML contains the embedded default configuration.
//
//go:embed defaults/config.yaml
var DefaultConfigYAML []byte

// StaticFS holds the embedded chat web UI.
//
//go:embed static
var StaticFS embed.FS
