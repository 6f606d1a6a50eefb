package config

import (
	"mediasort/pkg/imports"
	"mediasort/pkg/storage"
)

const (
	defaultConfigPath   = "~/.config/mediasort/config.toml"
	projectConfigName   = "mediasort.toml"
	defaultOutputName   = "Years"
	defaultAPIBind      = "127.0.0.1:8080"
	defaultWorkers      = 4
	defaultHEICBinary   = "magick"
	heicOriginalsDelete = "delete"
	heicOriginalsMove   = "move"
	defaultLogLevel     = "info"
	defaultLogFormat    = "text"
)

// Default returns a Config populated with built-in defaults: a nested
// year/month tree, duplicates left alone and suffixing on collisions.
func Default() Config {
	return Config{
		Paths: Paths{
			APIBind: defaultAPIBind,
		},
		Layout: Layout{
			Year:   true,
			Month:  true,
			Nested: true,
		},
		Duplicates: Duplicates{
			Mode: string(imports.DuplicatesOff),
		},
		Move: Move{
			OnCollision: string(storage.CollisionSuffix),
		},
		Extract: Extract{
			Workers: defaultWorkers,
		},
		Catalog: Catalog{
			Enabled: true,
		},
		HEIC: HEIC{
			Binary:    defaultHEICBinary,
			Originals: heicOriginalsMove,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
