// Package config reads the service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// maxPort is exclusive: historical deployments reserve 25565 and above.
const maxPort = 25565

// Config is the parsed environment, handed to the core as a struct.
type Config struct {
	// DatabaseURL is the metadata store DSN: postgres:// / postgresql://
	// for Postgres, anything else is treated as a SQLite path or DSN.
	DatabaseURL string

	// ImagePath is the object-store root directory.
	ImagePath string

	// ImageTTL is the server-side cap on derivative lifetimes. Zero means
	// no cap is configured and every upload must request its own TTL.
	ImageTTL time.Duration

	// MaxImageSize limits the upload body in bytes. Zero means unlimited.
	MaxImageSize int64

	// BackendPort is the HTTP listen port.
	BackendPort uint16

	// Reserved knobs: parsed and validated, currently unenforced.
	MaxImageWidth  uint32
	MaxImageHeight uint32
	MaxMemoryUsage uint32
}

// FromEnv builds a Config from environment variables, applying defaults
// and validating ranges.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		ImagePath:   "images",
		BackendPort: 8080,
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if v := os.Getenv("IMAGE_PATH"); v != "" {
		cfg.ImagePath = v
	}

	if v := os.Getenv("IMAGE_TTL_SECS"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil || secs <= 0 {
			return nil, fmt.Errorf("IMAGE_TTL_SECS must be a positive integer, got %q", v)
		}
		cfg.ImageTTL = time.Duration(secs) * time.Second
	}

	if v := os.Getenv("MAX_IMAGE_SIZE"); v != "" {
		size, err := strconv.ParseInt(v, 10, 64)
		if err != nil || size <= 0 {
			return nil, fmt.Errorf("MAX_IMAGE_SIZE must be a positive integer, got %q", v)
		}
		cfg.MaxImageSize = size
	}

	if v := os.Getenv("BACKEND_PORT"); v != "" {
		port, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("BACKEND_PORT must be a u16, got %q", v)
		}
		cfg.BackendPort = uint16(port)
	}
	if cfg.BackendPort >= maxPort {
		return nil, fmt.Errorf("BACKEND_PORT must be below %d, got %d", maxPort, cfg.BackendPort)
	}

	for _, knob := range []struct {
		name string
		dst  *uint32
	}{
		{"MAX_IMAGE_WIDTH", &cfg.MaxImageWidth},
		{"MAX_IMAGE_HEIGHT", &cfg.MaxImageHeight},
		{"MAX_MEMORY_USAGE", &cfg.MaxMemoryUsage},
	} {
		if v := os.Getenv(knob.name); v != "" {
			n, err := strconv.ParseUint(v, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("%s must be a u32, got %q", knob.name, v)
			}
			*knob.dst = uint32(n)
		}
	}

	return cfg, nil
}
