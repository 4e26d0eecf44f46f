// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrInvalidConfig is wrapped by every NewConfig validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultStorePath is where meshes are stored when no store is configured.
var DefaultStorePath = filepath.Join(".meshgrid", "store")

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	GridPath    string // hcl files
	ModulesPath string // extra runner manifests, optional

	StorePath   string
	WorkDir     string // parent of execution folders, empty for the temp dir
	KeepWorkDir bool
	// MPILauncher prefixes gmsh when a step sets with_mpi, e.g. "mpirun -np 4".
	MPILauncher []string

	LogFormat       string
	LogLevel        string
	HealthcheckPort int
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.GridPath == "" {
		return nil, fmt.Errorf("%w: GridPath is a required configuration field and cannot be empty", ErrInvalidConfig)
	}

	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	switch cfg.LogFormat {
	case "":
		cfg.LogFormat = "text"
	case "text", "json":
	default:
		return nil, fmt.Errorf("%w: invalid log-format %q: must be 'text' or 'json'", ErrInvalidConfig, cfg.LogFormat)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	switch cfg.LogLevel {
	case "":
		cfg.LogLevel = "info"
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("%w: invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", ErrInvalidConfig, cfg.LogLevel)
	}

	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		return nil, fmt.Errorf("%w: healthcheck port %d out of range", ErrInvalidConfig, cfg.HealthcheckPort)
	}

	if cfg.StorePath == "" {
		cfg.StorePath = DefaultStorePath
	}

	return &cfg, nil
}
