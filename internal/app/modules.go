// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"io"
	"net/http"

	"github.com/vk/meshgrid/internal/artifact"
	"github.com/vk/meshgrid/internal/calcjob"
	"github.com/vk/meshgrid/internal/registry"
	"github.com/vk/meshgrid/modules/env"
	"github.com/vk/meshgrid/modules/gmsh"
	"github.com/vk/meshgrid/modules/print"
	"github.com/vk/meshgrid/modules/publish"
)

// coreModules is the definitive list of all modules that are compiled into
// the meshgrid binary, wired to this app's store and output.
func coreModules(cfg *Config, store *artifact.Store, outW io.Writer) []registry.Module {
	return []registry.Module{
		&gmsh.Module{
			Store:       store,
			Runner:      &calcjob.LocalRunner{MPILauncher: cfg.MPILauncher},
			WorkDir:     cfg.WorkDir,
			KeepWorkDir: cfg.KeepWorkDir,
		},
		&print.Module{Out: outW},
		&publish.Module{Store: store, Client: &http.Client{}},
		&env.Module{},
	}
}
