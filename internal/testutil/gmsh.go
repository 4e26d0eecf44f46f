// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// MSH41UnitSquare is a two-triangle unit square in gmsh format 4.1.
const MSH41UnitSquare = `$MeshFormat
4.1 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "surface"
$EndPhysicalNames
$Entities
4 4 1 0
1 0 0 0 0
2 1 0 0 0
3 1 1 0 0
4 0 1 0 0
1 0 0 0 1 0 0 0 2 1 -2
2 1 0 0 1 1 0 0 2 2 -3
3 0 1 0 1 1 0 0 2 3 -4
4 0 0 0 0 1 0 0 2 4 -1
1 0 0 0 1 1 0 1 1 4 1 2 3 4
$EndEntities
$Nodes
1 4 1 4
2 1 0 4
1
2
3
4
0 0 0
1 0 0
1 1 0
0 1 0
$EndNodes
$Elements
1 2 1 2
2 1 2 2
1 1 2 3
2 1 3 4
$EndElements
`

// MSH22UnitSquare is the same mesh in the legacy 2.2 format.
const MSH22UnitSquare = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "surface"
$EndPhysicalNames
$Nodes
4
1 0 0 0
2 1 0 0
3 1 1 0
4 0 1 0
$EndNodes
$Elements
2
1 2 2 1 1 1 2 3
2 2 2 1 1 1 3 4
$EndElements
`

// UnitSquareGeo is a gmsh geometry for a unit square with one physical surface.
const UnitSquareGeo = `Point(1) = {0, 0, 0, 1.0};
Point(2) = {1, 0, 0, 1.0};
Point(3) = {1, 1, 0, 1.0};
Point(4) = {0, 1, 0, 1.0};
Line(1) = {1, 2};
Line(2) = {2, 3};
Line(3) = {3, 4};
Line(4) = {4, 1};
Curve Loop(1) = {1, 2, 3, 4};
Plane Surface(1) = {1};
Physical Surface("surface") = {1};
`

// FakeGmshMode selects how a fake gmsh executable behaves.
type FakeGmshMode int

const (
	// FakeGmshWritesMesh writes MSH41UnitSquare to the -o file, or to
	// <geofile>.msh without -o.
	FakeGmshWritesMesh FakeGmshMode = iota
	// FakeGmshWritesNothing exits 0 without writing a mesh.
	FakeGmshWritesNothing
	// FakeGmshWritesGarbage writes a file that is not a mesh.
	FakeGmshWritesGarbage
	// FakeGmshFails prints an error and exits 1.
	FakeGmshFails
)

// FakeGmsh is a shell script standing in for the gmsh executable.
type FakeGmsh struct {
	Path     string
	argsFile string
}

// Args returns the arguments of the last invocation, one per element.
func (f *FakeGmsh) Args(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(f.argsFile)
	require.NoError(t, err, "fake gmsh was never invoked")
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// WriteFakeGmsh writes an executable script into dir. Tests using it are
// skipped on Windows.
func WriteFakeGmsh(t *testing.T, dir string, mode FakeGmshMode) *FakeGmsh {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake gmsh executable requires a POSIX shell")
	}

	argsFile := filepath.Join(dir, "fake-gmsh-args.txt")
	var body string
	switch mode {
	case FakeGmshWritesMesh:
		body = "cat > \"$out\" <<'MSH'\n" + MSH41UnitSquare + "MSH\n"
	case FakeGmshWritesNothing:
		body = "echo 'Info    : Done meshing'\n"
	case FakeGmshWritesGarbage:
		body = "echo 'not a mesh' > \"$out\"\n"
	case FakeGmshFails:
		body = "echo 'Error   : Unknown option' >&2\nexit 1\n"
	}

	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' "$@" > %q
out=""
geo=""
while [ $# -gt 0 ]; do
  case "$1" in
    -o) out="$2"; shift ;;
    -*) ;;
    *) if [ -z "$geo" ]; then geo="$1"; fi ;;
  esac
  shift
done
if [ -z "$out" ]; then out="${geo%%.*}.msh"; fi
%s`, argsFile, body)

	path := filepath.Join(dir, "fake-gmsh")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return &FakeGmsh{Path: path, argsFile: argsFile}
}
