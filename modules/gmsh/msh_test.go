// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package gmsh_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/meshgrid/internal/testutil"
	"github.com/vk/meshgrid/modules/gmsh"
)

func TestReadMSH_Formats(t *testing.T) {
	t.Parallel()

	want := &gmsh.Mesh{
		PhysicalNames:  []gmsh.PhysicalName{{Dim: 2, Tag: 1, Name: "surface"}},
		NumNodes:       4,
		NumElements:    2,
		ElementsByType: map[int]int{2: 2},
		DataSize:       8,
	}

	testCases := []struct {
		name        string
		src         string
		wantVersion string
	}{
		{name: "format 4.1", src: testutil.MSH41UnitSquare, wantVersion: "4.1"},
		{name: "format 2.2", src: testutil.MSH22UnitSquare, wantVersion: "2.2"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			mesh, err := gmsh.ReadMSH(strings.NewReader(tc.src))
			require.NoError(t, err)

			assert.Equal(t, tc.wantVersion, mesh.Version)
			assert.False(t, mesh.Binary)
			assert.Equal(t, 2, mesh.Dims())
			if diff := cmp.Diff(want, mesh, cmpopts.IgnoreFields(gmsh.Mesh{}, "Version"), cmpopts.IgnoreUnexported(gmsh.Mesh{})); diff != "" {
				t.Errorf("mesh mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadMSH_BinaryHeaderOnly(t *testing.T) {
	t.Parallel()

	src := "$MeshFormat\n4.1 1 8\n\x01\x00\x00\x00\n$EndMeshFormat\n\x00\xff\xfe binary payload"
	mesh, err := gmsh.ReadMSH(strings.NewReader(src))
	require.NoError(t, err)
	assert.True(t, mesh.Binary)
	assert.Equal(t, "4.1", mesh.Version)
	assert.Zero(t, mesh.NumNodes)
}

func TestReadMSH_PhysicalNamesWhitespace(t *testing.T) {
	t.Parallel()

	src := "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n" +
		"$PhysicalNames\n3\n" +
		"1\t7\t\"inlet\"\n" +
		"2   1   \"fluid domain\"\n" +
		"3 2 wall\n" +
		"$EndPhysicalNames\n"

	mesh, err := gmsh.ReadMSH(strings.NewReader(src))
	require.NoError(t, err)

	want := []gmsh.PhysicalName{
		{Dim: 1, Tag: 7, Name: "inlet"},
		{Dim: 2, Tag: 1, Name: "fluid domain"},
		{Dim: 3, Tag: 2, Name: "wall"},
	}
	if diff := cmp.Diff(want, mesh.PhysicalNames); diff != "" {
		t.Errorf("physical names mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, mesh.Dims())
}

func TestReadMSH_Invalid(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "empty", src: "", wantErr: "missing $MeshFormat"},
		{name: "plain text", src: "not a mesh\n", wantErr: "expected a section marker"},
		{name: "no format first", src: "$Nodes\n0\n$EndNodes\n", wantErr: "does not start with $MeshFormat"},
		{name: "bad header", src: "$MeshFormat\n4.1 0\n$EndMeshFormat\n", wantErr: "want 'version file-type data-size'"},
		{name: "unsupported version", src: "$MeshFormat\n3.0 0 8\n$EndMeshFormat\n", wantErr: "unsupported version 3.0"},
		{name: "unterminated section", src: "$MeshFormat\n4.1 0 8\n", wantErr: "missing $EndMeshFormat"},
		{
			name:    "truncated elements",
			src:     "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Elements\n3\n1 2 2 1 1 1 2 3\n",
			wantErr: "want 3 elements, got 1",
		},
		{
			name:    "bad physical name",
			src:     "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$PhysicalNames\n1\nx 1 \"a\"\n$EndPhysicalNames\n",
			wantErr: "bad dim or tag",
		},
		{
			name:    "physical name without a name",
			src:     "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$PhysicalNames\n1\n2\t1\n$EndPhysicalNames\n",
			wantErr: "want 'dim tag \"name\"'",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := gmsh.ReadMSH(strings.NewReader(tc.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestMesh_Summary(t *testing.T) {
	t.Parallel()

	mesh, err := gmsh.ReadMSH(strings.NewReader(testutil.MSH41UnitSquare))
	require.NoError(t, err)

	summary := mesh.Summary()
	assert.Contains(t, summary, "format:   4.1 (ascii, data size 8)")
	assert.Contains(t, summary, "nodes:    4")
	assert.Contains(t, summary, "elements: 2")
	assert.Contains(t, summary, `physical: 2 1 "surface"`)
}
