// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package artifact

import (
	"context"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/blake3"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "store"))
	require.NoError(t, err)
	return s
}

func TestStore_PutGetRead(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	s := newTestStore(t)
	content := strings.Repeat("$Nodes\n1 0 0 0\n$EndNodes\n", 100)

	// --- Act ---
	art, err := s.Put(context.Background(), "some/dir/mesh.msh", strings.NewReader(content))

	// --- Assert ---
	require.NoError(t, err)
	_, err = uuid.Parse(art.ID)
	require.NoError(t, err, "ids are uuids")
	assert.Equal(t, "mesh.msh", art.Filename)
	assert.Equal(t, int64(len(content)), art.Size)

	sum := blake3.Sum256([]byte(content))
	assert.Equal(t, hex.EncodeToString(sum[:]), art.Digest)

	got, err := s.Get(art.ID)
	require.NoError(t, err)
	assert.Equal(t, art.ID, got.ID)
	assert.Equal(t, art.Digest, got.Digest)
	assert.True(t, art.CreatedAt.Equal(got.CreatedAt))

	data, err := s.ReadAll(art.ID)
	require.NoError(t, err)
	assert.Equal(t, content, string(data))

	raw, err := os.ReadFile(filepath.Join(s.Root(), art.ID, contentFile))
	require.NoError(t, err)
	assert.Less(t, len(raw), len(content), "content should be stored compressed")

	require.NoError(t, s.Verify(art.ID))
}

func TestStore_PutFile(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	path := filepath.Join(t.TempDir(), "square.msh")
	require.NoError(t, os.WriteFile(path, []byte("mesh"), 0o644))

	art, err := s.PutFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "square.msh", art.Filename)
	assert.Equal(t, int64(4), art.Size)
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, id := range []string{"not-a-uuid", uuid.NewString(), "../../etc"} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
		_, err = s.Open(id)
		assert.ErrorIs(t, err, ErrNotFound, "id %q", id)
	}
}

func TestStore_VerifyDetectsTampering(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	art, err := s.Put(context.Background(), "mesh.msh", strings.NewReader("original"))
	require.NoError(t, err)

	other, err := s.Put(context.Background(), "other.msh", strings.NewReader("tampered"))
	require.NoError(t, err)
	swapped, err := os.ReadFile(filepath.Join(s.Root(), other.ID, contentFile))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), art.ID, contentFile), swapped, 0o644))

	err = s.Verify(art.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest mismatch")
}

func TestStore_List(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	first, err := s.Put(context.Background(), "a.msh", strings.NewReader("a"))
	require.NoError(t, err)
	second, err := s.Put(context.Background(), "b.msh", strings.NewReader("b"))
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(s.Root(), "stray"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "README"), nil, 0o644))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
	assert.False(t, list[1].CreatedAt.Before(list[0].CreatedAt), "list is ordered oldest first")
}

func TestNewStore_EmptyDir(t *testing.T) {
	t.Parallel()

	_, err := NewStore("")
	assert.Error(t, err)
}
