// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package artifact stores the files a run produces, one directory per file,
// so a later step or the CLI can read them back by id. Content is kept
// zstd-compressed next to a JSON sidecar holding its name, size and BLAKE3
// digest.
package artifact

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/vk/meshgrid/internal/ctxlog"
	"github.com/zeebo/blake3"
)

// ErrNotFound is returned for ids the store does not hold.
var ErrNotFound = errors.New("artifact not found")

const (
	contentFile = "content.zst"
	metaFile    = "meta.json"
)

// Artifact is the metadata of one stored file.
type Artifact struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Size      int64     `json:"size"`
	Digest    string    `json:"blake3"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a directory-backed artifact store. It is safe for concurrent use
// as long as callers do not share ids.
type Store struct {
	root string
}

// NewStore opens (creating if needed) a store rooted at dir.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("artifact store directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact store '%s': %w", dir, err)
	}
	return &Store{root: dir}, nil
}

// Root is the store directory.
func (s *Store) Root() string {
	return s.root
}

// Put stores the content of r under a new id.
func (s *Store) Put(ctx context.Context, filename string, r io.Reader) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx)
	id := uuid.NewString()
	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	art, err := s.writeContent(dir, r)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to store '%s': %w", filename, err)
	}
	art.ID = id
	art.Filename = filepath.Base(filename)
	art.CreatedAt = time.Now().UTC()

	meta, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, metaFile), meta, 0o644); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	logger.Debug("Stored artifact.", "id", id, "filename", art.Filename, "size", art.Size, "blake3", art.Digest)
	return art, nil
}

// PutFile stores the file at path under its base name.
func (s *Store) PutFile(ctx context.Context, path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Put(ctx, filepath.Base(path), f)
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

func (s *Store) writeContent(dir string, r io.Reader) (*Artifact, error) {
	f, err := os.Create(filepath.Join(dir, contentFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f)
	if err != nil {
		return nil, err
	}
	hasher := blake3.New()
	counter := &countingWriter{}
	if _, err := io.Copy(io.MultiWriter(enc, hasher, counter), r); err != nil {
		enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return &Artifact{
		Size:   counter.n,
		Digest: hex.EncodeToString(hasher.Sum(nil)),
	}, f.Sync()
}

// Get returns the metadata for id.
func (s *Store) Get(id string) (*Artifact, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	data, err := os.ReadFile(filepath.Join(s.root, id, metaFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	var art Artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("corrupt metadata for artifact %q: %w", id, err)
	}
	return &art, nil
}

// Open returns a reader over the decompressed content of id.
func (s *Store) Open(id string) (io.ReadCloser, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(s.root, id, contentFile))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &decodingReader{dec: dec, f: f}, nil
}

type decodingReader struct {
	dec *zstd.Decoder
	f   *os.File
}

func (d *decodingReader) Read(p []byte) (int, error) {
	return d.dec.Read(p)
}

func (d *decodingReader) Close() error {
	d.dec.Close()
	return d.f.Close()
}

// ReadAll returns the whole decompressed content of id.
func (s *Store) ReadAll(id string) ([]byte, error) {
	rc, err := s.Open(id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Verify recomputes the digest of id and compares it with the metadata.
func (s *Store) Verify(id string) error {
	art, err := s.Get(id)
	if err != nil {
		return err
	}
	rc, err := s.Open(id)
	if err != nil {
		return err
	}
	defer rc.Close()
	hasher := blake3.New()
	if _, err := io.Copy(hasher, rc); err != nil {
		return err
	}
	if got := hex.EncodeToString(hasher.Sum(nil)); got != art.Digest {
		return fmt.Errorf("artifact %q digest mismatch: have %s, want %s", id, got, art.Digest)
	}
	return nil
}

// List returns all artifacts, oldest first.
func (s *Store) List() ([]*Artifact, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []*Artifact
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		art, err := s.Get(e.Name())
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, art)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
