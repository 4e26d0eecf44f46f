// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package calcjob

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Folder is a flat scratch directory holding the files of one calculation.
// Names are always relative to the folder and may not escape it.
type Folder struct {
	path string
}

// NewFolder creates a fresh folder under parent, or under the system temp
// directory when parent is empty.
func NewFolder(parent, pattern string) (*Folder, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create folder parent '%s': %w", parent, err)
		}
	}
	dir, err := os.MkdirTemp(parent, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create folder: %w", err)
	}
	return &Folder{path: dir}, nil
}

// OpenFolder wraps an existing directory.
func OpenFolder(path string) (*Folder, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s' is not a directory", path)
	}
	return &Folder{path: path}, nil
}

// Path is the absolute location of the folder on disk.
func (f *Folder) Path() string {
	return f.path
}

func (f *Folder) resolve(name string) (string, error) {
	clean := filepath.Clean(name)
	if name == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file name '%s' for folder", name)
	}
	return filepath.Join(f.path, clean), nil
}

// CopyIn copies the file at src into the folder under name.
func (f *Folder) CopyIn(src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", src, err)
	}
	defer in.Close()
	return f.Write(name, in)
}

// Write stores the content of r under name.
func (f *Folder) Write(name string, r io.Reader) error {
	dst, err := f.resolve(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", dst, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write '%s': %w", dst, err)
	}
	return out.Close()
}

// Exists reports whether a regular file called name is in the folder.
func (f *Folder) Exists(name string) bool {
	p, err := f.resolve(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Open opens name for reading.
func (f *Folder) Open(name string) (*os.File, error) {
	p, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// List returns the names of the regular files in the folder, sorted.
func (f *Folder) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(f.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, relErr := filepath.Rel(f.path, path)
			if relErr != nil {
				return relErr
			}
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Remove deletes the folder and everything in it.
func (f *Folder) Remove() error {
	if err := os.RemoveAll(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Retrieve copies every name in names that exists in src into a new folder
// under parent. Missing files are skipped; deciding whether that is a
// failure is up to the parser.
func Retrieve(src *Folder, parent string, names []string) (*Folder, error) {
	dst, err := NewFolder(parent, "retrieved-*")
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		if !src.Exists(name) {
			continue
		}
		in, err := src.Open(name)
		if err != nil {
			dst.Remove()
			return nil, err
		}
		err = dst.Write(name, in)
		in.Close()
		if err != nil {
			dst.Remove()
			return nil, err
		}
	}
	return dst, nil
}
