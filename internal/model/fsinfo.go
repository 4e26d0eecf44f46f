// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "path/filepath"

// FSInfo links a parsed definition back to the file it came from.
type FSInfo struct {
	FilePath string
}

// NewFSInfo records filePath.
func NewFSInfo(filePath string) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
	}
}

// Dir is the directory of the source file, exposed to step arguments as
// path.grid.
func (f *FSInfo) Dir() string {
	if f == nil || f.FilePath == "" {
		return "."
	}
	return filepath.Dir(f.FilePath)
}
