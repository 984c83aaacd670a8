// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Stakeholder Contributors

package rules

import (
	"os"
	"time"
)

// Source supplies the rules document and its modification timestamp.
// The Store polls ModTime before every read and reloads on change.
type Source interface {
	// ModTime returns the source's current modification timestamp.
	ModTime() (time.Time, error)

	// Load returns the complete rules document.
	Load() ([]byte, error)

	// String describes the source for logs and errors.
	String() string
}

// FileSource reads rules from a file on disk.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) FileSource {
	return FileSource{path: path}
}

// ModTime returns the file's modification time.
func (f FileSource) ModTime() (time.Time, error) {
	fi, err := os.Stat(f.path)
	if err != nil {
		return time.Time{}, err
	}
	return fi.ModTime(), nil
}

// Load reads the whole file.
func (f FileSource) Load() ([]byte, error) {
	return os.ReadFile(f.path)
}

func (f FileSource) String() string { return f.path }

var _ Source = FileSource{}
