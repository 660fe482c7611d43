// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package transcode

import "os"

// FS abstracts filesystem operations for testability.
type FS interface {
	// Stat returns FileInfo for the named file.
	Stat(name string) (os.FileInfo, error)

	// MkdirAll creates a directory and any necessary parents.
	MkdirAll(path string, perm os.FileMode) error
}

// RealFS uses actual os operations.
type RealFS struct{}

func (RealFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (RealFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}
