// Package loquidir encapsulates all path knowledge for the .loqui/
// directory that holds per-project configuration and runtime state.
package loquidir

import (
	"fmt"
	"os"
	"path/filepath"
)

// Name is the directory name looked up relative to the working directory.
const Name = ".loqui"

const gitignoreContent = "sessions/\n"

// Dir is a value object that resolves paths within a .loqui/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .loqui/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// SessionsDir returns the path to the saved-sessions directory.
func (d Dir) SessionsDir() string { return filepath.Join(d.root, "sessions") }

// GitignorePath returns the path to the .gitignore file inside .loqui/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the .loqui/ root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}

// HasConfig reports whether the config file exists.
func (d Dir) HasConfig() bool {
	_, err := os.Stat(d.ConfigPath())

	return err == nil
}

// EnsureStructure creates the directory layout and .gitignore file if
// missing. It is safe to call multiple times.
func EnsureStructure(d Dir) error {
	if err := os.MkdirAll(d.SessionsDir(), 0o750); err != nil {
		return fmt.Errorf("loquidir: create sessions dir: %w", err)
	}

	if err := ensureGitignore(d); err != nil {
		return fmt.Errorf("loquidir: gitignore: %w", err)
	}

	return nil
}

// ensureGitignore creates the .gitignore file if it does not exist.
func ensureGitignore(d Dir) error {
	path := d.GitignorePath()

	if _, err := os.Stat(path); err == nil {
		return nil // already exists
	}

	return os.WriteFile(path, []byte(gitignoreContent), 0o600)
}
