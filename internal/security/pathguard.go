// Package security confines file paths read from untrusted logs, such as
// frame paths in the frames log, to configured root directories.
package security

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrOutsideRoot is returned for paths that resolve outside every root.
var ErrOutsideRoot = errors.New("path outside allowed roots")

// canonical resolves path to an absolute path with symlinks evaluated. For
// paths that do not exist yet the nearest existing parent is resolved, so a
// symlinked parent directory cannot be used to escape.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		return resolved, nil
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if resolved, err := filepath.EvalSymlinks(dir); err == nil {
			rel, _ := filepath.Rel(dir, abs)
			return filepath.Join(resolved, rel), nil
		}
		if filepath.Dir(dir) == dir {
			return abs, nil
		}
	}
}

// WithinRoot reports an error unless path resolves inside root.
func WithinRoot(path, root string) error {
	canonPath, err := canonical(path)
	if err != nil {
		return err
	}
	canonRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return fmt.Errorf("failed to resolve root %s: %w", root, err)
	}
	if canonRoot, err = filepath.Abs(canonRoot); err != nil {
		return err
	}
	rel, err := filepath.Rel(canonRoot, canonPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s escapes %s", ErrOutsideRoot, path, root)
	}
	return nil
}

// PathGuard accepts paths under any of its roots. A guard without roots
// accepts every path.
type PathGuard struct {
	roots []string
}

// NewPathGuard builds a guard over roots; empty entries are ignored.
func NewPathGuard(roots ...string) *PathGuard {
	g := &PathGuard{}
	for _, r := range roots {
		if r != "" {
			g.roots = append(g.roots, r)
		}
	}
	return g
}

// Roots returns the configured roots.
func (g *PathGuard) Roots() []string { return g.roots }

// Check returns nil when path lies under one of the roots.
func (g *PathGuard) Check(path string) error {
	if len(g.roots) == 0 {
		return nil
	}
	for _, root := range g.roots {
		if WithinRoot(path, root) == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s not under %v", ErrOutsideRoot, path, g.roots)
}
