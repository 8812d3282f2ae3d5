package paths

import (
	"path/filepath"
	"strings"
)

// VirtualRoot is the reserved prefix that names the exported root.
const VirtualRoot = "/__cross_profile_root__"

// Resolver rewrites virtual paths to real ones. The zero value passes every
// path through unchanged.
type Resolver struct {
	root string
}

// NewResolver returns a Resolver that substitutes root for VirtualRoot.
// Relative roots are made absolute once, here.
func NewResolver(root string) Resolver {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return Resolver{root: root}
}

// Root returns the real root directory.
func (r Resolver) Root() string {
	return r.root
}

// Resolve replaces a leading VirtualRoot with the real root and keeps the
// remainder verbatim. Any other path is returned as is. It never touches
// the filesystem and cannot fail.
func (r Resolver) Resolve(path string) string {
	if r.root == "" || !strings.HasPrefix(path, VirtualRoot) {
		return path
	}
	return r.root + path[len(VirtualRoot):]
}
