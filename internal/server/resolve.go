package server

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// RejectReason tells why a request path could not be mapped onto a file
// under the document root.
type RejectReason string

const (
	ReasonTraversal     RejectReason = "traversal"
	ReasonNotFound      RejectReason = "not-found"
	ReasonForbiddenName RejectReason = "forbidden-name"
)

// Resolution is the outcome of mapping a URL path onto the document root.
// Either Reason is empty and Path/Info describe an existing entry, or
// Reason is set and the request must be answered with 404.
type Resolution struct {
	// Name is the cleaned, slash separated URL path, always rooted at "/".
	Name string
	// Path is the symlink-free filesystem path inside the root.
	Path string
	Info fs.FileInfo

	Reason RejectReason
	Err    error
}

func (r Resolution) OK() bool {
	return r.Reason == ""
}

func rejected(name string, reason RejectReason, err error) Resolution {
	return Resolution{Name: name, Reason: reason, Err: err}
}

// Resolver maps URL paths onto files under a fixed root directory.
type Resolver struct {
	root string
}

// NewResolver resolves root to an absolute, symlink-free directory path.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(real)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errNotADirectory
	}
	return &Resolver{root: real}, nil
}

func (r *Resolver) Root() string {
	return r.root
}

// Resolve maps the decoded URL path p onto the root.
//
// A path is rejected as traversal when any of its segments is "..", even
// if cleaning would keep it inside the root, and when the target, after
// following symlinks, lies outside the root.
func (r *Resolver) Resolve(p string) Resolution {
	if strings.ContainsRune(p, 0) || strings.ContainsRune(p, '\\') {
		return rejected(p, ReasonForbiddenName, nil)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return rejected(p, ReasonTraversal, nil)
		}
	}

	name := path.Clean("/" + p)
	full := filepath.Join(r.root, filepath.FromSlash(strings.TrimPrefix(name, "/")))
	if !within(r.root, full) {
		return rejected(name, ReasonTraversal, nil)
	}

	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		return rejected(name, ReasonNotFound, err)
	}
	if !within(r.root, real) {
		return rejected(name, ReasonTraversal, nil)
	}

	fi, err := os.Stat(real)
	if err != nil {
		return rejected(name, ReasonNotFound, err)
	}

	return Resolution{
		Name: name,
		Path: real,
		Info: fi,
	}
}

// within reports whether p is root or lies below it. Both must be clean
// absolute paths.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
