// Package sandbox resolves client-supplied paths against a fixed public root.
//
// Resolution is purely lexical: parent-directory segments are rejected and
// single-dot segments are dropped. Symlinks inside the root are not chased.
package sandbox

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrTraversal   = errors.New("sandbox: parent-directory segment rejected")
	ErrInvalidRoot = errors.New("sandbox: invalid public root")
)

// Resolver joins request paths to one absolute public root.
type Resolver struct {
	root string
}

func NewResolver(root string) (*Resolver, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, ErrInvalidRoot
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, ErrInvalidRoot
	}
	return &Resolver{root: abs}, nil
}

// Root returns the absolute public root directory.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve joins requested onto the root and returns an absolute path that is
// lexically contained within it. Any ".." segment, at any position and with
// any repetition, rejects the whole request.
func (r *Resolver) Resolve(requested string) (string, error) {
	rel, err := Contain(requested)
	if err != nil {
		return "", err
	}
	if rel == "" {
		return r.root, nil
	}
	return filepath.Join(r.root, filepath.FromSlash(rel)), nil
}

// Contain normalizes a slash-separated request path into a clean relative
// path, without touching the filesystem. Redundant separators and "."
// segments are dropped; ".." segments are rejected outright.
func Contain(requested string) (string, error) {
	segments := strings.Split(requested, "/")
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		switch seg {
		case "", ".":
			continue
		case "..":
			return "", ErrTraversal
		}
		kept = append(kept, seg)
	}
	return strings.Join(kept, "/"), nil
}
