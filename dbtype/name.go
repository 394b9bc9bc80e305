// Package dbtype defines Drawbridge's typed identifiers and the Meta
// triple. Every type here parses from, and formats back to, exactly one
// canonical string; parsing is total and deterministic and the same rules
// apply whether the identifier arrived from a URL segment or a stored
// path component.
package dbtype

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	userNameRe  = regexp.MustCompile(`^[0-9a-zA-Z]+$`)
	segmentRe   = regexp.MustCompile(`^[0-9a-zA-Z-]+$`)
	entryNameRe = regexp.MustCompile(`^[0-9a-zA-Z\-_.:]+$`)
	// pathSegRe matches the same grammar as entryNameRe: a tree path is a
	// '/'-separated sequence of tree entry names (each the name of one
	// directory-manifest child on the way down to the addressed node), so
	// the two grammars must agree — a URL path of .../tree/hello.txt
	// addresses the manifest entry named "hello.txt".
	pathSegRe = entryNameRe
)

// UserName is a nonempty alphanumeric account name.
type UserName string

// ParseUserName validates s against the user-name grammar.
func ParseUserName(s string) (UserName, error) {
	if !userNameRe.MatchString(s) {
		return "", fmt.Errorf("dbtype: invalid user name %q", s)
	}
	return UserName(s), nil
}

func (n UserName) String() string { return string(n) }

// RepositoryName is an owner, followed by one or more path segments, e.g.
// "alice/proj" or "alice/team/proj". Each segment is nonempty
// [0-9a-zA-Z-]+ and there are at least two segments total (owner + name).
type RepositoryName struct {
	Owner UserName
	Path  []string // group segments followed by the final name segment; len >= 1
}

// ParseRepositoryName splits s on '/' and validates every segment.
func ParseRepositoryName(s string) (RepositoryName, error) {
	parts := strings.Split(s, "/")
	if len(parts) < 2 {
		return RepositoryName{}, fmt.Errorf("dbtype: repository name %q needs an owner and a name", s)
	}
	owner, err := ParseUserName(parts[0])
	if err != nil {
		return RepositoryName{}, fmt.Errorf("dbtype: invalid repository owner: %w", err)
	}
	for _, seg := range parts[1:] {
		if !segmentRe.MatchString(seg) {
			return RepositoryName{}, fmt.Errorf("dbtype: invalid repository segment %q", seg)
		}
	}
	return RepositoryName{Owner: owner, Path: parts[1:]}, nil
}

// String renders the canonical "owner/group/.../name" form.
func (r RepositoryName) String() string {
	return string(r.Owner) + "/" + strings.Join(r.Path, "/")
}

// Name is the final, non-group segment of the repository path.
func (r RepositoryName) Name() string {
	return r.Path[len(r.Path)-1]
}

// TreePath is a '/'-separated sequence of segments; the empty path denotes
// the tree root.
type TreePath struct {
	Segments []string
}

// ParseTreePath validates every '/'-separated segment of s. An empty or
// "/" string is the root.
func ParseTreePath(s string) (TreePath, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return TreePath{}, nil
	}
	segs := strings.Split(s, "/")
	for _, seg := range segs {
		if !pathSegRe.MatchString(seg) {
			return TreePath{}, fmt.Errorf("dbtype: invalid tree path segment %q", seg)
		}
	}
	return TreePath{Segments: segs}, nil
}

// IsRoot reports whether p addresses the tree root.
func (p TreePath) IsRoot() bool { return len(p.Segments) == 0 }

// String renders the canonical '/'-joined form; the root renders as "".
func (p TreePath) String() string { return strings.Join(p.Segments, "/") }

// Parent returns the path one level up and the final segment name, or ok
// is false if p is already the root.
func (p TreePath) Parent() (parent TreePath, name string, ok bool) {
	if p.IsRoot() {
		return TreePath{}, "", false
	}
	last := len(p.Segments) - 1
	parentSegs := make([]string, last)
	copy(parentSegs, p.Segments[:last])
	return TreePath{Segments: parentSegs}, p.Segments[last], true
}

// TreeEntryName is the name of a single child within a directory manifest.
type TreeEntryName string

// ParseTreeEntryName validates s against the entry-name grammar.
func ParseTreeEntryName(s string) (TreeEntryName, error) {
	if !entryNameRe.MatchString(s) {
		return "", fmt.Errorf("dbtype: invalid tree entry name %q", s)
	}
	return TreeEntryName(s), nil
}

func (n TreeEntryName) String() string { return string(n) }
