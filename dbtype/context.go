package dbtype

import "path"

// UserContext identifies a user entity.
type UserContext struct {
	Name UserName
}

// StorePath returns the Entity Store path rooted at this user.
func (c UserContext) StorePath() string {
	return path.Join("users", string(c.Name))
}

// RepositoryContext identifies a repository entity, owned by a user.
type RepositoryContext struct {
	Owner UserContext
	Name  RepositoryName
}

// StorePath returns the Entity Store path rooted at this repository.
func (c RepositoryContext) StorePath() string {
	return path.Join(append([]string{c.Owner.StorePath(), "repos"}, c.Name.Path...)...)
}

// TagContext identifies a tag entity within a repository.
type TagContext struct {
	Repository RepositoryContext
	Name       TagName
}

// StorePath returns the Entity Store path rooted at this tag.
func (c TagContext) StorePath() string {
	return path.Join(c.Repository.StorePath(), "tags", c.Name.String())
}

// TreeContext identifies a tree node within a tag's artifact tree.
type TreeContext struct {
	Tag  TagContext
	Path TreePath
}

// StorePath returns the Entity Store path rooted at this tree node. The
// root node's path is ".../tree" itself; deeper nodes descend through an
// "entries" subdirectory per segment, matching the on-disk layout in
// SPEC_FULL.md §4.2.
func (c TreeContext) StorePath() string {
	p := path.Join(c.Tag.StorePath(), "tree")
	for _, seg := range c.Path.Segments {
		p = path.Join(p, "entries", seg)
	}
	return p
}
