package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/message"
	"github.com/robert-malhotra/go-mrrd/internal/object"
)

// Group represents an HDF5 group.
type Group struct {
	file   *File
	path   string
	name   string
	parent *Group // nil for the root group
	header *object.Header
	addr   uint64
}

// Name returns the group name (last component of path).
func (g *Group) Name() string {
	if g.parent == nil {
		return "/"
	}
	return g.name
}

// Path returns the full path to this group.
func (g *Group) Path() string {
	return g.path
}

// File returns the file the group belongs to.
func (g *Group) File() *File {
	return g.file
}

// Members returns the names of the group's links in storage order.
func (g *Group) Members() []string {
	links := g.header.Links()
	names := make([]string, 0, len(links))
	for _, l := range links {
		names = append(names, l.Name)
	}
	return names
}

// HasMember reports whether the group has a link called name.
func (g *Group) HasMember(name string) bool {
	return g.link(name) != nil
}

func (g *Group) link(name string) *message.Link {
	for _, l := range g.header.Links() {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// OpenGroup opens a subgroup by relative path.
func (g *Group) OpenGroup(relativePath string) (*Group, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	group, ok := obj.(*Group)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, JoinPath(g.path, relativePath))
	}
	return group, nil
}

// OpenDataset opens a dataset by relative path.
func (g *Group) OpenDataset(relativePath string) (*Dataset, error) {
	obj, err := g.open(relativePath)
	if err != nil {
		return nil, err
	}
	dataset, ok := obj.(*Dataset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, JoinPath(g.path, relativePath))
	}
	return dataset, nil
}

// open walks a relative path and returns a *Group or *Dataset.
func (g *Group) open(relativePath string) (any, error) {
	if g.file.closed {
		return nil, ErrClosed
	}
	if err := checkPath(relativePath); err != nil {
		return nil, err
	}
	parts := SplitPath(relativePath)
	current := g
	for i, name := range parts {
		obj, err := current.child(name)
		if err != nil {
			return nil, err
		}
		if i == len(parts)-1 {
			return obj, nil
		}
		next, ok := obj.(*Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, JoinPath(current.path, name))
		}
		current = next
	}
	return current, nil
}

// child opens the object linked from g as name.
func (g *Group) child(name string) (any, error) {
	fullPath := JoinPath(g.path, name)
	if sub, ok := g.file.groups[fullPath]; ok {
		return sub, nil
	}
	if ds, ok := g.file.datasets[fullPath]; ok {
		return ds, nil
	}

	l := g.link(name)
	if l == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, fullPath)
	}
	if !l.IsHard() {
		return nil, fmt.Errorf("%w: %s is a soft or external link", ErrUnsupported, fullPath)
	}
	h, err := object.Read(g.file.reader, l.ObjectAddress)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", fullPath, err)
	}
	switch {
	case h.IsGroup():
		return g.file.newGroup(h, fullPath, name, g), nil
	case h.IsDataset():
		return g.file.newDataset(h, fullPath, name, g)
	}
	return nil, fmt.Errorf("%w: %s is neither a group nor a dataset", ErrUnsupported, fullPath)
}

func (f *File) openGroupAt(addr uint64, path, name string, parent *Group) (*Group, error) {
	if g, ok := f.groups[path]; ok {
		return g, nil
	}
	h, err := object.Read(f.reader, addr)
	if err != nil {
		return nil, err
	}
	if !h.IsGroup() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, path)
	}
	return f.newGroup(h, path, name, parent), nil
}

func (f *File) newGroup(h *object.Header, path, name string, parent *Group) *Group {
	g := &Group{
		file:   f,
		path:   path,
		name:   name,
		parent: parent,
		header: h,
		addr:   h.Address,
	}
	f.groups[path] = g
	return g
}
