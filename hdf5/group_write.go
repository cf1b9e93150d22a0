package hdf5

import (
	"fmt"

	"github.com/robert-malhotra/go-mrrd/internal/message"
	"github.com/robert-malhotra/go-mrrd/internal/object"
)

// CreateGroup creates a new subgroup called name.
func (g *Group) CreateGroup(name string) (*Group, error) {
	if err := g.file.checkWritable(); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if g.HasMember(name) {
		return nil, fmt.Errorf("%w: %s", ErrExists, JoinPath(g.path, name))
	}

	f := g.file
	block, err := object.Encode(f.superblock.Config(), object.NewGroupHeader(nil), object.MinGroupChunkSize)
	if err != nil {
		return nil, err
	}
	addr := f.allocator.Alloc(uint64(len(block)))
	if err := f.writer.At(int64(addr)).WriteBytes(block); err != nil {
		return nil, fmt.Errorf("writing group header: %w", err)
	}
	if err := g.setLink(name, addr); err != nil {
		return nil, err
	}
	return f.openGroupAt(addr, JoinPath(g.path, name), name, g)
}

// RequireGroup opens the group at relativePath, creating it and any
// missing parents.
func (g *Group) RequireGroup(relativePath string) (*Group, error) {
	if err := checkPath(relativePath); err != nil {
		return nil, err
	}
	current := g
	for _, name := range SplitPath(relativePath) {
		if current.HasMember(name) {
			next, err := current.OpenGroup(name)
			if err != nil {
				return nil, err
			}
			current = next
			continue
		}
		next, err := current.CreateGroup(name)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

// setLink points the link called name at addr, adding it if missing.
func (g *Group) setLink(name string, addr uint64) error {
	if li, ok := g.header.Message(message.TypeLinkInfo).(*message.LinkInfo); !ok || !li.Compact() {
		return fmt.Errorf("%w: adding links to %s, which does not use compact link storage", ErrUnsupported, g.path)
	}

	msgs := make([]message.Message, 0, len(g.header.Messages)+1)
	found := false
	for _, m := range g.header.Messages {
		if l, ok := m.(*message.Link); ok && l.Name == name {
			m = message.NewHardLink(name, addr)
			found = true
		}
		msgs = append(msgs, m)
	}
	if !found {
		msgs = append(msgs, message.NewHardLink(name, addr))
	}

	newAddr, err := g.file.rewriteHeader(g.header, msgs, object.MinGroupChunkSize)
	if err != nil {
		return fmt.Errorf("updating group %s: %w", g.path, err)
	}
	return g.reload(newAddr)
}

func (g *Group) reload(addr uint64) error {
	h, err := object.Read(g.file.reader, addr)
	if err != nil {
		return err
	}
	moved := addr != g.addr
	g.header, g.addr = h, addr
	if !moved {
		return nil
	}
	if g.parent == nil {
		g.file.superblock.RootGroupAddress = addr
		return g.file.writeSuperblock()
	}
	return g.parent.setLink(g.name, addr)
}

// rewriteHeader stores msgs in place of h. When they no longer fit the
// header moves to a block with room to spare and the old block is freed.
// It returns the header's address.
func (f *File) rewriteHeader(h *object.Header, msgs []message.Message, minChunk int) (uint64, error) {
	cfg := f.superblock.Config()
	if h.Fits(cfg, msgs) {
		block, err := object.EncodeChunk(cfg, msgs, h.ChunkSize)
		if err != nil {
			return 0, err
		}
		if err := f.writer.At(int64(h.Address)).WriteBytes(block); err != nil {
			return 0, fmt.Errorf("writing object header: %w", err)
		}
		return h.Address, nil
	}

	size, err := object.MessagesSize(cfg, msgs)
	if err != nil {
		return 0, err
	}
	block, err := object.Encode(cfg, msgs, max(minChunk, 2*size))
	if err != nil {
		return 0, err
	}
	addr := f.allocator.Alloc(uint64(len(block)))
	if err := f.writer.At(int64(addr)).WriteBytes(block); err != nil {
		return 0, fmt.Errorf("writing object header: %w", err)
	}
	f.allocator.Free(h.Address, uint64(h.Size))
	return addr, nil
}
