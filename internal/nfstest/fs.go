package nfstest

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
)

const (
	rootID = 1
	fsid   = 0x6e667374

	blockSize = 4096
)

// handleMagic prefixes every handle so that foreign handles are reported
// as NFS3ERR_BADHANDLE rather than NFS3ERR_STALE.
var handleMagic = []byte("nfstest\x00")

type node struct {
	id       uint64
	parent   uint64
	ftype    uint32
	mode     uint32
	uid      uint32
	gid      uint32
	data     []byte
	children map[string]uint64
	verf     types.CreateVerifier

	atime, mtime, ctime time.Time
}

// memFS is a single-export in-memory tree. All methods take fs.mu.
type memFS struct {
	mu     sync.Mutex
	nodes  map[uint64]*node
	nextID uint64
	now    func() time.Time
}

func newMemFS(now func() time.Time) *memFS {
	t := now()
	fs := &memFS{
		nodes:  make(map[uint64]*node),
		nextID: rootID + 1,
		now:    now,
	}
	fs.nodes[rootID] = &node{
		id:       rootID,
		parent:   rootID,
		ftype:    types.FileTypeDirectory,
		mode:     0755,
		children: make(map[string]uint64),
		atime:    t, mtime: t, ctime: t,
	}
	return fs
}

func handleOf(id uint64) types.FileHandle {
	fh := make(types.FileHandle, len(handleMagic)+8)
	copy(fh, handleMagic)
	binary.BigEndian.PutUint64(fh[len(handleMagic):], id)
	return fh
}

// resolve maps a handle to its node. The returned status is NFS3_OK,
// NFS3ERR_BADHANDLE or NFS3ERR_STALE.
func (fs *memFS) resolve(fh types.FileHandle) (*node, uint32) {
	if len(fh) != len(handleMagic)+8 || !bytes.Equal(fh[:len(handleMagic)], handleMagic) {
		return nil, types.NFS3ErrBadHandle
	}
	n, ok := fs.nodes[binary.BigEndian.Uint64(fh[len(handleMagic):])]
	if !ok {
		return nil, types.NFS3ErrStale
	}
	return n, types.NFS3OK
}

func (fs *memFS) resolveDir(fh types.FileHandle) (*node, uint32) {
	n, status := fs.resolve(fh)
	if status != types.NFS3OK {
		return nil, status
	}
	if n.ftype != types.FileTypeDirectory {
		return nil, types.NFS3ErrNotDir
	}
	return n, types.NFS3OK
}

func (fs *memFS) attr(n *node) *types.FileAttr {
	nlink := uint32(1)
	if n.ftype == types.FileTypeDirectory {
		nlink = 2
		for _, id := range n.children {
			if fs.nodes[id].ftype == types.FileTypeDirectory {
				nlink++
			}
		}
	}
	size := uint64(len(n.data))
	if n.ftype == types.FileTypeDirectory {
		size = blockSize
	}
	return &types.FileAttr{
		Type:   n.ftype,
		Mode:   n.mode,
		Nlink:  nlink,
		UID:    n.uid,
		GID:    n.gid,
		Size:   size,
		Used:   (size + blockSize - 1) / blockSize * blockSize,
		Fsid:   fsid,
		Fileid: n.id,
		Atime:  types.TimeValOf(n.atime),
		Mtime:  types.TimeValOf(n.mtime),
		Ctime:  types.TimeValOf(n.ctime),
	}
}

func (fs *memFS) wccAttr(n *node) *types.WccAttr {
	a := fs.attr(n)
	return &types.WccAttr{Size: a.Size, Mtime: a.Mtime, Ctime: a.Ctime}
}

func (fs *memFS) wcc(before *types.WccAttr, n *node) types.WccData {
	return types.WccData{Before: before, After: fs.attr(n)}
}

func (fs *memFS) create(dir *node, name string, ftype uint32, attrs types.SetAttrs) *node {
	t := fs.now()
	n := &node{
		id:     fs.nextID,
		parent: dir.id,
		ftype:  ftype,
		mode:   0644,
		atime:  t, mtime: t, ctime: t,
	}
	if ftype == types.FileTypeDirectory {
		n.mode = 0755
		n.children = make(map[string]uint64)
	}
	fs.nextID++
	fs.nodes[n.id] = n
	dir.children[name] = n.id
	dir.mtime, dir.ctime = t, t
	fs.setAttrs(n, attrs)
	return n
}

func (fs *memFS) unlink(dir *node, name string) {
	id := dir.children[name]
	delete(dir.children, name)
	delete(fs.nodes, id)
	t := fs.now()
	dir.mtime, dir.ctime = t, t
}

// setAttrs applies every set field of attrs. Size changes truncate or
// zero-extend the file.
func (fs *memFS) setAttrs(n *node, attrs types.SetAttrs) {
	t := fs.now()
	if attrs.Mode != nil {
		n.mode = *attrs.Mode & 07777
	}
	if attrs.UID != nil {
		n.uid = *attrs.UID
	}
	if attrs.GID != nil {
		n.gid = *attrs.GID
	}
	if attrs.Size != nil && n.ftype == types.FileTypeRegular {
		size := *attrs.Size
		if size <= uint64(len(n.data)) {
			n.data = n.data[:size]
		} else {
			n.data = append(n.data, make([]byte, size-uint64(len(n.data)))...)
		}
		n.mtime = t
	}
	apply := func(st types.SetTime, dst *time.Time) {
		switch st.How {
		case types.SetToServerTime:
			*dst = t
		case types.SetToClientTime:
			*dst = st.Time.Time()
		}
	}
	apply(attrs.Atime, &n.atime)
	apply(attrs.Mtime, &n.mtime)
	n.ctime = t
}

func (fs *memFS) write(n *node, offset uint64, data []byte) {
	end := offset + uint64(len(data))
	if end > uint64(len(n.data)) {
		n.data = append(n.data, make([]byte, end-uint64(len(n.data)))...)
	}
	copy(n.data[offset:], data)
	t := fs.now()
	n.mtime, n.ctime = t, t
}

// sortedChildren returns the names in dir in a stable order.
func sortedChildren(dir *node) []string {
	names := make([]string, 0, len(dir.children))
	for name := range dir.children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
