package nfstest

import (
	"encoding/binary"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	v3 "github.com/marmos91/nfsprobe/internal/protocol/nfs/v3"
	nfsxdr "github.com/marmos91/nfsprobe/internal/protocol/nfs/xdr"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// ============================================================================
// NFSv3 Procedure Handlers
// ============================================================================
//
// Each handler runs with fs.mu held and returns the reply to encode. NFS
// failures are expressed through the response status, never as Go errors.

func (s *Server) nfsGetAttr(req *v3.GetAttrRequest) *v3.GetAttrResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.GetAttrResponse{Status: status}
	}
	return &v3.GetAttrResponse{Status: types.NFS3OK, Attr: s.fs.attr(n)}
}

func (s *Server) nfsSetAttr(req *v3.SetAttrRequest) *v3.SetAttrResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.SetAttrResponse{Status: status}
	}

	before := s.fs.wccAttr(n)
	if req.Guard.Check && req.Guard.Time != before.Ctime {
		return &v3.SetAttrResponse{Status: types.NFS3ErrNotSync, Wcc: s.fs.wcc(before, n)}
	}
	if req.Attrs.Size != nil && n.ftype == types.FileTypeDirectory {
		return &v3.SetAttrResponse{Status: types.NFS3ErrIsDir, Wcc: s.fs.wcc(before, n)}
	}

	s.fs.setAttrs(n, req.Attrs)
	return &v3.SetAttrResponse{Status: types.NFS3OK, Wcc: s.fs.wcc(before, n)}
}

func (s *Server) nfsLookup(req *v3.LookupRequest) *v3.LookupResponse {
	dir, status := s.fs.resolveDir(req.DirHandle)
	if status != types.NFS3OK {
		return &v3.LookupResponse{Status: status}
	}
	dirAttr := s.fs.attr(dir)

	var id uint64
	switch req.Filename {
	case ".":
		id = dir.id
	case "..":
		id = dir.parent
	default:
		var ok bool
		if id, ok = dir.children[req.Filename]; !ok {
			return &v3.LookupResponse{Status: types.NFS3ErrNoEnt, DirAttr: dirAttr}
		}
	}

	obj := s.fs.nodes[id]
	return &v3.LookupResponse{
		Status:  types.NFS3OK,
		Handle:  handleOf(obj.id),
		ObjAttr: s.fs.attr(obj),
		DirAttr: dirAttr,
	}
}

func (s *Server) nfsAccess(req *v3.AccessRequest) *v3.AccessResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.AccessResponse{Status: status}
	}

	granted := req.Access
	if n.ftype == types.FileTypeDirectory {
		granted &^= types.AccessExecute
	} else {
		granted &^= types.AccessLookup | types.AccessDelete
	}
	return &v3.AccessResponse{Status: types.NFS3OK, Attr: s.fs.attr(n), Access: granted}
}

func (s *Server) nfsRead(req *v3.ReadRequest) *v3.ReadResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.ReadResponse{Status: status}
	}
	if n.ftype == types.FileTypeDirectory {
		return &v3.ReadResponse{Status: types.NFS3ErrIsDir, Attr: s.fs.attr(n)}
	}

	size := uint64(len(n.data))
	start := min(req.Offset, size)
	end := min(start+uint64(req.Count), size)
	data := append([]byte(nil), n.data[start:end]...)

	n.atime = s.fs.now()
	return &v3.ReadResponse{
		Status: types.NFS3OK,
		Attr:   s.fs.attr(n),
		Count:  uint32(len(data)),
		Eof:    end == size,
		Data:   data,
	}
}

func (s *Server) nfsWrite(req *v3.WriteRequest) *v3.WriteResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.WriteResponse{Status: status}
	}

	before := s.fs.wccAttr(n)
	if n.ftype != types.FileTypeRegular {
		return &v3.WriteResponse{Status: types.NFS3ErrInval, Wcc: s.fs.wcc(before, n)}
	}

	count := min(int(req.Count), len(req.Data))
	s.fs.write(n, req.Offset, req.Data[:count])
	return &v3.WriteResponse{
		Status:    types.NFS3OK,
		Wcc:       s.fs.wcc(before, n),
		Count:     uint32(count),
		Committed: req.Stable,
		Verf:      s.verifier(),
	}
}

func (s *Server) nfsCreate(req *v3.CreateRequest) *v3.CreateResponse {
	dir, status := s.fs.resolveDir(req.DirHandle)
	if status != types.NFS3OK {
		return &v3.CreateResponse{Status: status}
	}
	before := s.fs.wccAttr(dir)
	fail := func(status uint32) *v3.CreateResponse {
		return &v3.CreateResponse{Status: status, DirWcc: s.fs.wcc(before, dir)}
	}
	if status := checkName(req.Filename); status != types.NFS3OK {
		return fail(status)
	}

	var n *node
	if id, exists := dir.children[req.Filename]; exists {
		n = s.fs.nodes[id]
		switch {
		case req.Mode == types.CreateGuarded:
			return fail(types.NFS3ErrExist)
		case req.Mode == types.CreateExclusive && n.verf != req.Verf:
			return fail(types.NFS3ErrExist)
		case n.ftype != types.FileTypeRegular:
			return fail(types.NFS3ErrExist)
		case req.Mode == types.CreateUnchecked:
			s.fs.setAttrs(n, types.SetAttrs{Size: req.Attrs.Size})
		}
	} else {
		attrs := req.Attrs
		if req.Mode == types.CreateExclusive {
			attrs = types.SetAttrs{}
		}
		n = s.fs.create(dir, req.Filename, types.FileTypeRegular, attrs)
		n.verf = req.Verf
	}

	return &v3.CreateResponse{
		Status: types.NFS3OK,
		Handle: handleOf(n.id),
		Attr:   s.fs.attr(n),
		DirWcc: s.fs.wcc(before, dir),
	}
}

func (s *Server) nfsMkdir(req *v3.MkdirRequest) *v3.MkdirResponse {
	dir, status := s.fs.resolveDir(req.DirHandle)
	if status != types.NFS3OK {
		return &v3.MkdirResponse{Status: status}
	}
	before := s.fs.wccAttr(dir)
	if status := checkName(req.Name); status != types.NFS3OK {
		return &v3.MkdirResponse{Status: status, DirWcc: s.fs.wcc(before, dir)}
	}
	if _, exists := dir.children[req.Name]; exists {
		return &v3.MkdirResponse{Status: types.NFS3ErrExist, DirWcc: s.fs.wcc(before, dir)}
	}

	n := s.fs.create(dir, req.Name, types.FileTypeDirectory, req.Attrs)
	return &v3.MkdirResponse{
		Status: types.NFS3OK,
		Handle: handleOf(n.id),
		Attr:   s.fs.attr(n),
		DirWcc: s.fs.wcc(before, dir),
	}
}

func (s *Server) nfsRemove(req *v3.RemoveRequest, wantDir bool) *v3.RemoveResponse {
	dir, status := s.fs.resolveDir(req.DirHandle)
	if status != types.NFS3OK {
		return &v3.RemoveResponse{Status: status}
	}
	before := s.fs.wccAttr(dir)
	fail := func(status uint32) *v3.RemoveResponse {
		return &v3.RemoveResponse{Status: status, DirWcc: s.fs.wcc(before, dir)}
	}

	if req.Filename == "." || req.Filename == ".." {
		return fail(types.NFS3ErrInval)
	}
	id, ok := dir.children[req.Filename]
	if !ok {
		return fail(types.NFS3ErrNoEnt)
	}

	n := s.fs.nodes[id]
	isDir := n.ftype == types.FileTypeDirectory
	switch {
	case wantDir && !isDir:
		return fail(types.NFS3ErrNotDir)
	case !wantDir && isDir:
		return fail(types.NFS3ErrIsDir)
	case isDir && len(n.children) > 0:
		return fail(types.NFS3ErrNotEmpty)
	}

	s.fs.unlink(dir, req.Filename)
	return &v3.RemoveResponse{Status: types.NFS3OK, DirWcc: s.fs.wcc(before, dir)}
}

func (s *Server) nfsRename(req *v3.RenameRequest) *v3.RenameResponse {
	from, status := s.fs.resolveDir(req.FromDirHandle)
	if status != types.NFS3OK {
		return &v3.RenameResponse{Status: status}
	}
	to, status := s.fs.resolveDir(req.ToDirHandle)
	if status != types.NFS3OK {
		return &v3.RenameResponse{Status: status}
	}

	fromBefore, toBefore := s.fs.wccAttr(from), s.fs.wccAttr(to)
	reply := func(status uint32) *v3.RenameResponse {
		return &v3.RenameResponse{
			Status:     status,
			FromDirWcc: s.fs.wcc(fromBefore, from),
			ToDirWcc:   s.fs.wcc(toBefore, to),
		}
	}

	if status := checkName(req.ToName); status != types.NFS3OK {
		return reply(status)
	}
	id, ok := from.children[req.FromName]
	if !ok {
		return reply(types.NFS3ErrNoEnt)
	}
	src := s.fs.nodes[id]

	if existing, ok := to.children[req.ToName]; ok {
		if existing == id {
			return reply(types.NFS3OK)
		}
		dst := s.fs.nodes[existing]
		switch {
		case src.ftype == types.FileTypeDirectory && dst.ftype != types.FileTypeDirectory:
			return reply(types.NFS3ErrNotDir)
		case src.ftype != types.FileTypeDirectory && dst.ftype == types.FileTypeDirectory:
			return reply(types.NFS3ErrIsDir)
		case len(dst.children) > 0:
			return reply(types.NFS3ErrNotEmpty)
		}
		s.fs.unlink(to, req.ToName)
	}

	delete(from.children, req.FromName)
	to.children[req.ToName] = id
	src.parent = to.id

	t := s.fs.now()
	from.mtime, from.ctime = t, t
	to.mtime, to.ctime = t, t
	src.ctime = t
	return reply(types.NFS3OK)
}

// nfsReadDirPlus lists "." and ".." followed by the directory's children in
// name order. Cookies are 1-based entry positions; the cookie verifier is
// derived from the directory's mtime so any change invalidates it.
func (s *Server) nfsReadDirPlus(req *v3.ReadDirPlusRequest) *v3.ReadDirPlusResponse {
	dir, status := s.fs.resolveDir(req.DirHandle)
	if status != types.NFS3OK {
		return &v3.ReadDirPlusResponse{Status: status}
	}
	dirAttr := s.fs.attr(dir)

	var verf types.CookieVerifier
	binary.BigEndian.PutUint64(verf[:], uint64(dir.mtime.UnixNano()))
	if req.Cookie != 0 && req.CookieVerf != verf {
		return &v3.ReadDirPlusResponse{Status: types.NFS3ErrBadCookie, DirAttr: dirAttr}
	}

	names := append([]string{".", ".."}, sortedChildren(dir)...)
	ids := make([]uint64, len(names))
	ids[0], ids[1] = dir.id, dir.parent
	for i, name := range names[2:] {
		ids[i+2] = dir.children[name]
	}

	// status + dir attributes + cookieverf + list terminator + eof
	size := 4 + nfsxdr.PostOpAttrSize(true) + types.VerifierSize + 4 + 4
	dirBytes := 0

	resp := &v3.ReadDirPlusResponse{Status: types.NFS3OK, DirAttr: dirAttr, CookieVerf: verf, Eof: true}
	for i := int(req.Cookie); i < len(names); i++ {
		fh := handleOf(ids[i])
		entrySize := 4 + 8 + xdr.OpaqueSize(len(names[i])) + 8 +
			nfsxdr.PostOpAttrSize(true) + 4 + xdr.OpaqueSize(len(fh))
		entryDirBytes := 8 + xdr.OpaqueSize(len(names[i])) + 8

		if size+entrySize > int(req.MaxCount) || dirBytes+entryDirBytes > int(req.DirCount) {
			if len(resp.Entries) == 0 {
				return &v3.ReadDirPlusResponse{Status: types.NFS3ErrTooSmall, DirAttr: dirAttr}
			}
			resp.Eof = false
			break
		}
		size += entrySize
		dirBytes += entryDirBytes

		resp.Entries = append(resp.Entries, types.DirEntryPlus{
			Fileid: ids[i],
			Name:   names[i],
			Cookie: uint64(i + 1),
			Attr:   s.fs.attr(s.fs.nodes[ids[i]]),
			Handle: fh,
		})
	}
	return resp
}

func (s *Server) nfsFsStat(req *v3.FsStatRequest) *v3.FsStatResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.FsStatResponse{Status: status}
	}

	var used uint64
	for _, f := range s.fs.nodes {
		used += uint64(len(f.data))
	}
	const total = 1 << 30
	const totalFiles = 1 << 20
	return &v3.FsStatResponse{
		Status: types.NFS3OK,
		Attr:   s.fs.attr(n),
		Stat: &types.FSStat{
			TotalBytes: total,
			FreeBytes:  total - used,
			AvailBytes: total - used,
			TotalFiles: totalFiles,
			FreeFiles:  totalFiles - uint64(len(s.fs.nodes)),
			AvailFiles: totalFiles - uint64(len(s.fs.nodes)),
		},
	}
}

func (s *Server) nfsFsInfo(req *v3.FsInfoRequest) *v3.FsInfoResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.FsInfoResponse{Status: status}
	}
	return &v3.FsInfoResponse{
		Status: types.NFS3OK,
		Attr:   s.fs.attr(n),
		Info: &types.FSInfo{
			RtMax:       maxTransfer,
			RtPref:      maxTransfer,
			RtMult:      blockSize,
			WtMax:       maxTransfer,
			WtPref:      maxTransfer,
			WtMult:      blockSize,
			DtPref:      8192,
			MaxFileSize: 1 << 40,
			TimeDelta:   types.TimeVal{Nseconds: 1},
			Properties:  types.FSFHomogeneous | types.FSFCanSetTime,
		},
	}
}

func (s *Server) nfsCommit(req *v3.CommitRequest) *v3.CommitResponse {
	n, status := s.fs.resolve(req.Handle)
	if status != types.NFS3OK {
		return &v3.CommitResponse{Status: status}
	}
	before := s.fs.wccAttr(n)
	if n.ftype != types.FileTypeRegular {
		return &v3.CommitResponse{Status: types.NFS3ErrInval, Wcc: s.fs.wcc(before, n)}
	}
	return &v3.CommitResponse{Status: types.NFS3OK, Wcc: s.fs.wcc(before, n), Verf: s.verifier()}
}

func checkName(name string) uint32 {
	switch {
	case name == "" || name == "." || name == "..":
		return types.NFS3ErrInval
	case len(name) > types.MaxNameLen:
		return types.NFS3ErrNameTooLong
	}
	for i := 0; i < len(name); i++ {
		if name[i] == '/' || name[i] == 0 {
			return types.NFS3ErrInval
		}
	}
	return types.NFS3OK
}
