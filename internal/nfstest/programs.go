package nfstest

import (
	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/protocol/mount"
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	v3 "github.com/marmos91/nfsprobe/internal/protocol/nfs/v3"
	"github.com/marmos91/nfsprobe/internal/protocol/portmap"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/internal/protocol/xdr"
)

// voidArgs accepts only an empty argument body.
func voidArgs(args []byte) error {
	return xdr.NewDecoder(args).Done()
}

func (s *Server) handlePortmap(proc uint32, args []byte) ([]byte, rpc.AcceptStat, error) {
	switch proc {
	case portmap.PmapProcNull:
		if voidArgs(args) != nil {
			return nil, rpc.GarbageArgs, nil
		}
		return nil, rpc.Success, nil

	case portmap.PmapProcGetPort:
		m, err := portmap.DecodeMapping(args)
		if err != nil {
			return nil, rpc.GarbageArgs, nil
		}
		var port uint32
		for _, reg := range s.mappings() {
			if reg.Prog == m.Prog && reg.Vers == m.Vers && reg.Prot == m.Prot {
				port = reg.Port
				break
			}
		}
		logger.Debug("GETPORT", logger.KeyProgram, m.Prog, logger.KeyVersion, m.Vers, "port", port)
		return portmap.EncodePort(port), rpc.Success, nil

	case portmap.PmapProcDump:
		if voidArgs(args) != nil {
			return nil, rpc.GarbageArgs, nil
		}
		return portmap.EncodeDump(s.mappings()), rpc.Success, nil

	default:
		return nil, rpc.ProcUnavail, nil
	}
}

func (s *Server) mappings() []portmap.Mapping {
	port := s.Port()
	return []portmap.Mapping{
		{Prog: rpc.ProgramPortmap, Vers: rpc.PortmapVersion, Prot: portmap.IPProtoTCP, Port: port},
		{Prog: rpc.ProgramMount, Vers: rpc.MountVersion, Prot: portmap.IPProtoTCP, Port: port},
		{Prog: rpc.ProgramNFS, Vers: rpc.NFSVersion, Prot: portmap.IPProtoTCP, Port: port},
	}
}

func (s *Server) handleMount(proc uint32, args []byte) ([]byte, rpc.AcceptStat, error) {
	switch proc {
	case mount.MountProcNull:
		if voidArgs(args) != nil {
			return nil, rpc.GarbageArgs, nil
		}
		return nil, rpc.Success, nil

	case mount.MountProcMnt:
		return serve(s, args, mount.DecodeMountRequest, func(req *mount.MountRequest) *mount.MountResponse {
			if !s.exported(req.DirPath) {
				logger.Debug("Export not found", logger.KeyPath, req.DirPath)
				return &mount.MountResponse{Status: mount.MountErrNoEnt}
			}
			return &mount.MountResponse{
				Status:      mount.MountOK,
				FileHandle:  s.RootHandle(),
				AuthFlavors: []uint32{rpc.AuthNone},
			}
		})

	case mount.MountProcUmnt:
		if _, err := mount.DecodeMountRequest(args); err != nil {
			return nil, rpc.GarbageArgs, nil
		}
		return nil, rpc.Success, nil

	case mount.MountProcExport:
		if voidArgs(args) != nil {
			return nil, rpc.GarbageArgs, nil
		}
		resp := &mount.ExportResponse{}
		for _, path := range s.opts.Exports {
			resp.Entries = append(resp.Entries, mount.ExportEntry{Directory: path})
		}
		b, err := resp.Encode()
		if err != nil {
			return nil, rpc.SystemErr, err
		}
		return b, rpc.Success, nil

	default:
		return nil, rpc.ProcUnavail, nil
	}
}

func (s *Server) handleNFS(proc uint32, args []byte) ([]byte, rpc.AcceptStat, error) {
	switch proc {
	case types.NFSProcNull:
		if voidArgs(args) != nil {
			return nil, rpc.GarbageArgs, nil
		}
		return nil, rpc.Success, nil
	case types.NFSProcGetAttr:
		return serve(s, args, v3.DecodeGetAttrRequest, s.nfsGetAttr)
	case types.NFSProcSetAttr:
		return serve(s, args, v3.DecodeSetAttrRequest, s.nfsSetAttr)
	case types.NFSProcLookup:
		return serve(s, args, v3.DecodeLookupRequest, s.nfsLookup)
	case types.NFSProcAccess:
		return serve(s, args, v3.DecodeAccessRequest, s.nfsAccess)
	case types.NFSProcRead:
		return serve(s, args, v3.DecodeReadRequest, s.nfsRead)
	case types.NFSProcWrite:
		return serve(s, args, v3.DecodeWriteRequest, s.nfsWrite)
	case types.NFSProcCreate:
		return serve(s, args, v3.DecodeCreateRequest, s.nfsCreate)
	case types.NFSProcMkdir:
		return serve(s, args, v3.DecodeMkdirRequest, s.nfsMkdir)
	case types.NFSProcRemove:
		return serve(s, args, v3.DecodeRemoveRequest, func(req *v3.RemoveRequest) *v3.RemoveResponse {
			return s.nfsRemove(req, false)
		})
	case types.NFSProcRmdir:
		return serve(s, args, v3.DecodeRmdirRequest, func(req *v3.RmdirRequest) *v3.RmdirResponse {
			return s.nfsRemove(req, true)
		})
	case types.NFSProcRename:
		return serve(s, args, v3.DecodeRenameRequest, s.nfsRename)
	case types.NFSProcReadDirPlus:
		return serve(s, args, v3.DecodeReadDirPlusRequest, s.nfsReadDirPlus)
	case types.NFSProcFsStat:
		return serve(s, args, v3.DecodeFsStatRequest, s.nfsFsStat)
	case types.NFSProcFsInfo:
		return serve(s, args, v3.DecodeFsInfoRequest, s.nfsFsInfo)
	case types.NFSProcCommit:
		return serve(s, args, v3.DecodeCommitRequest, s.nfsCommit)
	default:
		return nil, rpc.ProcUnavail, nil
	}
}
