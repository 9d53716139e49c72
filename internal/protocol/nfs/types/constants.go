package types

import "fmt"

// Wire sizes.
const (
	// MaxFileHandleSize is NFS3_FHSIZE.
	MaxFileHandleSize = 64

	// VerifierSize is NFS3_WRITEVERFSIZE, NFS3_COOKIEVERFSIZE and NFS3_CREATEVERFSIZE.
	VerifierSize = 8

	// FileAttrSize is the encoded size of fattr3.
	FileAttrSize = 84

	// WccAttrSize is the encoded size of wcc_attr.
	WccAttrSize = 24

	// MaxNameLen bounds filename3 in decoded replies.
	MaxNameLen = 255

	// MaxPathLen bounds nfspath3 and dirpath in decoded replies.
	MaxPathLen = 1024
)

// NFS v3 procedure numbers (RFC 1813 Section 3).
const (
	NFSProcNull        = 0
	NFSProcGetAttr     = 1
	NFSProcSetAttr     = 2
	NFSProcLookup      = 3
	NFSProcAccess      = 4
	NFSProcReadLink    = 5
	NFSProcRead        = 6
	NFSProcWrite       = 7
	NFSProcCreate      = 8
	NFSProcMkdir       = 9
	NFSProcSymlink     = 10
	NFSProcMknod       = 11
	NFSProcRemove      = 12
	NFSProcRmdir       = 13
	NFSProcRename      = 14
	NFSProcLink        = 15
	NFSProcReadDir     = 16
	NFSProcReadDirPlus = 17
	NFSProcFsStat      = 18
	NFSProcFsInfo      = 19
	NFSProcPathConf    = 20
	NFSProcCommit      = 21
)

// ProcedureName returns the upper-case name of an NFS v3 procedure.
func ProcedureName(proc uint32) string {
	names := [...]string{
		"NULL", "GETATTR", "SETATTR", "LOOKUP", "ACCESS", "READLINK", "READ",
		"WRITE", "CREATE", "MKDIR", "SYMLINK", "MKNOD", "REMOVE", "RMDIR",
		"RENAME", "LINK", "READDIR", "READDIRPLUS", "FSSTAT", "FSINFO",
		"PATHCONF", "COMMIT",
	}
	if int(proc) < len(names) {
		return names[proc]
	}
	return fmt.Sprintf("PROC_%d", proc)
}

// NFS v3 status codes (nfsstat3, RFC 1813 Section 2.6).
const (
	NFS3OK             = 0
	NFS3ErrPerm        = 1
	NFS3ErrNoEnt       = 2
	NFS3ErrIO          = 5
	NFS3ErrNXIO        = 6
	NFS3ErrAcces       = 13
	NFS3ErrExist       = 17
	NFS3ErrXDev        = 18
	NFS3ErrNoDev       = 19
	NFS3ErrNotDir      = 20
	NFS3ErrIsDir       = 21
	NFS3ErrInval       = 22
	NFS3ErrFBig        = 27
	NFS3ErrNoSpc       = 28
	NFS3ErrRofs        = 30
	NFS3ErrMLink       = 31
	NFS3ErrNameTooLong = 63
	NFS3ErrNotEmpty    = 66
	NFS3ErrDQuot       = 69
	NFS3ErrStale       = 70
	NFS3ErrRemote      = 71
	NFS3ErrBadHandle   = 10001
	NFS3ErrNotSync     = 10002
	NFS3ErrBadCookie   = 10003
	NFS3ErrNotSupp     = 10004
	NFS3ErrTooSmall    = 10005
	NFS3ErrServerFault = 10006
	NFS3ErrBadType     = 10007
	NFS3ErrJukebox     = 10008
)

// File types (ftype3).
const (
	FileTypeRegular   = 1
	FileTypeDirectory = 2
	FileTypeBlock     = 3
	FileTypeChar      = 4
	FileTypeSymlink   = 5
	FileTypeSocket    = 6
	FileTypeFifo      = 7
)

// ACCESS permission bits.
const (
	AccessRead    = 0x0001
	AccessLookup  = 0x0002
	AccessModify  = 0x0004
	AccessExtend  = 0x0008
	AccessDelete  = 0x0010
	AccessExecute = 0x0020
)

// FSINFO properties bits.
const (
	FSFLink        = 0x0001
	FSFSymlink     = 0x0002
	FSFHomogeneous = 0x0008
	FSFCanSetTime  = 0x0010
)

// StableHow is stable_how, the durability requested by WRITE.
type StableHow uint32

const (
	UnstableWrite StableHow = 0
	DataSyncWrite StableHow = 1
	FileSyncWrite StableHow = 2
)

func (s StableHow) String() string {
	switch s {
	case UnstableWrite:
		return "UNSTABLE"
	case DataSyncWrite:
		return "DATA_SYNC"
	case FileSyncWrite:
		return "FILE_SYNC"
	default:
		return fmt.Sprintf("STABLE_HOW_%d", uint32(s))
	}
}

// CreateMode is createmode3.
type CreateMode uint32

const (
	CreateUnchecked CreateMode = 0
	CreateGuarded   CreateMode = 1
	CreateExclusive CreateMode = 2
)
