package types

import "time"

// TimeVal represents an NFS timestamp (nfstime3 in RFC 1813 Section 2.5.2).
// NFS uses seconds and nanoseconds since the UNIX epoch.
type TimeVal struct {
	// Seconds is the number of seconds since UNIX epoch
	Seconds uint32

	// Nseconds is the nanoseconds component (0-999999999)
	Nseconds uint32
}

// Time converts the timestamp to a time.Time in UTC.
func (tv TimeVal) Time() time.Time {
	return time.Unix(int64(tv.Seconds), int64(tv.Nseconds)).UTC()
}

// TimeValOf converts t to an nfstime3.
func TimeValOf(t time.Time) TimeVal {
	return TimeVal{Seconds: uint32(t.Unix()), Nseconds: uint32(t.Nanosecond())}
}

// FileHandle is an opaque, server-assigned object identifier (nfs_fh3).
// It is at most MaxFileHandleSize bytes.
type FileHandle []byte

// ============================================================================
// NFS Protocol Types - RFC 1813 Wire Format Structures
// ============================================================================

// FileAttr represents the NFS fattr3 structure per RFC 1813 Section 2.3.1.
// On the wire it is always exactly FileAttrSize bytes.
type FileAttr struct {
	Type   uint32   // File type (FileTypeRegular, FileTypeDirectory, etc.)
	Mode   uint32   // Unix permission bits
	Nlink  uint32   // Number of hard links
	UID    uint32   // Owner user ID
	GID    uint32   // Owner group ID
	Size   uint64   // File size in bytes
	Used   uint64   // Disk space used in bytes
	Rdev   SpecData // Device number for special files
	Fsid   uint64   // Filesystem identifier
	Fileid uint64   // File identifier (inode number)
	Atime  TimeVal  // Last access time
	Mtime  TimeVal  // Last modification time
	Ctime  TimeVal  // Last metadata change time
}

// SpecData represents device numbers for special files (RFC 1813 Section 2.5.5).
type SpecData struct {
	Major uint32
	Minor uint32
}

// ============================================================================
// Weak Cache Consistency (WCC) Data
// ============================================================================

// WccAttr is the pre-operation attribute subset (wcc_attr, RFC 1813 Section 2.6).
type WccAttr struct {
	Size  uint64
	Mtime TimeVal
	Ctime TimeVal
}

// WccData carries the optional attribute snapshots taken around a mutating
// operation. A nil field was not present on the wire.
//
// A client compares Before against its cached attributes: if they match, no
// other client modified the object in between and After can replace the
// cache entry directly.
type WccData struct {
	Before *WccAttr
	After  *FileAttr
}

// ============================================================================
// Settable Attributes
// ============================================================================

// TimeHow selects how SETATTR treats a timestamp (time_how, RFC 1813 Section 2.5.3).
type TimeHow uint32

const (
	DontChange      TimeHow = 0
	SetToServerTime TimeHow = 1
	SetToClientTime TimeHow = 2
)

// SetTime is the set_atime / set_mtime union. Time is only meaningful, and
// only encoded, when How is SetToClientTime.
type SetTime struct {
	How  TimeHow
	Time TimeVal
}

// ServerTime asks the server to stamp its own current time.
func ServerTime() SetTime {
	return SetTime{How: SetToServerTime}
}

// ClientTime sets the timestamp to tv.
func ClientTime(tv TimeVal) SetTime {
	return SetTime{How: SetToClientTime, Time: tv}
}

// SetAttrs is sattr3: six independently optional fields. A nil pointer (or
// DontChange for the times) leaves the attribute untouched and contributes
// only its discriminant to the encoding.
type SetAttrs struct {
	Mode  *uint32
	UID   *uint32
	GID   *uint32
	Size  *uint64
	Atime SetTime
	Mtime SetTime
}

// Uint32 returns a pointer to v, for populating SetAttrs.
func Uint32(v uint32) *uint32 { return &v }

// Uint64 returns a pointer to v, for populating SetAttrs.
func Uint64(v uint64) *uint64 { return &v }

// TimeGuard is sattrguard3. When Check is true the server applies SETATTR
// only if the object's ctime equals Time, otherwise it fails with
// NFS3ErrNotSync.
type TimeGuard struct {
	Check bool
	Time  TimeVal
}

// ============================================================================
// Verifiers
// ============================================================================

// WriteVerifier is the 8-byte token returned by WRITE and COMMIT. A change
// between an UNSTABLE write and its COMMIT means the server restarted and
// uncommitted data may be lost.
type WriteVerifier [VerifierSize]byte

// CookieVerifier validates READDIR/READDIRPLUS cookies.
type CookieVerifier [VerifierSize]byte

// CreateVerifier is the idempotency token of an EXCLUSIVE create.
type CreateVerifier [VerifierSize]byte

// ============================================================================
// Directory Entry Structures
// ============================================================================

// DirEntryPlus is one entry returned by READDIRPLUS.
type DirEntryPlus struct {
	Fileid uint64
	Name   string
	Cookie uint64

	// Attr contains the file attributes (may be nil)
	Attr *FileAttr

	// Handle is the file handle (may be nil)
	Handle FileHandle
}

// ============================================================================
// Filesystem Information
// ============================================================================

// FSStat contains dynamic filesystem statistics (returned by FSSTAT).
type FSStat struct {
	TotalBytes uint64
	FreeBytes  uint64
	AvailBytes uint64
	TotalFiles uint64
	FreeFiles  uint64
	AvailFiles uint64

	// Invarsec is the number of seconds for which the filesystem is not
	// expected to change.
	Invarsec uint32
}

// FSInfo contains static filesystem information (returned by FSINFO).
type FSInfo struct {
	RtMax       uint32
	RtPref      uint32
	RtMult      uint32
	WtMax       uint32
	WtPref      uint32
	WtMult      uint32
	DtPref      uint32
	MaxFileSize uint64
	TimeDelta   TimeVal
	Properties  uint32
}
