// Package mount is the MOUNT version 3 message catalog (RFC 1813 Appendix I).
//
// Only the procedures a client needs to obtain and release a root file
// handle and to enumerate exports are modelled: NULL, MNT, UMNT and EXPORT.
package mount

import "fmt"

// Procedure numbers.
const (
	MountProcNull    = 0
	MountProcMnt     = 1
	MountProcDump    = 2
	MountProcUmnt    = 3
	MountProcUmntAll = 4
	MountProcExport  = 5
)

// mountstat3 values.
const (
	MountOK             = 0
	MountErrPerm        = 1
	MountErrNoEnt       = 2
	MountErrIO          = 5
	MountErrAccess      = 13
	MountErrNotDir      = 20
	MountErrInval       = 22
	MountErrNameTooLong = 63
	MountErrNotSupp     = 10004
	MountErrServerFault = 10006
)

const (
	// MaxPathLen is MNTPATHLEN.
	MaxPathLen = 1024

	// MaxNameLen is MNTNAMLEN, the bound on group names in EXPORT.
	MaxNameLen = 255

	// MaxFileHandleSize is FHSIZE3.
	MaxFileHandleSize = 64

	// maxAuthFlavors bounds the auth_flavors array accepted from MNT.
	maxAuthFlavors = 32
)

// StatusString returns the mountstat3 name for status, or UNKNOWN_<n>.
func StatusString(status uint32) string {
	switch status {
	case MountOK:
		return "MNT3_OK"
	case MountErrPerm:
		return "MNT3ERR_PERM"
	case MountErrNoEnt:
		return "MNT3ERR_NOENT"
	case MountErrIO:
		return "MNT3ERR_IO"
	case MountErrAccess:
		return "MNT3ERR_ACCES"
	case MountErrNotDir:
		return "MNT3ERR_NOTDIR"
	case MountErrInval:
		return "MNT3ERR_INVAL"
	case MountErrNameTooLong:
		return "MNT3ERR_NAMETOOLONG"
	case MountErrNotSupp:
		return "MNT3ERR_NOTSUPP"
	case MountErrServerFault:
		return "MNT3ERR_SERVERFAULT"
	default:
		return fmt.Sprintf("UNKNOWN_%d", status)
	}
}

// ProcedureName returns the upper-case name of a MOUNT v3 procedure.
func ProcedureName(proc uint32) string {
	names := [...]string{"NULL", "MNT", "DUMP", "UMNT", "UMNTALL", "EXPORT"}
	if int(proc) < len(names) {
		return names[proc]
	}
	return fmt.Sprintf("PROC_%d", proc)
}
