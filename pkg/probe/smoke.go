package probe

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/protocol/mount"
	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
	v3 "github.com/marmos91/nfsprobe/internal/protocol/nfs/v3"
)

// Smoke scenario step names.
const (
	StepMount    = "MNT"
	StepCreate   = "CREATE"
	StepWrite    = "WRITE"
	StepCommit   = "COMMIT"
	StepVerifier = "VERIFIER"
	StepRemove   = "REMOVE"
	StepLookup   = "LOOKUP"
)

// SmokeOptions parameterizes RunSmoke. Zero values select the defaults.
type SmokeOptions struct {
	// Export is mounted first. Default "/".
	Export string

	// Filename is created, written and removed. Default "probe.txt".
	Filename string

	// Data is written with UNSTABLE. Default is 10 bytes.
	Data []byte

	// RunID labels the report. Default is a random UUID.
	RunID string
}

func (o *SmokeOptions) applyDefaults() {
	if o.Export == "" {
		o.Export = "/"
	}
	if o.Filename == "" {
		o.Filename = "probe.txt"
	}
	if o.Data == nil {
		o.Data = []byte("nfsprobe!\n")
	}
	if o.RunID == "" {
		o.RunID = uuid.NewString()
	}
}

// CheckError reports a reply that decoded fine but did not meet the
// scenario's expectation.
type CheckError struct {
	Step   string
	Reason string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Reason)
}

type smokeRun struct {
	report *Report
}

// step runs fn as the named step. fn returns the protocol status name (if
// any), a detail line and either a CheckError or a call error.
func (r *smokeRun) step(name string, fn func() (status, detail string, err error)) error {
	start := time.Now()
	status, detail, err := fn()

	st := Step{
		Name:     name,
		Status:   status,
		Detail:   detail,
		Passed:   err == nil,
		Duration: time.Since(start),
	}
	if err != nil {
		st.Error = err.Error()
		r.report.fail(err)
	}
	r.report.Steps = append(r.report.Steps, st)

	logger.Debug("Smoke step finished", "step", name, logger.KeyStatus, status, "passed", st.Passed)
	return err
}

// cleanup removes a file left behind by a scenario that stopped early.
// Failures are logged and otherwise ignored.
func cleanup(ctx context.Context, s *Session, dir types.FileHandle, name string) {
	resp, err := s.NFS.Remove(ctx, &v3.RemoveRequest{DirHandle: dir, Filename: name})
	switch {
	case err != nil:
		logger.Debug("Cleanup REMOVE failed", "file", name, logger.KeyError, err)
	case resp.Status != types.NFS3OK:
		logger.Debug("Cleanup REMOVE returned error status", "file", name, logger.KeyStatus, types.StatusString(resp.Status))
	default:
		logger.Debug("Cleanup REMOVE succeeded", "file", name)
	}
}

// RunSmoke runs MNT, CREATE, WRITE (UNSTABLE), COMMIT, a verifier
// comparison, REMOVE and a LOOKUP that must return NFS3ERR_NOENT.
//
// The returned report is never nil. The error is a *CheckError when an
// expectation failed and the call error otherwise; the scenario stops at
// the first failing step. If the file was created but the scenario stops
// before REMOVE, a best effort REMOVE is issued without being reported.
func RunSmoke(ctx context.Context, s *Session, opts SmokeOptions) (*Report, error) {
	opts.applyDefaults()

	r := &smokeRun{
		report: &Report{
			RunID:    opts.RunID,
			Target:   s.opts.Host,
			Export:   opts.Export,
			Started:  time.Now().UTC(),
			Passed:   true,
			Filename: opts.Filename,
		},
	}

	var (
		root    types.FileHandle
		file    types.FileHandle
		v1, v2  types.WriteVerifier
		removed bool
	)

	defer func() {
		if file != nil && !removed {
			cleanup(ctx, s, root, opts.Filename)
		}
	}()

	err := r.step(StepMount, func() (string, string, error) {
		resp, err := s.Mount.Mount(ctx, opts.Export)
		if err != nil {
			return "", "", err
		}
		status := mount.StatusString(resp.Status)
		if resp.Status != mount.MountOK {
			return status, "", &CheckError{StepMount, "expected MNT3_OK, got " + status}
		}
		if len(resp.FileHandle) == 0 || len(resp.FileHandle) > mount.MaxFileHandleSize {
			return status, "", &CheckError{StepMount, fmt.Sprintf("root handle of %d bytes", len(resp.FileHandle))}
		}
		root = types.FileHandle(resp.FileHandle)
		return status, fmt.Sprintf("root handle %d bytes", len(root)), nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepCreate, func() (string, string, error) {
		resp, err := s.NFS.Create(ctx, &v3.CreateRequest{
			DirHandle: root,
			Filename:  opts.Filename,
			Mode:      types.CreateUnchecked,
			Attrs:     types.SetAttrs{Mode: types.Uint32(0644)},
		})
		if err != nil {
			return "", "", err
		}
		status := types.StatusString(resp.Status)
		if resp.Status != types.NFS3OK {
			return status, "", &CheckError{StepCreate, "expected NFS3_OK, got " + status}
		}
		if resp.Handle == nil {
			return status, "", &CheckError{StepCreate, "no file handle returned"}
		}
		file = resp.Handle
		if resp.DirWcc.After == nil {
			return status, "", &CheckError{StepCreate, "directory wcc_data has no post-op attributes"}
		}
		return status, fmt.Sprintf("directory size %d after create", resp.DirWcc.After.Size), nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepWrite, func() (string, string, error) {
		resp, err := s.NFS.Write(ctx, &v3.WriteRequest{
			Handle: file,
			Offset: 0,
			Stable: types.UnstableWrite,
			Data:   opts.Data,
		})
		if err != nil {
			return "", "", err
		}
		status := types.StatusString(resp.Status)
		switch {
		case resp.Status != types.NFS3OK:
			return status, "", &CheckError{StepWrite, "expected NFS3_OK, got " + status}
		case resp.Count != uint32(len(opts.Data)):
			return status, "", &CheckError{StepWrite, fmt.Sprintf("count %d, wrote %d", resp.Count, len(opts.Data))}
		case resp.Committed != types.UnstableWrite:
			return status, "", &CheckError{StepWrite, "committed " + resp.Committed.String() + ", expected UNSTABLE"}
		}
		v1 = resp.Verf
		return status, fmt.Sprintf("count %d verf %x", resp.Count, v1[:]), nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepCommit, func() (string, string, error) {
		resp, err := s.NFS.Commit(ctx, &v3.CommitRequest{Handle: file, Offset: 0, Count: 0})
		if err != nil {
			return "", "", err
		}
		status := types.StatusString(resp.Status)
		if resp.Status != types.NFS3OK {
			return status, "", &CheckError{StepCommit, "expected NFS3_OK, got " + status}
		}
		v2 = resp.Verf
		return status, fmt.Sprintf("verf %x", v2[:]), nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepVerifier, func() (string, string, error) {
		if !bytes.Equal(v1[:], v2[:]) {
			return "", "", &CheckError{StepVerifier, fmt.Sprintf("write verf %x != commit verf %x (server restarted?)", v1[:], v2[:])}
		}
		return "", "write and commit verifiers match", nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepRemove, func() (string, string, error) {
		resp, err := s.NFS.Remove(ctx, &v3.RemoveRequest{DirHandle: root, Filename: opts.Filename})
		if err != nil {
			return "", "", err
		}
		status := types.StatusString(resp.Status)
		if resp.Status != types.NFS3OK {
			return status, "", &CheckError{StepRemove, "expected NFS3_OK, got " + status}
		}
		removed = true
		return status, "", nil
	})
	if err != nil {
		return r.report, err
	}

	err = r.step(StepLookup, func() (string, string, error) {
		resp, err := s.NFS.Lookup(ctx, &v3.LookupRequest{DirHandle: root, Filename: opts.Filename})
		if err != nil {
			return "", "", err
		}
		status := types.StatusString(resp.Status)
		if resp.Status != types.NFS3ErrNoEnt {
			return status, "", &CheckError{StepLookup, "expected NFS3ERR_NOENT after REMOVE, got " + status}
		}
		return status, "", nil
	})
	return r.report, err
}
