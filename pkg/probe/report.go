package probe

import (
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/pkg/capture"
	"github.com/marmos91/nfsprobe/pkg/metrics"
)

// Report is the outcome of a scenario run.
type Report struct {
	RunID    string    `yaml:"run_id"`
	Target   string    `yaml:"target"`
	Export   string    `yaml:"export"`
	Filename string    `yaml:"filename"`
	Started  time.Time `yaml:"started"`
	Passed   bool      `yaml:"passed"`
	Failure  string    `yaml:"failure,omitempty"`
	Steps    []Step    `yaml:"steps"`

	// Transcript is filled by AttachTranscript; empty unless requested.
	Transcript []TranscriptEntry `yaml:"transcript,omitempty"`
}

// TranscriptEntry summarizes one captured exchange.
type TranscriptEntry struct {
	Seq        uint64        `yaml:"seq"`
	XID        uint32        `yaml:"xid"`
	Call       string        `yaml:"call"`
	CallBytes  int           `yaml:"call_bytes"`
	ReplyBytes int           `yaml:"reply_bytes"`
	Error      string        `yaml:"error,omitempty"`
	Duration   time.Duration `yaml:"duration"`
}

// Step is one call of a scenario and what was observed.
type Step struct {
	Name     string        `yaml:"name"`
	Status   string        `yaml:"status,omitempty"`
	Passed   bool          `yaml:"passed"`
	Detail   string        `yaml:"detail,omitempty"`
	Error    string        `yaml:"error,omitempty"`
	Duration time.Duration `yaml:"duration"`
}

func (r *Report) fail(err error) {
	if r.Passed {
		r.Passed = false
		r.Failure = err.Error()
	}
}

// AttachTranscript replaces the report transcript with xs, in order.
func (r *Report) AttachTranscript(xs []capture.Exchange) {
	r.Transcript = make([]TranscriptEntry, 0, len(xs))
	for _, x := range xs {
		r.Transcript = append(r.Transcript, TranscriptEntry{
			Seq:        x.Seq,
			XID:        x.XID,
			Call:       rpc.ProgramName(x.Program) + "." + metrics.ProcedureName(x.Program, x.Procedure),
			CallBytes:  len(x.Call),
			ReplyBytes: len(x.Reply),
			Error:      x.Err,
			Duration:   x.Duration,
		})
	}
}

// YAML renders the report.
func (r *Report) YAML() ([]byte, error) {
	return yaml.Marshal(r)
}
