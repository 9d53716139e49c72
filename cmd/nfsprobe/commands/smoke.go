package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/pkg/probe"
)

var (
	smokeFile       string
	smokeTranscript bool
)

var smokeCmd = &cobra.Command{
	Use:   "smoke [export]",
	Short: "Run the MNT / CREATE / WRITE / COMMIT / REMOVE / LOOKUP scenario",
	Long: `Mount an export, create a file, write 10 bytes UNSTABLE, COMMIT, check
that the write and commit verifiers match, remove the file and check that
LOOKUP returns NFS3ERR_NOENT. The report is printed as YAML.

When capture is enabled the report carries the capture run id, and
--transcript appends a summary of every captured exchange.

Examples:
  nfsprobe smoke /export --host 192.0.2.10
  NFSPROBE_CAPTURE_ENABLED=true nfsprobe smoke --transcript`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSmoke,
}

func init() {
	smokeCmd.Flags().StringVar(&smokeFile, "file", "probe.txt", "name of the file created in the export root")
	smokeCmd.Flags().BoolVar(&smokeTranscript, "transcript", false, "include the captured exchanges in the report (requires capture.enabled)")
}

func runSmoke(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if smokeTranscript && current.recorder == nil {
		return fmt.Errorf("--transcript requires capture to be enabled")
	}

	s, err := dialSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := probe.SmokeOptions{
		Export:   current.cfg.Target.Export,
		Filename: smokeFile,
	}
	if len(args) == 1 {
		opts.Export = args[0]
	}
	if current.recorder != nil {
		opts.RunID = current.recorder.RunID()
	}

	report, runErr := probe.RunSmoke(ctx, s, opts)

	if smokeTranscript {
		xs, err := current.recorder.Transcript(ctx)
		if err != nil {
			return fmt.Errorf("failed to read transcript: %w", err)
		}
		report.AttachTranscript(xs)
	}

	out, err := report.YAML()
	if err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	_, _ = cmd.OutOrStdout().Write(out)

	if runErr != nil {
		return fmt.Errorf("smoke failed: %w", runErr)
	}
	logger.Info("Smoke passed", "run_id", report.RunID, "steps", len(report.Steps))
	return nil
}
