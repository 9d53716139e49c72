package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Call NULL on the portmapper, MOUNT and NFS",
	Long: `Call procedure 0 (NULL) of every program and report the round trip time.

The portmapper is only pinged when --portmap (or target.use_portmap) is set.

Examples:
  nfsprobe ping --host 192.0.2.10
  nfsprobe ping --host nfs.example.com --portmap`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := dialSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	type target struct {
		name string
		call func() error
	}
	targets := []target{
		{"mount", func() error { return s.Mount.Null(ctx) }},
		{"nfs", func() error { return s.NFS.Null(ctx) }},
	}
	if s.Portmap != nil {
		targets = append([]target{{"portmap", func() error { return s.Portmap.Null(ctx) }}}, targets...)
	}

	var errs error
	out := cmd.OutOrStdout()
	for _, t := range targets {
		start := time.Now()
		err := t.call()
		if err != nil {
			fmt.Fprintf(out, "%-8s FAIL  %v\n", t.name, err)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", t.name, err))
			continue
		}
		fmt.Fprintf(out, "%-8s OK    %s\n", t.name, time.Since(start).Round(time.Microsecond))
	}
	return errs
}
