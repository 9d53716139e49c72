package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfsprobe/internal/protocol/nfs/types"
)

var lsCmd = &cobra.Command{
	Use:   "ls [export]",
	Short: "Mount an export and list its root with READDIRPLUS",
	Example: `  nfsprobe ls /export
  nfsprobe ls --host 192.0.2.10 --portmap`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func fileTypeChar(t uint32) string {
	switch t {
	case types.FileTypeDirectory:
		return "d"
	case types.FileTypeSymlink:
		return "l"
	case types.FileTypeBlock:
		return "b"
	case types.FileTypeChar:
		return "c"
	case types.FileTypeSocket:
		return "s"
	case types.FileTypeFifo:
		return "p"
	default:
		return "-"
	}
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := dialSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	path := current.cfg.Target.Export
	if len(args) == 1 {
		path = args[0]
	}

	root, err := s.MountRoot(ctx, path)
	if err != nil {
		return err
	}
	entries, err := s.ListDir(ctx, root)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, e := range entries {
		if e.Attr == nil {
			fmt.Fprintf(w, "?\t\t\t\t%s\n", e.Name)
			continue
		}
		a := e.Attr
		fmt.Fprintf(w, "%s%04o\t%d:%d\t%d\t%s\t%s\n",
			fileTypeChar(a.Type), a.Mode&0o7777, a.UID, a.GID, a.Size,
			a.Mtime.Time().Format("2006-01-02 15:04:05"), e.Name)
	}
	return w.Flush()
}
