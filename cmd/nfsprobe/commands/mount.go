package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfsprobe/internal/protocol/mount"
)

var (
	mountUmount bool
	mountList   bool
)

var mountCmd = &cobra.Command{
	Use:   "mount [path]",
	Short: "Call MNT and print the root file handle",
	Long: `Call MOUNTPROC3_MNT for an export path and print the status, the root
file handle in hex and the accepted auth flavors.

Examples:
  nfsprobe mount /export
  nfsprobe mount /export --umount
  nfsprobe mount --exports`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMount,
}

func init() {
	mountCmd.Flags().BoolVar(&mountUmount, "umount", false, "call UMNT after a successful MNT")
	mountCmd.Flags().BoolVar(&mountList, "exports", false, "list the export table instead")
}

func runMount(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := dialSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	if mountList {
		resp, err := s.Mount.Export(ctx)
		if err != nil {
			return err
		}
		for _, e := range resp.Entries {
			fmt.Fprintf(out, "%s %v\n", e.Directory, e.Groups)
		}
		return nil
	}

	path := current.cfg.Target.Export
	if len(args) == 1 {
		path = args[0]
	}

	resp, err := s.Mount.Mount(ctx, path)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "status:       %s\n", mount.StatusString(resp.Status))
	if resp.Status != mount.MountOK {
		return fmt.Errorf("mnt %s: %s", path, mount.StatusString(resp.Status))
	}
	fmt.Fprintf(out, "handle:       %x\n", resp.FileHandle)
	fmt.Fprintf(out, "auth_flavors: %v\n", resp.AuthFlavors)

	if mountUmount {
		if err := s.Mount.Umount(ctx, path); err != nil {
			return fmt.Errorf("umnt %s: %w", path, err)
		}
	}
	return nil
}
