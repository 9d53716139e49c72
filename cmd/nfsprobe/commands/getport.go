package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/nfsprobe/internal/protocol/portmap"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/pkg/probe"
)

var (
	getportProto string
	getportDump  bool
)

var getportCmd = &cobra.Command{
	Use:   "getport [program] [version]",
	Short: "Ask the portmapper where a program listens",
	Long: `Call PMAPPROC_GETPORT for a program and version. A port of 0 means the
program is not registered. Programs can be given by number or as
portmap, mount or nfs.

Examples:
  nfsprobe getport nfs 3
  nfsprobe getport 100005 3 --proto udp
  nfsprobe getport --dump`,
	Args: func(cmd *cobra.Command, args []string) error {
		if getportDump {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(2)(cmd, args)
	},
	RunE: runGetport,
}

func init() {
	getportCmd.Flags().StringVar(&getportProto, "proto", "tcp", "transport protocol (tcp|udp)")
	getportCmd.Flags().BoolVar(&getportDump, "dump", false, "list every registered mapping instead")
}

func parseProgram(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "portmap", "portmapper", "rpcbind":
		return rpc.ProgramPortmap, nil
	case "mount", "mountd":
		return rpc.ProgramMount, nil
	case "nfs":
		return rpc.ProgramNFS, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid program %q", s)
	}
	return uint32(n), nil
}

func parseProto(s string) (uint32, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return portmap.IPProtoTCP, nil
	case "udp":
		return portmap.IPProtoUDP, nil
	default:
		return 0, fmt.Errorf("invalid protocol %q (supported: tcp, udp)", s)
	}
}

func protoName(p uint32) string {
	switch p {
	case portmap.IPProtoTCP:
		return "tcp"
	case portmap.IPProtoUDP:
		return "udp"
	default:
		return strconv.FormatUint(uint64(p), 10)
	}
}

func runGetport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	s, err := probe.DialPortmap(ctx, probeOptions())
	if err != nil {
		return fmt.Errorf("failed to connect to portmapper: %w", err)
	}
	defer s.Close()

	out := cmd.OutOrStdout()

	if getportDump {
		mappings, err := s.Portmap.Dump(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%-10s %-5s %-5s %s\n", "PROGRAM", "VERS", "PROTO", "PORT")
		for _, m := range mappings {
			fmt.Fprintf(out, "%-10s %-5d %-5s %d\n", rpc.ProgramName(m.Prog), m.Vers, protoName(m.Prot), m.Port)
		}
		return nil
	}

	prog, err := parseProgram(args[0])
	if err != nil {
		return err
	}
	vers, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid version %q", args[1])
	}
	prot, err := parseProto(getportProto)
	if err != nil {
		return err
	}

	port, err := s.Portmap.GetPort(ctx, prog, uint32(vers), prot)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, port)
	return nil
}
