// Package commands implements the nfsprobe CLI.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/marmos91/nfsprobe/internal/logger"
	"github.com/marmos91/nfsprobe/internal/protocol/rpc"
	"github.com/marmos91/nfsprobe/pkg/capture"
	"github.com/marmos91/nfsprobe/pkg/config"
	"github.com/marmos91/nfsprobe/pkg/metrics"
	promMetrics "github.com/marmos91/nfsprobe/pkg/metrics/prometheus"
	"github.com/marmos91/nfsprobe/pkg/probe"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile     string
	flagHost    string
	flagPort    uint32
	flagTimeout time.Duration
	flagLevel   string
	flagPortmap bool
	flagRate    float64
)

// env is the state shared by every probing command once the root
// pre-run has loaded the configuration.
type env struct {
	cfg      *config.Config
	observer rpc.Observer
	recorder *capture.Recorder
	closers  []func() error
}

var current *env

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "nfsprobe",
	Short: "nfsprobe - ONC RPC / NFSv3 conformance client",
	Long: `nfsprobe talks to a portmapper, MOUNT v3 and NFS v3 server over TCP
and checks that their replies are well formed.

Configuration is read from $XDG_CONFIG_HOME/nfsprobe/config.yaml and
NFSPROBE_* environment variables; flags override both.

Use "nfsprobe [command] --help" for more information about a command.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if current != nil {
		err = multierr.Append(err, teardown())
	}
	return err
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/nfsprobe/config.yaml)")
	pf.StringVar(&flagHost, "host", "", "server host (overrides target.host)")
	pf.Uint32Var(&flagPort, "port", 0, "NFS and MOUNT port (overrides target.port)")
	pf.DurationVar(&flagTimeout, "timeout", 0, "per call timeout (overrides target.timeout)")
	pf.StringVar(&flagLevel, "log-level", "", "log level: DEBUG, INFO, WARN, ERROR (overrides logging.level)")
	pf.BoolVar(&flagPortmap, "portmap", false, "resolve MOUNT and NFS ports through the portmapper")
	pf.Float64Var(&flagRate, "rate", 0, "max calls per second, 0 for unlimited (overrides target.max_calls_per_second)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(getportCmd)
	rootCmd.AddCommand(mountCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(smokeCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func setup(cmd *cobra.Command, args []string) error {
	if cmd == versionCmd {
		return nil
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	e := &env{cfg: cfg}
	current = e

	var observers []rpc.Observer

	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		observers = append(observers, metrics.Observer(promMetrics.NewClientMetrics()))

		ctx, cancel := context.WithCancel(cmd.Context())
		srv := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
		done := make(chan error, 1)
		go func() { done <- srv.Start(ctx) }()
		e.closers = append(e.closers, func() error {
			cancel()
			return <-done
		})
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	if cfg.Capture.Enabled {
		store, err := config.CreateCaptureStore(cmd.Context(), &cfg.Capture)
		if err != nil {
			return err
		}
		e.recorder = capture.NewRecorder(cmd.Context(), store, cfg.Capture.RunID)
		observers = append(observers, e.recorder)
		e.closers = append(e.closers, func() error {
			logger.Info("Capture complete", "run_id", e.recorder.RunID(), "store", cfg.Capture.Type)
			return multierr.Append(e.recorder.Err(), store.Close())
		})
	}

	e.observer = rpc.MultiObserver(observers...)

	logger.Debug("Configuration loaded",
		"host", cfg.Target.Host,
		"port", cfg.Target.Port,
		"use_portmap", cfg.Target.UsePortmap)
	return nil
}

// applyFlags copies explicitly set flags over the loaded configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Target.Host = flagHost
	}
	if flags.Changed("port") {
		cfg.Target.Port = flagPort
	}
	if flags.Changed("timeout") {
		cfg.Target.Timeout = flagTimeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = flagLevel
	}
	if flags.Changed("portmap") {
		cfg.Target.UsePortmap = flagPortmap
	}
	if flags.Changed("rate") {
		cfg.Target.MaxCallsPerSecond = flagRate
	}
}

// teardown runs the closers registered by setup, last first.
func teardown() error {
	e := current
	if e == nil {
		return nil
	}
	current = nil

	var err error
	for i := len(e.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, e.closers[i]())
	}
	return err
}

func probeOptions() probe.Options {
	t := current.cfg.Target
	return probe.Options{
		Host:              t.Host,
		Port:              t.Port,
		MountPort:         t.MountPort,
		PortmapPort:       t.PortmapPort,
		UsePortmap:        t.UsePortmap,
		Timeout:           t.Timeout,
		MaxRecordSize:     t.MaxRecordSize,
		MaxCallsPerSecond: t.MaxCallsPerSecond,
		Observer:          current.observer,
	}
}

func dialSession(ctx context.Context) (*probe.Session, error) {
	s, err := probe.Dial(ctx, probeOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", current.cfg.Target.Host, err)
	}
	return s, nil
}
