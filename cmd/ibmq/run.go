package main

import (
	"fmt"

	"github.com/lanl/ibmq"
	"github.com/lanl/ibmq/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List the devices visible to the stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runBackends,
}

var runCmd = &cobra.Command{
	Use:   "run <file.qasm>",
	Short: "Run a program on a remote device",
	Long: `Route an OpenQASM 2.0 program onto a device, run it, and print one row
of classical bits per shot (bit 0 first).  Use "-" to read standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var routeCmd = &cobra.Command{
	Use:   "route <file.qasm>",
	Short: "Print a program as it would be submitted to a device",
	Args:  cobra.ExactArgs(1),
	RunE:  runRoute,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <file.qasm>",
	Short: "Run a program on the local simulator",
	Args:  cobra.ExactArgs(1),
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(backendsCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(routeCmd)
	rootCmd.AddCommand(simulateCmd)

	for _, cmd := range []*cobra.Command{runCmd, routeCmd} {
		cmd.Flags().StringP("backend", "b", "", "device to use")
	}
	for _, cmd := range []*cobra.Command{runCmd, simulateCmd} {
		cmd.Flags().IntP("shots", "n", 0, "number of shots")
		cmd.Flags().Bool("counts", false, "print a histogram instead of every shot")
	}
	runCmd.Flags().Bool("no-monitor", false, "do not display the job's status while waiting")
	simulateCmd.Flags().Int64("seed", 0, "random seed (0 picks one)")
}

// applyFlags overrides backend settings with any flags given on the command
// line.  The flags are shared by several commands, so they are not bound to
// viper keys.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Backend.Name, _ = flags.GetString("backend")
	}
	if flags.Changed("shots") {
		cfg.Backend.Shots, _ = flags.GetInt("shots")
		if cfg.Backend.Shots <= 0 {
			return ibmq.ErrInvalidShots
		}
	}
	if flags.Changed("seed") {
		cfg.Backend.Seed, _ = flags.GetInt64("seed")
	}
	return nil
}

// newBackend constructs the configured remote backend.
func newBackend(cmd *cobra.Command, cfg *config.Config, log *zap.Logger, monitor bool) (*ibmq.IBMQBackend, error) {
	if cfg.Backend.Name == "" {
		return nil, errors.New("no device named; use --backend or set backend.name")
	}
	return ibmq.NewIBMQBackend(cmd.Context(), accountStore(cfg), cfg.Backend.Name,
		ibmq.WithLogger(log),
		ibmq.WithMonitor(monitor),
		ibmq.WithMonitorOutput(cmd.ErrOrStderr()),
		ibmq.WithPollInterval(cfg.Backend.PollInterval))
}

func runBackends(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	prov, err := ibmq.LoadAccounts(accountStore(cfg), ibmq.WithConnectionLogger(log))
	if err != nil {
		return err
	}
	names, err := prov.Devices(cmd.Context())
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Fprintln(cmd.OutOrStdout(), n)
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	c, err := readProgram(args[0])
	if err != nil {
		return err
	}
	noMonitor, _ := cmd.Flags().GetBool("no-monitor")
	b, err := newBackend(cmd, cfg, log, cfg.Backend.Monitor && !noMonitor)
	if err != nil {
		return err
	}
	table, err := b.Run(cmd.Context(), c, cfg.Backend.Shots)
	if err != nil {
		return err
	}
	counts, _ := cmd.Flags().GetBool("counts")
	printTable(cmd.OutOrStdout(), table, counts)
	return nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	c, err := readProgram(args[0])
	if err != nil {
		return err
	}
	b, err := newBackend(cmd, cfg, log, false)
	if err != nil {
		return err
	}
	physical, err := b.Compile(c)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), physical.ToQASM())
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, cfg); err != nil {
		return err
	}
	c, err := readProgram(args[0])
	if err != nil {
		return err
	}
	opts := []ibmq.SimulatorOption{ibmq.WithNoise(cfg.Backend.Noise)}
	if cfg.Backend.Seed != 0 {
		opts = append(opts, ibmq.WithSimulatorSeed(cfg.Backend.Seed))
	}
	table, err := ibmq.NewSimulator(opts...).Run(cmd.Context(), c, cfg.Backend.Shots)
	if err != nil {
		return err
	}
	counts, _ := cmd.Flags().GetBool("counts")
	printTable(cmd.OutOrStdout(), table, counts)
	return nil
}
