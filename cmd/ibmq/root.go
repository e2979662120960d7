package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/lanl/ibmq"
	"github.com/lanl/ibmq/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "ibmq",
	Short: "Run quantum circuits on IBM Q devices",
	Long: `ibmq routes OpenQASM 2.0 programs onto the qubit topology of an IBM Q
device, submits them, and prints one row of classical bits per shot.

Settings are read from $HOME/.config/ibmq/config.yaml (or --config), from
IBMQ_* environment variables such as IBMQ_BACKEND_NAME, and from flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       ibmq.Version(),
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/ibmq/config.yaml)")
	rootCmd.PersistentFlags().String("accounts", "", "accounts file (default is $HOME/.ibmq/accounts.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, or error")
	_ = viper.BindPFlag("accounts.file", rootCmd.PersistentFlags().Lookup("accounts"))
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// loadConfig reads the configuration and builds the logger it describes.
func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	v := viper.GetViper()
	if err := config.Init(v, cfgFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	log, err := cfg.Logger()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// accountStore returns the configured accounts file.
func accountStore(cfg *config.Config) *ibmq.FileCredentialStore {
	return &ibmq.FileCredentialStore{Path: cfg.Accounts.File}
}

// readProgram returns the contents of a QASM file, or standard input if the
// name is "-".
func readProgram(name string) (*ibmq.Circuit, error) {
	var data []byte
	var err error
	if name == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, err
	}
	return ibmq.ParseQASM(string(data))
}

// printTable writes a shot table, or a histogram of its rows if counts is
// set.  Row digits appear in classical-bit order, bit 0 first.
func printTable(w io.Writer, table ibmq.ShotTable, counts bool) {
	if !counts {
		for _, row := range table {
			var sb strings.Builder
			for _, v := range row {
				sb.WriteByte('0' + v)
			}
			fmt.Fprintln(w, sb.String())
		}
		return
	}
	hist := table.Counts()
	keys := make([]string, 0, len(hist))
	for k := range hist {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%d\n", k, hist[k])
	}
}
