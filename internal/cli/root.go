package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

// ExitError carries the process exit code a command wants on failure.
// Configuration problems (bad flags, unreadable project config, invalid
// embedding settings) exit 1; failures during indexing itself exit 2.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// ConfigError wraps err as an ExitError with exit code 1.
func ConfigError(err error) error {
	return &ExitError{Code: 1, Err: err}
}

// IndexError wraps err as an ExitError with exit code 2.
func IndexError(err error) error {
	return &ExitError{Code: 2, Err: err}
}

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "contextd",
	Short: "contextd indexes a codebase for fast local context retrieval",
	Long: `contextd builds and maintains a local catalog of a codebase's files,
chunks, symbols, and embeddings so agent tooling can retrieve relevant
context without re-scanning the tree on every query.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code, honoring
// the 0/1/2 contract: 0 success, 1 configuration error, 2 indexing failure.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "CLI config file (default $HOME/.contextd.yaml); project and global indexing config are read from .contextd/config.yml files instead")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads the --config file (or $HOME/.contextd.yaml) into the
// package-level viper instance. The commands do not read settings from it:
// project config (.contextd/config.yml), global config
// (~/.contextd/config.yml) and env overlay are applied per-run by
// internal/config's Loader.Load, not here.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return
		}
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".contextd")
	}

	viper.SetEnvPrefix("CONTEXTD")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
