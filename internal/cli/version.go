package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// Version, GitCommit, and BuildDate are set via -ldflags at build time;
	// a `go install` build falls back to the module info Go embeds.
	Version   = "dev"
	GitCommit = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the contextd version",
	Run: func(cmd *cobra.Command, args []string) {
		version, commit, date := Version, GitCommit, BuildDate
		if info, ok := debug.ReadBuildInfo(); ok {
			if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
				version = info.Main.Version
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs.revision":
					if commit == "none" && len(setting.Value) >= 7 {
						commit = setting.Value[:7]
					}
				case "vcs.time":
					if date == "unknown" {
						date = setting.Value
					}
				}
			}
		}
		fmt.Printf("contextd %s (%s, %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
