package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var versionJSON bool

type VersionOutput struct {
	Version   string `json:"version"`
	BuildTime string `json:"build_time"`
	GitCommit string `json:"git_commit"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := VersionOutput{Version: Version, BuildTime: BuildTime, GitCommit: GitCommit}
		out := cmd.OutOrStdout()
		if versionJSON {
			b, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		fmt.Fprintln(out, "glassbot version information:")
		fmt.Fprintf(out, "  Version:   %s\n", v.Version)
		fmt.Fprintf(out, "  BuildTime: %s\n", v.BuildTime)
		fmt.Fprintf(out, "  GitCommit: %s\n", v.GitCommit)
		return nil
	},
}

func init() {
	versionCmd.Flags().BoolVar(&versionJSON, "json", false, "Output in JSON format")
}
