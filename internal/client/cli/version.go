package cli

import (
	"github.com/spf13/cobra"
)

func newVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := rootOpts.Version
			out := rootOpts.IO
			return rootOpts.emit(v, func() {
				out.Println("repsync client")
				out.Printf("Version:    %s\n", v.Version)
				out.Printf("Build Date: %s\n", v.BuildDate)
				out.Printf("Git Commit: %s\n", v.GitCommit)
			})
		},
	}
}
