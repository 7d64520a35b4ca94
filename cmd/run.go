// ybcg run [path]
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ybcg-build/ybcg/internal/builder"
	"github.com/ybcg-build/ybcg/internal/msg"
)

func doRun(cmd *cobra.Command, args []string) {
	target := "."
	if len(args) > 0 {
		target = args[0]
		args = args[1:] // other arguments will be passed to program
	}
	b, err := builder.NewBuilderInDirectory(target, flagConfig)
	if err != nil {
		msg.Fatal("%v", err)
	}
	if err := b.BuildAndRun(cmd.Context(), args, builder.Options{InitGit: flagGit}); err != nil {
		msg.Fatal("%v", err)
	}
}

var runCmd = &cobra.Command{
	Use:   "run [project path] [args...]",
	Short: "Generate, build and run the project",
	Long:  `Generate, build and run build/main. If no project path is given, uses "."`,
	Args:  cobra.ArbitraryArgs,
	Run:   doRun,
}

func init() {
	// ybcg run subcommand
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&flagGit, "git", false, "Initialize a git repository with a .gitignore")
}
