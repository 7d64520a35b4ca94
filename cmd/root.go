// ybcg [path], ybcg generate [path]
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/ybcg-build/ybcg/internal/builder"
	"github.com/ybcg-build/ybcg/internal/builder/gen"
	"github.com/ybcg-build/ybcg/internal/msg"
)

var (
	flagConfig         string
	flagNoBuild        bool
	flagDryRun         bool
	flagGit            bool
	flagOnBuildFailure EnumValue = NewEnumValue(string(gen.FailurePolicyFail), map[string]string{
		string(gen.FailurePolicyFail):   "Exit with an error if the smoke build fails (default)",
		string(gen.FailurePolicyWarn):   "Print a warning and exit successfully",
		string(gen.FailurePolicyIgnore): "Only mention the failure",
	})
)

func targetDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

func generateOptions() builder.Options {
	return builder.Options{
		SkipBuild:      flagNoBuild,
		DryRun:         flagDryRun,
		InitGit:        flagGit,
		OnBuildFailure: gen.FailurePolicy(flagOnBuildFailure.Value()),
	}
}

func doGenerate(cmd *cobra.Command, args []string) {
	b, err := builder.NewBuilderInDirectory(targetDir(args), flagConfig)
	if err != nil {
		msg.Fatal("%v", err)
	}
	res, err := b.Generate(cmd.Context(), generateOptions())
	if err != nil {
		msg.Fatal("%v", err)
	}
	if res.Build != nil && res.Build.OK() {
		msg.Info("generated %d files, smoke build passed", len(res.Files))
	} else if !flagDryRun {
		msg.Info("generated %d files", len(res.Files))
	}
}

var rootCmd = &cobra.Command{
	Use:   "ybcg [project path]",
	Short: "Generate a C++/CUDA project skeleton from project_config.yaml",
	Long: `Generate a C++/CUDA project skeleton from project_config.yaml: include/ and src/
stubs for every component, a CMakeLists.txt, and a smoke build in build/.`,
	Args: cobra.MaximumNArgs(1),
	Run:  doGenerate,
}

var generateCmd = &cobra.Command{
	Use:   "generate [project path]",
	Short: "Generate the project",
	Long:  `Generate the project. If no project path is given, uses "."`,
	Args:  cobra.MaximumNArgs(1),
	Run:   doGenerate,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", builder.DefaultConfigFile, "Config file, relative to the project path")

	addGenerateFlags(rootCmd)

	// ybcg generate subcommand
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&flagNoBuild, "no-build", false, "Skip the CMake smoke build")
	cmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Show what would change without writing anything")
	cmd.Flags().BoolVar(&flagGit, "git", false, "Initialize a git repository with a .gitignore")
	cmd.Flags().VarP(&flagOnBuildFailure, "on-build-failure", "f", "What a failed smoke build means, one of "+flagOnBuildFailure.HelpString())
	cmd.RegisterFlagCompletionFunc("on-build-failure", flagOnBuildFailure.CompletionFunc())
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
