// ybcg verify [path]
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/ybcg-build/ybcg/internal/builder"
	"github.com/ybcg-build/ybcg/internal/msg"
)

func doVerify(cmd *cobra.Command, args []string) {
	b, err := builder.NewBuilderInDirectory(targetDir(args), flagConfig)
	if err != nil {
		msg.Fatal("%v", err)
	}
	report, err := builder.Verify(b.Dir(), b.Config())
	if err != nil {
		msg.Fatal("%v", err)
	}
	for _, path := range report.Missing {
		msg.Error("missing stub %s", path)
	}
	for _, path := range report.Orphans {
		msg.Warn("stub %s has no matching component in the config", path)
	}
	if len(report.Missing) > 0 {
		msg.Fatal("%d stub files are missing, run generate", len(report.Missing))
	}
	msg.Info("all components have their stubs")
}

var verifyCmd = &cobra.Command{
	Use:   "verify [project path]",
	Short: "Check that the stubs on disk match the config",
	Args:  cobra.MaximumNArgs(1),
	Run:   doVerify,
}

func init() {
	// ybcg verify subcommand
	rootCmd.AddCommand(verifyCmd)
}
